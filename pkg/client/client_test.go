package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/naveenspark/taskdeck/internal/storage"
	"github.com/naveenspark/taskdeck/pkg/domain"
)

// tokenStore returns a store holding token the way the session store writes it.
func tokenStore(t *testing.T, token string) *storage.MemoryStore {
	t.Helper()
	s := storage.NewMemoryStore()
	if token != "" {
		data, _ := json.Marshal(token) //nolint:errcheck
		if err := s.Set(TokenKey, string(data)); err != nil {
			t.Fatalf("Set() error: %v", err)
		}
	}
	return s
}

func TestListProjectsSendsBearerFromStorage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/projects" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer abc" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "Not authorized"}) //nolint:errcheck
			return
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("X-Request-Id") == "" {
			t.Error("expected X-Request-Id header")
		}
		json.NewEncoder(w).Encode([]domain.Project{ //nolint:errcheck
			{ID: "p1", Name: "P1", Description: "D1"},
			{ID: "p2", Name: "P2", Description: "D2"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL+"/api", tokenStore(t, "abc"))
	projects, err := c.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects() error: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("got %d projects, want 2", len(projects))
	}
	if projects[0].ID != "p1" {
		t.Errorf("projects[0].ID = %q, want %q", projects[0].ID, "p1")
	}
}

func TestCredentialIsReadPerRequest(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]domain.Project{}) //nolint:errcheck
	}))
	defer srv.Close()

	store := tokenStore(t, "")
	c := New(srv.URL, store)

	if _, err := c.ListProjects(context.Background()); err != nil {
		t.Fatalf("ListProjects() error: %v", err)
	}
	if err := store.Set(TokenKey, `"fresh"`); err != nil {
		t.Fatal(err)
	}
	if _, err := c.ListProjects(context.Background()); err != nil {
		t.Fatalf("ListProjects() error: %v", err)
	}

	if len(seen) != 2 {
		t.Fatalf("server saw %d requests, want 2", len(seen))
	}
	if seen[0] != "" {
		t.Errorf("first request Authorization = %q, want none", seen[0])
	}
	if seen[1] != "Bearer fresh" {
		t.Errorf("second request Authorization = %q, want %q", seen[1], "Bearer fresh")
	}
}

func TestCorruptStoredTokenIsNotSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("Authorization = %q, want none", got)
		}
		json.NewEncoder(w).Encode([]domain.Project{}) //nolint:errcheck
	}))
	defer srv.Close()

	store := storage.NewMemoryStore()
	if err := store.Set(TokenKey, "abc"); err != nil { // not JSON-encoded
		t.Fatal(err)
	}
	c := New(srv.URL, store)
	if _, err := c.ListProjects(context.Background()); err != nil {
		t.Fatalf("ListProjects() error: %v", err)
	}
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/users/login" {
			http.NotFound(w, r)
			return
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if body["email"] != "a@x.com" || body["password"] != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"message": "Incorrect email or password"}) //nolint:errcheck
			return
		}
		w.Write([]byte(`{"token":"abc","user":{"_id":"1","username":"a","email":"a@x.com"}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	resp, err := c.Login(context.Background(), "a@x.com", "secret")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if resp.Token != "abc" {
		t.Errorf("Token = %q, want %q", resp.Token, "abc")
	}
	if resp.User == nil || resp.User.ID != "1" {
		t.Errorf("User = %+v, want _id 1", resp.User)
	}

	_, err = c.Login(context.Background(), "a@x.com", "wrong")
	if err == nil {
		t.Fatal("expected error for bad password")
	}
	if got := UserMessage(err); got != "Incorrect email or password" {
		t.Errorf("UserMessage() = %q, want server message", got)
	}
}

func TestRegisterAcceptsBothShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"wrapped", `{"message":"created","user":{"_id":"u1","username":"a"}}`, "u1"},
		{"bare user", `{"_id":"u2","username":"a","email":"a@x.com"}`, "u2"},
		{"message only", `{"message":"created"}`, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(tc.body)) //nolint:errcheck
			}))
			defer srv.Close()

			resp, err := New(srv.URL, nil).Register(context.Background(), RegisterRequest{Username: "a", Email: "a@x.com", Password: "p"})
			if err != nil {
				t.Fatalf("Register() error: %v", err)
			}
			got := ""
			if resp.User != nil {
				got = resp.User.ID
			}
			if got != tc.want {
				t.Errorf("user id = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCreateTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/projects/p1/tasks" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req CreateTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(domain.Task{ //nolint:errcheck
			ID:      "t1",
			Title:   req.Title,
			Status:  req.Status,
			Project: "p1",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, tokenStore(t, "tok"))
	task, err := c.CreateTask(context.Background(), "p1", CreateTaskRequest{Title: "write", Status: domain.StatusToDo})
	if err != nil {
		t.Fatalf("CreateTask() error: %v", err)
	}
	if task.Status != domain.StatusToDo {
		t.Errorf("task.Status = %q, want %q", task.Status, domain.StatusToDo)
	}
}

func TestDeleteEndpoints(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, tokenStore(t, "tok"))
	if err := c.DeleteProject(context.Background(), "p1"); err != nil {
		t.Fatalf("DeleteProject() error: %v", err)
	}
	if err := c.DeleteTask(context.Background(), "t1"); err != nil {
		t.Fatalf("DeleteTask() error: %v", err)
	}
	if strings.Join(paths, ",") != "/projects/p1,/tasks/t1" {
		t.Errorf("paths = %v", paths)
	}
}

func TestUnauthorizedIsReturnedUnchanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "Token expired"}) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(srv.URL, tokenStore(t, "old"))
	_, err := c.GetProject(context.Background(), "p1")
	if err == nil {
		t.Fatal("expected error for unauthorized request")
	}
	if !IsUnauthorized(err) {
		t.Errorf("IsUnauthorized(%v) = false, want true", err)
	}
	if got := err.Error(); !strings.Contains(got, "HTTP 401") {
		t.Errorf("error = %q, want it to contain 'HTTP 401'", got)
	}
}

func TestHTTPErrorFallbacks(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message":"Project not found"}`, "Project not found"},
		{"error field", `{"error":"boom"}`, "boom"},
		{"plain text", "bad gateway\n", "bad gateway"},
		{"empty", "", genericServerMessage},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(tc.body)) //nolint:errcheck
			}))
			defer srv.Close()

			_, err := New(srv.URL, nil).ListProjects(context.Background())
			if err == nil {
				t.Fatal("expected error for 500 response")
			}
			if got := UserMessage(err); got != tc.want {
				t.Errorf("UserMessage() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close() // nothing listening any more

	_, err := New(url, nil).ListProjects(context.Background())
	if err == nil {
		t.Fatal("expected error when server is down")
	}
	if !errors.Is(err, ErrTransport) {
		t.Errorf("errors.Is(err, ErrTransport) = false for %v", err)
	}
	if got := UserMessage(err); got != genericTransportMessage {
		t.Errorf("UserMessage() = %q, want %q", got, genericTransportMessage)
	}
}

func TestDoRequest_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(5 * time.Second)                 // slow server
		json.NewEncoder(w).Encode(domain.Project{}) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	_, err := c.GetProject(ctx, "p1")
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
	if got := UserMessage(err); got != "request canceled" {
		t.Errorf("UserMessage() = %q, want %q", got, "request canceled")
	}
}

func TestUserMessageNil(t *testing.T) {
	if got := UserMessage(nil); got != "" {
		t.Errorf("UserMessage(nil) = %q, want empty", got)
	}
}
