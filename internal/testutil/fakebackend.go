// Package testutil provides an in-memory taskdeck backend for tests.
package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/naveenspark/taskdeck/pkg/domain"
)

// Request is one call the backend received.
type Request struct {
	Method        string
	Path          string
	Authorization string
}

type account struct {
	user domain.User
	hash []byte
}

type failure struct {
	status  int
	message string
}

// FakeBackend implements the taskdeck REST API in memory.
type FakeBackend struct {
	server *httptest.Server

	mu         sync.Mutex
	accounts   map[string]*account // by email
	tokens     map[string]string   // token -> user id
	projects   map[string]domain.Project
	tasks      map[string]domain.Task
	requests   []Request
	loginToken string
	failNext   *failure
	seq        int
	lastStamp  time.Time
}

// NewFakeBackend starts a backend that is closed when the test ends.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()
	b := &FakeBackend{
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		projects: make(map[string]domain.Project),
		tasks:    make(map[string]domain.Task),
	}
	b.server = httptest.NewServer(b.routes())
	t.Cleanup(b.server.Close)
	return b
}

// URL is the backend's base address.
func (b *FakeBackend) URL() string {
	return b.server.URL
}

func (b *FakeBackend) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(b.record)
	r.HandleFunc("/users/register", b.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/users/login", b.handleLogin).Methods(http.MethodPost)

	api := r.NewRoute().Subrouter()
	api.Use(b.authenticate)
	api.HandleFunc("/projects", b.handleListProjects).Methods(http.MethodGet)
	api.HandleFunc("/projects", b.handleCreateProject).Methods(http.MethodPost)
	api.HandleFunc("/projects/{projectId}", b.handleGetProject).Methods(http.MethodGet)
	api.HandleFunc("/projects/{projectId}", b.handleDeleteProject).Methods(http.MethodDelete)
	api.HandleFunc("/projects/{projectId}/tasks", b.handleListTasks).Methods(http.MethodGet)
	api.HandleFunc("/projects/{projectId}/tasks", b.handleCreateTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskId}", b.handleDeleteTask).Methods(http.MethodDelete)
	return r
}

// AddUser creates an account directly, bypassing the register endpoint.
func (b *FakeBackend) AddUser(username, email, password string) domain.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(username, email, password)
}

func (b *FakeBackend) addUserLocked(username, email, password string) domain.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	b.seq++
	u := domain.User{ID: strconv.Itoa(b.seq), Username: username, Email: email}
	b.accounts[strings.ToLower(email)] = &account{user: u, hash: hash}
	return u
}

// SetLoginToken makes every later login issue token instead of a random one.
func (b *FakeBackend) SetLoginToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loginToken = token
}

// Issue registers token as a credential for userID.
func (b *FakeBackend) Issue(token, userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[token] = userID
}

// Revoke invalidates a previously issued token.
func (b *FakeBackend) Revoke(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tokens, token)
}

// FailNext makes the next request fail with status and a JSON message.
func (b *FakeBackend) FailNext(status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNext = &failure{status: status, message: message}
}

// AddProject stores a project owned by ownerID.
func (b *FakeBackend) AddProject(ownerID, name, description string) domain.Project {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.stamp()
	p := domain.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Owner:       ownerID,
		CreatedAt:   &now,
		UpdatedAt:   &now,
	}
	b.projects[p.ID] = p
	return p
}

// AddTask stores a task in projectID.
func (b *FakeBackend) AddTask(projectID, title string, status domain.TaskStatus) domain.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.stamp()
	t := domain.Task{
		ID:        uuid.NewString(),
		Title:     title,
		Status:    status,
		Project:   projectID,
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	b.tasks[t.ID] = t
	return t
}

// stamp returns a strictly increasing creation time. Caller holds b.mu.
func (b *FakeBackend) stamp() time.Time {
	now := time.Now().UTC()
	if !now.After(b.lastStamp) {
		now = b.lastStamp.Add(time.Microsecond)
	}
	b.lastStamp = now
	return now
}

// Projects returns every stored project sorted by name.
func (b *FakeBackend) Projects() []domain.Project {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Project, 0, len(b.projects))
	for _, p := range b.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Tasks returns the stored tasks of projectID.
func (b *FakeBackend) Tasks(projectID string) []domain.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tasksLocked(projectID)
}

func (b *FakeBackend) tasksLocked(projectID string) []domain.Task {
	out := []domain.Task{}
	for _, t := range b.tasks {
		if t.Project == projectID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(*out[j].CreatedAt) })
	return out
}

// Requests returns the calls received so far.
func (b *FakeBackend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

func (b *FakeBackend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
		})
		fail := b.failNext
		b.failNext = nil
		b.mu.Unlock()

		if fail != nil {
			writeMessage(w, fail.status, fail.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxUserKey struct{}

func caller(r *http.Request) string {
	id, _ := r.Context().Value(ctxUserKey{}).(string)
	return id
}

func (b *FakeBackend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeMessage(w, http.StatusUnauthorized, "No token, authorization denied")
			return
		}
		b.mu.Lock()
		userID, known := b.tokens[token]
		b.mu.Unlock()
		if !known {
			writeMessage(w, http.StatusUnauthorized, "Token is not valid")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, userID)))
	})
}

func (b *FakeBackend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "All fields are required")
		return
	}

	b.mu.Lock()
	if _, exists := b.accounts[strings.ToLower(req.Email)]; exists {
		b.mu.Unlock()
		writeMessage(w, http.StatusBadRequest, "User already exists")
		return
	}
	u := b.addUserLocked(req.Username, req.Email, req.Password)
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user":    u,
	})
}

func (b *FakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acct, ok := b.accounts[strings.ToLower(req.Email)]
	if !ok || bcrypt.CompareHashAndPassword(acct.hash, []byte(req.Password)) != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid credentials")
		return
	}
	token := b.loginToken
	if token == "" {
		token = uuid.NewString()
	}
	b.tokens[token] = acct.user.ID
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": acct.user})
}

func (b *FakeBackend) handleListProjects(w http.ResponseWriter, r *http.Request) {
	owner := caller(r)
	b.mu.Lock()
	out := []domain.Project{}
	for _, p := range b.projects {
		if p.Owner == owner {
			out = append(out, p)
		}
	}
	b.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(*out[j].CreatedAt) })
	writeJSON(w, http.StatusOK, out)
}

func (b *FakeBackend) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeMessage(w, http.StatusBadRequest, "Project name is required")
		return
	}
	p := b.AddProject(caller(r), req.Name, req.Description)
	writeJSON(w, http.StatusCreated, p)
}

// ownedProject looks up a project visible to the caller. Caller holds b.mu.
func (b *FakeBackend) ownedProject(r *http.Request) (domain.Project, bool) {
	p, ok := b.projects[mux.Vars(r)["projectId"]]
	if !ok || p.Owner != caller(r) {
		return domain.Project{}, false
	}
	return p, true
}

func (b *FakeBackend) handleGetProject(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	p, ok := b.ownedProject(r)
	b.mu.Unlock()
	if !ok {
		writeMessage(w, http.StatusNotFound, "Project not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (b *FakeBackend) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.ownedProject(r)
	if !ok {
		writeMessage(w, http.StatusNotFound, "Project not found")
		return
	}
	delete(b.projects, p.ID)
	for id, t := range b.tasks {
		if t.Project == p.ID {
			delete(b.tasks, id)
		}
	}
	writeMessage(w, http.StatusOK, "Project deleted")
}

func (b *FakeBackend) handleListTasks(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	p, ok := b.ownedProject(r)
	var out []domain.Task
	if ok {
		out = b.tasksLocked(p.ID)
	}
	b.mu.Unlock()
	if !ok {
		writeMessage(w, http.StatusNotFound, "Project not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *FakeBackend) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string            `json:"title"`
		Description string            `json:"description"`
		Status      domain.TaskStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		writeMessage(w, http.StatusBadRequest, "Task title is required")
		return
	}
	if req.Status == "" {
		req.Status = domain.StatusToDo
	}
	if !domain.ValidStatus(req.Status) {
		writeMessage(w, http.StatusBadRequest, "Invalid status")
		return
	}

	b.mu.Lock()
	p, ok := b.ownedProject(r)
	b.mu.Unlock()
	if !ok {
		writeMessage(w, http.StatusNotFound, "Project not found")
		return
	}
	t := b.AddTask(p.ID, req.Title, req.Status)
	if req.Description != "" {
		b.mu.Lock()
		t.Description = req.Description
		b.tasks[t.ID] = t
		b.mu.Unlock()
	}
	writeJSON(w, http.StatusCreated, t)
}

func (b *FakeBackend) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[mux.Vars(r)["taskId"]]
	if ok {
		p, owned := b.projects[t.Project]
		ok = owned && p.Owner == caller(r)
	}
	if !ok {
		writeMessage(w, http.StatusNotFound, "Task not found")
		return
	}
	delete(b.tasks, t.ID)
	writeMessage(w, http.StatusOK, "Task deleted")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
