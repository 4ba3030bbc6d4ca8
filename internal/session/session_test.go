package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naveenspark/taskdeck/internal/storage"
	"github.com/naveenspark/taskdeck/internal/testutil"
	"github.com/naveenspark/taskdeck/pkg/client"
	"github.com/naveenspark/taskdeck/pkg/domain"
)

type recordingNav struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNav) Reset(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	backend *testutil.FakeBackend
	storage storage.Store
	store   *Store
	nav     *recordingNav
}

func newFixture(t *testing.T, st storage.Store) *fixture {
	t.Helper()
	backend := testutil.NewFakeBackend(t)
	if st == nil {
		st = storage.NewMemoryStore()
	}
	api := client.New(backend.URL(), st, client.WithLogger(quietLogger()))
	s := New(st, api, quietLogger())
	nav := &recordingNav{}
	s.SetNavigator(nav)
	s.Initialize()
	return &fixture{backend: backend, storage: st, store: s, nav: nav}
}

func stored(t *testing.T, st storage.Store, key string) (string, bool) {
	t.Helper()
	v, ok, err := st.Get(key)
	require.NoError(t, err)
	return v, ok
}

func TestLogInPersistsSession(t *testing.T) {
	f := newFixture(t, nil)
	f.backend.AddUser("ann", "a@x.com", "secret")
	f.backend.SetLoginToken("abc")

	require.NoError(t, f.store.LogIn(context.Background(), "a@x.com", "secret"))

	sess := f.store.Get()
	require.NotNil(t, sess.User)
	assert.Equal(t, "1", sess.User.ID)
	assert.Equal(t, "ann", sess.User.Username)
	assert.Equal(t, "abc", sess.Token)
	assert.True(t, f.store.Authenticated())

	token, ok := stored(t, f.storage, TokenKey)
	assert.True(t, ok)
	assert.Equal(t, `"abc"`, token)
	user, ok := stored(t, f.storage, UserKey)
	assert.True(t, ok)
	assert.Contains(t, user, `"_id":"1"`)
}

func TestSessionSurvivesRestart(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	st, err := storage.NewFileStore(dir)
	require.NoError(t, err)

	f := newFixture(t, st)
	f.backend.AddUser("ann", "a@x.com", "secret")
	f.backend.SetLoginToken("abc")
	require.NoError(t, f.store.LogIn(context.Background(), "a@x.com", "secret"))

	// A fresh process: new storage handle, new store.
	st2, err := storage.NewFileStore(dir)
	require.NoError(t, err)
	restarted := New(st2, nil, quietLogger())
	restarted.Initialize()

	sess := restarted.Get()
	require.NotNil(t, sess.User)
	assert.Equal(t, "1", sess.User.ID)
	assert.Equal(t, "a@x.com", sess.User.Email)
	assert.Equal(t, "abc", sess.Token)
}

func TestLogInFailureLeavesSessionUntouched(t *testing.T) {
	f := newFixture(t, nil)
	f.backend.AddUser("ann", "a@x.com", "secret")

	err := f.store.LogIn(context.Background(), "a@x.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", client.UserMessage(err))
	assert.False(t, f.store.Authenticated())

	_, ok := stored(t, f.storage, TokenKey)
	assert.False(t, ok)
	_, ok = stored(t, f.storage, UserKey)
	assert.False(t, ok)
}

func TestLogInFailureKeepsPreviousSession(t *testing.T) {
	f := newFixture(t, nil)
	f.backend.AddUser("ann", "a@x.com", "secret")
	f.backend.SetLoginToken("abc")
	require.NoError(t, f.store.LogIn(context.Background(), "a@x.com", "secret"))

	require.Error(t, f.store.LogIn(context.Background(), "a@x.com", "nope"))

	assert.Equal(t, "abc", f.store.Get().Token)
	token, _ := stored(t, f.storage, TokenKey)
	assert.Equal(t, `"abc"`, token)
}

// incompleteAPI answers every login with resp.
type incompleteAPI struct{ resp *client.LoginResponse }

func (a incompleteAPI) Login(context.Context, string, string) (*client.LoginResponse, error) {
	return a.resp, nil
}

func (incompleteAPI) Register(context.Context, client.RegisterRequest) (*client.RegisterResponse, error) {
	return &client.RegisterResponse{}, nil
}

func TestLogInRejectsIncompleteResponse(t *testing.T) {
	tests := []struct {
		name string
		resp *client.LoginResponse
	}{
		{"nil response", nil},
		{"no user", &client.LoginResponse{Token: "abc"}},
		{"no token", &client.LoginResponse{User: &domain.User{ID: "1", Username: "ann"}}},
		{"blank user", &client.LoginResponse{Token: "abc", User: &domain.User{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := storage.NewMemoryStore()
			s := New(st, incompleteAPI{resp: tt.resp}, quietLogger())
			s.Initialize()

			err := s.LogIn(context.Background(), "a@x.com", "secret")
			require.ErrorIs(t, err, ErrIncompleteLogin)
			assert.False(t, s.Authenticated())
			_, ok := stored(t, st, TokenKey)
			assert.False(t, ok)
			_, ok = stored(t, st, UserKey)
			assert.False(t, ok)
		})
	}
}

// failingStore refuses writes to one key.
type failingStore struct {
	storage.Store
	failKey string
}

var errDiskFull = errors.New("disk full")

func (f *failingStore) Set(key, value string) error {
	if key == f.failKey {
		return errDiskFull
	}
	return f.Store.Set(key, value)
}

func TestLogInStorageFailureKeepsPairConsistent(t *testing.T) {
	st := &failingStore{Store: storage.NewMemoryStore(), failKey: UserKey}
	f := newFixture(t, st)
	f.backend.AddUser("ann", "a@x.com", "secret")

	err := f.store.LogIn(context.Background(), "a@x.com", "secret")
	require.ErrorIs(t, err, errDiskFull)
	assert.False(t, f.store.Authenticated())

	_, ok := stored(t, st, TokenKey)
	assert.False(t, ok, "token must not be left without a user")
}

func TestRegisterDoesNotSignIn(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.store.Register(context.Background(), "bob", "b@x.com", "pw"))
	assert.False(t, f.store.Authenticated())
	_, ok := stored(t, f.storage, TokenKey)
	assert.False(t, ok)

	// The new account can log in afterwards.
	require.NoError(t, f.store.LogIn(context.Background(), "b@x.com", "pw"))
	assert.Equal(t, "bob", f.store.Get().User.Username)
}

func TestRegisterErrorPropagates(t *testing.T) {
	f := newFixture(t, nil)
	f.backend.AddUser("bob", "b@x.com", "pw")

	err := f.store.Register(context.Background(), "bob", "b@x.com", "pw")
	require.Error(t, err)
	assert.True(t, client.IsStatus(err, http.StatusBadRequest))
	assert.Equal(t, "User already exists", client.UserMessage(err))
}

func TestLogOutClearsAndNavigates(t *testing.T) {
	f := newFixture(t, nil)
	f.backend.AddUser("ann", "a@x.com", "secret")
	require.NoError(t, f.store.LogIn(context.Background(), "a@x.com", "secret"))
	before := len(f.backend.Requests())

	f.store.LogOut()

	assert.False(t, f.store.Authenticated())
	assert.Nil(t, f.store.Get().User)
	assert.Empty(t, f.store.Get().Token)
	_, ok := stored(t, f.storage, TokenKey)
	assert.False(t, ok)
	_, ok = stored(t, f.storage, UserKey)
	assert.False(t, ok)
	assert.Equal(t, []string{EntryPath}, f.nav.paths)
	assert.Len(t, f.backend.Requests(), before, "logout must not call the backend")
}

func TestLogOutIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)

	f.store.LogOut()
	f.store.LogOut()

	assert.False(t, f.store.Authenticated())
	assert.Equal(t, []string{EntryPath, EntryPath}, f.nav.paths)
}

func TestUnauthorizedDoesNotClearSession(t *testing.T) {
	f := newFixture(t, nil)
	f.backend.AddUser("ann", "a@x.com", "secret")
	f.backend.SetLoginToken("abc")
	require.NoError(t, f.store.LogIn(context.Background(), "a@x.com", "secret"))
	f.backend.Revoke("abc")

	api := client.New(f.backend.URL(), f.storage, client.WithLogger(quietLogger()))
	_, err := api.ListProjects(context.Background())
	require.Error(t, err)
	assert.True(t, client.IsUnauthorized(err))

	assert.True(t, f.store.Authenticated())
	token, ok := stored(t, f.storage, TokenKey)
	assert.True(t, ok)
	assert.Equal(t, `"abc"`, token)
}

func TestInitializeRejectsUnusableStorage(t *testing.T) {
	tests := []struct {
		name  string
		token string
		user  string
	}{
		{name: "empty"},
		{name: "corrupt user", token: `"abc"`, user: `{not json`},
		{name: "corrupt token", token: `abc`, user: `{"_id":"1","username":"ann","email":"a@x.com"}`},
		{name: "token only", token: `"abc"`},
		{name: "user only", user: `{"_id":"1","username":"ann","email":"a@x.com"}`},
		{name: "null user", token: `"abc"`, user: `null`},
		{name: "user without id", token: `"abc"`, user: `{"username":"ann"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := storage.NewMemoryStore()
			if tt.token != "" {
				require.NoError(t, st.Set(TokenKey, tt.token))
			}
			if tt.user != "" {
				require.NoError(t, st.Set(UserKey, tt.user))
			}
			s := New(st, nil, quietLogger())
			s.Initialize()

			assert.False(t, s.Authenticated())
			assert.Nil(t, s.Get().User)
			assert.Empty(t, s.Get().Token)

			// Initialize never rewrites storage.
			if tt.token != "" {
				v, _ := stored(t, st, TokenKey)
				assert.Equal(t, tt.token, v)
			}
		})
	}
}

func TestInitializeReloadsExternalChange(t *testing.T) {
	f := newFixture(t, nil)
	assert.False(t, f.store.Authenticated())

	require.NoError(t, f.storage.Set(TokenKey, `"xyz"`))
	require.NoError(t, f.storage.Set(UserKey, `{"_id":"7","username":"cy","email":"c@x.com"}`))
	f.store.Initialize()

	assert.True(t, f.store.Authenticated())
	assert.Equal(t, "xyz", f.store.Get().Token)

	require.NoError(t, f.storage.Remove(UserKey))
	f.store.Initialize()
	assert.False(t, f.store.Authenticated())
}

func TestGetReturnsCopy(t *testing.T) {
	st := storage.NewMemoryStore()
	require.NoError(t, st.Set(TokenKey, `"abc"`))
	require.NoError(t, st.Set(UserKey, `{"_id":"1","username":"ann","email":"a@x.com"}`))
	s := New(st, nil, quietLogger())
	s.Initialize()

	got := s.Get()
	got.User.Username = "mallory"
	assert.Equal(t, "ann", s.Get().User.Username)
}

func TestConcurrentAccess(t *testing.T) {
	f := newFixture(t, nil)
	f.backend.AddUser("ann", "a@x.com", "secret")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = f.store.LogIn(context.Background(), "a@x.com", "secret")
		}()
		go func() {
			defer wg.Done()
			_ = f.store.Authenticated()
			_ = f.store.Get()
		}()
	}
	wg.Wait()
	assert.True(t, f.store.Authenticated())
}
