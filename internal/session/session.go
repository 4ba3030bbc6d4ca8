// Package session holds who is signed in. The Store is the single owner of
// the session value; it writes through to durable storage so the session
// survives a restart.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/naveenspark/taskdeck/internal/storage"
	"github.com/naveenspark/taskdeck/pkg/client"
	"github.com/naveenspark/taskdeck/pkg/domain"
)

// UserKey is the durable storage key holding the JSON-encoded user record.
const UserKey = "user"

// TokenKey is the durable storage key holding the JSON-encoded token.
const TokenKey = client.TokenKey

// EntryPath is where LogOut sends the user.
const EntryPath = "/auth"

// ErrIncompleteLogin is returned when the backend answers a login without
// both a token and a user.
var ErrIncompleteLogin = errors.New("session: login response missing token or user")

// AuthAPI is the part of the backend client the store calls.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*client.LoginResponse, error)
	Register(ctx context.Context, req client.RegisterRequest) (*client.RegisterResponse, error)
}

// Navigator performs a full navigation, discarding history.
type Navigator interface {
	Reset(path string)
}

// Service is the session API shared by every screen and command.
type Service interface {
	// Initialize loads the persisted session. It never fails; a missing or
	// unreadable session starts empty.
	Initialize()
	Get() domain.Session
	Authenticated() bool
	LogIn(ctx context.Context, email, password string) error
	Register(ctx context.Context, username, email, password string) error
	LogOut()
}

// Store implements Service on top of durable storage.
type Store struct {
	mu      sync.RWMutex
	current domain.Session

	storage storage.Store
	api     AuthAPI
	nav     Navigator
	logger  *slog.Logger
}

var _ Service = (*Store)(nil)

// New creates a Store. Call Initialize before first use.
func New(st storage.Store, api AuthAPI, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{storage: st, api: api, logger: logger}
}

// SetNavigator wires the router LogOut navigates with. A nil navigator
// makes LogOut skip navigation.
func (s *Store) SetNavigator(nav Navigator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nav = nav
}

// Initialize reads the user and token from storage. Both must decode for
// the session to be restored; otherwise it starts empty.
func (s *Store) Initialize() {
	user, userErr := s.loadUser()
	token, tokenErr := s.loadToken()

	if userErr != nil {
		s.logger.Warn("discarding stored user", slog.String("error", userErr.Error()))
	}
	if tokenErr != nil {
		s.logger.Warn("discarding stored token", slog.String("error", tokenErr.Error()))
	}

	var next domain.Session
	switch {
	case user != nil && token != "":
		next = domain.Session{User: user, Token: token}
	case user != nil || token != "":
		s.logger.Warn("stored session is incomplete, starting signed out",
			slog.Bool("has_user", user != nil), slog.Bool("has_token", token != ""))
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
}

func (s *Store) loadUser() (*domain.User, error) {
	raw, ok, err := s.storage.Get(UserKey)
	if err != nil || !ok {
		return nil, err
	}
	var u *domain.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	// "null" and "{}" decode cleanly but name nobody.
	if u == nil || u.ID == "" {
		return nil, errors.New("decode user: no user id")
	}
	return u, nil
}

func (s *Store) loadToken() (string, error) {
	raw, ok, err := s.storage.Get(TokenKey)
	if err != nil || !ok {
		return "", err
	}
	var token string
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	return token, nil
}

// Get returns a copy of the current session.
func (s *Store) Get() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.current
	if out.User != nil {
		u := *out.User
		out.User = &u
	}
	return out
}

// Authenticated reports whether a user is signed in.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Authenticated()
}

// LogIn signs in with the backend and persists the result. On any error the
// previous session is left as it was.
func (s *Store) LogIn(ctx context.Context, email, password string) error {
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.logger.Info("login failed", slog.String("email", email), slog.String("error", err.Error()))
		return fmt.Errorf("session.LogIn: %w", err)
	}
	if resp == nil || resp.Token == "" || resp.User == nil || resp.User.ID == "" {
		return fmt.Errorf("session.LogIn: %w", ErrIncompleteLogin)
	}

	tokenJSON, err := json.Marshal(resp.Token)
	if err != nil {
		return fmt.Errorf("session.LogIn: encode token: %w", err)
	}
	userJSON, err := json.Marshal(resp.User)
	if err != nil {
		return fmt.Errorf("session.LogIn: encode user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Set(TokenKey, string(tokenJSON)); err != nil {
		s.restoreStorage()
		return fmt.Errorf("session.LogIn: %w", err)
	}
	if err := s.storage.Set(UserKey, string(userJSON)); err != nil {
		s.restoreStorage()
		return fmt.Errorf("session.LogIn: %w", err)
	}

	u := *resp.User
	s.current = domain.Session{User: &u, Token: resp.Token}
	s.logger.Info("signed in", slog.String("user_id", u.ID), slog.String("username", u.Username))
	return nil
}

// restoreStorage rewrites the in-memory session to storage after a failed
// write so the pair on disk stays consistent. Caller holds s.mu.
func (s *Store) restoreStorage() {
	if s.current.User == nil {
		s.removeStored()
		return
	}
	tokenJSON, _ := json.Marshal(s.current.Token) //nolint:errcheck // string marshal cannot fail
	userJSON, err := json.Marshal(s.current.User)
	if err != nil {
		s.removeStored()
		return
	}
	if err := s.storage.Set(TokenKey, string(tokenJSON)); err != nil {
		s.logger.Error("restore stored token", slog.String("error", err.Error()))
	}
	if err := s.storage.Set(UserKey, string(userJSON)); err != nil {
		s.logger.Error("restore stored user", slog.String("error", err.Error()))
	}
}

func (s *Store) removeStored() {
	for _, key := range []string{TokenKey, UserKey} {
		if err := s.storage.Remove(key); err != nil {
			s.logger.Error("remove stored session", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
}

// Register creates an account. It does not sign the user in.
func (s *Store) Register(ctx context.Context, username, email, password string) error {
	resp, err := s.api.Register(ctx, client.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		s.logger.Info("register failed", slog.String("email", email), slog.String("error", err.Error()))
		return fmt.Errorf("session.Register: %w", err)
	}
	attrs := []any{slog.String("username", username)}
	if resp != nil && resp.User != nil {
		attrs = append(attrs, slog.String("user_id", resp.User.ID))
	}
	s.logger.Info("registered", attrs...)
	return nil
}

// LogOut clears the session from memory and storage, then navigates to the
// auth entry page. It does not call the backend and is safe to repeat.
func (s *Store) LogOut() {
	s.mu.Lock()
	s.current = domain.Session{}
	s.removeStored()
	nav := s.nav
	s.mu.Unlock()

	s.logger.Info("signed out")
	if nav != nil {
		nav.Reset(EntryPath)
	}
}
