// Package session holds per-connection authentication state. A session is an
// explicit object owned by its connection, written only through Login and
// Logout; the admin flag is a snapshot taken at login time and does not track
// later claim changes.
package session

import (
	"sync"

	"github.com/google/uuid"

	"auth-be/internal/domain"
	"auth-be/pkg/errors"
)

// Session is the per-connection authentication state
type Session struct {
	mu            sync.RWMutex
	authenticated bool
	user          *domain.UserRecord
	isAdmin       bool
}

// New returns an anonymous session
func New() *Session {
	return &Session{}
}

// Login marks the session authenticated and snapshots the user record,
// including its admin flag. Logging in again overwrites the previous state.
func (s *Session) Login(user *domain.UserRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = true
	s.user = user
	s.isAdmin = user != nil && user.IsAdmin
}

// Logout resets the session to its anonymous state
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = false
	s.user = nil
	s.isAdmin = false
}

// IsAuthenticated reports whether a user is logged in
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// IsAdmin reports the admin flag snapshotted at login
func (s *Session) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isAdmin
}

// CurrentUser returns the user record snapshotted at login, or nil
func (s *Session) CurrentUser() *domain.UserRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// RequireAuth is the authentication gate: it returns a typed refusal when
// the session is anonymous, and nil when the protected operation may run
func (s *Session) RequireAuth() error {
	if !s.IsAuthenticated() {
		return errors.NewAuthenticationError("authentication required")
	}
	return nil
}

// RequireAdmin is the authorization gate: anonymous sessions get an
// authentication refusal, authenticated non-admins an authorization refusal
func (s *Session) RequireAdmin() error {
	if err := s.RequireAuth(); err != nil {
		return err
	}
	if !s.IsAdmin() {
		return errors.NewAuthorizationError("admin privileges required")
	}
	return nil
}

// Manager owns the live sessions, keyed by opaque tokens. One session per
// logical connection; created at connect time, discarded at disconnect.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty session manager
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Create registers a new anonymous session and returns its token
func (m *Manager) Create() (string, *Session) {
	token := uuid.NewString()
	sess := New()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = sess
	return token, sess
}

// Get returns the session for a token
func (m *Manager) Get(token string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[token]
	return sess, ok
}

// Destroy discards a session
func (m *Manager) Destroy(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}
