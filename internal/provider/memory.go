package provider

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"auth-be/pkg/errors"
)

// memoryIdentity is an Identity plus its password hash
type memoryIdentity struct {
	identity Identity
	hash     []byte
}

// Memory is an in-process identity provider for development and tests.
// Credentials are bcrypt-hashed, identifiers are UUIDs.
type Memory struct {
	mu      sync.Mutex
	byID    map[string]*memoryIdentity
	byEmail map[string]string
}

// NewMemory creates an empty in-memory provider
func NewMemory() *Memory {
	return &Memory{
		byID:    make(map[string]*memoryIdentity),
		byEmail: make(map[string]string),
	}
}

// CreateIdentity registers an identity with a bcrypt-hashed credential
func (m *Memory) CreateIdentity(ctx context.Context, email, password, displayName string, emailVerified bool) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[email]; exists {
		return nil, errors.NewDuplicateEmailError(email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.NewProviderError("failed to hash credential", err)
	}

	record := &memoryIdentity{
		identity: Identity{
			ID:            uuid.NewString(),
			Email:         email,
			DisplayName:   displayName,
			EmailVerified: emailVerified,
			Claims:        map[string]bool{},
		},
		hash: hash,
	}
	m.byID[record.identity.ID] = record
	m.byEmail[email] = record.identity.ID

	return cloneIdentity(&record.identity), nil
}

// LookupByEmail finds an identity without checking the credential
func (m *Memory) LookupByEmail(ctx context.Context, email string) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, exists := m.byEmail[email]
	if !exists {
		return nil, errors.NewNotFoundError("user not found")
	}
	return cloneIdentity(&m.byID[id].identity), nil
}

// GetIdentity fetches an identity by id
func (m *Memory) GetIdentity(ctx context.Context, id string) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, exists := m.byID[id]
	if !exists {
		return nil, errors.NewNotFoundError("user not found")
	}
	return cloneIdentity(&record.identity), nil
}

// SetCustomClaims replaces the custom claims on an identity
func (m *Memory) SetCustomClaims(ctx context.Context, id string, claims map[string]bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, exists := m.byID[id]
	if !exists {
		return errors.NewNotFoundError("user not found")
	}

	record.identity.Claims = make(map[string]bool, len(claims))
	for key, value := range claims {
		record.identity.Claims[key] = value
	}
	return nil
}

// VerifyCredential checks an email/password pair. Wrong password and missing
// account report the same not_found error.
func (m *Memory) VerifyCredential(ctx context.Context, email, password string) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, exists := m.byEmail[email]
	if !exists {
		return nil, errors.NewNotFoundError("user not found")
	}

	record := m.byID[id]
	if err := bcrypt.CompareHashAndPassword(record.hash, []byte(password)); err != nil {
		return nil, errors.NewNotFoundError("user not found")
	}
	return cloneIdentity(&record.identity), nil
}

// DeleteIdentity removes the credential record
func (m *Memory) DeleteIdentity(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, exists := m.byID[id]
	if !exists {
		return errors.NewNotFoundError("user not found")
	}
	delete(m.byEmail, record.identity.Email)
	delete(m.byID, id)
	return nil
}

// IssuePasswordResetLink mints a throwaway reset link; nothing delivers it
func (m *Memory) IssuePasswordResetLink(ctx context.Context, email string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[email]; !exists {
		return "", errors.NewNotFoundError("user not found")
	}
	return "memory://reset/" + uuid.NewString(), nil
}

func cloneIdentity(identity *Identity) *Identity {
	clone := *identity
	clone.Claims = make(map[string]bool, len(identity.Claims))
	for key, value := range identity.Claims {
		clone.Claims[key] = value
	}
	return &clone
}
