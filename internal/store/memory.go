package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"auth-be/internal/domain"
	"auth-be/pkg/errors"
)

// MemoryStore is an in-process profile store for development and tests
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile

	// FailNext makes the next write fail with a store error, for exercising
	// partial-consistency paths in tests
	FailNext bool
}

// NewMemoryStore creates an empty in-memory profile store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]*domain.Profile)}
}

func (s *MemoryStore) failNext() bool {
	if s.FailNext {
		s.FailNext = false
		return true
	}
	return false
}

// Put writes a full profile document under id
func (s *MemoryStore) Put(ctx context.Context, id string, profile *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext() {
		return errors.NewStoreError("failed to write profile", fmt.Errorf("injected failure"))
	}

	clone := *profile
	clone.ID = id
	s.profiles[id] = &clone
	return nil
}

// Get fetches the profile document for id
func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, exists := s.profiles[id]
	if !exists {
		return nil, errors.NewNotFoundError("profile not found")
	}
	clone := *profile
	return &clone, nil
}

// Update applies a partial write
func (s *MemoryStore) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext() {
		return errors.NewStoreError("failed to update profile", fmt.Errorf("injected failure"))
	}

	profile, exists := s.profiles[id]
	if !exists {
		return errors.NewNotFoundError("profile not found")
	}

	for field, value := range fields {
		switch field {
		case FieldDisplayName:
			profile.DisplayName = value.(string)
		case FieldStatus:
			profile.Status = value.(string)
		case FieldIsAdmin:
			profile.IsAdmin = value.(bool)
		case FieldLastLogin:
			t := value.(time.Time)
			profile.LastLogin = &t
		case FieldAdminSince:
			t := value.(time.Time)
			profile.AdminSince = &t
		default:
			return errors.NewStoreError("unknown profile field", fmt.Errorf("field %q", field))
		}
	}
	return nil
}

// Delete removes the profile document
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext() {
		return errors.NewStoreError("failed to delete profile", fmt.Errorf("injected failure"))
	}

	if _, exists := s.profiles[id]; !exists {
		return errors.NewNotFoundError("profile not found")
	}
	delete(s.profiles, id)
	return nil
}

// ListAll returns every profile document ordered by creation time
func (s *MemoryStore) ListAll(ctx context.Context) ([]*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles := make([]*domain.Profile, 0, len(s.profiles))
	for _, profile := range s.profiles {
		clone := *profile
		profiles = append(profiles, &clone)
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].CreatedAt.Before(profiles[j].CreatedAt)
	})
	return profiles, nil
}
