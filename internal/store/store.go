// Package store contains profile store backends. The profile store is a
// queryable mirror of the identity provider, keyed by the provider-assigned
// id; it is never the source of truth.
package store

import (
	"context"

	"auth-be/internal/domain"
)

// Updatable profile fields accepted by ProfileStore.Update
const (
	FieldDisplayName = "display_name"
	FieldIsAdmin     = "is_admin"
	FieldStatus      = "status"
	FieldLastLogin   = "last_login"
	FieldAdminSince  = "admin_since"
)

// ProfileStore provides document semantics over per-user profiles.
// Implementations return not_found and store typed errors from pkg/errors.
type ProfileStore interface {
	// Put writes a full profile document under id
	Put(ctx context.Context, id string, profile *domain.Profile) error

	// Get fetches the profile document for id
	Get(ctx context.Context, id string) (*domain.Profile, error)

	// Update applies a partial write; keys must be the Field constants above.
	// Time-valued fields take time.Time, is_admin takes bool, the rest take
	// string.
	Update(ctx context.Context, id string, fields map[string]interface{}) error

	// Delete removes the profile document
	Delete(ctx context.Context, id string) error

	// ListAll returns every profile document
	ListAll(ctx context.Context) ([]*domain.Profile, error)
}
