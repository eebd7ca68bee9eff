package domain

import "time"

// Profile status values. A deactivated user still verifies against the
// provider; rejecting the login is the caller's job.
const (
	StatusActive      = "active"
	StatusDeactivated = "deactivated"
)

// UserRecord is the merged view of a user returned by the identity gateway.
// IsAdmin is sourced from the provider's custom claims, DisplayName and
// Status from the profile store.
type UserRecord struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	IsAdmin     bool   `json:"is_admin"`
	Status      string `json:"status,omitempty"`
}

// Profile is the denormalized per-user document held in the profile store,
// keyed by the provider-assigned identity id. IsAdmin mirrors the provider
// claim and may lag behind it between the two writes of a promote/demote.
type Profile struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	IsAdmin     bool       `json:"is_admin"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	AdminSince  *time.Time `json:"admin_since,omitempty"`
}
