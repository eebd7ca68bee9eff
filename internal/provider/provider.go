// Package provider contains identity provider clients. The provider is the
// system of record for credentials and custom claims; the profile store only
// mirrors it.
package provider

import "context"

// Identity is a user record as known to the identity provider
type Identity struct {
	ID            string
	Email         string
	DisplayName   string
	EmailVerified bool
	Claims        map[string]bool
}

// IsAdmin reads the admin custom claim
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Claims["admin"]
}

// IdentityProvider is the contract the gateway depends on. Implementations
// return not_found, duplicate_email or provider typed errors from pkg/errors.
type IdentityProvider interface {
	// CreateIdentity registers a new credential record and returns the
	// provider-assigned identity
	CreateIdentity(ctx context.Context, email, password, displayName string, emailVerified bool) (*Identity, error)

	// LookupByEmail finds an identity without checking any credential
	LookupByEmail(ctx context.Context, email string) (*Identity, error)

	// GetIdentity fetches an identity, including its current custom claims
	GetIdentity(ctx context.Context, id string) (*Identity, error)

	// SetCustomClaims replaces the custom claims on an identity
	SetCustomClaims(ctx context.Context, id string, claims map[string]bool) error

	// VerifyCredential validates an email/password pair. A wrong password is
	// reported the same way as a missing account.
	VerifyCredential(ctx context.Context, email, password string) (*Identity, error)

	// DeleteIdentity removes the credential record
	DeleteIdentity(ctx context.Context, id string) error

	// IssuePasswordResetLink asks the provider to mint a reset link; delivery
	// is the provider's concern
	IssuePasswordResetLink(ctx context.Context, email string) (string, error)
}
