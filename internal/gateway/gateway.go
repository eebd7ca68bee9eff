// Package gateway implements the identity gateway: user lifecycle operations
// orchestrated across the identity provider and the profile store. The
// provider owns credentials and claims; the profile store mirrors them. The
// two are written sequentially with no cross-store transaction, so every
// multi-step operation has a window where they disagree.
package gateway

import (
	"context"
	"strings"
	"time"

	"auth-be/internal/domain"
	"auth-be/internal/metrics"
	"auth-be/internal/provider"
	"auth-be/internal/store"
	"auth-be/pkg/errors"
	"auth-be/pkg/logger"
)

// Gateway owns user lifecycle and verification against the two stores
type Gateway struct {
	provider provider.IdentityProvider
	profiles store.ProfileStore
	metrics  *metrics.Collector
	logger   *logger.Logger
}

// New creates an identity gateway
func New(idp provider.IdentityProvider, profiles store.ProfileStore, collector *metrics.Collector, logger *logger.Logger) *Gateway {
	return &Gateway{
		provider: idp,
		profiles: profiles,
		metrics:  collector,
		logger:   logger,
	}
}

// CreateUser registers a credential record with the provider, sets the admin
// claim when requested, then writes the matching profile document. The three
// steps are not transactional: a failure after the first leaves an orphaned
// credential with no profile.
func (g *Gateway) CreateUser(ctx context.Context, email, password, displayName string, isAdmin bool) (*domain.UserRecord, error) {
	record, err := g.createUser(ctx, email, password, displayName, isAdmin)
	g.metrics.RecordOperation("create_user", err)
	return record, err
}

func (g *Gateway) createUser(ctx context.Context, email, password, displayName string, isAdmin bool) (*domain.UserRecord, error) {
	if email == "" {
		return nil, errors.NewValidationError("email is required", nil)
	}
	if password == "" {
		return nil, errors.NewValidationError("password is required", nil)
	}
	if displayName == "" {
		displayName = localPart(email)
	}

	identity, err := g.provider.CreateIdentity(ctx, email, password, displayName, false)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeDuplicateEmail) {
			return nil, err
		}
		g.logger.WithError(err).WithField("email", email).Error("User creation failed at provider")
		return nil, errors.NewProviderError("user creation failed", err)
	}

	log := g.logger.WithField("user_id", identity.ID)

	if isAdmin {
		if err := g.provider.SetCustomClaims(ctx, identity.ID, map[string]bool{"admin": true}); err != nil {
			// The credential exists but carries no admin claim and has no
			// profile yet; report the failure, leave the orphan for a
			// reconciliation pass.
			log.WithError(err).Error("Failed to set admin claim on new identity")
			g.metrics.RecordPartialConsistency()
			return nil, errors.NewProviderError("user creation failed", err)
		}
	}

	now := time.Now().UTC()
	profile := &domain.Profile{
		ID:          identity.ID,
		Email:       email,
		DisplayName: displayName,
		IsAdmin:     isAdmin,
		Status:      domain.StatusActive,
		CreatedAt:   now,
		LastLogin:   nil,
	}
	if isAdmin {
		profile.AdminSince = &now
	}

	if err := g.profiles.Put(ctx, identity.ID, profile); err != nil {
		log.WithError(err).Error("Failed to write profile for new identity")
		g.metrics.RecordPartialConsistency()
		return nil, errors.NewStoreError("user creation failed", err)
	}

	log.WithFields(map[string]interface{}{
		"email":    email,
		"is_admin": isAdmin,
	}).Info("User created")

	return &domain.UserRecord{
		ID:          identity.ID,
		Email:       email,
		DisplayName: displayName,
		IsAdmin:     isAdmin,
	}, nil
}

// VerifyUser validates a credential and returns the merged user record, or
// nil when the account does not exist or the password is wrong (the two are
// not distinguished). Display name and status come from the profile; the
// admin flag is read fresh from the provider, never from the mirror.
func (g *Gateway) VerifyUser(ctx context.Context, email, password string) (*domain.UserRecord, error) {
	record, err := g.verifyUser(ctx, email, password)
	g.metrics.RecordOperation("verify_user", err)
	g.metrics.RecordLogin(err == nil && record != nil)
	return record, err
}

func (g *Gateway) verifyUser(ctx context.Context, email, password string) (*domain.UserRecord, error) {
	identity, err := g.provider.VerifyCredential(ctx, email, password)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeNotFound) {
			return nil, nil
		}
		g.logger.WithError(err).Error("Credential verification failed")
		return nil, errors.NewProviderError("verification failed", err)
	}

	log := g.logger.WithField("user_id", identity.ID)

	profile, err := g.profiles.Get(ctx, identity.ID)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeNotFound) {
			// Orphaned credential: the identity exists but its profile is
			// gone. Treated as not found, flagged for reconciliation.
			log.Warn("Identity has no profile document")
			g.metrics.RecordPartialConsistency()
			return nil, nil
		}
		return nil, errors.NewStoreError("verification failed", err)
	}

	if err := g.profiles.Update(ctx, identity.ID, map[string]interface{}{
		store.FieldLastLogin: time.Now().UTC(),
	}); err != nil {
		return nil, errors.NewStoreError("verification failed", err)
	}

	// Claims on the verified identity may be stale in some providers; read
	// the authoritative record.
	fresh, err := g.provider.GetIdentity(ctx, identity.ID)
	if err != nil {
		return nil, errors.NewProviderError("verification failed", err)
	}

	log.WithField("is_admin", fresh.IsAdmin()).Debug("User verified")

	return &domain.UserRecord{
		ID:          identity.ID,
		Email:       identity.Email,
		DisplayName: profile.DisplayName,
		IsAdmin:     fresh.IsAdmin(),
		Status:      profile.Status,
	}, nil
}

// GetAllUsers returns every profile document with its provider-assigned id.
// Authorization is the caller's responsibility; this operation does not
// re-check it.
func (g *Gateway) GetAllUsers(ctx context.Context) ([]*domain.Profile, error) {
	profiles, err := g.profiles.ListAll(ctx)
	g.metrics.RecordOperation("get_all_users", err)
	if err != nil {
		g.logger.WithError(err).Error("Failed to list users")
		return nil, errors.NewStoreError("failed to list users", err)
	}
	return profiles, nil
}

// DeleteUser removes the provider identity first, then the profile document.
// When the second delete fails the profile is orphaned; the operation
// reports partial_consistency and does not roll back the provider delete.
func (g *Gateway) DeleteUser(ctx context.Context, id string) error {
	err := g.deleteUser(ctx, id)
	g.metrics.RecordOperation("delete_user", err)
	return err
}

func (g *Gateway) deleteUser(ctx context.Context, id string) error {
	if err := g.provider.DeleteIdentity(ctx, id); err != nil {
		if errors.IsType(err, errors.ErrorTypeNotFound) {
			return err
		}
		g.logger.WithError(err).WithField("user_id", id).Error("User deletion failed at provider")
		return errors.NewProviderError("user deletion failed", err)
	}

	if err := g.profiles.Delete(ctx, id); err != nil && !errors.IsType(err, errors.ErrorTypeNotFound) {
		g.logger.WithError(err).WithField("user_id", id).Error("Identity deleted but profile remains")
		g.metrics.RecordPartialConsistency()
		return errors.NewPartialConsistencyError("user deleted, stale profile remains", err)
	}

	g.logger.WithField("user_id", id).Info("User deleted")
	return nil
}

// MakeAdmin grants the admin claim on the provider, then updates the profile
// mirror and stamps admin_since. The provider claim is authoritative; a
// failed mirror write reports partial_consistency without rollback.
func (g *Gateway) MakeAdmin(ctx context.Context, id string) error {
	err := g.setAdmin(ctx, id, true)
	g.metrics.RecordOperation("make_admin", err)
	return err
}

// RevokeAdmin clears the admin claim on the provider, then the mirror
func (g *Gateway) RevokeAdmin(ctx context.Context, id string) error {
	err := g.setAdmin(ctx, id, false)
	g.metrics.RecordOperation("revoke_admin", err)
	return err
}

func (g *Gateway) setAdmin(ctx context.Context, id string, isAdmin bool) error {
	if err := g.provider.SetCustomClaims(ctx, id, map[string]bool{"admin": isAdmin}); err != nil {
		if errors.IsType(err, errors.ErrorTypeNotFound) {
			return err
		}
		g.logger.WithError(err).WithField("user_id", id).Error("Failed to update admin claim")
		return errors.NewProviderError("failed to update admin privileges", err)
	}

	fields := map[string]interface{}{
		store.FieldIsAdmin: isAdmin,
	}
	if isAdmin {
		fields[store.FieldAdminSince] = time.Now().UTC()
	}

	if err := g.profiles.Update(ctx, id, fields); err != nil {
		g.logger.WithError(err).WithField("user_id", id).Error("Admin claim updated but mirror write failed")
		g.metrics.RecordPartialConsistency()
		return errors.NewPartialConsistencyError("admin privileges updated, profile mirror is stale", err)
	}

	g.logger.WithFields(map[string]interface{}{
		"user_id":  id,
		"is_admin": isAdmin,
	}).Info("Admin privileges updated")
	return nil
}

// SendPasswordReset asks the provider to issue a reset link. Success means
// the provider accepted the request, nothing more.
func (g *Gateway) SendPasswordReset(ctx context.Context, email string) error {
	_, err := g.provider.IssuePasswordResetLink(ctx, email)
	g.metrics.RecordOperation("send_password_reset", err)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeNotFound) {
			return err
		}
		g.logger.WithError(err).Error("Password reset request failed")
		return errors.NewProviderError("password reset failed", err)
	}
	g.logger.Info("Password reset link issued")
	return nil
}

// EnsureBootstrapAdmin provisions the configured administrator identity once.
// Idempotent: when an identity with the email already exists this is a no-op.
func (g *Gateway) EnsureBootstrapAdmin(ctx context.Context, email, password string) error {
	_, err := g.provider.LookupByEmail(ctx, email)
	if err == nil {
		g.logger.WithField("email", email).Info("Bootstrap admin already exists")
		return nil
	}
	if !errors.IsType(err, errors.ErrorTypeNotFound) {
		return errors.NewProviderError("bootstrap admin lookup failed", err)
	}

	if _, err := g.CreateUser(ctx, email, password, "System Administrator", true); err != nil {
		g.logger.WithError(err).Error("Bootstrap admin creation failed")
		return err
	}

	g.logger.WithField("email", email).Warn("Bootstrap admin created, change the configured password after first login")
	return nil
}

// localPart returns everything before the @ of an email address
func localPart(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
