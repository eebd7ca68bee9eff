package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auth-be/internal/domain"
	"auth-be/internal/provider"
	"auth-be/internal/store"
	"auth-be/pkg/errors"
	"auth-be/pkg/logger"
)

func setupGateway(t *testing.T) (*Gateway, *provider.Memory, *store.MemoryStore) {
	t.Helper()
	idp := provider.NewMemory()
	profiles := store.NewMemoryStore()
	gw := New(idp, profiles, nil, logger.NewNop())
	return gw, idp, profiles
}

func TestCreateUserThenVerify(t *testing.T) {
	gw, _, _ := setupGateway(t)
	ctx := context.Background()

	created, err := gw.CreateUser(ctx, "a@x.com", "secret1", "", false)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "a@x.com", created.Email)
	assert.Equal(t, "a", created.DisplayName, "display name defaults to the local part")
	assert.False(t, created.IsAdmin)

	verified, err := gw.VerifyUser(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	require.NotNil(t, verified)
	assert.Equal(t, created.ID, verified.ID)
	assert.Equal(t, "a@x.com", verified.Email)
	assert.False(t, verified.IsAdmin)
	assert.Equal(t, domain.StatusActive, verified.Status)
}

func TestCreateUserValidation(t *testing.T) {
	gw, _, _ := setupGateway(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "empty email", email: "", password: "secret1"},
		{name: "empty password", email: "a@x.com", password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := gw.CreateUser(ctx, tt.email, tt.password, "", false)
			assert.Nil(t, record)
			assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
		})
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	gw, _, profiles := setupGateway(t)
	ctx := context.Background()

	first, err := gw.CreateUser(ctx, "a@x.com", "secret1", "Alice", false)
	require.NoError(t, err)

	second, err := gw.CreateUser(ctx, "a@x.com", "other99", "Impostor", true)
	assert.Nil(t, second)
	require.True(t, errors.IsType(err, errors.ErrorTypeDuplicateEmail))

	// The original identity and its profile remain untouched
	profile, err := profiles.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.DisplayName)
	assert.False(t, profile.IsAdmin)

	verified, err := gw.VerifyUser(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	require.NotNil(t, verified)
	assert.Equal(t, first.ID, verified.ID)
}

func TestVerifyUserUnknownEmail(t *testing.T) {
	gw, _, _ := setupGateway(t)

	record, err := gw.VerifyUser(context.Background(), "nobody@x.com", "whatever")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestVerifyUserWrongPassword(t *testing.T) {
	gw, _, _ := setupGateway(t)
	ctx := context.Background()

	_, err := gw.CreateUser(ctx, "a@x.com", "secret1", "", false)
	require.NoError(t, err)

	// Indistinguishable from a missing account
	record, err := gw.VerifyUser(ctx, "a@x.com", "wrongpass")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestVerifyUserUpdatesLastLogin(t *testing.T) {
	gw, _, profiles := setupGateway(t)
	ctx := context.Background()

	created, err := gw.CreateUser(ctx, "a@x.com", "secret1", "", false)
	require.NoError(t, err)

	before, err := profiles.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, before.LastLogin)

	_, err = gw.VerifyUser(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	after, err := profiles.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, after.LastLogin)
}

func TestMakeAndRevokeAdmin(t *testing.T) {
	gw, _, profiles := setupGateway(t)
	ctx := context.Background()

	created, err := gw.CreateUser(ctx, "a@x.com", "secret1", "", false)
	require.NoError(t, err)

	require.NoError(t, gw.MakeAdmin(ctx, created.ID))

	verified, err := gw.VerifyUser(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	require.NotNil(t, verified)
	assert.True(t, verified.IsAdmin)

	profile, err := profiles.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, profile.IsAdmin)
	assert.NotNil(t, profile.AdminSince)

	require.NoError(t, gw.RevokeAdmin(ctx, created.ID))

	verified, err = gw.VerifyUser(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	require.NotNil(t, verified)
	assert.False(t, verified.IsAdmin)
}

func TestMakeAdminUnknownUser(t *testing.T) {
	gw, _, _ := setupGateway(t)

	err := gw.MakeAdmin(context.Background(), "nope")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestAdminFlagReadFromProviderNotMirror(t *testing.T) {
	gw, idp, profiles := setupGateway(t)
	ctx := context.Background()

	created, err := gw.CreateUser(ctx, "a@x.com", "secret1", "", false)
	require.NoError(t, err)

	// Poison the mirror; the merged record must still follow the provider
	require.NoError(t, profiles.Update(ctx, created.ID, map[string]interface{}{
		store.FieldIsAdmin: true,
	}))

	verified, err := gw.VerifyUser(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	require.NotNil(t, verified)
	assert.False(t, verified.IsAdmin)

	identity, err := idp.GetIdentity(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, identity.IsAdmin())
}

func TestDeleteUser(t *testing.T) {
	gw, idp, _ := setupGateway(t)
	ctx := context.Background()

	created, err := gw.CreateUser(ctx, "a@x.com", "secret1", "", false)
	require.NoError(t, err)

	require.NoError(t, gw.DeleteUser(ctx, created.ID))

	record, err := gw.VerifyUser(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Nil(t, record)

	_, err = idp.LookupByEmail(ctx, "a@x.com")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	err = gw.DeleteUser(ctx, created.ID)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestDeleteUserPartialConsistency(t *testing.T) {
	gw, idp, profiles := setupGateway(t)
	ctx := context.Background()

	created, err := gw.CreateUser(ctx, "a@x.com", "secret1", "", false)
	require.NoError(t, err)

	profiles.FailNext = true
	err = gw.DeleteUser(ctx, created.ID)
	require.True(t, errors.IsType(err, errors.ErrorTypePartialConsistency))

	// The authoritative delete went through, the stale profile remains
	_, err = idp.GetIdentity(ctx, created.ID)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
	_, err = profiles.Get(ctx, created.ID)
	assert.NoError(t, err)
}

func TestMakeAdminPartialConsistency(t *testing.T) {
	gw, idp, profiles := setupGateway(t)
	ctx := context.Background()

	created, err := gw.CreateUser(ctx, "a@x.com", "secret1", "", false)
	require.NoError(t, err)

	profiles.FailNext = true
	err = gw.MakeAdmin(ctx, created.ID)
	require.True(t, errors.IsType(err, errors.ErrorTypePartialConsistency))

	// Provider claim is authoritative and already granted; the mirror lags
	identity, err := idp.GetIdentity(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, identity.IsAdmin())

	profile, err := profiles.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, profile.IsAdmin)
}

func TestVerifyUserOrphanedCredential(t *testing.T) {
	gw, _, profiles := setupGateway(t)
	ctx := context.Background()

	created, err := gw.CreateUser(ctx, "a@x.com", "secret1", "", false)
	require.NoError(t, err)

	// Simulate the known inconsistency window: identity without profile
	require.NoError(t, profiles.Delete(ctx, created.ID))

	record, err := gw.VerifyUser(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestGetAllUsers(t *testing.T) {
	gw, _, _ := setupGateway(t)
	ctx := context.Background()

	_, err := gw.CreateUser(ctx, "a@x.com", "secret1", "", false)
	require.NoError(t, err)
	_, err = gw.CreateUser(ctx, "b@x.com", "secret2", "Bob", true)
	require.NoError(t, err)

	profiles, err := gw.GetAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	byEmail := map[string]bool{}
	for _, p := range profiles {
		byEmail[p.Email] = p.IsAdmin
		assert.NotEmpty(t, p.ID)
	}
	assert.False(t, byEmail["a@x.com"])
	assert.True(t, byEmail["b@x.com"])
}

func TestSendPasswordReset(t *testing.T) {
	gw, _, _ := setupGateway(t)
	ctx := context.Background()

	_, err := gw.CreateUser(ctx, "a@x.com", "secret1", "", false)
	require.NoError(t, err)

	assert.NoError(t, gw.SendPasswordReset(ctx, "a@x.com"))

	err = gw.SendPasswordReset(ctx, "nobody@x.com")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestEnsureBootstrapAdminIdempotent(t *testing.T) {
	gw, idp, _ := setupGateway(t)
	ctx := context.Background()

	require.NoError(t, gw.EnsureBootstrapAdmin(ctx, "admin@company.com", "Admin123!"))
	require.NoError(t, gw.EnsureBootstrapAdmin(ctx, "admin@company.com", "Admin123!"))

	profiles, err := gw.GetAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 1, "second run must be a no-op")
	assert.Equal(t, "System Administrator", profiles[0].DisplayName)

	identity, err := idp.LookupByEmail(ctx, "admin@company.com")
	require.NoError(t, err)
	assert.True(t, identity.IsAdmin())

	verified, err := gw.VerifyUser(ctx, "admin@company.com", "Admin123!")
	require.NoError(t, err)
	require.NotNil(t, verified)
	assert.True(t, verified.IsAdmin)
}

func TestLifecycleScenario(t *testing.T) {
	gw, _, _ := setupGateway(t)
	ctx := context.Background()

	created, err := gw.CreateUser(ctx, "a@x.com", "secret1", "", false)
	require.NoError(t, err)

	verified, err := gw.VerifyUser(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	require.NotNil(t, verified)
	assert.Equal(t, "a@x.com", verified.Email)
	assert.False(t, verified.IsAdmin)
	assert.Equal(t, domain.StatusActive, verified.Status)

	require.NoError(t, gw.MakeAdmin(ctx, created.ID))
	verified, err = gw.VerifyUser(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	require.NotNil(t, verified)
	assert.True(t, verified.IsAdmin)

	require.NoError(t, gw.DeleteUser(ctx, created.ID))
	verified, err = gw.VerifyUser(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Nil(t, verified)
}
