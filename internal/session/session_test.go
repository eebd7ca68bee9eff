package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auth-be/internal/domain"
	"auth-be/pkg/errors"
)

func TestSessionInitialState(t *testing.T) {
	sess := New()

	assert.False(t, sess.IsAuthenticated())
	assert.False(t, sess.IsAdmin())
	assert.Nil(t, sess.CurrentUser())
}

func TestLoginLogout(t *testing.T) {
	sess := New()
	record := &domain.UserRecord{ID: "u1", Email: "a@x.com", IsAdmin: true}

	sess.Login(record)
	assert.True(t, sess.IsAuthenticated())
	assert.True(t, sess.IsAdmin())
	assert.Equal(t, record, sess.CurrentUser())

	sess.Logout()
	assert.False(t, sess.IsAuthenticated())
	assert.False(t, sess.IsAdmin())
	assert.Nil(t, sess.CurrentUser())
}

func TestLoginAgainOverwrites(t *testing.T) {
	sess := New()

	sess.Login(&domain.UserRecord{ID: "u1", IsAdmin: true})
	sess.Login(&domain.UserRecord{ID: "u2", IsAdmin: false})

	assert.True(t, sess.IsAuthenticated())
	assert.False(t, sess.IsAdmin())
	assert.Equal(t, "u2", sess.CurrentUser().ID)
}

func TestAdminFlagIsSnapshot(t *testing.T) {
	sess := New()
	record := &domain.UserRecord{ID: "u1", IsAdmin: false}

	sess.Login(record)

	// Changing the record after login must not affect the session copy
	record.IsAdmin = true
	assert.False(t, sess.IsAdmin())
}

func TestRequireAuthGate(t *testing.T) {
	sess := New()

	executed := 0
	protected := func() error {
		if err := sess.RequireAuth(); err != nil {
			return err
		}
		executed++
		return nil
	}

	err := protected()
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuthentication))
	assert.Equal(t, 0, executed, "protected body must not run for anonymous sessions")

	sess.Login(&domain.UserRecord{ID: "u1"})
	require.NoError(t, protected())
	assert.Equal(t, 1, executed)
}

func TestRequireAdminGate(t *testing.T) {
	sess := New()

	executed := 0
	protected := func() error {
		if err := sess.RequireAdmin(); err != nil {
			return err
		}
		executed++
		return nil
	}

	// Anonymous: authentication refusal, body never runs
	err := protected()
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuthentication))
	assert.Equal(t, 0, executed)

	// Authenticated non-admin: authorization refusal, body never runs
	sess.Login(&domain.UserRecord{ID: "u1", IsAdmin: false})
	err = protected()
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuthorization))
	assert.Equal(t, 0, executed)

	// Admin: body runs exactly once
	sess.Login(&domain.UserRecord{ID: "u2", IsAdmin: true})
	require.NoError(t, protected())
	assert.Equal(t, 1, executed)
}

func TestManager(t *testing.T) {
	manager := NewManager()

	token, sess := manager.Create()
	require.NotEmpty(t, token)
	require.NotNil(t, sess)

	got, ok := manager.Get(token)
	require.True(t, ok)
	assert.Same(t, sess, got)

	token2, sess2 := manager.Create()
	assert.NotEqual(t, token, token2)
	assert.NotSame(t, sess, sess2)

	manager.Destroy(token)
	_, ok = manager.Get(token)
	assert.False(t, ok)
}
