package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionCreateAndValidate(t *testing.T) {
	store := NewSessionStore(time.Hour)

	token := store.Create(42)
	require.NotEmpty(t, token)

	userID, err := store.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
}

func TestSessionValidateUnknownToken(t *testing.T) {
	store := NewSessionStore(time.Hour)

	_, err := store.Validate("nope")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionRevoke(t *testing.T) {
	store := NewSessionStore(time.Hour)

	token := store.Create(7)
	store.Revoke(token)

	_, err := store.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidSession)

	// revoking twice must not panic
	store.Revoke(token)
}

func TestSessionExpiry(t *testing.T) {
	store := NewSessionStore(time.Minute)
	current := time.Now()
	store.now = func() time.Time { return current }

	token := store.Create(7)

	current = current.Add(2 * time.Minute)
	_, err := store.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	digest, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", digest)

	assert.True(t, CheckPassword(digest, "secret1"))
	assert.False(t, CheckPassword(digest, "secret2"))
}
