package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evenlyhq/evenly/internal/models"
	"github.com/evenlyhq/evenly/internal/storage/sqlite"
)

func newTestIdentity(t *testing.T) (*PasswordIdentity, *sqlite.SQLiteStore) {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "evenly-auth-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewPasswordIdentity(store, store), store
}

func TestRegister(t *testing.T) {
	identity, store := newTestIdentity(t)
	ctx := context.Background()

	account, err := identity.Register(ctx, "alice@example.com", "Alice", "correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, account.PersonID)
	assert.NotEqual(t, "correct-horse", account.PasswordHash)

	// The account authenticates as a real ledger person with the same ID.
	person, err := store.GetPerson(ctx, account.PersonID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", person.DisplayName)

	t.Run("duplicate email rejected", func(t *testing.T) {
		_, err := identity.Register(ctx, "alice@example.com", "Alice Again", "correct-horse")
		assert.ErrorIs(t, err, ErrEmailExists)
	})

	t.Run("weak password rejected", func(t *testing.T) {
		_, err := identity.Register(ctx, "bob@example.com", "Bob", "short")
		assert.ErrorIs(t, err, ErrWeakPassword)
	})
}

func TestAuthenticate(t *testing.T) {
	identity, _ := newTestIdentity(t)
	ctx := context.Background()

	registered, err := identity.Register(ctx, "alice@example.com", "Alice", "correct-horse")
	require.NoError(t, err)

	account, err := identity.Authenticate(ctx, "alice@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, registered.PersonID, account.PersonID)

	_, err = identity.Authenticate(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = identity.Authenticate(ctx, "nobody@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestJWTRoundTrip(t *testing.T) {
	manager := NewJWTManager("test-secret-key", time.Hour)
	account := &models.Account{PersonID: "person-1", Email: "alice@example.com"}

	token, err := manager.Generate(account)
	require.NoError(t, err)

	claims, err := manager.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "person-1", claims.PersonID)
	assert.Equal(t, "alice@example.com", claims.Email)
}

func TestJWTValidation(t *testing.T) {
	manager := NewJWTManager("test-secret-key", time.Hour)
	account := &models.Account{PersonID: "person-1", Email: "alice@example.com"}

	t.Run("garbage token", func(t *testing.T) {
		_, err := manager.Validate("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := manager.Generate(account)
		require.NoError(t, err)

		other := NewJWTManager("different-secret", time.Hour)
		_, err = other.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := NewJWTManager("test-secret-key", -time.Minute)
		token, err := expired.Generate(account)
		require.NoError(t, err)

		_, err = manager.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
