// Package auth is the identity provider: it registers accounts, verifies
// credentials and issues the session tokens that carry the viewer identity
// into every engine query.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/evenlyhq/evenly/internal/models"
	"github.com/evenlyhq/evenly/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailExists        = errors.New("email already registered")
)

// IdentityProvider defines the interface for authentication implementations.
// This abstraction allows swapping auth methods (password, passkeys, OAuth)
// without changing the handlers.
type IdentityProvider interface {
	// Register creates a person and the account authenticating as them.
	Register(ctx context.Context, email, displayName, credential string) (*models.Account, error)

	// Authenticate verifies credentials and returns the matching account.
	Authenticate(ctx context.Context, email, credential string) (*models.Account, error)

	// ValidateCredential checks that a credential meets the provider's
	// requirements before any hashing work is done.
	ValidateCredential(credential string) error
}

// PasswordIdentity implements password-based authentication using bcrypt.
// Registering creates a Person in the ledger and an Account bound to it
// sharing the same ID.
type PasswordIdentity struct {
	accounts storage.AccountStore
	persons  storage.Store
}

// NewPasswordIdentity creates a password-based identity provider.
func NewPasswordIdentity(accounts storage.AccountStore, persons storage.Store) *PasswordIdentity {
	return &PasswordIdentity{accounts: accounts, persons: persons}
}

// ValidateCredential checks if the password meets minimum requirements.
func (p *PasswordIdentity) ValidateCredential(credential string) error {
	if len(credential) < 8 {
		return ErrWeakPassword
	}
	return nil
}

// Register creates a new person and account with a hashed password.
func (p *PasswordIdentity) Register(ctx context.Context, email, displayName, credential string) (*models.Account, error) {
	if err := p.ValidateCredential(credential); err != nil {
		return nil, err
	}

	existing, err := p.accounts.GetAccountByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, ErrEmailExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	person := &models.Person{DisplayName: displayName}
	if err := p.persons.CreatePerson(ctx, person); err != nil {
		return nil, fmt.Errorf("failed to create person: %w", err)
	}

	now := time.Now().Unix()
	account := &models.Account{
		PersonID:     person.ID,
		Email:        email,
		PasswordHash: string(hashed),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.accounts.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return account, nil
}

// Authenticate verifies the email and password, returning the account if
// valid.
func (p *PasswordIdentity) Authenticate(ctx context.Context, email, credential string) (*models.Account, error) {
	account, err := p.accounts.GetAccountByEmail(ctx, email)
	if err != nil || account == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(credential)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return account, nil
}
