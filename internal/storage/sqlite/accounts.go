package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/evenlyhq/evenly/internal/models"
)

// CreateAccount inserts a new login account bound to an existing person.
func (s *SQLiteStore) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (person_id, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		account.PersonID,
		account.Email,
		account.PasswordHash,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetAccountByEmail retrieves an account by its login email.
// Returns nil without error when no account matches.
func (s *SQLiteStore) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `
		SELECT person_id, email, password_hash, created_at, updated_at
		FROM accounts
		WHERE email = ?
	`

	account := &models.Account{}
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&account.PersonID,
		&account.Email,
		&account.PasswordHash,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}

	return account, nil
}

// GetAccountByPersonID retrieves the account authenticating a person.
// Returns nil without error when no account matches.
func (s *SQLiteStore) GetAccountByPersonID(ctx context.Context, personID string) (*models.Account, error) {
	query := `
		SELECT person_id, email, password_hash, created_at, updated_at
		FROM accounts
		WHERE person_id = ?
	`

	account := &models.Account{}
	err := s.db.QueryRowContext(ctx, query, personID).Scan(
		&account.PersonID,
		&account.Email,
		&account.PasswordHash,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by person ID: %w", err)
	}

	return account, nil
}
