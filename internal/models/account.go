package models

// Account is the login identity bound to a Person. Registering creates the
// person and the account together; the account's person is the "viewer"
// passed to every balance and feed query.
type Account struct {
	// PersonID is the person this account authenticates as.
	PersonID string

	// Email is the login email (unique).
	Email string

	// PasswordHash is the bcrypt hash of the account password.
	PasswordHash string

	CreatedAt int64
	UpdatedAt int64
}
