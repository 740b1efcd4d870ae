// Package sqlite provides a SQLite-backed implementation of the
// storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/evenlyhq/evenly/internal/models"
	"github.com/evenlyhq/evenly/internal/storage"
)

// Ensure SQLiteStore implements the storage interfaces.
var (
	_ storage.Store        = (*SQLiteStore)(nil)
	_ storage.AccountStore = (*SQLiteStore)(nil)
)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB

	mu   sync.Mutex
	subs []func(storage.Commit)
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// The store is the single logical writer; one connection serializes all
	// commits so snapshots never observe a half-written expense.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Subscribe registers a commit notification callback.
func (s *SQLiteStore) Subscribe(fn func(storage.Commit)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// notify fires after a successful commit. A failed commit changes nothing
// and therefore notifies nobody.
func (s *SQLiteStore) notify(kind storage.MutationKind, scope models.Scope) {
	s.mu.Lock()
	subs := make([]func(storage.Commit), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(storage.Commit{Kind: kind, Scope: scope})
	}
}

// nextSeq increments and returns the global creation sequence counter inside
// the given transaction.
func nextSeq(ctx context.Context, tx *sql.Tx) (int64, error) {
	if _, err := tx.ExecContext(ctx, "UPDATE seq_counter SET value = value + 1 WHERE id = 1"); err != nil {
		return 0, fmt.Errorf("failed to advance sequence: %w", err)
	}
	var seq int64
	if err := tx.QueryRowContext(ctx, "SELECT value FROM seq_counter WHERE id = 1").Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to read sequence: %w", err)
	}
	return seq, nil
}

// CreatePerson persists a new person.
func (s *SQLiteStore) CreatePerson(ctx context.Context, person *models.Person) error {
	if person.ID == "" {
		person.ID = uuid.New().String()
	}
	if person.CreatedAt == 0 {
		person.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx)
	if err != nil {
		return err
	}
	person.Seq = seq

	_, err = tx.ExecContext(ctx,
		"INSERT INTO persons (id, display_name, color_tag, archived, created_at, seq) VALUES (?, ?, ?, ?, ?, ?)",
		person.ID, person.DisplayName, person.ColorTag, boolToInt(person.Archived), person.CreatedAt, person.Seq,
	)
	if err != nil {
		return fmt.Errorf("failed to insert person: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.notify(storage.MutationPersonCreated, models.AllScope())
	return nil
}

// ArchivePerson marks a person archived. Historical ledger entries keep
// referencing them.
func (s *SQLiteStore) ArchivePerson(ctx context.Context, personID string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE persons SET archived = 1 WHERE id = ?", personID)
	if err != nil {
		return fmt.Errorf("failed to archive person: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check archive result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: person %s", storage.ErrNotFound, personID)
	}

	s.notify(storage.MutationPersonArchived, models.PersonScope(personID))
	return nil
}

// GetPerson retrieves a person by ID.
func (s *SQLiteStore) GetPerson(ctx context.Context, personID string) (*models.Person, error) {
	p := &models.Person{}
	var archived int
	err := s.db.QueryRowContext(ctx,
		"SELECT id, display_name, color_tag, archived, created_at, seq FROM persons WHERE id = ?",
		personID,
	).Scan(&p.ID, &p.DisplayName, &p.ColorTag, &archived, &p.CreatedAt, &p.Seq)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: person %s", storage.ErrNotFound, personID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	p.Archived = archived != 0
	return p, nil
}

// CreateGroup persists a new group with its initial members.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx)
	if err != nil {
		return err
	}
	group.Seq = seq

	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups (id, name, color_tag, created_at, seq) VALUES (?, ?, ?, ?, ?)",
		group.ID, group.Name, group.ColorTag, group.CreatedAt, group.Seq,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	for _, memberID := range group.MemberIDs {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO group_members (group_id, person_id) VALUES (?, ?)",
			group.ID, memberID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.notify(storage.MutationGroupCreated, models.GroupScope(group.ID))
	return nil
}

// AddGroupMembers adds persons to an existing group, skipping duplicates.
func (s *SQLiteStore) AddGroupMembers(ctx context.Context, groupID string, memberIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, memberID := range memberIDs {
		_, err = tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO group_members (group_id, person_id) VALUES (?, ?)",
			groupID, memberID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.notify(storage.MutationGroupMembersAdded, models.GroupScope(groupID))
	return nil
}

// GetGroup retrieves a group and its member list.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	g := &models.Group{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, color_tag, created_at, seq FROM groups WHERE id = ?",
		groupID,
	).Scan(&g.ID, &g.Name, &g.ColorTag, &g.CreatedAt, &g.Seq)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: group %s", storage.ErrNotFound, groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT person_id FROM group_members WHERE group_id = ? ORDER BY person_id",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var memberID string
		if err := rows.Scan(&memberID); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		g.MemberIDs = append(g.MemberIDs, memberID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}

	return g, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
