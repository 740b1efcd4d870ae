package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/evenlyhq/evenly/internal/models"
	"github.com/evenlyhq/evenly/internal/money"
	"github.com/evenlyhq/evenly/internal/storage"
)

// CreateSettlement persists a new settlement.
func (s *SQLiteStore) CreateSettlement(ctx context.Context, settlement *models.Settlement) error {
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = time.Now().Unix()
	}
	if settlement.Date.IsZero() {
		settlement.Date = time.Unix(settlement.CreatedAt, 0).UTC()
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
	settlement.Seq = seq

	var groupID interface{}
	if settlement.GroupID != "" {
		groupID = settlement.GroupID
	}
	var note interface{}
	if settlement.Note != "" {
		note = settlement.Note
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO settlements (id, from_person_id, to_person_id, amount_minor, date, is_full, group_id, note, created_at, seq)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		settlement.ID, settlement.FromPersonID, settlement.ToPersonID, settlement.Amount.MinorUnits(),
		settlement.Date.Unix(), boolToInt(settlement.IsFullSettlement), groupID, note,
		settlement.CreatedAt, settlement.Seq,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.notify(storage.MutationSettlementCreated, expenseScope(settlement.GroupID))
	return nil
}

// GetSettlement retrieves a settlement by ID.
func (s *SQLiteStore) GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	settlement := &models.Settlement{}
	var (
		amountMinor int64
		date        int64
		isFull      int
		groupID     sql.NullString
		note        sql.NullString
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT id, from_person_id, to_person_id, amount_minor, date, is_full, group_id, note, created_at, seq
		 FROM settlements WHERE id = ?`,
		settlementID,
	).Scan(&settlement.ID, &settlement.FromPersonID, &settlement.ToPersonID, &amountMinor,
		&date, &isFull, &groupID, &note, &settlement.CreatedAt, &settlement.Seq)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: settlement %s", storage.ErrNotFound, settlementID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}

	settlement.Amount = money.FromMinorUnits(amountMinor)
	settlement.Date = time.Unix(date, 0).UTC()
	settlement.IsFullSettlement = isFull != 0
	settlement.GroupID = groupID.String
	settlement.Note = note.String
	return settlement, nil
}

// DeleteSettlement removes a settlement by ID.
func (s *SQLiteStore) DeleteSettlement(ctx context.Context, settlementID string) error {
	var groupID sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT group_id FROM settlements WHERE id = ?", settlementID).Scan(&groupID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: settlement %s", storage.ErrNotFound, settlementID)
	}
	if err != nil {
		return fmt.Errorf("failed to check settlement existence: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM settlements WHERE id = ?", settlementID); err != nil {
		return fmt.Errorf("failed to delete settlement: %w", err)
	}

	s.notify(storage.MutationSettlementDeleted, expenseScope(groupID.String))
	return nil
}

// CreateReminder persists a new reminder.
func (s *SQLiteStore) CreateReminder(ctx context.Context, reminder *models.Reminder) error {
	if reminder.ID == "" {
		reminder.ID = uuid.New().String()
	}
	if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = time.Now().UTC()
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
	reminder.Seq = seq

	var groupID interface{}
	if reminder.GroupID != "" {
		groupID = reminder.GroupID
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reminders (id, from_person_id, to_person_id, amount_minor, group_id, created_at, is_read, seq)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		reminder.ID, reminder.FromPersonID, reminder.ToPersonID, reminder.Amount.MinorUnits(), groupID,
		reminder.CreatedAt.Unix(), boolToInt(reminder.IsRead), reminder.Seq,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reminder: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.notify(storage.MutationReminderCreated, expenseScope(reminder.GroupID))
	return nil
}

// MarkReminderRead flags a reminder as read.
func (s *SQLiteStore) MarkReminderRead(ctx context.Context, reminderID string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE reminders SET is_read = 1 WHERE id = ?", reminderID)
	if err != nil {
		return fmt.Errorf("failed to mark reminder read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check reminder update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: reminder %s", storage.ErrNotFound, reminderID)
	}

	s.notify(storage.MutationReminderRead, models.AllScope())
	return nil
}

// CreateMessage persists a new chat message.
func (s *SQLiteStore) CreateMessage(ctx context.Context, message *models.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.SentAt.IsZero() {
		message.SentAt = time.Now().UTC()
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
	message.Seq = seq

	var personThread interface{}
	if message.PersonThreadID != "" {
		personThread = message.PersonThreadID
	}
	var groupThread interface{}
	if message.GroupThreadID != "" {
		groupThread = message.GroupThreadID
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, person_thread_id, group_thread_id, author_id, content, sent_at, seq)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		message.ID, personThread, groupThread, message.AuthorID, message.Content,
		message.SentAt.Unix(), message.Seq,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.notify(storage.MutationMessageCreated, expenseScope(message.GroupThreadID))
	return nil
}
