package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/evenlyhq/evenly/internal/models"
	"github.com/evenlyhq/evenly/internal/storage"
)

// CreateExpense persists an expense with its splits and payer shares as one
// atomic unit. Either every row is committed or none is.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense, splits []models.Split, payers []models.PayerShare) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	if expense.Date.IsZero() {
		expense.Date = time.Unix(expense.CreatedAt, 0).UTC()
	}

	// Percentage weights ride along on the split rows, so the method can be
	// reconstructed without a serialized blob.
	percents := make(map[string]decimal.Decimal)
	if pct, ok := expense.Method.(models.PercentageSplit); ok {
		for _, w := range pct.Weights {
			percents[w.PersonID] = w.Percent
		}
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
	expense.Seq = seq

	var groupID interface{}
	if expense.GroupID != "" {
		groupID = expense.GroupID
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, title, amount_minor, date, method_kind, group_id, created_at, seq)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.Title, expense.Amount.MinorUnits(), expense.Date.Unix(),
		expense.Method.Kind(), groupID, expense.CreatedAt, expense.Seq,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i := range splits {
		splits[i].ExpenseID = expense.ID
		var percent interface{}
		if p, ok := percents[splits[i].OwedBy]; ok {
			percent = p.String()
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO splits (expense_id, owed_by, amount_minor, raw_amount, percent) VALUES (?, ?, ?, ?, ?)",
			expense.ID, splits[i].OwedBy, splits[i].Amount.MinorUnits(), splits[i].RawAmount.String(), percent,
		)
		if err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
	}

	for i := range payers {
		payers[i].ExpenseID = expense.ID
		_, err = tx.ExecContext(ctx,
			"INSERT INTO payer_shares (expense_id, person_id, amount_minor) VALUES (?, ?, ?)",
			expense.ID, payers[i].PersonID, payers[i].AmountPaid.MinorUnits(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert payer share: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.notify(storage.MutationExpenseCreated, expenseScope(expense.GroupID))
	return nil
}

// DeleteExpense removes an expense; splits and payer shares cascade away
// with it.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, expenseID string) error {
	var groupID sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT group_id FROM expenses WHERE id = ?", expenseID).Scan(&groupID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: expense %s", storage.ErrNotFound, expenseID)
	}
	if err != nil {
		return fmt.Errorf("failed to check expense existence: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", expenseID); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}

	s.notify(storage.MutationExpenseDeleted, expenseScope(groupID.String))
	return nil
}

func expenseScope(groupID string) models.Scope {
	if groupID != "" {
		return models.GroupScope(groupID)
	}
	return models.AllScope()
}
