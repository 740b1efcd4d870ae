package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/evenlyhq/evenly/internal/models"
	"github.com/evenlyhq/evenly/internal/money"
)

// Snapshot loads a read-consistent view of the entity graph. The whole graph
// is returned regardless of scope: pairwise balances need every expense
// touching a pair, including grouped ones, so a narrower load would produce
// silently wrong answers. Row order follows creation sequence so repeated
// snapshots of an unchanged database are identical.
func (s *SQLiteStore) Snapshot(ctx context.Context, scope models.Scope) (*models.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	snap := &models.Snapshot{
		Persons: make(map[string]models.Person),
		Groups:  make(map[string]models.Group),
	}

	if err := s.loadPersons(ctx, tx, snap); err != nil {
		return nil, err
	}
	if err := s.loadGroups(ctx, tx, snap); err != nil {
		return nil, err
	}
	if err := s.loadExpenses(ctx, tx, snap); err != nil {
		return nil, err
	}
	if err := s.loadSettlements(ctx, tx, snap); err != nil {
		return nil, err
	}
	if err := s.loadReminders(ctx, tx, snap); err != nil {
		return nil, err
	}
	if err := s.loadMessages(ctx, tx, snap); err != nil {
		return nil, err
	}

	return snap, nil
}

func (s *SQLiteStore) loadPersons(ctx context.Context, tx *sql.Tx, snap *models.Snapshot) error {
	rows, err := tx.QueryContext(ctx,
		"SELECT id, display_name, color_tag, archived, created_at, seq FROM persons ORDER BY seq")
	if err != nil {
		return fmt.Errorf("failed to load persons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Person
		var archived int
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.ColorTag, &archived, &p.CreatedAt, &p.Seq); err != nil {
			return fmt.Errorf("failed to scan person: %w", err)
		}
		p.Archived = archived != 0
		snap.Persons[p.ID] = p
	}
	return rows.Err()
}

func (s *SQLiteStore) loadGroups(ctx context.Context, tx *sql.Tx, snap *models.Snapshot) error {
	rows, err := tx.QueryContext(ctx,
		"SELECT id, name, color_tag, created_at, seq FROM groups ORDER BY seq")
	if err != nil {
		return fmt.Errorf("failed to load groups: %w", err)
	}
	defer rows.Close()

	var order []string
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.ColorTag, &g.CreatedAt, &g.Seq); err != nil {
			return fmt.Errorf("failed to scan group: %w", err)
		}
		snap.Groups[g.ID] = g
		order = append(order, g.ID)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	memberRows, err := tx.QueryContext(ctx,
		"SELECT group_id, person_id FROM group_members ORDER BY group_id, person_id")
	if err != nil {
		return fmt.Errorf("failed to load group members: %w", err)
	}
	defer memberRows.Close()

	for memberRows.Next() {
		var groupID, personID string
		if err := memberRows.Scan(&groupID, &personID); err != nil {
			return fmt.Errorf("failed to scan group member: %w", err)
		}
		g := snap.Groups[groupID]
		g.MemberIDs = append(g.MemberIDs, personID)
		snap.Groups[groupID] = g
	}
	return memberRows.Err()
}

func (s *SQLiteStore) loadExpenses(ctx context.Context, tx *sql.Tx, snap *models.Snapshot) error {
	splitsByExpense := make(map[string][]splitRow)

	splitRows, err := tx.QueryContext(ctx,
		"SELECT expense_id, owed_by, amount_minor, raw_amount, percent FROM splits ORDER BY expense_id, owed_by")
	if err != nil {
		return fmt.Errorf("failed to load splits: %w", err)
	}
	defer splitRows.Close()

	for splitRows.Next() {
		var row splitRow
		var amountMinor int64
		var raw string
		if err := splitRows.Scan(&row.split.ExpenseID, &row.split.OwedBy, &amountMinor, &raw, &row.percent); err != nil {
			return fmt.Errorf("failed to scan split: %w", err)
		}
		row.split.Amount = money.FromMinorUnits(amountMinor)
		row.split.RawAmount, err = decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("failed to parse raw split amount %q: %w", raw, err)
		}
		splitsByExpense[row.split.ExpenseID] = append(splitsByExpense[row.split.ExpenseID], row)
	}
	if err := splitRows.Err(); err != nil {
		return err
	}

	payerRows, err := tx.QueryContext(ctx,
		"SELECT expense_id, person_id, amount_minor FROM payer_shares ORDER BY expense_id, person_id")
	if err != nil {
		return fmt.Errorf("failed to load payer shares: %w", err)
	}
	defer payerRows.Close()

	for payerRows.Next() {
		var ps models.PayerShare
		var amountMinor int64
		if err := payerRows.Scan(&ps.ExpenseID, &ps.PersonID, &amountMinor); err != nil {
			return fmt.Errorf("failed to scan payer share: %w", err)
		}
		ps.AmountPaid = money.FromMinorUnits(amountMinor)
		snap.PayerShares = append(snap.PayerShares, ps)
	}
	if err := payerRows.Err(); err != nil {
		return err
	}

	expenseRows, err := tx.QueryContext(ctx,
		"SELECT id, title, amount_minor, date, method_kind, group_id, created_at, seq FROM expenses ORDER BY seq")
	if err != nil {
		return fmt.Errorf("failed to load expenses: %w", err)
	}
	defer expenseRows.Close()

	for expenseRows.Next() {
		var e models.Expense
		var amountMinor, date int64
		var methodKind string
		var groupID sql.NullString
		if err := expenseRows.Scan(&e.ID, &e.Title, &amountMinor, &date, &methodKind, &groupID, &e.CreatedAt, &e.Seq); err != nil {
			return fmt.Errorf("failed to scan expense: %w", err)
		}
		e.Amount = money.FromMinorUnits(amountMinor)
		e.Date = time.Unix(date, 0).UTC()
		e.GroupID = groupID.String

		rowsForExpense := splitsByExpense[e.ID]
		e.Method, err = rebuildMethod(methodKind, rowsForExpense)
		if err != nil {
			return fmt.Errorf("expense %s: %w", e.ID, err)
		}
		for _, row := range rowsForExpense {
			snap.Splits = append(snap.Splits, row.split)
		}
		snap.Expenses = append(snap.Expenses, e)
	}
	return expenseRows.Err()
}

// splitRow pairs a split with its optional persisted percentage weight.
type splitRow struct {
	split   models.Split
	percent sql.NullString
}

// rebuildMethod reconstructs the split method from its persisted kind and the
// expense's split rows.
func rebuildMethod(kind string, rows []splitRow) (models.SplitMethod, error) {
	switch kind {
	case models.EqualSplit{}.Kind():
		m := models.EqualSplit{}
		for _, row := range rows {
			m.ParticipantIDs = append(m.ParticipantIDs, row.split.OwedBy)
		}
		return m, nil
	case models.PercentageSplit{}.Kind():
		m := models.PercentageSplit{}
		for _, row := range rows {
			if !row.percent.Valid {
				return nil, fmt.Errorf("percentage split missing weight for %s", row.split.OwedBy)
			}
			pct, err := decimal.NewFromString(row.percent.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse percentage %q: %w", row.percent.String, err)
			}
			m.Weights = append(m.Weights, models.PercentageWeight{PersonID: row.split.OwedBy, Percent: pct})
		}
		return m, nil
	case models.ExactSplit{}.Kind():
		m := models.ExactSplit{}
		for _, row := range rows {
			m.Amounts = append(m.Amounts, models.ExactAmount{PersonID: row.split.OwedBy, Amount: row.split.Amount})
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown split method kind %q", kind)
	}
}

func (s *SQLiteStore) loadSettlements(ctx context.Context, tx *sql.Tx, snap *models.Snapshot) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, from_person_id, to_person_id, amount_minor, date, is_full, group_id, note, created_at, seq
		 FROM settlements ORDER BY seq`)
	if err != nil {
		return fmt.Errorf("failed to load settlements: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var st models.Settlement
		var amountMinor, date int64
		var isFull int
		var groupID, note sql.NullString
		if err := rows.Scan(&st.ID, &st.FromPersonID, &st.ToPersonID, &amountMinor, &date,
			&isFull, &groupID, &note, &st.CreatedAt, &st.Seq); err != nil {
			return fmt.Errorf("failed to scan settlement: %w", err)
		}
		st.Amount = money.FromMinorUnits(amountMinor)
		st.Date = time.Unix(date, 0).UTC()
		st.IsFullSettlement = isFull != 0
		st.GroupID = groupID.String
		st.Note = note.String
		snap.Settlements = append(snap.Settlements, st)
	}
	return rows.Err()
}

func (s *SQLiteStore) loadReminders(ctx context.Context, tx *sql.Tx, snap *models.Snapshot) error {
	rows, err := tx.QueryContext(ctx,
		"SELECT id, from_person_id, to_person_id, amount_minor, group_id, created_at, is_read, seq FROM reminders ORDER BY seq")
	if err != nil {
		return fmt.Errorf("failed to load reminders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.Reminder
		var amountMinor, createdAt int64
		var isRead int
		var groupID sql.NullString
		if err := rows.Scan(&r.ID, &r.FromPersonID, &r.ToPersonID, &amountMinor, &groupID, &createdAt, &isRead, &r.Seq); err != nil {
			return fmt.Errorf("failed to scan reminder: %w", err)
		}
		r.Amount = money.FromMinorUnits(amountMinor)
		r.GroupID = groupID.String
		r.CreatedAt = time.Unix(createdAt, 0).UTC()
		r.IsRead = isRead != 0
		snap.Reminders = append(snap.Reminders, r)
	}
	return rows.Err()
}

func (s *SQLiteStore) loadMessages(ctx context.Context, tx *sql.Tx, snap *models.Snapshot) error {
	rows, err := tx.QueryContext(ctx,
		"SELECT id, person_thread_id, group_thread_id, author_id, content, sent_at, seq FROM messages ORDER BY seq")
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Message
		var sentAt int64
		var personThread, groupThread sql.NullString
		if err := rows.Scan(&m.ID, &personThread, &groupThread, &m.AuthorID, &m.Content, &sentAt, &m.Seq); err != nil {
			return fmt.Errorf("failed to scan message: %w", err)
		}
		m.PersonThreadID = personThread.String
		m.GroupThreadID = groupThread.String
		m.SentAt = time.Unix(sentAt, 0).UTC()
		snap.Messages = append(snap.Messages, m)
	}
	return rows.Err()
}
