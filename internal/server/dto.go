package server

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/evenlyhq/evenly/internal/calculator"
	"github.com/evenlyhq/evenly/internal/feed"
	"github.com/evenlyhq/evenly/internal/models"
	"github.com/evenlyhq/evenly/internal/money"
)

// Wire types for the JSON API. Domain records stay tag-free; every response
// goes through one of these.

type personResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	ColorTag    string `json:"color_tag,omitempty"`
	Archived    bool   `json:"archived"`
	CreatedAt   int64  `json:"created_at"`
}

func toPersonResponse(p *models.Person) personResponse {
	return personResponse{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		ColorTag:    p.ColorTag,
		Archived:    p.Archived,
		CreatedAt:   p.CreatedAt,
	}
}

type groupResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	ColorTag  string   `json:"color_tag,omitempty"`
	MemberIDs []string `json:"member_ids"`
	CreatedAt int64    `json:"created_at"`
}

func toGroupResponse(g *models.Group) groupResponse {
	return groupResponse{
		ID:        g.ID,
		Name:      g.Name,
		ColorTag:  g.ColorTag,
		MemberIDs: g.MemberIDs,
		CreatedAt: g.CreatedAt,
	}
}

type payerShareBody struct {
	PersonID string      `json:"person_id" binding:"required"`
	Amount   money.Money `json:"amount"`
}

// splitMethodBody is the wire form of a split method. Kind selects which of
// the optional fields apply.
type splitMethodBody struct {
	Kind           string   `json:"kind" binding:"required"`
	ParticipantIDs []string `json:"participant_ids,omitempty"`
	Weights        []struct {
		PersonID string `json:"person_id"`
		Percent  string `json:"percent"`
	} `json:"weights,omitempty"`
	Amounts []struct {
		PersonID string      `json:"person_id"`
		Amount   money.Money `json:"amount"`
	} `json:"amounts,omitempty"`
}

func (b splitMethodBody) toMethod() (models.SplitMethod, error) {
	switch b.Kind {
	case "equal":
		return models.EqualSplit{ParticipantIDs: b.ParticipantIDs}, nil
	case "percentage":
		weights := make([]models.PercentageWeight, len(b.Weights))
		for i, w := range b.Weights {
			pct, err := decimal.NewFromString(w.Percent)
			if err != nil {
				return nil, fmt.Errorf("invalid percent %q for %s", w.Percent, w.PersonID)
			}
			weights[i] = models.PercentageWeight{PersonID: w.PersonID, Percent: pct}
		}
		return models.PercentageSplit{Weights: weights}, nil
	case "exact":
		amounts := make([]models.ExactAmount, len(b.Amounts))
		for i, a := range b.Amounts {
			amounts[i] = models.ExactAmount{PersonID: a.PersonID, Amount: a.Amount}
		}
		return models.ExactSplit{Amounts: amounts}, nil
	default:
		return nil, fmt.Errorf("unknown split method kind %q", b.Kind)
	}
}

type expenseResponse struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Amount    money.Money `json:"amount"`
	Date      time.Time   `json:"date"`
	Method    string      `json:"method"`
	GroupID   string      `json:"group_id,omitempty"`
	CreatedAt int64       `json:"created_at"`
}

func toExpenseResponse(e *models.Expense) expenseResponse {
	return expenseResponse{
		ID:        e.ID,
		Title:     e.Title,
		Amount:    e.Amount,
		Date:      e.Date,
		Method:    e.Method.Kind(),
		GroupID:   e.GroupID,
		CreatedAt: e.CreatedAt,
	}
}

type settlementResponse struct {
	ID               string      `json:"id"`
	FromPersonID     string      `json:"from_person_id"`
	ToPersonID       string      `json:"to_person_id"`
	Amount           money.Money `json:"amount"`
	Date             time.Time   `json:"date"`
	IsFullSettlement bool        `json:"is_full_settlement"`
	GroupID          string      `json:"group_id,omitempty"`
	Note             string      `json:"note,omitempty"`
}

func toSettlementResponse(s *models.Settlement) settlementResponse {
	return settlementResponse{
		ID:               s.ID,
		FromPersonID:     s.FromPersonID,
		ToPersonID:       s.ToPersonID,
		Amount:           s.Amount,
		Date:             s.Date,
		IsFullSettlement: s.IsFullSettlement,
		GroupID:          s.GroupID,
		Note:             s.Note,
	}
}

type reminderResponse struct {
	ID           string      `json:"id"`
	FromPersonID string      `json:"from_person_id"`
	ToPersonID   string      `json:"to_person_id"`
	Amount       money.Money `json:"amount"`
	GroupID      string      `json:"group_id,omitempty"`
	IsRead       bool        `json:"is_read"`
	CreatedAt    time.Time   `json:"created_at"`
}

func toReminderResponse(r *models.Reminder) reminderResponse {
	return reminderResponse{
		ID:           r.ID,
		FromPersonID: r.FromPersonID,
		ToPersonID:   r.ToPersonID,
		Amount:       r.Amount,
		GroupID:      r.GroupID,
		IsRead:       r.IsRead,
		CreatedAt:    r.CreatedAt,
	}
}

type messageResponse struct {
	ID             string    `json:"id"`
	PersonThreadID string    `json:"person_thread_id,omitempty"`
	GroupThreadID  string    `json:"group_thread_id,omitempty"`
	AuthorID       string    `json:"author_id"`
	Content        string    `json:"content"`
	SentAt         time.Time `json:"sent_at"`
}

func toMessageResponse(m *models.Message) messageResponse {
	return messageResponse{
		ID:             m.ID,
		PersonThreadID: m.PersonThreadID,
		GroupThreadID:  m.GroupThreadID,
		AuthorID:       m.AuthorID,
		Content:        m.Content,
		SentAt:         m.SentAt,
	}
}

type memberBalanceResponse struct {
	PersonID    string      `json:"person_id"`
	DisplayName string      `json:"display_name"`
	Balance     money.Money `json:"balance"`
}

func toMemberBalanceResponses(balances []calculator.MemberBalance) []memberBalanceResponse {
	out := make([]memberBalanceResponse, len(balances))
	for i, b := range balances {
		out[i] = memberBalanceResponse{
			PersonID:    b.PersonID,
			DisplayName: b.DisplayName,
			Balance:     b.Balance,
		}
	}
	return out
}

type feedItemResponse struct {
	Kind       string              `json:"kind"`
	Timestamp  time.Time           `json:"timestamp"`
	Expense    *expenseResponse    `json:"expense,omitempty"`
	Settlement *settlementResponse `json:"settlement,omitempty"`
	Reminder   *reminderResponse   `json:"reminder,omitempty"`
	Message    *messageResponse    `json:"message,omitempty"`
}

type dayGroupResponse struct {
	Day   time.Time          `json:"day"`
	Items []feedItemResponse `json:"items"`
}

func toFeedResponse(groups []feed.DayGroup) []dayGroupResponse {
	out := make([]dayGroupResponse, len(groups))
	for i, g := range groups {
		items := make([]feedItemResponse, len(g.Items))
		for j, item := range g.Items {
			resp := feedItemResponse{Timestamp: item.Timestamp}
			switch item.Kind {
			case feed.KindExpense:
				resp.Kind = "expense"
				e := toExpenseResponse(item.Expense)
				resp.Expense = &e
			case feed.KindSettlement:
				resp.Kind = "settlement"
				s := toSettlementResponse(item.Settlement)
				resp.Settlement = &s
			case feed.KindReminder:
				resp.Kind = "reminder"
				r := toReminderResponse(item.Reminder)
				resp.Reminder = &r
			case feed.KindMessage:
				resp.Kind = "message"
				m := toMessageResponse(item.Message)
				resp.Message = &m
			}
			items[j] = resp
		}
		out[i] = dayGroupResponse{Day: g.Day, Items: items}
	}
	return out
}
