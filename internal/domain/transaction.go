package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeIngreso TransactionType = "ingreso"
	TransactionTypeGasto   TransactionType = "gasto"
	TransactionTypeAhorro  TransactionType = "ahorro"
)

// DateLayout is the calendar-date format used everywhere a transaction date
// is stored or exchanged. No time component.
const DateLayout = "2006-01-02"

// Transaction is a single ledger entry. The ID is assigned by the remote
// store on creation and is never reused; the sign of the amount is implied
// by Type, not stored.
type Transaction struct {
	ID          string          `json:"id"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
	CardID      *int            `json:"cardId,omitempty"`
	Description string          `json:"description,omitempty"`
}

// TransactionDraft is a transaction before the remote store has assigned it
// an identifier. Its JSON shape is exactly the record payload.
type TransactionDraft struct {
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
	CardID      *int            `json:"cardId,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Validate checks the draft's type, amount and date.
func (d TransactionDraft) Validate() error {
	switch d.Type {
	case TransactionTypeIngreso, TransactionTypeGasto, TransactionTypeAhorro:
	default:
		return ErrInvalidType
	}
	if d.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if _, err := time.Parse(DateLayout, d.Date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// WithID promotes a draft to a full transaction once the store has assigned
// an identifier.
func (d TransactionDraft) WithID(id string) Transaction {
	return Transaction{
		ID:          id,
		Type:        d.Type,
		Amount:      d.Amount,
		Category:    d.Category,
		Date:        d.Date,
		CardID:      d.CardID,
		Description: d.Description,
	}
}

// TransactionPatch carries the only fields an edit may change. Type,
// category and card are immutable after creation.
type TransactionPatch struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
}

// Validate checks the patch's amount and date.
func (p TransactionPatch) Validate() error {
	if p.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if _, err := time.Parse(DateLayout, p.Date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// Apply returns a copy of t with the patch's fields replaced.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	t.Description = p.Description
	t.Amount = p.Amount
	t.Date = p.Date
	return t
}
