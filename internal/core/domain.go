package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	KindIncome  CategoryKind = "income"
	KindExpense CategoryKind = "expense"
	KindBoth    CategoryKind = "both"
)

// DefaultCategory is assigned to imported records with no category.
const DefaultCategory = "General"

// DateLayout is the wire and display form of transaction dates.
const DateLayout = "2006-01-02"

type (
	TransactionType string

	CategoryKind string

	// Transaction is one income or expense entry. The application only ever
	// holds a read-only projection; the owning store assigns ID and CreatedAt.
	Transaction struct {
		ID          string          `json:"id"`
		Date        string          `json:"date"` // YYYY-MM-DD
		Type        TransactionType `json:"type"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Amount      Money           `json:"amount"`
		UserID      string          `json:"-"`
		CreatedAt   time.Time       `json:"-"`
	}

	// Category is a named tag scoped to income, expense, or both.
	Category struct {
		ID        string       `json:"id"`
		Name      string       `json:"name"`
		Kind      CategoryKind `json:"kind"`
		UserID    string       `json:"-"`
		CreatedAt time.Time    `json:"-"`
	}
)

var (
	ErrEmptyDate         = errors.New("date is required")
	ErrInvalidDate       = errors.New("invalid date, expected YYYY-MM-DD")
	ErrEmptyCategory     = errors.New("category is required")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrDuplicateCategory = errors.New("a category with this name already exists")
	ErrInvalidKind       = errors.New("invalid category kind")
)

// NormalizeType maps anything that is not exactly "income" to Expense.
func NormalizeType(raw string) TransactionType {
	if strings.TrimSpace(raw) == string(Income) {
		return Income
	}
	return Expense
}

// NormalizeKind maps anything that is not a known kind to KindBoth.
func NormalizeKind(raw string) CategoryKind {
	switch CategoryKind(strings.TrimSpace(raw)) {
	case KindIncome:
		return KindIncome
	case KindExpense:
		return KindExpense
	default:
		return KindBoth
	}
}

// NormalizeCategory trims the label and falls back to DefaultCategory when empty.
func NormalizeCategory(raw string) string {
	c := strings.TrimSpace(raw)
	if c == "" {
		return DefaultCategory
	}
	return c
}

// NormalizeDate trims the date and falls back to now's calendar date when empty.
func NormalizeDate(raw string, now time.Time) string {
	d := strings.TrimSpace(raw)
	if d == "" {
		return now.Format(DateLayout)
	}
	return d
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (k CategoryKind) Valid() bool {
	return k == KindIncome || k == KindExpense || k == KindBoth
}

// Matches reports whether a category of this kind applies to transactions of
// type t.
func (k CategoryKind) Matches(t TransactionType) bool {
	return k == KindBoth || string(k) == string(t)
}

// Validate enforces the entry-form rules: date present and well formed,
// category non-empty after trim, amount strictly positive. Type never fails
// validation because it is normalized beforehand.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Date) == "" {
		return ErrEmptyDate
	}
	if _, err := time.Parse(DateLayout, t.Date); err != nil {
		return ErrInvalidDate
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateRecord enforces the store-level invariants, which are looser than
// the entry form: historical and imported records may carry a zero amount,
// but never a negative one.
func (t Transaction) ValidateRecord() error {
	if strings.TrimSpace(t.Date) == "" {
		return ErrEmptyDate
	}
	if _, err := time.Parse(DateLayout, t.Date); err != nil {
		return ErrInvalidDate
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCategory
	}
	if !c.Kind.Valid() {
		return ErrInvalidKind
	}
	return nil
}
