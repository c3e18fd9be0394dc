package core

import "strings"

const (
	FilterAll     = "all"
	FilterIncome  = "income"
	FilterExpense = "expense"
)

type (
	// FilterCriteria is the transient, UI-local filter state. Empty fields
	// are permissive.
	FilterCriteria struct {
		Month      string // YYYY-MM, empty for no constraint
		Type       string // all | income | expense
		SearchText string
	}

	// Totals aggregates a displayed subset of transactions.
	Totals struct {
		Income  Money
		Expense Money
		Balance Money
	}
)

// ApplyFilters returns the subsequence of list matching all three criteria,
// preserving the store-provided order. Month matches by date prefix, type by
// equality unless "all", and the search text case-insensitively against
// category and description.
func ApplyFilters(list []Transaction, c FilterCriteria) []Transaction {
	q := strings.ToLower(strings.TrimSpace(c.SearchText))

	out := make([]Transaction, 0, len(list))
	for _, t := range list {
		if c.Month != "" && !strings.HasPrefix(t.Date, c.Month) {
			continue
		}
		if c.Type != "" && c.Type != FilterAll && string(t.Type) != c.Type {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(t.Category), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ComputeTotals sums income and expense amounts over list. Balance is
// income minus expense. The empty list yields all zeros. Rounding is a
// display concern, not an aggregation one.
func ComputeTotals(list []Transaction) Totals {
	var income, expense int64
	for _, t := range list {
		if t.Type == Income {
			income += t.Amount.Cents
		} else {
			expense += t.Amount.Cents
		}
	}
	return Totals{
		Income:  Money{Cents: income},
		Expense: Money{Cents: expense},
		Balance: Money{Cents: income - expense},
	}
}
