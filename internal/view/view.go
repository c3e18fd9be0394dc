// Package view projects session state onto what the UI shows: table rows,
// formatted totals, and the category options for the entry form. Projection
// is pure; rendering transports (HTML, JSON, SSE) live in the http package.
package view

import (
	"fintrack/internal/core"
	"fintrack/internal/session"
)

type (
	Row struct {
		ID          string `json:"id"`
		Date        string `json:"date"`
		Type        string `json:"type"`
		Category    string `json:"category"`
		Description string `json:"description"`
		Amount      string `json:"amount"`
	}

	Totals struct {
		Income  string `json:"income"`
		Expense string `json:"expense"`
		Balance string `json:"balance"`
	}

	// Option is one entry of the category choice control. OutOfBand marks a
	// current value that is no longer in the scoped live list (its kind was
	// changed or it was deleted); it is shown but not part of the taxonomy.
	Option struct {
		ID        string `json:"id,omitempty"`
		Name      string `json:"name"`
		Kind      string `json:"kind,omitempty"`
		OutOfBand bool   `json:"outOfBand,omitempty"`
	}

	Model struct {
		Rows      []Row  `json:"rows"`
		Totals    Totals `json:"totals"`
		Empty     bool   `json:"empty"`
		FeedError string `json:"feedError,omitempty"`
	}
)

// Project computes the visible rows and totals for the given state.
func Project(st session.State) Model {
	filtered := core.ApplyFilters(st.Transactions, st.Criteria)
	totals := core.ComputeTotals(filtered)

	rows := make([]Row, 0, len(filtered))
	for _, t := range filtered {
		rows = append(rows, Row{
			ID:          t.ID,
			Date:        t.Date,
			Type:        string(t.Type),
			Category:    t.Category,
			Description: t.Description,
			Amount:      t.Amount.String(),
		})
	}

	m := Model{
		Rows: rows,
		Totals: Totals{
			Income:  totals.Income.String(),
			Expense: totals.Expense.String(),
			Balance: totals.Balance.String(),
		},
		Empty: len(rows) == 0,
	}
	if err := st.FeedErr(); err != nil {
		m.FeedError = err.Error()
	}
	return m
}

// CategoryOptions builds the choice list for a form entering a transaction
// of type t. When current names a category outside the scoped subset it is
// appended as an out-of-band option so the stored value stays visible
// instead of being silently replaced.
func CategoryOptions(cats []core.Category, t core.TransactionType, current string) []Option {
	scoped := core.CategoriesForType(cats, t)
	opts := make([]Option, 0, len(scoped)+1)
	for _, c := range scoped {
		opts = append(opts, Option{ID: c.ID, Name: c.Name, Kind: string(c.Kind)})
	}
	if current != "" {
		if _, ok := core.FindCategoryByName(scoped, current); !ok {
			opts = append(opts, Option{Name: current, OutOfBand: true})
		}
	}
	return opts
}
