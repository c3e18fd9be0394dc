// Package export serializes the full in-memory transaction list to JSON or
// CSV and imports previously exported JSON. Exports always cover the whole
// list, never the filtered view.
package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"fintrack/internal/core"
)

const (
	JSONFilename = "transactions.json"
	JSONMIME     = "application/json"
	CSVFilename  = "transactions.csv"
	CSVMIME      = "text/csv"
)

var csvHeader = []string{"id", "date", "type", "category", "description", "amount"}

// JSON renders the list as a pretty-printed array with the original field
// names.
func JSON(list []core.Transaction) ([]byte, error) {
	if list == nil {
		list = []core.Transaction{}
	}
	out, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal transactions: %w", err)
	}
	return out, nil
}

// CSV renders the list with a header row. Category and description are
// always quoted with internal quotes doubled; the other fields are written
// bare.
func CSV(list []core.Transaction) []byte {
	var b strings.Builder
	b.WriteString(strings.Join(csvHeader, ","))
	for _, t := range list {
		b.WriteByte('\n')
		b.WriteString(t.ID)
		b.WriteByte(',')
		b.WriteString(t.Date)
		b.WriteByte(',')
		b.WriteString(string(t.Type))
		b.WriteByte(',')
		b.WriteString(csvQuote(t.Category))
		b.WriteByte(',')
		b.WriteString(csvQuote(t.Description))
		b.WriteByte(',')
		b.WriteString(amountField(t.Amount))
	}
	return []byte(b.String())
}

func csvQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// amountField matches the JSON rendering: whole amounts without decimals,
// fractional ones with exactly two.
func amountField(m core.Money) string {
	raw, _ := m.MarshalJSON()
	return string(raw)
}
