package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// ErrNotAnArray rejects import payloads whose top level is not a JSON array.
var ErrNotAnArray = errors.New("invalid file: expected a JSON array")

type (
	// rawRecord is the lenient wire shape of one imported element. Every
	// field may be missing or malformed; normalization decides the fallback.
	rawRecord struct {
		Date        string     `json:"date"`
		Type        string     `json:"type"`
		Category    string     `json:"category"`
		Description string     `json:"description"`
		Amount      core.Money `json:"amount"`
	}

	// ImportResult reports how far a non-transactional import got. When Err
	// is set, records [0, Succeeded) are persisted and the rest were
	// aborted.
	ImportResult struct {
		Succeeded int
		Failed    int
		Err       error
	}
)

// Normalize coerces a raw element through the same per-field fallbacks as
// live records: missing type becomes expense, missing category "General",
// missing date today, unparseable amount zero.
func (r rawRecord) normalize(owner string, now time.Time) core.Transaction {
	return core.Transaction{
		Date:        core.NormalizeDate(r.Date, now),
		Type:        core.NormalizeType(r.Type),
		Category:    core.NormalizeCategory(r.Category),
		Description: r.Description,
		Amount:      r.Amount,
		UserID:      owner,
	}
}

// ParseJSON validates and normalizes an import payload without writing
// anything. Malformed JSON or a non-array top level fails here, before any
// store call.
func ParseJSON(data []byte, owner string, now time.Time) ([]core.Transaction, error) {
	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse import file: %w", err)
	}
	if _, ok := probe.([]any); !ok {
		return nil, ErrNotAnArray
	}

	var raws []rawRecord
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("parse import records: %w", err)
	}

	out := make([]core.Transaction, 0, len(raws))
	for _, r := range raws {
		out = append(out, r.normalize(owner, now))
	}
	return out, nil
}

// ImportJSON parses the payload and creates each record under the current
// owner. The import is all-or-nothing at the parse level only: a failure on
// record k aborts records k+1..n but leaves the earlier writes in place, and
// the result reports both counts so the caller can tell the user exactly
// what happened.
func ImportJSON(ctx context.Context, txs store.TransactionStore, data []byte, owner string, now time.Time) (ImportResult, error) {
	records, err := ParseJSON(data, owner, now)
	if err != nil {
		return ImportResult{}, err
	}

	var res ImportResult
	for i, t := range records {
		if _, err := txs.Create(ctx, t); err != nil {
			res.Failed = len(records) - i
			res.Err = fmt.Errorf("import record %d: %w", i+1, err)
			return res, nil
		}
		res.Succeeded++
	}
	return res, nil
}
