package session

import (
	"context"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/store"
)

// FormInput is the raw, unvalidated entry-form payload.
type FormInput struct {
	Date        string
	Type        string
	Category    string
	Description string
	Amount      string
}

// SubmitForm validates the input and either updates the record editingID
// names or, when editingID is empty, creates a new record for the session
// owner. The target travels with the call: overlapping requests by the same
// owner cannot steal each other's edit, EditingID in the state is only the
// indicator shown on the stream. Validation failures happen before any store
// call; store failures are returned verbatim and leave the local state
// untouched, since nothing was applied optimistically.
func (c *Controller) SubmitForm(ctx context.Context, editingID string, in FormInput) error {
	if editingID != "" {
		defer c.finishEdit(editingID)
	}

	cents, err := core.ParseAmountCents(in.Amount)
	if err != nil {
		return err
	}

	t := core.Transaction{
		Date:        strings.TrimSpace(in.Date),
		Type:        core.NormalizeType(in.Type),
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		Amount:      core.Money{Cents: cents},
	}
	if err := t.Validate(); err != nil {
		return err
	}

	if editingID != "" {
		return c.stores.Transactions.Update(ctx, editingID, store.TransactionFields{
			Date:        t.Date,
			Type:        t.Type,
			Category:    t.Category,
			Description: t.Description,
			Amount:      t.Amount,
		})
	}

	t.UserID = c.State().OwnerID
	if _, err := c.stores.Transactions.Create(ctx, t); err != nil {
		return err
	}
	return nil
}

// DeleteTransaction removes a record. Confirmation is the caller's concern.
func (c *Controller) DeleteTransaction(ctx context.Context, id string) error {
	return c.stores.Transactions.Delete(ctx, id)
}

// AddCategory creates a category for the session owner after the
// case-insensitive duplicate guard. The guard runs against the cached
// projection first for a fast, user-facing rejection; the store repeats it
// on its own data.
func (c *Controller) AddCategory(ctx context.Context, name, kind string) (core.Category, error) {
	st := c.State()
	name = strings.TrimSpace(name)
	cat := core.Category{
		Name:   name,
		Kind:   core.NormalizeKind(kind),
		UserID: st.OwnerID,
	}
	if err := cat.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := core.CheckDuplicateName(st.Categories, name); err != nil {
		return core.Category{}, err
	}
	return c.stores.Categories.Create(ctx, cat)
}

// ChangeCategoryKind rescopes an existing category.
func (c *Controller) ChangeCategoryKind(ctx context.Context, id, kind string) error {
	return c.stores.Categories.Update(ctx, id, store.CategoryFields{
		Kind: core.NormalizeKind(kind),
	})
}

// DeleteCategory removes a category. Existing transactions keep their label;
// the view surfaces it as an out-of-band value.
func (c *Controller) DeleteCategory(ctx context.Context, id string) error {
	return c.stores.Categories.Delete(ctx, id)
}

// ExportJSON serializes the full cached list.
func (c *Controller) ExportJSON() ([]byte, error) {
	return export.JSON(c.State().Transactions)
}

// ExportCSV serializes the full cached list.
func (c *Controller) ExportCSV() []byte {
	return export.CSV(c.State().Transactions)
}

// Import parses a JSON export and creates each record under the session
// owner. The result reports succeeded/failed counts for partial failures.
func (c *Controller) Import(ctx context.Context, data []byte) (export.ImportResult, error) {
	return export.ImportJSON(ctx, c.stores.Transactions, data, c.State().OwnerID, c.now())
}
