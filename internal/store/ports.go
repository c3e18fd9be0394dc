// Package store defines the ports for the transaction and category store
// collaborators. Every backend (memory, sqlite, mongo) implements the same
// shape: a live snapshot subscription plus Create/Update/Delete.
package store

import (
	"context"

	"fintrack/internal/core"
)

type (
	// TransactionFields are the mutable fields of a transaction. ID, UserID,
	// and CreatedAt are immutable after creation.
	TransactionFields struct {
		Date        string
		Type        core.TransactionType
		Category    string
		Description string
		Amount      core.Money
	}

	// CategoryFields are the mutable fields of a category.
	CategoryFields struct {
		Name string
		Kind core.CategoryKind
	}

	// TransactionStore is the authoritative per-user transaction collection.
	// Subscribe delivers the full current record set for the owner, ordered
	// by (date desc, createdAt desc), on every change. The caller never
	// mutates its local copy; it replaces it wholesale on each snapshot.
	TransactionStore interface {
		Subscribe(ctx context.Context, ownerID string) (*Subscription[core.Transaction], error)
		Create(ctx context.Context, t core.Transaction) (core.Transaction, error)
		Update(ctx context.Context, id string, fields TransactionFields) error
		Delete(ctx context.Context, id string) error
	}

	// CategoryStore has the identical shape, ordered by name ascending.
	CategoryStore interface {
		Subscribe(ctx context.Context, ownerID string) (*Subscription[core.Category], error)
		Create(ctx context.Context, c core.Category) (core.Category, error)
		Update(ctx context.Context, id string, fields CategoryFields) error
		Delete(ctx context.Context, id string) error
	}

	// Stores bundles both collaborators as produced by the backend factory.
	Stores struct {
		Transactions TransactionStore
		Categories   CategoryStore
	}
)
