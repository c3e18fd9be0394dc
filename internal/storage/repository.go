// Package storage implements the transaction and category stores on a local
// SQLite database. It is the persistent single-user backend and the offline
// capture layer of the sqlite+mongo deployment: every committed write is
// re-read into a fresh snapshot for subscribers and, when a sync publisher is
// attached, mirrored onto the sync queue for the worker.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// SyncPublisher mirrors committed writes onto the sync queue. Implemented by
// the AMQP client; nil disables mirroring.
type SyncPublisher interface {
	PublishRecordSync(ctx context.Context, collection, id, op string) error
}

const (
	CollectionTransactions = "transactions"
	CollectionCategories   = "categories"

	OpUpsert = "upsert"
	OpDelete = "delete"
)

type SQLiteRepository struct {
	db     *sql.DB
	txHub  *store.Hub[core.Transaction]
	catHub *store.Hub[core.Category]
	sync   SyncPublisher
	now    func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		txHub:  store.NewHub[core.Transaction](),
		catHub: store.NewHub[core.Category](),
		now:    time.Now,
	}, nil
}

// SetSyncPublisher attaches the sync queue. Must be called before serving.
func (r *SQLiteRepository) SetSyncPublisher(p SyncPublisher) {
	r.sync = p
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Transactions returns the TransactionStore view of the repository.
func (r *SQLiteRepository) Transactions() store.TransactionStore { return (*txRepo)(r) }

// Categories returns the CategoryStore view of the repository.
func (r *SQLiteRepository) Categories() store.CategoryStore { return (*catRepo)(r) }

type txRepo SQLiteRepository

func (r *txRepo) Subscribe(ctx context.Context, ownerID string) (*store.Subscription[core.Transaction], error) {
	sub := r.txHub.Subscribe(ownerID)
	(*SQLiteRepository)(r).publishTransactions(ctx, ownerID)
	return sub, nil
}

func (r *txRepo) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.ValidateRecord(); err != nil {
		return core.Transaction{}, err
	}
	t.ID = uuid.NewString()
	t.CreatedAt = r.now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, date, type, category, description, amount_cents, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Date, string(t.Type), t.Category, t.Description, t.Amount.Cents, t.UserID, t.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"date", t.Date,
		"type", t.Type,
		"amount_cents", t.Amount.Cents)

	rep := (*SQLiteRepository)(r)
	rep.publishTransactions(ctx, t.UserID)
	rep.mirror(ctx, CollectionTransactions, t.ID, OpUpsert)
	return t, nil
}

func (r *txRepo) Update(ctx context.Context, id string, f store.TransactionFields) error {
	owner, err := (*SQLiteRepository)(r).transactionOwner(ctx, id)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET date = ?, type = ?, category = ?, description = ?, amount_cents = ?, sync_state = 'pending'
		WHERE id = ?`,
		f.Date, string(f.Type), f.Category, f.Description, f.Amount.Cents, id)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}

	rep := (*SQLiteRepository)(r)
	rep.publishTransactions(ctx, owner)
	rep.mirror(ctx, CollectionTransactions, id, OpUpsert)
	return nil
}

func (r *txRepo) Delete(ctx context.Context, id string) error {
	owner, err := (*SQLiteRepository)(r).transactionOwner(ctx, id)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}

	rep := (*SQLiteRepository)(r)
	rep.publishTransactions(ctx, owner)
	rep.mirror(ctx, CollectionTransactions, id, OpDelete)
	return nil
}

type catRepo SQLiteRepository

func (r *catRepo) Subscribe(ctx context.Context, ownerID string) (*store.Subscription[core.Category], error) {
	sub := r.catHub.Subscribe(ownerID)
	(*SQLiteRepository)(r).publishCategories(ctx, ownerID)
	return sub, nil
}

func (r *catRepo) Create(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	existing, err := (*SQLiteRepository)(r).ListCategories(ctx, c.UserID)
	if err != nil {
		return core.Category{}, err
	}
	if err := core.CheckDuplicateName(existing, c.Name); err != nil {
		return core.Category{}, err
	}

	c.ID = uuid.NewString()
	c.Name = strings.TrimSpace(c.Name)
	c.CreatedAt = r.now()

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, kind, user_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, string(c.Kind), c.UserID, c.CreatedAt)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}

	rep := (*SQLiteRepository)(r)
	rep.publishCategories(ctx, c.UserID)
	rep.mirror(ctx, CollectionCategories, c.ID, OpUpsert)
	return c, nil
}

func (r *catRepo) Update(ctx context.Context, id string, f store.CategoryFields) error {
	owner, err := (*SQLiteRepository)(r).categoryOwner(ctx, id)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE categories
		SET name = COALESCE(NULLIF(?, ''), name), kind = COALESCE(NULLIF(?, ''), kind)
		WHERE id = ?`,
		strings.TrimSpace(f.Name), string(f.Kind), id)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}

	rep := (*SQLiteRepository)(r)
	rep.publishCategories(ctx, owner)
	rep.mirror(ctx, CollectionCategories, id, OpUpsert)
	return nil
}

func (r *catRepo) Delete(ctx context.Context, id string) error {
	owner, err := (*SQLiteRepository)(r).categoryOwner(ctx, id)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}

	rep := (*SQLiteRepository)(r)
	rep.publishCategories(ctx, owner)
	rep.mirror(ctx, CollectionCategories, id, OpDelete)
	return nil
}

// ListTransactions returns the owner's records ordered newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, type, category, description, amount_cents, user_id, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY date DESC, created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var typ string
		if err := rows.Scan(&t.ID, &t.Date, &typ, &t.Category, &t.Description, &t.Amount.Cents, &t.UserID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Type = core.TransactionType(typ)
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListCategories returns the owner's categories ordered by name.
func (r *SQLiteRepository) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, kind, user_id, created_at
		FROM categories
		WHERE user_id = ?
		ORDER BY name COLLATE NOCASE ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var kind string
		if err := rows.Scan(&c.ID, &c.Name, &kind, &c.UserID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Kind = core.CategoryKind(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetTransaction fetches one record by id, used by the sync worker.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	var t core.Transaction
	var typ string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, date, type, category, description, amount_cents, user_id, created_at
		FROM transactions WHERE id = ?`, id).
		Scan(&t.ID, &t.Date, &typ, &t.Category, &t.Description, &t.Amount.Cents, &t.UserID, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	t.Type = core.TransactionType(typ)
	return t, nil
}

// GetCategory fetches one category by id, used by the sync worker.
func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	var c core.Category
	var kind string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, kind, user_id, created_at
		FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &kind, &c.UserID, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, store.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	c.Kind = core.CategoryKind(kind)
	return c, nil
}

// MarkTransactionSynced records that the worker pushed the record remotely.
func (r *SQLiteRepository) MarkTransactionSynced(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE transactions SET sync_state = 'synced' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) transactionOwner(ctx context.Context, id string) (string, error) {
	var owner string
	err := r.db.QueryRowContext(ctx, `SELECT user_id FROM transactions WHERE id = ?`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup transaction owner: %w", err)
	}
	return owner, nil
}

func (r *SQLiteRepository) categoryOwner(ctx context.Context, id string) (string, error) {
	var owner string
	err := r.db.QueryRowContext(ctx, `SELECT user_id FROM categories WHERE id = ?`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup category owner: %w", err)
	}
	return owner, nil
}

func (r *SQLiteRepository) publishTransactions(ctx context.Context, ownerID string) {
	list, err := r.ListTransactions(ctx, ownerID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load transaction snapshot", "error", err, "owner", ownerID)
		r.txHub.PublishError(ownerID, err)
		return
	}
	r.txHub.Publish(ownerID, store.Snapshot[core.Transaction]{Records: list})
}

func (r *SQLiteRepository) publishCategories(ctx context.Context, ownerID string) {
	list, err := r.ListCategories(ctx, ownerID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load category snapshot", "error", err, "owner", ownerID)
		r.catHub.PublishError(ownerID, err)
		return
	}
	r.catHub.Publish(ownerID, store.Snapshot[core.Category]{Records: list})
}

// mirror publishes a sync message for the worker. Failures are logged, not
// returned: the local write already succeeded and the queue is best effort.
func (r *SQLiteRepository) mirror(ctx context.Context, collection, id, op string) {
	if r.sync == nil {
		return
	}
	if err := r.sync.PublishRecordSync(ctx, collection, id, op); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"error", err, "collection", collection, "id", id, "op", op)
	}
}
