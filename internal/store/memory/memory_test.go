package memory

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

func drain[T any](t *testing.T, sub *store.Subscription[T]) store.Snapshot[T] {
	t.Helper()
	select {
	case snap := <-sub.Snapshots():
		return snap
	default:
		t.Fatal("expected a pending snapshot")
		return store.Snapshot[T]{}
	}
}

func TestTransactions_CreatePublishesOrderedSnapshot(t *testing.T) {
	s := New()
	ctx := context.Background()
	txs := s.Transactions()

	sub, err := txs.Subscribe(ctx, "alice")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	first := drain(t, sub)
	if len(first.Records) != 0 {
		t.Fatalf("initial snapshot has %d records, want 0", len(first.Records))
	}

	older := core.Transaction{Date: "2024-03-10", Type: core.Expense, Category: "Rent", Amount: core.Money{Cents: 80000}, UserID: "alice"}
	newer := core.Transaction{Date: "2024-03-15", Type: core.Income, Category: "Salary", Amount: core.Money{Cents: 500000}, UserID: "alice"}

	if _, err := txs.Create(ctx, older); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	drain(t, sub)
	if _, err := txs.Create(ctx, newer); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	snap := drain(t, sub)
	if len(snap.Records) != 2 {
		t.Fatalf("snapshot has %d records, want 2", len(snap.Records))
	}
	if snap.Records[0].Date != "2024-03-15" || snap.Records[1].Date != "2024-03-10" {
		t.Errorf("snapshot order = [%s %s], want newest first",
			snap.Records[0].Date, snap.Records[1].Date)
	}
}

func TestTransactions_OwnersAreIsolated(t *testing.T) {
	s := New()
	ctx := context.Background()
	txs := s.Transactions()

	if _, err := txs.Create(ctx, core.Transaction{Date: "2024-01-01", Type: core.Expense, Category: "Food", Amount: core.Money{Cents: 100}, UserID: "alice"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	sub, err := txs.Subscribe(ctx, "bob")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	snap := drain(t, sub)
	if len(snap.Records) != 0 {
		t.Errorf("bob sees %d of alice's records, want 0", len(snap.Records))
	}
}

func TestTransactions_CreateAllowsZeroAmountRecord(t *testing.T) {
	s := New()
	_, err := s.Transactions().Create(context.Background(), core.Transaction{
		Date: "2024-01-01", Type: core.Expense, Category: core.DefaultCategory,
	})
	if err != nil {
		t.Errorf("Create() with zero amount = %v, want nil (lenient import path)", err)
	}
}

func TestTransactions_UpdateAndDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	txs := s.Transactions()

	created, err := txs.Create(ctx, core.Transaction{Date: "2024-01-01", Type: core.Expense, Category: "Food", Amount: core.Money{Cents: 500}, UserID: "alice"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	err = txs.Update(ctx, created.ID, store.TransactionFields{
		Date: "2024-01-02", Type: core.Income, Category: "Salary", Description: "fixed", Amount: core.Money{Cents: 900},
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if err := txs.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if err := txs.Update(ctx, created.ID, store.TransactionFields{Date: "2024-01-02", Type: core.Income, Category: "x", Amount: core.Money{Cents: 1}}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Update(deleted) = %v, want ErrNotFound", err)
	}
	if err := txs.Delete(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Delete(deleted) = %v, want ErrNotFound", err)
	}
}

func TestCategories_DuplicateGuard(t *testing.T) {
	s := New()
	ctx := context.Background()
	cats := s.Categories()

	if _, err := cats.Create(ctx, core.Category{Name: "Rent", Kind: core.KindExpense, UserID: "alice"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err := cats.Create(ctx, core.Category{Name: "rent", Kind: core.KindBoth, UserID: "alice"})
	if !errors.Is(err, core.ErrDuplicateCategory) {
		t.Errorf("Create(rent) = %v, want ErrDuplicateCategory", err)
	}

	// A different owner can reuse the name.
	if _, err := cats.Create(ctx, core.Category{Name: "Rent", Kind: core.KindExpense, UserID: "bob"}); err != nil {
		t.Errorf("Create() for other owner = %v, want nil", err)
	}
}

func TestCategories_SnapshotSortedByName(t *testing.T) {
	s := New()
	ctx := context.Background()
	cats := s.Categories()

	for _, name := range []string{"rent", "Food", "salary"} {
		if _, err := cats.Create(ctx, core.Category{Name: name, Kind: core.KindBoth, UserID: "alice"}); err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
	}

	sub, err := cats.Subscribe(ctx, "alice")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	snap := drain(t, sub)
	want := []string{"Food", "rent", "salary"}
	if len(snap.Records) != len(want) {
		t.Fatalf("snapshot has %d categories, want %d", len(snap.Records), len(want))
	}
	for i, name := range want {
		if snap.Records[i].Name != name {
			t.Errorf("position %d = %s, want %s", i, snap.Records[i].Name, name)
		}
	}
}

func TestNewFromFiles_DefaultTaxonomy(t *testing.T) {
	s := NewFromFiles(t.TempDir())

	sub, err := s.Categories().Subscribe(context.Background(), "")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	snap := drain(t, sub)
	if len(snap.Records) != 4 {
		t.Fatalf("default taxonomy has %d categories, want 4", len(snap.Records))
	}
	if _, ok := core.FindCategoryByName(snap.Records, "General"); !ok {
		t.Error("default taxonomy should include General")
	}
}
