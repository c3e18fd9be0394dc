// Package memory provides a volatile store for single-user and test use.
// Ids are generated locally since no remote store is attached.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type Store struct {
	mu     sync.Mutex
	txs    []core.Transaction
	cats   []core.Category
	txHub  *store.Hub[core.Transaction]
	catHub *store.Hub[core.Category]
	now    func() time.Time
}

func New() *Store {
	return &Store{
		txHub:  store.NewHub[core.Transaction](),
		catHub: store.NewHub[core.Category](),
		now:    time.Now,
	}
}

// NewFromFiles seeds categories from base/seed_categories.txt, one
// "name,kind" pair per line. Missing or empty files fall back to a small
// default taxonomy.
func NewFromFiles(base string) *Store {
	s := New()
	for _, line := range readLines(filepath.Join(base, "seed_categories.txt")) {
		name, kind := line, string(core.KindBoth)
		if i := strings.IndexByte(line, ','); i >= 0 {
			name, kind = strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:])
		}
		s.seedCategory(name, core.NormalizeKind(kind))
	}
	if len(s.cats) == 0 {
		s.seedCategory("General", core.KindBoth)
		s.seedCategory("Salary", core.KindIncome)
		s.seedCategory("Rent", core.KindExpense)
		s.seedCategory("Food", core.KindExpense)
	}
	return s
}

func (s *Store) seedCategory(name string, kind core.CategoryKind) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	if err := core.CheckDuplicateName(s.cats, name); err != nil {
		return
	}
	s.cats = append(s.cats, core.Category{
		ID:        uuid.NewString(),
		Name:      name,
		Kind:      kind,
		CreatedAt: s.now(),
	})
}

// Transactions returns the TransactionStore view of this store.
func (s *Store) Transactions() store.TransactionStore { return (*txStore)(s) }

// Categories returns the CategoryStore view of this store.
func (s *Store) Categories() store.CategoryStore { return (*catStore)(s) }

type txStore Store

func (s *txStore) Subscribe(_ context.Context, ownerID string) (*store.Subscription[core.Transaction], error) {
	sub := s.txHub.Subscribe(ownerID)
	s.mu.Lock()
	snap := store.Snapshot[core.Transaction]{Records: (*Store)(s).transactionsFor(ownerID)}
	s.mu.Unlock()
	s.txHub.Publish(ownerID, snap)
	return sub, nil
}

func (s *txStore) Create(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.ValidateRecord(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	t.ID = uuid.NewString()
	t.CreatedAt = s.now()
	s.txs = append(s.txs, t)
	owner := t.UserID
	snap := (*Store)(s).transactionsFor(owner)
	s.mu.Unlock()
	s.txHub.Publish(owner, store.Snapshot[core.Transaction]{Records: snap})
	return t, nil
}

func (s *txStore) Update(_ context.Context, id string, f store.TransactionFields) error {
	s.mu.Lock()
	idx := -1
	for i := range s.txs {
		if s.txs[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	t := s.txs[idx]
	t.Date, t.Type, t.Category, t.Description, t.Amount = f.Date, f.Type, f.Category, f.Description, f.Amount
	if err := t.ValidateRecord(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.txs[idx] = t
	owner := t.UserID
	snap := (*Store)(s).transactionsFor(owner)
	s.mu.Unlock()
	s.txHub.Publish(owner, store.Snapshot[core.Transaction]{Records: snap})
	return nil
}

func (s *txStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	idx := -1
	for i := range s.txs {
		if s.txs[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	owner := s.txs[idx].UserID
	s.txs = append(s.txs[:idx], s.txs[idx+1:]...)
	snap := (*Store)(s).transactionsFor(owner)
	s.mu.Unlock()
	s.txHub.Publish(owner, store.Snapshot[core.Transaction]{Records: snap})
	return nil
}

type catStore Store

func (s *catStore) Subscribe(_ context.Context, ownerID string) (*store.Subscription[core.Category], error) {
	sub := s.catHub.Subscribe(ownerID)
	s.mu.Lock()
	snap := store.Snapshot[core.Category]{Records: (*Store)(s).categoriesFor(ownerID)}
	s.mu.Unlock()
	s.catHub.Publish(ownerID, snap)
	return sub, nil
}

func (s *catStore) Create(_ context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	if err := core.CheckDuplicateName((*Store)(s).categoriesFor(c.UserID), c.Name); err != nil {
		s.mu.Unlock()
		return core.Category{}, err
	}
	c.ID = uuid.NewString()
	c.CreatedAt = s.now()
	s.cats = append(s.cats, c)
	owner := c.UserID
	snap := (*Store)(s).categoriesFor(owner)
	s.mu.Unlock()
	s.catHub.Publish(owner, store.Snapshot[core.Category]{Records: snap})
	return c, nil
}

func (s *catStore) Update(_ context.Context, id string, f store.CategoryFields) error {
	s.mu.Lock()
	idx := -1
	for i := range s.cats {
		if s.cats[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	c := s.cats[idx]
	if f.Name != "" {
		c.Name = strings.TrimSpace(f.Name)
	}
	if f.Kind != "" {
		c.Kind = f.Kind
	}
	if err := c.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.cats[idx] = c
	owner := c.UserID
	snap := (*Store)(s).categoriesFor(owner)
	s.mu.Unlock()
	s.catHub.Publish(owner, store.Snapshot[core.Category]{Records: snap})
	return nil
}

func (s *catStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	idx := -1
	for i := range s.cats {
		if s.cats[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	owner := s.cats[idx].UserID
	s.cats = append(s.cats[:idx], s.cats[idx+1:]...)
	snap := (*Store)(s).categoriesFor(owner)
	s.mu.Unlock()
	s.catHub.Publish(owner, store.Snapshot[core.Category]{Records: snap})
	return nil
}

// transactionsFor copies the owner's records ordered newest first.
// Callers must hold s.mu.
func (s *Store) transactionsFor(ownerID string) []core.Transaction {
	out := make([]core.Transaction, 0, len(s.txs))
	for _, t := range s.txs {
		if t.UserID == ownerID {
			out = append(out, t)
		}
	}
	core.SortTransactions(out)
	return out
}

// categoriesFor copies the owner's categories ordered by name.
// Callers must hold s.mu.
func (s *Store) categoriesFor(ownerID string) []core.Category {
	out := make([]core.Category, 0, len(s.cats))
	for _, c := range s.cats {
		if c.UserID == ownerID {
			out = append(out, c)
		}
	}
	core.SortCategories(out)
	return out
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
