// Package session owns the application state between the stores and the
// view: the cached transaction/category projections, the transient filter
// criteria, the edit target, and the lifecycle of the live subscriptions
// across sign-in and sign-out.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type (
	// State is the cached projection owned by the subscription pump. All
	// other code paths only ever read a copy; the lists are replaced
	// wholesale on every snapshot and never mutated in place.
	State struct {
		OwnerID      string
		Transactions []core.Transaction
		Categories   []core.Category
		Criteria     core.FilterCriteria
		EditingID    string

		// TxFeedErr and CatFeedErr are the last subscription errors, tracked
		// per feed so a healthy snapshot from one store cannot mask the other
		// one still being broken. Shown as a persistent status because the
		// affected list may be stale.
		TxFeedErr  error
		CatFeedErr error
	}

	// Controller orchestrates one user's session. It is safe for use from
	// the HTTP handlers and the subscription pump concurrently.
	Controller struct {
		stores store.Stores

		mu     sync.Mutex
		state  State
		txSub  *store.Subscription[core.Transaction]
		catSub *store.Subscription[core.Category]
		cancel context.CancelFunc
		done   chan struct{}

		onChange func(State)
		now      func() time.Time
	}
)

func NewController(stores store.Stores) *Controller {
	return &Controller{
		stores: stores,
		now:    time.Now,
	}
}

// OnChange registers a hook invoked with a state copy after every snapshot
// or criteria change. Used to push live view updates.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// SignIn switches the session to ownerID. Any previous subscriptions are
// disposed before the new ones are acquired, so a stale callback can never
// leak another user's records into this session.
func (c *Controller) SignIn(ctx context.Context, ownerID string) error {
	c.SignOut()

	txSub, err := c.stores.Transactions.Subscribe(ctx, ownerID)
	if err != nil {
		return err
	}
	catSub, err := c.stores.Categories.Subscribe(ctx, ownerID)
	if err != nil {
		txSub.Close()
		return err
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.state = State{OwnerID: ownerID}
	c.txSub = txSub
	c.catSub = catSub
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go c.pump(pumpCtx, txSub, catSub, done)

	slog.InfoContext(ctx, "Session signed in", "owner", ownerID)
	return nil
}

// SignOut disposes the live subscriptions first, then clears the local
// state. Safe to call when no session is active.
func (c *Controller) SignOut() {
	c.mu.Lock()
	txSub, catSub := c.txSub, c.catSub
	cancel, done := c.cancel, c.done
	c.txSub, c.catSub, c.cancel, c.done = nil, nil, nil, nil
	c.mu.Unlock()

	if txSub != nil {
		txSub.Close()
	}
	if catSub != nil {
		catSub.Close()
	}
	if cancel != nil {
		cancel()
		<-done
	}

	c.mu.Lock()
	c.state = State{}
	c.mu.Unlock()
}

// pump is the single writer of the cached lists. It replaces them wholesale
// on every snapshot delivery.
func (c *Controller) pump(ctx context.Context,
	txSub *store.Subscription[core.Transaction],
	catSub *store.Subscription[core.Category],
	done chan struct{},
) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-txSub.Snapshots():
			if !ok {
				return
			}
			c.apply(func(s *State) {
				if snap.Err != nil {
					s.TxFeedErr = snap.Err
					return
				}
				s.TxFeedErr = nil
				s.Transactions = snap.Records
			})
		case snap, ok := <-catSub.Snapshots():
			if !ok {
				return
			}
			c.apply(func(s *State) {
				if snap.Err != nil {
					s.CatFeedErr = snap.Err
					return
				}
				s.CatFeedErr = nil
				s.Categories = snap.Records
			})
		}
	}
}

func (c *Controller) apply(mut func(*State)) {
	c.mu.Lock()
	mut(&c.state)
	st := c.snapshotLocked()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

// FeedErr returns the surviving subscription error, if any. The transaction
// feed takes precedence since it carries the primary list.
func (s State) FeedErr() error {
	if s.TxFeedErr != nil {
		return s.TxFeedErr
	}
	return s.CatFeedErr
}

// State returns a copy of the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	st := c.state
	st.Transactions = append([]core.Transaction(nil), c.state.Transactions...)
	st.Categories = append([]core.Category(nil), c.state.Categories...)
	return st
}

// SetCriteria replaces the filter criteria. Recomputation happens on read;
// every change still notifies the view.
func (c *Controller) SetCriteria(criteria core.FilterCriteria) {
	c.apply(func(s *State) { s.Criteria = criteria })
}

// Filtered returns the currently visible subset and its totals.
func (c *Controller) Filtered() ([]core.Transaction, core.Totals) {
	st := c.State()
	filtered := core.ApplyFilters(st.Transactions, st.Criteria)
	return filtered, core.ComputeTotals(filtered)
}

// StartEdit marks id as the row being edited. This is display state for the
// stream; the actual update target is passed to SubmitForm explicitly.
func (c *Controller) StartEdit(id string) {
	c.apply(func(s *State) { s.EditingID = id })
}

// CancelEdit returns the form to add mode.
func (c *Controller) CancelEdit() {
	c.apply(func(s *State) { s.EditingID = "" })
}

// finishEdit clears the edit indicator, but only if it still points at id, so
// a submit never wipes an edit another request started in the meantime.
func (c *Controller) finishEdit(id string) {
	c.apply(func(s *State) {
		if s.EditingID == id {
			s.EditingID = ""
		}
	})
}
