package http

import (
	"context"
	"sync"

	"fintrack/internal/log"
	"fintrack/internal/session"
	"fintrack/internal/store"
	"fintrack/internal/view"
)

// sessionManager holds one live session controller per owner. Sessions are
// created lazily on first request and stay subscribed until shutdown, so the
// SSE stream and the REST handlers observe the same state.
type sessionManager struct {
	stores store.Stores
	logger *log.Logger

	mu       sync.Mutex
	sessions map[string]*userSession
}

type userSession struct {
	ctrl *session.Controller

	mu       sync.Mutex
	watchers map[chan view.Model]struct{}
}

func newSessionManager(stores store.Stores, logger *log.Logger) *sessionManager {
	return &sessionManager{
		stores:   stores,
		logger:   logger,
		sessions: make(map[string]*userSession),
	}
}

// get returns the session for owner, signing one in if needed.
func (m *sessionManager) get(ctx context.Context, owner string) (*userSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if us, ok := m.sessions[owner]; ok {
		return us, nil
	}

	ctrl := session.NewController(m.stores)
	us := &userSession{
		ctrl:     ctrl,
		watchers: make(map[chan view.Model]struct{}),
	}
	ctrl.OnChange(func(st session.State) {
		us.broadcast(view.Project(st))
	})
	if err := ctrl.SignIn(ctx, owner); err != nil {
		return nil, err
	}

	m.sessions[owner] = us
	return us, nil
}

// closeAll signs out every session. Called once on shutdown.
func (m *sessionManager) closeAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*userSession)
	m.mu.Unlock()

	for owner, us := range sessions {
		us.ctrl.SignOut()
		m.logger.Info("Session closed", log.FieldOwner, owner)
	}
}

// watch registers a live view feed. The returned cancel func must be called
// when the consumer goes away.
func (us *userSession) watch() (<-chan view.Model, func()) {
	ch := make(chan view.Model, 1)

	us.mu.Lock()
	us.watchers[ch] = struct{}{}
	us.mu.Unlock()

	cancel := func() {
		us.mu.Lock()
		delete(us.watchers, ch)
		us.mu.Unlock()
	}
	return ch, cancel
}

// broadcast delivers the latest model to every watcher, dropping a pending
// older one first so slow consumers only ever lag by one snapshot.
func (us *userSession) broadcast(m view.Model) {
	us.mu.Lock()
	defer us.mu.Unlock()

	for ch := range us.watchers {
		select {
		case ch <- m:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- m:
			default:
			}
		}
	}
}
