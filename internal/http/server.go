// Package http exposes the tracker over a JSON API plus a server-sent event
// stream for live view updates.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/export"
	"fintrack/internal/log"
	"fintrack/internal/prefs"
	"fintrack/internal/store"
	"fintrack/internal/view"
)

// Options carries everything the server needs from the composition root.
type Options struct {
	Addr   string
	Stores store.Stores
	Users  auth.UserStore

	// JWT is set for the multi-user backend. When nil every request runs as
	// the anonymous owner.
	JWT *auth.JWTManager

	Prefs *prefs.Store

	// Sheets is an optional one-way export mirror.
	Sheets *export.SheetsSink

	CacheSize int
	CacheTTL  time.Duration

	Logger *log.Logger
}

type Server struct {
	http.Server

	logger   *log.Logger
	sessions *sessionManager
	users    auth.UserStore
	jwt      *auth.JWTManager
	prefs    *prefs.Store
	sheets   *export.SheetsSink

	rateLimiter *rateLimiter
	metrics     *securityMetrics

	// viewCache keeps the last successful projection per owner so a request
	// hitting a broken feed can still answer with the previous snapshot.
	viewCache *cache.LRU[view.Model]

	janitor     *cache.Janitor
	stopJanitor context.CancelFunc

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewFromEnv(log.ComponentHTTP)
	}

	cacheSize := opts.CacheSize
	if cacheSize < 1 {
		cacheSize = 100
	}
	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    opts.Addr,
			Handler: mux,
		},
		logger:      logger,
		sessions:    newSessionManager(opts.Stores, logger.WithComponent(log.ComponentSession)),
		users:       opts.Users,
		jwt:         opts.JWT,
		prefs:       opts.Prefs,
		sheets:      opts.Sheets,
		rateLimiter: newRateLimiter(),
		metrics:     &securityMetrics{},
		viewCache:   cache.NewLRU[view.Model](cacheSize, cacheTTL),
	}

	s.janitor = cache.NewJanitor(s.viewCache)
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	s.stopJanitor = stopJanitor
	go s.janitor.Run(janitorCtx, cacheTTL)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/auth/register", s.withMiddleware(s.handleRegister))
	mux.HandleFunc("POST /api/auth/login", s.withMiddleware(s.handleLogin))

	mux.HandleFunc("GET /api/transactions", s.protected(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.protected(s.handleCreateTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.protected(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.protected(s.handleDeleteTransaction))
	mux.HandleFunc("PUT /api/filters", s.protected(s.handleSetFilters))

	mux.HandleFunc("GET /api/categories", s.protected(s.handleListCategories))
	mux.HandleFunc("GET /api/categories/options", s.protected(s.handleCategoryOptions))
	mux.HandleFunc("POST /api/categories", s.protected(s.handleCreateCategory))
	mux.HandleFunc("PUT /api/categories/{id}", s.protected(s.handleChangeCategoryKind))
	mux.HandleFunc("DELETE /api/categories/{id}", s.protected(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/export/json", s.protected(s.handleExportJSON))
	mux.HandleFunc("GET /api/export/csv", s.protected(s.handleExportCSV))
	mux.HandleFunc("POST /api/export/sheets", s.protected(s.handleExportSheets))
	mux.HandleFunc("POST /api/import", s.protected(s.handleImport))

	mux.HandleFunc("GET /api/stream", s.protected(s.handleStream))

	mux.HandleFunc("GET /api/prefs/{key}", s.protected(s.handleGetPref))
	mux.HandleFunc("PUT /api/prefs/{key}", s.protected(s.handleSetPref))
	mux.HandleFunc("DELETE /api/prefs/{key}", s.protected(s.handleDeletePref))

	mux.HandleFunc("POST /api/lock/pin", s.protected(s.handleSetPIN))
	mux.HandleFunc("POST /api/lock/verify", s.protected(s.handleVerifyPIN))
	mux.HandleFunc("DELETE /api/lock/pin", s.protected(s.handleClearPIN))

	return s
}

// Shutdown stops the cleanup goroutines, disposes every live session, and
// then drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.stopJanitor != nil {
			s.stopJanitor()
			<-s.janitor.Done()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		if s.sessions != nil {
			s.sessions.closeAll()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withMiddleware adds security headers, rate limiting, and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)
		r = r.WithContext(ctx)

		if detectSuspiciousRequest(r, s.metrics) {
			s.logger.WarnContext(ctx, "Suspicious request",
				"request_id", requestID,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, clientIP)
		}

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP, s.metrics) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

// protected resolves the request owner before dispatching. With a JWT manager
// configured a valid bearer token is mandatory; otherwise requests run as the
// anonymous owner.
func (s *Server) protected(next ownerHandler) http.HandlerFunc {
	return s.withMiddleware(func(w http.ResponseWriter, r *http.Request) {
		owner, err := s.resolveOwner(r)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
		next(w, r, owner)
	})
}

type ownerHandler func(w http.ResponseWriter, r *http.Request, owner string)

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	default:
		return false
	}
}

type ctxKey string

const ctxKeyRequestID ctxKey = "request_id"

// statusWriter captures the response status code for logging. It forwards
// Flush so SSE streaming keeps working through the middleware.
type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
