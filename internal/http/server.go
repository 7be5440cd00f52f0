// Package http serves the workshop ledger UI: the recency dashboard,
// customer pages with repair history and monthly charts, the repair
// item catalog and the spreadsheet import/export actions.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"officina/internal/cache"
	"officina/internal/core"
	applog "officina/internal/log"
	"officina/internal/services"
	"officina/internal/sheets"
	"officina/internal/storage"
	appweb "officina/web"
)

// DefaultRecencyDays splits the dashboard boards: customers whose last
// visit is older than this many days count as overdue.
const DefaultRecencyDays = 181

type Server struct {
	http.Server
	templates *template.Template
	logger    *applog.Logger

	ledger      *services.LedgerService
	storage     *storage.SQLiteRepository
	interchange sheets.Interchange
	rateLimiter *rateLimiter

	// Read-side caches, invalidated by prefix on writes.
	recencyCache *cache.LRUCache[recencyBoards]
	statsCache   *cache.LRUCache[[]core.MonthlyStat]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// recencyBoards is the cached dashboard payload.
type recencyBoards struct {
	Days    int
	Overdue []core.CustomerRecency
	Recent  []core.CustomerRecency
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, ledger *services.LedgerService, repo *storage.SQLiteRepository, interchange sheets.Interchange) *Server {
	mux := http.NewServeMux()
	logger := applog.New(applog.Config{Component: applog.ComponentHTTP})

	s := &Server{
		Server: http.Server{
			Addr: addr,
		},
		logger:       logger,
		ledger:       ledger,
		storage:      repo,
		interchange:  interchange,
		rateLimiter:  newRateLimiter(),
		recencyCache: cache.NewLRUCache[recencyBoards](20, 5*time.Minute),
		statsCache:   cache.NewLRUCache[[]core.MonthlyStat](200, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.recencyCache)
	s.cacheManager.Register(s.statsCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleDashboard))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/customers", s.withSecurityHeaders(s.handleCustomers))
	mux.HandleFunc("/customers/view", s.withSecurityHeaders(s.handleCustomerPage))
	mux.HandleFunc("/customers/update", s.withSecurityHeaders(s.handleUpdateCustomer))
	mux.HandleFunc("/customers/delete", s.withSecurityHeaders(s.handleDeleteCustomer))

	mux.HandleFunc("/repairs", s.withSecurityHeaders(s.handleCreateRepair))
	mux.HandleFunc("/repairs/update", s.withSecurityHeaders(s.handleUpdateRepair))
	mux.HandleFunc("/repairs/delete", s.withSecurityHeaders(s.handleDeleteRepair))

	mux.HandleFunc("/catalog", s.withSecurityHeaders(s.handleCatalog))
	mux.HandleFunc("/catalog/add", s.withSecurityHeaders(s.handleCatalogAdd))
	mux.HandleFunc("/catalog/replace", s.withSecurityHeaders(s.handleCatalogReplace))

	mux.HandleFunc("/sync/import", s.withSecurityHeaders(s.handleImport))
	mux.HandleFunc("/sync/export", s.withSecurityHeaders(s.handleExport))

	// UI partials
	mux.HandleFunc("/ui/recency", s.withSecurityHeaders(s.handleRecencyPartial))
	mux.HandleFunc("/ui/monthly-stats", s.withSecurityHeaders(s.handleMonthlyStats))
	mux.HandleFunc("/ui/latest-mileage", s.withSecurityHeaders(s.handleLatestMileage))

	// Every request carries a request-id-tagged logger in its context;
	// handlers pick it up through applog.FromContext.
	s.Server.Handler = applog.Middleware(logger)(
		applog.RequestIDMiddleware(func(*http.Request) string { return generateRequestID() })(mux))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		ctx := r.Context()
		requests := applog.NewStructuredLogger(applog.FromContext(ctx))
		requests.LogHTTPStart(ctx, r, clientIP)

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			applog.FromContext(ctx).WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP, applog.FieldMethod, r.Method, applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		requests.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Cache invalidation hooks for write handlers.

func (s *Server) invalidateRecency() {
	s.recencyCache.DeletePrefix("recency:")
}

func (s *Server) invalidateStats(customerID int64) {
	s.statsCache.DeletePrefix(statsKeyPrefix(customerID))
}
