package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"cuentas/internal/cache"
	applog "cuentas/internal/log"
	"cuentas/internal/services"
)

type Server struct {
	http.Server

	dashboard *services.DashboardService
	movements *services.MovementService

	rateLimiter *rateLimiter

	// Derived views are memoized per book generation; any write bumps
	// the generation so stale entries simply stop being referenced.
	snapshotCache *cache.LRUCache[services.Snapshot]
	pivotCache    *cache.LRUCache[pivotResponse]
	cacheManager  *cache.Manager

	genMu       sync.Mutex
	generations map[string]int64

	logger       *applog.Logger
	shutdownOnce sync.Once
}

// NewServer configures routes and caches, returning a ready-to-run
// server.
func NewServer(addr string, dashboard *services.DashboardService, movements *services.MovementService, logger *applog.Logger, cacheSize int, cacheTTL time.Duration) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server:        http.Server{Addr: addr},
		dashboard:     dashboard,
		movements:     movements,
		rateLimiter:   newRateLimiter(),
		snapshotCache: cache.NewLRUCache[services.Snapshot](cacheSize, cacheTTL),
		pivotCache:    cache.NewLRUCache[pivotResponse](cacheSize, cacheTTL),
		cacheManager:  cache.NewManager(),
		generations:   make(map[string]int64),
		logger:        logger.WithComponent(applog.ComponentHTTP),
	}
	s.Handler = applog.Middleware(s.logger)(mux)

	s.cacheManager.Register(s.snapshotCache)
	s.cacheManager.Register(s.pivotCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.HandleFunc("/api/books", s.withSecurityHeaders(s.handleBooks))
	mux.HandleFunc("/api/movements", s.withSecurityHeaders(s.handleMovements))
	mux.HandleFunc("/api/chart", s.withSecurityHeaders(s.handleChart))
	mux.HandleFunc("/api/drilldown", s.withSecurityHeaders(s.handleDrilldown))
	mux.HandleFunc("/api/pivot", s.withSecurityHeaders(s.handlePivot))

	return s
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		s.cacheManager.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds security headers, write rate limiting and
// request logging.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		logger := applog.FromContext(r.Context()).With(applog.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), applog.LoggerContextKey, logger)
		r = r.WithContext(ctx)

		logger.InfoContext(ctx, "Request started",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP,
			applog.FieldUserAgent, r.Header.Get("User-Agent"))

		if isWrite(r.Method) && !s.rateLimiter.allow(clientIP) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		logger.InfoContext(ctx, "Request completed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, duration.Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generation returns the current cache generation of a book.
func (s *Server) generation(bookID string) int64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[bookID]
}

// bumpGeneration invalidates memoized views of the book. The empty key
// covers callers that rely on the default-book selection.
func (s *Server) bumpGeneration(bookID string) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.generations[bookID]++
	s.generations[""]++
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
