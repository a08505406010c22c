// Package http exposes the statement ingestion and consultation API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"comptes/internal/annotations"
	"comptes/internal/cache"
	"comptes/internal/categories"
	"comptes/internal/config"
	"comptes/internal/core"
	"comptes/internal/log"
	"comptes/internal/middleware/ratelimit"
	"comptes/internal/middleware/security"
	"comptes/internal/middleware/trace"
	"comptes/internal/services"
)

// Server wires the HTTP routes to the statement service and the backend
// stores.
type Server struct {
	http.Server

	logger      *log.Logger
	statements  *services.StatementService
	annotations annotations.Store
	overrides   categories.Overrides

	maxUpload int64
	started   time.Time

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	headers     *security.HeadersMiddleware
	tracer      *trace.Middleware

	// Recently ingested batches stay hot; misses fall back to the archive.
	batchCache   *cache.LRUCache[[]core.Transaction]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(cfg *config.Config, logger *log.Logger, statements *services.StatementService, anns annotations.Store, overrides categories.Overrides) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:      logger.WithComponent(log.ComponentHTTP),
		statements:  statements,
		annotations: anns,
		overrides:   overrides,
		maxUpload:   cfg.MaxUploadBytes,
		started:     time.Now(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:    security.NewDetector(),
		headers:     security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		batchCache:  cache.NewLRUCache[[]core.Transaction](cfg.BatchCacheSize, cfg.BatchCacheTTL),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	s.cacheManager = cache.NewManager(logger)
	s.cacheManager.Register(s.batchCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/statements", s.handleUploadStatement)
	mux.HandleFunc("GET /api/batches/{id}/transactions", s.handleBatchTransactions)
	mux.HandleFunc("GET /api/batches/{id}/summary", s.handleBatchSummary)
	mux.HandleFunc("GET /api/annotations/{key}", s.handleGetAnnotation)
	mux.HandleFunc("PUT /api/annotations/{key}", s.handlePutAnnotation)
	mux.HandleFunc("GET /api/essentials", s.handleGetEssentials)
	mux.HandleFunc("PUT /api/essentials", s.handlePutEssentials)
	mux.HandleFunc("PUT /api/essentials/{category}", s.handleToggleEssential)

	s.Server = http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.headers.Middleware(s.tracer.Middleware(s.guard(mux))),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// guard rejects rate-limited mutations and logs suspicious requests before
// routing.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := s.detector.ExtractClientIP(r)

		if s.detector.DetectSuspiciousRequest(r) {
			s.logger.WarnContext(r.Context(), "Suspicious request detected",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
		}

		// Reads are cheap; only mutations are rate limited.
		if r.Method != http.MethodGet && !s.rateLimiter.Allow(clientIP) {
			s.logger.WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// batchTransactions serves a batch from cache, falling back to the archive.
func (s *Server) batchTransactions(ctx context.Context, batchID string) ([]core.Transaction, error) {
	if txs, found := s.batchCache.Get(batchID); found {
		return txs, nil
	}

	txs, err := s.statements.LoadBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	s.batchCache.Set(batchID, txs)
	return txs, nil
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
