package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fundcountdown/internal/log"
	"fundcountdown/internal/middleware/ratelimit"
	"fundcountdown/internal/middleware/security"
	"fundcountdown/internal/services"
)

// Server serves the fund API.
type Server struct {
	http.Server
	svc         *services.FundService
	logger      *log.Logger
	rateLimiter *ratelimit.Limiter
	detector    *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. Call Shutdown to stop it and its rate limiter.
func NewServer(addr string, svc *services.FundService, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		svc:         svc,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:    security.NewDetector(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/funds", s.handleListFunds)
	mux.HandleFunc("POST /api/funds", s.handleCreateFund)
	mux.HandleFunc("GET /api/funds/{id}", s.handleGetFund)
	mux.HandleFunc("PUT /api/funds/{id}", s.handleUpdateFund)
	mux.HandleFunc("GET /api/funds/{id}/report", s.handleFundReport)
	mux.HandleFunc("POST /api/funds/{id}/partners", s.handleAddPartner)
	mux.HandleFunc("POST /api/funds/{id}/expenses", s.handleCreateExpense)
	mux.HandleFunc("POST /api/funds/{id}/accounts", s.handleCreateAccount)

	mux.HandleFunc("GET /api/expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("PUT /api/expenses/{id}/unit_price", s.handleSetUnitPrice)
	mux.HandleFunc("POST /api/expenses/{id}/quotations", s.handleCreateQuotation)
	mux.HandleFunc("POST /api/expenses/{id}/winner", s.handleSetWinner)
	mux.HandleFunc("PUT /api/quotations/{id}", s.handleUpdateQuotation)

	mux.HandleFunc("GET /api/accounts/{id}", s.handleGetAccount)
	mux.HandleFunc("POST /api/accounts/{id}/inputs", s.handleRecordCashInput)

	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("GET /api/categories/{id}", s.handleGetCategory)

	s.Handler = chain(mux,
		log.Middleware(logger),
		s.detector.Middleware,
		security.Headers(security.DefaultHeadersConfig()),
		s.rateLimiter.Middleware(s.detector.ClientIP, func(w http.ResponseWriter, r *http.Request) {
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
		}),
	)
	return s
}

// chain wraps h so the first middleware runs first.
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Shutdown gracefully shuts down the server and its rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady checks that the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := s.svc.ListFunds(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
