// Package api provides the HTTP admin API. It runs inside the bot process so
// that the ledger keeps a single writer.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/referral-ledger/internal/logging"
	"github.com/referral-ledger/internal/models"
	"github.com/referral-ledger/internal/ratelimit"
	"github.com/referral-ledger/internal/service"
	"github.com/shopspring/decimal"
)

// LedgerService defines the ledger operations exposed over HTTP
type LedgerService interface {
	Stats(userID string) (models.Stats, error)
	Leaderboard(n int) []models.LeaderboardEntry
	Pending(callerID string) (service.PendingReport, error)
	Payouts(callerID string) ([]models.Payout, error)
	ApplyPayout(ctx context.Context, callerID, targetID string, amount decimal.Decimal) (models.Payout, error)
	Check() []error
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	ledger     LedgerService
	limiter    *ratelimit.Limiter
	logger     *logging.Logger
	config     *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	APIToken        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new API server instance. limiter may be nil.
func NewServer(config *ServerConfig, ledger LedgerService, limiter *ratelimit.Limiter, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	s := &Server{
		router:  mux.NewRouter(),
		ledger:  ledger,
		limiter: limiter,
		logger:  logger.WithField("component", "api"),
		config:  config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(RecoveryMiddleware(s.logger))
	s.router.Use(CORSMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(AuthMiddleware(s.config.APIToken))
	api.Use(RateLimitMiddleware(s.limiter))

	api.HandleFunc("/users/{id}/stats", s.handleGetStats).Methods("GET")
	api.HandleFunc("/leaderboard", s.handleGetLeaderboard).Methods("GET")
	api.HandleFunc("/payouts/pending", s.handleGetPending).Methods("GET")
	api.HandleFunc("/payouts", s.handleListPayouts).Methods("GET")
	api.HandleFunc("/payouts", s.handleCreatePayout).Methods("POST")
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	issues := s.ledger.Check()
	if len(issues) > 0 {
		status = "degraded"
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  status,
		"service": "referral-ledger",
		"issues":  len(issues),
	})
}

// Start starts the HTTP server. It returns http.ErrServerClosed after
// Shutdown.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}
	return s.httpServer.Shutdown(ctx)
}
