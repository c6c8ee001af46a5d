package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/mwhitlock/fairshare/internal/equity"
	"github.com/mwhitlock/fairshare/internal/handler"
	"github.com/mwhitlock/fairshare/internal/middleware"
	"github.com/mwhitlock/fairshare/internal/store"
	"github.com/mwhitlock/fairshare/internal/valuation"
	ws "github.com/mwhitlock/fairshare/internal/websocket"
)

// API-wide rate limit, matching the 100 requests per 15 minutes the service
// has always enforced.
const (
	rateLimitMax    = 100
	rateLimitWindow = 15 * time.Minute
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	userH       *handler.UserHandler
	householdH  *handler.HouseholdHandler
	choreH      *handler.ChoreHandler
	settlementH *handler.SettlementHandler
	dashboardH  *handler.DashboardHandler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	householdStore := store.NewHouseholdStore(db)
	choreStore := store.NewChoreStore(db)
	settlementStore := store.NewSettlementStore(db)

	valuationSvc := valuation.NewService(choreStore, userStore, householdStore)
	equitySvc := equity.NewService(choreStore, settlementStore)

	return &Server{
		db:          db,
		hub:         hub,
		userH:       handler.NewUserHandler(userStore, householdStore, logger.With("component", "user")),
		householdH:  handler.NewHouseholdHandler(householdStore, userStore, choreStore, hub, logger.With("component", "household")),
		choreH:      handler.NewChoreHandler(choreStore, userStore, householdStore, valuationSvc, hub, logger.With("component", "chore")),
		settlementH: handler.NewSettlementHandler(settlementStore, householdStore, userStore, hub, logger.With("component", "settlement")),
		dashboardH:  handler.NewDashboardHandler(equitySvc, logger.With("component", "dashboard")),
		rateLimiter: middleware.NewRateLimiter(rateLimitMax, rateLimitWindow),
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	api := http.NewServeMux()

	api.HandleFunc("POST /api/users", s.userH.Create)
	api.HandleFunc("GET /api/users/{id}", s.userH.Get)
	api.HandleFunc("PUT /api/users/{id}/pin", s.userH.SetPIN)

	api.HandleFunc("POST /api/households", s.householdH.Create)
	api.HandleFunc("POST /api/households/join", s.householdH.Join)
	api.HandleFunc("GET /api/households/{id}", s.householdH.Get)
	api.HandleFunc("PUT /api/households/{id}/settings", s.householdH.UpdateSettings)

	api.HandleFunc("POST /api/chores", s.choreH.Create)
	api.HandleFunc("GET /api/chores", s.choreH.List)
	api.HandleFunc("GET /api/chores/completed", s.choreH.ListCompleted)
	api.HandleFunc("DELETE /api/chores/{id}", s.choreH.Delete)
	api.HandleFunc("POST /api/chores/{id}/complete", s.choreH.Complete)

	api.HandleFunc("POST /api/settlements", s.settlementH.Create)
	api.HandleFunc("GET /api/settlements", s.settlementH.List)

	api.HandleFunc("GET /api/dashboard/{householdId}", s.dashboardH.Get)
	api.HandleFunc("GET /api/dashboard/{householdId}/equity", s.dashboardH.Equity)

	root := http.NewServeMux()
	root.Handle("/api/", middleware.RateLimit(s.rateLimiter, middleware.RealIP)(api))

	// Health checks and the SPA's WebSocket reconnect loop must not eat
	// into the API budget; both stay outside the rate limiter.
	root.HandleFunc("GET /api/health", s.healthHandler)
	root.Handle("GET /ws", s.hub)

	return middleware.RequestLogger(s.logger.With("component", "http"))(root)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
