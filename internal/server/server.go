// Package server exposes the trading assistant over HTTP. The handlers
// are thin: they validate input, call into the trading core, and map its
// outcomes onto status codes. Upstream exchange failures become 502,
// input errors 400, and safety refusals are plain 200 responses.
package server

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"spotbot/internal/exchange"
	"spotbot/internal/storage"
	"spotbot/internal/strategy"
	"spotbot/internal/trading"
)

// Trader is the trading core surface the handlers call.
type Trader interface {
	EvaluateSignal(ctx context.Context, symbol, interval string) (strategy.Signal, error)
	RunSignalAndPlace(ctx context.Context, symbol, interval string) (*trading.RunResult, error)
	DecideAndExecute(ctx context.Context, intent trading.OrderIntent, force bool) (*trading.ExecutionDecision, error)
}

// MarketClient is the read-only exchange surface for the passthrough
// endpoints.
type MarketClient interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([][]any, error)
	GetAccount(ctx context.Context) (*exchange.AccountSnapshot, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]exchange.OpenOrder, error)
}

// PollerControl starts and stops the background poller.
type PollerControl interface {
	Start()
	Stop()
	Running() bool
}

// TradeStore reads back persisted trade records.
type TradeStore interface {
	ListTrades(ctx context.Context, limit int) ([]storage.TradeRecord, error)
}

// Config carries the server's own settings plus the defaults admin
// endpoints fall back to.
type Config struct {
	AdminToken     string
	AllowedOrigins []string
	Symbol         string
	Interval       string
}

// Server holds the handler dependencies, injected at startup.
type Server struct {
	trader   Trader
	client   MarketClient
	poller   PollerControl
	store    TradeStore
	cfg      Config
	validate *validator.Validate
	logger   zerolog.Logger
}

// New creates a Server. store may be nil when no database is configured.
func New(trader Trader, client MarketClient, poller PollerControl, store TradeStore, cfg Config) *Server {
	return &Server{
		trader:   trader,
		client:   client,
		poller:   poller,
		store:    store,
		cfg:      cfg,
		validate: validator.New(),
		logger:   log.With().Str("component", "http").Logger(),
	}
}

// Handler builds the route table. Admin endpoints sit behind the
// X-Admin-Token check; everything passes through CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /klines", s.handleKlines)
	mux.HandleFunc("GET /strategy/signal", s.handleSignal)

	mux.HandleFunc("POST /run-now", s.adminOnly(s.handleRunNow))
	mux.HandleFunc("POST /trade", s.adminOnly(s.handleTrade))
	mux.HandleFunc("GET /account", s.adminOnly(s.handleAccount))
	mux.HandleFunc("GET /open-orders", s.adminOnly(s.handleOpenOrders))
	mux.HandleFunc("GET /trades", s.adminOnly(s.handleTrades))
	mux.HandleFunc("POST /poller/start", s.adminOnly(s.handlePollerStart))
	mux.HandleFunc("POST /poller/stop", s.adminOnly(s.handlePollerStop))

	return s.cors(mux)
}

// adminOnly rejects requests whose X-Admin-Token header does not match.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Admin-Token") != s.cfg.AdminToken {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r)
	}
}

// cors answers preflight requests and stamps the allow headers. With no
// configured origins every origin is allowed; this service fronts a local
// dashboard, not the public internet.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Admin-Token")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range s.cfg.AllowedOrigins {
		if o == origin {
			return true
		}
	}
	return false
}
