package server

import (
	"errors"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"

	"spotbot/internal/exchange"
	"spotbot/internal/trading"
)

// TradeRequest is the /trade body. Side normalization and the BUY/SELL
// check happen in the gate, where the rule actually lives.
type TradeRequest struct {
	Symbol       string   `json:"symbol" validate:"required"`
	Side         string   `json:"side" validate:"required"`
	Type         string   `json:"type"`
	Quantity     float64  `json:"quantity" validate:"gte=0"`
	Price        *float64 `json:"price"`
	TimeInForce  string   `json:"timeInForce"`
	ForceExecute bool     `json:"force_execute"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "spot-testnet"})
}

func (s *Server) handleKlines(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	interval := r.URL.Query().Get("interval")
	if symbol == "" || interval == "" {
		writeError(w, http.StatusBadRequest, "symbol and interval are required")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	raw, err := s.client.GetKlines(r.Context(), symbol, interval, limit)
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, raw)
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	symbol := queryWithDefault(r, "symbol", s.cfg.Symbol)
	interval := queryWithDefault(r, "interval", s.cfg.Interval)

	sig, err := s.trader.EvaluateSignal(r.Context(), symbol, interval)
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sig)
}

func (s *Server) handleRunNow(w http.ResponseWriter, r *http.Request) {
	result, err := s.trader.RunSignalAndPlace(r.Context(), s.cfg.Symbol, s.cfg.Interval)
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	intent := trading.OrderIntent{
		Symbol:      req.Symbol,
		Side:        req.Side,
		Type:        req.Type,
		Quantity:    req.Quantity,
		Price:       req.Price,
		TimeInForce: req.TimeInForce,
	}

	decision, err := s.trader.DecideAndExecute(r.Context(), intent, req.ForceExecute)
	if err != nil {
		if errors.Is(err, trading.ErrInvalidSide) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	snap, err := s.client.GetAccount(r.Context())
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"balances": snap.NonZeroBalances(),
		"raw":      snap.Raw,
	})
}

func (s *Server) handleOpenOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.client.GetOpenOrders(r.Context(), r.URL.Query().Get("symbol"))
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"value": orders, "Count": len(orders)})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "trade storage not configured")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	trades, err := s.store.ListTrades(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"value": trades, "Count": len(trades)})
}

func (s *Server) handlePollerStart(w http.ResponseWriter, r *http.Request) {
	s.poller.Start()
	writeJSON(w, http.StatusOK, map[string]string{"status": "poller started"})
}

func (s *Server) handlePollerStop(w http.ResponseWriter, r *http.Request) {
	s.poller.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "poller stopped"})
}

// writeUpstreamError maps exchange failures to 502 so clients can tell a
// broken upstream from a deliberate refusal or a bad request.
func (s *Server) writeUpstreamError(w http.ResponseWriter, err error) {
	var apiErr *exchange.APIError
	if errors.As(err, &apiErr) {
		s.logger.Error().Err(err).Msg("exchange call failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.logger.Error().Err(err).Msg("request failed")
	writeError(w, http.StatusInternalServerError, err.Error())
}

func queryWithDefault(r *http.Request, key, def string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
