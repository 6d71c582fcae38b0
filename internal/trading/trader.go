// Package trading turns signals into (possibly refused) exchange orders.
// The Trader owns the execution-gating flags and the spend sizing; the
// signal math itself lives in the strategy package.
package trading

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"spotbot/internal/exchange"
	"spotbot/internal/market"
	"spotbot/internal/storage"
	"spotbot/internal/strategy"
)

// ExchangeClient is the slice of the exchange API the trader needs.
type ExchangeClient interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([][]any, error)
	CreateOrder(ctx context.Context, p exchange.OrderParams, test bool) (*exchange.OrderResult, error)
}

// Recorder appends trade records. Implemented by storage.DB.
type Recorder interface {
	SaveTrade(ctx context.Context, symbol, side string, quantity float64, price *float64, status, details string) (*storage.TradeRecord, error)
}

// Options configures a Trader.
type Options struct {
	AllowTestOrders bool
	DryRun          bool
	SpendQuote      float64
}

// Trader wires the exchange client, the recorder and the safety flags
// into one pipeline entry point.
type Trader struct {
	client          ExchangeClient
	recorder        Recorder
	allowTestOrders bool
	dryRun          bool
	spendQuote      float64
	logger          zerolog.Logger
}

// New creates a Trader. The recorder may be nil, in which case executed
// trades are only logged.
func New(client ExchangeClient, recorder Recorder, opts Options) *Trader {
	return &Trader{
		client:          client,
		recorder:        recorder,
		allowTestOrders: opts.AllowTestOrders,
		dryRun:          opts.DryRun,
		spendQuote:      opts.SpendQuote,
		logger:          log.With().Str("component", "trader").Logger(),
	}
}

// klineFetchLimit leaves the strategy plenty of history beyond its
// 20-candle minimum.
const klineFetchLimit = 100

// EvaluateSignal fetches fresh candles and runs the strategy over them.
func (t *Trader) EvaluateSignal(ctx context.Context, symbol, interval string) (strategy.Signal, error) {
	series, err := t.fetchSeries(ctx, symbol, interval)
	if err != nil {
		return strategy.Signal{}, err
	}
	return strategy.Evaluate(series), nil
}

// RunResult is the outcome of one evaluate-and-maybe-trade cycle.
type RunResult struct {
	Signal   strategy.Signal    `json:"signal"`
	Action   string             `json:"action"`
	Quantity float64            `json:"quantity,omitempty"`
	Price    float64            `json:"price,omitempty"`
	Decision *ExecutionDecision `json:"decision,omitempty"`
}

// RunSignalAndPlace evaluates the strategy and, on a BUY or SELL, sizes an
// order from the configured spend amount and pushes it through the
// execution gates. A HOLD yields action "hold" and no order activity.
func (t *Trader) RunSignalAndPlace(ctx context.Context, symbol, interval string) (*RunResult, error) {
	series, err := t.fetchSeries(ctx, symbol, interval)
	if err != nil {
		return nil, err
	}

	sig := strategy.Evaluate(series)
	result := &RunResult{Signal: sig, Action: "hold"}

	if sig.Kind != strategy.Buy && sig.Kind != strategy.Sell {
		return result, nil
	}

	last, ok := series.Last()
	if !ok {
		return result, nil
	}

	lastPrice := last.Close
	qty := SizeQuantity(t.spendQuote, lastPrice)

	intent := OrderIntent{
		Symbol:   symbol,
		Side:     string(sig.Kind),
		Type:     exchange.TypeMarket,
		Quantity: qty,
	}

	decision, err := t.DecideAndExecute(ctx, intent, false)
	if err != nil {
		return nil, err
	}

	result.Action = "buy"
	if sig.Kind == strategy.Sell {
		result.Action = "sell"
	}
	result.Quantity = qty
	result.Price = lastPrice
	result.Decision = decision
	return result, nil
}

func (t *Trader) fetchSeries(ctx context.Context, symbol, interval string) (market.Series, error) {
	raw, err := t.client.GetKlines(ctx, symbol, interval, klineFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("fetching klines: %w", err)
	}
	return market.Normalize(raw), nil
}
