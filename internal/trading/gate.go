package trading

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"spotbot/internal/exchange"
)

// ErrInvalidSide rejects order sides other than BUY and SELL.
var ErrInvalidSide = errors.New("side must be BUY or SELL")

// RefusalTestOrdersDisabled is the reason reported when the global test
// order switch is off. It dominates every other flag.
const RefusalTestOrdersDisabled = "USE_TEST_ORDER is false — refusing to execute orders"

// OrderIntent is the order we would place, before the safety gates have
// had their say.
type OrderIntent struct {
	Symbol      string   `json:"symbol"`
	Side        string   `json:"side"`
	Type        string   `json:"type"`
	Quantity    float64  `json:"quantity"`
	Price       *float64 `json:"price"`
	TimeInForce string   `json:"timeInForce"`
}

// ExecutionDecision reports whether the intent was realized and why not
// when it was not. A refusal is a normal outcome, not an error.
type ExecutionDecision struct {
	Executed bool                  `json:"executed"`
	DryRun   bool                  `json:"dry_run"`
	Reason   string                `json:"reason,omitempty"`
	Intent   OrderIntent           `json:"intended_payload"`
	Result   *exchange.OrderResult `json:"exchange_result,omitempty"`
	TradeID  int64                 `json:"trade_id,omitempty"`
}

// NormalizeSide upper-cases the requested side and rejects anything that
// is not BUY or SELL.
func NormalizeSide(side string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(side))
	if s != exchange.SideBuy && s != exchange.SideSell {
		return "", ErrInvalidSide
	}
	return s, nil
}

// SizeQuantity converts a quote-currency spend amount into a base quantity
// at the given price, rounded to 8 decimal places to satisfy lot-size
// conventions. Decimal arithmetic keeps 10/25000 at exactly 0.0004.
func SizeQuantity(spendQuote, lastPrice float64) float64 {
	qty := decimal.NewFromFloat(spendQuote).
		Div(decimal.NewFromFloat(lastPrice)).
		Round(8)
	return qty.InexactFloat64()
}

// DecideAndExecute runs the intent through the safety gates and, when all
// of them pass, submits it to the exchange as a test order and records the
// trade. Gate order is fixed: the global test-order switch first, then the
// dry-run switch unless the caller forced this one call.
func (t *Trader) DecideAndExecute(ctx context.Context, intent OrderIntent, force bool) (*ExecutionDecision, error) {
	side, err := NormalizeSide(intent.Side)
	if err != nil {
		return nil, err
	}
	intent.Side = side

	if intent.Type == "" {
		intent.Type = exchange.TypeMarket
	}
	intent.Type = strings.ToUpper(intent.Type)
	if intent.TimeInForce == "" {
		intent.TimeInForce = exchange.TimeInForceGTC
	}

	if !t.allowTestOrders {
		t.logger.Warn().Str("symbol", intent.Symbol).Str("side", intent.Side).Msg("refusing order, test orders disabled")
		return &ExecutionDecision{
			Executed: false,
			DryRun:   true,
			Reason:   RefusalTestOrdersDisabled,
			Intent:   intent,
		}, nil
	}

	if t.dryRun && !force {
		t.logger.Info().Str("symbol", intent.Symbol).Str("side", intent.Side).Msg("dry run, order not sent")
		return &ExecutionDecision{
			Executed: false,
			DryRun:   true,
			Intent:   intent,
		}, nil
	}

	params := exchange.OrderParams{
		Symbol:      intent.Symbol,
		Side:        intent.Side,
		Type:        intent.Type,
		Quantity:    intent.Quantity,
		TimeInForce: intent.TimeInForce,
	}
	if intent.Price != nil {
		params.Price = *intent.Price
	}

	result, err := t.client.CreateOrder(ctx, params, true)
	if err != nil {
		return nil, fmt.Errorf("order placement failed: %w", err)
	}

	decision := &ExecutionDecision{
		Executed: true,
		DryRun:   false,
		Intent:   intent,
		Result:   result,
	}

	if t.recorder != nil {
		rec, err := t.recorder.SaveTrade(ctx, intent.Symbol, intent.Side, intent.Quantity, intent.Price, "submitted", string(result.Raw))
		if err != nil {
			t.logger.Error().Err(err).Msg("failed to record trade")
		} else {
			decision.TradeID = rec.ID
		}
	}

	return decision, nil
}
