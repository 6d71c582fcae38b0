package trading

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"spotbot/internal/exchange"
	"spotbot/internal/strategy"
)

// rawKlines builds exchange-shaped positional records around closing
// prices, one minute apart.
func rawKlines(closes []float64) [][]any {
	raw := make([][]any, len(closes))
	for i, c := range closes {
		s := strconv.FormatFloat(c, 'f', -1, 64)
		raw[i] = []any{float64(i * 60_000), s, s, s, s, "1"}
	}
	return raw
}

// buyCloses mirrors the strategy package's BUY fixture: sell off, drift,
// pop back above the EMA with the RSI still oversold.
func buyCloses() []float64 {
	closes := []float64{100}
	for i := 0; i < 15; i++ {
		closes = append(closes, closes[len(closes)-1]-4)
	}
	for i := 0; i < 30; i++ {
		closes = append(closes, closes[len(closes)-1]-0.05)
	}
	return append(closes, closes[len(closes)-1]+2)
}

func flat(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func TestEvaluateSignalPropagatesUpstreamFailure(t *testing.T) {
	ex := &spyExchange{klinesErr: &exchange.APIError{Status: 429, Body: "rate limited"}}
	trader := New(ex, nil, Options{AllowTestOrders: true, DryRun: true, SpendQuote: 10})

	_, err := trader.EvaluateSignal(context.Background(), "BTCUSDT", "1m")
	if err == nil {
		t.Fatal("expected upstream failure, got nil")
	}
	var apiErr *exchange.APIError
	if !errors.As(err, &apiErr) {
		t.Errorf("error %v should wrap the upstream APIError, not collapse into a signal", err)
	}
}

func TestEvaluateSignalShortHistory(t *testing.T) {
	ex := &spyExchange{klines: rawKlines(flat(19, 100))}
	trader := New(ex, nil, Options{AllowTestOrders: true, DryRun: true, SpendQuote: 10})

	sig, err := trader.EvaluateSignal(context.Background(), "BTCUSDT", "1m")
	if err != nil {
		t.Fatalf("short history must not be an error, got %v", err)
	}
	if sig.Kind != strategy.Hold || sig.Reason != "not enough data" {
		t.Errorf("signal = %+v, want degenerate HOLD", sig)
	}
}

func TestRunSignalAndPlaceHold(t *testing.T) {
	ex := &spyExchange{klines: rawKlines(flat(40, 100))}
	rec := &spyRecorder{}
	trader := New(ex, rec, Options{AllowTestOrders: true, DryRun: false, SpendQuote: 10})

	result, err := trader.RunSignalAndPlace(context.Background(), "BTCUSDT", "1m")
	if err != nil {
		t.Fatalf("RunSignalAndPlace() error = %v", err)
	}
	if result.Action != "hold" {
		t.Errorf("action = %q, want hold", result.Action)
	}
	if ex.orderCalls != 0 || rec.calls != 0 {
		t.Errorf("HOLD must not touch the exchange or recorder (orders=%d records=%d)", ex.orderCalls, rec.calls)
	}
}

func TestRunSignalAndPlaceBuy(t *testing.T) {
	closes := buyCloses()
	ex := &spyExchange{klines: rawKlines(closes)}
	rec := &spyRecorder{}
	trader := New(ex, rec, Options{AllowTestOrders: true, DryRun: false, SpendQuote: 10})

	result, err := trader.RunSignalAndPlace(context.Background(), "BTCUSDT", "1m")
	if err != nil {
		t.Fatalf("RunSignalAndPlace() error = %v", err)
	}
	if result.Action != "buy" {
		t.Fatalf("action = %q, want buy (signal %+v)", result.Action, result.Signal)
	}

	lastPrice := closes[len(closes)-1]
	wantQty := SizeQuantity(10, lastPrice)
	if result.Quantity != wantQty {
		t.Errorf("quantity = %v, want %v", result.Quantity, wantQty)
	}
	if result.Price != lastPrice {
		t.Errorf("price = %v, want %v", result.Price, lastPrice)
	}
	if ex.orderCalls != 1 {
		t.Errorf("exchange called %d times, want 1", ex.orderCalls)
	}
	if !ex.lastTest {
		t.Error("order must go to the test endpoint")
	}
	if rec.calls != 1 {
		t.Errorf("recorder called %d times, want 1", rec.calls)
	}
	if result.Decision == nil || !result.Decision.Executed {
		t.Errorf("decision = %+v, want executed", result.Decision)
	}
}

func TestRunSignalAndPlaceRespectsDryRun(t *testing.T) {
	ex := &spyExchange{klines: rawKlines(buyCloses())}
	rec := &spyRecorder{}
	trader := New(ex, rec, Options{AllowTestOrders: true, DryRun: true, SpendQuote: 10})

	result, err := trader.RunSignalAndPlace(context.Background(), "BTCUSDT", "1m")
	if err != nil {
		t.Fatalf("RunSignalAndPlace() error = %v", err)
	}
	if result.Action != "buy" {
		t.Fatalf("action = %q, want buy", result.Action)
	}
	if result.Decision == nil || result.Decision.Executed || !result.Decision.DryRun {
		t.Errorf("decision = %+v, want dry-run refusal", result.Decision)
	}
	if ex.orderCalls != 0 || rec.calls != 0 {
		t.Errorf("dry run must not touch the exchange or recorder (orders=%d records=%d)", ex.orderCalls, rec.calls)
	}
}
