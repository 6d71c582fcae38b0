package strategy

import (
	"reflect"
	"testing"

	"spotbot/internal/market"
)

func TestEvaluateNotEnoughData(t *testing.T) {
	tests := []struct {
		name  string
		count int
	}{
		{name: "empty series", count: 0},
		{name: "single candle", count: 1},
		{name: "one short of minimum", count: 19},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series := seriesFromCloses(flatCloses(tt.count, 100))

			sig := Evaluate(series)
			if sig.Kind != Hold {
				t.Errorf("Evaluate() kind = %v, want HOLD", sig.Kind)
			}
			if sig.Reason != "not enough data" {
				t.Errorf("Evaluate() reason = %q, want %q", sig.Reason, "not enough data")
			}
			if sig.Price != nil || sig.EMA != nil || sig.RSI != nil {
				t.Errorf("Evaluate() degenerate HOLD must carry no evidence, got %+v", sig)
			}
		})
	}
}

func TestEvaluateHoldCarriesEvidence(t *testing.T) {
	series := seriesFromCloses(flatCloses(40, 100))

	sig := Evaluate(series)
	if sig.Kind != Hold {
		t.Fatalf("Evaluate() kind = %v, want HOLD", sig.Kind)
	}
	if sig.Price == nil || sig.EMA == nil || sig.RSI == nil {
		t.Fatalf("Evaluate() non-degenerate HOLD must carry evidence, got %+v", sig)
	}
	if *sig.Price != 100 {
		t.Errorf("price = %v, want 100", *sig.Price)
	}
	if *sig.EMA != 100 {
		t.Errorf("ema = %v, want 100", *sig.EMA)
	}
}

func TestEvaluateBuyCrossover(t *testing.T) {
	// A steep sell-off keeps the RSI oversold, a long drift lets the EMA
	// close most of the gap, then one green candle crosses back above it.
	closes := declineDriftPop(2.0)

	sig := Evaluate(seriesFromCloses(closes))
	if sig.Kind != Buy {
		t.Fatalf("Evaluate() kind = %v, want BUY (rsi=%v)", sig.Kind, sig.RSI)
	}
	if sig.RSI == nil || *sig.RSI >= 30 {
		t.Errorf("BUY must be confirmed by oversold RSI, got %v", sig.RSI)
	}
	if sig.Price == nil || sig.EMA == nil || *sig.Price <= *sig.EMA {
		t.Errorf("BUY requires close above EMA, got price=%v ema=%v", sig.Price, sig.EMA)
	}
}

func TestEvaluateBuyNotTriggeredWhenRSITooHigh(t *testing.T) {
	// Same crossover shape, but a larger pop pushes the RSI past 30.
	closes := declineDriftPop(3.0)

	sig := Evaluate(seriesFromCloses(closes))
	if sig.Kind != Hold {
		t.Fatalf("Evaluate() kind = %v, want HOLD", sig.Kind)
	}
	if sig.RSI == nil || *sig.RSI < 30 {
		t.Fatalf("test premise broken, RSI should exceed 30, got %v", sig.RSI)
	}
}

func TestEvaluateSellCrossover(t *testing.T) {
	closes := riseDriftDrop(2.0)

	sig := Evaluate(seriesFromCloses(closes))
	if sig.Kind != Sell {
		t.Fatalf("Evaluate() kind = %v, want SELL (rsi=%v)", sig.Kind, sig.RSI)
	}
	if sig.RSI == nil || *sig.RSI <= 70 {
		t.Errorf("SELL must be confirmed by overbought RSI, got %v", sig.RSI)
	}
	if sig.Price == nil || sig.EMA == nil || *sig.Price >= *sig.EMA {
		t.Errorf("SELL requires close below EMA, got price=%v ema=%v", sig.Price, sig.EMA)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	series := seriesFromCloses(declineDriftPop(2.0))

	first := Evaluate(series)
	for i := 0; i < 5; i++ {
		if got := Evaluate(series); !reflect.DeepEqual(got, first) {
			t.Fatalf("Evaluate() not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestBuySellMutuallyExclusive(t *testing.T) {
	// A BUY and a SELL both need a crossover, and a crossover has exactly
	// one direction. Probe a spread of shapes and count verdicts.
	shapes := [][]float64{
		flatCloses(40, 100),
		declineDriftPop(2.0),
		declineDriftPop(3.0),
		riseDriftDrop(2.0),
		riseDriftDrop(3.0),
		rampCloses(40, 100, 1.5),
		rampCloses(40, 200, -1.5),
	}

	for _, closes := range shapes {
		ema := emaSeries(closes, emaPeriod)
		r := rsi(closes, rsiPeriod)
		last := len(closes) - 1
		prev := last - 1

		buy := closes[prev] < ema[prev] && closes[last] > ema[last] && r < rsiOversold
		sell := closes[prev] > ema[prev] && closes[last] < ema[last] && r > rsiOverbought
		if buy && sell {
			t.Fatalf("BUY and SELL conditions both hold for closes ending %v", closes[len(closes)-3:])
		}
	}
}

// seriesFromCloses builds a minimal candle series around closing prices,
// one minute apart.
func seriesFromCloses(closes []float64) market.Series {
	series := make(market.Series, len(closes))
	for i, c := range closes {
		series[i] = market.Candle{
			OpenTime: int64(i) * 60_000,
			Open:     c,
			High:     c,
			Low:      c,
			Close:    c,
			Volume:   1,
		}
	}
	return series
}

func flatCloses(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func rampCloses(n int, start, step float64) []float64 {
	out := make([]float64, n)
	p := start
	for i := range out {
		out[i] = p
		p += step
	}
	return out
}

// declineDriftPop sells off hard, drifts sideways long enough for the EMA
// to catch up, then closes one candle `pop` above the drift.
func declineDriftPop(pop float64) []float64 {
	closes := []float64{100}
	for i := 0; i < 15; i++ {
		closes = append(closes, closes[len(closes)-1]-4)
	}
	for i := 0; i < 30; i++ {
		closes = append(closes, closes[len(closes)-1]-0.05)
	}
	return append(closes, closes[len(closes)-1]+pop)
}

// riseDriftDrop is the mirror image of declineDriftPop.
func riseDriftDrop(drop float64) []float64 {
	closes := []float64{100}
	for i := 0; i < 15; i++ {
		closes = append(closes, closes[len(closes)-1]+4)
	}
	for i := 0; i < 30; i++ {
		closes = append(closes, closes[len(closes)-1]+0.05)
	}
	return append(closes, closes[len(closes)-1]-drop)
}
