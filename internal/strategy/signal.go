package strategy

import "spotbot/internal/market"

// Indicator parameters the crossover rules were written for.
const (
	emaPeriod = 20
	rsiPeriod = 14
)

// RSI thresholds confirming a crossover.
const (
	rsiOversold   = 30.0
	rsiOverbought = 70.0
)

// Kind is the trading action a signal recommends.
type Kind string

const (
	Buy  Kind = "BUY"
	Sell Kind = "SELL"
	Hold Kind = "HOLD"
)

// Signal is the engine's verdict for one series, with the evidence that
// produced it. Evidence fields are absent on a degenerate HOLD.
type Signal struct {
	Kind   Kind     `json:"signal"`
	Reason string   `json:"reason,omitempty"`
	Price  *float64 `json:"price,omitempty"`
	EMA    *float64 `json:"ema,omitempty"`
	RSI    *float64 `json:"rsi,omitempty"`
}

// Evaluate runs the EMA-crossover strategy over a candle series, oldest
// first. Fewer than market.MinCandles candles is not an error: the result
// is a HOLD explaining that there is not enough data.
//
// BUY: previous close below its EMA, last close above, RSI oversold.
// SELL: previous close above its EMA, last close below, RSI overbought.
// The two conditions are mutually exclusive; BUY is checked first.
func Evaluate(series market.Series) Signal {
	if len(series) < market.MinCandles {
		return Signal{Kind: Hold, Reason: "not enough data"}
	}

	closes := series.Closes()
	ema := emaSeries(closes, emaPeriod)

	last := len(closes) - 1
	prev := last - 1

	price := closes[last]
	lastEMA := ema[last]
	lastRSI := rsi(closes, rsiPeriod)

	sig := Signal{Kind: Hold, Price: &price, EMA: &lastEMA, RSI: &lastRSI}

	if closes[prev] < ema[prev] && price > lastEMA && lastRSI < rsiOversold {
		sig.Kind = Buy
		return sig
	}

	if closes[prev] > ema[prev] && price < lastEMA && lastRSI > rsiOverbought {
		sig.Kind = Sell
		return sig
	}

	return sig
}
