package market

import (
	"fmt"
	"math"
	"strconv"
)

// MinCandles is the minimum series length the strategy needs before the
// indicators produce anything meaningful.
const MinCandles = 20

// Candle is one normalized kline. Numeric fields that could not be parsed
// hold NaN rather than zero, so a bad tick is never mistaken for a free
// asset.
type Candle struct {
	OpenTime    int64   `json:"open_time"` // milliseconds since epoch
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
	CloseTime   int64   `json:"close_time"`
	QuoteVolume float64 `json:"quote_volume"`
	TradeCount  int64   `json:"trade_count"`
}

// Series is an ordered candle sequence, oldest first.
type Series []Candle

// Closes returns the closing prices of the series, oldest first.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

// Last returns the most recent candle. The second value is false for an
// empty series.
func (s Series) Last() (Candle, bool) {
	if len(s) == 0 {
		return Candle{}, false
	}
	return s[len(s)-1], true
}

// Normalize converts raw exchange kline records into a Series. Each record
// is a positional array: open time, open, high, low, close, volume, close
// time, quote volume, trade count, plus trailing fields we do not use.
// Records with fewer than six fields are skipped; malformed numeric values
// become NaN instead of aborting the batch.
func Normalize(raw [][]any) Series {
	series := make(Series, 0, len(raw))
	for _, rec := range raw {
		if len(rec) < 6 {
			continue
		}
		c := Candle{
			OpenTime: toMillis(rec[0]),
			Open:     toFloat(rec[1]),
			High:     toFloat(rec[2]),
			Low:      toFloat(rec[3]),
			Close:    toFloat(rec[4]),
			Volume:   toFloat(rec[5]),
		}
		if len(rec) > 6 {
			c.CloseTime = toMillis(rec[6])
		}
		if len(rec) > 7 {
			c.QuoteVolume = toFloat(rec[7])
		}
		if len(rec) > 8 {
			c.TradeCount = toMillis(rec[8])
		}
		series = append(series, c)
	}
	return series
}

// toFloat parses a kline field that may arrive as a JSON string or number.
// Anything unparseable maps to NaN.
func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case nil:
		return math.NaN()
	default:
		f, err := strconv.ParseFloat(fmt.Sprint(x), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}
}

// toMillis parses integer timestamp/count fields. JSON numbers decode as
// float64, so the common path is a straight truncation.
func toMillis(v any) int64 {
	switch x := v.(type) {
	case float64:
		return int64(x)
	case int64:
		return x
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
