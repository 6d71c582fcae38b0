package strategy

// emaSeries computes an exponential moving average over prices for every
// index, seeded with the first price and no bias adjustment. This matches
// the span-style EMA the signal rules were tuned against.
func emaSeries(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	if len(prices) == 0 {
		return out
	}
	multiplier := 2.0 / float64(period+1)
	ema := prices[0]
	out[0] = ema
	for i := 1; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
		out[i] = ema
	}
	return out
}

// rsi computes the Relative Strength Index of the last price using Wilder's
// smoothing: a simple average of gains and losses over the first window,
// then avg = (avg*(period-1) + change) / period for the remainder. Returns
// a neutral 50 when the series is too short for one full window.
func rsi(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		return 50.0
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			avgGain = (avgGain*float64(period-1) + change) / float64(period)
			avgLoss = (avgLoss * float64(period-1)) / float64(period)
		} else {
			avgGain = (avgGain * float64(period-1)) / float64(period)
			avgLoss = (avgLoss*float64(period-1) - change) / float64(period)
		}
	}

	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}
