package advisor

import "math"

const (
	emaSpan   = 5
	rsiPeriod = 14
)

// Indicators summarizes the rolling window for one symbol. Despite the name,
// EMA is the simple mean of the trailing emaSpan samples, not an exponentially
// weighted average.
type Indicators struct {
	EMA        float64
	RSI        float64
	Momentum   float64
	Volatility float64
	AvgVolume  float64
	Samples    int
}

func mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	var sum float64
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// stdDev returns the population standard deviation.
func stdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	m := mean(data)
	var variance float64
	for _, v := range data {
		d := v - m
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(data)))
}

// movingAverage returns the simple mean of the trailing span samples.
func movingAverage(data []float64, span int) (float64, bool) {
	if len(data) < span {
		return 0, false
	}
	return mean(data[len(data)-span:]), true
}

// relativeStrength computes RSI over the trailing period using a Wilder-style
// gain/loss split of successive differences. A window with zero cumulative
// losses reads as 100.
func relativeStrength(prices []float64, period int) (float64, bool) {
	if len(prices) < period {
		return 0, false
	}
	window := prices[len(prices)-period:]
	var gains, losses float64
	for i := 1; i < len(window); i++ {
		delta := window[i] - window[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	if losses == 0 {
		return 100, true
	}
	rs := gains / losses
	return 100 - 100/(1+rs), true
}
