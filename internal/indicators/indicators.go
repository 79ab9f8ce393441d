package indicators

import (
	"math"
)

// Metrics holds price metrics derived over a lookback window.
// Values are computed at evaluation time and never persisted.
type Metrics struct {
	CurrentPrice     float64 `json:"current_price"`
	PreviousPrice    float64 `json:"previous_price"`
	PercentageChange float64 `json:"percentage_change"`
	Volatility       float64 `json:"volatility"`
}

// ComputeMetrics derives percentage change and volatility from a price
// window ordered newest first. The reference price is the oldest point in
// the window; an empty window carries no signal, so the previous price
// falls back to the current price and both change and volatility are 0.
func ComputeMetrics(currentPrice float64, window []float64) Metrics {
	previousPrice := currentPrice
	if len(window) > 0 {
		previousPrice = window[len(window)-1]
	}

	percentageChange := 0.0
	if previousPrice != 0 {
		percentageChange = (currentPrice - previousPrice) / previousPrice * 100
	}

	return Metrics{
		CurrentPrice:     currentPrice,
		PreviousPrice:    previousPrice,
		PercentageChange: percentageChange,
		Volatility:       Volatility(window),
	}
}

// Volatility returns the coefficient of variation of the prices as a
// percentage: sample standard deviation (unbiased, n-1 divisor) over the
// mean. Fewer than two points return 0.
func Volatility(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}

	mean := 0.0
	for _, p := range prices {
		mean += p
	}
	mean /= float64(len(prices))

	if mean == 0 {
		return 0
	}

	sumSquares := 0.0
	for _, p := range prices {
		diff := p - mean
		sumSquares += diff * diff
	}
	variance := sumSquares / float64(len(prices)-1)

	return math.Sqrt(variance) / mean * 100
}

// TrendReversed reports whether the direction of price movement flipped
// between the two most recent deltas of the window (newest first). The
// older delta must be nonzero. Fewer than three points is never a
// reversal.
func TrendReversed(window []float64) bool {
	if len(window) < 3 {
		return false
	}

	oldTrend := sign(window[1] - window[2])
	newTrend := sign(window[0] - window[1])

	return oldTrend != newTrend && oldTrend != 0
}

// AveragePrice returns the arithmetic mean of the prices, 0 when empty.
func AveragePrice(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}

	sum := 0.0
	for _, p := range prices {
		sum += p
	}
	return sum / float64(len(prices))
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
