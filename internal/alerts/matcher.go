package alerts

import (
	"math"

	"github.com/pricewatch/crypto-alerts-backend/internal/indicators"
)

// Match decides whether a rule fires against the current price and the
// metrics of its lookback window, and computes the change percent the
// notification reports. Evaluated exactly once per rule per observation;
// an unknown kind never fires.
func Match(rule *AlertRule, currentPrice float64, m indicators.Metrics, trendReversed bool) (bool, float64) {
	switch rule.Kind {
	case KindPriceAbove:
		fired := currentPrice >= rule.Threshold
		return fired, (currentPrice - rule.Threshold) / rule.Threshold * 100

	case KindPriceBelow:
		fired := currentPrice <= rule.Threshold
		return fired, (rule.Threshold - currentPrice) / rule.Threshold * 100

	case KindPriceIncrease:
		return m.PercentageChange >= rule.Threshold, m.PercentageChange

	case KindPriceDecrease:
		return m.PercentageChange <= -rule.Threshold, math.Abs(m.PercentageChange)

	case KindHighVolatility:
		return m.Volatility >= rule.Threshold, m.Volatility

	case KindTrendChange:
		fired := trendReversed && math.Abs(m.PercentageChange) >= rule.Threshold
		return fired, math.Abs(m.PercentageChange)

	default:
		return false, 0
	}
}
