package alerts

import (
	"math"
	"testing"

	"github.com/pricewatch/crypto-alerts-backend/internal/indicators"
)

func TestMatchPriceLevels(t *testing.T) {
	tests := []struct {
		name         string
		kind         RuleKind
		threshold    float64
		currentPrice float64
		fired        bool
	}{
		{"Above fires at threshold", KindPriceAbove, 50000, 50000, true},
		{"Above fires over threshold", KindPriceAbove, 50000, 51000, true},
		{"Above stays silent below", KindPriceAbove, 50000, 49999.99, false},
		{"Below fires at threshold", KindPriceBelow, 50000, 50000, true},
		{"Below fires under threshold", KindPriceBelow, 50000, 48000, true},
		{"Below stays silent above", KindPriceBelow, 50000, 50000.01, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &AlertRule{Kind: tt.kind, Threshold: tt.threshold}
			fired, _ := Match(rule, tt.currentPrice, indicators.Metrics{}, false)
			if fired != tt.fired {
				t.Errorf("Match() fired = %v, expected %v", fired, tt.fired)
			}
		})
	}
}

func TestMatchPriceAboveChangePercent(t *testing.T) {
	rule := &AlertRule{Kind: KindPriceAbove, Threshold: 50000}
	fired, change := Match(rule, 51000, indicators.Metrics{}, false)
	if !fired {
		t.Fatal("Match() fired = false, expected true")
	}
	if math.Abs(change-2.0) > 0.0001 {
		t.Errorf("Match() change = %v, expected 2.0", change)
	}
}

func TestMatchPercentageChange(t *testing.T) {
	tests := []struct {
		name      string
		kind      RuleKind
		threshold float64
		change    float64
		fired     bool
		reported  float64
	}{
		{"Increase fires at threshold", KindPriceIncrease, 2.0, 2.0, true, 2.0},
		{"Increase fires above threshold", KindPriceIncrease, 2.0, 3.5, true, 3.5},
		{"Increase ignores drops", KindPriceIncrease, 2.0, -5.0, false, -5.0},
		{"Decrease fires on drop", KindPriceDecrease, 2.0, -2.5, true, 2.5},
		{"Decrease ignores rallies", KindPriceDecrease, 2.0, 3.0, false, 3.0},
		{"Decrease stays silent on small drop", KindPriceDecrease, 2.0, -1.9, false, 1.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &AlertRule{Kind: tt.kind, Threshold: tt.threshold}
			m := indicators.Metrics{PercentageChange: tt.change}
			fired, reported := Match(rule, 100, m, false)
			if fired != tt.fired {
				t.Errorf("Match() fired = %v, expected %v", fired, tt.fired)
			}
			if math.Abs(reported-tt.reported) > 0.0001 {
				t.Errorf("Match() change = %v, expected %v", reported, tt.reported)
			}
		})
	}
}

func TestMatchHighVolatility(t *testing.T) {
	rule := &AlertRule{Kind: KindHighVolatility, Threshold: 5.0}

	fired, reported := Match(rule, 100, indicators.Metrics{Volatility: 8.43}, false)
	if !fired {
		t.Error("Match() fired = false, expected true for volatility above threshold")
	}
	if math.Abs(reported-8.43) > 0.0001 {
		t.Errorf("Match() change = %v, expected 8.43", reported)
	}

	fired, _ = Match(rule, 100, indicators.Metrics{Volatility: 4.99}, false)
	if fired {
		t.Error("Match() fired = true, expected false for volatility below threshold")
	}
}

func TestMatchTrendChange(t *testing.T) {
	rule := &AlertRule{Kind: KindTrendChange, Threshold: 1.0}

	tests := []struct {
		name     string
		reversed bool
		change   float64
		fired    bool
	}{
		{"Reversal with magnitude fires", true, -1.5, true},
		{"Reversal below magnitude stays silent", true, 0.5, false},
		{"Magnitude without reversal stays silent", false, 3.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := indicators.Metrics{PercentageChange: tt.change}
			fired, _ := Match(rule, 100, m, tt.reversed)
			if fired != tt.fired {
				t.Errorf("Match() fired = %v, expected %v", fired, tt.fired)
			}
		})
	}
}

func TestMatchUnknownKindNeverFires(t *testing.T) {
	rule := &AlertRule{Kind: RuleKind("MOON_PHASE"), Threshold: 1}
	fired, change := Match(rule, 100, indicators.Metrics{PercentageChange: 50}, true)
	if fired || change != 0 {
		t.Errorf("Match() = (%v, %v), expected (false, 0)", fired, change)
	}
}
