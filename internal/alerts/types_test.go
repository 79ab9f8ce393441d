package alerts

import (
	"errors"
	"testing"
	"time"
)

func TestValidateThreshold(t *testing.T) {
	tests := []struct {
		name      string
		kind      RuleKind
		threshold float64
		wantErr   bool
	}{
		{"Valid price above", KindPriceAbove, 50000, false},
		{"Valid tiny price", KindPriceBelow, 0.000001, false},
		{"Price below minimum", KindPriceAbove, 1e-9, true},
		{"Valid percentage", KindPriceIncrease, 2.5, false},
		{"Percentage at 100", KindHighVolatility, 100, false},
		{"Percentage over 100", KindPriceDecrease, 101, true},
		{"Zero threshold", KindTrendChange, 0, true},
		{"Negative threshold", KindPriceAbove, -5, true},
		{"Unknown kind", RuleKind("SENTIMENT"), 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateThreshold(tt.kind, tt.threshold)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateThreshold() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRule) {
				t.Errorf("ValidateThreshold() error = %v, expected ErrInvalidRule", err)
			}
		})
	}
}

func TestRuleLookback(t *testing.T) {
	def := 5 * time.Minute

	rule := &AlertRule{}
	if got := rule.Lookback(def); got != def {
		t.Errorf("Lookback() = %v, expected default %v", got, def)
	}

	window := 15
	rule.TimeWindowMinutes = &window
	if got := rule.Lookback(def); got != 15*time.Minute {
		t.Errorf("Lookback() = %v, expected 15m", got)
	}
}

func TestRulePatchEmpty(t *testing.T) {
	if !(RulePatch{}).Empty() {
		t.Error("Empty() = false for zero patch, expected true")
	}

	active := false
	if (RulePatch{IsActive: &active}).Empty() {
		t.Error("Empty() = true for patch with IsActive, expected false")
	}
}
