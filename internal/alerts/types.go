package alerts

import (
	"fmt"
	"time"
)

// RuleKind identifies the condition an alert rule watches for. The set
// is closed; the store schema enforces it with an enum column and the
// matcher never fires an unknown kind.
type RuleKind string

const (
	KindPriceAbove     RuleKind = "PRICE_ABOVE"
	KindPriceBelow     RuleKind = "PRICE_BELOW"
	KindPriceIncrease  RuleKind = "PRICE_INCREASE"
	KindPriceDecrease  RuleKind = "PRICE_DECREASE"
	KindHighVolatility RuleKind = "HIGH_VOLATILITY"
	KindTrendChange    RuleKind = "TREND_CHANGE"
)

// Valid reports whether the kind is a member of the closed set.
func (k RuleKind) Valid() bool {
	switch k {
	case KindPriceAbove, KindPriceBelow, KindPriceIncrease,
		KindPriceDecrease, KindHighVolatility, KindTrendChange:
		return true
	default:
		return false
	}
}

// PercentageBased reports whether the rule threshold is a percentage
// (0-100) rather than an absolute price.
func (k RuleKind) PercentageBased() bool {
	switch k {
	case KindPriceIncrease, KindPriceDecrease, KindHighVolatility, KindTrendChange:
		return true
	default:
		return false
	}
}

// minPriceThreshold is the smallest absolute price threshold accepted
// for PRICE_ABOVE / PRICE_BELOW rules.
const minPriceThreshold = 1e-6

// ValidateThreshold checks the per-kind threshold invariant. A violation
// is an ErrInvalidRule and must be rejected before persistence.
func ValidateThreshold(kind RuleKind, threshold float64) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown rule kind %q", ErrInvalidRule, kind)
	}
	if threshold <= 0 {
		return fmt.Errorf("%w: threshold must be positive, got %v", ErrInvalidRule, threshold)
	}

	if kind.PercentageBased() {
		if threshold > 100 {
			return fmt.Errorf("%w: percentage threshold cannot exceed 100, got %v", ErrInvalidRule, threshold)
		}
		return nil
	}

	if threshold < minPriceThreshold {
		return fmt.Errorf("%w: price threshold must be at least %v, got %v", ErrInvalidRule, minPriceThreshold, threshold)
	}
	return nil
}

// AlertRule is a user-owned condition over an asset's price, evaluated
// on every new price observation for that asset.
type AlertRule struct {
	ID                string     `json:"id"`
	OwnerID           string     `json:"owner_id"`
	Symbol            string     `json:"symbol"`
	Kind              RuleKind   `json:"kind"`
	Threshold         float64    `json:"threshold"`
	TimeWindowMinutes *int       `json:"time_window_minutes,omitempty"`
	IsActive          bool       `json:"is_active"`
	LastTriggeredAt   *time.Time `json:"last_triggered_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Lookback returns the rule's metric window, falling back to def when
// the rule has none configured. The same window doubles as the
// re-trigger cooldown length.
func (r *AlertRule) Lookback(def time.Duration) time.Duration {
	if r.TimeWindowMinutes == nil || *r.TimeWindowMinutes <= 0 {
		return def
	}
	return time.Duration(*r.TimeWindowMinutes) * time.Minute
}

// RulePatch enumerates the only fields the domain allows to change on an
// existing rule. Nil fields are left untouched.
type RulePatch struct {
	Threshold         *float64   `json:"threshold,omitempty"`
	TimeWindowMinutes *int       `json:"time_window_minutes,omitempty"`
	IsActive          *bool      `json:"is_active,omitempty"`
	LastTriggeredAt   *time.Time `json:"last_triggered_at,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p RulePatch) Empty() bool {
	return p.Threshold == nil && p.TimeWindowMinutes == nil &&
		p.IsActive == nil && p.LastTriggeredAt == nil
}

// Notification is the structured payload dispatched to a rule's owner
// when the rule fires.
type Notification struct {
	ID            string    `json:"id"`
	RuleID        string    `json:"rule_id"`
	OwnerID       string    `json:"owner_id"`
	Symbol        string    `json:"symbol"`
	CurrentPrice  float64   `json:"current_price"`
	Threshold     float64   `json:"threshold"`
	Kind          RuleKind  `json:"kind"`
	ChangePercent float64   `json:"change_percent"`
	TriggeredAt   time.Time `json:"triggered_at"`
}
