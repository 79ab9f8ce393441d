package alerts

import "time"

// CooldownExpired reports whether a rule may trigger again at now. A
// rule with no previous trigger or no configured window is always
// allowed; otherwise the full window must have elapsed since the last
// trigger, independent of whether the condition is still true.
func CooldownExpired(rule *AlertRule, now time.Time) bool {
	if rule.LastTriggeredAt == nil || rule.TimeWindowMinutes == nil {
		return true
	}

	minimumInterval := time.Duration(*rule.TimeWindowMinutes) * time.Minute
	return now.Sub(*rule.LastTriggeredAt) >= minimumInterval
}
