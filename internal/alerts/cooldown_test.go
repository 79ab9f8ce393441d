package alerts

import (
	"testing"
	"time"
)

func TestCooldownExpired(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	window := 5

	tests := []struct {
		name          string
		lastTriggered *time.Time
		window        *int
		expired       bool
	}{
		{"Never triggered", nil, &window, true},
		{"No window configured", ptrTime(now.Add(-time.Second)), nil, true},
		{"Triggered 3m ago with 5m window", ptrTime(now.Add(-3 * time.Minute)), &window, false},
		{"Triggered 6m ago with 5m window", ptrTime(now.Add(-6 * time.Minute)), &window, true},
		{"Triggered exactly window ago", ptrTime(now.Add(-5 * time.Minute)), &window, true},
		{"Triggered just inside window", ptrTime(now.Add(-5*time.Minute + time.Second)), &window, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &AlertRule{
				LastTriggeredAt:   tt.lastTriggered,
				TimeWindowMinutes: tt.window,
			}
			if got := CooldownExpired(rule, now); got != tt.expired {
				t.Errorf("CooldownExpired() = %v, expected %v", got, tt.expired)
			}
		})
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
