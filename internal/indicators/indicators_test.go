package indicators

import (
	"math"
	"testing"
)

func TestComputeMetrics(t *testing.T) {
	tests := []struct {
		name           string
		currentPrice   float64
		window         []float64
		expectedPrev   float64
		expectedChange float64
	}{
		{
			name:           "Rise against oldest point",
			currentPrice:   51000,
			window:         []float64{50500, 50200, 50000},
			expectedPrev:   50000,
			expectedChange: 2.0,
		},
		{
			name:           "Drop against oldest point",
			currentPrice:   95,
			window:         []float64{98, 100},
			expectedPrev:   100,
			expectedChange: -5.0,
		},
		{
			name:           "Empty window means no signal",
			currentPrice:   42000,
			window:         nil,
			expectedPrev:   42000,
			expectedChange: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ComputeMetrics(tt.currentPrice, tt.window)
			if m.PreviousPrice != tt.expectedPrev {
				t.Errorf("PreviousPrice = %v, expected %v", m.PreviousPrice, tt.expectedPrev)
			}
			if math.Abs(m.PercentageChange-tt.expectedChange) > 1e-9 {
				t.Errorf("PercentageChange = %v, expected %v", m.PercentageChange, tt.expectedChange)
			}
			if m.CurrentPrice != tt.currentPrice {
				t.Errorf("CurrentPrice = %v, expected %v", m.CurrentPrice, tt.currentPrice)
			}
		})
	}
}

func TestComputeMetricsSinglePoint(t *testing.T) {
	m := ComputeMetrics(100, []float64{100})
	if m.Volatility != 0 {
		t.Errorf("Volatility = %v, expected 0 for single point", m.Volatility)
	}
	if m.PercentageChange != 0 {
		t.Errorf("PercentageChange = %v, expected 0", m.PercentageChange)
	}
}

func TestVolatility(t *testing.T) {
	tests := []struct {
		name     string
		prices   []float64
		expected float64
	}{
		{
			// mean = 101.25, sample stddev ≈ 8.539, CV ≈ 8.43%
			name:     "Four point window",
			prices:   []float64{100, 110, 90, 105},
			expected: 8.434,
		},
		{
			name:     "Flat prices",
			prices:   []float64{100, 100, 100},
			expected: 0,
		},
		{
			name:     "Single point",
			prices:   []float64{100},
			expected: 0,
		},
		{
			name:     "Empty",
			prices:   nil,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Volatility(tt.prices)
			if math.Abs(got-tt.expected) > 0.001 {
				t.Errorf("Volatility(%v) = %v, expected %v", tt.prices, got, tt.expected)
			}
		})
	}
}

func TestTrendReversed(t *testing.T) {
	tests := []struct {
		name     string
		window   []float64
		expected bool
	}{
		{
			// old delta sign(12-9)=+1, new delta sign(10-12)=-1
			name:     "Reversal from rise to fall",
			window:   []float64{10, 12, 9},
			expected: true,
		},
		{
			name:     "Reversal from fall to rise",
			window:   []float64{12, 10, 11},
			expected: true,
		},
		{
			name:     "Continued uptrend",
			window:   []float64{12, 11, 10},
			expected: false,
		},
		{
			name:     "Flat older pair never counts",
			window:   []float64{11, 10, 10},
			expected: false,
		},
		{
			name:     "Two points",
			window:   []float64{10, 12},
			expected: false,
		},
		{
			name:     "Empty",
			window:   nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrendReversed(tt.window); got != tt.expected {
				t.Errorf("TrendReversed(%v) = %v, expected %v", tt.window, got, tt.expected)
			}
		})
	}
}

func TestAveragePrice(t *testing.T) {
	if got := AveragePrice([]float64{100, 110, 90, 105}); math.Abs(got-101.25) > 1e-9 {
		t.Errorf("AveragePrice = %v, expected 101.25", got)
	}
	if got := AveragePrice(nil); got != 0 {
		t.Errorf("AveragePrice(nil) = %v, expected 0", got)
	}
}
