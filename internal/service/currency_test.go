package service_test

import (
	"testing"

	"github.com/chihung1024/sheet-trading-journal-sub000/internal/service"
)

// TestCurrencyDetector tests domestic/foreign classification and the FX
// multiplier rule.
//
// WHY: Every valuation multiplies a price by the detector's answer; a
// misclassified suffix would silently convert TWD prices by the USD rate.
func TestCurrencyDetector(t *testing.T) {
	detector := service.NewCurrencyDetector("TWD", "USD")

	t.Run("classifies exchange suffixes", func(t *testing.T) {
		cases := []struct {
			symbol   string
			domestic bool
		}{
			{"2330.TW", true},
			{"0050.TW", true},
			{"6488.TWO", true},
			{"2330.tw", true}, // case-insensitive
			{"VOO", false},
			{"AAPL", false},
			{"TWTR", false}, // contains TW but no suffix match
		}

		for _, tc := range cases {
			if got := detector.IsBaseCurrency(tc.symbol); got != tc.domestic {
				t.Errorf("IsBaseCurrency(%q) = %v, expected %v", tc.symbol, got, tc.domestic)
			}
		}
	})

	t.Run("detects currency codes", func(t *testing.T) {
		if got := detector.Detect("2330.TW"); got != "TWD" {
			t.Errorf("Expected TWD for 2330.TW, got %s", got)
		}
		if got := detector.Detect("VOO"); got != "USD" {
			t.Errorf("Expected USD for VOO, got %s", got)
		}
	})

	t.Run("domestic multiplier is always 1", func(t *testing.T) {
		if got := detector.FXMultiplier("2330.TW", 31.5); got != 1.0 {
			t.Errorf("Expected 1.0, got %v", got)
		}
	})

	t.Run("foreign multiplier is the rate", func(t *testing.T) {
		if got := detector.FXMultiplier("VOO", 31.5); got != 31.5 {
			t.Errorf("Expected 31.5, got %v", got)
		}
	})

	t.Run("non-positive rate falls back to 1", func(t *testing.T) {
		if got := detector.FXMultiplier("VOO", 0); got != 1.0 {
			t.Errorf("Expected fallback 1.0, got %v", got)
		}
		if got := detector.FXMultiplier("VOO", -3); got != 1.0 {
			t.Errorf("Expected fallback 1.0, got %v", got)
		}
	})
}
