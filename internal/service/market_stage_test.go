package service_test

import (
	"testing"
	"time"

	"github.com/chihung1024/sheet-trading-journal-sub000/internal/service"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/testutil"
)

func detectorAt(t *testing.T, utc string) *service.MarketStageDetector {
	t.Helper()

	instant, err := time.Parse(time.RFC3339, utc)
	if err != nil {
		t.Fatalf("Bad test instant %q: %v", utc, err)
	}
	detector, err := service.NewMarketStageDetectorWithClock(testutil.FixedClock(instant))
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}
	return detector
}

// TestMarketStageDetector_CurrentStage tests the session classification
// cascade across both exchange time zones.
//
// WHY: Stage detection decides which valuation dates every position is marked
// against; each instant below pins one branch of the cascade. 2024-03-04..08
// is a plain week with the US still on standard time (UTC-5).
func TestMarketStageDetector_CurrentStage(t *testing.T) {
	cases := []struct {
		name     string
		utc      string
		expected service.MarketStage
	}{
		// 10:00 Wednesday in Taipei.
		{"taiwan session trading", "2024-03-06T02:00:00Z", service.StageTWTrading},
		// 10:00 Wednesday in New York (EST), 23:00 in Taipei.
		{"us session trading", "2024-03-06T15:00:00Z", service.StageUSTrading},
		// 08:00 Wednesday in Taipei, before the 09:00 open.
		{"taiwan pre-open", "2024-03-06T00:00:00Z", service.StageTWPreOpen},
		// 14:00 Wednesday in Taipei (closed 13:30), 01:00 in New York.
		{"taiwan closed us not yet open", "2024-03-06T06:00:00Z", service.StageTWPostClose},
		// 16:30 Friday in New York, Saturday morning in Taipei.
		{"us post-close", "2024-03-08T21:30:00Z", service.StageUSPostClose},
		// Sunday morning in Taipei, Saturday evening in New York.
		{"weekend all closed", "2024-03-09T23:00:00Z", service.StageAllClosed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			detector := detectorAt(t, tc.utc)

			stage, description, _, _ := detector.CurrentStage()

			if stage != tc.expected {
				t.Errorf("Expected stage %s, got %s (%s)", tc.expected, stage, description)
			}
			if description == "" {
				t.Error("Expected a non-empty description")
			}
		})
	}
}

// TestMarketStageDetector_PreviousTradingDay tests weekend skipping.
func TestMarketStageDetector_PreviousTradingDay(t *testing.T) {
	detector := detectorAt(t, "2024-03-06T02:00:00Z")

	t.Run("monday walks back to friday", func(t *testing.T) {
		got := detector.PreviousTradingDay(testutil.Date("2024-03-11"))

		if !got.Equal(testutil.Date("2024-03-08")) {
			t.Errorf("Expected 2024-03-08, got %s", got.Format("2006-01-02"))
		}
	})

	t.Run("midweek walks back one day", func(t *testing.T) {
		got := detector.PreviousTradingDay(testutil.Date("2024-03-06"))

		if !got.Equal(testutil.Date("2024-03-05")) {
			t.Errorf("Expected 2024-03-05, got %s", got.Format("2006-01-02"))
		}
	})
}

// TestMarketStageDetector_ValuationDates tests the t0/t1 pairing rule.
//
// WHY: Price and FX observations must come from the same date pair; the rule
// that t1 only advances once the market's own session has opened is what
// keeps a pre-open morning from mixing today's FX with yesterday's close.
func TestMarketStageDetector_ValuationDates(t *testing.T) {
	t.Run("domestic session open advances t1 to today", func(t *testing.T) {
		// 10:00 Wednesday in Taipei.
		detector := detectorAt(t, "2024-03-06T02:00:00Z")

		t0, t1 := detector.ValuationDates(true)

		if !t1.Equal(testutil.Date("2024-03-06")) {
			t.Errorf("Expected t1 2024-03-06, got %s", t1.Format("2006-01-02"))
		}
		if !t0.Equal(testutil.Date("2024-03-05")) {
			t.Errorf("Expected t0 2024-03-05, got %s", t0.Format("2006-01-02"))
		}
	})

	t.Run("domestic pre-open keeps t1 on the previous trading day", func(t *testing.T) {
		// 08:00 Wednesday in Taipei.
		detector := detectorAt(t, "2024-03-06T00:00:00Z")

		t0, t1 := detector.ValuationDates(true)

		if !t1.Equal(testutil.Date("2024-03-05")) {
			t.Errorf("Expected t1 2024-03-05, got %s", t1.Format("2006-01-02"))
		}
		if !t0.Equal(testutil.Date("2024-03-04")) {
			t.Errorf("Expected t0 2024-03-04, got %s", t0.Format("2006-01-02"))
		}
	})

	t.Run("foreign market uses its own timezone", func(t *testing.T) {
		// 02:00 Wednesday UTC is Tuesday 21:00 in New York: the US session
		// has opened (and closed), so t1 is Tuesday.
		detector := detectorAt(t, "2024-03-06T02:00:00Z")

		t0, t1 := detector.ValuationDates(false)

		if !t1.Equal(testutil.Date("2024-03-05")) {
			t.Errorf("Expected t1 2024-03-05, got %s", t1.Format("2006-01-02"))
		}
		if !t0.Equal(testutil.Date("2024-03-04")) {
			t.Errorf("Expected t0 2024-03-04, got %s", t0.Format("2006-01-02"))
		}
	})

	t.Run("weekend falls back to friday and thursday", func(t *testing.T) {
		// Sunday morning in Taipei.
		detector := detectorAt(t, "2024-03-09T23:00:00Z")

		t0, t1 := detector.ValuationDates(true)

		if !t1.Equal(testutil.Date("2024-03-08")) {
			t.Errorf("Expected t1 2024-03-08, got %s", t1.Format("2006-01-02"))
		}
		if !t0.Equal(testutil.Date("2024-03-07")) {
			t.Errorf("Expected t0 2024-03-07, got %s", t0.Format("2006-01-02"))
		}
	})
}
