package marketdata_test

import (
	"errors"
	"math"
	"testing"

	"github.com/chihung1024/sheet-trading-journal-sub000/internal/apperrors"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/marketdata"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/testutil"
)

// TestDataset_Lookups tests the in-memory provider's date semantics.
//
// WHY: The whole engine assumes "as of" means the last observation on or
// before a date and "previous trading date" means strictly before; weekends
// and holidays exercise both paths constantly.
func TestDataset_Lookups(t *testing.T) {
	dataset := marketdata.NewDataset()
	dataset.SetPrices("2330.TW", []marketdata.PricePoint{
		testutil.PricePoint("2024-03-06", 100),
		testutil.PricePoint("2024-03-07", 102),
		testutil.PricePoint("2024-03-08", 105),
	})

	t.Run("exact date lookup", func(t *testing.T) {
		price, err := dataset.Price("2330.TW", testutil.Date("2024-03-07"))

		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if price != 102 {
			t.Errorf("Expected 102, got %v", price)
		}
	})

	t.Run("exact date lookup misses holidays", func(t *testing.T) {
		_, err := dataset.Price("2330.TW", testutil.Date("2024-03-09"))

		if !errors.Is(err, apperrors.ErrPriceNotFound) {
			t.Errorf("Expected ErrPriceNotFound, got %v", err)
		}
	})

	t.Run("as-of carries the last close across a weekend", func(t *testing.T) {
		price, actual, err := dataset.PriceAsOf("2330.TW", testutil.Date("2024-03-10"))

		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if price != 105 {
			t.Errorf("Expected 105, got %v", price)
		}
		if !actual.Equal(testutil.Date("2024-03-08")) {
			t.Errorf("Expected actual date 2024-03-08, got %s", actual.Format("2006-01-02"))
		}
	})

	t.Run("as-of before any observation errors", func(t *testing.T) {
		_, _, err := dataset.PriceAsOf("2330.TW", testutil.Date("2024-03-01"))

		if !errors.Is(err, apperrors.ErrPriceNotFound) {
			t.Errorf("Expected ErrPriceNotFound, got %v", err)
		}
	})

	t.Run("previous trading date is strictly before", func(t *testing.T) {
		prev, err := dataset.PrevTradingDate("2330.TW", testutil.Date("2024-03-08"))

		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !prev.Equal(testutil.Date("2024-03-07")) {
			t.Errorf("Expected 2024-03-07, got %s", prev.Format("2006-01-02"))
		}
	})

	t.Run("unknown symbol errors", func(t *testing.T) {
		if _, err := dataset.Price("GHOST", testutil.Date("2024-03-07")); err == nil {
			t.Error("Expected an error for unknown symbol")
		}
	})
}

// TestDataset_SplitFactor tests cumulative split back-adjustment.
//
// WHY: The factor converts as-traded quantities into current units; only
// splits strictly after the trade date may contribute, and consecutive
// splits must multiply.
func TestDataset_SplitFactor(t *testing.T) {
	dataset := marketdata.NewDataset()
	dataset.SetSplits("AAPL", []marketdata.SplitPoint{
		{Date: testutil.Date("2023-06-01"), Ratio: 2},
		{Date: testutil.Date("2024-01-15"), Ratio: 4},
	})

	cases := []struct {
		name     string
		date     string
		expected float64
	}{
		{"trade before both splits", "2023-01-01", 8},
		{"trade between splits", "2023-09-01", 4},
		{"trade on a split date excludes that split", "2024-01-15", 1},
		{"trade after both splits", "2024-03-01", 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			factor := dataset.SplitFactor("AAPL", testutil.Date(tc.date))

			if math.Abs(factor-tc.expected) > 1e-9 {
				t.Errorf("Expected factor %v, got %v", tc.expected, factor)
			}
		})
	}

	t.Run("symbol without splits has factor 1", func(t *testing.T) {
		if factor := dataset.SplitFactor("2330.TW", testutil.Date("2023-01-01")); factor != 1 {
			t.Errorf("Expected 1, got %v", factor)
		}
	})
}

// TestDataset_Dividends tests ex-date lookups and range scans.
func TestDataset_Dividends(t *testing.T) {
	dataset := marketdata.NewDataset()
	dataset.SetDividends("2330.TW", []marketdata.DividendPoint{
		{Date: testutil.Date("2024-01-10"), Amount: 2.75},
		{Date: testutil.Date("2024-04-10"), Amount: 3.0},
	})

	t.Run("exact ex-date", func(t *testing.T) {
		if amount := dataset.Dividend("2330.TW", testutil.Date("2024-01-10")); amount != 2.75 {
			t.Errorf("Expected 2.75, got %v", amount)
		}
	})

	t.Run("no dividend on other dates", func(t *testing.T) {
		if amount := dataset.Dividend("2330.TW", testutil.Date("2024-01-11")); amount != 0 {
			t.Errorf("Expected 0, got %v", amount)
		}
	})

	t.Run("range scan is inclusive", func(t *testing.T) {
		dividends := dataset.DividendsBetween("2330.TW", testutil.Date("2024-01-10"), testutil.Date("2024-04-10"))

		if len(dividends) != 2 {
			t.Errorf("Expected 2 dividends, got %d", len(dividends))
		}
	})

	t.Run("range scan excludes outside dates", func(t *testing.T) {
		dividends := dataset.DividendsBetween("2330.TW", testutil.Date("2024-02-01"), testutil.Date("2024-03-01"))

		if len(dividends) != 0 {
			t.Errorf("Expected no dividends, got %d", len(dividends))
		}
	})
}

// TestDataset_FXRates tests the FX series and the intraday fallback.
func TestDataset_FXRates(t *testing.T) {
	t.Run("as-of returns the latest observation", func(t *testing.T) {
		dataset := marketdata.NewDataset()
		dataset.SetFXRates([]marketdata.FXPoint{
			{Date: testutil.Date("2024-03-07"), Rate: 31.0},
			{Date: testutil.Date("2024-03-08"), Rate: 31.5},
		})

		rate, err := dataset.FXRateAsOf(testutil.Date("2024-03-09"))

		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if rate != 31.5 {
			t.Errorf("Expected 31.5, got %v", rate)
		}
	})

	t.Run("empty series errors", func(t *testing.T) {
		dataset := marketdata.NewDataset()

		_, err := dataset.FXRateAsOf(testutil.Date("2024-03-09"))

		if !errors.Is(err, apperrors.ErrFXRateNotFound) {
			t.Errorf("Expected ErrFXRateNotFound, got %v", err)
		}
	})

	t.Run("current rate prefers intraday then falls back to last close", func(t *testing.T) {
		dataset := marketdata.NewDataset()
		dataset.SetFXRates([]marketdata.FXPoint{
			{Date: testutil.Date("2024-03-08"), Rate: 31.5},
		})

		if rate := dataset.CurrentFXRate(); rate != 31.5 {
			t.Errorf("Expected fallback 31.5, got %v", rate)
		}

		dataset.SetCurrentFXRate(31.7)
		if rate := dataset.CurrentFXRate(); rate != 31.7 {
			t.Errorf("Expected intraday 31.7, got %v", rate)
		}
	})
}
