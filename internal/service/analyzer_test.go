package service_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/chihung1024/sheet-trading-journal-sub000/internal/apperrors"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/model"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/service"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/testutil"
)

// TestTransactionAnalyzer_CurrentHoldings tests FIFO replay into live
// positions.
//
// WHY: Cost basis drives realized and unrealized P&L everywhere downstream;
// the FIFO consumption order and fee apportionment must be exact.
func TestTransactionAnalyzer_CurrentHoldings(t *testing.T) {
	t.Run("fifo consumes oldest lots first", func(t *testing.T) {
		transactions := []model.Transaction{
			testutil.NewBuy("2330.TW", "2024-01-02", 10, 100).Build(),
			testutil.NewBuy("2330.TW", "2024-01-03", 10, 110).Build(),
			testutil.NewSell("2330.TW", "2024-01-04", 15, 120).Build(),
		}
		analyzer := service.NewTransactionAnalyzer(transactions, nil)

		holdings, err := analyzer.CurrentHoldings("")

		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		holding, ok := holdings["2330.TW"]
		if !ok {
			t.Fatal("Expected a 2330.TW position")
		}
		if math.Abs(holding.Quantity-5) > 1e-9 {
			t.Errorf("Expected 5 shares remaining, got %v", holding.Quantity)
		}
		// The surviving 5 shares all come from the second (110) lot.
		if math.Abs(holding.CostBasisOrigin-550) > 1e-9 {
			t.Errorf("Expected cost basis 550, got %v", holding.CostBasisOrigin)
		}
	})

	t.Run("fees and tax are apportioned into unit cost", func(t *testing.T) {
		transactions := []model.Transaction{
			testutil.NewBuy("2330.TW", "2024-01-02", 10, 100).WithFee(8).WithTax(2).Build(),
		}
		analyzer := service.NewTransactionAnalyzer(transactions, nil)

		holdings, err := analyzer.CurrentHoldings("")

		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if math.Abs(holdings["2330.TW"].CostBasisOrigin-1010) > 1e-9 {
			t.Errorf("Expected cost basis 1010, got %v", holdings["2330.TW"].CostBasisOrigin)
		}
	})

	t.Run("fully liquidated symbols are omitted", func(t *testing.T) {
		transactions := []model.Transaction{
			testutil.NewBuy("2330.TW", "2024-01-02", 10, 100).Build(),
			testutil.NewSell("2330.TW", "2024-01-03", 10, 110).Build(),
		}
		analyzer := service.NewTransactionAnalyzer(transactions, nil)

		holdings, err := analyzer.CurrentHoldings("")

		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if _, ok := holdings["2330.TW"]; ok {
			t.Error("Expected liquidated symbol to be omitted")
		}
	})

	t.Run("oversell aborts the replay", func(t *testing.T) {
		transactions := []model.Transaction{
			testutil.NewBuy("2330.TW", "2024-01-02", 3, 100).Build(),
			testutil.NewSell("2330.TW", "2024-01-03", 5, 110).Build(),
		}
		analyzer := service.NewTransactionAnalyzer(transactions, nil)

		_, err := analyzer.CurrentHoldings("")

		if !errors.Is(err, apperrors.ErrOversell) {
			t.Errorf("Expected ErrOversell, got %v", err)
		}
	})

	t.Run("same-day round trip replays buy before sell", func(t *testing.T) {
		// Input deliberately lists the sell first; the deterministic
		// tie-break must keep this from reading as an oversell.
		transactions := []model.Transaction{
			testutil.NewSell("2330.TW", "2024-01-02", 5, 105).Build(),
			testutil.NewBuy("2330.TW", "2024-01-02", 5, 100).Build(),
		}
		analyzer := service.NewTransactionAnalyzer(transactions, nil)

		if _, err := analyzer.CurrentHoldings(""); err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
	})

	t.Run("unknown transaction type is rejected", func(t *testing.T) {
		bad := testutil.NewBuy("2330.TW", "2024-01-02", 10, 100).Build()
		bad.Type = "TRANSFER"
		analyzer := service.NewTransactionAnalyzer([]model.Transaction{bad}, nil)

		_, err := analyzer.CurrentHoldings("")

		if !errors.Is(err, apperrors.ErrUnknownTransactionType) {
			t.Errorf("Expected ErrUnknownTransactionType, got %v", err)
		}
	})

	t.Run("tag filter restricts the replay", func(t *testing.T) {
		transactions := []model.Transaction{
			testutil.NewBuy("2330.TW", "2024-01-02", 10, 100).WithTag("core").Build(),
			testutil.NewBuy("VOO", "2024-01-02", 2, 500).WithTag("growth, core").Build(),
			testutil.NewBuy("AAPL", "2024-01-02", 3, 180).Build(),
		}
		analyzer := service.NewTransactionAnalyzer(transactions, nil)

		holdings, err := analyzer.CurrentHoldings("core")

		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(holdings) != 2 {
			t.Fatalf("Expected 2 holdings for tag core, got %d", len(holdings))
		}
		if _, ok := holdings["AAPL"]; ok {
			t.Error("Untagged AAPL should not appear under tag core")
		}
	})

	t.Run("fx lookup converts cost basis at trade date", func(t *testing.T) {
		fxAt := func(symbol string, _ time.Time) float64 {
			if symbol == "VOO" {
				return 31.0
			}
			return 1.0
		}
		transactions := []model.Transaction{
			testutil.NewBuy("VOO", "2024-01-02", 2, 500).Build(),
		}
		analyzer := service.NewTransactionAnalyzer(transactions, fxAt)

		holdings, err := analyzer.CurrentHoldings("")

		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if math.Abs(holdings["VOO"].CostBasisBase-31000) > 1e-9 {
			t.Errorf("Expected base cost 31000, got %v", holdings["VOO"].CostBasisBase)
		}
		if math.Abs(holdings["VOO"].CostBasisOrigin-1000) > 1e-9 {
			t.Errorf("Expected origin cost 1000, got %v", holdings["VOO"].CostBasisOrigin)
		}
	})
}

// TestTransactionAnalyzer_AnalyzeTodayPosition tests the old/new split and
// same-day realized P&L.
//
// WHY: Daily P&L needs to know which shares existed before the day; blending
// today's buys against yesterday's close would mark them to a price that
// predates them.
func TestTransactionAnalyzer_AnalyzeTodayPosition(t *testing.T) {
	t.Run("splits held shares from today's buys", func(t *testing.T) {
		transactions := []model.Transaction{
			testutil.NewBuy("2330.TW", "2024-03-07", 10, 100).Build(),
			testutil.NewBuy("2330.TW", "2024-03-08", 5, 105).Build(),
		}
		analyzer := service.NewTransactionAnalyzer(transactions, nil)

		snapshot, err := analyzer.AnalyzeTodayPosition("2330.TW", testutil.Date("2024-03-08"))

		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if math.Abs(snapshot.OldQtyRemaining-10) > 1e-9 {
			t.Errorf("Expected 10 old shares, got %v", snapshot.OldQtyRemaining)
		}
		if math.Abs(snapshot.NewQtyRemaining-5) > 1e-9 {
			t.Errorf("Expected 5 new shares, got %v", snapshot.NewQtyRemaining)
		}
		if math.Abs(snapshot.NewAvgCost-105) > 1e-9 {
			t.Errorf("Expected new avg cost 105, got %v", snapshot.NewAvgCost)
		}
		if math.Abs(snapshot.PreDayQty-10) > 1e-9 {
			t.Errorf("Expected pre-day quantity 10, got %v", snapshot.PreDayQty)
		}
		if snapshot.IsNewToday {
			t.Error("Position existed before today; IsNewToday should be false")
		}
	})

	t.Run("same-day sell realizes against fifo cost", func(t *testing.T) {
		transactions := []model.Transaction{
			testutil.NewBuy("2330.TW", "2024-03-07", 10, 100).Build(),
			testutil.NewSell("2330.TW", "2024-03-08", 4, 120).WithFee(2).Build(),
		}
		analyzer := service.NewTransactionAnalyzer(transactions, nil)

		snapshot, err := analyzer.AnalyzeTodayPosition("2330.TW", testutil.Date("2024-03-08"))

		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		// 4*120 - 2 - 4*100 = 78.
		if math.Abs(snapshot.RealizedPnL-78) > 1e-9 {
			t.Errorf("Expected realized 78, got %v", snapshot.RealizedPnL)
		}
		if math.Abs(snapshot.OldQtyRemaining-6) > 1e-9 {
			t.Errorf("Expected 6 old shares, got %v", snapshot.OldQtyRemaining)
		}
	})

	t.Run("re-entry after liquidation is a new position", func(t *testing.T) {
		transactions := []model.Transaction{
			testutil.NewBuy("2330.TW", "2024-03-05", 10, 90).Build(),
			testutil.NewSell("2330.TW", "2024-03-07", 10, 100).Build(),
			testutil.NewBuy("2330.TW", "2024-03-08", 8, 102).Build(),
		}
		analyzer := service.NewTransactionAnalyzer(transactions, nil)

		snapshot, err := analyzer.AnalyzeTodayPosition("2330.TW", testutil.Date("2024-03-08"))

		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !snapshot.IsNewToday {
			t.Error("Expected IsNewToday after a full liquidation and re-entry")
		}
		if math.Abs(snapshot.PreDayQty) > 1e-9 {
			t.Errorf("Expected zero pre-day quantity, got %v", snapshot.PreDayQty)
		}

		// The P&L base for a brand-new position is its own cost, not the
		// stale previous close.
		base := analyzer.BasePriceForPnL(snapshot, 100)
		if math.Abs(base-102) > 1e-9 {
			t.Errorf("Expected base price 102, got %v", base)
		}
	})
}

// TestTransactionAnalyzer_BasePriceForPnL tests the weighted base price.
func TestTransactionAnalyzer_BasePriceForPnL(t *testing.T) {
	t.Run("blends previous close and today's cost by quantity", func(t *testing.T) {
		transactions := []model.Transaction{
			testutil.NewBuy("2330.TW", "2024-03-07", 10, 100).Build(),
			testutil.NewBuy("2330.TW", "2024-03-08", 5, 110).Build(),
		}
		analyzer := service.NewTransactionAnalyzer(transactions, nil)

		snapshot, err := analyzer.AnalyzeTodayPosition("2330.TW", testutil.Date("2024-03-08"))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		base := analyzer.BasePriceForPnL(snapshot, 100)

		expected := (10*100.0 + 5*110.0) / 15.0
		if math.Abs(base-expected) > 1e-9 {
			t.Errorf("Expected base %v, got %v", expected, base)
		}
	})

	t.Run("empty position yields zero", func(t *testing.T) {
		analyzer := service.NewTransactionAnalyzer(nil, nil)

		snapshot, err := analyzer.AnalyzeTodayPosition("2330.TW", testutil.Date("2024-03-08"))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if base := analyzer.BasePriceForPnL(snapshot, 100); base != 0 {
			t.Errorf("Expected 0 for empty position, got %v", base)
		}
	})
}

// TestSplitTags tests tag field parsing.
func TestSplitTags(t *testing.T) {
	cases := []struct {
		input    string
		expected []string
	}{
		{"", nil},
		{"core", []string{"core"}},
		{"core, growth", []string{"core", "growth"}},
		{"a;b ; c", []string{"a", "b", "c"}},
		{" , ; ", nil},
	}

	for _, tc := range cases {
		got := service.SplitTags(tc.input)
		if len(got) != len(tc.expected) {
			t.Errorf("SplitTags(%q) = %v, expected %v", tc.input, got, tc.expected)
			continue
		}
		for i := range got {
			if got[i] != tc.expected[i] {
				t.Errorf("SplitTags(%q) = %v, expected %v", tc.input, got, tc.expected)
				break
			}
		}
	}
}
