package service

import (
	"log"
	"math"
	"slices"

	"github.com/chihung1024/sheet-trading-journal-sub000/internal/apperrors"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/model"
)

// PortfolioValidator cross-checks an assembled snapshot before it is
// persisted or published. Every check is an internal-consistency rule the
// pipeline is supposed to guarantee; a failure means a logic defect upstream,
// not bad input. The validator only reports, it never mutates.
type PortfolioValidator struct{}

// NewPortfolioValidator creates a validator.
func NewPortfolioValidator() *PortfolioValidator {
	return &PortfolioValidator{}
}

// Validate runs every check over the snapshot's groups and returns whether
// all of them passed. Each failure is logged with the group, the rule and the
// observed discrepancy; validation never aborts early so one run reports
// every violation at once.
func (v *PortfolioValidator) Validate(snapshot *model.PortfolioSnapshot) bool {
	if snapshot == nil {
		log.Printf("VALIDATION: nil snapshot")
		return false
	}

	valid := true

	// A zero or negative rate would misprice every foreign holding at once.
	if snapshot.ExchangeRate <= 0 {
		log.Printf("VALIDATION: %v (%.4f)", apperrors.ErrNonPositiveFXRate, snapshot.ExchangeRate)
		valid = false
	}

	for _, name := range groupNames(snapshot) {
		group := snapshot.Groups[name]
		if !v.validateGroup(name, group) {
			valid = false
		}
	}
	return valid
}

func (v *PortfolioValidator) validateGroup(name string, group model.PortfolioGroupData) bool {
	valid := true
	summary := group.Summary

	if !v.checkFinite(name, summary, group.Holdings) {
		// NaN poisons every arithmetic check below; report and stop here.
		return false
	}

	// The accounting identity: what the portfolio is worth minus what is
	// still committed must equal the attributed P&L.
	identityGap := math.Abs(summary.TotalValue - summary.InvestedCapital - summary.TotalPnL)
	if identityGap > ValueTolerance {
		log.Printf("VALIDATION: group %q accounting identity off by %.4f (total_value=%.2f invested=%.2f total_pl=%.2f)",
			name, identityGap, summary.TotalValue, summary.InvestedCapital, summary.TotalPnL)
		valid = false
	}

	componentGap := math.Abs(summary.TotalPnL - (summary.RealizedPnL + summary.UnrealizedPnL + summary.IncomePnL))
	if componentGap > ValueTolerance {
		log.Printf("VALIDATION: group %q P&L components off by %.4f (total=%.2f realized=%.2f unrealized=%.2f income=%.2f)",
			name, componentGap, summary.TotalPnL, summary.RealizedPnL, summary.UnrealizedPnL, summary.IncomePnL)
		valid = false
	}

	var holdingsValue, holdingsUnrealized, holdingsDaily float64
	for _, h := range group.Holdings {
		holdingsValue += h.MarketValue
		holdingsUnrealized += h.UnrealizedPnL
		holdingsDaily += h.DailyPnL
		if h.Quantity <= 0 {
			log.Printf("VALIDATION: group %q holding %s has non-positive quantity %.6f", name, h.Symbol, h.Quantity)
			valid = false
		}
	}

	if gap := math.Abs(holdingsValue - summary.TotalValue); gap > ValueTolerance {
		log.Printf("VALIDATION: group %q holdings sum to %.2f but total_value is %.2f (gap %.4f)",
			name, holdingsValue, summary.TotalValue, gap)
		valid = false
	}
	if gap := math.Abs(holdingsUnrealized - summary.UnrealizedPnL); gap > ValueTolerance {
		log.Printf("VALIDATION: group %q per-holding unrealized sums to %.2f but summary says %.2f (gap %.4f)",
			name, holdingsUnrealized, summary.UnrealizedPnL, gap)
		valid = false
	}

	if gap := math.Abs(holdingsDaily - summary.DailyPnL); gap > ValueTolerance {
		log.Printf("VALIDATION: group %q per-holding daily P&L sums to %.2f but summary says %.2f (gap %.4f)",
			name, holdingsDaily, summary.DailyPnL, gap)
		valid = false
	}

	if gap := math.Abs(summary.DailyPnLTW + summary.DailyPnLUS - summary.DailyPnL); gap > ValueTolerance {
		log.Printf("VALIDATION: group %q market split TW %.2f + US %.2f != daily %.2f (gap %.4f)",
			name, summary.DailyPnLTW, summary.DailyPnLUS, summary.DailyPnL, gap)
		valid = false
	}

	if summary.TotalValue < -ValueTolerance {
		log.Printf("VALIDATION: group %q negative total value %.2f", name, summary.TotalValue)
		valid = false
	}

	return valid
}

// checkFinite rejects NaN and infinity anywhere in the group's numbers.
func (v *PortfolioValidator) checkFinite(name string, summary model.PortfolioSummary, holdings []model.HoldingPosition) bool {
	values := []float64{
		summary.TotalValue, summary.InvestedCapital, summary.TotalPnL,
		summary.RealizedPnL, summary.UnrealizedPnL, summary.IncomePnL,
		summary.DailyPnL, summary.DailyPnLTW, summary.DailyPnLUS,
		summary.TWR, summary.BenchmarkTWR, summary.ModifiedDietz, summary.XIRR,
	}
	for _, value := range values {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			log.Printf("VALIDATION: group %q summary contains a non-finite value", name)
			return false
		}
	}
	for _, h := range holdings {
		if math.IsNaN(h.MarketValue) || math.IsInf(h.MarketValue, 0) ||
			math.IsNaN(h.UnrealizedPnL) || math.IsInf(h.UnrealizedPnL, 0) {
			log.Printf("VALIDATION: group %q holding %s contains a non-finite value", name, h.Symbol)
			return false
		}
	}
	return true
}

// groupNames returns "all" first, then the tag groups sorted, so validation
// logs read in a stable order.
func groupNames(snapshot *model.PortfolioSnapshot) []string {
	names := make([]string, 0, len(snapshot.Groups))
	if _, ok := snapshot.Groups["all"]; ok {
		names = append(names, "all")
	}
	tags := make([]string, 0, len(snapshot.Groups))
	for name := range snapshot.Groups {
		if name != "all" {
			tags = append(tags, name)
		}
	}
	slices.Sort(tags)
	return append(names, tags...)
}
