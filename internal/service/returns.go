package service

import (
	"math"
	"time"
)

// xirrMaxIterations caps the Newton-Raphson search; xirrTolerance is the NPV
// convergence threshold.
const (
	xirrMaxIterations = 50
	xirrTolerance     = 1e-6

	// xirrMinimumSpan is the minimum portfolio age before an annualized rate
	// is reported at all.
	xirrMinimumSpan = 30 * 24 * time.Hour
)

// CashFlow is a dated cash movement from the investor's perspective:
// negative for money committed (purchases), positive for money returned
// (sale proceeds, dividends, the terminal market value).
type CashFlow struct {
	Date   time.Time
	Amount float64
}

// WeightedCashFlow is a cash flow positioned at relative time t in [0, 1]
// within a measurement period, from the portfolio's perspective: positive for
// contributions, negative for withdrawals.
type WeightedCashFlow struct {
	T      float64
	Amount float64
}

// ChainHoldingPeriod extends a cumulative TWR factor by one sub-period:
// factor *= (endValue - flow) / beginValue, where flow is the net external
// contribution during the sub-period. A begin value of effectively zero
// (first funding day, or full liquidation) contributes no return and leaves
// the factor unchanged.
func ChainHoldingPeriod(factor, beginValue, endValue, flow float64) float64 {
	if beginValue < QuantityEpsilon {
		return factor
	}
	return factor * ((endValue - flow) / beginValue)
}

// ModifiedDietz approximates the money-weighted return of a period from its
// begin/end values and time-weighted external flows: each flow at relative
// time t is weighted by the fraction of the period it was invested, 1-t.
//
//	return = (end - begin - sumFlows) / (begin + sum(flow * (1-t)))
//
// Returns (0, false) when the weighted average capital is effectively zero.
func ModifiedDietz(beginValue, endValue float64, flows []WeightedCashFlow) (float64, bool) {
	var totalFlows, weightedFlows float64
	for _, f := range flows {
		totalFlows += f.Amount
		weightedFlows += f.Amount * (1 - f.T)
	}

	averageCapital := beginValue + weightedFlows
	if math.Abs(averageCapital) < QuantityEpsilon {
		return 0, false
	}

	return (endValue - beginValue - totalFlows) / averageCapital, true
}

// XIRR solves the internal rate of return of irregularly timed cash flows by
// Newton-Raphson iteration on the NPV function, with flow times measured in
// years (act/365) from the first flow.
//
// Returns (0, false) instead of an error when no meaningful answer exists:
// fewer than two flows, all flows sharing one sign, a vanishing derivative,
// or failure to converge within the iteration cap.
func XIRR(flows []CashFlow) (float64, bool) {
	if len(flows) < 2 {
		return 0, false
	}

	hasPositive, hasNegative := false, false
	for _, f := range flows {
		if f.Amount > 0 {
			hasPositive = true
		}
		if f.Amount < 0 {
			hasNegative = true
		}
	}
	if !hasPositive || !hasNegative {
		return 0, false
	}

	t0 := flows[0].Date
	years := make([]float64, len(flows))
	for i, f := range flows {
		years[i] = f.Date.Sub(t0).Hours() / 24 / 365
	}

	rate := 0.1
	for iteration := 0; iteration < xirrMaxIterations; iteration++ {
		var npv, derivative float64
		for i, f := range flows {
			discount := math.Pow(1+rate, years[i])
			if discount == 0 || math.IsInf(discount, 0) || math.IsNaN(discount) {
				return 0, false
			}
			npv += f.Amount / discount
			derivative -= years[i] * f.Amount / (discount * (1 + rate))
		}

		if math.Abs(npv) < xirrTolerance {
			return rate, true
		}
		if math.Abs(derivative) < xirrTolerance {
			return 0, false
		}

		next := rate - npv/derivative
		if next <= -1 {
			// Keep the iterate inside the domain of (1+r)^t.
			next = (rate - 1) / 2
		}
		rate = next
	}

	return 0, false
}
