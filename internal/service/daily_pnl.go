package service

import (
	"fmt"
	"math"

	"github.com/chihung1024/sheet-trading-journal-sub000/internal/apperrors"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/model"
)

// ComputeDailyPnL attributes one symbol's day P&L from its begin/end state
// and intraday cash flows. All amounts must be in the base currency.
//
// The total follows from conservation of value and is the single source of
// truth, independent of how the position changed during the day:
//
//	total = endValue - beginValue + netCashFlow
//
// where netCashFlow is cash returned to the investor (sale proceeds,
// dividends) minus cash committed (purchases, fees). The holding component is
// derived as total - realized - income rather than computed from
// beginQty*(endPrice-beginPrice), which would miscount intraday purchases and
// sales.
//
// A residual between the total and the sum of components beyond
// QuantityEpsilon means realized P&L or the cash flows were classified
// inconsistently upstream; that is a logic defect and returns
// apperrors.ErrAttributionMismatch instead of a silently wrong number.
func ComputeDailyPnL(state model.DailyPositionState, realizedPnL, incomePnL float64) (model.DailyPnLResult, error) {
	netCashFlow := state.NetCashFlow()
	totalPnL := state.EndValue - state.BeginValue + netCashFlow
	holdingPnL := totalPnL - realizedPnL - incomePnL

	residual := math.Abs(totalPnL - (realizedPnL + holdingPnL + incomePnL))
	if residual >= QuantityEpsilon {
		return model.DailyPnLResult{}, fmt.Errorf(
			"%w: symbol %s date %s residual %.9f",
			apperrors.ErrAttributionMismatch,
			state.Symbol,
			state.Date.Format("2006-01-02"),
			residual,
		)
	}

	return model.DailyPnLResult{
		Date:        state.Date,
		Symbol:      state.Symbol,
		TotalPnL:    totalPnL,
		RealizedPnL: realizedPnL,
		HoldingPnL:  holdingPnL,
		IncomePnL:   incomePnL,
		BeginValue:  state.BeginValue,
		EndValue:    state.EndValue,
		NetCashFlow: netCashFlow,
	}, nil
}
