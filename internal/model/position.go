package model

import "time"

// Lot represents a single open purchase within a per-symbol FIFO queue.
// Created on BUY, consumed oldest-first on SELL, and removed from the queue
// once QuantityRemaining falls to effectively zero. UnitCostBase is the
// FX-converted acquisition cost per share in the base currency;
// UnitCostOrigin keeps the origin-currency cost for per-holding reporting.
type Lot struct {
	QuantityRemaining float64
	UnitCostBase      float64
	UnitCostOrigin    float64
	AcquisitionDate   time.Time
}

// Holding is the derived per-symbol position: always equal to the sum of its
// live lots, never mutated independently.
type Holding struct {
	Symbol          string
	Quantity        float64
	CostBasisBase   float64
	CostBasisOrigin float64
	Tags            []string
}

// AverageCostOrigin returns the origin-currency average cost per share, or 0
// for an empty position.
func (h Holding) AverageCostOrigin() float64 {
	if h.Quantity <= 0 {
		return 0
	}
	return h.CostBasisOrigin / h.Quantity
}

// PositionSnapshot is a read-only view of one symbol on one date, partitioning
// the current quantity into shares held before that date and shares bought on
// it. The split matters because the correct daily P&L base price is a weighted
// blend of previous close (old shares) and today's buy cost (new shares), not
// simply yesterday's close.
type PositionSnapshot struct {
	Symbol          string
	Date            time.Time
	PreDayQty       float64
	OldQtyRemaining float64
	NewQtyRemaining float64
	NewAvgCost      float64
	RealizedPnL     float64
	IsNewToday      bool
}

// TotalQuantity returns the combined old + new share count.
func (p PositionSnapshot) TotalQuantity() float64 {
	return p.OldQtyRemaining + p.NewQtyRemaining
}

// DailyPositionState captures one symbol's begin/end state and intraday cash
// flows for a single date. It is transient: built fresh per (symbol, date)
// for attribution and never persisted.
type DailyPositionState struct {
	Date       time.Time
	Symbol     string
	BeginQty   float64
	BeginPrice float64
	BeginValue float64
	EndQty     float64
	EndPrice   float64
	EndValue   float64
	CashIn     float64
	CashOut    float64
}

// NetCashFlow returns cash returned to the investor minus cash committed.
// Positive means net proceeds (sales + dividends), negative means net
// purchases including fees.
func (s DailyPositionState) NetCashFlow() float64 {
	return s.CashIn - s.CashOut
}

// DailyPnLResult is the attributed day P&L for one symbol. The accounting
// identity TotalPnL == RealizedPnL + HoldingPnL + IncomePnL holds within
// tolerance for every result the engine returns.
type DailyPnLResult struct {
	Date        time.Time `json:"date"`
	Symbol      string    `json:"symbol"`
	TotalPnL    float64   `json:"totalPl"`
	RealizedPnL float64   `json:"realizedPl"`
	HoldingPnL  float64   `json:"holdingPl"`
	IncomePnL   float64   `json:"incomePl"`
	BeginValue  float64   `json:"beginValue"`
	EndValue    float64   `json:"endValue"`
	NetCashFlow float64   `json:"netCashFlow"`
}
