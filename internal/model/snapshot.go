package model

import "time"

// PortfolioSummary aggregates a whole calculation group in the base currency.
type PortfolioSummary struct {
	TotalValue      float64 `json:"totalValue"`
	InvestedCapital float64 `json:"investedCapital"`
	TotalPnL        float64 `json:"totalPl"`
	RealizedPnL     float64 `json:"realizedPl"`
	UnrealizedPnL   float64 `json:"unrealizedPl"`
	IncomePnL       float64 `json:"incomePl"`
	DailyPnL        float64 `json:"dailyPl"`
	DailyPnLTW      float64 `json:"dailyPlTw"`
	DailyPnLUS      float64 `json:"dailyPlUs"`
	TWR             float64 `json:"twr"`
	BenchmarkTWR    float64 `json:"benchmarkTwr"`
	ModifiedDietz   float64 `json:"modifiedDietz"`
	XIRR            float64 `json:"xirr"`
	HasXIRR         bool    `json:"hasXirr"`
}

// HoldingPosition is one row of the holdings table: a currently-held symbol
// with valuation, cost and daily-change figures.
type HoldingPosition struct {
	Symbol          string   `json:"symbol"`
	Quantity        float64  `json:"quantity"`
	Currency        string   `json:"currency"`
	Price           float64  `json:"price"`
	MarketValue     float64  `json:"marketValue"`
	CostBasisBase   float64  `json:"costBasis"`
	CostBasisOrigin float64  `json:"costBasisOrigin"`
	AvgCost         float64  `json:"avgCost"`
	UnrealizedPnL   float64  `json:"unrealizedPl"`
	DailyPnL        float64  `json:"dailyPl"`
	DailyChangePct  float64  `json:"dailyChangePct"`
	Tags            []string `json:"tags,omitempty"`
}

// HistoryPoint is one day of the replayed history series used for charting
// and for the chained TWR computation.
type HistoryPoint struct {
	Date         time.Time `json:"date"`
	TotalValue   float64   `json:"totalValue"`
	InvestedCash float64   `json:"investedCash"`
	TWR          float64   `json:"twr"`
	BenchmarkTWR float64   `json:"benchmarkTwr"`
}

// PendingDividend is a dividend with an ex-date on or before today for a held
// symbol, not yet matched by a DIV ledger entry.
type PendingDividend struct {
	Symbol string    `json:"symbol"`
	ExDate time.Time `json:"exDate"`
	Amount float64   `json:"amount"`
}

// PortfolioGroupData is the full valuation output for one tag partition of the
// ledger. Every group runs the identical pipeline independently; the "all"
// group covers the whole ledger.
type PortfolioGroupData struct {
	Name     string            `json:"name"`
	Summary  PortfolioSummary  `json:"summary"`
	Holdings []HoldingPosition `json:"holdings"`
	History  []HistoryPoint    `json:"history"`
}

// PortfolioSnapshot is the assembled output of a calculation run. The
// top-level summary/holdings/history mirror the "all" group; Groups carries
// one entry per user-defined tag.
type PortfolioSnapshot struct {
	UpdatedAt        time.Time                     `json:"updatedAt"`
	BaseCurrency     string                        `json:"baseCurrency"`
	ExchangeRate     float64                       `json:"exchangeRate"`
	Summary          PortfolioSummary              `json:"summary"`
	Holdings         []HoldingPosition             `json:"holdings"`
	History          []HistoryPoint                `json:"history"`
	PendingDividends []PendingDividend             `json:"pendingDividends"`
	Groups           map[string]PortfolioGroupData `json:"groups"`
}
