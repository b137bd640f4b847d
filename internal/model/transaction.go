package model

import "time"

// Transaction types as they appear in the ledger. The ledger is the append-only
// source of truth; records are immutable once ingested.
const (
	TransactionBuy      = "BUY"
	TransactionSell     = "SELL"
	TransactionDividend = "DIV"
)

// Transaction represents one ledger entry for a symbol.
// Quantity and Price are in the instrument's origin currency and pre-split
// units as recorded at trade time; CashAmount carries the paid amount for
// DIV entries (Quantity/Price are unused for dividends).
type Transaction struct {
	ID         string    `json:"id"`
	Date       time.Time `json:"date"`
	Symbol     string    `json:"symbol"`
	Type       string    `json:"type"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	Fee        float64   `json:"fee"`
	Tax        float64   `json:"tax"`
	Tag        string    `json:"tag"`
	CashAmount float64   `json:"cashAmount"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
}

// typeOrder defines the same-day tie-break: BUY before DIV before SELL.
// Replaying same-day round trips in this order avoids false oversells when a
// position is bought and sold within one session.
func typeOrder(transactionType string) int {
	switch transactionType {
	case TransactionBuy:
		return 0
	case TransactionDividend:
		return 1
	case TransactionSell:
		return 2
	default:
		return 3
	}
}

// CompareTransactions orders two transactions by date ascending, then by the
// deterministic same-day tie-break (BUY < DIV < SELL). Suitable for
// slices.SortStableFunc so that equal entries keep ingestion order.
func CompareTransactions(a, b Transaction) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	return typeOrder(a.Type) - typeOrder(b.Type)
}
