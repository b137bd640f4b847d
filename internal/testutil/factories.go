package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/chihung1024/sheet-trading-journal-sub000/internal/model"
)

// TransactionBuilder provides a fluent interface for creating test ledger
// entries.
//
// Example usage:
//
//	// A domestic buy with defaults
//	tx := testutil.NewBuy("2330.TW", "2024-01-02", 100, 580).Build()
//
//	// Customized
//	tx := testutil.NewSell("VOO", "2024-03-05", 4, 120).
//	    WithFee(2).
//	    WithTag("growth").
//	    Build()
type TransactionBuilder struct {
	transaction model.Transaction
}

// NewBuy creates a builder for a BUY entry.
func NewBuy(symbol, date string, quantity, price float64) *TransactionBuilder {
	return newTransaction(model.TransactionBuy, symbol, date, quantity, price)
}

// NewSell creates a builder for a SELL entry.
func NewSell(symbol, date string, quantity, price float64) *TransactionBuilder {
	return newTransaction(model.TransactionSell, symbol, date, quantity, price)
}

// NewDividend creates a builder for a DIV entry with a cash amount.
func NewDividend(symbol, date string, cashAmount float64) *TransactionBuilder {
	b := newTransaction(model.TransactionDividend, symbol, date, 0, 0)
	b.transaction.CashAmount = cashAmount
	return b
}

func newTransaction(transactionType, symbol, date string, quantity, price float64) *TransactionBuilder {
	return &TransactionBuilder{
		transaction: model.Transaction{
			ID:        uuid.New().String(),
			Date:      Date(date),
			Symbol:    symbol,
			Type:      transactionType,
			Quantity:  quantity,
			Price:     price,
			CreatedAt: Date(date),
		},
	}
}

// WithFee sets the transaction fee.
func (b *TransactionBuilder) WithFee(fee float64) *TransactionBuilder {
	b.transaction.Fee = fee
	return b
}

// WithTax sets the transaction tax.
func (b *TransactionBuilder) WithTax(tax float64) *TransactionBuilder {
	b.transaction.Tax = tax
	return b
}

// WithTag sets the free-text tag field.
func (b *TransactionBuilder) WithTag(tag string) *TransactionBuilder {
	b.transaction.Tag = tag
	return b
}

// WithID sets a custom ID.
func (b *TransactionBuilder) WithID(id string) *TransactionBuilder {
	b.transaction.ID = id
	return b
}

// Build returns the assembled transaction.
func (b *TransactionBuilder) Build() model.Transaction {
	return b.transaction
}

// Date parses a YYYY-MM-DD string into a UTC midnight time, panicking on a
// malformed literal so tests fail loudly at the typo.
func Date(date string) time.Time {
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic("testutil: bad date literal " + date)
	}
	return parsed
}

// FixedClock returns a clock function pinned to the given instant.
func FixedClock(instant time.Time) func() time.Time {
	return func() time.Time { return instant }
}
