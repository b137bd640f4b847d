package validation_test

import (
	"errors"
	"testing"

	"github.com/chihung1024/sheet-trading-journal-sub000/internal/apperrors"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/model"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/testutil"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/validation"
)

// TestValidateTransaction tests ingest-time record checks.
//
// WHY: A corrupt row that slips past ingest surfaces much later as an
// inexplicable replay failure; each case pins one rejection rule.
func TestValidateTransaction(t *testing.T) {
	t.Run("accepts well-formed records", func(t *testing.T) {
		cases := []model.Transaction{
			testutil.NewBuy("2330.TW", "2024-03-07", 10, 100).Build(),
			testutil.NewSell("VOO", "2024-03-07", 2, 500).WithFee(1).WithTax(0.5).Build(),
			testutil.NewDividend("2330.TW", "2024-03-08", 25).Build(),
		}

		for _, tx := range cases {
			if err := validation.ValidateTransaction(tx); err != nil {
				t.Errorf("Expected %s %s to validate, got %v", tx.Type, tx.Symbol, err)
			}
		}
	})

	t.Run("rejects malformed records", func(t *testing.T) {
		noSymbol := testutil.NewBuy("", "2024-03-07", 10, 100).Build()
		zeroQty := testutil.NewBuy("2330.TW", "2024-03-07", 0, 100).Build()
		negativePrice := testutil.NewSell("2330.TW", "2024-03-07", 10, -5).Build()
		negativeFee := testutil.NewBuy("2330.TW", "2024-03-07", 10, 100).WithFee(-1).Build()
		futureDated := testutil.NewBuy("2330.TW", "2099-01-01", 10, 100).Build()
		emptyDividend := testutil.NewDividend("2330.TW", "2024-03-08", 0).Build()

		cases := []struct {
			name string
			tx   model.Transaction
		}{
			{"missing symbol", noSymbol},
			{"zero quantity", zeroQty},
			{"negative price", negativePrice},
			{"negative fee", negativeFee},
			{"future date", futureDated},
			{"dividend without cash", emptyDividend},
		}

		for _, tc := range cases {
			if err := validation.ValidateTransaction(tc.tx); !errors.Is(err, apperrors.ErrMalformedTransaction) {
				t.Errorf("%s: expected ErrMalformedTransaction, got %v", tc.name, err)
			}
		}
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		tx := testutil.NewBuy("2330.TW", "2024-03-07", 10, 100).Build()
		tx.Type = "SHORT"

		if err := validation.ValidateTransaction(tx); !errors.Is(err, apperrors.ErrUnknownTransactionType) {
			t.Errorf("Expected ErrUnknownTransactionType, got %v", err)
		}
	})
}
