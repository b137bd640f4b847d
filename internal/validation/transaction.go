// Package validation holds ingest-time checks for ledger records. The rules
// here reject records that would corrupt a replay; economic consistency
// (oversells, attribution residuals) is enforced later by the engine itself.
package validation

import (
	"fmt"
	"time"

	"github.com/chihung1024/sheet-trading-journal-sub000/internal/apperrors"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/model"
)

// maxFutureSkew tolerates sheet rows dated slightly ahead of server time
// (timezone drift between the sheet editor and the server).
const maxFutureSkew = 48 * time.Hour

// ValidateTransaction checks a single normalized ledger record.
func ValidateTransaction(t model.Transaction) error {
	if t.Symbol == "" {
		return fmt.Errorf("%w: missing symbol", apperrors.ErrMalformedTransaction)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: missing date", apperrors.ErrMalformedTransaction)
	}
	if t.Date.After(time.Now().Add(maxFutureSkew)) {
		return fmt.Errorf("%w: date %s is in the future", apperrors.ErrMalformedTransaction, t.Date.Format("2006-01-02"))
	}
	if t.Fee < 0 || t.Tax < 0 {
		return fmt.Errorf("%w: negative fee or tax", apperrors.ErrMalformedTransaction)
	}

	switch t.Type {
	case model.TransactionBuy, model.TransactionSell:
		if t.Quantity <= 0 {
			return fmt.Errorf("%w: %s with non-positive quantity %.6f", apperrors.ErrMalformedTransaction, t.Type, t.Quantity)
		}
		if t.Price <= 0 {
			return fmt.Errorf("%w: %s with non-positive price %.6f", apperrors.ErrMalformedTransaction, t.Type, t.Price)
		}
	case model.TransactionDividend:
		if t.CashAmount <= 0 && t.Quantity*t.Price <= 0 {
			return fmt.Errorf("%w: DIV with no cash amount", apperrors.ErrMalformedTransaction)
		}
	default:
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownTransactionType, t.Type)
	}

	return nil
}
