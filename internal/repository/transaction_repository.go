package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chihung1024/sheet-trading-journal-sub000/internal/model"
)

// TransactionRepository provides data access methods for the ledger table.
// The ledger is append-only: records are inserted on ingest and never updated.
type TransactionRepository struct {
	db *sql.DB
}

// NewTransactionRepository creates a new TransactionRepository with the provided database connection.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// GetAllTransactions retrieves the complete ledger sorted by date ascending,
// with the deterministic same-day tie-break (BUY before DIV before SELL)
// applied in SQL so every caller replays the ledger in the same order.
func (s *TransactionRepository) GetAllTransactions() ([]model.Transaction, error) {
	query := `
		SELECT id, date, symbol, type, quantity, price, fee, tax, tag, cash_amount, created_at
		FROM "transaction"
		ORDER BY date ASC,
			CASE type WHEN 'BUY' THEN 0 WHEN 'DIV' THEN 1 WHEN 'SELL' THEN 2 ELSE 3 END ASC,
			created_at ASC
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction table: %w", err)
	}
	defer rows.Close()

	transactions := []model.Transaction{}

	for rows.Next() {

		var dateStr, createdAtStr string
		var t model.Transaction

		err := rows.Scan(
			&t.ID,
			&dateStr,
			&t.Symbol,
			&t.Type,
			&t.Quantity,
			&t.Price,
			&t.Fee,
			&t.Tax,
			&t.Tag,
			&t.CashAmount,
			&createdAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction table results: %w", err)
		}
		t.Date, err = ParseTime(dateStr)
		if err != nil || t.Date.IsZero() {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}

		t.CreatedAt, err = ParseTime(createdAtStr)
		if err != nil || t.CreatedAt.IsZero() {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}

		transactions = append(transactions, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction table: %w", err)
	}

	return transactions, nil
}

// GetOldestTransactionDate finds the date of the earliest ledger entry.
// Returns time.Time{} (zero value) when the ledger is empty or the query fails.
func (s *TransactionRepository) GetOldestTransactionDate() time.Time {
	var oldestDateStr sql.NullString

	err := s.db.QueryRow(`SELECT MIN(date) FROM "transaction"`).Scan(&oldestDateStr)
	if err != nil || !oldestDateStr.Valid {
		return time.Time{}
	}
	oldestDate, err := time.Parse("2006-01-02", oldestDateStr.String)
	if err != nil {
		return time.Time{}
	}

	return oldestDate
}

// ReplaceAll replaces the full ledger with the provided records inside one
// database transaction. The remote sheet service is the source of truth, so a
// sync overwrites rather than merges.
func (s *TransactionRepository) ReplaceAll(ctx context.Context, transactions []model.Transaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin ledger transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM "transaction"`); err != nil {
		return fmt.Errorf("failed to clear transaction table: %w", err)
	}

	insertQuery := `
		INSERT INTO "transaction" (id, date, symbol, type, quantity, price, fee, tax, tag, cash_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, t := range transactions {
		_, err := tx.ExecContext(ctx, insertQuery,
			t.ID,
			t.Date.Format("2006-01-02"),
			t.Symbol,
			t.Type,
			t.Quantity,
			t.Price,
			t.Fee,
			t.Tax,
			t.Tag,
			t.CashAmount,
			t.CreatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger replacement: %w", err)
	}

	return nil
}

// InsertTransaction appends a single record to the ledger.
func (s *TransactionRepository) InsertTransaction(ctx context.Context, t *model.Transaction) error {
	insertQuery := `
		INSERT INTO "transaction" (id, date, symbol, type, quantity, price, fee, tax, tag, cash_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, insertQuery,
		t.ID,
		t.Date.Format("2006-01-02"),
		t.Symbol,
		t.Type,
		t.Quantity,
		t.Price,
		t.Fee,
		t.Tax,
		t.Tag,
		t.CashAmount,
		t.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}
