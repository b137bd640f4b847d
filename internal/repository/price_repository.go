package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chihung1024/sheet-trading-journal-sub000/internal/marketdata"
)

// PriceRepository provides data access methods for the cached price and FX
// tables. The cache is populated by the scheduled market-data refresh and read
// back into an in-memory dataset before each calculation run.
type PriceRepository struct {
	db *sql.DB
}

// NewPriceRepository creates a new PriceRepository with the provided database connection.
func NewPriceRepository(db *sql.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// UpsertPrices stores daily close prices for a symbol, overwriting any
// existing observation on the same date.
func (s *PriceRepository) UpsertPrices(ctx context.Context, symbol string, prices []marketdata.PricePoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin price upsert: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO price (symbol, date, close)
		VALUES (?, ?, ?)
		ON CONFLICT (symbol, date) DO UPDATE SET close = excluded.close
	`

	for _, p := range prices {
		if _, err := tx.ExecContext(ctx, query, symbol, p.Date.Format("2006-01-02"), p.Close); err != nil {
			return fmt.Errorf("failed to upsert price for %s: %w", symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit price upsert: %w", err)
	}

	return nil
}

// GetPrices retrieves all cached prices for a symbol sorted by date ascending.
func (s *PriceRepository) GetPrices(symbol string) ([]marketdata.PricePoint, error) {
	query := `
		SELECT date, close
		FROM price
		WHERE symbol = ?
		ORDER BY date ASC
	`

	rows, err := s.db.Query(query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query price table: %w", err)
	}
	defer rows.Close()

	prices := []marketdata.PricePoint{}

	for rows.Next() {
		var dateStr string
		var p marketdata.PricePoint

		if err := rows.Scan(&dateStr, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan price table results: %w", err)
		}
		p.Date, err = ParseTime(dateStr)
		if err != nil || p.Date.IsZero() {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}

		prices = append(prices, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price table: %w", err)
	}

	return prices, nil
}

// UpsertFXRates stores FX observations, overwriting same-date entries.
func (s *PriceRepository) UpsertFXRates(ctx context.Context, rates []marketdata.FXPoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin fx upsert: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO fx_rate (date, rate)
		VALUES (?, ?)
		ON CONFLICT (date) DO UPDATE SET rate = excluded.rate
	`

	for _, r := range rates {
		if _, err := tx.ExecContext(ctx, query, r.Date.Format("2006-01-02"), r.Rate); err != nil {
			return fmt.Errorf("failed to upsert fx rate: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit fx upsert: %w", err)
	}

	return nil
}

// GetFXRates retrieves all cached FX observations sorted by date ascending.
func (s *PriceRepository) GetFXRates() ([]marketdata.FXPoint, error) {
	query := `
		SELECT date, rate
		FROM fx_rate
		ORDER BY date ASC
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query fx_rate table: %w", err)
	}
	defer rows.Close()

	rates := []marketdata.FXPoint{}

	for rows.Next() {
		var dateStr string
		var r marketdata.FXPoint

		if err := rows.Scan(&dateStr, &r.Rate); err != nil {
			return nil, fmt.Errorf("failed to scan fx_rate table results: %w", err)
		}
		r.Date, err = ParseTime(dateStr)
		if err != nil || r.Date.IsZero() {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}

		rates = append(rates, r)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fx_rate table: %w", err)
	}

	return rates, nil
}

// LatestPriceDate returns the date of the most recent cached observation for a
// symbol, or time.Time{} when none exists. Used by the refresh job to fetch
// only the missing range.
func (s *PriceRepository) LatestPriceDate(symbol string) time.Time {
	var dateStr sql.NullString

	err := s.db.QueryRow(`SELECT MAX(date) FROM price WHERE symbol = ?`, symbol).Scan(&dateStr)
	if err != nil || !dateStr.Valid {
		return time.Time{}
	}
	date, err := time.Parse("2006-01-02", dateStr.String)
	if err != nil {
		return time.Time{}
	}

	return date
}
