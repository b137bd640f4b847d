package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chihung1024/sheet-trading-journal-sub000/internal/apperrors"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/model"
)

// SnapshotRepository stores assembled portfolio snapshots as JSON documents so
// the latest result can be served without recomputation. It replaces on-demand
// recalculation for read traffic the same way a materialized view would.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new SnapshotRepository with the provided database connection.
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// SaveSnapshot persists a snapshot together with its validation verdict.
// Older snapshots are pruned so the table holds only the most recent runs.
func (s *SnapshotRepository) SaveSnapshot(ctx context.Context, snapshot *model.PortfolioSnapshot, validated bool) error {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshot (created_at, validated, body) VALUES (?, ?, ?)`,
		snapshot.UpdatedAt.UTC().Format(time.RFC3339),
		validated,
		string(body),
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	// Keep the ten most recent runs.
	_, err = tx.ExecContext(ctx, `
		DELETE FROM snapshot
		WHERE id NOT IN (SELECT id FROM snapshot ORDER BY id DESC LIMIT 10)
	`)
	if err != nil {
		return fmt.Errorf("failed to prune snapshots: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot save: %w", err)
	}

	return nil
}

// GetLatestSnapshot returns the most recently saved snapshot and whether it
// passed validation. Returns apperrors.ErrSnapshotNotFound when none exists.
func (s *SnapshotRepository) GetLatestSnapshot() (*model.PortfolioSnapshot, bool, error) {
	var body string
	var validated bool

	err := s.db.QueryRow(`
		SELECT body, validated
		FROM snapshot
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&body, &validated)
	if err == sql.ErrNoRows {
		return nil, false, apperrors.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query snapshot table: %w", err)
	}

	var snapshot model.PortfolioSnapshot
	if err := json.Unmarshal([]byte(body), &snapshot); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snapshot, validated, nil
}
