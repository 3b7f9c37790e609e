package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ramonehamilton/deck-strategist/internal/storage/models"
)

// AnalysisRepository handles the history of settled analyses.
type AnalysisRepository interface {
	// Create inserts a settled analysis and sets its ID.
	Create(ctx context.Context, result *models.AnalysisResult) error

	// ListRecent returns the most recent results, newest first.
	ListRecent(ctx context.Context, limit int) ([]*models.AnalysisResult, error)

	// LatestCompleted returns the newest completed result of a kind, or nil.
	LatestCompleted(ctx context.Context, kind string) (*models.AnalysisResult, error)

	// Prune keeps only the newest keep results of each kind.
	Prune(ctx context.Context, keep int) (int64, error)
}

type analysisRepository struct {
	db DBTX
}

// NewAnalysisRepository creates a new analysis repository over a
// connection or a transaction.
func NewAnalysisRepository(db DBTX) AnalysisRepository {
	return &analysisRepository{db: db}
}

const analysisColumns = `id, run_id, kind, status, content, error, deck_name, created_at`

// Create inserts a settled analysis and sets its ID.
func (r *analysisRepository) Create(ctx context.Context, result *models.AnalysisResult) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO analysis_results (run_id, kind, status, content, error, deck_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		result.RunID,
		result.Kind,
		result.Status,
		result.Content,
		result.Error,
		result.DeckName,
		result.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis result: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get analysis result ID: %w", err)
	}
	result.ID = id
	return nil
}

// ListRecent returns the most recent results, newest first.
func (r *analysisRepository) ListRecent(ctx context.Context, limit int) ([]*models.AnalysisResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+analysisColumns+` FROM analysis_results ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*models.AnalysisResult
	for rows.Next() {
		result, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analysis results: %w", err)
	}
	return results, nil
}

// LatestCompleted returns the newest completed result of a kind, or nil.
func (r *analysisRepository) LatestCompleted(ctx context.Context, kind string) (*models.AnalysisResult, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+analysisColumns+` FROM analysis_results
		 WHERE kind = ? AND status = 'completed'
		 ORDER BY created_at DESC, id DESC LIMIT 1`, kind)

	result, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return result, err
}

// Prune keeps only the newest keep results of each kind.
func (r *analysisRepository) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM analysis_results WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY kind ORDER BY created_at DESC, id DESC) AS rn
				FROM analysis_results
			) WHERE rn > ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune analysis results: %w", err)
	}
	return res.RowsAffected()
}

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(s scanner) (*models.AnalysisResult, error) {
	result := &models.AnalysisResult{}
	err := s.Scan(
		&result.ID,
		&result.RunID,
		&result.Kind,
		&result.Status,
		&result.Content,
		&result.Error,
		&result.DeckName,
		&result.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan analysis result: %w", err)
	}
	return result, nil
}
