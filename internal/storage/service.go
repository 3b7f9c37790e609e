package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ramonehamilton/deck-strategist/internal/scryfall"
	"github.com/ramonehamilton/deck-strategist/internal/storage/models"
	"github.com/ramonehamilton/deck-strategist/internal/storage/repository"
)

// DefaultHistoryPerKind is how many settled analyses of each kind are kept.
const DefaultHistoryPerKind = 20

// Service provides the stored catalog records and analysis history.
type Service struct {
	db       *DB
	cards    repository.CardRepository
	analyses repository.AnalysisRepository
	keep     int
}

// NewService creates a new storage service.
func NewService(db *DB) *Service {
	return &Service{
		db:       db,
		cards:    repository.NewCardRepository(db.Conn()),
		analyses: repository.NewAnalysisRepository(db.Conn()),
		keep:     DefaultHistoryPerKind,
	}
}

// SetHistoryPerKind changes how many settled analyses of each kind are kept.
// Values below one keep the default.
func (s *Service) SetHistoryPerKind(n int) {
	if n < 1 {
		n = DefaultHistoryPerKind
	}
	s.keep = n
}

// GetCard implements scryfall.CardStore.
func (s *Service) GetCard(ctx context.Context, name string) (*scryfall.Card, error) {
	return s.cards.GetCard(ctx, name)
}

// SaveCard implements scryfall.CardStore.
func (s *Service) SaveCard(ctx context.Context, name string, card *scryfall.Card) error {
	return s.cards.SaveCard(ctx, name, card)
}

// CardCount returns the number of stored catalog records.
func (s *Service) CardCount(ctx context.Context) (int, error) {
	return s.cards.Count(ctx)
}

// RecordAnalysis stores a settled analysis and trims old history in one
// transaction.
func (s *Service) RecordAnalysis(ctx context.Context, result *models.AnalysisResult) error {
	return s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		analyses := repository.NewAnalysisRepository(tx)
		if err := analyses.Create(ctx, result); err != nil {
			return err
		}
		if _, err := analyses.Prune(ctx, s.keep); err != nil {
			return fmt.Errorf("failed to trim analysis history: %w", err)
		}
		return nil
	})
}

// AnalysisHistory returns the most recent settled analyses, newest first.
func (s *Service) AnalysisHistory(ctx context.Context, limit int) ([]*models.AnalysisResult, error) {
	return s.analyses.ListRecent(ctx, limit)
}

// LatestAnalysis returns the newest completed analysis of a kind, or nil.
func (s *Service) LatestAnalysis(ctx context.Context, kind string) (*models.AnalysisResult, error) {
	return s.analyses.LatestCompleted(ctx, kind)
}

// Close closes the database.
func (s *Service) Close() error {
	return s.db.Close()
}

var _ scryfall.CardStore = (*Service)(nil)
