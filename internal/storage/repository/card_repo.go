package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ramonehamilton/deck-strategist/internal/scryfall"
)

// CardRepository stores catalog records so they survive restarts.
type CardRepository interface {
	// GetCard returns the record stored under the requested name, or nil.
	GetCard(ctx context.Context, name string) (*scryfall.Card, error)

	// SaveCard stores a record under the requested name.
	SaveCard(ctx context.Context, name string, card *scryfall.Card) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
}

type cardRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewCardRepository creates a new card repository.
func NewCardRepository(db *sql.DB) CardRepository {
	return &cardRepository{db: db, now: time.Now}
}

// GetCard returns the record stored under the requested name, or nil.
func (r *cardRepository) GetCard(ctx context.Context, name string) (*scryfall.Card, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM catalog_cards WHERE requested_name = ?`, name,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card %q: %w", name, err)
	}

	var card scryfall.Card
	if err := json.Unmarshal(data, &card); err != nil {
		return nil, fmt.Errorf("failed to decode stored card %q: %w", name, err)
	}
	return &card, nil
}

// SaveCard stores a record under the requested name. Records are immutable,
// so an existing row is left untouched.
func (r *cardRepository) SaveCard(ctx context.Context, name string, card *scryfall.Card) error {
	if card == nil {
		return fmt.Errorf("card cannot be nil")
	}
	data, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to encode card %q: %w", name, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO catalog_cards (requested_name, scryfall_id, name, data, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(requested_name) DO NOTHING
	`, name, card.ID, card.Name, string(data), r.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save card %q: %w", name, err)
	}
	return nil
}

// Count returns the number of stored records.
func (r *cardRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_cards`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return n, nil
}
