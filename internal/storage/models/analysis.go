package models

import "time"

// AnalysisResult is one settled analysis run kept for history.
type AnalysisResult struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"runId"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	Content   string    `json:"content,omitempty"`
	Error     string    `json:"error,omitempty"`
	DeckName  string    `json:"deckName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// CatalogCard is a stored catalog record keyed by the requested card name.
type CatalogCard struct {
	RequestedName string
	ScryfallID    string
	Name          string
	Data          []byte
	FetchedAt     time.Time
}
