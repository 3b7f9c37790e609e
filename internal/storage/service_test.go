package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/deck-strategist/internal/scryfall"
	"github.com/ramonehamilton/deck-strategist/internal/storage/models"
)

func TestService_CardRoundTrip(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	missing, err := svc.GetCard(ctx, "Lightning Bolt")
	require.NoError(t, err)
	assert.Nil(t, missing)

	card := &scryfall.Card{
		ID:         "e3285e6b-3e79-4d7c-bf96-d920f973b122",
		Name:       "Lightning Bolt",
		ManaCost:   "{R}",
		CMC:        1,
		TypeLine:   "Instant",
		OracleText: "Lightning Bolt deals 3 damage to any target.",
		Legalities: map[string]string{"modern": "legal"},
	}
	require.NoError(t, svc.SaveCard(ctx, "Lightning Bolt", card))

	got, err := svc.GetCard(ctx, "Lightning Bolt")
	require.NoError(t, err)
	assert.Equal(t, card, got)

	// Records are immutable: a second save keeps the first.
	require.NoError(t, svc.SaveCard(ctx, "Lightning Bolt", &scryfall.Card{ID: "other", Name: "Lightning Bolt"}))
	got, err = svc.GetCard(ctx, "Lightning Bolt")
	require.NoError(t, err)
	assert.Equal(t, card.ID, got.ID)

	n, err := svc.CardCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestService_TieredCacheSurvivesRestart(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	first := scryfall.NewTieredCache(scryfall.NewMemoryCache(), svc, nil)
	first.Set("Opt", &scryfall.Card{ID: "opt-id", Name: "Opt"})

	second := scryfall.NewTieredCache(scryfall.NewMemoryCache(), svc, nil)
	card, ok := second.Get("Opt")
	require.True(t, ok)
	assert.Equal(t, "opt-id", card.ID)

	n, err := svc.CardCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestService_AnalysisHistory(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, status := range []string{"completed", "error", "completed"} {
		require.NoError(t, svc.RecordAnalysis(ctx, &models.AnalysisResult{
			RunID:     fmt.Sprintf("run-%d", i),
			Kind:      "overview",
			Status:    status,
			Content:   fmt.Sprintf("content %d", i),
			DeckName:  "Burn",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	history, err := svc.AnalysisHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "run-2", history[0].RunID)
	assert.Equal(t, "run-0", history[2].RunID)
	assert.NotZero(t, history[0].ID)

	latest, err := svc.LatestAnalysis(ctx, "overview")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "content 2", latest.Content)

	none, err := svc.LatestAnalysis(ctx, "tactics")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestService_AnalysisHistoryIsTrimmedPerKind(t *testing.T) {
	svc := setupTestService(t)
	svc.SetHistoryPerKind(2)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		require.NoError(t, svc.RecordAnalysis(ctx, &models.AnalysisResult{
			RunID:     fmt.Sprintf("mull-%d", i),
			Kind:      "mulligan",
			Status:    "completed",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, svc.RecordAnalysis(ctx, &models.AnalysisResult{
		RunID: "tac-0", Kind: "tactics", Status: "completed", CreatedAt: base,
	}))

	history, err := svc.AnalysisHistory(ctx, 0)
	require.NoError(t, err)

	var runIDs []string
	for _, h := range history {
		runIDs = append(runIDs, h.RunID)
	}
	assert.ElementsMatch(t, []string{"mull-3", "mull-2", "tac-0"}, runIDs)
}

func TestService_RejectsUnknownStatus(t *testing.T) {
	svc := setupTestService(t)

	err := svc.RecordAnalysis(context.Background(), &models.AnalysisResult{
		RunID: "r", Kind: "overview", Status: "running", CreatedAt: time.Now(),
	})
	assert.Error(t, err)
}
