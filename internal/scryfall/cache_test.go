package scryfall

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCache(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		size    int
		wantErr bool
	}{
		{name: "default", policy: "", size: 0},
		{name: "none", policy: PolicyNone, size: 0},
		{name: "lru", policy: PolicyLRU, size: 10},
		{name: "lru without size", policy: PolicyLRU, size: 0, wantErr: true},
		{name: "unknown", policy: "fifo", size: 10, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache, err := NewCache(tt.policy, tt.size)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, cache)
		})
	}
}

func TestLRUCache_Evicts(t *testing.T) {
	cache, err := NewLRUCache(2)
	require.NoError(t, err)

	cache.Set("a", &Card{Name: "a"})
	cache.Set("b", &Card{Name: "b"})
	_, _ = cache.Get("a") // a is now most recently used
	cache.Set("c", &Card{Name: "c"})

	assert.Equal(t, 2, cache.Len())
	_, ok := cache.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = cache.Get("a")
	assert.True(t, ok)
}

type fakeStore struct {
	mu      sync.Mutex
	cards   map[string]*Card
	readErr error
	saves   int
}

func (f *fakeStore) GetCard(_ context.Context, name string) (*Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.cards[name], nil
}

func (f *fakeStore) SaveCard(_ context.Context, name string, card *Card) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cards[name] = card
	f.saves++
	return nil
}

func TestTieredCache(t *testing.T) {
	store := &fakeStore{cards: map[string]*Card{
		"Opt": {Name: "Opt"},
	}}
	cache := NewTieredCache(NewMemoryCache(), store, nil)

	card, ok := cache.Get("Opt")
	require.True(t, ok, "store hit should be served")
	assert.Equal(t, "Opt", card.Name)
	assert.Equal(t, 1, cache.Len(), "store hit should populate the front tier")

	cache.Set("Shock", &Card{Name: "Shock"})
	assert.Equal(t, 1, store.saves)
	assert.Contains(t, store.cards, "Shock")

	_, ok = cache.Get("Counterspell")
	assert.False(t, ok)
}

func TestTieredCache_StoreErrorIsAMiss(t *testing.T) {
	store := &fakeStore{cards: map[string]*Card{}, readErr: errors.New("disk on fire")}
	cache := NewTieredCache(NewMemoryCache(), store, nil)

	_, ok := cache.Get("Opt")
	assert.False(t, ok)
}
