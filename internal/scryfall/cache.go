package scryfall

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Cache memoizes catalog records by the exact name that was requested.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(name string) (*Card, bool)
	Set(name string, card *Card)
	Len() int
}

// Policy selects the eviction behaviour of the in-process cache.
type Policy string

const (
	// PolicyNone keeps every record for the life of the process.
	PolicyNone Policy = "none"

	// PolicyLRU keeps at most MaxSize records, evicting the least recently used.
	PolicyLRU Policy = "lru"
)

// NewCache builds an in-process cache for the given policy.
func NewCache(policy Policy, maxSize int) (Cache, error) {
	switch policy {
	case PolicyNone, "":
		return NewMemoryCache(), nil
	case PolicyLRU:
		return NewLRUCache(maxSize)
	default:
		return nil, fmt.Errorf("unknown cache policy %q", policy)
	}
}

// memoryCache is an unbounded map guarded by a RWMutex.
type memoryCache struct {
	mu    sync.RWMutex
	cards map[string]*Card
}

// NewMemoryCache returns a cache with no eviction.
func NewMemoryCache() Cache {
	return &memoryCache{cards: make(map[string]*Card)}
}

func (m *memoryCache) Get(name string) (*Card, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	card, ok := m.cards[name]
	return card, ok
}

func (m *memoryCache) Set(name string, card *Card) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[name] = card
}

func (m *memoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cards)
}

// lruCache bounds the number of records held in memory.
type lruCache struct {
	cards *lru.Cache[string, *Card]
}

// NewLRUCache returns a cache holding at most size records.
func NewLRUCache(size int) (Cache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("lru cache size must be positive, got %d", size)
	}
	cards, err := lru.New[string, *Card](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &lruCache{cards: cards}, nil
}

func (l *lruCache) Get(name string) (*Card, bool) {
	return l.cards.Get(name)
}

func (l *lruCache) Set(name string, card *Card) {
	l.cards.Add(name, card)
}

func (l *lruCache) Len() int {
	return l.cards.Len()
}

// CardStore persists catalog records across restarts.
type CardStore interface {
	GetCard(ctx context.Context, name string) (*Card, error)
	SaveCard(ctx context.Context, name string, card *Card) error
}

const storeTimeout = 5 * time.Second

// tieredCache fronts a persistent store with an in-process cache.
// Writes go through to the store; store failures are logged, never surfaced,
// because the in-process tier still satisfies the lookup.
type tieredCache struct {
	front  Cache
	store  CardStore
	logger *zap.Logger
}

// NewTieredCache returns a write-through cache over store.
func NewTieredCache(front Cache, store CardStore, logger *zap.Logger) Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &tieredCache{front: front, store: store, logger: logger}
}

func (t *tieredCache) Get(name string) (*Card, bool) {
	if card, ok := t.front.Get(name); ok {
		return card, true
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	card, err := t.store.GetCard(ctx, name)
	if err != nil {
		t.logger.Warn("card store read failed", zap.String("card", name), zap.Error(err))
		return nil, false
	}
	if card == nil {
		return nil, false
	}
	t.front.Set(name, card)
	return card, true
}

func (t *tieredCache) Set(name string, card *Card) {
	t.front.Set(name, card)

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := t.store.SaveCard(ctx, name, card); err != nil {
		t.logger.Warn("card store write failed", zap.String("card", name), zap.Error(err))
	}
}

func (t *tieredCache) Len() int {
	return t.front.Len()
}
