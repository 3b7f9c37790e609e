package deck

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDebounce coalesces the burst of events editors emit on save.
const reloadDebounce = 200 * time.Millisecond

// Source holds the current deck and reloads it when the file changes.
type Source struct {
	path   string
	logger *zap.Logger

	mu       sync.RWMutex
	current  *Deck
	onReload []func(*Deck)
}

// NewSource loads the deck at path.
func NewSource(path string, logger *zap.Logger) (*Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Source{path: path, logger: logger, current: d}, nil
}

// Path returns the watched file path.
func (s *Source) Path() string {
	return s.path
}

// Current returns the most recently loaded deck.
func (s *Source) Current() *Deck {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// OnReload registers fn to run after every successful reload.
func (s *Source) OnReload(fn func(*Deck)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReload = append(s.onReload, fn)
}

// Reload re-reads the deck file. On error the previous deck is kept.
func (s *Source) Reload() error {
	d, err := Load(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.current = d
	hooks := append([]func(*Deck){}, s.onReload...)
	s.mu.Unlock()

	s.logger.Info("deck reloaded",
		zap.String("deck", d.DeckName),
		zap.Int("main", CardCount(d.MainDeck)),
		zap.Int("sideboard", CardCount(d.Sideboard)))

	for _, fn := range hooks {
		fn(d)
	}
	return nil
}

// Watch reloads the deck whenever the file is written, until ctx is done.
// The parent directory is watched so editors that replace the file on save
// are still picked up.
func (s *Source) Watch(ctx context.Context) (err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("failed to watch deck directory: %w", err)
	}

	target := filepath.Clean(s.path)
	var debounce <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debounce = time.After(reloadDebounce)
			}

		case <-debounce:
			debounce = nil
			if err := s.Reload(); err != nil {
				s.logger.Warn("deck reload failed, keeping previous deck", zap.Error(err))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("deck watcher error", zap.Error(err))
		}
	}
}
