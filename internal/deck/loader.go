package deck

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrDeckNotFound is returned when the deck file does not exist.
var ErrDeckNotFound = errors.New("deck file not found")

// Load reads a deck definition. Files ending in .yaml or .yml are parsed as
// YAML, anything else as JSON.
func Load(path string) (*Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDeckNotFound, path)
		}
		return nil, fmt.Errorf("read deck file: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes a deck definition. ext selects the encoding (".json", ".yaml", ".yml").
func Parse(data []byte, ext string) (*Deck, error) {
	var d Deck
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("parse deck yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("parse deck json: %w", err)
		}
	}

	if d.MainDeck == nil {
		d.MainDeck = []SlotEntry{}
	}
	if d.Sideboard == nil {
		d.Sideboard = []SlotEntry{}
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}
