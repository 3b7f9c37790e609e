package scryfall

import "strings"

// Card represents a Magic card as returned by the Scryfall named-card endpoint.
// Records are snapshots of the catalog and are never mutated after decoding.
type Card struct {
	// Core fields
	ID       string `json:"id"`
	OracleID string `json:"oracle_id,omitempty"`

	// Card details
	Name          string     `json:"name"`
	Layout        string     `json:"layout,omitempty"`
	ImageURIs     *ImageURIs `json:"image_uris,omitempty"`
	ManaCost      string     `json:"mana_cost"`
	CMC           float64    `json:"cmc"`
	TypeLine      string     `json:"type_line"`
	OracleText    string     `json:"oracle_text"`
	Colors        []string   `json:"colors,omitempty"`
	ColorIdentity []string   `json:"color_identity"`
	Keywords      []string   `json:"keywords,omitempty"`

	// Gameplay
	Power     string `json:"power,omitempty"`
	Toughness string `json:"toughness,omitempty"`
	Loyalty   string `json:"loyalty,omitempty"`

	// Print details
	SetCode string `json:"set,omitempty"`
	SetName string `json:"set_name,omitempty"`
	Rarity  string `json:"rarity,omitempty"`

	// Card faces (for DFCs, MDFCs, split cards)
	CardFaces []CardFace `json:"card_faces,omitempty"`

	// Legalities maps a format name (e.g. "modern") to a status
	// ("legal", "not_legal", "restricted", "banned").
	Legalities map[string]string `json:"legalities"`
}

// CardFace represents one face of a multi-faced card.
type CardFace struct {
	Name       string     `json:"name"`
	ManaCost   string     `json:"mana_cost,omitempty"`
	TypeLine   string     `json:"type_line"`
	OracleText string     `json:"oracle_text,omitempty"`
	Colors     []string   `json:"colors,omitempty"`
	Power      string     `json:"power,omitempty"`
	Toughness  string     `json:"toughness,omitempty"`
	Loyalty    string     `json:"loyalty,omitempty"`
	ImageURIs  *ImageURIs `json:"image_uris,omitempty"`
}

// ImageURIs contains URLs for card images in various sizes.
type ImageURIs struct {
	Small  string `json:"small"`
	Normal string `json:"normal"`
	Large  string `json:"large"`
}

// APIError is the error object Scryfall returns with non-2xx responses.
type APIError struct {
	Object   string   `json:"object"`
	Code     string   `json:"code"`
	Status   int      `json:"status"`
	Details  string   `json:"details"`
	Warnings []string `json:"warnings,omitempty"`
}

// FallbackImageURL is used when a card carries no image on any face.
const FallbackImageURL = "/card-back.png"

// ImageURL returns the small image for the card. Multi-faced cards keep their
// images on the faces, so the first face is used when the card has none.
func (c *Card) ImageURL() string {
	if c.ImageURIs != nil && c.ImageURIs.Small != "" {
		return c.ImageURIs.Small
	}
	if len(c.CardFaces) > 0 && c.CardFaces[0].ImageURIs != nil && c.CardFaces[0].ImageURIs.Small != "" {
		return c.CardFaces[0].ImageURIs.Small
	}
	return FallbackImageURL
}

// Legality pairs a display format name with a legality status.
type Legality struct {
	Format string `json:"format"`
	Status string `json:"status"`
}

// relevantFormats is the priority order used when listing legal formats.
var relevantFormats = []string{
	"standard", "pioneer", "modern", "legacy", "vintage",
	"commander", "pauper", "historic", "timeless",
}

// detailFormats is the order used for the full legality listing.
var detailFormats = append(append([]string{}, relevantFormats...), "brawl")

const maxRelevantLegalities = 3

// RelevantLegalities returns up to three formats the card is legal in,
// in priority order.
func (c *Card) RelevantLegalities() []Legality {
	var out []Legality
	for _, format := range relevantFormats {
		if c.Legalities[format] != "legal" {
			continue
		}
		out = append(out, Legality{Format: displayFormat(format), Status: "legal"})
		if len(out) == maxRelevantLegalities {
			break
		}
	}
	return out
}

// AllLegalities returns every known format whose status is not "not_legal".
// Formats missing from the record count as not legal.
func (c *Card) AllLegalities() []Legality {
	var out []Legality
	for _, format := range detailFormats {
		status, ok := c.Legalities[format]
		if !ok || status == "" || status == "not_legal" {
			continue
		}
		out = append(out, Legality{Format: displayFormat(format), Status: status})
	}
	return out
}

func displayFormat(format string) string {
	if format == "" {
		return format
	}
	return strings.ToUpper(format[:1]) + format[1:]
}
