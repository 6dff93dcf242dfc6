package search

import (
	"time"

	"github.com/Paintersrp/recall/internal/recall"
)

// Config describes index behavior.
type Config struct {
	// Threshold is the highest mean field score that still counts as a
	// field match. Zero is a perfect match.
	Threshold float64
	// TokenThreshold bounds how far a vocabulary word may be from a query
	// token and still be considered a hit for it.
	TokenThreshold float64
	// MinTokenLength drops query fragments shorter than this many runes.
	MinTokenLength int
	// Weights rank the fields against each other.
	Weights Weights
}

type Weights struct {
	Name    float64
	Content float64
	Context float64
}

// DefaultConfig returns the tuning used by the recall service.
func DefaultConfig() Config {
	return Config{
		Threshold:      0.4,
		TokenThreshold: 0.45,
		MinTokenLength: 2,
		Weights:        Weights{Name: 3, Content: 2, Context: 1},
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Threshold <= 0 {
		c.Threshold = def.Threshold
	}
	if c.TokenThreshold <= 0 {
		c.TokenThreshold = def.TokenThreshold
	}
	if c.MinTokenLength <= 0 {
		c.MinTokenLength = def.MinTokenLength
	}
	if c.Weights == (Weights{}) {
		c.Weights = def.Weights
	}
	return c
}

// RawRequest is a recall request as it arrives from a client, before any
// validation. Field types are whatever the JSON decoder produced.
type RawRequest struct {
	Query      any `json:"query"`
	Limit      any `json:"limit,omitempty"`
	Categories any `json:"categories,omitempty"`
	DateFrom   any `json:"date_from,omitempty"`
	DateTo     any `json:"date_to,omitempty"`
}

// Request is a validated recall query.
type Request struct {
	Query      string
	Limit      int
	Categories []recall.Category
	From       *time.Time
	To         *time.Time
}

// Result captures a ranked recall hit.
type Result struct {
	Path     string          `json:"path"`
	Name     string          `json:"name"`
	Category recall.Category `json:"category"`
	Excerpt  string          `json:"excerpt"`
	Context  string          `json:"context"`
	Score    float64         `json:"score"`
}
