package model

import (
	"fmt"
	"time"
)

type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// StyleDescriptor summarises the look of one image, or of several pooled
// together. Brightness and Sharpness are enhancement factors, not measurements.
type StyleDescriptor struct {
	DominantColors []RGB   `json:"dominant_colors"`
	Brightness     float64 `json:"brightness"`
	Sharpness      float64 `json:"sharpness"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
}

type GenerationKind string

const (
	KindGenerate GenerationKind = "generate"
	KindMix      GenerationKind = "mix"
	KindCollage  GenerationKind = "collage"
)

type ImageRef struct {
	ID           string `json:"id"`
	CollectionID string `json:"collection_id"`
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	BlobKey      string `json:"blob_key"`
	CreatedAt    int64  `json:"created_at_unix_ms"`
}

type GenerationRef struct {
	ID           string         `json:"id"`
	CollectionID string         `json:"collection_id"`
	Kind         GenerationKind `json:"kind"`
	BlobKey      string         `json:"blob_key"`
	SourceCount  int            `json:"source_count"`
	Caption      string         `json:"caption"`
	CreatedAt    int64          `json:"created_at_unix_ms"`
}

type Contributor struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Images   int    `json:"images"`
}

type CollectionStats struct {
	CollectionID string        `json:"collection_id"`
	TotalImages  int           `json:"total_images"`
	Participants int           `json:"participants"`
	Top          []Contributor `json:"top"`
}

type StoredState struct {
	Collections       map[string][]ImageRef      `json:"collections"`
	Generations       map[string][]GenerationRef `json:"generations"`
	LastUpdatedUnixMS int64                      `json:"last_updated_unix_ms"`
	CreatedAt         time.Time                  `json:"created_at"`
}

type Event struct {
	Type         string      `json:"type"`
	CollectionID string      `json:"collection_id,omitempty"`
	Payload      interface{} `json:"payload"`
	CreatedAt    int64       `json:"created_at_unix_ms"`
}
