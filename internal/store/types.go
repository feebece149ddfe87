package store

import (
	"time"

	"github.com/google/uuid"
)

// Maximum raw content length accepted for an item. Longer submissions
// are rejected before any AI call is made.
const MaxContentLength = 10000

// Owner is an account that items and categories belong to. Name and
// Occupation are optional and feed prompt personalization.
type Owner struct {
	ID         string
	Name       string
	Occupation string
	CreatedAt  time.Time
}

// Category is one node of an owner's dynamically grown taxonomy.
// Names are unique per owner. UpdatedAt moves on rename.
type Category struct {
	ID          uuid.UUID
	OwnerID     string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CategoryCount pairs a category with its item count for listings.
type CategoryCount struct {
	Category
	ItemCount int
}

// Tags holds the AI-extracted metadata for an item. Stored as JSONB.
// Entities maps an entity type ("person", "product", "place") to the
// names found. Sentiment is one of neutral, positive, excited, urgent,
// contemplative; TimeReference one of now, today, this_week, future,
// none.
type Tags struct {
	Keywords      []string            `json:"keywords,omitempty"`
	Entities      map[string][]string `json:"entities,omitempty"`
	Concepts      []string            `json:"concepts,omitempty"`
	Actionables   []string            `json:"actionables,omitempty"`
	Sentiment     string              `json:"sentiment,omitempty"`
	TimeReference string              `json:"time_reference,omitempty"`
}

// Item is a single captured piece of knowledge.
//
// HasEmbedding reflects whether the embedding column is populated.
// Items written while the embedding service was unavailable carry a
// NULL embedding until the backfill sweep fills it in.
type Item struct {
	ID           uuid.UUID
	OwnerID      string
	CategoryID   uuid.UUID
	RawContent   string
	Essence      string
	Tags         Tags
	HasEmbedding bool
	CreatedAt    time.Time
}

// VectorHit is an item matched by vector search with its cosine
// similarity in [0, 1].
type VectorHit struct {
	Item
	Similarity float64
}
