package models

import (
	"time"

	"github.com/google/uuid"
)

// Story is an Item persisted against a source.
type Story struct {
	Item

	ID                   string     `json:"id"`
	SourceID             string     `json:"source_id"`
	EmbeddingModel       string     `json:"embedding_model,omitempty"`
	EmbeddingGeneratedAt *time.Time `json:"embedding_generated_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// NewStory wraps item for persistence under sourceID. Embedding lineage is
// recorded only when the item carries a vector.
func NewStory(sourceID string, item Item, embeddingModel string, now time.Time) Story {
	story := Story{
		Item:      item,
		ID:        uuid.New().String(),
		SourceID:  sourceID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if story.Tags == nil {
		story.Tags = []string{}
	}
	if item.HasEmbedding() {
		story.EmbeddingModel = embeddingModel
		generated := now
		story.EmbeddingGeneratedAt = &generated
	}
	return story
}
