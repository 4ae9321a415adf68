package models

import "time"

// MaxContentLength bounds stored content and embedding input cost.
const MaxContentLength = 50000

// StoryCategory is the coarse editorial category of an item.
type StoryCategory string

const (
	CategoryResearch     StoryCategory = "research"
	CategoryNews         StoryCategory = "news"
	CategoryTools        StoryCategory = "tools"
	CategoryAnalysis     StoryCategory = "analysis"
	CategoryTutorial     StoryCategory = "tutorial"
	CategoryAnnouncement StoryCategory = "announcement"
)

// StoryCategories lists every accepted category.
var StoryCategories = []StoryCategory{
	CategoryResearch,
	CategoryNews,
	CategoryTools,
	CategoryAnalysis,
	CategoryTutorial,
	CategoryAnnouncement,
}

// Valid reports whether c is one of the enumerated categories.
func (c StoryCategory) Valid() bool {
	for _, known := range StoryCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Item is the canonical shape every adapter produces.
type Item struct {
	Title         string        `json:"title"`
	URL           string        `json:"url"`
	Content       string        `json:"content"`
	PublishedAt   time.Time     `json:"published_at"`
	ExternalID    string        `json:"external_id"`
	Tags          []string      `json:"tags"`
	Summary       string        `json:"summary,omitempty"`
	Author        string        `json:"author,omitempty"`
	ImageURL      string        `json:"image_url,omitempty"`
	StoryCategory StoryCategory `json:"story_category,omitempty"`

	// OriginalMetadata preserves upstream fields verbatim. Nothing downstream
	// of the adapters interprets it.
	OriginalMetadata map[string]any `json:"original_metadata,omitempty"`

	TaggingMetadata *TaggingMetadata `json:"tagging_metadata,omitempty"`
	Embedding       []float32        `json:"embedding,omitempty"`
}

// HasEmbedding reports whether the tagging engine attached a vector.
func (i Item) HasEmbedding() bool {
	return len(i.Embedding) > 0
}

// TaggingMetadata records how the tagging engine arrived at an item's tags.
type TaggingMetadata struct {
	AdapterName          string          `json:"adapter_name"`
	Version              string          `json:"version"`
	TagsFound            int             `json:"tags_found"`
	TagCategoriesMatched []string        `json:"tag_categories_matched"`
	KeywordsMatched      []string        `json:"keywords_matched"`
	PatternsMatched      []string        `json:"patterns_matched"`
	ConfidenceScore      float64         `json:"confidence_score"`
	ProcessingTimeMs     float64         `json:"processing_time_ms"`
	ProcessingNotes      []string        `json:"processing_notes"`
	HeuristicTags        []string        `json:"heuristic_tags,omitempty"`
	SemanticTags         []SemanticMatch `json:"semantic_tags,omitempty"`
}

// SemanticMatch is a prototype tag and its cosine similarity to the content.
type SemanticMatch struct {
	Tag        string  `json:"tag"`
	Similarity float64 `json:"similarity"`
}
