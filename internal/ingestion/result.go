package ingestion

import (
	"strings"
	"time"

	"github.com/datagate/datagate/internal/models"
	"github.com/datagate/datagate/internal/validation"
)

// Coverage counts enriched items carrying each optional field.
type Coverage struct {
	Total     int `json:"total"`
	Summary   int `json:"with_summary"`
	Author    int `json:"with_author"`
	Image     int `json:"with_image"`
	Category  int `json:"with_category"`
	Embedding int `json:"with_embedding"`
}

// CoverageOf counts optional fields across items.
func CoverageOf(items []models.Item) Coverage {
	c := Coverage{Total: len(items)}
	for _, it := range items {
		if strings.TrimSpace(it.Summary) != "" {
			c.Summary++
		}
		if strings.TrimSpace(it.Author) != "" {
			c.Author++
		}
		if strings.TrimSpace(it.ImageURL) != "" {
			c.Image++
		}
		if it.StoryCategory != "" {
			c.Category++
		}
		if it.HasEmbedding() {
			c.Embedding++
		}
	}
	return c
}

// Percent returns n as a rounded share of Total.
func (c Coverage) Percent(n int) int {
	return percent(n, c.Total)
}

func (c Coverage) add(o Coverage) Coverage {
	return Coverage{
		Total:     c.Total + o.Total,
		Summary:   c.Summary + o.Summary,
		Author:    c.Author + o.Author,
		Image:     c.Image + o.Image,
		Category:  c.Category + o.Category,
		Embedding: c.Embedding + o.Embedding,
	}
}

func percent(n, total int) int {
	if total <= 0 {
		return 0
	}
	return int(float64(n)*100/float64(total) + 0.5)
}

// RunResult is the report of one source run.
type RunResult struct {
	RunID      string               `json:"run_id"`
	Adapter    string               `json:"adapter"`
	SourceName string               `json:"source_name"`
	SourceID   string               `json:"source_id,omitempty"`
	State      State                `json:"state"`
	Success    bool                 `json:"success"`
	Error      string               `json:"error,omitempty"`
	ErrorType  string               `json:"error_type,omitempty"`
	Processed  int                  `json:"items_processed"`
	Succeeded  int                  `json:"items_succeeded"`
	Failed     int                  `json:"items_failed"`
	Skipped    int                  `json:"items_skipped"`
	Invalid    []validation.Invalid `json:"invalid,omitempty"`
	Coverage   Coverage             `json:"coverage"`
	Duration   time.Duration        `json:"duration_ns"`
	StartedAt  time.Time            `json:"started_at"`

	err error
}

// Err returns the run's fatal error, if any, for errors.Is checks.
func (r RunResult) Err() error {
	return r.err
}
