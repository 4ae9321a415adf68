package ingestion

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/datagate/datagate/internal/models"
	"github.com/google/uuid"
)

var (
	// ErrSourceNotFound means the adapter's persisted source is not registered.
	ErrSourceNotFound = errors.New("source not found")
	// ErrConflict means a story collided with a uniqueness constraint other
	// than its upsert key.
	ErrConflict = errors.New("story conflicts with an existing record")
)

// UpsertOutcome reports what an upsert did.
type UpsertOutcome int

const (
	Unchanged UpsertOutcome = iota
	Inserted
	Updated
)

func (o UpsertOutcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// Store is the persistence boundary of the pipeline.
type Store interface {
	// FindSourceByName resolves a registered source; unknown names return
	// an error wrapping ErrSourceNotFound.
	FindSourceByName(ctx context.Context, name string) (models.SourceConfig, error)

	// UpsertStory inserts or updates by (source_id, external_id).
	UpsertStory(ctx context.Context, story models.Story) (UpsertOutcome, error)

	// QueryExisting returns the subset of externalIDs already stored for sourceID.
	QueryExisting(ctx context.Context, sourceID string, externalIDs []string) (map[string]struct{}, error)

	// QueryExistingURLs returns the subset of urls already stored under any source.
	QueryExistingURLs(ctx context.Context, urls []string) (map[string]struct{}, error)
}

type storyKey struct {
	sourceID   string
	externalID string
}

// MemoryStore is an in-memory Store for tests and dry runs. It enforces the
// same uniqueness rules as the Postgres schema.
type MemoryStore struct {
	mu      sync.RWMutex
	sources map[string]models.SourceConfig // by name
	stories map[storyKey]models.Story
	urlIdx  map[string]storyKey
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sources: make(map[string]models.SourceConfig),
		stories: make(map[storyKey]models.Story),
		urlIdx:  make(map[string]storyKey),
	}
}

// RegisterSource stores a source, assigning an id when missing.
func (s *MemoryStore) RegisterSource(src models.SourceConfig) models.SourceConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sources[src.Name]; ok {
		return existing
	}
	if src.ID == "" {
		src.ID = uuid.New().String()
	}
	s.sources[src.Name] = src
	return src
}

// FindSourceByName resolves a source by its persisted name.
func (s *MemoryStore) FindSourceByName(ctx context.Context, name string) (models.SourceConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.sources[name]
	if !ok {
		return models.SourceConfig{}, fmt.Errorf("%w: %q", ErrSourceNotFound, name)
	}
	return src, nil
}

// UpsertStory inserts a new story or updates the one with the same key. The
// original id and creation time survive updates; identical content reports
// Unchanged.
func (s *MemoryStore) UpsertStory(ctx context.Context, story models.Story) (UpsertOutcome, error) {
	if err := ctx.Err(); err != nil {
		return Unchanged, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storyKey{sourceID: story.SourceID, externalID: story.ExternalID}
	if owner, ok := s.urlIdx[story.URL]; ok && owner != key {
		return Unchanged, fmt.Errorf("%w: url %s", ErrConflict, story.URL)
	}

	existing, ok := s.stories[key]
	if !ok {
		s.stories[key] = story
		s.urlIdx[story.URL] = key
		return Inserted, nil
	}

	if sameContent(existing, story) {
		return Unchanged, nil
	}

	story.ID = existing.ID
	story.CreatedAt = existing.CreatedAt
	if story.UpdatedAt.IsZero() {
		story.UpdatedAt = time.Now()
	}
	if existing.URL != story.URL {
		delete(s.urlIdx, existing.URL)
	}
	s.stories[key] = story
	s.urlIdx[story.URL] = key
	return Updated, nil
}

// QueryExisting returns the external ids already stored for sourceID.
func (s *MemoryStore) QueryExisting(ctx context.Context, sourceID string, externalIDs []string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := make(map[string]struct{})
	for _, id := range externalIDs {
		if _, ok := s.stories[storyKey{sourceID: sourceID, externalID: id}]; ok {
			found[id] = struct{}{}
		}
	}
	return found, nil
}

// QueryExistingURLs returns the urls already stored under any source.
func (s *MemoryStore) QueryExistingURLs(ctx context.Context, urls []string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := make(map[string]struct{})
	for _, u := range urls {
		if _, ok := s.urlIdx[u]; ok {
			found[u] = struct{}{}
		}
	}
	return found, nil
}

// Stories returns every stored story for sourceID.
func (s *MemoryStore) Stories(sourceID string) []models.Story {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Story, 0)
	for key, story := range s.stories {
		if key.sourceID == sourceID {
			out = append(out, story)
		}
	}
	return out
}

// Size returns the number of stored stories.
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stories)
}

// sameContent compares the editorial columns; lineage metadata is ignored.
func sameContent(a, b models.Story) bool {
	return a.Title == b.Title &&
		a.URL == b.URL &&
		a.Content == b.Content &&
		a.Summary == b.Summary &&
		a.Author == b.Author &&
		a.ImageURL == b.ImageURL &&
		a.StoryCategory == b.StoryCategory &&
		a.PublishedAt.Equal(b.PublishedAt) &&
		slices.Equal(a.Tags, b.Tags) &&
		slices.Equal(a.Embedding, b.Embedding)
}
