package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/datagate/datagate/internal/ingestion"
	"github.com/datagate/datagate/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const storiesURLConstraint = "stories_url_key"

// PostgresStore implements ingestion.Store on the sources and stories tables.
type PostgresStore struct {
	db *sql.DB
}

var _ ingestion.Store = (*PostgresStore)(nil)

// NewPostgresStore creates a store over db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSources registers sources by name, refreshing type, endpoint and
// frequency for names that already exist.
func (s *PostgresStore) EnsureSources(ctx context.Context, sources []models.SourceConfig) error {
	query := `
		INSERT INTO sources (id, name, type, endpoint_url, fetch_freq_min)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE SET
			type = EXCLUDED.type,
			endpoint_url = EXCLUDED.endpoint_url,
			fetch_freq_min = EXCLUDED.fetch_freq_min,
			updated_at = NOW()
	`
	for _, src := range sources {
		id := src.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := s.db.ExecContext(ctx, query, id, src.Name, string(src.Type), src.EndpointURL, src.FetchFrequencyMinutes); err != nil {
			return fmt.Errorf("failed to register source %q: %w", src.Name, err)
		}
	}
	return nil
}

// FindSourceByName resolves a registered source.
func (s *PostgresStore) FindSourceByName(ctx context.Context, name string) (models.SourceConfig, error) {
	var src models.SourceConfig
	var typ string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, endpoint_url, fetch_freq_min
		FROM sources
		WHERE name = $1
	`, name).Scan(&src.ID, &src.Name, &typ, &src.EndpointURL, &src.FetchFrequencyMinutes)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SourceConfig{}, fmt.Errorf("%w: %q", ingestion.ErrSourceNotFound, name)
	}
	if err != nil {
		return models.SourceConfig{}, fmt.Errorf("failed to query source %q: %w", name, err)
	}
	src.Type = models.SourceType(typ)
	return src, nil
}

// upsertStoryQuery updates only when an editorial column changed, so an
// identical re-run returns no row. xmax is zero for freshly inserted rows.
const upsertStoryQuery = `
	INSERT INTO stories (
		id, source_id, external_id, title, url, content, summary, author,
		image_url, story_category, published_at, tags, original_metadata,
		tagging_metadata, embedding, embedding_model, embedding_generated_at,
		created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	ON CONFLICT (source_id, external_id) DO UPDATE SET
		title = EXCLUDED.title,
		url = EXCLUDED.url,
		content = EXCLUDED.content,
		summary = EXCLUDED.summary,
		author = EXCLUDED.author,
		image_url = EXCLUDED.image_url,
		story_category = EXCLUDED.story_category,
		published_at = EXCLUDED.published_at,
		tags = EXCLUDED.tags,
		original_metadata = EXCLUDED.original_metadata,
		tagging_metadata = EXCLUDED.tagging_metadata,
		embedding = EXCLUDED.embedding,
		embedding_model = EXCLUDED.embedding_model,
		embedding_generated_at = EXCLUDED.embedding_generated_at,
		updated_at = EXCLUDED.updated_at
	WHERE (stories.title, stories.url, stories.content, stories.summary, stories.author,
	       stories.image_url, stories.story_category, stories.published_at, stories.tags,
	       stories.embedding)
	   IS DISTINCT FROM
	      (EXCLUDED.title, EXCLUDED.url, EXCLUDED.content, EXCLUDED.summary, EXCLUDED.author,
	       EXCLUDED.image_url, EXCLUDED.story_category, EXCLUDED.published_at, EXCLUDED.tags,
	       EXCLUDED.embedding)
	RETURNING (xmax = 0)
`

// UpsertStory inserts or updates by (source_id, external_id). A url held by
// another story returns ingestion.ErrConflict.
func (s *PostgresStore) UpsertStory(ctx context.Context, story models.Story) (ingestion.UpsertOutcome, error) {
	args, err := storyArgs(story)
	if err != nil {
		return ingestion.Unchanged, err
	}

	var inserted bool
	err = s.db.QueryRowContext(ctx, upsertStoryQuery, args...).Scan(&inserted)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ingestion.Unchanged, nil
	case isUniqueViolation(err, storiesURLConstraint):
		return ingestion.Unchanged, fmt.Errorf("%w: url %s", ingestion.ErrConflict, story.URL)
	case err != nil:
		return ingestion.Unchanged, fmt.Errorf("failed to upsert story %s: %w", story.ExternalID, err)
	case inserted:
		return ingestion.Inserted, nil
	default:
		return ingestion.Updated, nil
	}
}

func storyArgs(story models.Story) ([]any, error) {
	var original, tagging []byte
	var err error
	if story.OriginalMetadata != nil {
		if original, err = json.Marshal(story.OriginalMetadata); err != nil {
			return nil, fmt.Errorf("failed to encode original metadata: %w", err)
		}
	}
	if story.TaggingMetadata != nil {
		if tagging, err = json.Marshal(story.TaggingMetadata); err != nil {
			return nil, fmt.Errorf("failed to encode tagging metadata: %w", err)
		}
	}

	tags := story.Tags
	if tags == nil {
		tags = []string{}
	}
	var embedding any
	if story.HasEmbedding() {
		embedding = pq.Array(story.Embedding)
	}

	return []any{
		story.ID,
		story.SourceID,
		story.ExternalID,
		story.Title,
		story.URL,
		story.Content,
		nullString(story.Summary),
		nullString(story.Author),
		nullString(story.ImageURL),
		nullString(string(story.StoryCategory)),
		story.PublishedAt,
		pq.Array(tags),
		nullJSON(original),
		nullJSON(tagging),
		embedding,
		nullString(story.EmbeddingModel),
		story.EmbeddingGeneratedAt,
		story.CreatedAt,
		story.UpdatedAt,
	}, nil
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// QueryExisting returns the external ids already stored for sourceID.
func (s *PostgresStore) QueryExisting(ctx context.Context, sourceID string, externalIDs []string) (map[string]struct{}, error) {
	found := make(map[string]struct{})
	if len(externalIDs) == 0 {
		return found, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT external_id FROM stories WHERE source_id = $1 AND external_id = ANY($2)`,
		sourceID, pq.Array(externalIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query existing stories: %w", err)
	}
	return collect(rows, found)
}

// QueryExistingURLs returns the urls already stored under any source.
func (s *PostgresStore) QueryExistingURLs(ctx context.Context, urls []string) (map[string]struct{}, error) {
	found := make(map[string]struct{})
	if len(urls) == 0 {
		return found, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT url FROM stories WHERE url = ANY($1)`, pq.Array(urls))
	if err != nil {
		return nil, fmt.Errorf("failed to query existing urls: %w", err)
	}
	return collect(rows, found)
}

func collect(rows *sql.Rows, into map[string]struct{}) (map[string]struct{}, error) {
	defer rows.Close()
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		into[v] = struct{}{}
	}
	return into, rows.Err()
}

// CountStories returns the number of stories stored for sourceID.
func (s *PostgresStore) CountStories(ctx context.Context, sourceID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stories WHERE source_id = $1`, sourceID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count stories: %w", err)
	}
	return n, nil
}
