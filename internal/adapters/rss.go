package adapters

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/datagate/datagate/internal/feed"
	"github.com/datagate/datagate/internal/models"
)

var (
	errMissingLink = errors.New("missing link")
	errBadDate     = errors.New("bad publish date")
)

// RSSAdapter maps one RSS or Atom feed onto canonical items.
type RSSAdapter struct {
	key        string
	source     models.SourceConfig
	fetcher    Fetcher
	logger     *slog.Logger
	category   models.StoryCategory
	sourceTags []string
	metadata   map[string]any
	decorate   func(*models.Item)
	datePolicy DatePolicy
	now        func() time.Time
}

// RSSOption configures an RSSAdapter.
type RSSOption func(*RSSAdapter)

// WithCategory sets the story category stamped on every item.
func WithCategory(c models.StoryCategory) RSSOption {
	return func(a *RSSAdapter) { a.category = c }
}

// WithSourceTags pre-populates every item with source identity tags.
func WithSourceTags(tags ...string) RSSOption {
	return func(a *RSSAdapter) { a.sourceTags = append(a.sourceTags, tags...) }
}

// WithMetadata merges fixed key/value pairs into every item's original metadata.
func WithMetadata(kv map[string]any) RSSOption {
	return func(a *RSSAdapter) {
		if a.metadata == nil {
			a.metadata = make(map[string]any, len(kv))
		}
		for k, v := range kv {
			a.metadata[k] = v
		}
	}
}

// WithDecorator runs fn on every mapped item before deduplication.
func WithDecorator(fn func(*models.Item)) RSSOption {
	return func(a *RSSAdapter) { a.decorate = fn }
}

// WithDatePolicy overrides the default DropOnBadDate policy.
func WithDatePolicy(p DatePolicy) RSSOption {
	return func(a *RSSAdapter) { a.datePolicy = p }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) RSSOption {
	return func(a *RSSAdapter) { a.now = now }
}

// NewRSSAdapter creates an adapter for a single feed at source.EndpointURL.
func NewRSSAdapter(key string, source models.SourceConfig, fetcher Fetcher, logger *slog.Logger, opts ...RSSOption) *RSSAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	a := &RSSAdapter{
		key:        key,
		source:     source,
		fetcher:    fetcher,
		logger:     logger.With("adapter", key),
		datePolicy: DropOnBadDate,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Key returns the registry key.
func (a *RSSAdapter) Key() string { return a.key }

// Source returns the source identity.
func (a *RSSAdapter) Source() models.SourceConfig { return a.source }

// FetchAndParse retrieves the feed and maps its items.
func (a *RSSAdapter) FetchAndParse(ctx context.Context) ([]models.Item, error) {
	items, err := a.fetchFeed(ctx, a.source.EndpointURL, nil)
	if err != nil {
		return nil, err
	}
	SortNewestFirst(items)
	a.logger.Info("parsed feed", "source", a.source.Name, "items", len(items))
	return items, nil
}

// fetchFeed runs retrieve, map, dedup and metadata enrichment for one feed URL.
func (a *RSSAdapter) fetchFeed(ctx context.Context, feedURL string, sub *SubFeed) ([]models.Item, error) {
	raw, err := a.fetcher.FetchText(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	parsed, err := feed.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	fetchedAt := a.now()
	seen := newSeenSet()
	items := make([]models.Item, 0, len(parsed.Items))
	for i, entry := range parsed.Items {
		item, err := a.mapItem(entry, parsed, feedURL, sub, fetchedAt)
		if err != nil {
			a.logger.Warn("skipping feed item",
				"source", a.source.Name,
				"index", i,
				"title", entry.Title,
				"link", entry.Link,
				"error", err)
			continue
		}
		if !seen.add(item) {
			a.logger.Debug("skipping duplicate feed item", "source", a.source.Name, "url", item.URL)
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

func (a *RSSAdapter) mapItem(entry feed.Item, parsed *feed.Feed, feedURL string, sub *SubFeed, fetchedAt time.Time) (models.Item, error) {
	link, err := itemLink(entry)
	if err != nil {
		return models.Item{}, err
	}

	publishedAt, err := a.itemDate(entry, fetchedAt)
	if err != nil {
		return models.Item{}, err
	}

	title := DecodeEntities(strings.TrimSpace(entry.Title))
	if title == "" {
		title = TitleFromDescription(entry.Description)
	}
	if title == "" {
		title = "Untitled"
	}

	body := entry.Content
	if strings.TrimSpace(body) == "" {
		body = entry.Description
	}
	content := Truncate(HTMLToMarkdown(body), models.MaxContentLength)

	var summary string
	if strings.TrimSpace(entry.Content) != "" && strings.TrimSpace(entry.Description) != "" {
		summary = Summarize(entry.Description)
	}

	externalID := strings.TrimSpace(entry.GUID)
	if externalID == "" {
		externalID = HashID(link)
	}

	tags := append([]string{}, a.sourceTags...)
	if sub != nil {
		tags = append(tags, sub.Tags...)
	}

	item := models.Item{
		Title:            title,
		URL:              link,
		Content:          content,
		PublishedAt:      publishedAt,
		ExternalID:       externalID,
		Tags:             uniqueStrings(tags, 0),
		Summary:          summary,
		Author:           DecodeEntities(strings.TrimSpace(entry.Author)),
		ImageURL:         strings.TrimSpace(entry.ImageURL),
		StoryCategory:    a.category,
		OriginalMetadata: a.itemMetadata(entry, parsed, feedURL, sub, fetchedAt),
	}
	if a.decorate != nil {
		a.decorate(&item)
	}
	return item, nil
}

func (a *RSSAdapter) itemDate(entry feed.Item, fetchedAt time.Time) (time.Time, error) {
	if entry.Published != nil && !entry.Published.IsZero() {
		return *entry.Published, nil
	}
	if t, ok := ParseDate(entry.PubDate); ok {
		return t, nil
	}
	if a.datePolicy == DefaultToNow {
		return fetchedAt, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", errBadDate, entry.PubDate)
}

func (a *RSSAdapter) itemMetadata(entry feed.Item, parsed *feed.Feed, feedURL string, sub *SubFeed, fetchedAt time.Time) map[string]any {
	meta := make(map[string]any, len(entry.Raw)+len(a.metadata)+12)
	for k, v := range entry.Raw {
		meta[k] = v
	}
	meta["feed_title"] = parsed.Title
	meta["feed_description"] = parsed.Description
	meta["feed_link"] = parsed.Link
	meta["feed_language"] = parsed.Language
	meta["feed_last_build_date"] = parsed.LastBuildDate
	meta["source_name"] = a.source.Name
	meta["source_type"] = string(a.source.Type)
	meta["source_endpoint"] = feedURL
	meta["extraction_timestamp"] = fetchedAt.UTC().Format(time.RFC3339)
	meta["adapter_version"] = AdapterVersion
	if sub != nil {
		meta["sub_feed"] = sub.Name
		if sub.Description != "" {
			meta["sub_feed_description"] = sub.Description
		}
	}
	for k, v := range a.metadata {
		meta[k] = v
	}
	return meta
}

// itemLink returns the item's absolute http(s) URL, falling back to a
// permalink GUID. Entity-escaped query strings are unescaped first.
func itemLink(entry feed.Item) (string, error) {
	candidates := []string{entry.Link}
	if strings.HasPrefix(entry.GUID, "http://") || strings.HasPrefix(entry.GUID, "https://") {
		candidates = append(candidates, entry.GUID)
	}
	for _, c := range candidates {
		c = html.UnescapeString(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		u, err := url.Parse(c)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}
		return c, nil
	}
	return "", errMissingLink
}
