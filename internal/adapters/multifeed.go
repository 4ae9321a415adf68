package adapters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/datagate/datagate/internal/models"
)

// SubFeed describes one feed of a multi-feed source.
type SubFeed struct {
	Name        string
	URL         string
	Description string
	// Tags are added to every item of this sub-feed.
	Tags []string
}

// MultiFeedAdapter fans out over several feeds that persist under one source.
type MultiFeedAdapter struct {
	*RSSAdapter
	feeds []SubFeed
}

// NewMultiFeedAdapter creates an adapter over feeds. RSS options apply to every
// sub-feed.
func NewMultiFeedAdapter(key string, source models.SourceConfig, feeds []SubFeed, fetcher Fetcher, logger *slog.Logger, opts ...RSSOption) *MultiFeedAdapter {
	return &MultiFeedAdapter{
		RSSAdapter: NewRSSAdapter(key, source, fetcher, logger, opts...),
		feeds:      feeds,
	}
}

// SubFeeds returns the configured sub-feeds.
func (m *MultiFeedAdapter) SubFeeds() []SubFeed {
	return append([]SubFeed(nil), m.feeds...)
}

// FetchAndParse fetches every sub-feed, tolerating individual failures. It
// fails only when every sub-feed fails.
func (m *MultiFeedAdapter) FetchAndParse(ctx context.Context) ([]models.Item, error) {
	if len(m.feeds) == 0 {
		return nil, fmt.Errorf("%s: no sub-feeds configured", m.key)
	}

	var (
		all  []models.Item
		errs []error
	)
	for i := range m.feeds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sub := &m.feeds[i]
		items, err := m.fetchFeed(ctx, sub.URL, sub)
		if err != nil {
			m.logger.Warn("sub-feed failed", "source", m.source.Name, "feed", sub.Name, "url", sub.URL, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", sub.Name, err))
			continue
		}
		m.logger.Info("parsed sub-feed", "source", m.source.Name, "feed", sub.Name, "items", len(items))
		all = append(all, items...)
	}

	if len(errs) == len(m.feeds) {
		return nil, fmt.Errorf("all %d sub-feeds failed: %w", len(m.feeds), errors.Join(errs...))
	}

	all = dedupe(all)
	SortNewestFirst(all)
	m.logger.Info("combined sub-feeds", "source", m.source.Name, "feeds", len(m.feeds), "failed", len(errs), "items", len(all))
	return all, nil
}
