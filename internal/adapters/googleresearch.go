package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/datagate/datagate/internal/models"
)

const (
	googleCardSelector = "a.glue-card.not-glue"
	googleMaxTags      = 5
	googleDateLayout   = "January 2, 2006"
)

// GoogleResearchAdapter scrapes the Google Research blog index and optionally
// pulls each article body through readability.
type GoogleResearchAdapter struct {
	key         string
	source      models.SourceConfig
	fetcher     Fetcher
	logger      *slog.Logger
	throttle    *hostThrottle
	maxArticles int
	now         func() time.Time
}

// NewGoogleResearchAdapter creates the scraper. Up to maxArticles article pages
// are fetched for full content; 0 keeps card-only content.
func NewGoogleResearchAdapter(key string, source models.SourceConfig, fetcher Fetcher, logger *slog.Logger, delay time.Duration, maxArticles int) *GoogleResearchAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoogleResearchAdapter{
		key:         key,
		source:      source,
		fetcher:     fetcher,
		logger:      logger.With("adapter", key),
		throttle:    newHostThrottle(delay),
		maxArticles: maxArticles,
		now:         time.Now,
	}
}

func (a *GoogleResearchAdapter) Key() string                 { return a.key }
func (a *GoogleResearchAdapter) Source() models.SourceConfig { return a.source }

// FetchAndParse scrapes the blog index.
func (a *GoogleResearchAdapter) FetchAndParse(ctx context.Context) ([]models.Item, error) {
	if err := a.throttle.wait(ctx, a.source.EndpointURL); err != nil {
		return nil, err
	}
	html, err := a.fetcher.FetchText(ctx, a.source.EndpointURL, htmlRequest...)
	if err != nil {
		return nil, fmt.Errorf("fetch google research blog: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse google research blog: %w", err)
	}

	cards := doc.Find(googleCardSelector)
	if cards.Length() == 0 {
		a.logger.Warn("no blog cards found, page structure may have changed")
		return []models.Item{}, nil
	}

	fetchedAt := a.now()
	seen := newSeenSet()
	var items []models.Item
	cards.Each(func(i int, card *goquery.Selection) {
		item, ok := a.mapCard(card, i, cards.Length(), fetchedAt)
		if !ok {
			return
		}
		if !seen.add(item) {
			return
		}
		items = append(items, item)
	})

	SortNewestFirst(items)
	a.enrichArticles(ctx, items)

	a.logger.Info("scraped blog posts", "cards", cards.Length(), "items", len(items))
	return items, nil
}

func (a *GoogleResearchAdapter) mapCard(card *goquery.Selection, index, total int, fetchedAt time.Time) (models.Item, bool) {
	href, ok := card.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return models.Item{}, false
	}
	postURL, ok := resolveURL(a.source.EndpointURL, strings.TrimSpace(href))
	if !ok {
		return models.Item{}, false
	}

	title := collapse(card.Find(".headline-5").First().Text())
	if title == "" {
		return models.Item{}, false
	}

	dateText := collapse(card.Find(".glue-label").First().Text())
	if dateText == "" {
		a.logger.Debug("skipping card without date", "title", title)
		return models.Item{}, false
	}
	publishedAt := fetchedAt
	if t, err := time.Parse(googleDateLayout, dateText); err == nil {
		publishedAt = t
	} else if t, ok := ParseDate(dateText); ok {
		publishedAt = t
	}

	tags := cardTags(card)

	return models.Item{
		Title:         title,
		URL:           postURL,
		Content:       title,
		PublishedAt:   publishedAt,
		ExternalID:    HashID(postURL),
		Tags:          tags,
		StoryCategory: models.CategoryResearch,
		OriginalMetadata: map[string]any{
			"google_title":          title,
			"google_url":            postURL,
			"google_relative_url":   href,
			"google_date_text":      dateText,
			"google_parsed_date":    publishedAt.UTC().Format(time.RFC3339),
			"google_extracted_tags": tags,
			"card_index":            index,
			"total_cards_found":     total,
			"extraction_timestamp":  fetchedAt.UTC().Format(time.RFC3339),
			"source_name":           a.source.Name,
			"source_type":           string(a.source.Type),
			"source_endpoint":       a.source.EndpointURL,
			"adapter_version":       AdapterVersion,
		},
	}, true
}

func cardTags(card *goquery.Selection) []string {
	tags := []string{"google"}
	card.Find(".glue-card__link-list .caption").Each(func(_ int, s *goquery.Selection) {
		text := DecodeEntities(s.Text())
		text = strings.ReplaceAll(text, "\u00b7", " ")
		text = strings.ToLower(collapse(text))
		if len(text) > 2 {
			tags = append(tags, text)
		}
	})
	return uniqueStrings(tags, googleMaxTags)
}

// enrichArticles replaces card-only content with the readable article body for
// the newest maxArticles items. Failures keep the card content.
func (a *GoogleResearchAdapter) enrichArticles(ctx context.Context, items []models.Item) {
	limit := a.maxArticles
	if limit > len(items) {
		limit = len(items)
	}
	for i := 0; i < limit; i++ {
		if ctx.Err() != nil {
			return
		}
		it := &items[i]
		if err := a.enrichArticle(ctx, it); err != nil {
			a.logger.Warn("article extraction failed", "url", it.URL, "error", err)
		}
	}
}

func (a *GoogleResearchAdapter) enrichArticle(ctx context.Context, it *models.Item) error {
	if err := a.throttle.wait(ctx, it.URL); err != nil {
		return err
	}
	page, err := a.fetcher.FetchText(ctx, it.URL, htmlRequest...)
	if err != nil {
		return err
	}
	pageURL, err := url.Parse(it.URL)
	if err != nil {
		return err
	}

	article, err := readability.FromReader(strings.NewReader(page), pageURL)
	if err != nil {
		return fmt.Errorf("readability extraction failed: %w", err)
	}

	body := HTMLToMarkdown(article.Content)
	if body == "" {
		body = strings.TrimSpace(article.TextContent)
	}
	if body == "" {
		return nil
	}
	it.Content = Truncate(body, models.MaxContentLength)
	if it.Summary == "" {
		it.Summary = Truncate(strings.TrimSpace(article.Excerpt), summaryLength)
	}
	if it.Author == "" {
		it.Author = strings.TrimSpace(article.Byline)
	}
	if it.ImageURL == "" {
		it.ImageURL = article.Image
	}
	it.OriginalMetadata["readability_title"] = article.Title
	it.OriginalMetadata["readability_length"] = article.Length
	return nil
}
