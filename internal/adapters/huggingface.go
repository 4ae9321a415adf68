package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/datagate/datagate/internal/models"
)

const (
	hfMaxTags   = 6
	hfLogoImage = "/lib/images/hugging_face_logo.avif"
)

// hfContainerSelectors are tried in order until one matches.
var hfContainerSelectors = []string{
	"article",
	".paper-item",
	".relative.rounded-lg",
	`[class*="paper"]`,
	".border.rounded",
	".mb-4",
	".flex.flex-col",
}

var (
	hfPaperPathRe = regexp.MustCompile(`^/papers/([^/?#]+)`)
	hfStatsRe     = regexp.MustCompile(`^\d+`)
)

type hfTagMapping struct {
	keywords []string
	tags     []string
}

var hfTagMappings = []hfTagMapping{
	{[]string{"llm", "language model", "large language"}, []string{"large language models", "llm"}},
	{[]string{"vision", "image", "visual", "computer vision"}, []string{"computer vision", "vision"}},
	{[]string{"multimodal", "multi-modal"}, []string{"multimodal"}},
	{[]string{"reinforcement", "rl"}, []string{"reinforcement learning"}},
	{[]string{"generation", "generative"}, []string{"generative ai"}},
	{[]string{"diffusion", "stable diffusion"}, []string{"diffusion models"}},
	{[]string{"reasoning", "chain of thought"}, []string{"reasoning"}},
	{[]string{"transformer", "attention"}, []string{"transformers"}},
	{[]string{"fine-tuning", "finetuning"}, []string{"fine-tuning"}},
	{[]string{"nlp", "natural language"}, []string{"nlp"}},
	{[]string{"robotics", "robot"}, []string{"robotics"}},
	{[]string{"autonomous", "self-driving"}, []string{"autonomous systems"}},
	{[]string{"deep learning", "neural network"}, []string{"deep learning"}},
	{[]string{"optimization", "training"}, []string{"optimization"}},
}

// hfPaper is what one paper card yields.
type hfPaper struct {
	Title     string `json:"title"`
	Authors   string `json:"authors"`
	Submitter string `json:"submitter"`
	Stats     string `json:"stats"`
	Href      string `json:"href"`
	Published string `json:"published,omitempty"`
}

// HuggingFaceAdapter scrapes the daily trending papers page.
type HuggingFaceAdapter struct {
	key      string
	source   models.SourceConfig
	fetcher  Fetcher
	logger   *slog.Logger
	throttle *hostThrottle
	now      func() time.Time
}

// NewHuggingFaceAdapter creates the scraper; source.EndpointURL is the papers page.
func NewHuggingFaceAdapter(key string, source models.SourceConfig, fetcher Fetcher, logger *slog.Logger, delay time.Duration) *HuggingFaceAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HuggingFaceAdapter{
		key:      key,
		source:   source,
		fetcher:  fetcher,
		logger:   logger.With("adapter", key),
		throttle: newHostThrottle(delay),
		now:      time.Now,
	}
}

func (a *HuggingFaceAdapter) Key() string                 { return a.key }
func (a *HuggingFaceAdapter) Source() models.SourceConfig { return a.source }

// FetchAndParse scrapes the papers page.
func (a *HuggingFaceAdapter) FetchAndParse(ctx context.Context) ([]models.Item, error) {
	if err := a.throttle.wait(ctx, a.source.EndpointURL); err != nil {
		return nil, err
	}
	html, err := a.fetcher.FetchText(ctx, a.source.EndpointURL, htmlRequest...)
	if err != nil {
		return nil, fmt.Errorf("fetch huggingface papers: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse huggingface papers: %w", err)
	}

	cards := a.findCards(doc)
	if cards.Length() == 0 {
		a.logger.Warn("no papers found, page structure may have changed")
		return []models.Item{}, nil
	}

	fetchedAt := a.now()
	seen := newSeenSet()
	var items []models.Item
	cards.Each(func(i int, card *goquery.Selection) {
		paper := extractPaper(card)
		if paper.Title == "" {
			a.logger.Debug("skipping paper without title", "index", i)
			return
		}
		item, ok := a.mapPaper(paper, fetchedAt)
		if !ok {
			a.logger.Warn("skipping paper without link", "index", i, "title", paper.Title)
			return
		}
		if !seen.add(item) {
			return
		}
		items = append(items, item)
	})

	// undated papers share the fetch time, so title order decides ties
	sort.SliceStable(items, func(i, j int) bool { return items[i].Title < items[j].Title })
	SortNewestFirst(items)
	a.logger.Info("scraped papers", "cards", cards.Length(), "items", len(items))
	return items, nil
}

func (a *HuggingFaceAdapter) findCards(doc *goquery.Document) *goquery.Selection {
	for _, sel := range hfContainerSelectors {
		cards := doc.Find(sel)
		if cards.Length() > 0 {
			a.logger.Debug("matched paper containers", "selector", sel, "count", cards.Length())
			return cards
		}
	}
	return doc.Find(`a[href*="/papers/"]`).Parent()
}

func extractPaper(card *goquery.Selection) hfPaper {
	var p hfPaper

	p.Title = collapse(card.Find("h3, h4, .text-lg, .font-semibold").First().Text())
	if p.Title == "" {
		p.Title = collapse(card.Find(`a[href*="/papers/"]`).First().Text())
	}

	if href, ok := card.Find(`a[href^="/papers/"]`).First().Attr("href"); ok {
		p.Href = href
	} else if href, ok := card.Attr("href"); ok && strings.HasPrefix(href, "/papers/") {
		p.Href = href
	}

	card.Find(".text-gray-500, .text-sm").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if text := collapse(s.Text()); strings.Contains(text, "author") {
			p.Authors = text
			return false
		}
		return true
	})

	p.Submitter = "Unknown"
	card.Find(".text-xs, .text-gray-400").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if text := collapse(s.Text()); strings.Contains(text, "Submitted by") {
			p.Submitter = strings.TrimSpace(strings.Replace(text, "Submitted by", "", 1))
			return false
		}
		return true
	})

	if dt, ok := card.Find("time[datetime]").First().Attr("datetime"); ok {
		p.Published = strings.TrimSpace(dt)
	}

	var stats []string
	card.Find(".text-gray-500, .text-xs").Each(func(_ int, s *goquery.Selection) {
		text := collapse(s.Text())
		if hfStatsRe.MatchString(text) && strings.ContainsAny(text, "\u2764\U0001F441\U0001F4AC") {
			stats = append(stats, text)
		}
	})
	p.Stats = strings.Join(stats, " ")

	return p
}

func (a *HuggingFaceAdapter) mapPaper(p hfPaper, fetchedAt time.Time) (models.Item, bool) {
	if p.Href == "" {
		return models.Item{}, false
	}
	paperURL, ok := resolveURL(a.source.EndpointURL, p.Href)
	if !ok {
		return models.Item{}, false
	}

	externalID := "hf-" + HashID(p.Title+"-"+p.Submitter)
	if m := hfPaperPathRe.FindStringSubmatch(p.Href); m != nil {
		externalID = "hf-" + m[1]
	}

	summary := p.Title
	if p.Authors != "" {
		summary = p.Title + " by " + p.Authors
	}
	var author string
	if p.Submitter != "Unknown" {
		author = p.Submitter
	}
	content := paperContent(p, paperURL)

	publishedAt := fetchedAt
	if t, ok := ParseDate(p.Published); ok {
		publishedAt = t
	}

	return models.Item{
		Title:         p.Title,
		URL:           paperURL,
		Content:       content,
		PublishedAt:   publishedAt,
		ExternalID:    externalID,
		Tags:          paperTags(p.Title, p.Authors),
		Summary:       summary,
		Author:        author,
		ImageURL:      hfLogoImage,
		StoryCategory: models.CategoryResearch,
		OriginalMetadata: map[string]any{
			"hf_title":                p.Title,
			"hf_authors":              p.Authors,
			"hf_submitter":            p.Submitter,
			"hf_stats":                p.Stats,
			"hf_href":                 p.Href,
			"hf_published":            p.Published,
			"raw_paper_info":          p,
			"content_word_count":      len(strings.Fields(content)),
			"content_character_count": len(content),
			"extraction_timestamp":    fetchedAt.UTC().Format(time.RFC3339),
			"source_name":             a.source.Name,
			"source_type":             string(a.source.Type),
			"source_endpoint":         a.source.EndpointURL,
			"adapter_version":         AdapterVersion,
			"content_type":            "research_paper",
			"publication_type":        "community_paper",
		},
	}, true
}

func paperTags(title, authors string) []string {
	titleLower := strings.ToLower(title)
	authorsLower := strings.ToLower(authors)

	tags := []string{"huggingface"}
	for _, m := range hfTagMappings {
		for _, kw := range m.keywords {
			if strings.Contains(titleLower, kw) || strings.Contains(authorsLower, kw) {
				tags = append(tags, m.tags...)
				break
			}
		}
	}
	return uniqueStrings(tags, hfMaxTags)
}

func paperContent(p hfPaper, paperURL string) string {
	authors := p.Authors
	if authors == "" {
		authors = "Multiple authors"
	}
	lines := []string{
		"# " + p.Title,
		"",
		"**Authors:** " + authors,
		"**Submitted by:** " + p.Submitter,
	}
	if p.Stats != "" {
		lines = append(lines, "**Engagement:** "+p.Stats)
	}
	lines = append(lines,
		"",
		"This research paper is currently trending on HuggingFace Papers, indicating high interest from the AI research community.",
		"",
		"**Source:** HuggingFace Papers - Daily trending research",
		"**Category:** AI/ML Research",
		"",
		fmt.Sprintf("[View Paper](%s)", paperURL),
	)
	return strings.Join(lines, "\n")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
