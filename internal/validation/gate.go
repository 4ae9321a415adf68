// Package validation checks canonical items before enrichment and persistence.
package validation

import (
	"net/url"
	"strings"

	"github.com/datagate/datagate/internal/models"
)

// Issue strings reported for invalid items.
const (
	IssueMissingTitle      = "missing title"
	IssueMissingURL        = "missing url"
	IssueMissingContent    = "missing content"
	IssueInvalidPublished  = "invalid publishedAt"
	IssueMissingExternalID = "missing externalId"
	IssueInvalidTags       = "invalid tags array"
	IssueInvalidURL        = "invalid URL format"
	IssueInvalidImageURL   = "invalid image_url format"
	issueInvalidCategory   = "invalid story_category: "
)

// Invalid is a rejected item with every issue found.
type Invalid struct {
	Item   models.Item `json:"item"`
	Issues []string    `json:"issues"`
}

// Result partitions a batch.
type Result struct {
	Valid   []models.Item
	Invalid []Invalid
}

// Gate validates batches. A disabled gate passes everything.
type Gate struct {
	Enabled bool
}

// New returns a gate.
func New(enabled bool) Gate {
	return Gate{Enabled: enabled}
}

// Validate partitions items into valid and invalid, preserving order.
func (g Gate) Validate(items []models.Item) Result {
	if !g.Enabled {
		return Result{Valid: items}
	}

	res := Result{Valid: make([]models.Item, 0, len(items))}
	for _, it := range items {
		issues := Check(it)
		if len(issues) == 0 {
			res.Valid = append(res.Valid, it)
			continue
		}
		res.Invalid = append(res.Invalid, Invalid{Item: it, Issues: issues})
	}
	return res
}

// Check returns every issue with item, or nil.
func Check(item models.Item) []string {
	var issues []string

	if strings.TrimSpace(item.Title) == "" {
		issues = append(issues, IssueMissingTitle)
	}
	if strings.TrimSpace(item.URL) == "" {
		issues = append(issues, IssueMissingURL)
	}
	if strings.TrimSpace(item.Content) == "" {
		issues = append(issues, IssueMissingContent)
	}
	if item.PublishedAt.IsZero() {
		issues = append(issues, IssueInvalidPublished)
	}
	if strings.TrimSpace(item.ExternalID) == "" {
		issues = append(issues, IssueMissingExternalID)
	}
	if item.Tags == nil {
		issues = append(issues, IssueInvalidTags)
	}
	if !absoluteURL(item.URL) {
		issues = append(issues, IssueInvalidURL)
	}
	if item.ImageURL != "" && !validImageURL(item.ImageURL) {
		issues = append(issues, IssueInvalidImageURL)
	}
	if item.StoryCategory != "" && !item.StoryCategory.Valid() {
		issues = append(issues, issueInvalidCategory+string(item.StoryCategory))
	}

	return issues
}

func absoluteURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" {
		return false
	}
	return u.Host != "" || u.Opaque != ""
}

// validImageURL accepts root-relative paths and absolute http(s) URLs with a
// host. Protocol-relative "//host/x" is rejected.
func validImageURL(raw string) bool {
	if strings.HasPrefix(raw, "/") {
		return !strings.HasPrefix(raw, "//")
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
