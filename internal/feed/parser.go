// Package feed turns raw RSS and Atom documents into a uniform in-memory feed.
package feed

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const previewLength = 500

// ErrNotFeed is returned when the input carries none of the RSS/Atom root markers.
var ErrNotFeed = errors.New("input does not look like an RSS or Atom feed")

var (
	zeroWidth = regexp.MustCompile(`[\x{200B}-\x{200D}\x{FEFF}]`)
	// ampersand plus an optional well-formed entity reference
	ampersand = regexp.MustCompile(`&([A-Za-z]{1,8};|#[0-9]{1,7};|#[xX][0-9A-Fa-f]{1,6};)?`)
)

// Feed is the parsed channel plus its items.
type Feed struct {
	Title         string
	Description   string
	Link          string
	Language      string
	LastBuildDate string
	Items         []Item
}

// Item is one entry of a feed with vendor namespace variants folded into
// canonical fields.
type Item struct {
	Title       string
	Link        string
	GUID        string
	Description string
	// Content is the full body (content:encoded for RSS, content for Atom).
	Content    string
	Author     string
	PubDate    string
	Published  *time.Time
	Updated    *time.Time
	Categories []string
	ImageURL   string
	Enclosures []Enclosure

	// Raw keeps every field the parser exposed, for lineage.
	Raw map[string]any
}

// Enclosure is an attached media reference.
type Enclosure struct {
	URL    string `json:"url"`
	Type   string `json:"type"`
	Length string `json:"length"`
}

// Sanitize strips zero-width characters and escapes bare ampersands, the two
// most common reasons real-world feeds fail strict XML parsing.
func Sanitize(raw string) string {
	cleaned := zeroWidth.ReplaceAllString(raw, "")
	return ampersand.ReplaceAllStringFunc(cleaned, func(m string) string {
		if m == "&" {
			return "&amp;"
		}
		return m
	})
}

// LooksLikeFeed reports whether raw contains an RSS or Atom root marker.
func LooksLikeFeed(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.Contains(lower, "<rss") ||
		strings.Contains(lower, "<feed") ||
		strings.Contains(lower, "<channel")
}

// Parse sanitizes and parses an RSS or Atom document.
func Parse(raw string) (*Feed, error) {
	cleaned := Sanitize(raw)
	if !LooksLikeFeed(cleaned) {
		return nil, fmt.Errorf("%w; preview: %q", ErrNotFeed, preview(cleaned))
	}

	parsed, err := gofeed.NewParser().ParseString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w; preview: %q", err, preview(cleaned))
	}
	if parsed == nil {
		return nil, fmt.Errorf("parse feed: no channel found; preview: %q", preview(cleaned))
	}

	out := &Feed{
		Title:         strings.TrimSpace(parsed.Title),
		Description:   strings.TrimSpace(parsed.Description),
		Link:          parsed.Link,
		Language:      parsed.Language,
		LastBuildDate: parsed.Updated,
		Items:         make([]Item, 0, len(parsed.Items)),
	}
	for _, it := range parsed.Items {
		if it == nil {
			continue
		}
		out.Items = append(out.Items, convertItem(it))
	}

	return out, nil
}

func convertItem(it *gofeed.Item) Item {
	item := Item{
		Title:       strings.TrimSpace(it.Title),
		Link:        strings.TrimSpace(it.Link),
		GUID:        strings.TrimSpace(it.GUID),
		Description: it.Description,
		Content:     it.Content,
		Published:   it.PublishedParsed,
		Updated:     it.UpdatedParsed,
		Categories:  it.Categories,
	}

	if item.Link == "" && len(it.Links) > 0 {
		item.Link = strings.TrimSpace(it.Links[0])
	}

	switch {
	case it.Author != nil && it.Author.Name != "":
		item.Author = it.Author.Name
	case len(it.Authors) > 0 && it.Authors[0] != nil:
		item.Author = it.Authors[0].Name
	case it.DublinCoreExt != nil && len(it.DublinCoreExt.Creator) > 0:
		item.Author = it.DublinCoreExt.Creator[0]
	}

	switch {
	case it.Published != "":
		item.PubDate = it.Published
	case it.Updated != "":
		item.PubDate = it.Updated
	case it.DublinCoreExt != nil && len(it.DublinCoreExt.Date) > 0:
		item.PubDate = it.DublinCoreExt.Date[0]
	}
	if item.Published == nil && item.Updated != nil {
		item.Published = item.Updated
	}

	for _, enc := range it.Enclosures {
		if enc == nil {
			continue
		}
		item.Enclosures = append(item.Enclosures, Enclosure{URL: enc.URL, Type: enc.Type, Length: enc.Length})
	}
	item.ImageURL = imageURL(it, item.Enclosures)

	item.Raw = rawFields(it)
	return item
}

func imageURL(it *gofeed.Item, enclosures []Enclosure) string {
	if it.Image != nil && it.Image.URL != "" {
		return it.Image.URL
	}
	for _, enc := range enclosures {
		if strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	if media, ok := it.Extensions["media"]; ok {
		for _, name := range []string{"content", "thumbnail"} {
			for _, ext := range media[name] {
				if u := ext.Attrs["url"]; u != "" {
					return u
				}
			}
		}
	}
	return ""
}

func rawFields(it *gofeed.Item) map[string]any {
	raw := map[string]any{
		"title":       it.Title,
		"link":        it.Link,
		"links":       it.Links,
		"guid":        it.GUID,
		"description": it.Description,
		"content":     it.Content,
		"published":   it.Published,
		"updated":     it.Updated,
		"categories":  it.Categories,
	}
	if it.Author != nil {
		raw["author"] = map[string]string{"name": it.Author.Name, "email": it.Author.Email}
	}
	if it.Image != nil {
		raw["image"] = map[string]string{"url": it.Image.URL, "title": it.Image.Title}
	}
	if len(it.Enclosures) > 0 {
		raw["enclosures"] = it.Enclosures
	}
	if it.DublinCoreExt != nil {
		raw["dc"] = it.DublinCoreExt
	}
	if len(it.Extensions) > 0 {
		raw["extensions"] = it.Extensions
	}
	if len(it.Custom) > 0 {
		raw["custom"] = it.Custom
	}
	return raw
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLength {
		return s
	}
	return string(r[:previewLength])
}
