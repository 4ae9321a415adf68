package adapters

import (
	"crypto/sha256"
	"encoding/hex"
	"html"
	"regexp"
	"sort"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"

	"github.com/datagate/datagate/internal/models"
)

const (
	titleFallbackLength = 70
	summaryLength       = 300
	idLength            = 16
)

var (
	tagRe        = regexp.MustCompile(`(?s)<[^>]*>`)
	spaceRe      = regexp.MustCompile(`[ \t\f\v]+`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	looksHTMLRe  = regexp.MustCompile(`(?i)</?[a-z][a-z0-9]*[\s>/]`)
	mdConverter  = newMarkdownConverter()
	dateLayouts  = []string{
		time.RFC3339,
		time.RFC1123Z,
		time.RFC1123,
		time.RFC822Z,
		time.RFC822,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"January 2, 2006",
		"Jan 2, 2006",
		"2 January 2006",
	}
)

func newMarkdownConverter() *md.Converter {
	converter := md.NewConverter("", true, &md.Options{
		HeadingStyle:     "atx",
		CodeBlockStyle:   "fenced",
		EmDelimiter:      "_",
		BulletListMarker: "-",
	})
	converter.Use(plugin.GitHubFlavored())
	return converter
}

// DecodeEntities decodes HTML entities exactly once, so escaped markup such as
// "&amp;lt;" stays literal text. Non-breaking spaces become plain spaces.
func DecodeEntities(s string) string {
	return strings.ReplaceAll(html.UnescapeString(s), "\u00a0", " ")
}

// HTMLToMarkdown converts an HTML fragment into markdown. Input that carries
// no markup is only entity-decoded.
func HTMLToMarkdown(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}
	if !looksHTMLRe.MatchString(fragment) {
		return strings.TrimSpace(DecodeEntities(fragment))
	}

	out, err := mdConverter.ConvertString(fragment)
	if err != nil {
		return PlainText(fragment)
	}
	out = blankLinesRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(DecodeEntities(out))
}

// PlainText strips tags and collapses whitespace.
func PlainText(fragment string) string {
	text := tagRe.ReplaceAllString(fragment, " ")
	text = DecodeEntities(text)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// CollapseSpace folds runs of spaces and tabs, keeping newlines.
func CollapseSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// TitleFromDescription derives a title from the first characters of a
// description when an item has none.
func TitleFromDescription(description string) string {
	text := PlainText(description)
	if text == "" {
		return ""
	}
	return strings.TrimSpace(Truncate(text, titleFallbackLength))
}

// Summarize produces a short display excerpt.
func Summarize(fragment string) string {
	text := PlainText(fragment)
	if text == "" {
		return ""
	}
	return Truncate(text, summaryLength)
}

// HashID returns a stable identifier derived from the joined parts.
func HashID(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "")))
	return hex.EncodeToString(sum[:])[:idLength]
}

// ParseDate tries the layouts seen across feeds, APIs and scraped pages.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SortNewestFirst orders items by PublishedAt descending.
func SortNewestFirst(items []models.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
}

// seenSet tracks external ids and URLs already emitted in one fetch.
type seenSet struct {
	ids  map[string]struct{}
	urls map[string]struct{}
}

func newSeenSet() *seenSet {
	return &seenSet{ids: make(map[string]struct{}), urls: make(map[string]struct{})}
}

// add records the item and reports whether it was new. The first occurrence wins.
func (s *seenSet) add(item models.Item) bool {
	if _, dup := s.ids[item.ExternalID]; dup {
		return false
	}
	if _, dup := s.urls[item.URL]; dup {
		return false
	}
	s.ids[item.ExternalID] = struct{}{}
	s.urls[item.URL] = struct{}{}
	return true
}

// dedupe keeps the first occurrence of every external id and URL.
func dedupe(items []models.Item) []models.Item {
	seen := newSeenSet()
	out := items[:0]
	for _, it := range items {
		if seen.add(it) {
			out = append(out, it)
		}
	}
	return out
}

func uniqueStrings(in []string, limit int) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
