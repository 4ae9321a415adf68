package adapters

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/datagate/datagate/internal/feed"
	"github.com/datagate/datagate/internal/fetch"
	"github.com/datagate/datagate/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testFetcher() *fetch.Client {
	return fetch.NewClient(fetch.WithRetryPolicy(fetch.RetryPolicy{
		MaxRetries:     0,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		BackoffFactor:  2.0,
	}))
}

func serveBody(t *testing.T, contentType string, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func rssDoc(items ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:dc="http://purl.org/dc/elements/1.1/">
<channel>
  <title>Test Feed</title>
  <link>https://example.com/</link>
  <description>Test</description>
` + strings.Join(items, "\n") + `
</channel>
</rss>`
}

func rssItem(title, link, guid, pubDate, description, content string) string {
	var b strings.Builder
	b.WriteString("<item>")
	fmt.Fprintf(&b, "<title>%s</title>", title)
	if link != "" {
		fmt.Fprintf(&b, "<link>%s</link>", link)
	}
	if guid != "" {
		fmt.Fprintf(&b, `<guid isPermaLink="false">%s</guid>`, guid)
	}
	if pubDate != "" {
		fmt.Fprintf(&b, "<pubDate>%s</pubDate>", pubDate)
	}
	if description != "" {
		fmt.Fprintf(&b, "<description>%s</description>", description)
	}
	if content != "" {
		fmt.Fprintf(&b, "<content:encoded><![CDATA[%s]]></content:encoded>", content)
	}
	b.WriteString("</item>")
	return b.String()
}

func testSource(endpoint string) models.SourceConfig {
	return models.SourceConfig{Name: "Test Feed", Type: models.SourceTypeRSS, EndpointURL: endpoint, FetchFrequencyMinutes: 60}
}

func TestRSSAdapter_SkipsMalformedItems(t *testing.T) {
	doc := rssDoc(
		rssItem("AWS &amp;amp; Analytics", "https://example.com/a", "guid-a", "Tue, 04 Mar 2025 17:00:00 +0000", "Short summary", "<p>Full <b>body</b></p>"),
		rssItem("No link", "", "", "Tue, 04 Mar 2025 12:00:00 +0000", "missing link", ""),
		rssItem("Bad date", "https://example.com/c", "guid-c", "not a date", "bad date", ""),
		rssItem("Second", "https://example.com/b", "", "Mon, 03 Mar 2025 10:00:00 +0000", "Only description", ""),
	)
	srv := serveBody(t, "application/rss+xml", doc)

	a := NewRSSAdapter("test", testSource(srv.URL), testFetcher(), testLogger(), WithCategory(models.CategoryTools))
	items, err := a.FetchAndParse(context.Background())
	if err != nil {
		t.Fatalf("FetchAndParse returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	first := items[0]
	if first.Title != "AWS & Analytics" {
		t.Errorf("entities not decoded: %q", first.Title)
	}
	if first.ExternalID != "guid-a" {
		t.Errorf("ExternalID = %q, want guid", first.ExternalID)
	}
	if !strings.Contains(first.Content, "**body**") {
		t.Errorf("content should prefer full body as markdown, got %q", first.Content)
	}
	if first.Summary != "Short summary" {
		t.Errorf("Summary = %q", first.Summary)
	}
	if first.StoryCategory != models.CategoryTools {
		t.Errorf("StoryCategory = %q", first.StoryCategory)
	}
	if first.Tags == nil {
		t.Error("Tags must be non-nil")
	}
	meta := first.OriginalMetadata
	if meta["adapter_version"] != AdapterVersion || meta["source_name"] != "Test Feed" || meta["feed_title"] != "Test Feed" {
		t.Errorf("lineage metadata missing: %v", meta)
	}

	second := items[1]
	if second.ExternalID != HashID("https://example.com/b") {
		t.Errorf("expected hashed URL id, got %q", second.ExternalID)
	}
	if second.Content != "Only description" {
		t.Errorf("Content = %q", second.Content)
	}
	if second.Summary != "" {
		t.Errorf("summary should be absent without a separate body, got %q", second.Summary)
	}
}

func TestRSSAdapter_OutputSortedAndUnique(t *testing.T) {
	doc := rssDoc(
		rssItem("Old", "https://example.com/old", "", "Sat, 01 Mar 2025 10:00:00 +0000", "old", ""),
		rssItem("New", "https://example.com/new", "", "Wed, 05 Mar 2025 10:00:00 +0000", "new", ""),
		rssItem("Mid", "https://example.com/mid", "", "Mon, 03 Mar 2025 10:00:00 +0000", "mid", ""),
		rssItem("Dup url", "https://example.com/mid", "other", "Tue, 04 Mar 2025 10:00:00 +0000", "dup", ""),
		rssItem("Permalink guid", "https://example.com/x", "https://example.com/new", "Tue, 04 Mar 2025 10:00:00 +0000", "dup", ""),
	)
	srv := serveBody(t, "application/rss+xml", doc)

	items, err := NewRSSAdapter("test", testSource(srv.URL), testFetcher(), testLogger()).FetchAndParse(context.Background())
	if err != nil {
		t.Fatalf("FetchAndParse returned error: %v", err)
	}

	ids := map[string]bool{}
	urls := map[string]bool{}
	for i, it := range items {
		if ids[it.ExternalID] {
			t.Errorf("duplicate external id %q", it.ExternalID)
		}
		if urls[it.URL] {
			t.Errorf("duplicate url %q", it.URL)
		}
		ids[it.ExternalID] = true
		urls[it.URL] = true
		if i > 0 && it.PublishedAt.After(items[i-1].PublishedAt) {
			t.Errorf("items not sorted newest first at %d", i)
		}
	}
	if len(items) != 4 {
		t.Errorf("expected 4 items after dedup, got %d", len(items))
	}
}

func TestRSSAdapter_TruncatesContent(t *testing.T) {
	long := strings.Repeat("a", 80000)
	doc := rssDoc(rssItem("Long", "https://example.com/long", "", "Tue, 04 Mar 2025 17:00:00 +0000", "desc", "<p>"+long+"</p>"))
	srv := serveBody(t, "application/rss+xml", doc)

	items, err := NewRSSAdapter("test", testSource(srv.URL), testFetcher(), testLogger()).FetchAndParse(context.Background())
	if err != nil {
		t.Fatalf("FetchAndParse returned error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if n := len([]rune(items[0].Content)); n > models.MaxContentLength {
		t.Errorf("content length %d exceeds %d", n, models.MaxContentLength)
	}
}

func TestRSSAdapter_DefaultToNowPolicy(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	doc := rssDoc(rssItem("Undated", "https://example.com/u", "", "", "body", ""))
	srv := serveBody(t, "application/rss+xml", doc)

	a := NewRSSAdapter("test", testSource(srv.URL), testFetcher(), testLogger(),
		WithDatePolicy(DefaultToNow), WithClock(func() time.Time { return now }))
	items, err := a.FetchAndParse(context.Background())
	if err != nil {
		t.Fatalf("FetchAndParse returned error: %v", err)
	}
	if len(items) != 1 || !items[0].PublishedAt.Equal(now) {
		t.Fatalf("expected undated item stamped with now, got %+v", items)
	}

	strict := NewRSSAdapter("test", testSource(srv.URL), testFetcher(), testLogger())
	items, err = strict.FetchAndParse(context.Background())
	if err != nil {
		t.Fatalf("FetchAndParse returned error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("strict policy should drop undated items, got %d", len(items))
	}
}

func TestRSSAdapter_TitleDerivedFromDescription(t *testing.T) {
	doc := rssDoc(rssItem("", "https://example.com/t", "", "Tue, 04 Mar 2025 17:00:00 +0000", "A description that stands in for the missing title of this entry", ""))
	srv := serveBody(t, "application/rss+xml", doc)

	items, err := NewRSSAdapter("test", testSource(srv.URL), testFetcher(), testLogger()).FetchAndParse(context.Background())
	if err != nil {
		t.Fatalf("FetchAndParse returned error: %v", err)
	}
	if len(items) != 1 || !strings.HasPrefix(items[0].Title, "A description") {
		t.Fatalf("expected title derived from description, got %+v", items)
	}
}

func TestItemLinkUnescapesEntities(t *testing.T) {
	tests := []struct {
		name  string
		entry feed.Item
		want  string
	}{
		{"escaped query", feed.Item{Link: "https://example.com/p?a=1&amp;b=2"}, "https://example.com/p?a=1&b=2"},
		{"plain link", feed.Item{Link: " https://example.com/p?a=1&b=2 "}, "https://example.com/p?a=1&b=2"},
		{"guid fallback", feed.Item{GUID: "https://example.com/g?x=1&amp;y=2"}, "https://example.com/g?x=1&y=2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := itemLink(tt.entry)
			if err != nil {
				t.Fatalf("itemLink returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("itemLink = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRSSAdapter_UnescapesLinkInCDATA(t *testing.T) {
	doc := rssDoc(rssItem("Query link", "<![CDATA[https://example.com/q?a=1&amp;b=2]]>", "", "Tue, 04 Mar 2025 17:00:00 +0000", "body", ""))
	srv := serveBody(t, "application/rss+xml", doc)

	items, err := NewRSSAdapter("test", testSource(srv.URL), testFetcher(), testLogger()).FetchAndParse(context.Background())
	if err != nil {
		t.Fatalf("FetchAndParse returned error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].URL != "https://example.com/q?a=1&b=2" {
		t.Errorf("URL = %q, want entity-free query", items[0].URL)
	}
}

func TestRSSAdapter_FetchFailureIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewRSSAdapter("test", testSource(srv.URL), testFetcher(), testLogger()).FetchAndParse(context.Background())
	if err == nil {
		t.Fatal("expected error for failing feed")
	}
	if fetch.StatusCode(err) != http.StatusNotFound {
		t.Errorf("expected HTTPError in chain, got %v", err)
	}
}

func TestArsTechnicaTopics(t *testing.T) {
	item := models.Item{
		Title:   "NASA rocket review",
		Content: "A hands-on look",
		Tags:    []string{"arstechnica"},
	}
	arsTechnicaTopics(&item)

	want := map[string]bool{"space": true, "aerospace": true, "product-review": true, "hardware": true, "arstechnica": true}
	for _, tag := range item.Tags {
		delete(want, tag)
	}
	if len(want) != 0 {
		t.Errorf("missing tags %v in %v", want, item.Tags)
	}
}
