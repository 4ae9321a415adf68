package feed

import (
	"errors"
	"strings"
	"testing"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:dc="http://purl.org/dc/elements/1.1/">
<channel>
  <title>AWS Big Data Blog</title>
  <link>https://aws.amazon.com/blogs/big-data/</link>
  <description>Official blog</description>
  <language>en-US</language>
  <lastBuildDate>Tue, 04 Mar 2025 18:00:00 +0000</lastBuildDate>
  <item>
    <title>AWS & Analytics update</title>
    <link>https://aws.amazon.com/blogs/big-data/post-1/</link>
    <guid isPermaLink="false">post-1</guid>
    <dc:creator>Jane Smith</dc:creator>
    <pubDate>Tue, 04 Mar 2025 17:00:00 +0000</pubDate>
    <description>Short summary</description>
    <content:encoded><![CDATA[<p>Full <b>body</b></p>]]></content:encoded>
    <category>Analytics</category>
  </item>
  <item>
    <title>Second</title>
    <link>https://aws.amazon.com/blogs/big-data/post-2/</link>
    <pubDate>Mon, 03 Mar 2025 10:00:00 +0000</pubDate>
    <description>Only description</description>
    <enclosure url="https://example.com/cover.png" type="image/png" length="1234"/>
  </item>
</channel>
</rss>`

const atomFixture = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Example Atom</title>
  <link href="https://example.org/"/>
  <updated>2025-03-04T18:30:02Z</updated>
  <entry>
    <title>Atom entry</title>
    <link href="https://example.org/2025/03/04/atom"/>
    <id>urn:uuid:1225c695-cfb8-4ebb-aaaa-80da344efa6a</id>
    <published>2025-03-04T18:30:02Z</published>
    <updated>2025-03-05T09:00:00Z</updated>
    <author><name>Ada</name></author>
    <summary>Entry summary</summary>
    <content type="html">&lt;p&gt;Entry content&lt;/p&gt;</content>
  </entry>
</feed>`

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "bare ampersand", input: "AT&T", expected: "AT&amp;T"},
		{name: "named entity kept", input: "a &amp; b &lt;", expected: "a &amp; b &lt;"},
		{name: "numeric entities kept", input: "&#39; &#x27;", expected: "&#39; &#x27;"},
		{name: "zero width stripped", input: "a\u200bb\u200cc\u200dd\ufeffe", expected: "abcde"},
		{name: "ampersand followed by space", input: "R & D", expected: "R &amp; D"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.expected {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseRSS(t *testing.T) {
	f, err := Parse(rssFixture)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if f.Title != "AWS Big Data Blog" {
		t.Errorf("Title = %q", f.Title)
	}
	if f.Language != "en-US" {
		t.Errorf("Language = %q", f.Language)
	}
	if f.LastBuildDate == "" {
		t.Error("expected lastBuildDate to be mapped")
	}
	if len(f.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(f.Items))
	}

	first := f.Items[0]
	if first.Title != "AWS & Analytics update" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.Author != "Jane Smith" {
		t.Errorf("dc:creator not mapped to Author, got %q", first.Author)
	}
	if !strings.Contains(first.Content, "Full <b>body</b>") {
		t.Errorf("content:encoded not mapped to Content, got %q", first.Content)
	}
	if first.Description != "Short summary" {
		t.Errorf("Description = %q", first.Description)
	}
	if first.PubDate == "" || first.Published == nil {
		t.Error("expected pubDate to be mapped")
	}
	if first.GUID != "post-1" {
		t.Errorf("GUID = %q", first.GUID)
	}
	if first.Raw["link"] != "https://aws.amazon.com/blogs/big-data/post-1/" {
		t.Errorf("raw fields not preserved: %v", first.Raw["link"])
	}

	second := f.Items[1]
	if second.ImageURL != "https://example.com/cover.png" {
		t.Errorf("ImageURL = %q", second.ImageURL)
	}
}

func TestParseAtom(t *testing.T) {
	f, err := Parse(atomFixture)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(f.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(f.Items))
	}

	entry := f.Items[0]
	if entry.Link != "https://example.org/2025/03/04/atom" {
		t.Errorf("Link = %q", entry.Link)
	}
	if entry.Author != "Ada" {
		t.Errorf("Author = %q", entry.Author)
	}
	if entry.Published == nil || entry.Published.Day() != 4 {
		t.Errorf("published not used as primary date: %v", entry.Published)
	}
	if !strings.Contains(entry.Content, "Entry content") {
		t.Errorf("Content = %q", entry.Content)
	}
}

func TestParseRejectsNonFeed(t *testing.T) {
	_, err := Parse("<html><body>not a feed</body></html>")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrNotFeed) {
		t.Errorf("expected ErrNotFeed, got %v", err)
	}
	if !strings.Contains(err.Error(), "not a feed") {
		t.Errorf("expected preview in error, got %q", err.Error())
	}
}

func TestParseUnparseableIncludesTruncatedPreview(t *testing.T) {
	raw := "garbage <channel> " + strings.Repeat("x", 2000)

	_, err := Parse(raw)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "preview") {
		t.Errorf("expected preview in error, got %q", err.Error())
	}
	if len(err.Error()) > 800 {
		t.Errorf("preview should be truncated, error length %d", len(err.Error()))
	}
}
