package adapters

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/datagate/datagate/internal/fetch"
	"github.com/datagate/datagate/internal/models"
)

const hfFixture = `<html><body><main>
<article>
  <h3><a href="/papers/2503.01234">Multimodal Reasoning with Transformers</a></h3>
  <time datetime="2025-03-04T09:30:00.000Z">Mar 4</time>
  <div class="text-sm">Published on Mar 4 - 7 authors</div>
  <div class="text-xs">Submitted by akhaliq</div>
</article>
<article>
  <h3>Paper Without Link</h3>
</article>
<article>
  <h3><a href="/papers/2503.05678">Diffusion Policies for Robot Control</a></h3>
</article>
<article>
  <h3><a href="/papers/2503.01234">Multimodal Reasoning with Transformers</a></h3>
</article>
</main></body></html>`

func TestHuggingFaceAdapter(t *testing.T) {
	var accept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		_, _ = io.WriteString(w, hfFixture)
	}))
	defer srv.Close()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	source := models.SourceConfig{Name: "HuggingFace Papers", Type: models.SourceTypeWebScrape, EndpointURL: srv.URL + "/papers"}
	adapter := NewHuggingFaceAdapter("huggingface-papers", source, testFetcher(), testLogger(), 0)
	adapter.now = func() time.Time { return now }
	items, err := adapter.FetchAndParse(context.Background())
	if err != nil {
		t.Fatalf("FetchAndParse returned error: %v", err)
	}

	if accept != fetch.AcceptHTML {
		t.Errorf("scraper should request HTML, got Accept %q", accept)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 unique linked papers, got %d", len(items))
	}

	// the undated paper carries the fetch time and sorts first
	if items[0].Title != "Diffusion Policies for Robot Control" {
		t.Errorf("unexpected order: %q first", items[0].Title)
	}
	if !items[0].PublishedAt.Equal(now) {
		t.Errorf("undated paper PublishedAt = %v, want fetch time %v", items[0].PublishedAt, now)
	}

	paper := items[1]
	if paper.ExternalID != "hf-2503.01234" {
		t.Errorf("ExternalID = %q", paper.ExternalID)
	}
	if paper.URL != srv.URL+"/papers/2503.01234" {
		t.Errorf("URL = %q", paper.URL)
	}
	if want := time.Date(2025, 3, 4, 9, 30, 0, 0, time.UTC); !paper.PublishedAt.Equal(want) {
		t.Errorf("PublishedAt = %v, want card datetime %v", paper.PublishedAt, want)
	}
	if paper.Author != "akhaliq" {
		t.Errorf("Author = %q", paper.Author)
	}
	if !strings.Contains(paper.Content, "# Multimodal Reasoning with Transformers") || !strings.Contains(paper.Content, "[View Paper]") {
		t.Errorf("Content = %q", paper.Content)
	}
	if paper.Tags[0] != "huggingface" || len(paper.Tags) > hfMaxTags {
		t.Errorf("Tags = %v", paper.Tags)
	}
	for _, want := range []string{"multimodal", "reasoning", "transformers"} {
		found := false
		for _, tag := range paper.Tags {
			if tag == want {
				found = true
			}
		}
		if !found {
			t.Errorf("expected tag %q in %v", want, paper.Tags)
		}
	}
	if paper.ImageURL != hfLogoImage {
		t.Errorf("ImageURL = %q", paper.ImageURL)
	}
}

const googleIndexFixture = `<html><body>
<a class="glue-card not-glue" href="/blog/newer-post/">
  <span class="glue-label glue-spacer-1-bottom">March 4, 2025</span>
  <span class="headline-5 js-gt-item-id">Newer post</span>
  <ul class="glue-card__link-list"><li><span class="not-glue caption">Machine Intelligence</span></li><li><span class="not-glue caption">&middot;</span></li><li><span class="not-glue caption">Health &amp; Bioscience</span></li></ul>
</a>
<a class="glue-card not-glue" href="/blog/older-post/">
  <span class="glue-label glue-spacer-1-bottom">January 10, 2025</span>
  <span class="headline-5 js-gt-item-id">Older post</span>
</a>
<a class="glue-card not-glue" href="/blog/no-date/">
  <span class="headline-5 js-gt-item-id">No date</span>
</a>
</body></html>`

const googleArticleFixture = `<html><head><title>Newer post</title></head><body>
<nav>menu</nav>
<article>
  <h1>Newer post</h1>
  <p>This is the first paragraph of a research article about machine intelligence and its applications in many fields of science.</p>
  <p>This is the second paragraph describing experiments, results, and the broader implications of the work for the community.</p>
  <p>This is the third paragraph with conclusions and future directions that the authors intend to pursue over the coming year.</p>
  <p>A fourth paragraph adds detail on datasets, evaluation protocols, baselines, and the ablations that isolate each component of the method.</p>
  <p>A fifth paragraph thanks collaborators and lists the teams, institutions, and open source projects whose tools made this research possible.</p>
</article>
</body></html>`

func TestGoogleResearchAdapter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/blog/":
			_, _ = io.WriteString(w, googleIndexFixture)
		case "/blog/newer-post/":
			_, _ = io.WriteString(w, googleArticleFixture)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	source := models.SourceConfig{Name: "Google Research Blog", Type: models.SourceTypeWebScrape, EndpointURL: srv.URL + "/blog/"}
	a := NewGoogleResearchAdapter("google-research-scraper", source, testFetcher(), testLogger(), 0, 1)
	items, err := a.FetchAndParse(context.Background())
	if err != nil {
		t.Fatalf("FetchAndParse returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 dated cards, got %d", len(items))
	}

	newer := items[0]
	if newer.Title != "Newer post" || newer.URL != srv.URL+"/blog/newer-post/" {
		t.Errorf("unexpected first item %q %q", newer.Title, newer.URL)
	}
	if newer.PublishedAt.Month() != time.March || newer.PublishedAt.Day() != 4 {
		t.Errorf("PublishedAt = %v", newer.PublishedAt)
	}
	if strings.Join(newer.Tags, "|") != "google|machine intelligence|health & bioscience" {
		t.Errorf("Tags = %v", newer.Tags)
	}
	if !strings.Contains(newer.Content, "second paragraph") {
		t.Errorf("article body should replace card content, got %q", newer.Content)
	}

	older := items[1]
	if older.Content != "Older post" {
		t.Errorf("items beyond the article limit keep card content, got %q", older.Content)
	}
}

func TestHostThrottle(t *testing.T) {
	th := newHostThrottle(30 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	if err := th.wait(ctx, "https://a.example.com/1"); err != nil {
		t.Fatal(err)
	}
	if err := th.wait(ctx, "https://b.example.com/1"); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > 20*time.Millisecond {
		t.Error("different hosts should not wait on each other")
	}

	if err := th.wait(ctx, "https://a.example.com/2"); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) < 25*time.Millisecond {
		t.Error("second request to the same host should be delayed")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := th.wait(cancelled, "https://a.example.com/3"); err == nil {
		t.Error("expected cancellation error while waiting")
	}
}
