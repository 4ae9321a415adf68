package adapters

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/datagate/datagate/internal/fetch"
	"github.com/datagate/datagate/internal/models"
)

const (
	arxivQuery      = "(cat:cs.AI OR cat:cs.LG OR cat:cs.CL OR cat:stat.ML)"
	arxivMaxResults = 200
	arxivMaxAuthors = 3
)

var arxivIDRe = regexp.MustCompile(`arxiv\.org/abs/(.+)$`)

// arXiv Atom response. The arxiv namespace carries fields gofeed folds away.
type arxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	Raw             string        `xml:",innerxml"`
	ID              string        `xml:"id"`
	Title           string        `xml:"title"`
	Summary         string        `xml:"summary"`
	Published       string        `xml:"published"`
	Updated         string        `xml:"updated"`
	Authors         []arxivAuthor `xml:"author"`
	Categories      []arxivTerm   `xml:"category"`
	Links           []arxivLink   `xml:"link"`
	PrimaryCategory arxivTerm     `xml:"http://arxiv.org/schemas/atom primary_category"`
	Comment         string        `xml:"http://arxiv.org/schemas/atom comment"`
	JournalRef      string        `xml:"http://arxiv.org/schemas/atom journal_ref"`
	DOI             string        `xml:"http://arxiv.org/schemas/atom doi"`
}

type arxivAuthor struct {
	Name        string `xml:"name" json:"name"`
	Affiliation string `xml:"http://arxiv.org/schemas/atom affiliation" json:"affiliation,omitempty"`
}

type arxivTerm struct {
	Term string `xml:"term,attr"`
}

type arxivLink struct {
	Href  string `xml:"href,attr" json:"href"`
	Type  string `xml:"type,attr" json:"type,omitempty"`
	Rel   string `xml:"rel,attr" json:"rel,omitempty"`
	Title string `xml:"title,attr" json:"title,omitempty"`
}

// ArxivAdapter queries the arXiv export API for recent AI/ML submissions.
type ArxivAdapter struct {
	key        string
	source     models.SourceConfig
	fetcher    Fetcher
	logger     *slog.Logger
	maxResults int
	now        func() time.Time
}

// NewArxivAdapter creates the arXiv adapter. source.EndpointURL is the query endpoint.
func NewArxivAdapter(key string, source models.SourceConfig, fetcher Fetcher, logger *slog.Logger) *ArxivAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArxivAdapter{
		key:        key,
		source:     source,
		fetcher:    fetcher,
		logger:     logger.With("adapter", key),
		maxResults: arxivMaxResults,
		now:        time.Now,
	}
}

func (a *ArxivAdapter) Key() string                 { return a.key }
func (a *ArxivAdapter) Source() models.SourceConfig { return a.source }

// QueryURL builds the export API request.
func (a *ArxivAdapter) QueryURL() string {
	params := url.Values{}
	params.Set("search_query", arxivQuery)
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(a.maxResults))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")
	return a.source.EndpointURL + "?" + params.Encode()
}

// FetchAndParse retrieves and maps the newest papers.
func (a *ArxivAdapter) FetchAndParse(ctx context.Context) ([]models.Item, error) {
	queryURL := a.QueryURL()
	raw, err := a.fetcher.FetchText(ctx, queryURL, fetch.Accept("application/atom+xml, application/xml, */*"))
	if err != nil {
		return nil, fmt.Errorf("fetch arxiv: %w", err)
	}

	var parsed arxivFeed
	if err := xml.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse arxiv response: %w", err)
	}
	a.logger.Info("fetched arxiv papers", "entries", len(parsed.Entries))

	fetchedAt := a.now()
	seen := newSeenSet()
	items := make([]models.Item, 0, len(parsed.Entries))
	for _, entry := range parsed.Entries {
		item, ok := a.mapEntry(entry, queryURL, fetchedAt)
		if !ok {
			continue
		}
		if !seen.add(item) {
			continue
		}
		items = append(items, item)
	}

	SortNewestFirst(items)
	return items, nil
}

func (a *ArxivAdapter) mapEntry(entry arxivEntry, queryURL string, fetchedAt time.Time) (models.Item, bool) {
	id := strings.TrimSpace(entry.ID)
	if id == "" {
		a.logger.Warn("skipping arxiv entry without id")
		return models.Item{}, false
	}

	var paperID string
	if m := arxivIDRe.FindStringSubmatch(id); m != nil {
		paperID = m[1]
	}

	externalID := "arxiv-" + paperID
	if paperID == "" {
		externalID = "arxiv-" + HashID(id)
	}

	paperURL := id
	if !strings.HasPrefix(id, "http") {
		if paperID == "" {
			a.logger.Warn("skipping arxiv entry without resolvable url", "id", id)
			return models.Item{}, false
		}
		paperURL = "https://arxiv.org/abs/" + paperID
	}

	publishedAt := fetchedAt
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(entry.Published)); err == nil {
		publishedAt = t
	}

	title := strings.Join(strings.Fields(DecodeEntities(entry.Title)), " ")
	if title == "" {
		title = "Untitled"
	}
	abstract := strings.TrimSpace(DecodeEntities(entry.Summary))

	names := make([]string, 0, len(entry.Authors))
	var affiliations []string
	for _, au := range entry.Authors {
		names = append(names, strings.TrimSpace(au.Name))
		if au.Affiliation != "" {
			affiliations = append(affiliations, strings.TrimSpace(au.Affiliation))
		}
	}
	categories := make([]string, 0, len(entry.Categories))
	for _, c := range entry.Categories {
		if c.Term != "" {
			categories = append(categories, c.Term)
		}
	}
	var pdfLink, absLink string
	for _, l := range entry.Links {
		switch {
		case l.Title == "pdf":
			pdfLink = l.Href
		case l.Rel == "alternate":
			absLink = l.Href
		}
	}

	return models.Item{
		Title:         title,
		URL:           paperURL,
		Content:       Truncate(abstract, models.MaxContentLength),
		PublishedAt:   publishedAt,
		ExternalID:    externalID,
		Tags:          []string{},
		Author:        authorLine(names),
		StoryCategory: models.CategoryResearch,
		OriginalMetadata: map[string]any{
			"raw_xml_entry":             entry.Raw,
			"arxiv_id":                  id,
			"arxiv_paper_id":            paperID,
			"arxiv_title":               entry.Title,
			"arxiv_summary":             entry.Summary,
			"arxiv_published":           entry.Published,
			"arxiv_updated":             entry.Updated,
			"arxiv_primary_category":    entry.PrimaryCategory.Term,
			"arxiv_comment":             strings.TrimSpace(entry.Comment),
			"arxiv_journal_ref":         strings.TrimSpace(entry.JournalRef),
			"arxiv_doi":                 strings.TrimSpace(entry.DOI),
			"arxiv_authors":             entry.Authors,
			"arxiv_author_names":        names,
			"arxiv_author_affiliations": affiliations,
			"arxiv_categories":          categories,
			"arxiv_links":               entry.Links,
			"arxiv_pdf_link":            pdfLink,
			"arxiv_abs_link":            absLink,
			"extraction_timestamp":      fetchedAt.UTC().Format(time.RFC3339),
			"source_name":               a.source.Name,
			"source_type":               string(a.source.Type),
			"source_endpoint":           queryURL,
			"adapter_version":           AdapterVersion,
			"platform":                  "arxiv",
			"content_type":              "academic_paper",
			"publication_type":          "preprint",
		},
	}, true
}

func authorLine(names []string) string {
	if len(names) <= arxivMaxAuthors {
		return strings.Join(names, ", ")
	}
	return strings.Join(names[:arxivMaxAuthors], ", ") + " et al."
}
