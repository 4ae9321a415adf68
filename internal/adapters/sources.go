package adapters

import (
	"log/slog"
	"strings"
	"time"

	"github.com/datagate/datagate/internal/models"
)

// SourceOptions tune the built-in sources.
type SourceOptions struct {
	// ScrapeDelay is the per-host pause between scraper requests.
	ScrapeDelay time.Duration
	// ArticleFetchLimit bounds readability fetches per Google Research run.
	ArticleFetchLimit int
}

// DefaultSourceOptions returns production settings.
func DefaultSourceOptions() SourceOptions {
	return SourceOptions{ScrapeDelay: ScrapeDelay, ArticleFetchLimit: 10}
}

// Source definitions, keyed by registry key.
var (
	AWSBigDataSource = models.SourceConfig{
		Name: "AWS Big Data Blog", Type: models.SourceTypeRSS,
		EndpointURL: "https://aws.amazon.com/blogs/big-data/feed/", FetchFrequencyMinutes: 60,
	}
	OpenAIBlogSource = models.SourceConfig{
		Name: "OpenAI Official Blog", Type: models.SourceTypeRSS,
		EndpointURL: "https://openai.com/news/rss.xml", FetchFrequencyMinutes: 60,
	}
	MicrosoftBlogSource = models.SourceConfig{
		Name: "Microsoft Excel & Power BI Blog", Type: models.SourceTypeRSS,
		EndpointURL: "https://powerbi.microsoft.com/en-us/blog/feed/", FetchFrequencyMinutes: 120,
	}
	MITTechReviewSource = models.SourceConfig{
		Name: "MIT Technology Review", Type: models.SourceTypeRSS,
		EndpointURL: "https://news.mit.edu/topic/mitartificial-intelligence2-rss.xml", FetchFrequencyMinutes: 720,
	}
	MITSloanSource = models.SourceConfig{
		Name: "MIT Sloan Management Review", Type: models.SourceTypeRSS,
		EndpointURL: "https://sloanreview.mit.edu/feed/", FetchFrequencyMinutes: 1440,
	}
	VentureBeatSource = models.SourceConfig{
		Name: "VentureBeat", Type: models.SourceTypeRSS,
		EndpointURL: "https://venturebeat.com/feed/", FetchFrequencyMinutes: 60,
	}
	ArsTechnicaSource = models.SourceConfig{
		Name: "Ars Technica", Type: models.SourceTypeRSS,
		EndpointURL: "https://feeds.arstechnica.com/arstechnica/index", FetchFrequencyMinutes: 60,
	}
	TechCrunchSource = models.SourceConfig{
		Name: "TechCrunch", Type: models.SourceTypeRSS,
		EndpointURL: "https://techcrunch.com/feed/", FetchFrequencyMinutes: 30,
	}
	ArxivSource = models.SourceConfig{
		Name: "arXiv AI/ML Papers", Type: models.SourceTypeAPI,
		EndpointURL: "http://export.arxiv.org/api/query", FetchFrequencyMinutes: 1440,
	}
	PyPISource = models.SourceConfig{
		Name: "PyPI Top Packages", Type: models.SourceTypeAPI,
		EndpointURL: "https://pypi.org/pypi/", FetchFrequencyMinutes: 180,
	}
	HuggingFaceSource = models.SourceConfig{
		Name: "HuggingFace Papers", Type: models.SourceTypeWebScrape,
		EndpointURL: "https://huggingface.co/papers", FetchFrequencyMinutes: 30,
	}
	GoogleResearchSource = models.SourceConfig{
		Name: "Google Research Blog", Type: models.SourceTypeWebScrape,
		EndpointURL: "https://research.google/blog/", FetchFrequencyMinutes: 120,
	}
)

// MicrosoftFeeds are the sub-feeds persisted under the Microsoft source.
var MicrosoftFeeds = []SubFeed{
	{
		Name:        "Power BI Blog",
		URL:         "https://powerbi.microsoft.com/en-us/blog/feed/",
		Description: "Business intelligence and analytics updates",
	},
	{
		Name:        "Excel Blog",
		URL:         "https://techcommunity.microsoft.com/t5/s/gxcuf89792/rss/board?board.id=ExcelBlog",
		Description: "Spreadsheet features, Copilot, Python integration",
	},
	{
		Name:        "Microsoft 365 Blog",
		URL:         "https://techcommunity.microsoft.com/t5/s/gxcuf89792/rss/board?board.id=Microsoft365InsiderBlog",
		Description: "Office productivity suite updates",
	},
}

// MITFeeds are the MIT News feeds persisted under MIT Technology Review.
var MITFeeds = []SubFeed{
	{
		Name: "MIT AI News",
		URL:  "https://news.mit.edu/topic/mitartificial-intelligence2-rss.xml",
		Tags: []string{"mit", "research", "technology", "artificial-intelligence", "ai", "machine-learning"},
	},
	{
		Name: "MIT Research News",
		URL:  "https://news.mit.edu/rss/research",
		Tags: []string{"mit", "research", "technology"},
	},
	{
		Name: "MIT Data News",
		URL:  "https://news.mit.edu/topic/mitdata-rss.xml",
		Tags: []string{"mit", "research", "technology", "data"},
	},
}

// DefaultRegistry wires every built-in source.
func DefaultRegistry(fetcher Fetcher, logger *slog.Logger, opts SourceOptions) *Registry {
	r := NewRegistry()
	r.MustRegister(
		NewRSSAdapter("aws-big-data", AWSBigDataSource, fetcher, logger,
			WithCategory(models.CategoryTools),
			WithMetadata(map[string]any{
				"platform":         "aws",
				"publication_type": "technical_blog",
				"content_focus":    "big_data_analytics_cloud",
			})),
		NewRSSAdapter("openai-blog", OpenAIBlogSource, fetcher, logger,
			WithCategory(models.CategoryAnnouncement),
			WithMetadata(map[string]any{
				"platform":         "openai",
				"publication_type": "company_blog",
			})),
		NewMultiFeedAdapter("microsoft-blog", MicrosoftBlogSource, MicrosoftFeeds, fetcher, logger,
			WithCategory(models.CategoryTools),
			WithMetadata(map[string]any{"platform": "microsoft"})),
		NewMultiFeedAdapter("mit-tech-review", MITTechReviewSource, MITFeeds, fetcher, logger,
			WithCategory(models.CategoryResearch),
			WithMetadata(map[string]any{"platform": "mit_news"})),
		NewRSSAdapter("mit-sloan", MITSloanSource, fetcher, logger,
			WithCategory(models.CategoryAnalysis),
			WithMetadata(map[string]any{
				"platform":         "mit_sloan",
				"publication_type": "management_journal",
			})),
		NewRSSAdapter("venturebeat", VentureBeatSource, fetcher, logger,
			WithCategory(models.CategoryNews),
			WithSourceTags("venturebeat", "tech-news", "ai-news", "industry-news", "enterprise-tech"),
			WithMetadata(map[string]any{
				"content_type": "tech_news_article",
				"focus":        "enterprise_technology",
				"publication":  "venturebeat",
			})),
		NewRSSAdapter("arstechnica", ArsTechnicaSource, fetcher, logger,
			WithCategory(models.CategoryNews),
			WithSourceTags("arstechnica", "ars-technica", "tech-journalism"),
			WithDecorator(arsTechnicaTopics),
			WithMetadata(map[string]any{
				"content_type": "tech_journalism",
				"publication":  "ars_technica",
			})),
		NewRSSAdapter("techcrunch", TechCrunchSource, fetcher, logger,
			WithCategory(models.CategoryNews),
			WithSourceTags("techcrunch", "tech-news", "startups"),
			WithMetadata(map[string]any{
				"platform":         "techcrunch",
				"publication_type": "tech_journalism",
				"content_focus":    "startup_technology_business",
			})),
		NewArxivAdapter("arxiv-papers", ArxivSource, fetcher, logger),
		NewPyPIAdapter("pypi-packages", PyPISource, fetcher, logger, nil),
		NewHuggingFaceAdapter("huggingface-papers", HuggingFaceSource, fetcher, logger, opts.ScrapeDelay),
		NewGoogleResearchAdapter("google-research-scraper", GoogleResearchSource, fetcher, logger, opts.ScrapeDelay, opts.ArticleFetchLimit),
	)
	return r
}

type topicRule struct {
	title   []string
	content []string
	tags    []string
}

var arsTechnicaRules = []topicRule{
	{[]string{"ai", "machine learning"}, []string{"artificial intelligence"}, []string{"artificial-intelligence", "ai"}},
	{[]string{"policy", "law"}, []string{"regulation"}, []string{"tech-policy", "regulation"}},
	{[]string{"science", "study"}, []string{"research"}, []string{"science", "research"}},
	{[]string{"security", "privacy"}, []string{"cybersecurity"}, []string{"cybersecurity", "privacy"}},
	{[]string{"review", "tested"}, []string{"hands-on"}, []string{"product-review", "hardware"}},
	{[]string{"gaming", "console"}, []string{"game"}, []string{"gaming", "entertainment"}},
	{[]string{"space", "rocket"}, []string{"nasa"}, []string{"space", "aerospace"}},
	{[]string{"cars", "automotive", "electric vehicle"}, nil, []string{"automotive", "transportation"}},
}

// arsTechnicaTopics adds topic tags from title and content keywords.
func arsTechnicaTopics(item *models.Item) {
	title := strings.ToLower(item.Title)
	content := strings.ToLower(item.Content)
	tags := item.Tags
	for _, rule := range arsTechnicaRules {
		if containsAny(title, rule.title) || containsAny(content, rule.content) {
			tags = append(tags, rule.tags...)
		}
	}
	item.Tags = uniqueStrings(tags, 0)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
