package adapters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/datagate/datagate/internal/fetch"
	"github.com/datagate/datagate/internal/models"
)

// pypiRecentVersions is how many releases per package become items.
const pypiRecentVersions = 3

// TopPackages are the PyPI projects watched for new releases.
var TopPackages = []string{
	"pandas",
	"numpy",
	"scikit-learn",
	"matplotlib",
	"seaborn",
	"jupyter",
	"flask",
	"django",
	"requests",
	"tensorflow",
	"torch",
	"sqlalchemy",
	"fastapi",
	"streamlit",
	"plotly",
}

type pypiPackage struct {
	Info            pypiInfo              `json:"info"`
	Releases        map[string][]pypiFile `json:"releases"`
	URLs            []pypiFile            `json:"urls"`
	Vulnerabilities []map[string]any      `json:"vulnerabilities"`
	LastSerial      int64                 `json:"last_serial"`
}

type pypiInfo struct {
	Name                   string            `json:"name"`
	Version                string            `json:"version"`
	Summary                string            `json:"summary"`
	Description            string            `json:"description"`
	DescriptionContentType string            `json:"description_content_type"`
	Author                 string            `json:"author"`
	AuthorEmail            string            `json:"author_email"`
	HomePage               string            `json:"home_page"`
	License                string            `json:"license"`
	Keywords               string            `json:"keywords"`
	RequiresPython         string            `json:"requires_python"`
	ProjectURL             string            `json:"project_url"`
	ProjectURLs            map[string]string `json:"project_urls"`
}

type pypiFile struct {
	Filename      string            `json:"filename"`
	PackageType   string            `json:"packagetype"`
	PythonVersion string            `json:"python_version"`
	Size          int64             `json:"size"`
	UploadTime    string            `json:"upload_time"`
	UploadTimeISO string            `json:"upload_time_iso_8601"`
	URL           string            `json:"url"`
	Yanked        bool              `json:"yanked"`
	Digests       map[string]string `json:"digests"`
}

// PyPIAdapter turns recent releases of watched packages into items.
type PyPIAdapter struct {
	key      string
	source   models.SourceConfig
	fetcher  Fetcher
	logger   *slog.Logger
	packages []string
	now      func() time.Time
}

// NewPyPIAdapter creates the adapter. source.EndpointURL is the JSON API base,
// e.g. https://pypi.org/pypi/. A nil packages list watches TopPackages.
func NewPyPIAdapter(key string, source models.SourceConfig, fetcher Fetcher, logger *slog.Logger, packages []string) *PyPIAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	if packages == nil {
		packages = TopPackages
	}
	return &PyPIAdapter{
		key:      key,
		source:   source,
		fetcher:  fetcher,
		logger:   logger.With("adapter", key),
		packages: packages,
		now:      time.Now,
	}
}

func (a *PyPIAdapter) Key() string                 { return a.key }
func (a *PyPIAdapter) Source() models.SourceConfig { return a.source }

// FetchAndParse fetches every watched package. A failing package is skipped;
// the fetch fails only when every package fails.
func (a *PyPIAdapter) FetchAndParse(ctx context.Context) ([]models.Item, error) {
	var (
		items []models.Item
		errs  []error
	)
	for _, name := range a.packages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pkgItems, err := a.fetchPackage(ctx, name)
		if err != nil {
			a.logger.Warn("failed to fetch package", "package", name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		items = append(items, pkgItems...)
	}

	if len(a.packages) > 0 && len(errs) == len(a.packages) {
		return nil, fmt.Errorf("all %d packages failed: %w", len(a.packages), errors.Join(errs...))
	}

	items = dedupe(items)
	SortNewestFirst(items)
	a.logger.Info("extracted package releases", "packages", len(a.packages), "failed", len(errs), "items", len(items))
	return items, nil
}

func (a *PyPIAdapter) fetchPackage(ctx context.Context, name string) ([]models.Item, error) {
	endpoint := strings.TrimSuffix(a.source.EndpointURL, "/") + "/" + name + "/json"

	var pkg pypiPackage
	if err := a.fetcher.FetchJSON(ctx, endpoint, &pkg, fetch.Accept(fetch.AcceptJSON)); err != nil {
		return nil, err
	}

	versions := recentVersions(pkg.Releases, pypiRecentVersions)
	fetchedAt := a.now()
	displayName := pkg.Info.Name
	if displayName == "" {
		displayName = name
	}

	content := strings.TrimSpace(pkg.Info.Description)
	if content == "" {
		content = strings.TrimSpace(pkg.Info.Summary)
	}
	content = Truncate(content, models.MaxContentLength)

	items := make([]models.Item, 0, len(versions))
	for _, version := range versions {
		files := pkg.Releases[version]
		first := files[0]
		uploadTime := first.UploadTimeISO
		if uploadTime == "" {
			uploadTime = first.UploadTime
		}
		publishedAt := fetchedAt
		if t, ok := ParseDate(uploadTime); ok {
			publishedAt = t
		}

		items = append(items, models.Item{
			Title:         displayName + " " + version,
			URL:           fmt.Sprintf("https://pypi.org/project/%s/%s/", name, version),
			Content:       content,
			PublishedAt:   publishedAt,
			ExternalID:    fmt.Sprintf("pypi-%s-%s", name, version),
			Tags:          []string{},
			Summary:       strings.TrimSpace(pkg.Info.Summary),
			Author:        strings.TrimSpace(pkg.Info.Author),
			StoryCategory: models.CategoryTools,
			OriginalMetadata: map[string]any{
				"pypi_package_info":        pkg.Info,
				"pypi_urls":                pkg.URLs,
				"pypi_vulnerabilities":     pkg.Vulnerabilities,
				"pypi_last_serial":         pkg.LastSerial,
				"pypi_release_version":     version,
				"pypi_release_files":       files,
				"pypi_release_upload_time": uploadTime,
				"pypi_recent_versions":     versions,
				"extraction_timestamp":     fetchedAt.UTC().Format(time.RFC3339),
				"source_name":              a.source.Name,
				"source_type":              string(a.source.Type),
				"source_endpoint":          endpoint,
				"adapter_version":          AdapterVersion,
				"platform":                 "pypi",
				"package_ecosystem":        "python",
				"content_type":             "package_release",
				"package_name":             name,
				"version_number":           version,
			},
		})
	}
	return items, nil
}

// recentVersions returns up to n versions that have files, newest first by
// the leading integer of each dotted component.
func recentVersions(releases map[string][]pypiFile, n int) []string {
	versions := make([]string, 0, len(releases))
	for v, files := range releases {
		if len(files) > 0 {
			versions = append(versions, v)
		}
	}
	sort.Slice(versions, func(i, j int) bool {
		if c := compareVersions(versions[i], versions[j]); c != 0 {
			return c > 0
		}
		// numeric tie: final release before its pre-releases
		if len(versions[i]) != len(versions[j]) {
			return len(versions[i]) < len(versions[j])
		}
		return versions[i] > versions[j]
	})
	if len(versions) > n {
		versions = versions[:n]
	}
	return versions
}

func compareVersions(a, b string) int {
	ap, bp := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(ap) || i < len(bp); i++ {
		var x, y int
		if i < len(ap) {
			x = leadingInt(ap[i])
		}
		if i < len(bp) {
			y = leadingInt(bp[i])
		}
		if x != y {
			if x > y {
				return 1
			}
			return -1
		}
	}
	return 0
}

func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}
