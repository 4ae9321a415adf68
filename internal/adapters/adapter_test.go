package adapters

import (
	"strings"
	"testing"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry(testFetcher(), testLogger(), DefaultSourceOptions())

	want := []string{
		"aws-big-data",
		"openai-blog",
		"microsoft-blog",
		"mit-tech-review",
		"mit-sloan",
		"venturebeat",
		"arstechnica",
		"techcrunch",
		"arxiv-papers",
		"pypi-packages",
		"huggingface-papers",
		"google-research-scraper",
	}
	if got := r.Keys(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Keys() = %v, want %v", got, want)
	}

	tests := []struct {
		key  string
		name string
	}{
		{"aws-big-data", "AWS Big Data Blog"},
		{"microsoft-blog", "Microsoft Excel & Power BI Blog"},
		{"arxiv-papers", "arXiv AI/ML Papers"},
		{"google-research-scraper", "Google Research Blog"},
	}
	for _, tt := range tests {
		name, ok := r.SourceName(tt.key)
		if !ok || name != tt.name {
			t.Errorf("SourceName(%q) = %q, %v; want %q", tt.key, name, ok, tt.name)
		}
	}

	for _, src := range r.Sources() {
		if !src.Type.Valid() {
			t.Errorf("source %q has invalid type %q", src.Name, src.Type)
		}
		if src.FetchFrequencyMinutes <= 0 {
			t.Errorf("source %q has no fetch frequency", src.Name)
		}
	}

	if _, ok := r.Get("unknown"); ok {
		t.Error("unknown key should not resolve")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	a := NewRSSAdapter("dup", testSource("http://example.com"), testFetcher(), testLogger())
	if err := r.Register(a); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}
	if err := r.Register(a); err == nil {
		t.Error("expected error for duplicate key")
	}
	if err := r.Register(NewRSSAdapter("", testSource("http://example.com"), testFetcher(), testLogger())); err == nil {
		t.Error("expected error for empty key")
	}
}
