package tagging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testRulesYAML = `
version: "test-1"
confidence_threshold: 0.7
production_mode: true
max_tags_per_story: 4
tag_categories:
  languages:
    description: Languages
    tags:
      python: [Python, pandas]
      rust: [rustlang]
  ml:
    description: Machine learning
    tags:
      pytorch: [pytorch]
      llms: [large language model, llm]
patterns:
  version_numbers: '\bv?\d+\.\d+(\.\d+)+\b'
  github_repos: 'github\.com/[\w.-]+/[\w.-]+'
`

func mustRules(t *testing.T, doc string) *RuleSet {
	t.Helper()
	rules, err := ParseRules([]byte(doc))
	if err != nil {
		t.Fatalf("ParseRules returned error: %v", err)
	}
	return rules
}

func TestParseRulesKeepsDocumentOrder(t *testing.T) {
	rules := mustRules(t, testRulesYAML)

	if rules.Version != "test-1" || rules.MaxTagsPerStory != 4 || !rules.ProductionMode {
		t.Errorf("unexpected header %+v", rules)
	}
	if rules.CategoryCount() != 2 || rules.Categories[0].Name != "languages" || rules.Categories[1].Name != "ml" {
		t.Fatalf("unexpected categories %+v", rules.Categories)
	}
	if got := rules.Categories[0].Tags[0]; got.Tag != "python" || strings.Join(got.Keywords, ",") != "python,pandas" {
		t.Errorf("keywords should be lower-cased in order, got %+v", got)
	}
	if len(rules.Patterns) != 2 || rules.Patterns[0].Name != PatternVersionNumbers {
		t.Fatalf("unexpected patterns %+v", rules.Patterns)
	}
	if !rules.Patterns[1].Expr.MatchString("see GITHUB.COM/Org/Repo") {
		t.Error("patterns should compile case-insensitively")
	}
}

func TestParseRulesAcceptsJSON(t *testing.T) {
	doc := `{"version":"j1","confidence_threshold":0.5,"production_mode":false,"max_tags_per_story":3,
	"tag_categories":{"c":{"description":"d","tags":{"x":["y"]}}},"patterns":{}}`
	rules := mustRules(t, doc)
	if rules.Version != "j1" || rules.ProductionMode || len(rules.Categories) != 1 {
		t.Errorf("unexpected rules %+v", rules)
	}
}

func TestParseRulesErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed", "version: [unterminated"},
		{"missing version", "max_tags_per_story: 3"},
		{"zero max tags", "version: x\nmax_tags_per_story: 0"},
		{"bad threshold", "version: x\nmax_tags_per_story: 3\nconfidence_threshold: 2"},
		{"bad regex", "version: x\nmax_tags_per_story: 3\npatterns:\n  broken: '(['"},
		{"categories not a map", "version: x\nmax_tags_per_story: 3\ntag_categories: [a, b]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRules([]byte(tt.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(testRulesYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	rules, err := ResolveRules(path)
	if err != nil {
		t.Fatalf("ResolveRules returned error: %v", err)
	}
	if rules.Version != "test-1" {
		t.Errorf("Version = %q", rules.Version)
	}

	if _, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaultRules(t *testing.T) {
	rules, err := ResolveRules("")
	if err != nil {
		t.Fatalf("embedded rules failed to load: %v", err)
	}
	if rules.CategoryCount() == 0 || len(rules.Patterns) != 4 {
		t.Errorf("embedded rules look incomplete: %d categories, %d patterns", rules.CategoryCount(), len(rules.Patterns))
	}
	for _, p := range rules.Patterns {
		if _, ok := impliedTags[p.Name]; !ok {
			t.Errorf("pattern %q has no implied tags", p.Name)
		}
	}
}
