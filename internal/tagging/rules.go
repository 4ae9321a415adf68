package tagging

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// Pattern names with implied tags.
const (
	PatternVersionNumbers = "version_numbers"
	PatternFundingAmounts = "funding_amounts"
	PatternArxivPapers    = "arxiv_papers"
	PatternGithubRepos    = "github_repos"
)

// impliedTags are added whenever the named pattern matches, regardless of
// category keyword hits.
var impliedTags = map[string][]string{
	PatternVersionNumbers: {"release"},
	PatternFundingAmounts: {"startup", "funding"},
	PatternArxivPapers:    {"research", "paper"},
	PatternGithubRepos:    {"open-source", "github"},
}

// TagRule maps one tag to the keywords that trigger it.
type TagRule struct {
	Tag      string
	Keywords []string
}

// Category groups related tag rules.
type Category struct {
	Name        string
	Description string
	Tags        []TagRule
}

// Pattern is a named, compiled regular expression.
type Pattern struct {
	Name string
	Expr *regexp.Regexp
}

// RuleSet is the versioned heuristic tagging document. Categories, tags and
// patterns keep document order so results are stable across runs.
type RuleSet struct {
	Version             string
	ConfidenceThreshold float64
	ProductionMode      bool
	MaxTagsPerStory     int
	Categories          []Category
	Patterns            []Pattern
}

type rawRuleSet struct {
	Version             string    `yaml:"version"`
	ConfidenceThreshold float64   `yaml:"confidence_threshold"`
	ProductionMode      bool      `yaml:"production_mode"`
	MaxTagsPerStory     int       `yaml:"max_tags_per_story"`
	TagCategories       yaml.Node `yaml:"tag_categories"`
	Patterns            yaml.Node `yaml:"patterns"`
}

type rawCategory struct {
	Description string    `yaml:"description"`
	Tags        yaml.Node `yaml:"tags"`
}

// DefaultRules returns the embedded rule document.
func DefaultRules() (*RuleSet, error) {
	return ParseRules(defaultRulesYAML)
}

// LoadRules reads a YAML or JSON rule document from path.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tagging rules: %w", err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("load tagging rules %s: %w", path, err)
	}
	return rules, nil
}

// ResolveRules loads path, or the embedded rules when path is empty.
func ResolveRules(path string) (*RuleSet, error) {
	if path == "" {
		return DefaultRules()
	}
	return LoadRules(path)
}

// ParseRules decodes and compiles a rule document. Patterns are compiled
// case-insensitively.
func ParseRules(data []byte) (*RuleSet, error) {
	var raw rawRuleSet
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode tagging rules: %w", err)
	}

	rules := &RuleSet{
		Version:             raw.Version,
		ConfidenceThreshold: raw.ConfidenceThreshold,
		ProductionMode:      raw.ProductionMode,
		MaxTagsPerStory:     raw.MaxTagsPerStory,
	}
	if rules.Version == "" {
		return nil, errors.New("tagging rules: missing version")
	}
	if rules.MaxTagsPerStory <= 0 {
		return nil, fmt.Errorf("tagging rules: invalid max_tags_per_story %d", rules.MaxTagsPerStory)
	}
	if rules.ConfidenceThreshold < 0 || rules.ConfidenceThreshold > 1 {
		return nil, fmt.Errorf("tagging rules: invalid confidence_threshold %v", rules.ConfidenceThreshold)
	}

	err := eachPair(&raw.TagCategories, func(name string, node *yaml.Node) error {
		var rc rawCategory
		if err := node.Decode(&rc); err != nil {
			return fmt.Errorf("category %s: %w", name, err)
		}
		cat := Category{Name: name, Description: rc.Description}
		err := eachPair(&rc.Tags, func(tag string, kwNode *yaml.Node) error {
			var keywords []string
			if err := kwNode.Decode(&keywords); err != nil {
				return fmt.Errorf("category %s tag %s: %w", name, tag, err)
			}
			for i, kw := range keywords {
				keywords[i] = strings.ToLower(kw)
			}
			cat.Tags = append(cat.Tags, TagRule{Tag: tag, Keywords: keywords})
			return nil
		})
		if err != nil {
			return err
		}
		rules.Categories = append(rules.Categories, cat)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tagging rules: %w", err)
	}

	err = eachPair(&raw.Patterns, func(name string, node *yaml.Node) error {
		var expr string
		if err := node.Decode(&expr); err != nil {
			return fmt.Errorf("pattern %s: %w", name, err)
		}
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return fmt.Errorf("pattern %s: %w", name, err)
		}
		rules.Patterns = append(rules.Patterns, Pattern{Name: name, Expr: re})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tagging rules: %w", err)
	}

	return rules, nil
}

// CategoryCount reports how many tag categories the rules define.
func (r *RuleSet) CategoryCount() int {
	return len(r.Categories)
}

// eachPair walks a YAML mapping in document order. A missing node is empty.
func eachPair(node *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	if node.Kind == 0 {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("expected mapping at line %d", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if err := fn(node.Content[i].Value, node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}
