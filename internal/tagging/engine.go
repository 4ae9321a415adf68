// Package tagging assigns topical tags and embeddings to canonical items.
//
// Heuristic tags come from keyword and pattern rules and are always computed.
// Semantic tags compare one content embedding against a fixed prototype
// dictionary; they require Init and an Embedder, and any failure on that path
// degrades to heuristic output.
package tagging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/datagate/datagate/internal/models"
)

const (
	// DefaultSemanticThreshold is the minimum cosine similarity for a semantic tag.
	DefaultSemanticThreshold = 0.7
	// DefaultSemanticMaxTags caps semantic tags per item.
	DefaultSemanticMaxTags = 5

	memoCapacity       = 1000
	memoTitlePrefix    = 50
	maxKeywordsSampled = 10
	maxNotes           = 8
	initConcurrency    = 8

	// NoteSemanticFallback is appended to metadata when semantic tagging fails.
	NoteSemanticFallback = "Semantic tagging failed - using heuristic only"
)

var (
	// ErrNoEmbedder is returned when semantic work is requested without an embedder.
	ErrNoEmbedder = errors.New("tagging: no embedder configured")
	// ErrNotInitialized is returned by TagSemantic before a successful Init.
	ErrNotInitialized = errors.New("tagging: prototype embeddings not initialized")
)

var nonWordRe = regexp.MustCompile(`[^\w]`)

// Observer receives tagging events, typically the metrics collector.
type Observer interface {
	ObserveSemanticFallback(source string)
}

// Option configures an Engine.
type Option func(*Engine)

// WithSemanticThreshold overrides the similarity cut-off.
func WithSemanticThreshold(t float64) Option {
	return func(e *Engine) {
		if t > 0 {
			e.threshold = t
		}
	}
}

// WithSemanticMaxTags overrides the per-item semantic tag cap.
func WithSemanticMaxTags(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSemantic = n
		}
	}
}

// WithPrototypes replaces the prototype dictionary.
func WithPrototypes(p []Prototype) Option {
	return func(e *Engine) { e.prototypes = p }
}

// WithObserver attaches an event observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

type heuristicResult struct {
	tags []string
	meta models.TaggingMetadata
}

// Engine owns the compiled rules, the heuristic memo and the prototype
// vectors. It is safe for concurrent use.
type Engine struct {
	rules       *RuleSet
	embedder    Embedder
	logger      *slog.Logger
	prototypes  []Prototype
	threshold   float64
	maxSemantic int
	observer    Observer

	memoMu sync.Mutex
	memo   map[string]heuristicResult

	protoMu   sync.RWMutex
	protoVecs map[string][]float32
}

// NewEngine builds an engine. embedder may be nil, which limits the engine to
// heuristic tagging.
func NewEngine(rules *RuleSet, embedder Embedder, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if rules == nil {
		return nil, errors.New("tagging: rules are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		rules:       rules,
		embedder:    embedder,
		logger:      logger,
		prototypes:  DefaultPrototypes,
		threshold:   DefaultSemanticThreshold,
		maxSemantic: DefaultSemanticMaxTags,
		memo:        make(map[string]heuristicResult),
	}
	if rules.ConfidenceThreshold > 0 {
		e.threshold = rules.ConfidenceThreshold
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Rules returns the compiled rule set.
func (e *Engine) Rules() *RuleSet {
	return e.rules
}

// EmbeddingModel names the model behind attached embeddings, or "" without an embedder.
func (e *Engine) EmbeddingModel() string {
	if e.embedder == nil {
		return ""
	}
	return e.embedder.Model()
}

// Init embeds every prototype once. It is idempotent after success and
// leaves the engine cold on failure.
func (e *Engine) Init(ctx context.Context) error {
	if e.embedder == nil {
		return ErrNoEmbedder
	}
	if e.Warm() {
		return nil
	}

	start := time.Now()
	vecs := make(map[string][]float32, len(e.prototypes))
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	sem := make(chan struct{}, initConcurrency)

	for _, p := range e.prototypes {
		wg.Add(1)
		go func(p Prototype) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				if firstErr == nil {
					firstErr = ctx.Err()
				}
				mu.Unlock()
				return
			}

			vec, err := e.embedder.Embed(ctx, p.Description)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("embed prototype %s: %w", p.Tag, err)
				}
				return
			}
			vecs[p.Tag] = vec
		}(p)
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}

	e.protoMu.Lock()
	e.protoVecs = vecs
	e.protoMu.Unlock()

	e.logger.Info("initialized prototype embeddings",
		"prototypes", len(vecs),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Warm reports whether prototype vectors are loaded.
func (e *Engine) Warm() bool {
	e.protoMu.RLock()
	defer e.protoMu.RUnlock()
	return e.protoVecs != nil
}

// Embed returns the embedding of text through the configured embedder.
func (e *Engine) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.embedder == nil {
		return nil, ErrNoEmbedder
	}
	return e.embedder.Embed(ctx, text)
}

// TagHeuristic tags item from keyword and pattern rules. Results are memoised
// per url and title prefix.
func (e *Engine) TagHeuristic(item models.Item, source string) ([]string, models.TaggingMetadata) {
	start := time.Now()
	key := item.URL + ":" + prefix(item.Title, memoTitlePrefix)

	e.memoMu.Lock()
	cached, ok := e.memo[key]
	e.memoMu.Unlock()
	if ok {
		meta := cached.meta
		meta.ProcessingTimeMs = elapsedMs(start)
		return nonNil(append([]string(nil), cached.tags...)), meta
	}

	text := strings.ToLower(item.Title + " " + item.Title + " " + item.Content)
	words := make(map[string]struct{})
	for _, w := range strings.Fields(text) {
		words[nonWordRe.ReplaceAllString(w, "")] = struct{}{}
	}

	var (
		tags, keywords, patterns, categories, notes []string
	)
	for _, cat := range e.rules.Categories {
		matched := false
		for _, rule := range cat.Tags {
			hits := 0
			for _, kw := range rule.Keywords {
				_, whole := words[kw]
				if whole || strings.Contains(text, kw) {
					hits++
					keywords = append(keywords, kw)
				}
			}
			if hits > 0 {
				tags = append(tags, rule.Tag)
				matched = true
				notes = append(notes, fmt.Sprintf("%s: %d keyword matches", rule.Tag, hits))
			}
		}
		if matched {
			categories = append(categories, cat.Name)
		}
	}

	for _, p := range e.rules.Patterns {
		if !p.Expr.MatchString(text) {
			continue
		}
		patterns = append(patterns, p.Name)
		tags = append(tags, impliedTags[p.Name]...)
	}

	limit := e.rules.MaxTagsPerStory
	final := uniqueLimit(tags, limit)
	sort.Strings(final)

	confidence := 0.0
	if len(final) > 0 {
		confidence = float64(len(final)) / float64(limit)
		if confidence > 1 {
			confidence = 1
		}
	}

	took := elapsedMs(start)
	summary := []string{
		fmt.Sprintf("Analyzed %d chars in %.2fms", len(text), took),
		fmt.Sprintf("Extracted %d/%d tags", len(final), limit),
		"Categories matched: " + strings.Join(categories, ", "),
	}
	meta := models.TaggingMetadata{
		AdapterName:          source,
		Version:              e.rules.Version,
		TagsFound:            len(final),
		TagCategoriesMatched: nonNil(categories),
		KeywordsMatched:      uniqueLimit(keywords, maxKeywordsSampled),
		PatternsMatched:      nonNil(patterns),
		ConfidenceScore:      confidence,
		ProcessingTimeMs:     took,
		ProcessingNotes:      appendNotes(nil, append(summary, notes...)...),
	}

	e.memoMu.Lock()
	if len(e.memo) < memoCapacity {
		e.memo[key] = heuristicResult{tags: final, meta: meta}
	}
	e.memoMu.Unlock()

	return nonNil(append([]string(nil), final...)), meta
}

// TagSemantic embeds text once and returns prototype tags whose similarity is
// at least threshold, best first, at most maxTags, along with the embedding.
func (e *Engine) TagSemantic(ctx context.Context, text string, threshold float64, maxTags int) ([]models.SemanticMatch, []float32, error) {
	if e.embedder == nil {
		return nil, nil, ErrNoEmbedder
	}
	e.protoMu.RLock()
	vecs := e.protoVecs
	e.protoMu.RUnlock()
	if vecs == nil {
		return nil, nil, ErrNotInitialized
	}

	embedding, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, nil, fmt.Errorf("embed content: %w", err)
	}

	var matches []models.SemanticMatch
	for _, p := range e.prototypes {
		vec, ok := vecs[p.Tag]
		if !ok {
			continue
		}
		if sim := CosineSimilarity(embedding, vec); sim >= threshold {
			matches = append(matches, models.SemanticMatch{Tag: p.Tag, Similarity: sim})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if maxTags > 0 && len(matches) > maxTags {
		matches = matches[:maxTags]
	}
	return matches, embedding, nil
}

// Tag runs heuristic tagging and, when useSemantic is set, the rules are in
// production mode and prototypes are warm, merges semantic tags and attaches
// the content embedding. Adapter-assigned tags are kept.
func (e *Engine) Tag(ctx context.Context, item models.Item, source string, useSemantic bool) models.Item {
	start := time.Now()
	tags, meta := e.TagHeuristic(item, source)
	meta.HeuristicTags = append([]string(nil), tags...)

	if !useSemantic || !e.rules.ProductionMode || !e.Warm() {
		item.Tags = mergeTags(item.Tags, tags)
		item.TaggingMetadata = &meta
		return item
	}

	text := truncateInput(item.Title + " " + item.Title + " " + item.Content)
	matches, embedding, err := e.TagSemantic(ctx, text, e.threshold, e.maxSemantic)
	if err != nil {
		e.logger.Warn("semantic tagging failed, using heuristic tags",
			"source", source, "url", item.URL, "error", err)
		if e.observer != nil {
			e.observer.ObserveSemanticFallback(source)
		}
		meta.ProcessingNotes = appendNotes(meta.ProcessingNotes, NoteSemanticFallback)
		item.Tags = mergeTags(item.Tags, tags)
		item.TaggingMetadata = &meta
		return item
	}

	merged := append([]string(nil), tags...)
	for _, m := range matches {
		merged = append(merged, m.Tag)
	}
	took := elapsedMs(start)
	meta.SemanticTags = matches
	meta.ProcessingTimeMs = took
	meta.ProcessingNotes = appendNotes(meta.ProcessingNotes,
		fmt.Sprintf("Semantic tags: %d found", len(matches)),
		fmt.Sprintf("Hybrid processing: %.2fms", took))

	item.Tags = mergeTags(item.Tags, uniqueLimit(merged, e.rules.MaxTagsPerStory))
	item.TaggingMetadata = &meta
	item.Embedding = embedding
	return item
}

// TagBatch tags items sequentially. A semantic batch initialises prototypes
// on first use and drops to heuristic mode if that fails. An item whose
// tagging panics keeps an empty tag list.
func (e *Engine) TagBatch(ctx context.Context, items []models.Item, source string, useSemantic bool) []models.Item {
	start := time.Now()
	if useSemantic && e.rules.ProductionMode && !e.Warm() {
		if err := e.Init(ctx); err != nil {
			e.logger.Warn("prototype initialization failed, tagging heuristically",
				"source", source, "error", err)
			useSemantic = false
		}
	}

	mode := "heuristic"
	if useSemantic && e.rules.ProductionMode {
		mode = "hybrid"
	}
	e.logger.Info("tagging batch", "source", source, "items", len(items), "mode", mode)

	out := make([]models.Item, 0, len(items))
	histogram := make(map[string]int)
	for _, item := range items {
		tagged := e.tagSafely(ctx, item, source, useSemantic)
		for _, t := range tagged.Tags {
			histogram[t]++
		}
		out = append(out, tagged)
	}

	duration := time.Since(start)
	avg := 0.0
	if len(items) > 0 {
		avg = float64(duration.Microseconds()) / 1000 / float64(len(items))
	}
	e.logger.Info("tagged batch",
		"source", source,
		"tagged", len(out),
		"duration_ms", duration.Milliseconds(),
		"avg_ms_per_item", avg,
		"tag_distribution", histogram)
	return out
}

func (e *Engine) tagSafely(ctx context.Context, item models.Item, source string, useSemantic bool) (out models.Item) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tagging item panicked", "source", source, "external_id", item.ExternalID, "panic", r)
			item.Tags = []string{}
			out = item
		}
	}()
	return e.Tag(ctx, item, source, useSemantic)
}

func uniqueLimit(in []string, limit int) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
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

// appendNotes returns a new slice of at most maxNotes entries. When the cap
// is hit, base entries are dropped from the tail so extra always survives.
func appendNotes(base []string, extra ...string) []string {
	keep := len(base)
	if keep+len(extra) > maxNotes {
		keep = maxNotes - len(extra)
		if keep < 0 {
			keep = 0
		}
	}
	out := make([]string, 0, keep+len(extra))
	out = append(out, base[:keep]...)
	out = append(out, extra...)
	if len(out) > maxNotes {
		out = out[:maxNotes]
	}
	return out
}

// mergeTags keeps adapter-assigned tags ahead of derived ones. Only derived
// tags count against max_tags_per_story.
func mergeTags(existing, derived []string) []string {
	all := make([]string, 0, len(existing)+len(derived))
	all = append(all, existing...)
	all = append(all, derived...)
	return uniqueLimit(all, 0)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
