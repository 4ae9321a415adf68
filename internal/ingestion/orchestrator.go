// Package ingestion drives sources through fetch, validation, enrichment and
// persistence.
package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/datagate/datagate/internal/adapters"
	"github.com/datagate/datagate/internal/fetch"
	"github.com/datagate/datagate/internal/models"
	"github.com/datagate/datagate/internal/validation"
	"github.com/google/uuid"
)

var (
	// ErrNoValidItems fails a run whose fetched items were all rejected.
	ErrNoValidItems = errors.New("no valid items")
	// ErrUnknownAdapter is returned for keys missing from the registry.
	ErrUnknownAdapter = errors.New("unknown adapter")
)

// PipelineConfig holds configuration for ingestion runs.
type PipelineConfig struct {
	GenerateEmbeddings bool
	EnableTagging      bool
	EnableValidation   bool
	BatchSize          int
	FetchTimeout       time.Duration
	ConcurrentSources  int
	PersistDelay       time.Duration
}

// DefaultPipelineConfig returns production defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		GenerateEmbeddings: true,
		EnableTagging:      true,
		EnableValidation:   true,
		BatchSize:          50,
		FetchTimeout:       5 * time.Minute,
		ConcurrentSources:  4,
		PersistDelay:       50 * time.Millisecond,
	}
}

// AdapterSource resolves adapters by key.
type AdapterSource interface {
	Get(key string) (adapters.Adapter, bool)
	Keys() []string
}

// Tagger enriches items; *tagging.Engine satisfies it.
type Tagger interface {
	TagBatch(ctx context.Context, items []models.Item, source string, useSemantic bool) []models.Item
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbeddingModel() string
}

// Publisher receives stories written by a run.
type Publisher interface {
	PublishStories(ctx context.Context, stories []models.Story) error
}

// Archiver stores run reports.
type Archiver interface {
	ArchiveRun(ctx context.Context, result RunResult) error
}

// ErrorRecorder persists fatal run failures.
type ErrorRecorder interface {
	RecordIngestionError(ctx context.Context, e models.IngestionError) error
}

// MetricsRecorder receives run and item counts.
type MetricsRecorder interface {
	ObserveRun(source, status string, duration time.Duration)
	ObserveItems(source, outcome string, n int)
}

// TransitionFunc observes state changes of a run.
type TransitionFunc func(runID, adapter string, from, to State)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTagger enables tagging and embeddings.
func WithTagger(t Tagger) Option {
	return func(o *Orchestrator) { o.tagger = t }
}

// WithPublisher publishes written stories after each run.
func WithPublisher(p Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

// WithArchiver archives every run report.
func WithArchiver(a Archiver) Option {
	return func(o *Orchestrator) { o.archiver = a }
}

// WithErrorRecorder records fatal run failures.
func WithErrorRecorder(r ErrorRecorder) Option {
	return func(o *Orchestrator) { o.errorLog = r }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// OnTransition registers a state observer.
func OnTransition(fn TransitionFunc) Option {
	return func(o *Orchestrator) { o.onTransition = fn }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator runs adapters end to end. It is the only component that
// knows about adapters, validation, tagging and the store at once.
type Orchestrator struct {
	adapters AdapterSource
	store    Store
	gate     validation.Gate
	logger   *slog.Logger
	config   PipelineConfig

	tagger       Tagger
	publisher    Publisher
	archiver     Archiver
	errorLog     ErrorRecorder
	metrics      MetricsRecorder
	onTransition TransitionFunc
	now          func() time.Time
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(registry AdapterSource, store Store, logger *slog.Logger, config PipelineConfig, opts ...Option) *Orchestrator {
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}
	if config.ConcurrentSources <= 0 {
		config.ConcurrentSources = 1
	}
	o := &Orchestrator{
		adapters: registry,
		store:    store,
		gate:     validation.New(config.EnableValidation),
		logger:   logger,
		config:   config,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Config returns the pipeline configuration.
func (o *Orchestrator) Config() PipelineConfig {
	return o.config
}

type run struct {
	o       *Orchestrator
	res     RunResult
	adapter adapters.Adapter
	logger  *slog.Logger
	stories []models.Story
}

func (r *run) transition(to State) {
	from := r.res.State
	r.res.State = to
	r.logger.Debug("run state changed", "from", from.String(), "to", to.String())
	if r.o.onTransition != nil {
		r.o.onTransition(r.res.RunID, r.res.Adapter, from, to)
	}
}

func (r *run) fail(kind models.IngestionErrorType, err error) RunResult {
	r.res.Success = false
	r.res.Error = err.Error()
	r.res.ErrorType = string(kind)
	r.res.err = err
	r.transition(StateFailed)
	return r.res
}

// RunSource ingests one adapter. Failures are reported in the result, never
// returned as a Go error.
func (o *Orchestrator) RunSource(ctx context.Context, key string) RunResult {
	r := &run{
		o: o,
		res: RunResult{
			RunID:     uuid.New().String(),
			Adapter:   key,
			State:     StateIdle,
			StartedAt: o.now(),
			Invalid:   []validation.Invalid{},
		},
	}
	r.logger = o.logger.With("adapter", key, "run_id", r.res.RunID)

	res := o.execute(ctx, r)
	res.Duration = o.now().Sub(res.StartedAt)
	o.finish(ctx, r, res)
	return res
}

func (o *Orchestrator) execute(ctx context.Context, r *run) RunResult {
	adapter, ok := o.adapters.Get(r.res.Adapter)
	if !ok {
		return r.fail(models.ErrorTypeSourceNotFound, fmt.Errorf("%w: %s", ErrUnknownAdapter, r.res.Adapter))
	}
	r.adapter = adapter
	r.res.SourceName = adapter.Source().Name
	r.logger.Info("starting ingestion", "source", r.res.SourceName)

	source, err := o.store.FindSourceByName(ctx, r.res.SourceName)
	if err != nil {
		kind := models.ErrorTypeFetchFailed
		if errors.Is(err, ErrSourceNotFound) {
			kind = models.ErrorTypeSourceNotFound
		}
		return r.fail(kind, fmt.Errorf("resolve source %q: %w", r.res.SourceName, err))
	}
	r.res.SourceID = source.ID

	r.transition(StateFetching)
	items, err := o.fetch(ctx, adapter)
	if err != nil {
		kind := models.ErrorTypeFetchFailed
		if errors.Is(err, context.DeadlineExceeded) || fetch.IsTimeout(err) {
			kind = models.ErrorTypeTimeout
		}
		return r.fail(kind, fmt.Errorf("fetch %s: %w", r.res.Adapter, err))
	}
	r.res.Processed = len(items)
	if len(items) == 0 {
		r.logger.Info("no items returned")
		r.res.Success = true
		r.transition(StateDone)
		return r.res
	}
	r.logger.Info("retrieved items", "count", len(items))

	r.transition(StateValidating)
	checked := o.gate.Validate(items)
	if len(checked.Invalid) > 0 {
		r.res.Invalid = checked.Invalid
		for _, inv := range checked.Invalid {
			r.logger.Warn("invalid item", "title", inv.Item.Title, "url", inv.Item.URL, "issues", inv.Issues)
		}
	}
	if len(checked.Valid) == 0 {
		r.res.Failed = len(checked.Invalid)
		r.res.Coverage = CoverageOf(items)
		return r.fail(models.ErrorTypeNoValidItems, ErrNoValidItems)
	}

	r.transition(StateEnriching)
	enriched := o.enrich(ctx, r, checked.Valid)
	r.res.Coverage = CoverageOf(enriched)
	r.logger.Info("metadata coverage",
		"summary_pct", r.res.Coverage.Percent(r.res.Coverage.Summary),
		"author_pct", r.res.Coverage.Percent(r.res.Coverage.Author),
		"image_pct", r.res.Coverage.Percent(r.res.Coverage.Image),
		"category_pct", r.res.Coverage.Percent(r.res.Coverage.Category),
		"embedding_pct", r.res.Coverage.Percent(r.res.Coverage.Embedding))

	r.transition(StatePersisting)
	o.persist(ctx, r, enriched)
	r.res.Failed += len(checked.Invalid)

	r.res.Success = true
	r.transition(StateDone)
	r.logger.Info("ingestion complete",
		"succeeded", r.res.Succeeded,
		"failed", r.res.Failed,
		"skipped", r.res.Skipped)
	return r.res
}

func (o *Orchestrator) fetch(ctx context.Context, adapter adapters.Adapter) ([]models.Item, error) {
	if o.config.FetchTimeout <= 0 {
		return adapter.FetchAndParse(ctx)
	}
	fetchCtx, cancel := context.WithTimeout(ctx, o.config.FetchTimeout)
	defer cancel()
	return adapter.FetchAndParse(fetchCtx)
}

// enrich tags items, or embeds them directly when tagging is off. Failures
// degrade items and never fail the run.
func (o *Orchestrator) enrich(ctx context.Context, r *run, items []models.Item) []models.Item {
	if o.tagger == nil {
		return items
	}
	if o.config.EnableTagging {
		return o.tagger.TagBatch(ctx, items, r.res.Adapter, o.config.GenerateEmbeddings)
	}
	if !o.config.GenerateEmbeddings {
		return items
	}

	out := make([]models.Item, len(items))
	copy(out, items)
	for i := range out {
		vec, err := o.tagger.Embed(ctx, out[i].Content)
		if err != nil {
			r.logger.Warn("embedding failed", "title", out[i].Title, "error", err)
			continue
		}
		out[i].Embedding = vec
	}
	return out
}

// persist upserts items in batches. Within a batch, ids already stored for
// the source take the update path; otherwise a url already stored under any
// source makes the item a skip.
func (o *Orchestrator) persist(ctx context.Context, r *run, items []models.Item) {
	model := ""
	if o.tagger != nil {
		model = o.tagger.EmbeddingModel()
	}
	written := 0

	for start := 0; start < len(items); start += o.config.BatchSize {
		end := start + o.config.BatchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]
		known, taken := o.lookupExisting(ctx, r, batch)

		for i, item := range batch {
			if err := ctx.Err(); err != nil {
				r.res.Failed += len(items) - start - i
				r.logger.Warn("persistence interrupted", "error", err)
				return
			}

			if _, ok := known[item.ExternalID]; !ok {
				if _, dup := taken[item.URL]; dup {
					r.res.Skipped++
					r.logger.Debug("url already stored", "url", item.URL)
					continue
				}
			}

			if written > 0 && o.config.PersistDelay > 0 {
				if err := sleep(ctx, o.config.PersistDelay); err != nil {
					r.res.Failed += len(items) - start - i
					return
				}
			}
			written++

			story := models.NewStory(r.res.SourceID, item, model, o.now())
			outcome, err := o.store.UpsertStory(ctx, story)
			switch {
			case errors.Is(err, ErrConflict):
				r.res.Skipped++
				r.logger.Debug("story conflict", "url", item.URL, "error", err)
			case err != nil:
				r.res.Failed++
				r.logger.Error("failed to upsert story", "title", item.Title, "error", err)
			case outcome == Unchanged:
				r.res.Skipped++
			default:
				r.res.Succeeded++
				r.stories = append(r.stories, story)
			}
		}
	}
}

func (o *Orchestrator) lookupExisting(ctx context.Context, r *run, batch []models.Item) (known, taken map[string]struct{}) {
	ids := make([]string, 0, len(batch))
	for _, it := range batch {
		ids = append(ids, it.ExternalID)
	}
	known, err := o.store.QueryExisting(ctx, r.res.SourceID, ids)
	if err != nil {
		r.logger.Warn("existing id lookup failed", "error", err)
		known = map[string]struct{}{}
	}

	urls := make([]string, 0, len(batch))
	for _, it := range batch {
		if _, ok := known[it.ExternalID]; !ok {
			urls = append(urls, it.URL)
		}
	}
	taken = map[string]struct{}{}
	if len(urls) > 0 {
		if taken, err = o.store.QueryExistingURLs(ctx, urls); err != nil {
			r.logger.Warn("existing url lookup failed", "error", err)
			taken = map[string]struct{}{}
		}
	}
	return known, taken
}

// finish runs the post-run hooks. Hook failures are logged only.
func (o *Orchestrator) finish(ctx context.Context, r *run, res RunResult) {
	status := "success"
	if !res.Success {
		status = "failed"
		r.logger.Error("ingestion failed", "error", res.Error, "error_type", res.ErrorType)
	}

	if o.metrics != nil {
		o.metrics.ObserveRun(res.Adapter, status, res.Duration)
		o.metrics.ObserveItems(res.Adapter, "succeeded", res.Succeeded)
		o.metrics.ObserveItems(res.Adapter, "failed", res.Failed)
		o.metrics.ObserveItems(res.Adapter, "skipped", res.Skipped)
		o.metrics.ObserveItems(res.Adapter, "invalid", len(res.Invalid))
	}

	if o.publisher != nil && len(r.stories) > 0 {
		if err := o.publisher.PublishStories(ctx, r.stories); err != nil {
			r.logger.Warn("failed to publish stories", "count", len(r.stories), "error", err)
		}
	}

	if o.archiver != nil {
		if err := o.archiver.ArchiveRun(ctx, res); err != nil {
			r.logger.Warn("failed to archive run", "error", err)
		}
	}

	if o.errorLog != nil && !res.Success {
		if err := o.errorLog.RecordIngestionError(ctx, o.ingestionError(r, res)); err != nil {
			r.logger.Warn("failed to record ingestion error", "error", err)
		}
	}
}

func (o *Orchestrator) ingestionError(r *run, res RunResult) models.IngestionError {
	endpoint := ""
	if r.adapter != nil {
		endpoint = r.adapter.Source().EndpointURL
	}
	meta, _ := json.Marshal(map[string]any{
		"run_id":          res.RunID,
		"source_name":     res.SourceName,
		"items_processed": res.Processed,
		"items_invalid":   len(res.Invalid),
	})
	return models.IngestionError{
		ID:        uuid.New().String(),
		Source:    res.Adapter,
		ErrorType: res.ErrorType,
		URL:       endpoint,
		ErrorMsg:  res.Error,
		Metadata:  string(meta),
		CreatedAt: o.now(),
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
