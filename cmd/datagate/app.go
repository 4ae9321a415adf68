package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/datagate/datagate/internal/adapters"
	"github.com/datagate/datagate/internal/archive"
	"github.com/datagate/datagate/internal/config"
	"github.com/datagate/datagate/internal/database"
	"github.com/datagate/datagate/internal/fetch"
	"github.com/datagate/datagate/internal/ingestion"
	"github.com/datagate/datagate/internal/metrics"
	"github.com/datagate/datagate/internal/publish"
	"github.com/datagate/datagate/internal/tagging"
	"github.com/prometheus/client_golang/prometheus"
)

// pipelineFlags are the command-line overrides shared by run, all and schedule.
type pipelineFlags struct {
	noEmbeddings bool
	noTagging    bool
	noValidation bool
	fast         bool
	dryRun       bool
}

func (f pipelineFlags) apply(p config.PipelineConfig) config.PipelineConfig {
	if f.fast {
		p = p.Fast()
	}
	if f.noEmbeddings {
		p.GenerateEmbeddings = false
	}
	if f.noTagging {
		p.EnableTagging = false
	}
	if f.noValidation {
		p.EnableValidation = false
	}
	return p
}

// app holds the wired process dependencies.
type app struct {
	cfg          config.Config
	logger       *slog.Logger
	registry     *adapters.Registry
	orchestrator *ingestion.Orchestrator
	prom         *prometheus.Registry
	httpMetrics  *metrics.HTTPCollector
	db           *sql.DB

	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to release resource", "error", err)
		}
	}
}

// health reports database connectivity when a database is in use.
func (a *app) health(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	return database.HealthCheck(ctx, a.db)
}

func newRegistry(logger *slog.Logger, observer fetch.AttemptObserver) *adapters.Registry {
	opts := []fetch.Option{fetch.WithLogger(logger)}
	if observer != nil {
		opts = append(opts, fetch.WithObserver(observer))
	}
	return adapters.DefaultRegistry(fetch.NewClient(opts...), logger, adapters.DefaultSourceOptions())
}

func toIngestionConfig(p config.PipelineConfig) ingestion.PipelineConfig {
	return ingestion.PipelineConfig{
		GenerateEmbeddings: p.GenerateEmbeddings,
		EnableTagging:      p.EnableTagging,
		EnableValidation:   p.EnableValidation,
		BatchSize:          p.BatchSize,
		FetchTimeout:       p.FetchTimeout,
		ConcurrentSources:  p.ConcurrentSources,
		PersistDelay:       p.PersistDelay,
	}
}

// buildApp wires storage, enrichment and the optional integrations.
func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger, flags pipelineFlags) (a *app, err error) {
	a = &app{cfg: cfg, logger: logger, prom: metrics.NewRegistry()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	pipelineMetrics, err := metrics.NewPipelineCollector(a.prom)
	if err != nil {
		return nil, fmt.Errorf("register pipeline metrics: %w", err)
	}
	if a.httpMetrics, err = metrics.NewHTTPCollector(a.prom); err != nil {
		return nil, fmt.Errorf("register http metrics: %w", err)
	}

	a.registry = newRegistry(logger, pipelineMetrics)
	pipeline := flags.apply(cfg.Pipeline)

	opts := []ingestion.Option{ingestion.WithMetrics(pipelineMetrics)}

	var store ingestion.Store
	if flags.dryRun {
		mem := ingestion.NewMemoryStore()
		for _, src := range a.registry.Sources() {
			mem.RegisterSource(src)
		}
		store = mem
		logger.Info("dry run, stories are kept in memory")
	} else {
		if a.db, err = openDatabase(ctx, cfg.Database, logger); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, a.db.Close)
		pg := database.NewPostgresStore(a.db)
		if err = pg.EnsureSources(ctx, a.registry.Sources()); err != nil {
			return nil, fmt.Errorf("register sources: %w", err)
		}
		store = pg
		opts = append(opts, ingestion.WithErrorRecorder(database.NewIngestionErrorRepository(a.db)))
	}

	if pipeline.EnableTagging || pipeline.GenerateEmbeddings {
		engine, embeddings, err := a.buildTagger(ctx, pipelineMetrics, pipeline.GenerateEmbeddings)
		if err != nil {
			return nil, err
		}
		pipeline.GenerateEmbeddings = embeddings
		opts = append(opts, ingestion.WithTagger(engine))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		pub, err := publish.NewKafkaPublisher(publish.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic}, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pub.Close)
		opts = append(opts, ingestion.WithPublisher(pub))
		logger.Info("publishing story events", "topic", cfg.Kafka.Topic)
	}

	if cfg.Archive.Bucket != "" {
		arc, err := archive.NewS3Archiver(ctx, archive.Config{
			Bucket: cfg.Archive.Bucket,
			Prefix: cfg.Archive.Prefix,
			Region: cfg.Archive.Region,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, ingestion.WithArchiver(arc))
		logger.Info("archiving run reports", "bucket", cfg.Archive.Bucket, "prefix", cfg.Archive.Prefix)
	}

	a.orchestrator = ingestion.NewOrchestrator(a.registry, store, logger, toIngestionConfig(pipeline), opts...)
	return a, nil
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, errors.New("DATABASE_URL or INSTANCE_CONNECTION_NAME is required (use --dry-run to keep stories in memory)")
	}
	logger.Info("connecting to database", "url", config.RedactURL(cfg.URL))
	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.URL
	dbCfg.MaxConnections = cfg.MaxConnections
	return database.Connect(ctx, dbCfg)
}

// buildTagger returns the engine and whether embeddings can be generated.
func (a *app) buildTagger(ctx context.Context, observer tagging.Observer, wantEmbeddings bool) (*tagging.Engine, bool, error) {
	rules, err := tagging.ResolveRules(a.cfg.Tagging.RulesPath)
	if err != nil {
		return nil, false, fmt.Errorf("load tag rules: %w", err)
	}

	var embedder tagging.Embedder
	switch {
	case !wantEmbeddings:
	case a.cfg.OpenAI.APIKey == "":
		a.logger.Warn("OPENAI_API_KEY not set, embeddings and semantic tags disabled")
		wantEmbeddings = false
	default:
		openaiEmbedder, err := tagging.NewOpenAIEmbedder(a.cfg.OpenAI.APIKey, a.cfg.OpenAI.EmbeddingModel)
		if err != nil {
			return nil, false, err
		}
		embedder = openaiEmbedder
		if a.cfg.Redis.Addr != "" {
			client, err := tagging.NewRedisClient(ctx, tagging.RedisOptions{
				Addr:     a.cfg.Redis.Addr,
				Password: a.cfg.Redis.Password,
				DB:       a.cfg.Redis.DB,
			})
			if err != nil {
				a.logger.Warn("embedding cache unavailable", "error", err)
			} else {
				a.closers = append(a.closers, client.Close)
				embedder = tagging.NewCachedEmbedder(openaiEmbedder, client, a.cfg.Redis.CacheTTL, a.logger)
			}
		}
	}

	engine, err := tagging.NewEngine(rules, embedder, a.logger,
		tagging.WithSemanticThreshold(a.cfg.Tagging.SemanticThreshold),
		tagging.WithSemanticMaxTags(a.cfg.Tagging.SemanticMaxTags),
		tagging.WithObserver(observer),
	)
	if err != nil {
		return nil, false, err
	}
	return engine, wantEmbeddings, nil
}
