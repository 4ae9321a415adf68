// Command datagate ingests AI and tech news sources into the story store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/datagate/datagate/internal/config"
	"github.com/datagate/datagate/internal/database"
	"github.com/datagate/datagate/internal/ingestion"
	"github.com/datagate/datagate/internal/logging"
	"github.com/datagate/datagate/internal/metrics"
	"github.com/datagate/datagate/internal/scheduler"
	"github.com/datagate/datagate/internal/server"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var errRunFailed = errors.New("one or more sources failed")

func main() {
	// .env.local wins over .env; neither overrides the real environment.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var flags pipelineFlags

	cmd := &cobra.Command{
		Use:           "datagate",
		Short:         "Ingest AI and tech news sources",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVar(&flags.noEmbeddings, "no-embeddings", false, "Skip embedding generation and semantic tags")
	cmd.PersistentFlags().BoolVar(&flags.noTagging, "no-tagging", false, "Skip tagging")
	cmd.PersistentFlags().BoolVar(&flags.noValidation, "no-validation", false, "Skip the validation gate")
	cmd.PersistentFlags().BoolVar(&flags.fast, "fast", false, "Skip embeddings and tagging")
	cmd.PersistentFlags().BoolVar(&flags.dryRun, "dry-run", false, "Keep stories in memory instead of Postgres")

	cmd.AddCommand(
		runCmd(&flags),
		allCmd(&flags),
		listCmd(),
		scheduleCmd(&flags),
		migrateCmd(),
	)
	return cmd
}

// setup loads configuration and the logger for a command.
func setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

func runCmd(flags *pipelineFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "run <adapter>",
		Short: "Ingest a single source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg, logger, *flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, ok := a.registry.Get(args[0]); !ok {
				return fmt.Errorf("unknown adapter %q (see 'datagate list')", args[0])
			}
			res := a.orchestrator.RunSource(cmd.Context(), args[0])
			if err := writeResults(cmd.OutOrStdout(), []ingestion.RunResult{res}, asJSON); err != nil {
				return err
			}
			if !res.Success {
				return errRunFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run result as JSON")
	return cmd
}

func allCmd(flags *pipelineFlags) *cobra.Command {
	var (
		parallel    bool
		stopOnError bool
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "all [adapter...]",
		Short: "Ingest every source, or the listed ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg, logger, *flags)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, key := range args {
				if _, ok := a.registry.Get(key); !ok {
					return fmt.Errorf("unknown adapter %q (see 'datagate list')", key)
				}
			}

			results, err := a.orchestrator.RunAll(cmd.Context(), args, ingestion.RunOptions{
				Parallel:        parallel,
				ContinueOnError: !stopOnError,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(struct {
					Results []ingestion.RunResult `json:"results"`
					Summary ingestion.Summary     `json:"summary"`
				}{results, ingestion.Summarize(results)})
			}
			if err := writeResults(cmd.OutOrStdout(), results, false); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSummary(ingestion.Summarize(results)))

			for _, r := range results {
				if !r.Success {
					return errRunFailed
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&parallel, "parallel", false, "Run sources concurrently")
	cmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "Stop a sequential run at the first failed source")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results and summary as JSON")
	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered adapters",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			registry := newRegistry(logger, nil)
			_, err := io.WriteString(cmd.OutOrStdout(), renderAdapterList(registry))
			return err
		},
	}
}

func scheduleCmd(flags *pipelineFlags) *cobra.Command {
	var runNow bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Poll every source on its fetch frequency and serve /healthz and /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := buildApp(ctx, cfg, logger, *flags)
			if err != nil {
				return err
			}
			defer a.Close()

			sched := scheduler.New(a.orchestrator, logger)
			for _, key := range a.registry.Keys() {
				adapter, _ := a.registry.Get(key)
				if err := sched.Add(key, adapter.Source().Schedule()); err != nil {
					return err
				}
			}

			routes := server.Routes{
				Health:     a.health,
				Status:     func() any { return sched.Snapshot() },
				Metrics:    metrics.Handler(a.prom),
				Instrument: a.httpMetrics.InstrumentHandler,
			}
			if a.db != nil {
				routes.Errors = database.NewIngestionErrorRepository(a.db)
			}
			handler := server.NewHandler(routes, logger)
			srv := server.New(cfg.Server, logger, handler)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			sched.Start(ctx)
			if runNow {
				for _, key := range a.registry.Keys() {
					sched.Trigger(key)
				}
			}

			select {
			case <-ctx.Done():
			case err = <-errCh:
			}

			sched.Stop(cfg.Pipeline.FetchTimeout)
			if shutdownErr := srv.Shutdown(context.Background()); shutdownErr != nil {
				logger.Warn("server shutdown failed", "error", shutdownErr)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&runNow, "run-now", false, "Ingest every source once at startup")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and register sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			db, err := openDatabase(ctx, cfg.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if _, err := database.RunMigrations(ctx, db, cfg.Database.MigrationsDir, logger); err != nil {
				return err
			}
			registry := newRegistry(logger, nil)
			if err := database.NewPostgresStore(db).EnsureSources(ctx, registry.Sources()); err != nil {
				return err
			}
			logger.Info("registered sources", "count", len(registry.Keys()))
			return nil
		},
	}
}
