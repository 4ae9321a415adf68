package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Server   ServerConfig
	Logging  LoggingConfig
	Database DatabaseConfig
	Pipeline PipelineConfig
	Tagging  TaggingConfig
	OpenAI   OpenAIConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Archive  ArchiveConfig
}

// ServerConfig holds health server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// DatabaseConfig locates the Postgres store.
type DatabaseConfig struct {
	URL            string
	MaxConnections int
	MigrationsDir  string
}

// PipelineConfig mirrors ingestion.PipelineConfig.
type PipelineConfig struct {
	GenerateEmbeddings bool
	EnableTagging      bool
	EnableValidation   bool
	BatchSize          int
	FetchTimeout       time.Duration
	ConcurrentSources  int
	PersistDelay       time.Duration
}

// TaggingConfig controls the rule document and semantic matching. A zero
// SemanticThreshold defers to the rule document.
type TaggingConfig struct {
	RulesPath         string
	SemanticThreshold float64
	SemanticMaxTags   int
}

// OpenAIConfig holds embedding credentials.
type OpenAIConfig struct {
	APIKey         string
	EmbeddingModel string
}

// RedisConfig enables the embedding cache when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// KafkaConfig enables story events when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// ArchiveConfig enables run report archiving when Bucket is set.
type ArchiveConfig struct {
	Bucket string
	Prefix string
	Region string
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "json"

	defaultDBMaxConnections = 10
	defaultMigrationsDir    = "./migrations"

	defaultBatchSize         = 50
	defaultFetchTimeout      = 300 * time.Second
	defaultConcurrentSources = 4
	defaultPersistDelay      = 50 * time.Millisecond

	defaultSemanticThreshold = 0 // rule document's confidence_threshold
	defaultSemanticMaxTags   = 5

	defaultEmbeddingModel = "text-embedding-3-small"
	defaultCacheTTL       = 7 * 24 * time.Hour
	defaultStoriesTopic   = "datagate.stories"
	defaultArchivePrefix  = "ingestion-runs"
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided. Malformed values are errors.
func Load() (Config, error) {
	// Cloud Run sets PORT, but allow SERVER_PORT override for local dev
	port := getEnv("PORT", "")
	if port == "" {
		port = getEnv("SERVER_PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Database: DatabaseConfig{
			MaxConnections: defaultDBMaxConnections,
			MigrationsDir:  getEnv("MIGRATIONS_DIR", defaultMigrationsDir),
		},
		Pipeline: PipelineConfig{
			GenerateEmbeddings: true,
			EnableTagging:      true,
			EnableValidation:   true,
			BatchSize:          defaultBatchSize,
			FetchTimeout:       defaultFetchTimeout,
			ConcurrentSources:  defaultConcurrentSources,
			PersistDelay:       defaultPersistDelay,
		},
		Tagging: TaggingConfig{
			RulesPath:         os.Getenv("TAG_RULES_PATH"),
			SemanticThreshold: defaultSemanticThreshold,
			SemanticMaxTags:   defaultSemanticMaxTags,
		},
		OpenAI: OpenAIConfig{
			APIKey:         os.Getenv("OPENAI_API_KEY"),
			EmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", defaultEmbeddingModel),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASS"),
			CacheTTL: defaultCacheTTL,
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_STORIES_TOPIC", defaultStoriesTopic),
		},
		Archive: ArchiveConfig{
			Bucket: os.Getenv("ARCHIVE_S3_BUCKET"),
			Prefix: getEnv("ARCHIVE_S3_PREFIX", defaultArchivePrefix),
			Region: os.Getenv("AWS_REGION"),
		},
	}

	steps := []func() error{
		func() (err error) {
			cfg.Database.URL, err = databaseURL()
			return err
		},
		func() error { return envSeconds("SERVER_READ_TIMEOUT_SECONDS", &cfg.Server.ReadTimeout) },
		func() error { return envSeconds("SERVER_WRITE_TIMEOUT_SECONDS", &cfg.Server.WriteTimeout) },
		func() error { return envSeconds("SERVER_SHUTDOWN_TIMEOUT_SECONDS", &cfg.Server.ShutdownTimeout) },
		func() error { return envPositiveInt("DB_MAX_CONNECTIONS", &cfg.Database.MaxConnections) },
		func() error { return envBool("INGEST_GENERATE_EMBEDDINGS", &cfg.Pipeline.GenerateEmbeddings) },
		func() error { return envBool("INGEST_ENABLE_TAGGING", &cfg.Pipeline.EnableTagging) },
		func() error { return envBool("INGEST_ENABLE_VALIDATION", &cfg.Pipeline.EnableValidation) },
		func() error { return envPositiveInt("INGEST_BATCH_SIZE", &cfg.Pipeline.BatchSize) },
		func() error { return envSeconds("INGEST_FETCH_TIMEOUT_SECONDS", &cfg.Pipeline.FetchTimeout) },
		func() error { return envPositiveInt("INGEST_CONCURRENT_SOURCES", &cfg.Pipeline.ConcurrentSources) },
		func() error { return envMillis("INGEST_PERSIST_DELAY_MS", &cfg.Pipeline.PersistDelay) },
		func() error { return envUnitFloat("SEMANTIC_THRESHOLD", &cfg.Tagging.SemanticThreshold) },
		func() error { return envPositiveInt("SEMANTIC_MAX_TAGS", &cfg.Tagging.SemanticMaxTags) },
		func() error { return envSeconds("EMBEDDING_CACHE_TTL_SECONDS", &cfg.Redis.CacheTTL) },
		func() error {
			v := os.Getenv("REDIS_DB")
			if v == "" {
				return nil
			}
			db, err := strconv.Atoi(v)
			if err != nil || db < 0 {
				return fmt.Errorf("invalid REDIS_DB: must be a non-negative integer")
			}
			cfg.Redis.DB = db
			return nil
		},
		func() error {
			v := os.Getenv("LOG_LEVEL")
			if v == "" {
				return nil
			}
			level, err := parseLogLevel(v)
			if err != nil {
				return fmt.Errorf("invalid LOG_LEVEL: %w", err)
			}
			cfg.Logging.Level = level
			return nil
		},
		func() error {
			switch v := os.Getenv("LOG_FORMAT"); v {
			case "":
			case "json", "text":
				cfg.Logging.Format = v
			default:
				return fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
			}
			return nil
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

// Fast disables embeddings and tagging.
func (p PipelineConfig) Fast() PipelineConfig {
	p.GenerateEmbeddings = false
	p.EnableTagging = false
	return p
}

func envSeconds(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := parseSeconds(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func envMillis(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms < 0 {
		return fmt.Errorf("invalid %s: must be a non-negative integer", key)
	}
	*dst = time.Duration(ms) * time.Millisecond
	return nil
}

func envPositiveInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	*dst = n
	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: must be a boolean", key)
	}
	*dst = b
	return nil
}

func envUnitFloat(key string, dst *float64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f > 1 {
		return fmt.Errorf("invalid %s: must be a number between 0 and 1", key)
	}
	*dst = f
	return nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
