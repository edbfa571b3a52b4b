// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Storage, Postgres, SQLite, Kafka, Redis, Indexer, Search,
// etc.).
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Backend names accepted by StorageConfig.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendBitmap   = "bitmap"
	BackendRedis    = "redis"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Indexer    IndexerConfig    `yaml:"indexer"`
	Search     SearchConfig     `yaml:"search"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Resilience ResilienceConfig `yaml:"resilience"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// IngestRateLimit caps write requests per client per minute. Zero
	// disables limiting.
	IngestRateLimit int `yaml:"ingestRateLimit"`
	// TrustedProxies lists addresses or CIDR ranges whose X-Forwarded-For
	// header is believed when identifying a client.
	TrustedProxies []string `yaml:"trustedProxies"`
}

// ProxyPrefixes parses TrustedProxies. A bare address is a single-host
// prefix.
func (s ServerConfig) ProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(s.TrustedProxies))
	for _, entry := range s.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if addr, err := netip.ParseAddr(entry); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			return nil, fmt.Errorf("server.trustedProxies: %q is neither an address nor a CIDR range", entry)
		}
		prefixes = append(prefixes, prefix.Masked())
	}
	return prefixes, nil
}

// StorageConfig selects the document store and inverted index backends.
type StorageConfig struct {
	Documents string `yaml:"documents"`
	Index     string `yaml:"index"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// SQLiteConfig holds the location of the local document database.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	DocumentIngest string `yaml:"documentIngest"`
}

// RedisConfig holds Redis connection, index key and caching parameters.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"poolSize"`
	KeyPrefix string        `yaml:"keyPrefix"`
	CacheTTL  time.Duration `yaml:"cacheTTL"`
}

// IndexerConfig controls how the orchestrator fans out work while
// ingesting.
type IndexerConfig struct {
	RegisterConcurrency int  `yaml:"registerConcurrency"`
	BatchConcurrency    int  `yaml:"batchConcurrency"`
	MaxLineBytes        int  `yaml:"maxLineBytes"`
	ConsumeKafka        bool `yaml:"consumeKafka"`
}

// SearchConfig controls query limits.
type SearchConfig struct {
	MaxWords int  `yaml:"maxWords"`
	Cache    bool `yaml:"cache"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// ResilienceConfig holds circuit breaker and startup retry settings for
// network backends.
type ResilienceConfig struct {
	FailureThreshold int           `yaml:"failureThreshold"`
	ResetTimeout     time.Duration `yaml:"resetTimeout"`
	ConnectAttempts  int           `yaml:"connectAttempts"`
	ConnectDelay     time.Duration `yaml:"connectDelay"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error
	switch c.Storage.Documents {
	case BackendMemory, BackendPostgres, BackendSQLite:
	default:
		err = multierror.Append(err, fmt.Errorf("storage.documents: unknown backend %q", c.Storage.Documents))
	}
	switch c.Storage.Index {
	case BackendMemory, BackendBitmap, BackendRedis:
	default:
		err = multierror.Append(err, fmt.Errorf("storage.index: unknown backend %q", c.Storage.Index))
	}
	if c.Storage.Documents == BackendSQLite && c.SQLite.Path == "" {
		err = multierror.Append(err, errors.New("sqlite.path is required for the sqlite document store"))
	}
	if c.Indexer.RegisterConcurrency < 1 {
		err = multierror.Append(err, errors.New("indexer.registerConcurrency must be at least 1"))
	}
	if c.Indexer.BatchConcurrency < 1 {
		err = multierror.Append(err, errors.New("indexer.batchConcurrency must be at least 1"))
	}
	if _, perr := c.Server.ProxyPrefixes(); perr != nil {
		err = multierror.Append(err, perr)
	}
	if c.Search.MaxWords < 1 {
		err = multierror.Append(err, errors.New("search.maxWords must be at least 1"))
	}
	return err
}

// defaultConfig returns a Config that runs entirely in memory.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			Documents: BackendMemory,
			Index:     BackendMemory,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "wordsearch",
			User:            "wordsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		SQLite: SQLiteConfig{
			Path: "data/documents.db",
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "wordsearch-indexer",
			Topics: KafkaTopics{
				DocumentIngest: "document-ingest",
			},
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "ws:",
			CacheTTL:  60 * time.Second,
		},
		Indexer: IndexerConfig{
			RegisterConcurrency: 16,
			BatchConcurrency:    1,
			MaxLineBytes:        1 << 20,
		},
		Search: SearchConfig{
			MaxWords: 64,
			Cache:    true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		Resilience: ResilienceConfig{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
			ConnectAttempts:  5,
			ConnectDelay:     500 * time.Millisecond,
		},
	}
}

// applyEnvOverrides reads WS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	setInt("WS_SERVER_PORT", &cfg.Server.Port)
	setInt("WS_SERVER_INGEST_RATE_LIMIT", &cfg.Server.IngestRateLimit)
	if v := os.Getenv("WS_SERVER_TRUSTED_PROXIES"); v != "" {
		cfg.Server.TrustedProxies = strings.Split(v, ",")
	}
	setString("WS_STORAGE_DOCUMENTS", &cfg.Storage.Documents)
	setString("WS_STORAGE_INDEX", &cfg.Storage.Index)
	setString("WS_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("WS_POSTGRES_PORT", &cfg.Postgres.Port)
	setString("WS_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setString("WS_POSTGRES_USER", &cfg.Postgres.User)
	setString("WS_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setString("WS_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)
	setString("WS_SQLITE_PATH", &cfg.SQLite.Path)
	if v := os.Getenv("WS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	setString("WS_KAFKA_TOPIC", &cfg.Kafka.Topics.DocumentIngest)
	setString("WS_REDIS_ADDR", &cfg.Redis.Addr)
	setString("WS_REDIS_PASSWORD", &cfg.Redis.Password)
	setString("WS_REDIS_KEY_PREFIX", &cfg.Redis.KeyPrefix)
	setInt("WS_INDEXER_REGISTER_CONCURRENCY", &cfg.Indexer.RegisterConcurrency)
	setInt("WS_INDEXER_BATCH_CONCURRENCY", &cfg.Indexer.BatchConcurrency)
	if v := os.Getenv("WS_INDEXER_CONSUME_KAFKA"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Indexer.ConsumeKafka = b
		}
	}
	setString("WS_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("WS_LOGGING_FORMAT", &cfg.Logging.Format)
	setInt("WS_METRICS_PORT", &cfg.Metrics.Port)
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
