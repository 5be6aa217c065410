// Package config assembles genecatalog settings from defaults, an optional
// YAML file, and GENECATALOG_* environment variables. Environment variables
// take precedence over the file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"genecatalog/internal/blob"
	"genecatalog/internal/core"
	"genecatalog/internal/infra/source/file"
	"genecatalog/internal/infra/source/service"
	"genecatalog/pkg/domain"
)

// EnvConfigPath names the variable consulted when Load gets an empty path.
const EnvConfigPath = "GENECATALOG_CONFIG"

// Config is the full genecatalog configuration.
type Config struct {
	Sources        SourcesConfig       `yaml:"sources"`
	Blob           BlobConfig          `yaml:"blob"`
	Storage        StorageConfig       `yaml:"storage"`
	PreferencePath string              `yaml:"preference_path"`
	Observability  ObservabilityConfig `yaml:"observability"`
	// ListenAddr is empty when each binary should use its own default.
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`
}

// SourcesConfig configures the gene sources.
type SourcesConfig struct {
	Default domain.SourceID `yaml:"default"`
	File    FileConfig      `yaml:"file"`
	Service ServiceConfig   `yaml:"service"`
}

// FileConfig configures the file-backed source.
type FileConfig struct {
	Key string `yaml:"key"`
}

// ServiceConfig configures the service-backed source.
type ServiceConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BaseURL       string        `yaml:"base_url"`
	PageSize      int           `yaml:"page_size"`
	PageRate      float64       `yaml:"page_rate"`
	HealthTimeout time.Duration `yaml:"health_timeout"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
}

// BlobConfig selects the store holding the gene file.
type BlobConfig struct {
	Driver blob.Driver `yaml:"driver"`
	FSRoot string      `yaml:"fs_root"`
	S3     S3Config    `yaml:"s3"`
}

// S3Config parameterizes the s3 blob driver.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// StorageConfig selects the listing service's gene store.
type StorageConfig struct {
	Driver      core.StorageDriver `yaml:"driver"`
	SQLitePath  string             `yaml:"sqlite_path"`
	PostgresDSN string             `yaml:"postgres_dsn"`
}

// ObservabilityConfig selects coordinator metrics and span output.
type ObservabilityConfig struct {
	Metrics core.MetricsBackend `yaml:"metrics"`
	// TraceFile receives JSON span lines; "-" is stderr, empty disables tracing.
	TraceFile string `yaml:"trace_file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Sources: SourcesConfig{
			Default: domain.SourceFile,
			File:    FileConfig{Key: file.DefaultKey},
			Service: ServiceConfig{
				Enabled:       true,
				BaseURL:       service.DefaultBaseURL,
				PageSize:      service.DefaultPageSize,
				HealthTimeout: service.DefaultHealthTimeout,
				FetchTimeout:  service.DefaultFetchTimeout,
			},
		},
		Blob:     BlobConfig{Driver: blob.DriverFilesystem, FSRoot: "./data"},
		Storage:       StorageConfig{Driver: core.StorageSQLite, SQLitePath: "genecatalog.db"},
		Observability: ObservabilityConfig{Metrics: core.MetricsPrometheus},
		LogLevel:      "info",
	}
}

// Load builds a Config from defaults, the YAML file at path (or at
// $GENECATALOG_CONFIG when path is empty), and the environment, then
// validates it. No file is read when both are empty.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var errs []string
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = f
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = d
		}
	}

	source := string(cfg.Sources.Default)
	str("GENECATALOG_DATA_SOURCE", &source)
	cfg.Sources.Default = domain.SourceID(source)
	str("GENECATALOG_GENES_KEY", &cfg.Sources.File.Key)
	str("GENECATALOG_API_BASE_URL", &cfg.Sources.Service.BaseURL)
	boolean("GENECATALOG_SERVICE_ENABLED", &cfg.Sources.Service.Enabled)
	integer("GENECATALOG_PAGE_SIZE", &cfg.Sources.Service.PageSize)
	float("GENECATALOG_PAGE_RATE", &cfg.Sources.Service.PageRate)
	duration("GENECATALOG_HEALTH_TIMEOUT", &cfg.Sources.Service.HealthTimeout)
	duration("GENECATALOG_FETCH_TIMEOUT", &cfg.Sources.Service.FetchTimeout)

	blobDriver := string(cfg.Blob.Driver)
	str("GENECATALOG_BLOB_DRIVER", &blobDriver)
	cfg.Blob.Driver = blob.Driver(blobDriver)
	str("GENECATALOG_BLOB_FS_ROOT", &cfg.Blob.FSRoot)
	str("GENECATALOG_BLOB_S3_BUCKET", &cfg.Blob.S3.Bucket)
	str("GENECATALOG_BLOB_S3_REGION", &cfg.Blob.S3.Region)
	str("GENECATALOG_BLOB_S3_ENDPOINT", &cfg.Blob.S3.Endpoint)
	boolean("GENECATALOG_BLOB_S3_PATH_STYLE", &cfg.Blob.S3.PathStyle)

	storageDriver := string(cfg.Storage.Driver)
	str("GENECATALOG_STORAGE_DRIVER", &storageDriver)
	cfg.Storage.Driver = core.StorageDriver(storageDriver)
	str("GENECATALOG_SQLITE_PATH", &cfg.Storage.SQLitePath)
	str("GENECATALOG_POSTGRES_DSN", &cfg.Storage.PostgresDSN)

	str("GENECATALOG_PREFERENCE_PATH", &cfg.PreferencePath)
	str("GENECATALOG_LISTEN_ADDR", &cfg.ListenAddr)
	str("GENECATALOG_LOG_LEVEL", &cfg.LogLevel)
	metrics := string(cfg.Observability.Metrics)
	str("GENECATALOG_METRICS", &metrics)
	cfg.Observability.Metrics = core.MetricsBackend(metrics)
	str("GENECATALOG_TRACE_FILE", &cfg.Observability.TraceFile)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Validate rejects unknown drivers and sources and non-positive limits.
func (c Config) Validate() error {
	switch c.Sources.Default {
	case domain.SourceFile, domain.SourceService:
	default:
		return fmt.Errorf("unknown data source %q", c.Sources.Default)
	}
	svc := c.Sources.Service
	if svc.HealthTimeout <= 0 || svc.FetchTimeout <= 0 {
		return fmt.Errorf("service timeouts must be positive")
	}
	if svc.PageSize <= 0 || svc.PageSize > service.MaxPageSize {
		return fmt.Errorf("page size must be within 1..%d", service.MaxPageSize)
	}
	if svc.PageRate < 0 {
		return fmt.Errorf("page rate must not be negative")
	}
	if c.Sources.File.Key == "" {
		return fmt.Errorf("genes key required")
	}
	switch c.Blob.Driver {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			return fmt.Errorf("GENECATALOG_BLOB_S3_BUCKET required for s3 driver")
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	switch c.Storage.Driver {
	case core.StorageMemory, core.StorageSQLite, core.StoragePostgres:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Observability.Metrics {
	case core.MetricsPrometheus, core.MetricsExpvar:
	default:
		return fmt.Errorf("unknown metrics backend %q", c.Observability.Metrics)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return lvl, nil
}

// BlobStoreConfig maps the blob section onto blob.Config.
func (c Config) BlobStoreConfig() blob.Config {
	return blob.Config{
		Driver:      c.Blob.Driver,
		FSRoot:      c.Blob.FSRoot,
		S3Bucket:    c.Blob.S3.Bucket,
		S3Region:    c.Blob.S3.Region,
		S3Endpoint:  c.Blob.S3.Endpoint,
		S3PathStyle: c.Blob.S3.PathStyle,
	}
}

// GeneStoreConfig maps the storage section onto core.StorageConfig.
func (c Config) GeneStoreConfig() core.StorageConfig {
	return core.StorageConfig{
		Driver:      c.Storage.Driver,
		SQLitePath:  c.Storage.SQLitePath,
		PostgresDSN: c.Storage.PostgresDSN,
	}
}

// TelemetryConfig maps the observability section onto core.ObservabilityConfig.
func (c Config) TelemetryConfig() core.ObservabilityConfig {
	return core.ObservabilityConfig{
		Metrics:   c.Observability.Metrics,
		TraceFile: c.Observability.TraceFile,
	}
}
