package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"genecatalog/internal/blob"
	"genecatalog/internal/core"
	"genecatalog/pkg/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "GENECATALOG_") {
			t.Setenv(key, "")
		}
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "genecatalog.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sources.Default != domain.SourceFile || !cfg.Sources.Service.Enabled {
		t.Fatalf("unexpected source defaults %+v", cfg.Sources)
	}
	svc := cfg.Sources.Service
	if svc.BaseURL != "http://localhost:8000" || svc.PageSize != 1000 || svc.HealthTimeout != 5*time.Second || svc.FetchTimeout != 10*time.Second {
		t.Fatalf("unexpected service defaults %+v", svc)
	}
	if cfg.Sources.File.Key != "genes_human.csv" || cfg.Blob.Driver != blob.DriverFilesystem || cfg.Storage.Driver != core.StorageSQLite {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
sources:
  default: service
  service:
    base_url: http://genes.internal:9000
    page_size: 250
    health_timeout: 2s
blob:
  driver: s3
  s3:
    bucket: gene-tables
    region: eu-west-1
storage:
  driver: postgres
  postgres_dsn: postgres://db/genes
log_level: debug
`)
	t.Setenv("GENECATALOG_PAGE_SIZE", "500")
	t.Setenv("GENECATALOG_BLOB_S3_PATH_STYLE", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	svc := cfg.Sources.Service
	if cfg.Sources.Default != domain.SourceService || svc.BaseURL != "http://genes.internal:9000" {
		t.Fatalf("file values not applied: %+v", cfg.Sources)
	}
	if svc.PageSize != 500 {
		t.Fatalf("env must win over file, page size %d", svc.PageSize)
	}
	if svc.HealthTimeout != 2*time.Second || svc.FetchTimeout != 10*time.Second {
		t.Fatalf("unexpected timeouts %+v", svc)
	}
	bc := cfg.BlobStoreConfig()
	if bc.Driver != blob.DriverS3 || bc.S3Bucket != "gene-tables" || !bc.S3PathStyle {
		t.Fatalf("unexpected blob config %+v", bc)
	}
	if sc := cfg.GeneStoreConfig(); sc.Driver != core.StoragePostgres || sc.PostgresDSN != "postgres://db/genes" {
		t.Fatalf("unexpected storage config %+v", sc)
	}
	if lvl, _ := cfg.SlogLevel(); lvl != slog.LevelDebug {
		t.Fatalf("level = %v", lvl)
	}
}

func TestLoadUsesConfigEnvPath(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfigPath, writeConfig(t, "sources:\n  service:\n    enabled: false\n"))
	t.Setenv("GENECATALOG_DATA_SOURCE", "service")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sources.Service.Enabled || cfg.Sources.Default != domain.SourceService {
		t.Fatalf("unexpected sources %+v", cfg.Sources)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected missing file error")
	}
	if _, err := Load(writeConfig(t, "sources: [")); err == nil {
		t.Fatalf("expected yaml error")
	}

	cases := map[string]string{
		"GENECATALOG_PAGE_SIZE":      "many",
		"GENECATALOG_FETCH_TIMEOUT":  "soon",
		"GENECATALOG_DATA_SOURCE":    "ftp",
		"GENECATALOG_BLOB_DRIVER":    "tape",
		"GENECATALOG_STORAGE_DRIVER": "mongo",
		"GENECATALOG_LOG_LEVEL":      "loud",
		"GENECATALOG_PAGE_RATE":      "-1",
		"GENECATALOG_METRICS":        "statsd",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(""); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	bad := cfg
	bad.Sources.Service.HealthTimeout = 0
	if bad.Validate() == nil {
		t.Fatalf("expected timeout error")
	}
	bad = cfg
	bad.Sources.Service.PageSize = 1001
	if bad.Validate() == nil {
		t.Fatalf("expected page size error")
	}
	bad = cfg
	bad.Blob.Driver = blob.DriverS3
	if bad.Validate() == nil {
		t.Fatalf("expected bucket error")
	}
	bad = cfg
	bad.Sources.File.Key = ""
	if bad.Validate() == nil {
		t.Fatalf("expected key error")
	}
}

func TestObservabilitySettings(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.TelemetryConfig(); got.Metrics != core.MetricsPrometheus || got.TraceFile != "" {
		t.Fatalf("unexpected defaults %+v", got)
	}

	path := writeConfig(t, "observability:\n  trace_file: /var/log/genecatalog/spans.jsonl\n")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.TelemetryConfig(); got.Metrics != core.MetricsPrometheus || got.TraceFile != "/var/log/genecatalog/spans.jsonl" {
		t.Fatalf("file must keep the default backend, got %+v", got)
	}

	t.Setenv("GENECATALOG_METRICS", "expvar")
	t.Setenv("GENECATALOG_TRACE_FILE", "-")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.TelemetryConfig(); got.Metrics != core.MetricsExpvar || got.TraceFile != core.TraceStderr {
		t.Fatalf("environment must win, got %+v", got)
	}
}
