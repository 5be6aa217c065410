package core

import (
	"fmt"

	"genecatalog/internal/infra/persistence/memory"
	"genecatalog/internal/infra/persistence/postgres"
	"genecatalog/internal/infra/persistence/sqlite"
	"genecatalog/pkg/domain"
)

// StorageDriver identifies a concrete gene store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageConfig selects the listing service's gene store.
//
//	GENECATALOG_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	GENECATALOG_SQLITE_PATH: path to sqlite file (default ./genecatalog.db)
//	GENECATALOG_POSTGRES_DSN: postgres DSN when driver=postgres
type StorageConfig struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
}

// OpenGeneStore selects a backend from cfg. Defaults to sqlite when unset.
func OpenGeneStore(cfg StorageConfig) (domain.GeneStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case StoragePostgres:
		return postgres.NewStore(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// OpenPreferenceStore returns a sqlite-backed preference store at path, or
// an in-memory one when path is empty.
func OpenPreferenceStore(path string) (PreferenceStore, func() error, error) {
	if path == "" {
		return NewMemoryPreferenceStore(), func() error { return nil }, nil
	}
	p, err := sqlite.NewPreferenceStore(path)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Close, nil
}
