// Package postgres provides a Postgres-backed gene store for the listing
// service. Reads are served from an embedded memory store hydrated on open.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"genecatalog/internal/infra/persistence/memory"
	"genecatalog/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.GeneStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/genecatalog?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS genes (
		row_id BIGINT PRIMARY KEY,
		ensembl VARCHAR(50) NOT NULL UNIQUE,
		gene_symbol VARCHAR(50) NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		biotype VARCHAR(50) NOT NULL DEFAULT '',
		chromosome VARCHAR(10) NOT NULL DEFAULT '',
		seq_region_start BIGINT NOT NULL DEFAULT 0,
		seq_region_end BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS genes_gene_symbol_idx ON genes (gene_symbol)`,
	`CREATE INDEX IF NOT EXISTS genes_chromosome_idx ON genes (chromosome)`,
}

// Store persists genes to Postgres while reusing the in-memory implementation for reads.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to defaultDSN),
// ensures the schema exists, and hydrates the in-memory view from the genes table.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	genes, err := hydrate(context.Background(), db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	mem := memory.NewStore()
	mem.ImportState(genes)
	return &Store{Store: mem, db: db}, nil
}

func hydrate(ctx context.Context, db *sql.DB) ([]domain.StoredGene, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := applySchema(ctx, db); err != nil {
		return nil, err
	}
	return loadGenes(ctx, db)
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func applySchema(ctx context.Context, db execer) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

func loadGenes(ctx context.Context, db *sql.DB) ([]domain.StoredGene, error) {
	rows, err := db.QueryContext(ctx, `SELECT row_id, ensembl, gene_symbol, name, biotype, chromosome, seq_region_start, seq_region_end FROM genes ORDER BY row_id`)
	if err != nil {
		return nil, fmt.Errorf("select genes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var genes []domain.StoredGene
	for rows.Next() {
		var g domain.StoredGene
		if err := rows.Scan(&g.RowID, &g.ID, &g.Symbol, &g.Description, &g.Biotype, &g.Chromosome, &g.RegionStart, &g.RegionEnd); err != nil {
			return nil, fmt.Errorf("scan gene: %w", err)
		}
		genes = append(genes, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate genes: %w", err)
	}
	return genes, nil
}

// ReplaceAll truncates and refills the genes table in one transaction, then
// swaps the in-memory view.
func (s *Store) ReplaceAll(ctx context.Context, records []domain.GeneRecord) (int, error) {
	genes, err := memory.Number(records)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `TRUNCATE TABLE genes`); err != nil {
		return 0, fmt.Errorf("truncate genes: %w", err)
	}
	for _, g := range genes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO genes(row_id,ensembl,gene_symbol,name,biotype,chromosome,seq_region_start,seq_region_end) VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
			g.RowID, g.ID, g.Symbol, g.Description, g.Biotype, g.Chromosome, g.RegionStart, g.RegionEnd); err != nil {
			return 0, fmt.Errorf("insert gene %s: %w", g.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	committed = true
	s.ImportState(genes)
	return len(genes), nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
