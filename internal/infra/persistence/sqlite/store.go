// Package sqlite persists the gene collection and the source preference in
// an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"genecatalog/internal/infra/persistence/memory"
	"genecatalog/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.GeneStore = (*Store)(nil)

// DefaultPath is used when no database path is configured.
const DefaultPath = "genecatalog.db"

const genesDDL = `CREATE TABLE IF NOT EXISTS genes (
	row_id INTEGER PRIMARY KEY,
	ensembl TEXT NOT NULL UNIQUE,
	gene_symbol TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	biotype TEXT NOT NULL DEFAULT '',
	chromosome TEXT NOT NULL DEFAULT '',
	seq_region_start INTEGER NOT NULL DEFAULT 0,
	seq_region_end INTEGER NOT NULL DEFAULT 0
)`

// Store writes the collection to a genes table and serves reads from the
// embedded memory store, which is hydrated from the table on open.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (or creates) the database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(genesDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create genes table: %w", err)
	}
	s := &Store{Store: memory.NewStore(), db: db, path: path}
	if err := s.load(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func openDB(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return db, nil
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT row_id, ensembl, gene_symbol, name, biotype, chromosome, seq_region_start, seq_region_end FROM genes ORDER BY row_id`)
	if err != nil {
		return fmt.Errorf("select genes: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var genes []domain.StoredGene
	for rows.Next() {
		var g domain.StoredGene
		if err := rows.Scan(&g.RowID, &g.ID, &g.Symbol, &g.Description, &g.Biotype, &g.Chromosome, &g.RegionStart, &g.RegionEnd); err != nil {
			return fmt.Errorf("scan gene: %w", err)
		}
		genes = append(genes, g)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate genes: %w", err)
	}
	s.ImportState(genes)
	return nil
}

// ReplaceAll rewrites the genes table in one transaction, then swaps the
// in-memory view. A failed write leaves both untouched.
func (s *Store) ReplaceAll(ctx context.Context, records []domain.GeneRecord) (n int, retErr error) {
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
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM genes`); err != nil {
		return 0, fmt.Errorf("clear genes: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO genes(row_id,ensembl,gene_symbol,name,biotype,chromosome,seq_region_start,seq_region_end) VALUES(?,?,?,?,?,?,?,?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for _, g := range genes {
		if _, err := stmt.ExecContext(ctx, g.RowID, g.ID, g.Symbol, g.Description, g.Biotype, g.Chromosome, g.RegionStart, g.RegionEnd); err != nil {
			return 0, fmt.Errorf("insert gene %s: %w", g.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	s.ImportState(genes)
	return len(genes), nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// DB exposes the underlying database handle.
func (s *Store) DB() *sql.DB { return s.db }
