// Package memory provides the in-memory gene store. The SQL-backed stores
// embed it and serve every read from it.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"genecatalog/internal/aggregate"
	"genecatalog/pkg/domain"
)

var _ domain.GeneStore = (*Store)(nil)

// Store keeps the full gene collection in row order with lookup indexes.
type Store struct {
	mu          sync.RWMutex
	genes       []domain.StoredGene
	byRow       map[int64]int
	byAccession map[string]int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{byRow: map[int64]int{}, byAccession: map[string]int{}}
}

// Number assigns row ids 1..n in input order. Blank and repeated accessions
// are rejected.
func Number(records []domain.GeneRecord) ([]domain.StoredGene, error) {
	out := make([]domain.StoredGene, len(records))
	seen := make(map[string]struct{}, len(records))
	for i, r := range records {
		if r.ID == "" {
			return nil, fmt.Errorf("record %d: empty accession", i)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("record %d: duplicate accession %s", i, r.ID)
		}
		seen[r.ID] = struct{}{}
		out[i] = domain.StoredGene{RowID: int64(i + 1), GeneRecord: r}
	}
	return out, nil
}

// ReplaceAll swaps the collection for records.
func (s *Store) ReplaceAll(_ context.Context, records []domain.GeneRecord) (int, error) {
	genes, err := Number(records)
	if err != nil {
		return 0, err
	}
	s.ImportState(genes)
	return len(genes), nil
}

// ImportState installs already-numbered genes, replacing the collection.
func (s *Store) ImportState(genes []domain.StoredGene) {
	cp := make([]domain.StoredGene, len(genes))
	copy(cp, genes)
	byRow := make(map[int64]int, len(cp))
	byAccession := make(map[string]int, len(cp))
	for i, g := range cp {
		byRow[g.RowID] = i
		if _, ok := byAccession[g.ID]; !ok {
			byAccession[g.ID] = i
		}
	}
	s.mu.Lock()
	s.genes = cp
	s.byRow = byRow
	s.byAccession = byAccession
	s.mu.Unlock()
}

// ExportState returns a copy of the collection in row order.
func (s *Store) ExportState() []domain.StoredGene {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.StoredGene, len(s.genes))
	copy(out, s.genes)
	return out
}

// List returns one page of genes matching the query filters. A non-positive
// limit returns everything after Skip.
func (s *Store) List(_ context.Context, q domain.GeneQuery) ([]domain.StoredGene, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.StoredGene{}
	skipped := 0
	for _, g := range s.genes {
		if q.Chromosome != "" && g.Chromosome != q.Chromosome {
			continue
		}
		if q.Biotype != "" && g.Biotype != q.Biotype {
			continue
		}
		if skipped < q.Skip {
			skipped++
			continue
		}
		out = append(out, g)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// Get returns the gene with the given row id.
func (s *Store) Get(_ context.Context, rowID int64) (domain.StoredGene, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byRow[rowID]
	if !ok {
		return domain.StoredGene{}, fmt.Errorf("row %d: %w", rowID, domain.ErrGeneNotFound)
	}
	return s.genes[i], nil
}

// FindByAccession returns the gene with the given Ensembl accession.
func (s *Store) FindByAccession(_ context.Context, accession string) (domain.StoredGene, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byAccession[accession]
	if !ok {
		return domain.StoredGene{}, fmt.Errorf("accession %s: %w", accession, domain.ErrGeneNotFound)
	}
	return s.genes[i], nil
}

// Search matches term against the symbol or name column. Exact matching is
// case-sensitive equality; otherwise a case-insensitive substring match.
func (s *Store) Search(_ context.Context, field domain.SearchField, term string, exact bool) ([]domain.StoredGene, error) {
	var column func(domain.StoredGene) string
	switch field {
	case domain.SearchSymbol:
		column = func(g domain.StoredGene) string { return g.Symbol }
	case domain.SearchName:
		column = func(g domain.StoredGene) string { return g.Description }
	default:
		return nil, fmt.Errorf("unsupported search field %q", field)
	}
	needle := strings.ToLower(term)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.StoredGene{}
	for _, g := range s.genes {
		v := column(g)
		if v == "" {
			continue
		}
		if exact && v == term || !exact && strings.Contains(strings.ToLower(v), needle) {
			out = append(out, g)
		}
	}
	return out, nil
}

// Summary reports the total and the distinct chromosomes and biotypes.
func (s *Store) Summary(_ context.Context) (domain.Summary, error) {
	s.mu.RLock()
	records := make([]domain.GeneRecord, len(s.genes))
	for i, g := range s.genes {
		records[i] = g.GeneRecord
	}
	s.mu.RUnlock()
	return aggregate.Summarize(records), nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// Len returns the number of stored genes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.genes)
}
