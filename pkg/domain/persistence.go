package domain

import (
	"context"
	"errors"
)

// ErrGeneNotFound is returned by GeneStore lookups that match nothing.
var ErrGeneNotFound = errors.New("gene not found")

// StoredGene is a GeneRecord as persisted by the listing service, keyed by a
// server-assigned row identifier.
type StoredGene struct {
	RowID int64
	GeneRecord
}

// GeneQuery selects one page of stored genes. Empty filters match everything.
type GeneQuery struct {
	Skip       int
	Limit      int
	Chromosome string
	Biotype    string
}

// SearchField names the text column a search runs against.
type SearchField string

// Searchable columns.
const (
	SearchSymbol SearchField = "symbol"
	SearchName   SearchField = "name"
)

// Summary reports distinct values across a gene collection.
type Summary struct {
	TotalGenes  int      `json:"total_genes"`
	Chromosomes []string `json:"chromosomes"`
	Biotypes    []string `json:"biotypes"`
}

// GeneStore is the durable backend behind the listing service. ReplaceAll is
// the only write; it swaps the full collection atomically and assigns row IDs
// 1..n in input order.
type GeneStore interface {
	ReplaceAll(ctx context.Context, records []GeneRecord) (int, error)
	List(ctx context.Context, q GeneQuery) ([]StoredGene, error)
	Get(ctx context.Context, rowID int64) (StoredGene, error)
	FindByAccession(ctx context.Context, accession string) (StoredGene, error)
	Search(ctx context.Context, field SearchField, term string, exact bool) ([]StoredGene, error)
	Summary(ctx context.Context) (Summary, error)
	Ping(ctx context.Context) error
	Close() error
}
