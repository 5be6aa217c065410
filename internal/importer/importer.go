// Package importer loads a semicolon-delimited gene table into a listing
// service gene store.
package importer

import (
	"context"
	"fmt"
	"io"

	"genecatalog/internal/blob"
	"genecatalog/internal/infra/source/file"
	"genecatalog/pkg/domain"
)

// Logger is the subset of structured logging the importer emits.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Options configures an import run.
type Options struct {
	Logger Logger
}

// Report summarizes one import.
type Report struct {
	Imported int            `json:"imported"`
	Skipped  int            `json:"skipped"`
	Summary  domain.Summary `json:"summary"`
}

// Import parses r and replaces the contents of store with its rows. Rows with
// a blank ID or an ID seen earlier in the file are skipped. A failed import
// leaves the previous contents in place.
func Import(ctx context.Context, r io.Reader, store domain.GeneStore, opts Options) (Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	records, err := file.Parse(r)
	if err != nil {
		return Report{}, fmt.Errorf("parse gene table: %w", err)
	}
	kept, blank, dup := domain.DropInvalid(records)
	if blank > 0 || dup > 0 {
		logger.Warn("skipping gene rows", "blank_id", blank, "duplicate_id", dup)
	}
	n, err := store.ReplaceAll(ctx, kept)
	if err != nil {
		return Report{}, fmt.Errorf("replace genes: %w", err)
	}
	summary, err := store.Summary(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("summarize genes: %w", err)
	}
	rep := Report{Imported: n, Skipped: blank + dup, Summary: summary}
	logger.Info("gene import complete",
		"imported", rep.Imported,
		"skipped", rep.Skipped,
		"chromosomes", len(summary.Chromosomes),
		"biotypes", len(summary.Biotypes))
	return rep, nil
}

// ImportBlob reads key from src and imports it into store.
func ImportBlob(ctx context.Context, src blob.Store, key string, store domain.GeneStore, opts Options) (Report, error) {
	_, rc, err := src.Get(ctx, key)
	if err != nil {
		return Report{}, fmt.Errorf("open %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	return Import(ctx, rc, store, opts)
}
