// Package catalog is the caller-facing entry point of the gene data access
// layer. View code loads, switches, and inspects sources through a Catalog
// and computes chart data from the collection it holds; loader and fetcher
// state stay internal.
package catalog

import (
	"context"
	"fmt"

	"genecatalog/internal/aggregate"
	"genecatalog/internal/core"
	"genecatalog/pkg/domain"
)

type (
	// Bucket is one labelled count of a histogram.
	Bucket = aggregate.Bucket
	// Series is renderer-agnostic chart data.
	Series = aggregate.Series
	// SeriesPoint is one datum of a Series.
	SeriesPoint = aggregate.SeriesPoint
)

// Catalog wraps a Coordinator with aggregation over its current collection.
type Catalog struct {
	coord   *core.Coordinator
	closers []func() error
}

// New wraps an existing coordinator.
func New(coord *core.Coordinator) *Catalog {
	return &Catalog{coord: coord}
}

// LoadGeneData loads the collection from the active source, falling back to
// the file source when the active one is unreachable.
func (c *Catalog) LoadGeneData(ctx context.Context) ([]domain.GeneRecord, error) {
	return c.coord.Load(ctx)
}

// CurrentSourceName returns the display name of the active source.
func (c *Catalog) CurrentSourceName() string {
	return c.coord.CurrentSourceName()
}

// CurrentSource returns the active source id.
func (c *Catalog) CurrentSource() domain.SourceID {
	return c.coord.Current()
}

// SourceStatus checks every source and reports which are reachable.
func (c *Catalog) SourceStatus(ctx context.Context) domain.AccessState {
	return c.coord.Status(ctx)
}

// SwitchSource makes id the active source and returns its collection.
func (c *Catalog) SwitchSource(ctx context.Context, id domain.SourceID) ([]domain.GeneRecord, error) {
	return c.coord.SwitchTo(ctx, id)
}

// Sources lists the registered sources in registration order.
func (c *Catalog) Sources() []domain.SourceDescriptor {
	return c.coord.Registry().List()
}

// Records returns the last loaded collection.
func (c *Catalog) Records() []domain.GeneRecord {
	return c.coord.Records()
}

// Loaded reports whether a collection has been loaded, even an empty one.
func (c *Catalog) Loaded() bool {
	return c.coord.Loaded()
}

// Gene returns the loaded record with accession id.
func (c *Catalog) Gene(id string) (domain.GeneRecord, error) {
	g, ok := domain.FindRecord(c.coord.Records(), id)
	if !ok {
		return domain.GeneRecord{}, fmt.Errorf("%s: %w", id, domain.ErrGeneNotFound)
	}
	return g, nil
}

// ChromosomeHistogram counts loaded genes per chromosome in natural order.
func (c *Catalog) ChromosomeHistogram() []Bucket {
	return aggregate.ChromosomeHistogram(c.coord.Records())
}

// BiotypeHistogramForChromosome returns the top biotypes on chromosome.
func (c *Catalog) BiotypeHistogramForChromosome(chromosome string) []Bucket {
	return aggregate.BiotypeHistogramForChromosome(c.coord.Records(), chromosome)
}

// ChromosomeSeries builds the chromosome chart focused on gene id.
func (c *Catalog) ChromosomeSeries(id string) (Series, error) {
	records := c.coord.Records()
	focal, ok := domain.FindRecord(records, id)
	if !ok {
		return Series{}, fmt.Errorf("%s: %w", id, domain.ErrGeneNotFound)
	}
	return aggregate.ChromosomeSeries(records, focal), nil
}

// BiotypeSeries builds the biotype chart for gene id's chromosome.
func (c *Catalog) BiotypeSeries(id string) (Series, error) {
	records := c.coord.Records()
	focal, ok := domain.FindRecord(records, id)
	if !ok {
		return Series{}, fmt.Errorf("%s: %w", id, domain.ErrGeneNotFound)
	}
	return aggregate.BiotypeSeries(records, focal), nil
}

// Summary reports distinct chromosomes and biotypes of the loaded collection.
func (c *Catalog) Summary() domain.Summary {
	return aggregate.Summarize(c.coord.Records())
}

// Close releases resources opened by Open.
func (c *Catalog) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}
