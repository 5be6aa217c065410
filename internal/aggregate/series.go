package aggregate

import (
	"fmt"

	"genecatalog/pkg/domain"
)

// MaxChromosomeBars bounds the chromosome chart.
const MaxChromosomeBars = 15

// ChartKind tells the chart collaborator how to draw a series.
type ChartKind string

// Chart kinds produced by this package.
const (
	ChartBar ChartKind = "bar"
	ChartPie ChartKind = "pie"
)

// SeriesPoint is one datum of a chart series. Highlight marks the point that
// belongs to the focal record.
type SeriesPoint struct {
	Label     string `json:"label"`
	Value     int    `json:"value"`
	Highlight bool   `json:"highlight,omitempty"`
}

// Series is renderer-agnostic chart data.
type Series struct {
	Title  string        `json:"title"`
	Kind   ChartKind     `json:"kind"`
	Points []SeriesPoint `json:"points"`
}

// ChromosomeSeries builds the genes-per-chromosome bar chart, highlighting the
// focal record's chromosome.
func ChromosomeSeries(records []domain.GeneRecord, focal domain.GeneRecord) Series {
	buckets := ChromosomeHistogram(records)
	if len(buckets) > MaxChromosomeBars {
		buckets = buckets[:MaxChromosomeBars]
	}
	return Series{
		Title:  "Genes per Chromosome",
		Kind:   ChartBar,
		Points: toPoints(buckets, focal.Chromosome),
	}
}

// BiotypeSeries builds the biotype pie chart for the focal record's
// chromosome, highlighting the focal biotype.
func BiotypeSeries(records []domain.GeneRecord, focal domain.GeneRecord) Series {
	return Series{
		Title:  fmt.Sprintf("Gene Types on Chr %s", focal.Chromosome),
		Kind:   ChartPie,
		Points: toPoints(BiotypeHistogramForChromosome(records, focal.Chromosome), biotypeLabel(focal.Biotype)),
	}
}

func toPoints(buckets []Bucket, highlight string) []SeriesPoint {
	points := make([]SeriesPoint, 0, len(buckets))
	for _, b := range buckets {
		points = append(points, SeriesPoint{Label: b.Label, Value: b.Count, Highlight: b.Label == highlight})
	}
	return points
}
