// Package aggregate computes the derived statistics that feed the catalog
// charts. Every function is pure: the same records always give the same output.
package aggregate

import (
	"sort"
	"strconv"
	"strings"

	"genecatalog/pkg/domain"
)

// Bucket is one (label, count) pair of a histogram.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// chromosomeNumber reports the integer value of a numeric chromosome label.
func chromosomeNumber(label string) (int, bool) {
	s := strings.TrimSpace(label)
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// CompareChromosomes orders labels naturally: numeric labels ascending by
// value, then every non-numeric label in lexicographic order. It returns a
// negative number when a sorts before b.
func CompareChromosomes(a, b string) int {
	an, aNum := chromosomeNumber(a)
	bn, bNum := chromosomeNumber(b)
	switch {
	case aNum && bNum:
		if an != bn {
			if an < bn {
				return -1
			}
			return 1
		}
		// "01" and "1" share a value; fall through to keep the order total.
	case aNum:
		return -1
	case bNum:
		return 1
	}
	return strings.Compare(a, b)
}

// SortChromosomes sorts labels in place using CompareChromosomes.
func SortChromosomes(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		return CompareChromosomes(labels[i], labels[j]) < 0
	})
}

// ChromosomeHistogram counts records per chromosome in natural order. The
// counts always sum to len(records).
func ChromosomeHistogram(records []domain.GeneRecord) []Bucket {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Chromosome]++
	}
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	SortChromosomes(labels)
	out := make([]Bucket, 0, len(labels))
	for _, label := range labels {
		out = append(out, Bucket{Label: label, Count: counts[label]})
	}
	return out
}
