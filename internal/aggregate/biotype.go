package aggregate

import (
	"sort"

	"genecatalog/pkg/domain"
)

// TopBiotypes bounds BiotypeHistogramForChromosome.
const TopBiotypes = 6

// unknownBiotype labels records whose biotype is blank.
const unknownBiotype = "Unknown"

// BiotypeCounts counts biotypes among the records on one chromosome, sorted by
// descending count. Equal counts keep first-encountered order.
func BiotypeCounts(records []domain.GeneRecord, chromosome string) []Bucket {
	index := make(map[string]int)
	var out []Bucket
	for _, r := range records {
		if r.Chromosome != chromosome {
			continue
		}
		label := biotypeLabel(r.Biotype)
		if i, ok := index[label]; ok {
			out[i].Count++
			continue
		}
		index[label] = len(out)
		out = append(out, Bucket{Label: label, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func biotypeLabel(biotype string) string {
	if biotype == "" {
		return unknownBiotype
	}
	return biotype
}

// BiotypeHistogramForChromosome returns the TopBiotypes most frequent biotypes
// on the chromosome.
func BiotypeHistogramForChromosome(records []domain.GeneRecord, chromosome string) []Bucket {
	counts := BiotypeCounts(records, chromosome)
	if len(counts) > TopBiotypes {
		counts = counts[:TopBiotypes]
	}
	return counts
}

// Summarize reports the distinct chromosomes (natural order) and biotypes
// (lexicographic) of a collection.
func Summarize(records []domain.GeneRecord) domain.Summary {
	chromosomes := make(map[string]struct{})
	biotypes := make(map[string]struct{})
	for _, r := range records {
		chromosomes[r.Chromosome] = struct{}{}
		biotypes[r.Biotype] = struct{}{}
	}
	summary := domain.Summary{
		TotalGenes:  len(records),
		Chromosomes: make([]string, 0, len(chromosomes)),
		Biotypes:    make([]string, 0, len(biotypes)),
	}
	for c := range chromosomes {
		summary.Chromosomes = append(summary.Chromosomes, c)
	}
	for b := range biotypes {
		summary.Biotypes = append(summary.Biotypes, b)
	}
	SortChromosomes(summary.Chromosomes)
	sort.Strings(summary.Biotypes)
	return summary
}
