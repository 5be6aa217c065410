// Package domain defines the canonical gene record model, source descriptors,
// and the error taxonomy shared by every genecatalog backend.
package domain

import "strings"

// provenanceMarker opens the trailing annotation Ensembl appends to gene names.
const provenanceMarker = "[Source:"

// GeneRecord is the canonical entity every source normalizes into. Records
// are values; nothing mutates a record after a loader constructs it.
type GeneRecord struct {
	ID          string `json:"id"`
	Symbol      string `json:"symbol,omitempty"`
	Description string `json:"description,omitempty"`
	Biotype     string `json:"biotype"`
	Chromosome  string `json:"chromosome"`
	RegionStart int64  `json:"region_start"`
	RegionEnd   int64  `json:"region_end"`
}

// DisplayName returns the description without its provenance annotation.
// The stored Description keeps the annotation verbatim.
func (g GeneRecord) DisplayName() string {
	name, _, _ := strings.Cut(g.Description, provenanceMarker)
	return strings.TrimSpace(name)
}

// Span returns the length of the genomic region in base pairs. Degenerate
// regions (end before start) report zero.
func (g GeneRecord) Span() int64 {
	if g.RegionEnd < g.RegionStart {
		return 0
	}
	return g.RegionEnd - g.RegionStart
}

// Label returns the symbol when present, otherwise the accession.
func (g GeneRecord) Label() string {
	if g.Symbol != "" {
		return g.Symbol
	}
	return g.ID
}

// CloneRecords returns a copy of the slice so callers can't alias shared state.
func CloneRecords(in []GeneRecord) []GeneRecord {
	if in == nil {
		return nil
	}
	out := make([]GeneRecord, len(in))
	copy(out, in)
	return out
}

// FindRecord returns the record with the supplied accession.
func FindRecord(records []GeneRecord, id string) (GeneRecord, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return GeneRecord{}, false
}

// DropInvalid removes records whose ID is blank and every repeat of an ID
// after its first occurrence. It reports how many of each it dropped.
func DropInvalid(in []GeneRecord) (kept []GeneRecord, blank, duplicate int) {
	kept = make([]GeneRecord, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, r := range in {
		if r.ID == "" {
			blank++
			continue
		}
		if _, ok := seen[r.ID]; ok {
			duplicate++
			continue
		}
		seen[r.ID] = struct{}{}
		kept = append(kept, r)
	}
	return kept, blank, duplicate
}
