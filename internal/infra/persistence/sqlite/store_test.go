package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"genecatalog/pkg/domain"
)

func sampleRecords() []domain.GeneRecord {
	return []domain.GeneRecord{
		{ID: "ENSG1", Symbol: "BRCA1", Description: "BRCA1 DNA repair associated", Biotype: "protein_coding", Chromosome: "17", RegionStart: 43044295, RegionEnd: 43125483},
		{ID: "ENSG2", Biotype: "lncRNA", Chromosome: "X", RegionStart: 5, RegionEnd: 1},
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "genes.db")
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	ctx := context.Background()
	if n, err := s.ReplaceAll(ctx, sampleRecords()); err != nil || n != 2 {
		t.Fatalf("replace: n=%d err=%v", n, err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	g, err := reopened.FindByAccession(ctx, "ENSG1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if g.RowID != 1 || g.Symbol != "BRCA1" || g.RegionEnd != 43125483 {
		t.Fatalf("unexpected gene %+v", g)
	}
	second, err := reopened.Get(ctx, 2)
	if err != nil || second.ID != "ENSG2" || second.Symbol != "" {
		t.Fatalf("get: %+v %v", second, err)
	}
	if reopened.Path() != path {
		t.Fatalf("path = %s", reopened.Path())
	}
}

func TestReplaceAllOverwrites(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "genes.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer func() { _ = s.Close() }()
	ctx := context.Background()
	if _, err := s.ReplaceAll(ctx, sampleRecords()); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if _, err := s.ReplaceAll(ctx, []domain.GeneRecord{{ID: "ENSG9", Chromosome: "1"}}); err != nil {
		t.Fatalf("replace again: %v", err)
	}
	if _, err := s.FindByAccession(ctx, "ENSG1"); !errors.Is(err, domain.ErrGeneNotFound) {
		t.Fatalf("expected old rows gone, got %v", err)
	}
	var count int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM genes`).Scan(&count); err != nil || count != 1 {
		t.Fatalf("count=%d err=%v", count, err)
	}
	if _, err := s.ReplaceAll(ctx, []domain.GeneRecord{{ID: ""}}); err == nil {
		t.Fatalf("expected blank accession rejection")
	}
	sum, _ := s.Summary(ctx)
	if sum.TotalGenes != 1 {
		t.Fatalf("failed replace must not change contents, total=%d", sum.TotalGenes)
	}
}

func TestPreferenceStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	p, err := NewPreferenceStore(path)
	if err != nil {
		t.Fatalf("NewPreferenceStore: %v", err)
	}
	ctx := context.Background()
	if id, err := p.LoadSource(ctx); err != nil || id != "" {
		t.Fatalf("expected empty preference, got %q %v", id, err)
	}
	if err := p.SaveSource(ctx, domain.SourceService); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := p.SaveSource(ctx, domain.SourceFile); err != nil {
		t.Fatalf("save again: %v", err)
	}
	_ = p.Close()

	again, err := NewPreferenceStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = again.Close() }()
	if id, err := again.LoadSource(ctx); err != nil || id != domain.SourceFile {
		t.Fatalf("expected file preference, got %q %v", id, err)
	}
}
