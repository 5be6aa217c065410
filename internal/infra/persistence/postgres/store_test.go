package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"genecatalog/internal/infra/persistence/postgres/testutil"
	"genecatalog/pkg/domain"
)

func openStub(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, conn
}

func TestNewStoreAppliesSchemaAndLoadsGenes(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.Seed(
		domain.StoredGene{RowID: 2, GeneRecord: domain.GeneRecord{ID: "ENSG2", Biotype: "lncRNA", Chromosome: "X"}},
		domain.StoredGene{RowID: 1, GeneRecord: domain.GeneRecord{ID: "ENSG1", Symbol: "BRCA1", Biotype: "protein_coding", Chromosome: "17", RegionStart: 10, RegionEnd: 20}},
	)
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("postgres://ignored")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 genes hydrated, got %d", store.Len())
	}
	g, err := store.FindByAccession(context.Background(), "ENSG1")
	if err != nil || g.Symbol != "BRCA1" || g.RegionEnd != 20 {
		t.Fatalf("unexpected gene %+v %v", g, err)
	}
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE") {
			sawDDL = true
			break
		}
	}
	if !sawDDL {
		t.Fatalf("expected schema DDL to be applied, got execs: %v", conn.Execs)
	}
}

func TestReplaceAllWritesRows(t *testing.T) {
	store, conn := openStub(t)
	ctx := context.Background()
	n, err := store.ReplaceAll(ctx, []domain.GeneRecord{
		{ID: "ENSG1", Symbol: "A", Chromosome: "1"},
		{ID: "ENSG2", Symbol: "B", Chromosome: "2"},
	})
	if err != nil || n != 2 {
		t.Fatalf("replace: n=%d err=%v", n, err)
	}
	if conn.Count("TRUNCATE TABLE genes") != 1 {
		t.Fatalf("expected truncate, got %v", conn.Execs)
	}
	rows := conn.Genes
	if len(rows) != 2 || rows[1].RowID != 2 || rows[1].ID != "ENSG2" || rows[1].Chromosome != "2" {
		t.Fatalf("unexpected table rows %+v", rows)
	}
	page, _ := store.List(ctx, domain.GeneQuery{Chromosome: "2", Limit: 10})
	if len(page) != 1 || page[0].Symbol != "B" {
		t.Fatalf("unexpected list %+v", page)
	}
}

func TestReplaceAllFailureKeepsPreviousView(t *testing.T) {
	store, conn := openStub(t)
	ctx := context.Background()
	if _, err := store.ReplaceAll(ctx, []domain.GeneRecord{{ID: "ENSG1"}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	conn.FailWrite = true
	if _, err := store.ReplaceAll(ctx, []domain.GeneRecord{{ID: "ENSG7"}}); err == nil {
		t.Fatalf("expected write failure")
	}
	if len(conn.Genes) != 1 || conn.Genes[0].ID != "ENSG1" {
		t.Fatalf("failed write not rolled back: %+v", conn.Genes)
	}
	if _, err := store.FindByAccession(ctx, "ENSG1"); err != nil {
		t.Fatalf("previous view lost: %v", err)
	}
	conn.FailWrite = false
	conn.FailCommit = true
	if _, err := store.ReplaceAll(ctx, []domain.GeneRecord{{ID: "ENSG8"}}); err == nil || !strings.Contains(err.Error(), "commit") {
		t.Fatalf("expected commit failure, got %v", err)
	}
	conn.FailCommit = false
	conn.FailBegin = true
	if _, err := store.ReplaceAll(ctx, []domain.GeneRecord{{ID: "ENSG9"}}); err == nil {
		t.Fatalf("expected begin failure")
	}
	if _, err := store.FindByAccession(ctx, "ENSG8"); !errors.Is(err, domain.ErrGeneNotFound) {
		t.Fatalf("uncommitted gene visible: %v", err)
	}
}

func TestNewStoreErrors(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("dial") })
	if _, err := NewStore("x"); err == nil {
		t.Fatalf("expected open error")
	}
	restore()
}

func TestNewStoreClosesDBOnFailure(t *testing.T) {
	cases := []struct {
		name string
		fail func(*testutil.StubConn)
		want string
	}{
		{"ping", func(c *testutil.StubConn) { c.FailPing = true }, "ping postgres"},
		{"schema", func(c *testutil.StubConn) { c.FailDDL = true }, "execute ddl"},
		{"hydrate", func(c *testutil.StubConn) { c.FailSelect = true }, "select genes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, conn := testutil.NewStubDB()
			tc.fail(conn)
			restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
			defer restore()
			_, err := NewStore("x")
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q error, got %v", tc.want, err)
			}
			if !conn.Closed {
				t.Fatalf("connection left open after %s failure", tc.name)
			}
			if err := db.Ping(); err == nil {
				t.Fatalf("expected db to be closed")
			}
		})
	}
}

func TestPingAndClose(t *testing.T) {
	store, conn := openStub(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	conn.FailPing = true
	if err := store.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping failure")
	}
	if store.DB() == nil {
		t.Fatalf("expected db handle")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
