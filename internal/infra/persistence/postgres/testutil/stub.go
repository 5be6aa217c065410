// Package testutil provides a stub database/sql driver for postgres store
// tests. It keeps a single genes table and accepts only the statements the
// store issues against it.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync/atomic"

	"genecatalog/pkg/domain"
)

var driverSeq atomic.Int64

// geneColumns is the projection the store selects, in scan order.
var geneColumns = []string{"row_id", "ensembl", "gene_symbol", "name", "biotype", "chromosome", "seq_region_start", "seq_region_end"}

// StubConn is the single connection behind a stub database.
type StubConn struct {
	Execs []string
	Genes []domain.StoredGene

	FailPing   bool
	FailDDL    bool
	FailWrite  bool
	FailSelect bool
	FailBegin  bool
	FailCommit bool
	Closed     bool

	snapshot []domain.StoredGene
}

// NewStubDB registers a fresh driver and opens a sql.DB on it.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{}
	name := fmt.Sprintf("stubpg%d", driverSeq.Add(1))
	sql.Register(name, stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct{ conn *StubConn }

func (d stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Seed replaces the stored genes.
func (c *StubConn) Seed(genes ...domain.StoredGene) { c.Genes = genes }

// Count returns how many executed statements start with prefix, ignoring case.
func (c *StubConn) Count(prefix string) int {
	n := 0
	for _, q := range c.Execs {
		if hasPrefixFold(q, prefix) {
			n++
		}
	}
	return n
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(query string) (driver.Stmt, error) {
	return nil, fmt.Errorf("prepare not supported: %s", query)
}

// Close implements driver.Conn.
func (c *StubConn) Close() error {
	c.Closed = true
	return nil
}

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx. Rollback restores the genes seen at begin.
func (c *StubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	c.snapshot = append([]domain.StoredGene(nil), c.Genes...)
	return stubTx{conn: c}, nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	query = strings.TrimSpace(query)
	c.Execs = append(c.Execs, query)
	switch {
	case hasPrefixFold(query, "CREATE "):
		if c.FailDDL {
			return nil, fmt.Errorf("ddl fail")
		}
		return driver.RowsAffected(0), nil
	case hasPrefixFold(query, "TRUNCATE TABLE genes"):
		if c.FailWrite {
			return nil, fmt.Errorf("truncate fail")
		}
		n := len(c.Genes)
		c.Genes = nil
		return driver.RowsAffected(int64(n)), nil
	case hasPrefixFold(query, "INSERT INTO genes"):
		if c.FailWrite {
			return nil, fmt.Errorf("insert fail")
		}
		g, err := geneFromArgs(args)
		if err != nil {
			return nil, err
		}
		c.Genes = append(c.Genes, g)
		return driver.RowsAffected(1), nil
	}
	return nil, fmt.Errorf("unexpected statement: %s", query)
}

// QueryContext implements driver.QueryerContext for the ordered gene select.
func (c *StubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	if !hasPrefixFold(query, "SELECT ") || !strings.Contains(query, "FROM genes ORDER BY row_id") {
		return nil, fmt.Errorf("unexpected query: %s", query)
	}
	if c.FailSelect {
		return nil, fmt.Errorf("select fail")
	}
	genes := append([]domain.StoredGene(nil), c.Genes...)
	sort.Slice(genes, func(i, j int) bool { return genes[i].RowID < genes[j].RowID })
	return &geneRows{genes: genes}, nil
}

func geneFromArgs(args []driver.NamedValue) (domain.StoredGene, error) {
	if len(args) != len(geneColumns) {
		return domain.StoredGene{}, fmt.Errorf("insert genes: want %d args, got %d", len(geneColumns), len(args))
	}
	var g domain.StoredGene
	ints := []*int64{&g.RowID, &g.RegionStart, &g.RegionEnd}
	strs := []*string{&g.ID, &g.Symbol, &g.Description, &g.Biotype, &g.Chromosome}
	for i, dst := range []int{0, 6, 7} {
		v, ok := args[dst].Value.(int64)
		if !ok {
			return domain.StoredGene{}, fmt.Errorf("insert genes: %s is %T", geneColumns[dst], args[dst].Value)
		}
		*ints[i] = v
	}
	for i := range strs {
		v, ok := args[i+1].Value.(string)
		if !ok {
			return domain.StoredGene{}, fmt.Errorf("insert genes: %s is %T", geneColumns[i+1], args[i+1].Value)
		}
		*strs[i] = v
	}
	return g, nil
}

type stubTx struct{ conn *StubConn }

func (t stubTx) Commit() error {
	if t.conn.FailCommit {
		t.conn.Genes = t.conn.snapshot
		return fmt.Errorf("commit fail")
	}
	return nil
}

func (t stubTx) Rollback() error {
	t.conn.Genes = t.conn.snapshot
	return nil
}

type geneRows struct {
	genes []domain.StoredGene
	idx   int
}

func (r *geneRows) Columns() []string { return geneColumns }
func (r *geneRows) Close() error      { return nil }

func (r *geneRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.genes) {
		return io.EOF
	}
	g := r.genes[r.idx]
	r.idx++
	copy(dest, []driver.Value{g.RowID, g.ID, g.Symbol, g.Description, g.Biotype, g.Chromosome, g.RegionStart, g.RegionEnd})
	return nil
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
