package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"genecatalog/internal/config"
	"genecatalog/internal/core"
	"genecatalog/internal/importer"
	"genecatalog/internal/infra/source/service"
	"genecatalog/internal/server"
	"genecatalog/pkg/domain"
)

const geneTable = "Ensembl;Gene symbol;Name;Biotype;Chromosome;Seq region start;Seq region end\n" +
	"ENSG00000141510;TP53;tumor protein p53;protein_coding;17;7661779;7687538\n" +
	"ENSG00000243485;MIR1302-2HG;;lncRNA;1;29554;31109\n" +
	";ORPHAN;;lncRNA;1;1;2\n" +
	"ENSG00000198888;MT-ND1;;protein_coding;MT;3307;4262\n"

// setupEnv writes the gene table into a blob root and points the gene store
// at a fresh sqlite file.
func setupEnv(t *testing.T) (tablePath, dbPath string) {
	t.Helper()
	root := t.TempDir()
	tablePath = filepath.Join(root, "genes_human.csv")
	if err := os.WriteFile(tablePath, []byte(geneTable), 0o600); err != nil {
		t.Fatalf("write gene table: %v", err)
	}
	dbPath = filepath.Join(t.TempDir(), "genes.db")
	t.Setenv("GENECATALOG_CONFIG", "")
	t.Setenv("GENECATALOG_BLOB_DRIVER", "fs")
	t.Setenv("GENECATALOG_BLOB_FS_ROOT", root)
	t.Setenv("GENECATALOG_STORAGE_DRIVER", "sqlite")
	t.Setenv("GENECATALOG_SQLITE_PATH", dbPath)
	t.Setenv("GENECATALOG_LOG_LEVEL", "error")
	return tablePath, dbPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func decodeReport(t *testing.T, out string) importer.Report {
	t.Helper()
	var rep importer.Report
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	return rep
}

func TestImportFromPath(t *testing.T) {
	tablePath, dbPath := setupEnv(t)
	out, err := run(t, "import", "--path", tablePath)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	rep := decodeReport(t, out)
	if rep.Imported != 3 || rep.Skipped != 1 || rep.Summary.TotalGenes != 3 {
		t.Fatalf("unexpected report %+v", rep)
	}

	store, err := core.OpenGeneStore(core.StorageConfig{Driver: core.StorageSQLite, SQLitePath: dbPath})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = store.Close() }()
	g, err := store.FindByAccession(context.Background(), "ENSG00000198888")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if g.RowID != 3 || g.Chromosome != "MT" {
		t.Fatalf("unexpected stored gene %+v", g)
	}
}

func TestImportFromBlobKey(t *testing.T) {
	setupEnv(t)
	out, err := run(t, "import", "--key", "genes_human.csv")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if rep := decodeReport(t, out); rep.Imported != 3 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if _, err := run(t, "import", "--key", "missing.csv"); err == nil {
		t.Fatalf("expected error for missing key")
	}
}

func TestImportFlagValidation(t *testing.T) {
	tablePath, _ := setupEnv(t)
	if _, err := run(t, "import"); err == nil {
		t.Fatalf("expected error without a source")
	}
	if _, err := run(t, "import", "--path", tablePath, "--key", "genes_human.csv"); err == nil {
		t.Fatalf("expected error with both sources")
	}
	if _, err := run(t, "import", "--path", filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Fatalf("expected error for absent file")
	}
}

func TestServiceHandlerServesImportedGenes(t *testing.T) {
	tablePath, _ := setupEnv(t)
	if _, err := run(t, "import", "--path", tablePath); err != nil {
		t.Fatalf("import: %v", err)
	}
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	h, store, err := newService(cfg, server.NewRegistry(), server.NewLogger(io.Discard, slog.LevelError))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	defer func() { _ = store.Close() }()
	srv := httptest.NewServer(h)
	defer srv.Close()

	client := service.NewClient(srv.URL)
	rows, err := client.ListGenes(context.Background(), domain.GeneQuery{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 3 || rows[0].Ensembl != "ENSG00000141510" {
		t.Fatalf("unexpected rows %+v", rows)
	}

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), `service="genecatalog-api"`) {
		t.Fatalf("expected service label in metrics:\n%s", body)
	}
}

func TestServiceRejectsBadStorage(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = "tape"
	if _, _, err := newService(cfg, server.NewRegistry(), server.NewLogger(io.Discard, slog.LevelError)); err == nil {
		t.Fatalf("expected storage error")
	}
}
