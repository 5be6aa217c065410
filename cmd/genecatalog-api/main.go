// Command genecatalog-api serves the paged gene listing that the catalog's
// service source reads, and imports gene tables into its store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"genecatalog/internal/adapters/genes"
	"genecatalog/internal/blob"
	"genecatalog/internal/config"
	"genecatalog/internal/core"
	"genecatalog/internal/importer"
	"genecatalog/internal/server"
	"genecatalog/pkg/domain"
)

const (
	serviceName       = "genecatalog-api"
	defaultListenAddr = ":8000"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type app struct {
	configFile string
	stdout     io.Writer
	stderr     io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:          serviceName,
		Short:        "Gene listing service",
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "path to YAML config file (default $GENECATALOG_CONFIG)")
	root.AddCommand(a.serveCmd(), a.importCmd())
	return root
}

func (a *app) setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	level, _ := cfg.SlogLevel()
	return cfg, server.NewLogger(a.stderr, level), nil
}

// newService wires the gene store behind an instrumented listing handler.
func newService(cfg config.Config, reg *prometheus.Registry, logger *slog.Logger) (http.Handler, domain.GeneStore, error) {
	store, err := core.OpenGeneStore(cfg.GeneStoreConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("open gene store: %w", err)
	}
	h := genes.NewHandler(store)
	h.Logger = logger
	return server.Instrument(reg, serviceName, h), store, nil
}

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the gene listing API and /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := a.setup()
			if err != nil {
				return err
			}
			h, store, err := newService(cfg, server.NewRegistry(), logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			if addr == "" {
				addr = defaultListenAddr
			}
			return server.Serve(cmd.Context(), addr, h, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :8000)")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	var path, key string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the stored genes with a delimited gene table",
		Long:  "import reads a semicolon-delimited gene table from --path or from --key in the configured blob store and replaces the gene store contents with it.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (path == "") == (key == "") {
				return errors.New("exactly one of --path or --key is required")
			}
			cfg, logger, err := a.setup()
			if err != nil {
				return err
			}
			store, err := core.OpenGeneStore(cfg.GeneStoreConfig())
			if err != nil {
				return fmt.Errorf("open gene store: %w", err)
			}
			defer func() { _ = store.Close() }()

			opts := importer.Options{Logger: logger}
			var rep importer.Report
			if path != "" {
				rep, err = importFile(cmd.Context(), path, store, opts)
			} else {
				rep, err = importKey(cmd.Context(), cfg, key, store, opts)
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "gene table on the local filesystem")
	cmd.Flags().StringVar(&key, "key", "", "gene table key in the configured blob store")
	return cmd
}

func importFile(ctx context.Context, path string, store domain.GeneStore, opts importer.Options) (importer.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return importer.Report{}, err
	}
	defer func() { _ = f.Close() }()
	return importer.Import(ctx, f, store, opts)
}

func importKey(ctx context.Context, cfg config.Config, key string, store domain.GeneStore, opts importer.Options) (importer.Report, error) {
	src, err := blob.Open(ctx, cfg.BlobStoreConfig())
	if err != nil {
		return importer.Report{}, fmt.Errorf("open blob store: %w", err)
	}
	return importer.ImportBlob(ctx, src, key, store, opts)
}
