// Command genecatalog loads, switches, and inspects gene sources and serves
// the view-facing catalog API.
package main

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	catalogapi "genecatalog/internal/adapters/catalog"
	"genecatalog/internal/config"
	"genecatalog/internal/core"
	"genecatalog/internal/server"
	"genecatalog/pkg/catalog"
	"genecatalog/pkg/domain"
)

const defaultListenAddr = ":8080"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type app struct {
	configFile string
	jsonOutput bool
	stdout     io.Writer
	stderr     io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:          "genecatalog",
		Short:        "Gene catalog data access",
		Long:         "genecatalog reads gene records from a bundled delimited file or a remote listing service and reports on them.",
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "path to YAML config file (default $GENECATALOG_CONFIG)")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "print JSON instead of tables")

	root.AddCommand(
		a.loadCmd(),
		a.statusCmd(),
		a.switchCmd(),
		a.chromosomesCmd(),
		a.biotypesCmd(),
		a.summaryCmd(),
		a.serveCmd(),
	)
	return root
}

type catalogFunc func(ctx context.Context, cat *catalog.Catalog, args []string) error

// session is one command's catalog together with its logger and telemetry.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	obs    *core.Observability
	cat    *catalog.Catalog
}

// open loads the configuration and opens a catalog that reports to the
// configured metrics backend and trace file. Prometheus collectors go to reg.
func (a *app) open(ctx context.Context, reg prometheus.Registerer) (*session, error) {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return nil, err
	}
	level, _ := cfg.SlogLevel()
	logger := server.NewLogger(a.stderr, level)
	obs, err := core.OpenObservability(cfg.TelemetryConfig(), reg, a.stderr)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Open(ctx, cfg,
		catalog.WithLogger(logger),
		catalog.WithMetrics(obs.Metrics),
		catalog.WithTracer(obs.Tracer),
	)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, obs: obs, cat: cat}, nil
}

func (s *session) close() {
	_ = s.cat.Close()
	if err := s.obs.Shutdown(context.Background()); err != nil {
		s.logger.Warn("flush traces failed", "error", err)
	}
}

// withCatalog opens a catalog from the configured sources for one command.
func (a *app) withCatalog(fn catalogFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := a.open(cmd.Context(), prometheus.NewRegistry())
		if err != nil {
			return err
		}
		defer s.close()
		return fn(cmd.Context(), s.cat, args)
	}
}

func (a *app) loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Load genes from the active source, falling back to the file",
		Args:  cobra.NoArgs,
		RunE: a.withCatalog(func(ctx context.Context, cat *catalog.Catalog, _ []string) error {
			records, err := cat.LoadGeneData(ctx)
			if err != nil {
				return err
			}
			return a.print(map[string]any{"source": cat.CurrentSource(), "source_name": cat.CurrentSourceName(), "genes": len(records)},
				func(w io.Writer) {
					_, _ = fmt.Fprintf(w, "loaded %d genes from %s\n", len(records), cat.CurrentSourceName())
				})
		}),
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check every source",
		Args:  cobra.NoArgs,
		RunE: a.withCatalog(func(ctx context.Context, cat *catalog.Catalog, _ []string) error {
			state := cat.SourceStatus(ctx)
			return a.print(state, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "SOURCE\tNAME\tENABLED\tAVAILABLE\tCURRENT")
				for _, d := range cat.Sources() {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%t\t%t\t%t\n", d.ID, d.Name, d.Enabled, state.Available[d.ID], d.ID == state.Current)
				}
				_ = tw.Flush()
			})
		}),
	}
}

func (a *app) switchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch <source>",
		Short: "Make a source active and load its genes",
		Args:  cobra.ExactArgs(1),
		RunE: a.withCatalog(func(ctx context.Context, cat *catalog.Catalog, args []string) error {
			records, err := cat.SwitchSource(ctx, domain.SourceID(args[0]))
			if err != nil {
				return err
			}
			return a.print(map[string]any{"source": cat.CurrentSource(), "source_name": cat.CurrentSourceName(), "genes": len(records)},
				func(w io.Writer) {
					_, _ = fmt.Fprintf(w, "switched to %s (%d genes)\n", cat.CurrentSourceName(), len(records))
				})
		}),
	}
}

func (a *app) chromosomesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chromosomes",
		Short: "Print genes per chromosome",
		Args:  cobra.NoArgs,
		RunE: a.withCatalog(func(ctx context.Context, cat *catalog.Catalog, _ []string) error {
			if _, err := cat.LoadGeneData(ctx); err != nil {
				return err
			}
			return a.printBuckets(cat.ChromosomeHistogram(), "CHROMOSOME")
		}),
	}
}

func (a *app) biotypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "biotypes <gene-id>",
		Short: "Print the top biotypes on a gene's chromosome",
		Args:  cobra.ExactArgs(1),
		RunE: a.withCatalog(func(ctx context.Context, cat *catalog.Catalog, args []string) error {
			if _, err := cat.LoadGeneData(ctx); err != nil {
				return err
			}
			series, err := cat.BiotypeSeries(args[0])
			if err != nil {
				return err
			}
			return a.print(series, func(w io.Writer) {
				_, _ = fmt.Fprintln(w, series.Title)
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				for _, p := range series.Points {
					marker := ""
					if p.Highlight {
						marker = "*"
					}
					_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\n", p.Label, p.Value, marker)
				}
				_ = tw.Flush()
			})
		}),
	}
}

func (a *app) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print distinct chromosomes and biotypes",
		Args:  cobra.NoArgs,
		RunE: a.withCatalog(func(ctx context.Context, cat *catalog.Catalog, _ []string) error {
			if _, err := cat.LoadGeneData(ctx); err != nil {
				return err
			}
			s := cat.Summary()
			return a.print(s, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "genes:       %d\nchromosomes: %d\nbiotypes:    %d\n", s.TotalGenes, len(s.Chromosomes), len(s.Biotypes))
			})
		}),
	}
}

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog API and /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := server.NewRegistry()
			s, err := a.open(cmd.Context(), reg)
			if err != nil {
				return err
			}
			defer s.close()
			if _, err := s.cat.LoadGeneData(cmd.Context()); err != nil {
				s.logger.Warn("initial gene load failed", "error", err)
			}
			if addr == "" {
				addr = s.cfg.ListenAddr
			}
			if addr == "" {
				addr = defaultListenAddr
			}
			return server.Serve(cmd.Context(), addr, s.handler(reg), s.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default $GENECATALOG_LISTEN_ADDR or :8080)")
	return cmd
}

// handler mounts the catalog API and /metrics, plus /debug/vars when
// coordinator metrics go to expvar.
func (s *session) handler(reg *prometheus.Registry) http.Handler {
	var h http.Handler = catalogapi.NewHandler(s.cat)
	if s.cfg.Observability.Metrics == core.MetricsExpvar {
		mux := http.NewServeMux()
		mux.Handle("/debug/vars", expvar.Handler())
		mux.Handle("/", h)
		h = mux
	}
	return server.Instrument(reg, "genecatalog", h)
}

func (a *app) printBuckets(buckets []catalog.Bucket, heading string) error {
	return a.print(buckets, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(tw, "%s\tGENES\n", heading)
		for _, b := range buckets {
			_, _ = fmt.Fprintf(tw, "%s\t%d\n", b.Label, b.Count)
		}
		_ = tw.Flush()
	})
}

func (a *app) print(v any, text func(io.Writer)) error {
	if a.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(a.stdout)
	return nil
}
