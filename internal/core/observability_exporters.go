package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// MetricsBackend names where coordinator metrics are exported.
type MetricsBackend string

const (
	MetricsPrometheus MetricsBackend = "prometheus"
	MetricsExpvar     MetricsBackend = "expvar"
)

// ExpvarName is the expvar variable holding coordinator counters.
const ExpvarName = "genecatalog_coordinator"

// TraceStderr as a trace file writes spans to the command's error stream.
const TraceStderr = "-"

// ObservabilityConfig selects the metrics backend and the span sink. An
// empty TraceFile disables tracing.
type ObservabilityConfig struct {
	Metrics   MetricsBackend
	TraceFile string
}

// Observability holds the recorder and tracer built from ObservabilityConfig.
type Observability struct {
	Metrics MetricsRecorder
	Tracer  Tracer

	provider *sdktrace.TracerProvider
	sink     io.Closer
}

// OpenObservability builds the configured recorder and tracer. Prometheus
// collectors are registered on reg. Call Shutdown to flush spans.
func OpenObservability(cfg ObservabilityConfig, reg prometheus.Registerer, stderr io.Writer) (*Observability, error) {
	o := &Observability{Metrics: noopMetricsRecorder{}, Tracer: noopTracer{}}
	switch cfg.Metrics {
	case "", MetricsPrometheus:
		o.Metrics = NewPrometheusMetricsRecorder(reg)
	case MetricsExpvar:
		o.Metrics = NewExpvarMetricsRecorder(ExpvarName)
	default:
		return nil, fmt.Errorf("unknown metrics backend %q", cfg.Metrics)
	}

	var w io.Writer
	switch cfg.TraceFile {
	case "":
		return o, nil
	case TraceStderr:
		w = stderr
	default:
		f, err := os.OpenFile(cfg.TraceFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		w, o.sink = f, f
	}
	o.provider = NewTracerProvider(NewJSONSpanExporter(w))
	o.Tracer = NewOtelTracer(o.provider)
	return o, nil
}

// Shutdown flushes pending spans and closes the trace file.
func (o *Observability) Shutdown(ctx context.Context) error {
	var err error
	if o.provider != nil {
		err = o.provider.Shutdown(ctx)
	}
	if o.sink != nil {
		if cerr := o.sink.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// NewTracerProvider returns an SDK provider that exports every span
// synchronously through exp.
func NewTracerProvider(exp sdktrace.SpanExporter) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", "genecatalog"))),
		sdktrace.WithSyncer(exp),
	)
}

var expvarMu sync.Mutex

// ExpvarMetricsRecorder counts coordinator operations in an expvar map. Keys
// are "<operation>.ok", "<operation>.error" and "<operation>.ms", the last
// being the summed duration in milliseconds.
type ExpvarMetricsRecorder struct {
	vars *expvar.Map
}

// NewExpvarMetricsRecorder publishes its map under name, reusing a map that
// is already published there. An empty name keeps the map private.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		return &ExpvarMetricsRecorder{vars: new(expvar.Map)}
	}
	expvarMu.Lock()
	defer expvarMu.Unlock()
	switch v := expvar.Get(name).(type) {
	case *expvar.Map:
		return &ExpvarMetricsRecorder{vars: v}
	case nil:
		return &ExpvarMetricsRecorder{vars: expvar.NewMap(name)}
	default:
		return &ExpvarMetricsRecorder{vars: new(expvar.Map)}
	}
}

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	outcome := "error"
	if success {
		outcome = "ok"
	}
	r.vars.Add(operation+"."+outcome, 1)
	r.vars.AddFloat(operation+".ms", float64(duration)/float64(time.Millisecond))
}

// Count returns the recorded operations with the given outcome.
func (r *ExpvarMetricsRecorder) Count(operation string, success bool) int64 {
	outcome := "error"
	if success {
		outcome = "ok"
	}
	if v, ok := r.vars.Get(operation + "." + outcome).(*expvar.Int); ok {
		return v.Value()
	}
	return 0
}

// Vars exposes the underlying map.
func (r *ExpvarMetricsRecorder) Vars() *expvar.Map { return r.vars }

// SpanLine is one exported span as written by JSONSpanExporter.
type SpanLine struct {
	Name       string    `json:"name"`
	TraceID    string    `json:"trace_id"`
	SpanID     string    `json:"span_id"`
	Status     string    `json:"status"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	Start      time.Time `json:"start"`
	DurationMS float64   `json:"duration_ms"`
}

// JSONSpanExporter writes finished spans to w as JSON lines.
type JSONSpanExporter struct {
	mu      sync.Mutex
	enc     *json.Encoder
	stopped bool
}

var _ sdktrace.SpanExporter = (*JSONSpanExporter)(nil)

// NewJSONSpanExporter returns an exporter writing to w.
func NewJSONSpanExporter(w io.Writer) *JSONSpanExporter {
	return &JSONSpanExporter{enc: json.NewEncoder(w)}
}

// ExportSpans implements sdktrace.SpanExporter.
func (e *JSONSpanExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return nil
	}
	for _, s := range spans {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.enc.Encode(spanLine(s)); err != nil {
			return fmt.Errorf("export span %s: %w", s.Name(), err)
		}
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter. Later exports are dropped.
func (e *JSONSpanExporter) Shutdown(context.Context) error {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
	return nil
}

func spanLine(s sdktrace.ReadOnlySpan) SpanLine {
	line := SpanLine{
		Name:       s.Name(),
		TraceID:    s.SpanContext().TraceID().String(),
		SpanID:     s.SpanContext().SpanID().String(),
		Status:     "ok",
		Start:      s.StartTime().UTC(),
		DurationMS: float64(s.EndTime().Sub(s.StartTime())) / float64(time.Millisecond),
	}
	if st := s.Status(); st.Code == codes.Error {
		line.Status = "error"
		line.Error = st.Description
	}
	for _, kv := range s.Attributes() {
		if kv.Key == errorKindKey {
			line.ErrorKind = kv.Value.AsString()
		}
	}
	return line
}
