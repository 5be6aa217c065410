package core

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"genecatalog/pkg/domain"
)

const (
	tracerName   = "genecatalog/internal/core"
	errorKindKey = attribute.Key("genecatalog.error_kind")
)

// OtelTracer adapts an OpenTelemetry tracer provider to Tracer.
type OtelTracer struct {
	tracer trace.Tracer
}

// NewOtelTracer uses tp, or the global provider when tp is nil.
func NewOtelTracer(tp trace.TracerProvider) *OtelTracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &OtelTracer{tracer: tp.Tracer(tracerName)}
}

// Start implements Tracer.
func (o *OtelTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	ctx, span := o.tracer.Start(ctx, "coordinator."+operation)
	return ctx, otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) End(err error) {
	if err != nil {
		if kind := domain.KindOf(err); kind != "" {
			s.span.SetAttributes(errorKindKey.String(string(kind)))
		}
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}
