package service

import (
	"context"

	"golang.org/x/time/rate"

	"genecatalog/pkg/domain"
)

const sourceName = "Backend API"

// Logger is the subset of structured logging the loader emits.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Loader loads the full gene collection from the listing service.
type Loader struct {
	client *Client
	pager  Pager
	logger Logger
}

// Option customizes a Loader.
type Option func(*Loader)

// WithPageSize overrides DefaultPageSize.
func WithPageSize(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.pager.PageSize = n
		}
	}
}

// WithPageRate limits page requests to rps per second. Zero disables pacing.
func WithPageRate(rps float64) Option {
	return func(l *Loader) {
		if rps > 0 {
			l.pager.Limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger sets the logger used for dropped-row warnings.
func WithLogger(logger Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader constructs a Loader using client.
func NewLoader(client *Client, opts ...Option) *Loader {
	l := &Loader{
		client: client,
		pager:  Pager{PageSize: DefaultPageSize},
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the human-readable source name.
func (l *Loader) Name() string { return sourceName }

// Client exposes the underlying service client.
func (l *Loader) Client() *Client { return l.client }

// IsAvailable checks the health endpoint.
func (l *Loader) IsAvailable(ctx context.Context) bool {
	ok, err := l.client.Health(ctx)
	if err != nil {
		l.logger.Debug("listing service health check failed", "base_url", l.client.BaseURL(), "error", err)
		return false
	}
	return ok
}

// LoadAll pages through the listing endpoint and normalizes every row.
func (l *Loader) LoadAll(ctx context.Context) ([]domain.GeneRecord, error) {
	rows, err := l.pager.FetchAll(ctx, func(ctx context.Context, skip, limit int) ([]Row, error) {
		return l.client.ListGenes(ctx, domain.GeneQuery{Skip: skip, Limit: limit})
	})
	if err != nil {
		return nil, err
	}
	records := make([]domain.GeneRecord, len(rows))
	for i, row := range rows {
		records[i] = row.Record()
	}
	kept, blank, dup := domain.DropInvalid(records)
	if blank > 0 || dup > 0 {
		l.logger.Warn("dropped gene rows", "source", domain.SourceService, "blank_id", blank, "duplicate_id", dup)
	}
	l.logger.Debug("listing service loaded", "base_url", l.client.BaseURL(), "records", len(kept))
	return kept, nil
}
