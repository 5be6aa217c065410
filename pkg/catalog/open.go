package catalog

import (
	"context"
	"fmt"
	"net/http"

	"genecatalog/internal/blob"
	"genecatalog/internal/config"
	"genecatalog/internal/core"
	"genecatalog/internal/infra/source/file"
	"genecatalog/internal/infra/source/service"
	"genecatalog/pkg/domain"
)

type (
	// Logger receives structured log events.
	Logger = core.Logger
	// MetricsRecorder observes coordinator operations.
	MetricsRecorder = core.MetricsRecorder
	// Tracer wraps coordinator operations in spans.
	Tracer = core.Tracer
)

type openOptions struct {
	logger     Logger
	metrics    MetricsRecorder
	tracer     Tracer
	httpClient *http.Client
	blobStore  blob.Store
}

// Option customizes Open.
type Option func(*openOptions)

// WithLogger routes loader and coordinator logs to logger.
func WithLogger(logger Logger) Option {
	return func(o *openOptions) { o.logger = logger }
}

// WithMetrics records coordinator operations.
func WithMetrics(m MetricsRecorder) Option {
	return func(o *openOptions) { o.metrics = m }
}

// WithTracer traces coordinator operations.
func WithTracer(t Tracer) Option {
	return func(o *openOptions) { o.tracer = t }
}

// WithHTTPClient sets the client used to reach the listing service.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *openOptions) { o.httpClient = hc }
}

// WithBlobStore reads the gene file from store instead of opening the
// configured blob driver.
func WithBlobStore(store blob.Store) Option {
	return func(o *openOptions) { o.blobStore = store }
}

// Open wires both sources, the registry, the preference store, and the
// coordinator from cfg. It does not load any data.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*Catalog, error) {
	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}

	store := o.blobStore
	if store == nil {
		var err error
		store, err = blob.Open(ctx, cfg.BlobStoreConfig())
		if err != nil {
			return nil, fmt.Errorf("open blob store: %w", err)
		}
	}
	fileOpts := []file.Option{file.WithKey(cfg.Sources.File.Key)}
	if store.Driver() == blob.DriverS3 {
		fileOpts = append(fileOpts, file.WithResourceCheck())
	}
	if o.logger != nil {
		fileOpts = append(fileOpts, file.WithLogger(o.logger))
	}
	fileLoader := file.New(store, fileOpts...)

	svc := cfg.Sources.Service
	clientOpts := []service.ClientOption{
		service.WithHealthTimeout(svc.HealthTimeout),
		service.WithFetchTimeout(svc.FetchTimeout),
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, service.WithHTTPClient(o.httpClient))
	}
	loaderOpts := []service.Option{
		service.WithPageSize(svc.PageSize),
		service.WithPageRate(svc.PageRate),
	}
	if o.logger != nil {
		loaderOpts = append(loaderOpts, service.WithLogger(o.logger))
	}
	serviceLoader := service.NewLoader(service.NewClient(svc.BaseURL, clientOpts...), loaderOpts...)

	prefs, closePrefs, err := core.OpenPreferenceStore(cfg.PreferencePath)
	if err != nil {
		return nil, fmt.Errorf("open preference store: %w", err)
	}
	coord, err := core.NewCoordinator(
		core.DefaultRegistry(svc.Enabled),
		map[domain.SourceID]core.Loader{
			domain.SourceFile:    fileLoader,
			domain.SourceService: serviceLoader,
		},
		core.WithLogger(o.logger),
		core.WithMetrics(o.metrics),
		core.WithTracer(o.tracer),
		core.WithPreferences(prefs),
		core.WithDefaultSource(cfg.Sources.Default),
	)
	if err != nil {
		_ = closePrefs()
		return nil, err
	}
	c := New(coord)
	c.closers = append(c.closers, closePrefs)
	return c, nil
}
