package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"genecatalog/pkg/domain"
)

// Coordinator owns the active gene source and the loaded collection. Every
// Load and SwitchTo takes a generation number on entry and commits only if
// no newer call has started since, so a slow superseded load can never
// overwrite the result of a newer one. The mutex guards state swaps only and
// is never held across I/O.
type Coordinator struct {
	registry *Registry
	loaders  map[domain.SourceID]Loader
	opts     coordinatorOptions

	generation atomic.Uint64

	mu        sync.Mutex
	current   domain.SourceID
	available map[domain.SourceID]bool
	records   []domain.GeneRecord
	loaded    bool
}

type coordinatorOptions struct {
	logger        Logger
	metrics       MetricsRecorder
	tracer        Tracer
	prefs         PreferenceStore
	defaultSource domain.SourceID
}

// CoordinatorOption customizes a Coordinator.
type CoordinatorOption func(*coordinatorOptions)

func defaultCoordinatorOptions() coordinatorOptions {
	return coordinatorOptions{
		logger:        noopLogger{},
		metrics:       noopMetricsRecorder{},
		tracer:        noopTracer{},
		defaultSource: domain.SourceFile,
	}
}

// WithLogger sets the coordinator logger.
func WithLogger(logger Logger) CoordinatorOption {
	return func(o *coordinatorOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(recorder MetricsRecorder) CoordinatorOption {
	return func(o *coordinatorOptions) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) CoordinatorOption {
	return func(o *coordinatorOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithPreferences persists the active source through store.
func WithPreferences(store PreferenceStore) CoordinatorOption {
	return func(o *coordinatorOptions) { o.prefs = store }
}

// WithDefaultSource sets the source used when no valid preference exists.
func WithDefaultSource(id domain.SourceID) CoordinatorOption {
	return func(o *coordinatorOptions) {
		if id != "" {
			o.defaultSource = id
		}
	}
}

// NewCoordinator wires a loader to every registered source. The file source
// must be registered since it is the fallback target.
func NewCoordinator(registry *Registry, loaders map[domain.SourceID]Loader, opts ...CoordinatorOption) (*Coordinator, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry required")
	}
	if !registry.Has(domain.SourceFile) {
		return nil, fmt.Errorf("registry must include the %s source", domain.SourceFile)
	}
	o := defaultCoordinatorOptions()
	for _, opt := range opts {
		opt(&o)
	}
	c := &Coordinator{
		registry:  registry,
		loaders:   make(map[domain.SourceID]Loader, len(loaders)),
		opts:      o,
		available: make(map[domain.SourceID]bool),
	}
	for _, d := range registry.List() {
		l, ok := loaders[d.ID]
		if !ok || l == nil {
			return nil, fmt.Errorf("no loader for source %s", d.ID)
		}
		c.loaders[d.ID] = l
	}
	c.current = c.initialSource()
	return c, nil
}

func (c *Coordinator) initialSource() domain.SourceID {
	if c.opts.prefs != nil {
		id, err := c.opts.prefs.LoadSource(context.Background())
		switch {
		case err != nil:
			c.opts.logger.Warn("load source preference failed", "error", err)
		case id != "" && c.registry.Has(id):
			return id
		case id != "":
			c.opts.logger.Warn("ignoring unknown source preference", "source", id)
		}
	}
	if c.registry.Has(c.opts.defaultSource) {
		return c.opts.defaultSource
	}
	c.opts.logger.Warn("default source not registered, using file", "source", c.opts.defaultSource)
	return domain.SourceFile
}

// Current returns the active source id.
func (c *Coordinator) Current() domain.SourceID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// CurrentSourceName returns the display name of the active source's loader.
func (c *Coordinator) CurrentSourceName() string {
	return c.loaders[c.Current()].Name()
}

// Records returns a copy of the last committed collection.
func (c *Coordinator) Records() []domain.GeneRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.CloneRecords(c.records)
}

// Loaded reports whether any load or switch has committed a collection,
// including an empty one.
func (c *Coordinator) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Registry returns the source registry.
func (c *Coordinator) Registry() *Registry { return c.registry }

// Snapshot returns the last known access state without probing.
func (c *Coordinator) Snapshot() domain.AccessState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.AccessState{Current: c.current, Available: c.available}.Clone()
}

// Load loads the collection from the active source. When the active source
// is unavailable it falls back to the file source; if that is unavailable
// too the call fails with NoSourceAvailable. Loader failures are returned
// unchanged.
func (c *Coordinator) Load(ctx context.Context) (records []domain.GeneRecord, err error) {
	gen := c.generation.Add(1)
	ctx, finish := c.instrument(ctx, OperationLoad)
	defer func() { finish(err) }()

	current := c.Current()
	target := current
	if !c.check(ctx, current) {
		if current == domain.SourceFile {
			return nil, domain.NewError(domain.KindNoSourceAvailable, current, nil)
		}
		c.opts.logger.Warn("source unavailable, falling back", "source", current, "fallback", domain.SourceFile)
		if !c.check(ctx, domain.SourceFile) {
			return nil, domain.NewError(domain.KindNoSourceAvailable, current, nil)
		}
		target = domain.SourceFile
	}
	c.opts.logger.Info("loading genes", "source", target, "name", c.loaders[target].Name())
	loaded, err := c.loaders[target].LoadAll(ctx)
	if err != nil {
		if c.stale(gen) {
			return nil, domain.NewError(domain.KindSuperseded, target, err)
		}
		return nil, err
	}
	return c.commit(ctx, gen, target, loaded, false)
}

// SwitchTo makes id the active source and loads its collection. It never
// falls back: an unregistered id is UnknownSource, a disabled or unreachable
// one is SourceUnavailable, and the active source stays unchanged on any
// failure. Switching to the active source once a collection is loaded
// returns that collection without reloading. A successful switch is the only
// thing saved as the source preference; Load's fallback lasts for the
// session.
func (c *Coordinator) SwitchTo(ctx context.Context, id domain.SourceID) (records []domain.GeneRecord, err error) {
	ctx, finish := c.instrument(ctx, OperationSwitch)
	defer func() { finish(err) }()

	desc, err := c.registry.Describe(id)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.current == id && c.loaded {
		out := domain.CloneRecords(c.records)
		c.mu.Unlock()
		c.savePreference(ctx, id)
		return out, nil
	}
	c.mu.Unlock()

	gen := c.generation.Add(1)
	if !desc.Enabled {
		return nil, domain.NewError(domain.KindSourceUnavailable, id, fmt.Errorf("source disabled"))
	}
	if !c.check(ctx, id) {
		return nil, domain.NewError(domain.KindSourceUnavailable, id, nil)
	}
	loaded, err := c.loaders[id].LoadAll(ctx)
	if err != nil {
		if c.stale(gen) {
			return nil, domain.NewError(domain.KindSuperseded, id, err)
		}
		return nil, err
	}
	return c.commit(ctx, gen, id, loaded, true)
}

// Status checks every registered source concurrently and returns the
// resulting access state.
func (c *Coordinator) Status(ctx context.Context) (state domain.AccessState) {
	ctx, finish := c.instrument(ctx, OperationStatus)
	defer finish(nil)

	descs := c.registry.List()
	results := make([]bool, len(descs))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range descs {
		g.Go(func() error {
			results[i] = d.Enabled && c.loaders[d.ID].IsAvailable(gctx)
			return nil
		})
	}
	_ = g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, d := range descs {
		c.available[d.ID] = results[i]
	}
	return domain.AccessState{Current: c.current, Available: c.available}.Clone()
}

// check tests one source and records the outcome as last-known state.
func (c *Coordinator) check(ctx context.Context, id domain.SourceID) bool {
	desc, err := c.registry.Describe(id)
	ok := err == nil && desc.Enabled && c.loaders[id].IsAvailable(ctx)
	c.mu.Lock()
	c.available[id] = ok
	c.mu.Unlock()
	return ok
}

func (c *Coordinator) stale(gen uint64) bool {
	return gen != c.generation.Load()
}

// commit installs a completed load if gen is still the newest call. persist
// saves id as the source preference.
func (c *Coordinator) commit(ctx context.Context, gen uint64, id domain.SourceID, records []domain.GeneRecord, persist bool) ([]domain.GeneRecord, error) {
	c.mu.Lock()
	if c.stale(gen) {
		c.mu.Unlock()
		c.opts.logger.Debug("discarding superseded load", "source", id, "generation", gen)
		return nil, domain.NewError(domain.KindSuperseded, id, nil)
	}
	c.current = id
	c.records = records
	c.loaded = true
	out := domain.CloneRecords(records)
	c.mu.Unlock()

	c.opts.logger.Info("genes loaded", "source", id, "records", len(records))
	if persist {
		c.savePreference(ctx, id)
	}
	return out, nil
}

func (c *Coordinator) savePreference(ctx context.Context, id domain.SourceID) {
	if c.opts.prefs == nil {
		return
	}
	if err := c.opts.prefs.SaveSource(ctx, id); err != nil {
		c.opts.logger.Warn("save source preference failed", "source", id, "error", err)
	}
}

func (c *Coordinator) instrument(ctx context.Context, op string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := c.opts.tracer.Start(ctx, op)
	return ctx, func(err error) {
		c.opts.metrics.Observe(ctx, op, err == nil, time.Since(start))
		span.End(err)
	}
}
