package core

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"genecatalog/pkg/domain"
)

type fakeLoader struct {
	name      string
	available atomic.Bool
	records   []domain.GeneRecord
	err       error
	gate      chan struct{}
	loads     atomic.Int32
	checks    atomic.Int32
}

func newFakeLoader(name string, available bool, ids ...string) *fakeLoader {
	l := &fakeLoader{name: name}
	l.available.Store(available)
	for _, id := range ids {
		l.records = append(l.records, domain.GeneRecord{ID: id, Chromosome: "1", Biotype: "lncRNA"})
	}
	return l
}

func (f *fakeLoader) LoadAll(ctx context.Context) ([]domain.GeneRecord, error) {
	f.loads.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return domain.CloneRecords(f.records), nil
}

func (f *fakeLoader) IsAvailable(context.Context) bool {
	f.checks.Add(1)
	return f.available.Load()
}

func (f *fakeLoader) Name() string { return f.name }

func newTestCoordinator(t *testing.T, file, svc *fakeLoader, opts ...CoordinatorOption) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(DefaultRegistry(true), map[domain.SourceID]Loader{
		domain.SourceFile:    file,
		domain.SourceService: svc,
	}, opts...)
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	return c
}

func ids(records []domain.GeneRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestLoadFallsBackToFile(t *testing.T) {
	file := newFakeLoader("CSV File", true, "F1", "F2")
	svc := newFakeLoader("Backend API", false, "S1")
	prefs := NewMemoryPreferenceStore()
	c := newTestCoordinator(t, file, svc, WithDefaultSource(domain.SourceService), WithPreferences(prefs))
	if c.Current() != domain.SourceService {
		t.Fatalf("expected service as initial source")
	}
	records, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 2 || records[0].ID != "F1" {
		t.Fatalf("unexpected records %v", ids(records))
	}
	if c.Current() != domain.SourceFile || c.CurrentSourceName() != "CSV File" {
		t.Fatalf("expected fallback to file, current=%s", c.Current())
	}
	if svc.loads.Load() != 0 {
		t.Fatalf("unavailable source must not be loaded")
	}
	if id, _ := prefs.LoadSource(context.Background()); id != "" {
		t.Fatalf("fallback must not be saved as the preference, got %q", id)
	}
	snap := c.Snapshot()
	if snap.Available[domain.SourceService] || !snap.Available[domain.SourceFile] {
		t.Fatalf("unexpected last known availability %+v", snap)
	}

	svc.available.Store(true)
	next := newTestCoordinator(t, file, svc, WithDefaultSource(domain.SourceService), WithPreferences(prefs))
	if next.Current() != domain.SourceService {
		t.Fatalf("next session must start on the configured default, got %s", next.Current())
	}
	records, err = next.Load(context.Background())
	if err != nil || len(records) != 1 || records[0].ID != "S1" {
		t.Fatalf("expected service records, got %v err=%v", ids(records), err)
	}
}

func TestExplicitSwitchOverridesDefaultNextSession(t *testing.T) {
	file := newFakeLoader("CSV File", true, "F1")
	svc := newFakeLoader("Backend API", true, "S1")
	prefs := NewMemoryPreferenceStore()
	c := newTestCoordinator(t, file, svc, WithDefaultSource(domain.SourceService), WithPreferences(prefs))
	if _, err := c.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if id, _ := prefs.LoadSource(context.Background()); id != "" {
		t.Fatalf("plain load must not save a preference, got %q", id)
	}
	if _, err := c.SwitchTo(context.Background(), domain.SourceFile); err != nil {
		t.Fatalf("switch: %v", err)
	}
	next := newTestCoordinator(t, file, svc, WithDefaultSource(domain.SourceService), WithPreferences(prefs))
	if next.Current() != domain.SourceFile {
		t.Fatalf("explicit switch must be restored, got %s", next.Current())
	}
}

func TestLoadNoSourceAvailable(t *testing.T) {
	file := newFakeLoader("CSV File", false)
	svc := newFakeLoader("Backend API", false)
	c := newTestCoordinator(t, file, svc, WithDefaultSource(domain.SourceService))
	if _, err := c.Load(context.Background()); !errors.Is(err, domain.ErrNoSourceAvailable) {
		t.Fatalf("expected NoSourceAvailable, got %v", err)
	}
	if c.Current() != domain.SourceService {
		t.Fatalf("current must not change on failure")
	}

	fileOnly := newTestCoordinator(t, newFakeLoader("CSV File", false), newFakeLoader("Backend API", true))
	if _, err := fileOnly.Load(context.Background()); !errors.Is(err, domain.ErrNoSourceAvailable) {
		t.Fatalf("expected NoSourceAvailable when file is current and unavailable, got %v", err)
	}
}

func TestLoadPropagatesLoaderFailure(t *testing.T) {
	file := newFakeLoader("CSV File", true)
	file.err = domain.NewError(domain.KindParseFailed, domain.SourceFile, errors.New("no header"))
	c := newTestCoordinator(t, file, newFakeLoader("Backend API", true))
	if _, err := c.Load(context.Background()); !errors.Is(err, domain.ErrParseFailed) {
		t.Fatalf("expected ParseFailed, got %v", err)
	}
	if len(c.Records()) != 0 {
		t.Fatalf("failed load must not commit records")
	}
}

func TestSwitchToRejectsUnavailable(t *testing.T) {
	file := newFakeLoader("CSV File", true, "F1")
	svc := newFakeLoader("Backend API", false, "S1")
	c := newTestCoordinator(t, file, svc)
	if _, err := c.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	_, err := c.SwitchTo(context.Background(), domain.SourceService)
	if !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Fatalf("expected SourceUnavailable, got %v", err)
	}
	if c.Current() != domain.SourceFile {
		t.Fatalf("current must stay file, got %s", c.Current())
	}
	if got := ids(c.Records()); len(got) != 1 || got[0] != "F1" {
		t.Fatalf("collection must stay intact, got %v", got)
	}
	if _, err := c.SwitchTo(context.Background(), "ftp"); !errors.Is(err, domain.ErrUnknownSource) {
		t.Fatalf("expected UnknownSource, got %v", err)
	}
}

func TestSwitchToDisabledSource(t *testing.T) {
	c, err := NewCoordinator(DefaultRegistry(false), map[domain.SourceID]Loader{
		domain.SourceFile:    newFakeLoader("CSV File", true),
		domain.SourceService: newFakeLoader("Backend API", true, "S1"),
	})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	if _, err := c.SwitchTo(context.Background(), domain.SourceService); !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Fatalf("expected SourceUnavailable for disabled source, got %v", err)
	}
	if c.Status(context.Background()).Available[domain.SourceService] {
		t.Fatalf("disabled source must report unavailable")
	}
}

func TestSwitchToLoadsAndPersists(t *testing.T) {
	file := newFakeLoader("CSV File", true, "F1")
	svc := newFakeLoader("Backend API", true, "S1", "S2", "S3")
	prefs := NewMemoryPreferenceStore()
	c := newTestCoordinator(t, file, svc, WithPreferences(prefs))
	records, err := c.SwitchTo(context.Background(), domain.SourceService)
	if err != nil {
		t.Fatalf("switch: %v", err)
	}
	if len(records) != 3 || c.CurrentSourceName() != "Backend API" {
		t.Fatalf("unexpected switch result %v / %s", ids(records), c.CurrentSourceName())
	}
	if id, _ := prefs.LoadSource(context.Background()); id != domain.SourceService {
		t.Fatalf("expected preference saved, got %q", id)
	}
	again, err := c.SwitchTo(context.Background(), domain.SourceService)
	if err != nil || len(again) != 3 {
		t.Fatalf("same-source switch: %v %v", ids(again), err)
	}
	if svc.loads.Load() != 1 {
		t.Fatalf("same-source switch must not reload, loads=%d", svc.loads.Load())
	}

	restored := newTestCoordinator(t, newFakeLoader("CSV File", true), newFakeLoader("Backend API", true), WithPreferences(prefs))
	if restored.Current() != domain.SourceService {
		t.Fatalf("expected persisted preference to seed current source")
	}
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	file := newFakeLoader("CSV File", true, "F1")
	svc := newFakeLoader("Backend API", true, "S1", "S2")
	svc.gate = make(chan struct{})
	c := newTestCoordinator(t, file, svc, WithDefaultSource(domain.SourceService))

	var wg sync.WaitGroup
	var staleErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, staleErr = c.Load(context.Background())
	}()
	deadline := time.Now().Add(2 * time.Second)
	for svc.loads.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("slow load never started")
		}
		time.Sleep(time.Millisecond)
	}

	records, err := c.SwitchTo(context.Background(), domain.SourceFile)
	if err != nil {
		t.Fatalf("switch: %v", err)
	}
	if got := ids(records); len(got) != 1 || got[0] != "F1" {
		t.Fatalf("unexpected switch records %v", got)
	}
	close(svc.gate)
	wg.Wait()

	if !errors.Is(staleErr, domain.ErrSuperseded) {
		t.Fatalf("expected stale load to report Superseded, got %v", staleErr)
	}
	if c.Current() != domain.SourceFile {
		t.Fatalf("stale load overwrote current source: %s", c.Current())
	}
	if got := ids(c.Records()); len(got) != 1 || got[0] != "F1" {
		t.Fatalf("stale load overwrote records: %v", got)
	}
}

func TestStatusChecksAllSources(t *testing.T) {
	file := newFakeLoader("CSV File", true)
	svc := newFakeLoader("Backend API", false)
	c := newTestCoordinator(t, file, svc)
	state := c.Status(context.Background())
	if state.Current != domain.SourceFile || !state.Available[domain.SourceFile] || state.Available[domain.SourceService] {
		t.Fatalf("unexpected state %+v", state)
	}
	if file.checks.Load() != 1 || svc.checks.Load() != 1 {
		t.Fatalf("expected one check each, got %d/%d", file.checks.Load(), svc.checks.Load())
	}
	state.Available[domain.SourceService] = true
	if c.Snapshot().Available[domain.SourceService] {
		t.Fatalf("status must return a copy")
	}
	svc.available.Store(true)
	if !c.Status(context.Background()).Available[domain.SourceService] {
		t.Fatalf("status must re-check")
	}
}

func TestCoordinatorObservability(t *testing.T) {
	metrics := NewExpvarMetricsRecorder("")
	var spans bytes.Buffer
	tp := NewTracerProvider(NewJSONSpanExporter(&spans))
	logger := &captureLogger{}
	c := newTestCoordinator(t, newFakeLoader("CSV File", true, "F1"), newFakeLoader("Backend API", false),
		WithMetrics(metrics), WithTracer(NewOtelTracer(tp)), WithLogger(logger))
	if _, err := c.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	_, _ = c.SwitchTo(context.Background(), domain.SourceService)
	c.Status(context.Background())
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if metrics.Count(OperationLoad, true) != 1 || metrics.Count(OperationSwitch, false) != 1 || metrics.Count(OperationStatus, true) != 1 {
		t.Fatalf("unexpected metrics %s", metrics.Vars())
	}
	lines := decodeSpanLines(t, &spans)
	if len(lines) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(lines))
	}
	if lines[1].Name != "coordinator."+OperationSwitch || lines[1].ErrorKind != string(domain.KindSourceUnavailable) {
		t.Fatalf("unexpected switch span %+v", lines[1])
	}
	if len(logger.calls) == 0 {
		t.Fatalf("expected logger calls")
	}
}

func TestNewCoordinatorValidation(t *testing.T) {
	if _, err := NewCoordinator(nil, nil); err == nil {
		t.Fatalf("expected nil registry error")
	}
	if _, err := NewCoordinator(DefaultRegistry(true), map[domain.SourceID]Loader{
		domain.SourceFile: newFakeLoader("CSV File", true),
	}); err == nil {
		t.Fatalf("expected missing loader error")
	}
	onlyService, _ := NewRegistry(domain.SourceDescriptor{ID: domain.SourceService, Enabled: true})
	if _, err := NewCoordinator(onlyService, map[domain.SourceID]Loader{
		domain.SourceService: newFakeLoader("Backend API", true),
	}); err == nil {
		t.Fatalf("expected missing file source error")
	}
}

type failingPrefs struct{}

func (failingPrefs) LoadSource(context.Context) (domain.SourceID, error) { return "", errors.New("disk") }
func (failingPrefs) SaveSource(context.Context, domain.SourceID) error  { return errors.New("disk") }

func TestPreferenceFailuresAreNotFatal(t *testing.T) {
	logger := &captureLogger{}
	c := newTestCoordinator(t, newFakeLoader("CSV File", true, "F1"), newFakeLoader("Backend API", true, "S1"),
		WithPreferences(failingPrefs{}), WithLogger(logger))
	if _, err := c.SwitchTo(context.Background(), domain.SourceService); err != nil {
		t.Fatalf("switch must succeed despite preference failure: %v", err)
	}
	var warned int
	for _, call := range logger.calls {
		if call[:2] == "w:" {
			warned++
		}
	}
	if warned < 2 {
		t.Fatalf("expected load and save warnings, got %v", logger.calls)
	}

	unknown := NewMemoryPreferenceStore()
	_ = unknown.SaveSource(context.Background(), "ftp")
	c = newTestCoordinator(t, newFakeLoader("CSV File", true), newFakeLoader("Backend API", true), WithPreferences(unknown))
	if c.Current() != domain.SourceFile {
		t.Fatalf("unknown preference must be ignored")
	}
}
