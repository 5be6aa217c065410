// Package file loads gene records from a semicolon-delimited resource held
// in a blob store.
package file

import (
	"context"
	"errors"
	"time"

	"genecatalog/internal/blob"
	"genecatalog/pkg/domain"
)

const (
	// DefaultKey is the blob key of the bundled human gene table.
	DefaultKey = "genes_human.csv"
	// DefaultCheckTimeout bounds the Head request issued by IsAvailable.
	DefaultCheckTimeout = 5 * time.Second

	sourceName = "CSV File"
)

// Logger is the subset of structured logging the loader emits.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Loader reads the gene resource through a blob.Store.
type Loader struct {
	store         blob.Store
	key           string
	checkResource bool
	checkTimeout  time.Duration
	logger        Logger
}

// Option customizes a Loader.
type Option func(*Loader)

// WithKey overrides the blob key read by the loader.
func WithKey(key string) Option {
	return func(l *Loader) {
		if key != "" {
			l.key = key
		}
	}
}

// WithResourceCheck makes IsAvailable confirm the resource exists with a
// Head request instead of assuming it does.
func WithResourceCheck() Option {
	return func(l *Loader) { l.checkResource = true }
}

// WithCheckTimeout overrides DefaultCheckTimeout.
func WithCheckTimeout(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.checkTimeout = d
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

// New constructs a Loader over store.
func New(store blob.Store, opts ...Option) *Loader {
	l := &Loader{
		store:        store,
		key:          DefaultKey,
		checkTimeout: DefaultCheckTimeout,
		logger:       noopLogger{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the human-readable source name.
func (l *Loader) Name() string { return sourceName }

// Key returns the blob key the loader reads.
func (l *Loader) Key() string { return l.key }

// IsAvailable reports whether the resource can be read. Without a resource
// check the bundled file is assumed present.
func (l *Loader) IsAvailable(ctx context.Context) bool {
	if !l.checkResource {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, l.checkTimeout)
	defer cancel()
	_, err := l.store.Head(ctx, l.key)
	if err != nil {
		l.logger.Debug("gene resource check failed", "key", l.key, "error", err)
		return false
	}
	return true
}

// LoadAll reads and normalizes the full resource. Rows with a blank ID and
// repeated IDs are dropped and counted.
func (l *Loader) LoadAll(ctx context.Context) ([]domain.GeneRecord, error) {
	info, rc, err := l.store.Get(ctx, l.key)
	if err != nil {
		return nil, domain.NewError(domain.KindFetchFailed, domain.SourceFile, err)
	}
	defer func() { _ = rc.Close() }()

	records, err := Parse(rc)
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, domain.NewError(domain.KindParseFailed, domain.SourceFile, err)
	}
	kept, blank, dup := domain.DropInvalid(records)
	if blank > 0 || dup > 0 {
		l.logger.Warn("dropped gene rows", "source", domain.SourceFile, "key", l.key, "blank_id", blank, "duplicate_id", dup)
	}
	l.logger.Debug("gene resource loaded", "key", l.key, "etag", info.ETag, "records", len(kept))
	return kept, nil
}
