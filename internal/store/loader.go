package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Source supplies a bulk snapshot, typically from the external spreadsheet
// API or the mirror database. Collections it could not read are left nil.
type Source interface {
	FetchAll(ctx context.Context) (Snapshot, error)
}

// Loader replaces the store's bootstrap data with a fetched snapshot in the
// background. Callers keep serving the bootstrap data until it lands.
type Loader struct {
	store   *Store
	source  Source
	timeout time.Duration
	logger  *slog.Logger
}

func NewLoader(store *Store, source Source, timeout time.Duration, logger *slog.Logger) *Loader {
	return &Loader{
		store:   store,
		source:  source,
		timeout: timeout,
		logger:  logger,
	}
}

// Start begins the fetch and returns immediately. The returned channel is
// closed once the attempt has finished, successfully or not.
func (l *Loader) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Load(ctx)
	}()
	return done
}

// Load fetches and applies a snapshot. Failures are logged only; the store
// keeps whatever it had.
func (l *Loader) Load(ctx context.Context) bool {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	snap, err := l.source.FetchAll(ctx)
	if err != nil {
		l.logger.Warn("bulk load failed, keeping local data",
			"error", err,
			"duration", time.Since(start))
		return false
	}

	if snap.Loans == nil && snap.Transactions == nil {
		l.logger.Info("bulk load returned nothing usable, keeping local data")
		return false
	}

	l.store.Replace(snap)
	l.logger.Info("bulk load applied",
		"loans", len(snap.Loans),
		"transactions", len(snap.Transactions),
		"duration", time.Since(start))
	return true
}

// FallbackSource asks each source in turn and returns the first snapshot that
// carries at least one collection. Each attempt gets its own timeout so a
// hanging source does not starve the ones after it.
type FallbackSource struct {
	sources []Source
	timeout time.Duration
	logger  *slog.Logger
}

func NewFallbackSource(timeout time.Duration, logger *slog.Logger, sources ...Source) *FallbackSource {
	return &FallbackSource{sources: sources, timeout: timeout, logger: logger}
}

func (f *FallbackSource) FetchAll(ctx context.Context) (Snapshot, error) {
	var lastErr error
	for i, src := range f.sources {
		if err := ctx.Err(); err != nil {
			return Snapshot{}, err
		}

		snap, err := f.fetch(ctx, src)
		if err != nil {
			f.logger.Warn("snapshot source failed, trying next", "source", i, "error", err)
			lastErr = err
			continue
		}
		if snap.Loans == nil && snap.Transactions == nil {
			f.logger.Info("snapshot source returned nothing, trying next", "source", i)
			continue
		}
		return snap, nil
	}
	if lastErr != nil {
		return Snapshot{}, fmt.Errorf("all snapshot sources failed: %w", lastErr)
	}
	return Snapshot{}, nil
}

func (f *FallbackSource) fetch(ctx context.Context, src Source) (Snapshot, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	return src.FetchAll(ctx)
}
