package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/fews-client/internal/domain"
	"github.com/couchcryptid/fews-client/internal/observability"
	"github.com/google/uuid"
)

// DatasetLoader publishes a decoded dataset and reports how many messages it wrote.
type DatasetLoader interface {
	LoadDataset(ctx context.Context, exportID string, ds *domain.Dataset) (int, error)
}

// Report summarizes one completed export.
type Report struct {
	ExportID  string
	Start     time.Time
	End       time.Time
	Variables int
	Times     int
	Missing   int
	Messages  int
}

// Options configures the poll loop.
type Options struct {
	Query        domain.TimeSeriesQuery
	PollInterval time.Duration
	Lookback     time.Duration
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
	maxAttempts    = 5
)

// Exporter periodically fetches a time series window, decodes it, and
// publishes the dataset.
type Exporter struct {
	source  domain.TimeSeriesSource
	loader  DatasetLoader
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool

	mu       sync.RWMutex
	lastID   string
	lastData *domain.Dataset

	newID          func() string
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// New creates an Exporter reading from src and publishing to l.
func New(src domain.TimeSeriesSource, l DatasetLoader, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Exporter {
	return &Exporter{
		source:         src,
		loader:         l,
		opts:           opts,
		logger:         logger,
		metrics:        metrics,
		newID:          uuid.NewString,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
	}
}

// CheckReadiness returns nil once an export has completed.
func (e *Exporter) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("exporter has not completed an export yet")
	}
	return nil
}

// LastDataset returns the most recently published dataset.
func (e *Exporter) LastDataset() (string, *domain.Dataset, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastID, e.lastData, e.lastData != nil
}

// Run exports immediately and then once per poll interval until the context
// is cancelled.
func (e *Exporter) Run(ctx context.Context) error {
	e.logger.Info("exporter started", "poll_interval", e.opts.PollInterval, "lookback", e.opts.Lookback)
	e.metrics.ExporterRunning.Set(1)
	defer e.metrics.ExporterRunning.Set(0)

	ticker := clock.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()

	for {
		e.exportWindow(ctx, clock.Now())

		select {
		case <-ctx.Done():
			e.logger.Info("exporter stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

// exportWindow exports [now-lookback, now], retrying with exponential backoff.
// The window is fixed across retries so a cached source can answer them.
// Returns false if the window was abandoned.
func (e *Exporter) exportWindow(ctx context.Context, now time.Time) bool {
	end := now.UTC().Truncate(time.Second)
	start := end.Add(-e.opts.Lookback)
	backoff := e.initialBackoff

	for attempt := 1; ; attempt++ {
		_, err := e.ExportOnce(ctx, start, end)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		if attempt >= maxAttempts {
			e.logger.Error("export abandoned until next poll", "error", err, "attempts", attempt,
				"start", domain.FormatTime(start), "end", domain.FormatTime(end))
			return false
		}
		e.logger.Warn("export failed, retrying", "error", err, "attempt", attempt, "backoff", backoff)
		if !sleepWithContext(ctx, backoff) {
			return false
		}
		backoff = nextBackoff(backoff, e.maxBackoff)
	}
}

// ExportOnce runs a single fetch, decode, and publish cycle over [start, end].
func (e *Exporter) ExportOnce(ctx context.Context, start, end time.Time) (Report, error) {
	began := clock.Now()

	ds, err := domain.FetchDataset(ctx, e.source, e.opts.Query.WithWindow(start, end), e.metrics)
	if err != nil {
		e.metrics.ExportErrors.Inc()
		return Report{}, err
	}
	missing := ds.MissingValues()

	id := e.newID()
	n, err := e.loader.LoadDataset(ctx, id, ds)
	if err != nil {
		e.metrics.ExportErrors.Inc()
		return Report{}, fmt.Errorf("load dataset: %w", err)
	}

	e.metrics.MessagesProduced.Add(float64(n))
	e.metrics.ExportsCompleted.Inc()
	e.metrics.ExportDuration.Observe(clock.Since(began).Seconds())

	e.mu.Lock()
	e.lastID, e.lastData = id, ds
	e.mu.Unlock()
	e.ready.Store(true)

	r := Report{
		ExportID:  id,
		Start:     start,
		End:       end,
		Variables: len(ds.Variables),
		Times:     len(ds.Time),
		Missing:   missing,
		Messages:  n,
	}
	e.logger.Info("export complete",
		"export_id", r.ExportID,
		"start", domain.FormatTime(start),
		"end", domain.FormatTime(end),
		"variables", r.Variables,
		"times", r.Times,
		"missing", r.Missing,
		"messages", r.Messages,
	)
	return r, nil
}

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit {
		return limit
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
