// Package analytics records searches and clicks out of band and folds them into suggestion usage.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mediasearch/internal/domain/analytics"
	"github.com/kailas-cloud/mediasearch/internal/domain/suggestion"
	"github.com/kailas-cloud/mediasearch/internal/metrics"
)

// Event kinds used as metric labels.
const (
	kindSearch = "search"
	kindClick  = "click"
)

// Defaults.
const (
	DefaultWorkers      = 4
	DefaultWriteTimeout = 2 * time.Second
)

// clickTypes are the vocabulary types a clicked query may have come from, besides TypeQuery.
var clickTypes = []suggestion.Type{
	suggestion.TypeTag,
	suggestion.TypeMachineModel,
	suggestion.TypeProcessType,
	suggestion.TypeAuthor,
	suggestion.TypeTitle,
}

// Config sizes the worker pool.
type Config struct {
	Workers      int
	WriteTimeout time.Duration
}

// Recorder accepts analytics records without blocking the caller.
// Records are processed by a bounded worker pool; when it is saturated the record is dropped and counted.
// Failures are logged and counted, never returned.
type Recorder struct {
	pool    *ants.Pool
	log     EventLog
	vocab   Vocabulary
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a recorder. log and vocab may be nil.
func New(log EventLog, vocab Vocabulary, cfg Config, logger *zap.Logger) (*Recorder, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	r := &Recorder{
		log:     log,
		vocab:   vocab,
		timeout: cfg.WriteTimeout,
		logger:  logger,
		now:     time.Now,
	}
	pool, err := ants.NewPool(cfg.Workers,
		ants.WithNonblocking(true),
		ants.WithLogger(zap.NewStdLog(logger)),
		ants.WithPanicHandler(func(p any) {
			logger.Error("Analytics worker panicked", zap.Any("panic", p))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	r.pool = pool
	return r, nil
}

// RecordSearch records one executed search.
func (r *Recorder) RecordSearch(ev analytics.Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = r.now().UTC()
	}
	r.submit(kindSearch, func() error { return r.processSearch(ev) })
}

// RecordClick records a result selection.
func (r *Recorder) RecordClick(c analytics.Click) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = r.now().UTC()
	}
	r.submit(kindClick, func() error { return r.processClick(c) })
}

func (r *Recorder) submit(kind string, task func() error) {
	err := r.pool.Submit(func() {
		if err := task(); err != nil {
			metrics.AnalyticsEventsTotal.WithLabelValues(kind, "failed").Inc()
			r.logger.Warn("Failed to record analytics event", zap.String("kind", kind), zap.Error(err))
			return
		}
		metrics.AnalyticsEventsTotal.WithLabelValues(kind, "recorded").Inc()
	})
	if err != nil {
		metrics.AnalyticsEventsTotal.WithLabelValues(kind, "dropped").Inc()
		if !errors.Is(err, ants.ErrPoolOverload) {
			r.logger.Warn("Analytics event dropped", zap.String("kind", kind), zap.Error(err))
		}
	}
}

// processSearch appends the event and applies its vocabulary increments.
func (r *Recorder) processSearch(ev analytics.Event) error {
	var logErr error
	if r.log != nil {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.log.AppendSearch(ctx, ev); err != nil {
			logErr = fmt.Errorf("append search: %w", err)
		}
	}
	r.applySearch(ev)
	return logErr
}

// processClick appends the click and applies its vocabulary increments.
func (r *Recorder) processClick(c analytics.Click) error {
	var logErr error
	if r.log != nil {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.log.AppendClick(ctx, c); err != nil {
			logErr = fmt.Errorf("append click: %w", err)
		}
	}
	r.applyClick(c)
	return logErr
}

// applySearch registers the query of a search that found something.
func (r *Recorder) applySearch(ev analytics.Event) {
	if r.vocab == nil || ev.ResultCount <= 0 {
		return
	}
	if q := ev.NormalizedQuery(); q != "" {
		r.vocab.Increment(suggestion.TypeQuery, q, 1, ev.Timestamp)
	}
}

// applyClick credits every vocabulary term equal to the clicked query:
// the query entry itself and any tag, model, process, author or title spelled the same way.
func (r *Recorder) applyClick(c analytics.Click) {
	q := c.NormalizedQuery()
	if r.vocab == nil || q == "" {
		return
	}
	r.vocab.Increment(suggestion.TypeQuery, q, 1, c.Timestamp)
	for _, t := range clickTypes {
		r.vocab.IncrementExisting(t, q, 1, c.Timestamp)
	}
}

// Replay folds a stored event log into the vocabulary without appending anything.
// Used to rebuild in-memory counters on startup. Returns the number of records applied.
func (r *Recorder) Replay(ctx context.Context, src Replayer) (int, error) {
	n := 0
	err := src.Replay(ctx, func(rec analytics.Record) error {
		switch {
		case rec.Search != nil:
			r.applySearch(*rec.Search)
		case rec.Click != nil:
			r.applyClick(*rec.Click)
		default:
			return nil
		}
		n++
		return nil
	})
	if err != nil {
		return n, fmt.Errorf("replay event log: %w", err)
	}
	return n, nil
}

// Running returns the number of busy workers.
func (r *Recorder) Running() int { return r.pool.Running() }

// Close stops accepting records and waits up to timeout for in-flight ones.
func (r *Recorder) Close(timeout time.Duration) error {
	if err := r.pool.ReleaseTimeout(timeout); err != nil {
		return fmt.Errorf("release analytics pool: %w", err)
	}
	return nil
}
