package suggest

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Refresher re-reads the catalog and the persisted counters into the vocabulary.
// It implements cron.Job.
type Refresher struct {
	vocab   *Vocabulary
	src     DocumentSource
	timeout time.Duration
	logger  *zap.Logger
}

// NewRefresher creates a refresh job. src may be nil to only reload counters.
func NewRefresher(vocab *Vocabulary, src DocumentSource, timeout time.Duration, logger *zap.Logger) *Refresher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Refresher{vocab: vocab, src: src, timeout: timeout, logger: logger}
}

// Name identifies the job in logs.
func (r *Refresher) Name() string { return "vocabulary_refresh" }

// Run performs one refresh. Failures are logged.
func (r *Refresher) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	r.Refresh(ctx)
}

// Refresh bootstraps new catalog terms and merges persisted counters.
func (r *Refresher) Refresh(ctx context.Context) {
	start := time.Now()
	docs := 0
	if r.src != nil {
		n, err := r.vocab.Bootstrap(ctx, r.src)
		if err != nil {
			r.logger.Warn("Vocabulary bootstrap failed", zap.Error(err))
		}
		docs = n
	}
	if err := r.vocab.Reload(ctx); err != nil {
		r.logger.Warn("Vocabulary counter reload failed", zap.Error(err))
	}
	r.logger.Info("Vocabulary refreshed",
		zap.Int("documents", docs),
		zap.Int("entries", r.vocab.Len()),
		zap.Duration("duration", time.Since(start)),
	)
}
