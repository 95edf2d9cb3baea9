// Package task runs periodic background jobs.
package task

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler wraps a cron instance with logging, panic recovery and overlap protection.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScheduler creates a scheduler. Specs use the standard five-field syntax or descriptors like "@every 5m".
func NewScheduler(logger *zap.Logger) *Scheduler {
	logger = logger.Named("cron")
	clog := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLogger(clog),
		cron.WithChain(
			recoverWrapper(logger),
			loggingWrapper(logger),
			cron.SkipIfStillRunning(clog),
		),
	)
	return &Scheduler{cron: c, logger: logger}
}

// Add registers a job under the spec.
func (s *Scheduler) Add(spec string, job cron.Job) error {
	if _, err := s.cron.AddJob(spec, job); err != nil {
		return fmt.Errorf("add job %s: %w", jobName(job), err)
	}
	s.logger.Info("Registered job", zap.String("job", jobName(job)), zap.String("schedule", spec))
	return nil
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int { return len(s.cron.Entries()) }

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running jobs: %w", ctx.Err())
	}
}

func loggingWrapper(logger *zap.Logger) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			l := logger.With(
				zap.String("job", jobName(j)),
				zap.String("execution_id", uuid.NewString()),
			)
			start := time.Now()
			l.Debug("Job started")
			j.Run()
			l.Debug("Job finished", zap.Duration("duration", time.Since(start)))
		})
	}
}

func recoverWrapper(logger *zap.Logger) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Job panicked",
						zap.String("job", jobName(j)),
						zap.Any("panic", r),
						zap.ByteString("stack", debug.Stack()),
					)
				}
			}()
			j.Run()
		})
	}
}

// jobName prefers a Name() method and falls back to the job's type.
func jobName(j cron.Job) string {
	if n, ok := j.(interface{ Name() string }); ok {
		return n.Name()
	}
	t := reflect.TypeOf(j)
	if t.Kind() == reflect.Ptr {
		return t.Elem().String()
	}
	return t.String()
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
