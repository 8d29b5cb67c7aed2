package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/family-calendar-api/internal/models"
)

const (
	DefaultMorningCron = "0 7 * * *"
	DefaultEveningCron = "0 20 * * *"
)

type digestRunner interface {
	Run(ctx context.Context, kind models.DigestKind) (*models.DigestRun, error)
}

// Config decides when digests go out.
type Config struct {
	Enabled     bool
	MorningCron string
	EveningCron string
	Location    *time.Location
}

// DigestScheduler triggers the morning and evening digests on cron schedules.
type DigestScheduler struct {
	runner digestRunner
	cron   *cron.Cron
	logger *zap.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a scheduler. A disabled config yields a scheduler whose Start
// and Stop do nothing.
func New(runner digestRunner, cfg Config, logger *zap.Logger) (*DigestScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &DigestScheduler{runner: runner, logger: logger}
	if !cfg.Enabled {
		return s, nil
	}
	if cfg.MorningCron == "" {
		cfg.MorningCron = DefaultMorningCron
	}
	if cfg.EveningCron == "" {
		cfg.EveningCron = DefaultEveningCron
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	cronLogger := zapCronLogger{logger: logger.Sugar()}
	c := cron.New(
		cron.WithLocation(cfg.Location),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	schedules := []struct {
		spec string
		kind models.DigestKind
	}{
		{cfg.MorningCron, models.DigestMorning},
		{cfg.EveningCron, models.DigestEvening},
	}
	for _, sch := range schedules {
		kind := sch.kind
		if _, err := c.AddFunc(sch.spec, func() { s.trigger(kind) }); err != nil {
			return nil, fmt.Errorf("schedule %s digest %q: %w", kind, sch.spec, err)
		}
	}
	s.cron = c
	return s, nil
}

// Enabled reports whether any schedule is registered.
func (s *DigestScheduler) Enabled() bool {
	return s.cron != nil
}

// Start begins firing schedules. Runs inherit ctx.
func (s *DigestScheduler) Start(ctx context.Context) {
	if s.cron == nil {
		s.logger.Info("digest scheduler disabled")
		return
	}
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()
	s.cron.Start()
	for _, entry := range s.cron.Entries() {
		s.logger.Info("digest scheduled", zap.Time("next", entry.Next))
	}
}

// Stop cancels in-flight runs and waits for them until ctx expires.
func (s *DigestScheduler) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *DigestScheduler) trigger(kind models.DigestKind) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	run, err := s.runner.Run(ctx, kind)
	if err != nil {
		s.logger.Error("digest run failed", zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	s.logger.Info("digest run finished",
		zap.String("kind", string(kind)),
		zap.Int("dispatched", run.Dispatched),
		zap.Int("failed", run.Failed),
	)
}

// zapCronLogger adapts zap to cron.Logger.
type zapCronLogger struct {
	logger *zap.SugaredLogger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
