package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/family-calendar-api/internal/models"
	appErrors "github.com/noah-isme/family-calendar-api/pkg/errors"
	"github.com/noah-isme/family-calendar-api/pkg/jobs"
	"github.com/noah-isme/family-calendar-api/pkg/recurrence"
)

const (
	digestQueueName = "digests"
	digestURL       = "/"
)

// Dispatcher hands a push message to whatever delivers it.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg models.PushMessage) error
}

type pushOutbox interface {
	Push(ctx context.Context, msg models.PushMessage) error
}

// OutboxDispatcher queues messages on the Redis outbox for the delivery worker.
type OutboxDispatcher struct {
	outbox pushOutbox
}

// NewOutboxDispatcher wraps an outbox repository.
func NewOutboxDispatcher(outbox pushOutbox) *OutboxDispatcher {
	return &OutboxDispatcher{outbox: outbox}
}

// Dispatch appends msg to the outbox.
func (d *OutboxDispatcher) Dispatch(ctx context.Context, msg models.PushMessage) error {
	return d.outbox.Push(ctx, msg)
}

// LogDispatcher only logs messages. Used when Redis is not configured.
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher constructs a LogDispatcher.
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDispatcher{logger: logger}
}

// Dispatch logs msg and never fails.
func (d *LogDispatcher) Dispatch(_ context.Context, msg models.PushMessage) error {
	d.logger.Info("push message",
		zap.String("kind", msg.Kind),
		zap.String("family_id", msg.FamilyID),
		zap.String("user_id", msg.UserID),
		zap.String("title", msg.Payload.Title),
		zap.String("body", msg.Payload.Body),
	)
	return nil
}

type digestEventSource interface {
	ExpandRange(ctx context.Context, familyID string, r recurrence.Range) (recurrence.ExpandResult, error)
}

type digestFamilyLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

type digestSubscriberLister interface {
	ListSubscribers(ctx context.Context, familyID string) ([]models.Subscriber, error)
}

// DigestConfig tunes the per-run worker queue.
type DigestConfig struct {
	Workers     int
	MaxRetries  int
	RetryDelay  time.Duration
	QueueBuffer int
	RunTimeout  time.Duration
}

// DigestServiceParams groups constructor dependencies.
type DigestServiceParams struct {
	Events      digestEventSource
	Normalizer  *recurrence.Normalizer
	Families    digestFamilyLister
	Subscribers digestSubscriberLister
	Dispatcher  Dispatcher
	Metrics     *MetricsService
	Logger      *zap.Logger
	Config      DigestConfig
}

// DigestService builds daily digests and fans them out to subscribed members.
type DigestService struct {
	events      digestEventSource
	normalizer  *recurrence.Normalizer
	families    digestFamilyLister
	subscribers digestSubscriberLister
	dispatcher  Dispatcher
	metrics     *MetricsService
	logger      *zap.Logger
	cfg         DigestConfig
	now         func() time.Time
}

// NewDigestService constructs a DigestService.
func NewDigestService(params DigestServiceParams) *DigestService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := params.Dispatcher
	if dispatcher == nil {
		dispatcher = NewLogDispatcher(logger)
	}
	normalizer := params.Normalizer
	if normalizer == nil {
		normalizer = recurrence.NewNormalizer(recurrence.SystemClock{}, recurrence.DefaultLookBackDays, recurrence.DefaultLookAheadDays)
	}
	cfg := params.Config
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 5 * time.Minute
	}
	return &DigestService{
		events:      params.Events,
		normalizer:  normalizer,
		families:    params.Families,
		subscribers: params.Subscribers,
		dispatcher:  dispatcher,
		metrics:     params.Metrics,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// BuildDigest expands the family's events over the digest day.
func (s *DigestService) BuildDigest(ctx context.Context, kind models.DigestKind, familyID string) (*models.Digest, error) {
	day := s.normalizer.Day(kind.DayOffset())
	result, err := s.events.ExpandRange(ctx, familyID, day)
	if err != nil {
		return nil, err
	}
	return &models.Digest{
		Kind:     kind,
		FamilyID: familyID,
		Date:     day.Start.String(),
		Count:    len(result.Occurrences),
		Payload: models.PushPayload{
			Title: kind.Title(),
			Body:  recurrence.Summarize(result.Occurrences),
			URL:   digestURL,
		},
	}, nil
}

// Preview returns the digest a family would receive without sending it.
func (s *DigestService) Preview(ctx context.Context, kind models.DigestKind, familyID string) (*models.Digest, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "kind must be morning or evening")
	}
	return s.BuildDigest(ctx, kind, familyID)
}

type digestTally struct {
	mu  sync.Mutex
	run models.DigestRun
}

func (t *digestTally) add(fn func(run *models.DigestRun)) {
	t.mu.Lock()
	fn(&t.run)
	t.mu.Unlock()
}

// Run sends one digest to every family. Each family is a job on a worker
// queue; repository failures are retried and families that keep failing are
// counted as failed.
func (s *DigestService) Run(ctx context.Context, kind models.DigestKind) (*models.DigestRun, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "kind must be morning or evening")
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	familyIDs, err := s.families.ListIDs(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list families")
	}

	tally := &digestTally{run: models.DigestRun{
		Kind:     kind,
		Date:     s.normalizer.Day(kind.DayOffset()).Start.String(),
		Families: len(familyIDs),
	}}

	queue := jobs.NewQueue(digestQueueName, func(ctx context.Context, job jobs.Job[string]) error {
		return s.sendFamily(ctx, kind, job.Payload, tally)
	}, jobs.QueueConfig{
		Workers:    s.cfg.Workers,
		BufferSize: s.cfg.QueueBuffer,
		MaxRetries: s.cfg.MaxRetries,
		RetryDelay: s.cfg.RetryDelay,
		Logger:     s.logger,
	})
	queue.OnDeadLetter(func(job jobs.Job[string], err error) {
		s.metrics.RecordDeadJob(digestQueueName)
		s.metrics.RecordDigestFamily(string(kind), "failed")
		s.logger.Error("digest failed", zap.String("kind", string(kind)), zap.String("family_id", job.Payload), zap.Error(err))
		tally.add(func(run *models.DigestRun) { run.Failed++ })
	})

	queue.Start(ctx)
	defer queue.Stop()

	for _, familyID := range familyIDs {
		job := jobs.Job[string]{ID: uuid.NewString(), Type: string(kind), Payload: familyID}
		if err := queue.Enqueue(job); err != nil {
			return nil, appErrors.Internal(err, "failed to enqueue digest")
		}
	}
	if err := queue.Wait(ctx); err != nil {
		return nil, appErrors.Internal(err, "digest run did not finish")
	}

	tally.mu.Lock()
	run := tally.run
	tally.mu.Unlock()

	s.logger.Info("digest run complete",
		zap.String("kind", string(kind)),
		zap.String("date", run.Date),
		zap.Int("families", run.Families),
		zap.Int("skipped", run.Skipped),
		zap.Int("dispatched", run.Dispatched),
		zap.Int("failed", run.Failed),
	)
	return &run, nil
}

func (s *DigestService) sendFamily(ctx context.Context, kind models.DigestKind, familyID string, tally *digestTally) error {
	digest, err := s.BuildDigest(ctx, kind, familyID)
	if err != nil {
		return fmt.Errorf("build digest: %w", err)
	}
	if digest.Count == 0 {
		s.metrics.RecordDigestFamily(string(kind), "skipped")
		tally.add(func(run *models.DigestRun) { run.Skipped++ })
		return nil
	}

	subscribers, err := s.subscribers.ListSubscribers(ctx, familyID)
	if err != nil {
		return fmt.Errorf("list subscribers: %w", err)
	}
	if len(subscribers) == 0 {
		s.metrics.RecordDigestFamily(string(kind), "skipped")
		tally.add(func(run *models.DigestRun) { run.Skipped++ })
		return nil
	}

	sent := 0
	for _, sub := range subscribers {
		if !json.Valid([]byte(sub.Subscription)) {
			s.logger.Warn("stored push subscription is not JSON", zap.String("user_id", sub.UserID))
			continue
		}
		msg := models.PushMessage{
			ID:           uuid.NewString(),
			Kind:         string(kind),
			FamilyID:     familyID,
			UserID:       sub.UserID,
			Subscription: json.RawMessage(sub.Subscription),
			Payload:      digest.Payload,
			QueuedAt:     s.now().UTC(),
		}
		if err := s.dispatcher.Dispatch(ctx, msg); err != nil {
			s.metrics.RecordPushMessage(string(kind), false)
			s.logger.Warn("push dispatch failed", zap.String("family_id", familyID), zap.String("user_id", sub.UserID), zap.Error(err))
			continue
		}
		s.metrics.RecordPushMessage(string(kind), true)
		sent++
	}

	s.metrics.RecordDigestFamily(string(kind), "sent")
	tally.add(func(run *models.DigestRun) { run.Dispatched += sent })
	return nil
}
