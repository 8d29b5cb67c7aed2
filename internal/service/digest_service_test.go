package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/family-calendar-api/internal/models"
	appErrors "github.com/noah-isme/family-calendar-api/pkg/errors"
	"github.com/noah-isme/family-calendar-api/pkg/recurrence"
)

type stubDigestEvents struct {
	mu       sync.Mutex
	byFamily map[string][]string
	failures map[string]int
	ranges   []recurrence.Range
}

func (s *stubDigestEvents) ExpandRange(ctx context.Context, familyID string, r recurrence.Range) (recurrence.ExpandResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ranges = append(s.ranges, r)
	if s.failures[familyID] != 0 {
		if s.failures[familyID] > 0 {
			s.failures[familyID]--
		}
		return recurrence.ExpandResult{}, errors.New("database unavailable")
	}
	result := recurrence.ExpandResult{Range: r}
	for _, title := range s.byFamily[familyID] {
		result.Occurrences = append(result.Occurrences, recurrence.Occurrence{
			Event: recurrence.Event{ID: title, FamilyID: familyID, Title: title, Date: r.Start},
		})
	}
	return result, nil
}

type stubFamilyIDs []string

func (s stubFamilyIDs) ListIDs(ctx context.Context) ([]string, error) { return s, nil }

type stubSubscribers map[string][]models.Subscriber

func (s stubSubscribers) ListSubscribers(ctx context.Context, familyID string) ([]models.Subscriber, error) {
	return s[familyID], nil
}

type recordingDispatcher struct {
	mu       sync.Mutex
	messages []models.PushMessage
	failFor  string
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, msg models.PushMessage) error {
	if msg.UserID == d.failFor {
		return errors.New("outbox unavailable")
	}
	d.mu.Lock()
	d.messages = append(d.messages, msg)
	d.mu.Unlock()
	return nil
}

func digestNormalizer() *recurrence.Normalizer {
	clock := &recurrence.MockClock{FixedNow: time.Date(2024, 5, 31, 6, 0, 0, 0, time.UTC)}
	return recurrence.NewNormalizer(clock, 1, 14)
}

func newTestDigestService(events *stubDigestEvents, families stubFamilyIDs, subs stubSubscribers, dispatcher Dispatcher, metrics *MetricsService) *DigestService {
	return NewDigestService(DigestServiceParams{
		Events:      events,
		Normalizer:  digestNormalizer(),
		Families:    families,
		Subscribers: subs,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      zap.NewNop(),
		Config:      DigestConfig{Workers: 2, MaxRetries: 1, RetryDelay: time.Millisecond},
	})
}

func TestDigestServiceBuildDigest(t *testing.T) {
	events := &stubDigestEvents{byFamily: map[string][]string{"f1": {"Bins", "Dentist"}}}
	svc := newTestDigestService(events, nil, nil, nil, nil)

	morning, err := svc.BuildDigest(context.Background(), models.DigestMorning, "f1")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-31", morning.Date)
	assert.Equal(t, 2, morning.Count)
	assert.Equal(t, "Today's family schedule", morning.Payload.Title)
	assert.Equal(t, "All day — Bins; All day — Dentist", morning.Payload.Body)
	assert.Equal(t, "/", morning.Payload.URL)

	evening, err := svc.BuildDigest(context.Background(), models.DigestEvening, "f1")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", evening.Date)
	assert.Equal(t, "Tomorrow's family schedule", evening.Payload.Title)

	last := events.ranges[len(events.ranges)-1]
	assert.Equal(t, last.Start, last.End)
}

func TestDigestServicePreviewRejectsUnknownKind(t *testing.T) {
	svc := newTestDigestService(&stubDigestEvents{}, nil, nil, nil, nil)
	_, err := svc.Preview(context.Background(), models.DigestKind("noon"), "f1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestDigestServiceRun(t *testing.T) {
	events := &stubDigestEvents{
		byFamily: map[string][]string{"f1": {"Swim"}, "f3": {"Piano"}, "f4": {"Chess"}},
		failures: map[string]int{"f4": -1},
	}
	subs := stubSubscribers{
		"f1": {
			{UserID: "u1", Subscription: `{"endpoint":"https://push.example.com/1"}`},
			{UserID: "u2", Subscription: `{"endpoint":"https://push.example.com/2"}`},
		},
		"f4": {{UserID: "u4", Subscription: `{}`}},
	}
	dispatcher := &recordingDispatcher{failFor: "u2"}
	metrics := NewMetricsService()
	svc := newTestDigestService(events, stubFamilyIDs{"f1", "f2", "f3", "f4"}, subs, dispatcher, metrics)

	run, err := svc.Run(context.Background(), models.DigestMorning)
	require.NoError(t, err)
	assert.Equal(t, models.DigestRun{
		Kind:       models.DigestMorning,
		Date:       "2024-05-31",
		Families:   4,
		Skipped:    2,
		Dispatched: 1,
		Failed:     1,
	}, *run)

	require.Len(t, dispatcher.messages, 1)
	msg := dispatcher.messages[0]
	assert.Equal(t, "u1", msg.UserID)
	assert.Equal(t, "f1", msg.FamilyID)
	assert.Equal(t, "morning", msg.Kind)
	assert.JSONEq(t, `{"endpoint":"https://push.example.com/1"}`, string(msg.Subscription))
	assert.Equal(t, "All day — Swim", msg.Payload.Body)

	assert.Equal(t, 1.0, counterValue(t, metrics, "jobs_dead_letter_total"))
}

func TestDigestServiceRunRetriesTransientFailures(t *testing.T) {
	events := &stubDigestEvents{
		byFamily: map[string][]string{"f1": {"Swim"}},
		failures: map[string]int{"f1": 1},
	}
	subs := stubSubscribers{"f1": {{UserID: "u1", Subscription: `{}`}}}
	dispatcher := &recordingDispatcher{}
	svc := newTestDigestService(events, stubFamilyIDs{"f1"}, subs, dispatcher, nil)

	run, err := svc.Run(context.Background(), models.DigestEvening)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Dispatched)
	assert.Equal(t, 0, run.Failed)
	assert.Equal(t, "2024-06-01", run.Date)
}

func TestLogDispatcherNeverFails(t *testing.T) {
	d := NewLogDispatcher(nil)
	assert.NoError(t, d.Dispatch(context.Background(), models.PushMessage{Kind: "morning"}))
}

type stubOutbox struct {
	pushed []models.PushMessage
}

func (o *stubOutbox) Push(ctx context.Context, msg models.PushMessage) error {
	o.pushed = append(o.pushed, msg)
	return nil
}

func TestOutboxDispatcher(t *testing.T) {
	outbox := &stubOutbox{}
	require.NoError(t, NewOutboxDispatcher(outbox).Dispatch(context.Background(), models.PushMessage{ID: "m1"}))
	require.Len(t, outbox.pushed, 1)
	assert.Equal(t, "m1", outbox.pushed[0].ID)
}

func counterValue(t *testing.T, metrics *MetricsService, name string) float64 {
	t.Helper()
	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	total := 0.0
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}
