package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/family-calendar-api/internal/dto"
	"github.com/noah-isme/family-calendar-api/internal/models"
	appErrors "github.com/noah-isme/family-calendar-api/pkg/errors"
	"github.com/noah-isme/family-calendar-api/pkg/recurrence"
)

type stubEventRepo struct {
	events    map[string]*models.Event
	listCalls int
	createErr error
}

func newStubEventRepo(events ...models.Event) *stubEventRepo {
	repo := &stubEventRepo{events: map[string]*models.Event{}}
	for i := range events {
		ev := events[i]
		repo.events[ev.ID] = &ev
	}
	return repo
}

func (r *stubEventRepo) ListForRange(ctx context.Context, familyID, start, end string) ([]models.Event, error) {
	r.listCalls++
	var out []models.Event
	for _, ev := range r.events {
		if ev.FamilyID != familyID {
			continue
		}
		anchor := recurrence.DateOf(ev.Date).String()
		if anchor > end || (ev.RepeatRule == nil && anchor < start) {
			continue
		}
		out = append(out, *ev)
	}
	return out, nil
}

func (r *stubEventRepo) ListByFamily(ctx context.Context, familyID string) ([]models.Event, error) {
	var out []models.Event
	for _, ev := range r.events {
		if ev.FamilyID == familyID {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (r *stubEventRepo) FindByID(ctx context.Context, familyID, id string) (*models.Event, error) {
	ev, ok := r.events[id]
	if !ok || ev.FamilyID != familyID {
		return nil, sql.ErrNoRows
	}
	copied := *ev
	return &copied, nil
}

func (r *stubEventRepo) Create(ctx context.Context, event *models.Event) error {
	if r.createErr != nil {
		return r.createErr
	}
	if event.ID == "" {
		event.ID = "generated"
	}
	copied := *event
	r.events[event.ID] = &copied
	return nil
}

func (r *stubEventRepo) Update(ctx context.Context, event *models.Event) error {
	if _, ok := r.events[event.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *event
	r.events[event.ID] = &copied
	return nil
}

func (r *stubEventRepo) Delete(ctx context.Context, familyID, id string) error {
	ev, ok := r.events[id]
	if !ok || ev.FamilyID != familyID {
		return sql.ErrNoRows
	}
	delete(r.events, id)
	return nil
}

type stubCacheRepo struct {
	store         map[string][]byte
	invalidations []string
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.invalidations = append(s.invalidations, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.store {
		if strings.HasPrefix(key, prefix) {
			delete(s.store, key)
		}
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

func eventRow(id, date string, rule *string) models.Event {
	return models.Event{
		ID:         id,
		FamilyID:   "fam",
		Title:      id,
		Date:       recurrence.MustDate(date).Time(time.UTC),
		RepeatRule: rule,
	}
}

func newTestEventService(repo EventRepository, cacheRepo CacheRepository) *EventService {
	clock := &recurrence.MockClock{FixedNow: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	var cache *CacheService
	if cacheRepo != nil {
		cache = NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	}
	return NewEventService(EventServiceParams{
		Repo:   repo,
		Engine: recurrence.NewEngine(recurrence.DefaultConfig(), clock),
		Cache:  cache,
	})
}

func TestEventServiceListExpandsAndCaches(t *testing.T) {
	repo := newStubEventRepo(
		eventRow("weekly", "2024-03-04", ptr(`{"type":"weekly"}`)),
		eventRow("once", "2024-03-12", nil),
		eventRow("old", "2024-01-01", nil),
	)
	cacheRepo := &stubCacheRepo{}
	svc := newTestEventService(repo, cacheRepo)

	list, meta, err := svc.List(context.Background(), "fam", mo.Some("2024-03-10"), mo.Some("2024-03-20"))
	require.NoError(t, err)
	assert.False(t, meta.CacheHit)
	assert.Equal(t, "2024-03-10", meta.Range.Start.String())

	dates := make([]string, 0, len(list.Events))
	for _, ev := range list.Events {
		dates = append(dates, ev.Date+" "+ev.ID)
	}
	assert.Equal(t, []string{"2024-03-11 weekly", "2024-03-12 once", "2024-03-18 weekly"}, dates)
	assert.Equal(t, "2024-03-04", list.Events[0].SeriesStart)

	cachedList, cachedMeta, err := svc.List(context.Background(), "fam", mo.Some("2024-03-10"), mo.Some("2024-03-20"))
	require.NoError(t, err)
	assert.True(t, cachedMeta.CacheHit)
	assert.Equal(t, list.Events, cachedList.Events)
	assert.Equal(t, 1, repo.listCalls)
}

func TestEventServiceListReportsRejected(t *testing.T) {
	repo := newStubEventRepo(
		eventRow("yearly", "2024-03-01", ptr(`{"type":"yearly"}`)),
		eventRow("once", "2024-03-11", nil),
	)
	svc := newTestEventService(repo, nil)

	list, meta, err := svc.List(context.Background(), "fam", mo.None[string](), mo.None[string]())
	require.NoError(t, err)
	require.Len(t, list.Events, 1)
	assert.Equal(t, []string{"yearly"}, meta.Rejected)
	assert.Equal(t, "2024-03-09", meta.Range.Start.String())
	assert.Equal(t, "2024-03-24", meta.Range.End.String())
}

func TestEventServiceSummary(t *testing.T) {
	repo := newStubEventRepo(eventRow("Dentist", "2024-03-10", nil))
	svc := newTestEventService(repo, nil)

	res, err := svc.Summary(context.Background(), "fam", mo.Some("2024-03-10"), mo.Some("2024-03-10"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, "All day — Dentist", res.Summary)
}

func TestEventServiceCreate(t *testing.T) {
	repo := newStubEventRepo()
	cacheRepo := &stubCacheRepo{}
	svc := newTestEventService(repo, cacheRepo)

	res, err := svc.Create(context.Background(), "fam", "user-1", dto.CreateEventRequest{
		Title:       "  Swim  ",
		Date:        "2024-03-11",
		Time:        ptr("17:30"),
		Description: ptr("   "),
		Location:    ptr(" Pool "),
		RepeatRule:  &dto.RuleInput{Type: "weekly", ByWeekday: []int{1, 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Swim", res.Title)
	assert.Nil(t, res.Description)
	assert.Equal(t, "Pool", *res.Location)
	assert.Equal(t, "user-1", *res.CreatedBy)
	require.NotNil(t, res.RepeatRule)
	assert.Equal(t, []int{1, 3}, res.RepeatRule.ByWeekday)
	assert.Equal(t, []string{"events:fam:*"}, cacheRepo.invalidations)

	stored := repo.events[res.ID]
	require.NotNil(t, stored.RepeatRule)
	assert.JSONEq(t, `{"type":"weekly","interval":1,"by_weekday":[1,3]}`, *stored.RepeatRule)
}

func TestEventServiceCreateNoneRuleStoresNull(t *testing.T) {
	repo := newStubEventRepo()
	svc := newTestEventService(repo, nil)

	res, err := svc.Create(context.Background(), "fam", "user-1", dto.CreateEventRequest{
		Title:      "Party",
		Date:       "2024-03-11",
		RepeatRule: &dto.RuleInput{Type: "none"},
	})
	require.NoError(t, err)
	assert.Nil(t, res.RepeatRule)
	assert.Nil(t, repo.events[res.ID].RepeatRule)
}

func TestEventServiceCreateValidation(t *testing.T) {
	svc := newTestEventService(newStubEventRepo(), nil)

	cases := []dto.CreateEventRequest{
		{Title: "", Date: "2024-03-11"},
		{Title: "   ", Date: "2024-03-11"},
		{Title: "x", Date: "11/03/2024"},
		{Title: "x", Date: "2024-03-11", RepeatRule: &dto.RuleInput{Type: "yearly"}},
		{Title: "x", Date: "2024-03-11", Time: ptr("25:00")},
	}
	for _, req := range cases {
		_, err := svc.Create(context.Background(), "fam", "user-1", req)
		require.Error(t, err, req)
		assert.True(t, errors.Is(err, appErrors.ErrValidation), req)
	}
}

func TestEventServiceCreateUnknownMember(t *testing.T) {
	repo := newStubEventRepo()
	repo.createErr = &pq.Error{Code: "23503"}
	svc := newTestEventService(repo, nil)

	_, err := svc.Create(context.Background(), "fam", "user-1", dto.CreateEventRequest{Title: "x", Date: "2024-03-11"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestEventServiceUpdate(t *testing.T) {
	repo := newStubEventRepo(eventRow("ev", "2024-03-01", ptr(`{"type":"daily"}`)))
	repo.events["ev"].Location = ptr("Home")
	svc := newTestEventService(repo, nil)

	var req dto.UpdateEventRequest
	require.NoError(t, json.Unmarshal([]byte(`{"title":"  ","date":"2024-03-05","repeat_rule":null}`), &req))

	res, err := svc.Update(context.Background(), "fam", "ev", req)
	require.NoError(t, err)
	assert.Equal(t, "ev", res.Title)
	assert.Equal(t, "2024-03-05", res.Date)
	assert.Nil(t, res.RepeatRule)
	assert.Equal(t, "Home", *res.Location)
	assert.Nil(t, repo.events["ev"].RepeatRule)
}

func TestEventServiceUpdateKeepsRuleWhenAbsent(t *testing.T) {
	repo := newStubEventRepo(eventRow("ev", "2024-03-01", ptr(`{"type":"monthly","interval":2}`)))
	svc := newTestEventService(repo, nil)

	var req dto.UpdateEventRequest
	require.NoError(t, json.Unmarshal([]byte(`{"location":"Park"}`), &req))

	res, err := svc.Update(context.Background(), "fam", "ev", req)
	require.NoError(t, err)
	require.NotNil(t, res.RepeatRule)
	assert.Equal(t, "monthly", res.RepeatRule.Type)
	assert.Equal(t, 2, res.RepeatRule.Interval)
	assert.Equal(t, "Park", *res.Location)
}

func TestEventServiceNotFound(t *testing.T) {
	repo := newStubEventRepo(eventRow("ev", "2024-03-01", nil))
	svc := newTestEventService(repo, nil)

	_, err := svc.Update(context.Background(), "other", "ev", dto.UpdateEventRequest{Title: ptr("x")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrEventNotFound))

	err = svc.Delete(context.Background(), "fam", "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrEventNotFound))
}

func TestEventServiceDeleteInvalidates(t *testing.T) {
	repo := newStubEventRepo(eventRow("ev", "2024-03-01", nil))
	cacheRepo := &stubCacheRepo{store: map[string][]byte{"events:fam:2024-03-01:2024-03-02": []byte(`{}`)}}
	svc := newTestEventService(repo, cacheRepo)

	require.NoError(t, svc.Delete(context.Background(), "fam", "ev"))
	assert.Empty(t, repo.events)
	assert.Empty(t, cacheRepo.store)
}
