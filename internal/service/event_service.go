package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/samber/mo"
	"go.uber.org/zap"

	"github.com/noah-isme/family-calendar-api/internal/dto"
	"github.com/noah-isme/family-calendar-api/internal/models"
	appErrors "github.com/noah-isme/family-calendar-api/pkg/errors"
	"github.com/noah-isme/family-calendar-api/pkg/recurrence"
)

const foreignKeyViolation = "23503"

// EventRepository is the persistence contract of EventService.
type EventRepository interface {
	ListForRange(ctx context.Context, familyID, start, end string) ([]models.Event, error)
	ListByFamily(ctx context.Context, familyID string) ([]models.Event, error)
	FindByID(ctx context.Context, familyID, id string) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, familyID, id string) error
}

// EventServiceParams groups constructor dependencies.
type EventServiceParams struct {
	Repo      EventRepository
	Engine    *recurrence.Engine
	Cache     *CacheService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	CacheTTL  time.Duration
}

// EventService stores events and expands them into occurrences.
type EventService struct {
	repo      EventRepository
	engine    *recurrence.Engine
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// cachedOccurrences is what an occurrence window is cached as.
type cachedOccurrences struct {
	Events    []dto.OccurrenceResponse `json:"events"`
	Truncated []string                 `json:"truncated"`
	Rejected  []string                 `json:"rejected"`
}

// NewEventService constructs an EventService.
func NewEventService(params EventServiceParams) *EventService {
	engine := params.Engine
	if engine == nil {
		engine = recurrence.NewEngine(recurrence.DefaultConfig(), recurrence.SystemClock{})
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{
		repo:      params.Repo,
		engine:    engine,
		cache:     params.Cache,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		cacheTTL:  params.CacheTTL,
	}
}

// Engine exposes the expansion engine shared with digests and exports.
func (s *EventService) Engine() *recurrence.Engine {
	return s.engine
}

// NormalizeRange resolves raw from/to query values.
func (s *EventService) NormalizeRange(from, to mo.Option[string]) recurrence.Range {
	return s.engine.NormalizeRange(from, to)
}

// ExpandRange loads the family's candidate events for r and expands them in
// canonical order. Rejected events are logged and reported, not fatal.
func (s *EventService) ExpandRange(ctx context.Context, familyID string, r recurrence.Range) (recurrence.ExpandResult, error) {
	rows, err := s.repo.ListForRange(ctx, familyID, r.Start.String(), r.End.String())
	if err != nil {
		return recurrence.ExpandResult{}, appErrors.Internal(err, "failed to load events")
	}

	start := time.Now()
	result := s.engine.ExpandRange(models.Recurrences(rows), r)
	recurrence.SortOccurrences(result.Occurrences)
	s.metrics.ObserveExpansion(time.Since(start), len(result.Occurrences), len(result.Truncated), len(result.Rejected))

	for _, rej := range result.Rejected {
		s.logger.Warn("event not expanded", zap.String("family_id", familyID), zap.String("event_id", rej.EventID), zap.Error(rej.Err))
	}
	if len(result.Truncated) > 0 {
		s.logger.Info("occurrence cap reached", zap.String("family_id", familyID), zap.Strings("event_ids", result.Truncated))
	}
	return result, nil
}

// List returns the occurrences of a family over the normalised range. The
// rendered list is cached per family and window.
func (s *EventService) List(ctx context.Context, familyID string, from, to mo.Option[string]) (*dto.EventList, *dto.EventListMeta, error) {
	r := s.engine.NormalizeRange(from, to)
	key := OccurrenceKey(familyID, r)

	var cached cachedOccurrences
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &dto.EventList{Events: cached.Events}, &dto.EventListMeta{
			Range:     r,
			Truncated: cached.Truncated,
			Rejected:  cached.Rejected,
			CacheHit:  true,
		}, nil
	}

	result, err := s.ExpandRange(ctx, familyID, r)
	if err != nil {
		return nil, nil, err
	}

	payload := cachedOccurrences{
		Events:    dto.NewOccurrenceResponses(result.Occurrences),
		Truncated: result.Truncated,
		Rejected:  rejectedIDs(result.Rejected),
	}
	_ = s.cache.Set(ctx, key, payload, s.cacheTTL)

	return &dto.EventList{Events: payload.Events}, &dto.EventListMeta{
		Range:     r,
		Truncated: payload.Truncated,
		Rejected:  payload.Rejected,
	}, nil
}

// Summary renders the plain-text digest of a range.
func (s *EventService) Summary(ctx context.Context, familyID string, from, to mo.Option[string]) (*dto.SummaryResponse, error) {
	result, err := s.ExpandRange(ctx, familyID, s.engine.NormalizeRange(from, to))
	if err != nil {
		return nil, err
	}
	return &dto.SummaryResponse{
		Range:   result.Range,
		Count:   len(result.Occurrences),
		Summary: recurrence.Summarize(result.Occurrences),
	}, nil
}

// Stored returns every stored event of the family, unexpanded.
func (s *EventService) Stored(ctx context.Context, familyID string) ([]models.Event, error) {
	rows, err := s.repo.ListByFamily(ctx, familyID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load events")
	}
	return rows, nil
}

// Get returns one stored event of the family.
func (s *EventService) Get(ctx context.Context, familyID, id string) (*dto.EventResponse, error) {
	event, err := s.find(ctx, familyID, id)
	if err != nil {
		return nil, err
	}
	res := dto.NewEventResponse(*event)
	return &res, nil
}

// Create stores a new event for the family.
func (s *EventService) Create(ctx context.Context, familyID, userID string, req dto.CreateEventRequest) (*dto.EventResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid event payload")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}
	date, err := recurrence.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Validation(err, "invalid date")
	}
	rule, err := encodeRuleInput(req.RepeatRule)
	if err != nil {
		return nil, err
	}

	event := &models.Event{
		FamilyID:    familyID,
		CreatedBy:   optionalString(userID),
		Title:       title,
		Description: trimmedOrNil(req.Description),
		Date:        date.Time(time.UTC),
		Time:        trimmedOrNil(req.Time),
		RepeatRule:  rule,
		AllDay:      req.AllDay,
		MemberID:    trimmedOrNil(req.MemberID),
		Location:    trimmedOrNil(req.Location),
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, s.writeError(err, "failed to create event")
	}

	s.invalidate(ctx, familyID)
	res := dto.NewEventResponse(*event)
	return &res, nil
}

// Update applies a partial update. Absent fields keep their values; an
// explicit null or "none" repeat_rule clears the rule.
func (s *EventService) Update(ctx context.Context, familyID, id string, req dto.UpdateEventRequest) (*dto.EventResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid event payload")
	}
	event, err := s.find(ctx, familyID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if title := strings.TrimSpace(*req.Title); title != "" {
			event.Title = title
		}
	}
	if req.Date != nil {
		date, err := recurrence.ParseDate(*req.Date)
		if err != nil {
			return nil, appErrors.Validation(err, "invalid date")
		}
		event.Date = date.Time(time.UTC)
	}
	if req.Time != nil {
		event.Time = trimmedOrNil(req.Time)
	}
	if req.Description != nil {
		event.Description = trimmedOrNil(req.Description)
	}
	if req.Location != nil {
		event.Location = trimmedOrNil(req.Location)
	}
	if req.MemberID != nil {
		event.MemberID = trimmedOrNil(req.MemberID)
	}
	if req.AllDay != nil {
		event.AllDay = *req.AllDay
	}
	if req.RepeatRule.Set {
		rule, err := encodeRuleInput(req.RepeatRule.Rule)
		if err != nil {
			return nil, err
		}
		event.RepeatRule = rule
	}

	if err := s.repo.Update(ctx, event); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrEventNotFound, "event not found")
		}
		return nil, s.writeError(err, "failed to update event")
	}

	s.invalidate(ctx, familyID)
	res := dto.NewEventResponse(*event)
	return &res, nil
}

// Delete removes an event of the family.
func (s *EventService) Delete(ctx context.Context, familyID, id string) error {
	if err := s.repo.Delete(ctx, familyID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrEventNotFound, "event not found")
		}
		return appErrors.Internal(err, "failed to delete event")
	}
	s.invalidate(ctx, familyID)
	return nil
}

func (s *EventService) find(ctx context.Context, familyID, id string) (*models.Event, error) {
	event, err := s.repo.FindByID(ctx, familyID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrEventNotFound, "event not found")
		}
		return nil, appErrors.Internal(err, "failed to load event")
	}
	return event, nil
}

func (s *EventService) invalidate(ctx context.Context, familyID string) {
	_ = s.cache.Invalidate(ctx, FamilyPattern(familyID))
}

// writeError maps a member_id that belongs to nobody onto a validation error.
func (s *EventService) writeError(err error, message string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == foreignKeyViolation {
		return appErrors.Validation(err, "unknown member")
	}
	return appErrors.Internal(err, message)
}

func encodeRuleInput(input *dto.RuleInput) (*string, error) {
	if input == nil {
		return nil, nil
	}
	rule, err := recurrence.RuleFromSpec(input.Spec())
	if err != nil {
		return nil, appErrors.Validation(err, "invalid repeat rule")
	}
	encoded, err := recurrence.EncodeRule(rule)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to store repeat rule")
	}
	return encoded, nil
}

func rejectedIDs(rejected []recurrence.Rejection) []string {
	if len(rejected) == 0 {
		return nil
	}
	ids := make([]string, 0, len(rejected))
	for _, rej := range rejected {
		ids = append(ids, rej.EventID)
	}
	return ids
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	return optionalString(strings.TrimSpace(*s))
}
