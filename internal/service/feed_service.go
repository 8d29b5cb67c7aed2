package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/family-calendar-api/internal/dto"
	"github.com/noah-isme/family-calendar-api/internal/models"
	appErrors "github.com/noah-isme/family-calendar-api/pkg/errors"
	"github.com/noah-isme/family-calendar-api/pkg/export"
	"github.com/noah-isme/family-calendar-api/pkg/recurrence"
	"github.com/noah-isme/family-calendar-api/pkg/signedurl"
)

// FeedScope binds feed tokens so they cannot be replayed elsewhere.
const FeedScope = "ics"

type storedEventSource interface {
	Stored(ctx context.Context, familyID string) ([]models.Event, error)
}

type icsRenderer interface {
	Render(feed export.Feed) ([]byte, error)
	ContentType() string
}

// FeedConfig tunes calendar subscription links.
type FeedConfig struct {
	BaseURL      string
	APIPrefix    string
	Location     *time.Location
	UnknownRules recurrence.UnknownRulePolicy
	Refresh      time.Duration
}

// FeedServiceParams groups constructor dependencies.
type FeedServiceParams struct {
	Events   storedEventSource
	Families familyFinder
	Members  memberLister
	Signer   *signedurl.Signer
	Renderer icsRenderer
	Logger   *zap.Logger
	Config   FeedConfig
}

// FeedService issues signed iCalendar subscription links and renders feeds.
type FeedService struct {
	events   storedEventSource
	families familyFinder
	members  memberLister
	signer   *signedurl.Signer
	renderer icsRenderer
	logger   *zap.Logger
	cfg      FeedConfig
	now      func() time.Time
}

// NewFeedService constructs a FeedService.
func NewFeedService(params FeedServiceParams) *FeedService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	renderer := params.Renderer
	if renderer == nil {
		renderer = export.NewICSExporter("")
	}
	cfg := params.Config
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Refresh <= 0 {
		cfg.Refresh = time.Hour
	}
	return &FeedService{
		events:   params.Events,
		families: params.Families,
		members:  params.Members,
		signer:   params.Signer,
		renderer: renderer,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// ContentType of rendered feeds.
func (s *FeedService) ContentType() string {
	return s.renderer.ContentType()
}

// Issue signs a subscription link for the family.
func (s *FeedService) Issue(ctx context.Context, familyID string) (*dto.FeedResponse, error) {
	if _, err := loadFamily(ctx, s.families, familyID); err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(FeedScope, familyID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign feed")
	}
	url := strings.TrimRight(s.cfg.BaseURL, "/") + s.cfg.APIPrefix + "/feeds/" + token
	return &dto.FeedResponse{URL: url, Token: token, ExpiresAt: expiresAt}, nil
}

// Render validates token and renders the family's calendar. Series are
// published once with an RRULE; rules the calendar cannot express follow the
// unknown-rule policy of the expansion engine.
func (s *FeedService) Render(ctx context.Context, token string) ([]byte, error) {
	familyID, _, err := s.signer.Parse(FeedScope, token)
	if err != nil {
		if errors.Is(err, signedurl.ErrExpiredToken) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "feed link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid feed link")
	}

	family, err := loadFamily(ctx, s.families, familyID)
	if err != nil {
		return nil, err
	}
	names, err := memberNames(ctx, s.members, familyID)
	if err != nil {
		return nil, err
	}
	rows, err := s.events.Stored(ctx, familyID)
	if err != nil {
		return nil, err
	}

	feed := export.Feed{
		Name:        family.Name,
		Location:    s.cfg.Location,
		GeneratedAt: s.now().UTC(),
		Refresh:     s.cfg.Refresh,
		Events:      make([]export.FeedEvent, 0, len(rows)),
	}
	for _, row := range rows {
		ev := row.Recurrence()
		if unknown, ok := ev.Rule.(recurrence.Unknown); ok {
			if s.cfg.UnknownRules != recurrence.UnknownRulesAsDaily {
				s.logger.Warn("event left out of feed", zap.String("event_id", ev.ID), zap.String("rule", unknown.Name))
				continue
			}
			ev.Rule = recurrence.Daily{Cadence: unknown.Cadence}
		}
		feed.Events = append(feed.Events, export.FeedEvent{
			Event:      ev,
			MemberName: names[ev.MemberID],
			UpdatedAt:  row.UpdatedAt,
		})
	}

	body, err := s.renderer.Render(feed)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render feed")
	}
	return body, nil
}
