package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/family-calendar-api/internal/dto"
	appErrors "github.com/noah-isme/family-calendar-api/pkg/errors"
	"github.com/noah-isme/family-calendar-api/pkg/recurrence"
)

type fakeEventSrv struct {
	from, to   mo.Option[string]
	familyID   string
	created    dto.CreateEventRequest
	updated    dto.UpdateEventRequest
	deleteErr  error
	cacheHit   bool
	lastUserID string
}

func (f *fakeEventSrv) List(_ context.Context, familyID string, from, to mo.Option[string]) (*dto.EventList, *dto.EventListMeta, error) {
	f.familyID, f.from, f.to = familyID, from, to
	r := recurrence.NewRange(recurrence.MustDate("2024-03-01"), recurrence.MustDate("2024-03-07"))
	return &dto.EventList{Events: []dto.OccurrenceResponse{{ID: "e1", Title: "Swim", Date: "2024-03-04"}}},
		&dto.EventListMeta{Range: r, Truncated: []string{"e1"}, CacheHit: f.cacheHit}, nil
}

func (f *fakeEventSrv) Summary(_ context.Context, familyID string, from, to mo.Option[string]) (*dto.SummaryResponse, error) {
	return &dto.SummaryResponse{Count: 1, Summary: "09:00 — Swim"}, nil
}

func (f *fakeEventSrv) Get(_ context.Context, familyID, id string) (*dto.EventResponse, error) {
	if id != "e1" {
		return nil, appErrors.ErrEventNotFound
	}
	return &dto.EventResponse{ID: id, FamilyID: familyID}, nil
}

func (f *fakeEventSrv) Create(_ context.Context, familyID, userID string, req dto.CreateEventRequest) (*dto.EventResponse, error) {
	f.created, f.lastUserID = req, userID
	return &dto.EventResponse{ID: "new", FamilyID: familyID, Title: req.Title}, nil
}

func (f *fakeEventSrv) Update(_ context.Context, familyID, id string, req dto.UpdateEventRequest) (*dto.EventResponse, error) {
	f.updated = req
	return &dto.EventResponse{ID: id, FamilyID: familyID}, nil
}

func (f *fakeEventSrv) Delete(_ context.Context, familyID, id string) error {
	return f.deleteErr
}

type fakeExporter struct {
	format dto.ExportFormat
	err    error
}

func (f *fakeExporter) Agenda(_ context.Context, familyID string, format dto.ExportFormat, from, to mo.Option[string]) (*dto.ExportFile, error) {
	f.format = format
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ExportFile{Filename: "agenda.csv", ContentType: "text/csv; charset=utf-8", Body: []byte("Date\n")}, nil
}

func eventRouter(srv *fakeEventSrv, exporter *fakeExporter) http.Handler {
	h := NewEventHandler(srv, exporter)
	r := newRouter()
	g := r.Group("/events", withClaims("u1", "f1"))
	g.GET("", h.List)
	g.GET("/summary", h.Summary)
	g.GET("/export", h.Export)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	return r
}

func TestEventHandlerList(t *testing.T) {
	srv := &fakeEventSrv{cacheHit: true}
	rec := perform(t, eventRouter(srv, nil), http.MethodGet, "/events?from=2024-03-01&to=", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "f1", srv.familyID)
	assert.Equal(t, mo.Some("2024-03-01"), srv.from)
	assert.True(t, srv.to.IsAbsent())

	env := decodeEnvelope(t, rec)
	var list dto.EventList
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Events, 1)
	assert.Equal(t, "Swim", list.Events[0].Title)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Equal(t, []interface{}{"e1"}, env.Meta["truncated"])
	assert.Equal(t, []interface{}{}, env.Meta["rejected"])
	assert.Equal(t, map[string]interface{}{"start": "2024-03-01", "end": "2024-03-07"}, env.Meta["range"])
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
}

func TestEventHandlerRequiresClaims(t *testing.T) {
	h := NewEventHandler(&fakeEventSrv{}, nil)
	r := newRouter()
	r.GET("/events", h.List)

	rec := perform(t, r, http.MethodGet, "/events", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEventHandlerCreate(t *testing.T) {
	srv := &fakeEventSrv{}
	body := `{"title":"Swim","date":"2024-03-04","repeat_rule":{"type":"weekly","by_weekday":[1]}}`
	rec := perform(t, eventRouter(srv, nil), http.MethodPost, "/events", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "u1", srv.lastUserID)
	require.NotNil(t, srv.created.RepeatRule)
	assert.Equal(t, []int{1}, srv.created.RepeatRule.ByWeekday)
}

func TestEventHandlerCreateRejectsMalformedJSON(t *testing.T) {
	rec := perform(t, eventRouter(&fakeEventSrv{}, nil), http.MethodPost, "/events", `{"title":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, rec).Error.Code)
}

func TestEventHandlerUpdateTracksExplicitNull(t *testing.T) {
	srv := &fakeEventSrv{}
	rec := perform(t, eventRouter(srv, nil), http.MethodPut, "/events/e1", `{"repeat_rule":null}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, srv.updated.RepeatRule.Set)
	assert.Nil(t, srv.updated.RepeatRule.Rule)
}

func TestEventHandlerGetAndDelete(t *testing.T) {
	srv := &fakeEventSrv{}
	router := eventRouter(srv, nil)

	rec := perform(t, router, http.MethodGet, "/events/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "EVENT_NOT_FOUND", decodeEnvelope(t, rec).Error.Code)

	rec = perform(t, router, http.MethodDelete, "/events/e1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	srv.deleteErr = appErrors.ErrEventNotFound
	rec = perform(t, router, http.MethodDelete, "/events/e1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventHandlerExport(t *testing.T) {
	exporter := &fakeExporter{}
	rec := perform(t, eventRouter(&fakeEventSrv{}, exporter), http.MethodGet, "/events/export", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dto.ExportCSV, exporter.format)
	assert.Equal(t, `attachment; filename="agenda.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "Date\n", rec.Body.String())

	exporter.err = appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	rec = perform(t, eventRouter(&fakeEventSrv{}, exporter), http.MethodGet, "/events/export?format=xlsx", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, dto.ExportFormat("xlsx"), exporter.format)
}

func TestEventHandlerSummary(t *testing.T) {
	rec := perform(t, eventRouter(&fakeEventSrv{}, nil), http.MethodGet, "/events/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary dto.SummaryResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &summary))
	assert.Equal(t, 1, summary.Count)
}
