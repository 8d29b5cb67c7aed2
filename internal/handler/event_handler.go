package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/mo"

	"github.com/noah-isme/family-calendar-api/internal/dto"
	"github.com/noah-isme/family-calendar-api/internal/middleware"
	appErrors "github.com/noah-isme/family-calendar-api/pkg/errors"
	"github.com/noah-isme/family-calendar-api/pkg/response"
)

type eventService interface {
	List(ctx context.Context, familyID string, from, to mo.Option[string]) (*dto.EventList, *dto.EventListMeta, error)
	Summary(ctx context.Context, familyID string, from, to mo.Option[string]) (*dto.SummaryResponse, error)
	Get(ctx context.Context, familyID, id string) (*dto.EventResponse, error)
	Create(ctx context.Context, familyID, userID string, req dto.CreateEventRequest) (*dto.EventResponse, error)
	Update(ctx context.Context, familyID, id string, req dto.UpdateEventRequest) (*dto.EventResponse, error)
	Delete(ctx context.Context, familyID, id string) error
}

type agendaExporter interface {
	Agenda(ctx context.Context, familyID string, format dto.ExportFormat, from, to mo.Option[string]) (*dto.ExportFile, error)
}

// EventHandler exposes the family calendar.
type EventHandler struct {
	events  eventService
	exports agendaExporter
}

// NewEventHandler constructs the handler.
func NewEventHandler(events eventService, exports agendaExporter) *EventHandler {
	return &EventHandler{events: events, exports: exports}
}

// List godoc
// @Summary List occurrences
// @Description Expands the family's events over [from, to]. Missing or invalid bounds default to yesterday and two weeks ahead.
// @Tags Events
// @Produce json
// @Security BearerAuth
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	list, meta, err := h.events.List(c.Request.Context(), claims.FamilyID, queryOption(c, "from"), queryOption(c, "to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, meta.CacheHit)
	response.OK(c, list, middleware.ResponseMeta(c, meta.Map()))
}

// Summary godoc
// @Summary Summarise occurrences
// @Tags Events
// @Produce json
// @Security BearerAuth
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /events/summary [get]
func (h *EventHandler) Summary(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	summary, err := h.events.Summary(c.Request.Context(), claims.FamilyID, queryOption(c, "from"), queryOption(c, "to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// Export godoc
// @Summary Export agenda
// @Tags Events
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" default(csv)
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /events/export [get]
func (h *EventHandler) Export(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	if h.exports == nil {
		response.Error(c, appErrors.ErrServiceUnavailable)
		return
	}
	format := dto.ExportFormat(c.DefaultQuery("format", string(dto.ExportCSV)))
	file, err := h.exports.Agenda(c.Request.Context(), claims.FamilyID, format, queryOption(c, "from"), queryOption(c, "to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Body)
}

// Get godoc
// @Summary Get a stored event
// @Tags Events
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	event, err := h.events.Get(c.Request.Context(), claims.FamilyID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, event)
}

// Create godoc
// @Summary Create an event
// @Tags Events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateEventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /events [post]
func (h *EventHandler) Create(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event payload"))
		return
	}
	event, err := h.events.Create(c.Request.Context(), claims.FamilyID, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Update godoc
// @Summary Update an event
// @Description Partial update. Omitted fields keep their values; repeat_rule null clears the rule.
// @Tags Events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param payload body dto.UpdateEventRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id} [put]
func (h *EventHandler) Update(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event payload"))
		return
	}
	event, err := h.events.Update(c.Request.Context(), claims.FamilyID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, event)
}

// Delete godoc
// @Summary Delete an event
// @Tags Events
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /events/{id} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	if err := h.events.Delete(c.Request.Context(), claims.FamilyID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
