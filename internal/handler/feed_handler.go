package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/family-calendar-api/internal/dto"
	"github.com/noah-isme/family-calendar-api/pkg/response"
)

type feedService interface {
	Issue(ctx context.Context, familyID string) (*dto.FeedResponse, error)
	Render(ctx context.Context, token string) ([]byte, error)
	ContentType() string
}

// FeedHandler serves iCalendar subscriptions.
type FeedHandler struct {
	service feedService
}

// NewFeedHandler constructs the handler.
func NewFeedHandler(svc feedService) *FeedHandler {
	return &FeedHandler{service: svc}
}

// Issue godoc
// @Summary Create a calendar subscription link
// @Tags Feeds
// @Produce json
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Router /feeds [post]
func (h *FeedHandler) Issue(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	feed, err := h.service.Issue(c.Request.Context(), claims.FamilyID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, feed)
}

// Feed godoc
// @Summary iCalendar feed
// @Description Public endpoint authorised by the signed token in the path
// @Tags Feeds
// @Produce text/calendar
// @Param token path string true "Signed feed token"
// @Success 200 {string} string
// @Failure 401 {object} response.Envelope
// @Router /feeds/{token} [get]
func (h *FeedHandler) Feed(c *gin.Context) {
	token := strings.TrimSuffix(c.Param("token"), ".ics")
	body, err := h.service.Render(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="family.ics"`)
	c.Data(http.StatusOK, h.service.ContentType(), body)
}
