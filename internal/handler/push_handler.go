package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/family-calendar-api/internal/models"
	appErrors "github.com/noah-isme/family-calendar-api/pkg/errors"
	"github.com/noah-isme/family-calendar-api/pkg/response"
)

type pushService interface {
	PublicKey() (string, error)
	Subscribe(ctx context.Context, userID string, req models.SubscribeRequest) error
}

// PushHandler manages browser push registration.
type PushHandler struct {
	service pushService
}

// NewPushHandler constructs the handler.
func NewPushHandler(svc pushService) *PushHandler {
	return &PushHandler{service: svc}
}

// PublicKey godoc
// @Summary VAPID public key
// @Tags Push
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /push/public-key [get]
func (h *PushHandler) PublicKey(c *gin.Context) {
	key, err := h.service.PublicKey()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"public_key": key})
}

// Subscribe godoc
// @Summary Store the caller's push subscription
// @Tags Push
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.SubscribeRequest true "Browser subscription"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /push/subscribe [post]
func (h *PushHandler) Subscribe(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req models.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "subscription required"))
		return
	}
	if err := h.service.Subscribe(c.Request.Context(), claims.UserID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"ok": true})
}
