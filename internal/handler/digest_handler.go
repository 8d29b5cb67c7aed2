package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/family-calendar-api/internal/models"
	"github.com/noah-isme/family-calendar-api/pkg/response"
)

type digestPreviewer interface {
	Preview(ctx context.Context, kind models.DigestKind, familyID string) (*models.Digest, error)
}

// DigestHandler previews push digests.
type DigestHandler struct {
	service digestPreviewer
}

// NewDigestHandler constructs the handler.
func NewDigestHandler(svc digestPreviewer) *DigestHandler {
	return &DigestHandler{service: svc}
}

// Preview godoc
// @Summary Preview a digest
// @Description Builds the notification the caller's family would receive, without sending it
// @Tags Digests
// @Produce json
// @Security BearerAuth
// @Param kind query string false "morning or evening" default(morning)
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /digests/preview [get]
func (h *DigestHandler) Preview(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	kind := models.DigestKind(strings.ToLower(c.DefaultQuery("kind", string(models.DigestMorning))))
	digest, err := h.service.Preview(c.Request.Context(), kind, claims.FamilyID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, digest)
}
