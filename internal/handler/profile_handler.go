package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/family-calendar-api/internal/models"
	"github.com/noah-isme/family-calendar-api/pkg/response"
)

type profileService interface {
	Me(ctx context.Context, userID, familyID string) (*models.Profile, error)
}

// ProfileHandler serves the caller's profile.
type ProfileHandler struct {
	service profileService
}

// NewProfileHandler constructs the handler.
func NewProfileHandler(svc profileService) *ProfileHandler {
	return &ProfileHandler{service: svc}
}

// Me godoc
// @Summary Current member
// @Description Returns the caller, their family and its members
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /me [get]
func (h *ProfileHandler) Me(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	profile, err := h.service.Me(c.Request.Context(), claims.UserID, claims.FamilyID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, profile)
}
