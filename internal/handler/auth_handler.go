package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/family-calendar-api/internal/models"
	appErrors "github.com/noah-isme/family-calendar-api/pkg/errors"
	"github.com/noah-isme/family-calendar-api/pkg/response"
)

type authService interface {
	JoinFamily(ctx context.Context, req models.JoinFamilyRequest) (*models.JoinFamilyResponse, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// JoinFamily godoc
// @Summary Join or create a family
// @Description Joins the family owning join_code, or creates a new family when no code is given, and returns a session token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.JoinFamilyRequest true "Join payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /auth/join-family [post]
func (h *AuthHandler) JoinFamily(c *gin.Context) {
	var req models.JoinFamilyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid join payload"))
		return
	}

	res, err := h.service.JoinFamily(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, res)
}
