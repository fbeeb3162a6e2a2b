package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/statusplus/portal-api/internal/service"
	appErrors "github.com/statusplus/portal-api/pkg/errors"
	"github.com/statusplus/portal-api/pkg/response"
)

// NavigationHandler exposes the per-session navigation machine so clients
// can replay browser history events against the server-held state.
type NavigationHandler struct {
	sessions *service.SessionService
}

// NewNavigationHandler creates a new handler.
func NewNavigationHandler(sessions *service.SessionService) *NavigationHandler {
	return &NavigationHandler{sessions: sessions}
}

// State godoc
// @Summary Current navigation state
// @Description Snapshot of the caller's view, role and history stack
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /session/navigation [get]
func (h *NavigationHandler) State(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	snapshot, err := h.sessions.Navigation(c.Request.Context(), claims.Email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, snapshot)
}

// Apply godoc
// @Summary Apply a navigation event
// @Description Runs one event (selectRole, loginSucceeded, back, logout, forceLogout, openNoticeboard, closeNoticeboard, restore) through the navigation machine
// @Tags Session
// @Accept json
// @Produce json
// @Param event body service.NavigationEvent true "Navigation event"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /session/navigation/events [post]
func (h *NavigationHandler) Apply(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var event service.NavigationEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	snapshot, err := h.sessions.Apply(c.Request.Context(), claims.Email, event)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, snapshot)
}
