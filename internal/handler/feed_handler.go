package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/statusplus/portal-api/internal/service"
	appErrors "github.com/statusplus/portal-api/pkg/errors"
	"github.com/statusplus/portal-api/pkg/response"
)

// FeedHandler serves the per-role dashboard feed and the full-screen
// noticeboard view.
type FeedHandler struct {
	service *service.FeedService
}

// NewFeedHandler creates a new handler.
func NewFeedHandler(svc *service.FeedService) *FeedHandler {
	return &FeedHandler{service: svc}
}

// Feed godoc
// @Summary Dashboard announcement feed
// @Description Current announcements filtered for the authenticated viewer
// @Tags Feed
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /feed [get]
func (h *FeedHandler) Feed(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	items, err := h.service.Feed(c.Request.Context(), claims.Role, &claims.Profile)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items)
}

// Noticeboard godoc
// @Summary Notice board feed
// @Description Current announcements for the full-screen display, unfiltered by recipient
// @Tags Feed
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /noticeboard [get]
func (h *FeedHandler) Noticeboard(c *gin.Context) {
	items, err := h.service.Noticeboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items)
}
