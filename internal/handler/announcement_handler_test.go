package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statusplus/portal-api/internal/middleware"
	"github.com/statusplus/portal-api/internal/models"
	"github.com/statusplus/portal-api/internal/service"
)

type stubGateway struct {
	items   []models.Announcement
	created *models.Announcement
	deleted []string
}

func (s *stubGateway) ListAnnouncements(context.Context) ([]models.Announcement, error) {
	return s.items, nil
}

func (s *stubGateway) CreateAnnouncement(_ context.Context, _ models.AnnouncementInput) (*models.Announcement, error) {
	return s.created, nil
}

func (s *stubGateway) UpdateAnnouncement(_ context.Context, _ string, _ models.AnnouncementInput) (*models.Announcement, error) {
	return s.created, nil
}

func (s *stubGateway) DeleteAnnouncement(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{Role: models.RoleAdmin, Email: "admin@mokykla.lt"}
}

func newAnnouncementHandler(gateway *stubGateway) *AnnouncementHandler {
	return NewAnnouncementHandler(service.NewAnnouncementService(gateway, nil, nil, nil, nil, nil, time.Minute))
}

func TestAnnouncementHandlerListIncludesStaleRecords(t *testing.T) {
	gateway := &stubGateway{items: []models.Announcement{
		{ID: "stale", Date: "2020-01-01"},
		{ID: "current", Date: "2099-01-01"},
	}}
	handler := newAnnouncementHandler(gateway)

	c, rec := getWithClaims(t, adminClaims())
	handler.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data, ok := envelope.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, data, 2)
}

func TestAnnouncementHandlerCreate(t *testing.T) {
	gateway := &stubGateway{created: &models.Announcement{ID: "n-1", Title: "Nauja"}}
	handler := newAnnouncementHandler(gateway)

	c, rec := postJSON(t, gin.H{
		"type":           "urgent",
		"title":          "Nauja",
		"description":    "Aprašymas",
		"date":           "2026-05-01",
		"recipientType":  "mokiniai",
		"recipientClass": "9C",
	})
	c.Set(middleware.ContextUserKey, adminClaims())
	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAnnouncementHandlerCreateValidationFailure(t *testing.T) {
	handler := newAnnouncementHandler(&stubGateway{})

	c, rec := postJSON(t, gin.H{
		"type":          "urgent",
		"title":         "Nauja",
		"description":   "Aprašymas",
		"date":          "2026-05-01",
		"recipientType": "mokiniai",
	})
	c.Set(middleware.ContextUserKey, adminClaims())
	handler.Create(c)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "Pasirinkite klasę, kuriai skirtas pranešimas.", envelope.Error.Message)
}

func TestAnnouncementHandlerCreateRequiresClaims(t *testing.T) {
	handler := newAnnouncementHandler(&stubGateway{})

	c, rec := postJSON(t, gin.H{})
	handler.Create(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAnnouncementHandlerUpdate(t *testing.T) {
	gateway := &stubGateway{created: &models.Announcement{ID: "n-1"}}
	handler := newAnnouncementHandler(gateway)

	c, rec := postJSON(t, gin.H{
		"type":          "class-announcement",
		"title":         "Atnaujinta",
		"description":   "Aprašymas",
		"date":          "2026-05-02",
		"recipientType": "visi",
	})
	c.Params = gin.Params{{Key: "id", Value: "n-1"}}
	c.Set(middleware.ContextUserKey, adminClaims())
	handler.Update(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnnouncementHandlerDelete(t *testing.T) {
	gateway := &stubGateway{}
	handler := newAnnouncementHandler(gateway)

	c, rec := getWithClaims(t, adminClaims())
	c.Params = gin.Params{{Key: "id", Value: "n-1"}}
	handler.Delete(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"n-1"}, gateway.deleted)
}
