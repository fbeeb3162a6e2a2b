package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/statusplus/portal-api/internal/feed"
	"github.com/statusplus/portal-api/internal/models"
	appErrors "github.com/statusplus/portal-api/pkg/errors"
)

const announcementCacheKey = "announcements:list"

type announcementGateway interface {
	ListAnnouncements(ctx context.Context) ([]models.Announcement, error)
	CreateAnnouncement(ctx context.Context, input models.AnnouncementInput) (*models.Announcement, error)
	UpdateAnnouncement(ctx context.Context, id string, input models.AnnouncementInput) (*models.Announcement, error)
	DeleteAnnouncement(ctx context.Context, id string) error
}

type announcementCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AnnouncementService proxies announcement CRUD to the spreadsheet upstream,
// keeps a short-lived list cache, and validates payloads before any network
// call leaves the server.
type AnnouncementService struct {
	gateway   announcementGateway
	cache     announcementCache
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	cacheTTL  time.Duration
}

// NewAnnouncementService constructs the service.
func NewAnnouncementService(gateway announcementGateway, cache announcementCache, audit auditWriter, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, cacheTTL time.Duration) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AnnouncementService{
		gateway:   gateway,
		cache:     cache,
		audit:     audit,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		cacheTTL:  cacheTTL,
	}
	svc.validator.RegisterValidation("recipient", func(fl validator.FieldLevel) bool {
		return models.KnownRecipientType(models.RecipientType(fl.Field().String()))
	})
	svc.validator.RegisterValidation("announcementtype", func(fl validator.FieldLevel) bool {
		switch models.AnnouncementType(fl.Field().String()) {
		case models.AnnouncementCancelledLesson, models.AnnouncementAbsentTeacher, models.AnnouncementClass, models.AnnouncementUrgent:
			return true
		}
		return false
	})
	return svc
}

// SaveAnnouncementRequest is the payload for creating or editing an
// announcement.
type SaveAnnouncementRequest struct {
	Type             string `json:"type" validate:"required,announcementtype"`
	Title            string `json:"title" validate:"required"`
	Description      string `json:"description" validate:"required"`
	Date             string `json:"date" validate:"required,datetime=2006-01-02"`
	RecipientType    string `json:"recipientType" validate:"required,recipient"`
	RecipientClass   string `json:"recipientClass"`
	RecipientTeacher string `json:"recipientTeacher"`
	SendToParents    bool   `json:"sendToParents"`
}

// List returns all announcements, newest first, for administrators and for
// the feed service. Results are cached briefly to spare the Apps Script
// quota; the sort happens before caching so repeated fetches keep identical
// ordering.
func (s *AnnouncementService) List(ctx context.Context) ([]models.Announcement, error) {
	var cached []models.Announcement
	if s.cache != nil {
		switch err := s.cache.Get(ctx, announcementCacheKey, &cached); {
		case err == nil:
			s.metrics.CacheHit()
			return cached, nil
		case !errors.Is(err, appErrors.ErrCacheMiss):
			s.logger.Warn("announcement cache read failed", zap.Error(err))
		}
		s.metrics.CacheMiss()
	}

	items, err := s.gateway.ListAnnouncements(ctx)
	if err != nil {
		return nil, err
	}
	feed.SortNewestFirst(items)

	if s.cache != nil {
		if err := s.cache.Set(ctx, announcementCacheKey, items, s.cacheTTL); err != nil {
			s.logger.Warn("announcement cache write failed", zap.Error(err))
		}
	}
	return items, nil
}

// Create registers a new announcement upstream.
func (s *AnnouncementService) Create(ctx context.Context, req SaveAnnouncementRequest, createdBy, ip, userAgent string) (*models.Announcement, error) {
	input, err := s.buildInput(req, createdBy)
	if err != nil {
		return nil, err
	}

	created, err := s.gateway.CreateAnnouncement(ctx, input)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.writeAudit(ctx, createdBy, models.AuditActionAnnouncementCreate, created.ID, created, ip, userAgent)
	return created, nil
}

// Update edits an existing announcement upstream.
func (s *AnnouncementService) Update(ctx context.Context, id string, req SaveAnnouncementRequest, updatedBy, ip, userAgent string) (*models.Announcement, error) {
	if strings.TrimSpace(id) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "announcement id required")
	}
	input, err := s.buildInput(req, updatedBy)
	if err != nil {
		return nil, err
	}

	updated, err := s.gateway.UpdateAnnouncement(ctx, id, input)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.writeAudit(ctx, updatedBy, models.AuditActionAnnouncementUpdate, id, updated, ip, userAgent)
	return updated, nil
}

// Delete removes an announcement upstream.
func (s *AnnouncementService) Delete(ctx context.Context, id, deletedBy, ip, userAgent string) error {
	if strings.TrimSpace(id) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "announcement id required")
	}
	if err := s.gateway.DeleteAnnouncement(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx)
	s.writeAudit(ctx, deletedBy, models.AuditActionAnnouncementDelete, id, nil, ip, userAgent)
	return nil
}

// buildInput validates the payload. Targeting students or parents requires
// a class; the check runs before any upstream call.
func (s *AnnouncementService) buildInput(req SaveAnnouncementRequest, createdBy string) (models.AnnouncementInput, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.AnnouncementInput{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}

	recipientType := models.RecipientType(req.RecipientType)
	if (recipientType == models.RecipientStudents || recipientType == models.RecipientParents) && strings.TrimSpace(req.RecipientClass) == "" {
		return models.AnnouncementInput{}, appErrors.Clone(appErrors.ErrValidation, "Pasirinkite klasę, kuriai skirtas pranešimas.")
	}

	return models.AnnouncementInput{
		Type:             models.AnnouncementType(req.Type),
		Title:            strings.TrimSpace(req.Title),
		Description:      strings.TrimSpace(req.Description),
		Date:             strings.TrimSpace(req.Date),
		RecipientType:    recipientType,
		RecipientClass:   strings.TrimSpace(req.RecipientClass),
		RecipientTeacher: strings.TrimSpace(req.RecipientTeacher),
		SendToParents:    req.SendToParents,
		CreatedBy:        createdBy,
	}, nil
}

func (s *AnnouncementService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, announcementCacheKey); err != nil {
		s.logger.Warn("announcement cache invalidation failed", zap.Error(err))
	}
}

func (s *AnnouncementService) writeAudit(ctx context.Context, userEmail, action, resourceID string, payload interface{}, ip, userAgent string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		Action:    action,
		Resource:  "announcements",
		IPAddress: ip,
		UserAgent: userAgent,
	}
	if userEmail != "" {
		log.UserEmail = &userEmail
	}
	if resourceID != "" {
		log.ResourceID = &resourceID
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			log.Details = raw
		}
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record announcement audit log", zap.String("action", action), zap.Error(err))
	}
}
