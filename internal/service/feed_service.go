package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/statusplus/portal-api/internal/feed"
	"github.com/statusplus/portal-api/internal/models"
)

type announcementLister interface {
	List(ctx context.Context) ([]models.Announcement, error)
}

// FeedService assembles per-viewer announcement feeds: the date cutoff runs
// first, then the recipient rules for the viewer's role. The noticeboard is
// the date-filtered list without role filtering.
type FeedService struct {
	announcements announcementLister
	metrics       *MetricsService
	logger        *zap.Logger
	now           func() time.Time
}

// NewFeedService constructs the service. now may be nil, defaulting to
// time.Now; tests pin it to a fixed instant.
func NewFeedService(announcements announcementLister, metrics *MetricsService, logger *zap.Logger, now func() time.Time) *FeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &FeedService{announcements: announcements, metrics: metrics, logger: logger, now: now}
}

// Feed returns the announcements the viewer should see on their dashboard.
func (s *FeedService) Feed(ctx context.Context, role models.UserRole, profile *models.UserProfile) ([]models.Announcement, error) {
	current, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return feed.FilterVisible(current, role, profile), nil
}

// Noticeboard returns the full-screen display feed: every current
// announcement regardless of targeting.
func (s *FeedService) Noticeboard(ctx context.Context) ([]models.Announcement, error) {
	return s.current(ctx)
}

// current applies the civil-date cutoff and surfaces fail-open targeting in
// metrics. The resolver itself stays pure; counting happens here, once per
// fetch.
func (s *FeedService) current(ctx context.Context) ([]models.Announcement, error) {
	items, err := s.announcements.List(ctx)
	if err != nil {
		return nil, err
	}

	today := feed.CutoffDate(s.now())
	current := feed.ApplyCutoff(items, today)

	for _, a := range current {
		trimmed := models.RecipientType(strings.TrimSpace(string(a.RecipientType)))
		if trimmed != "" && !models.KnownRecipientType(trimmed) {
			s.metrics.RecipientFallback()
			s.logger.Warn("announcement recipient type fell back to visi",
				zap.String("id", a.ID),
				zap.String("recipientType", string(a.RecipientType)),
			)
		}
	}

	return current, nil
}
