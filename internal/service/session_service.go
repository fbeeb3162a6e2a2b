package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/statusplus/portal-api/internal/models"
	"github.com/statusplus/portal-api/internal/navigation"
	appErrors "github.com/statusplus/portal-api/pkg/errors"
)

type navigationStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// NavigationEvent is one user action applied to the navigation machine.
type NavigationEvent struct {
	Event string            `json:"event" binding:"required"`
	Role  string            `json:"role,omitempty"`
	Entry *navigation.Entry `json:"entry,omitempty"`
}

// SessionService keeps each account's navigation machine in Redis under a
// sliding TTL. The TTL is the inactivity timeout: any authenticated request
// touches the key, and an expired key means the session fell back to login
// with no history to resurrect it from.
type SessionService struct {
	store  navigationStore
	logger *zap.Logger
	ttl    time.Duration
}

// NewSessionService constructs the service.
func NewSessionService(store navigationStore, logger *zap.Logger, ttl time.Duration) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionService{store: store, logger: logger, ttl: ttl}
}

// Navigation returns the caller's current machine snapshot, creating a
// fresh login machine when none exists or the previous one expired.
func (s *SessionService) Navigation(ctx context.Context, userKey string) (navigation.Snapshot, error) {
	machine, err := s.load(ctx, userKey)
	if err != nil {
		return navigation.Snapshot{}, err
	}
	return machine.Snapshot(), nil
}

// Apply runs one event through the machine and persists the result.
func (s *SessionService) Apply(ctx context.Context, userKey string, event NavigationEvent) (navigation.Snapshot, error) {
	machine, err := s.load(ctx, userKey)
	if err != nil {
		return navigation.Snapshot{}, err
	}

	switch event.Event {
	case "selectRole":
		role, ok := models.ParseRole(event.Role)
		if !ok {
			return navigation.Snapshot{}, appErrors.Clone(appErrors.ErrValidation, "unknown role")
		}
		err = machine.SelectRole(role)
	case "loginSucceeded":
		err = machine.LoginSucceeded()
	case "back":
		machine.Back()
	case "logout":
		machine.Logout()
	case "forceLogout":
		machine.ForceLogout()
	case "openNoticeboard":
		err = machine.OpenNoticeBoard()
	case "closeNoticeboard":
		machine.CloseNoticeBoard()
	case "restore":
		if event.Entry == nil {
			return navigation.Snapshot{}, appErrors.Clone(appErrors.ErrValidation, "restore requires a history entry")
		}
		machine.Restore(*event.Entry)
	default:
		return navigation.Snapshot{}, appErrors.Clone(appErrors.ErrValidation, "unknown navigation event")
	}
	if err != nil {
		return navigation.Snapshot{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	snapshot := machine.Snapshot()
	if err := s.store.Set(ctx, s.key(userKey), snapshot, s.ttl); err != nil {
		return navigation.Snapshot{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist navigation state")
	}
	return snapshot, nil
}

// Touch slides the inactivity window. Called on every authenticated request.
func (s *SessionService) Touch(ctx context.Context, userKey string) {
	if err := s.store.Expire(ctx, s.key(userKey), s.ttl); err != nil {
		s.logger.Warn("failed to refresh session ttl", zap.Error(err))
	}
}

// Clear drops the stored machine, forcing the next load to start at login.
func (s *SessionService) Clear(ctx context.Context, userKey string) {
	if err := s.store.Delete(ctx, s.key(userKey)); err != nil {
		s.logger.Warn("failed to clear navigation session", zap.Error(err))
	}
}

func (s *SessionService) load(ctx context.Context, userKey string) (*navigation.Machine, error) {
	var snapshot navigation.Snapshot
	err := s.store.Get(ctx, s.key(userKey), &snapshot)
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return navigation.New(), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load navigation state")
	}
	return navigation.FromSnapshot(snapshot), nil
}

func (s *SessionService) key(userKey string) string {
	return fmt.Sprintf("session:navigation:%s", userKey)
}
