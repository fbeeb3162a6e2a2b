package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statusplus/portal-api/internal/models"
	"github.com/statusplus/portal-api/internal/service"
	appErrors "github.com/statusplus/portal-api/pkg/errors"
)

type noopUpstream struct{}

func (noopUpstream) AdminLogin(context.Context, string, string) error { return nil }

func (noopUpstream) LoginUser(context.Context, models.UserRole, string, string) (*models.UserProfile, error) {
	return &models.UserProfile{}, nil
}

func (noopUpstream) CreateUser(context.Context, models.UserRole, string, string, map[string]string) (*models.UserProfile, error) {
	return &models.UserProfile{}, nil
}

type noopSessions struct{}

func (noopSessions) CreateRefreshToken(context.Context, *models.RefreshToken) error { return nil }

func (noopSessions) FindRefreshToken(context.Context, string) (*models.RefreshToken, error) {
	return nil, nil
}

func (noopSessions) RevokeRefreshToken(context.Context, string, time.Time) error { return nil }

func (noopSessions) RevokeUserRefreshTokens(context.Context, string) error { return nil }

func (noopSessions) CreateAuditLog(context.Context, *models.AuditLog) error { return nil }

func newAuthService(t *testing.T) *service.AuthService {
	t.Helper()
	return service.NewAuthService(noopUpstream{}, noopSessions{}, nil, nil, service.AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "status-plus",
	})
}

func jwtRouter(t *testing.T) (*gin.Engine, *service.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	authSvc := newAuthService(t)
	r := gin.New()
	r.GET("/protected", JWT(authSvc), func(c *gin.Context) {
		claims, _ := c.Get(ContextUserKey)
		c.JSON(http.StatusOK, gin.H{"email": claims.(*models.JWTClaims).Email})
	})
	return r, authSvc
}

func TestJWTRejectsMissingHeader(t *testing.T) {
	r, _ := jwtRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTRejectsMalformedHeader(t *testing.T) {
	r, _ := jwtRouter(t)

	for _, header := range []string{"Basic abc", "Bearer", "token-only"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", header)
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}

func TestJWTAcceptsValidToken(t *testing.T) {
	r, authSvc := jwtRouter(t)

	login, err := authSvc.Login(context.Background(), models.LoginRequest{
		Role:     "mokinys",
		Email:    "jonas@mokykla.lt",
		Password: "slaptas",
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "jonas@mokykla.lt", body["email"])
}

func TestRequireRolesAllowsMatchingRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{Role: models.RoleAdmin})
	}, RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRolesForbidsOtherRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{Role: models.RoleStudent})
	}, RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRolesRejectsUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type recordingStore struct {
	expired []string
}

func (r *recordingStore) Get(_ context.Context, _ string, _ interface{}) error {
	return appErrors.ErrCacheMiss
}

func (r *recordingStore) Set(context.Context, string, interface{}, time.Duration) error { return nil }

func (r *recordingStore) Delete(context.Context, string) error { return nil }

func (r *recordingStore) Expire(_ context.Context, key string, _ time.Duration) error {
	r.expired = append(r.expired, key)
	return nil
}

func TestActivityTouchesSessionForAuthenticatedUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &recordingStore{}
	sessions := service.NewSessionService(store, nil, time.Hour)

	r := gin.New()
	r.GET("/feed", func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{Role: models.RoleStudent, Email: "jonas@mokykla.lt"})
	}, Activity(sessions), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feed", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"session:navigation:jonas@mokykla.lt"}, store.expired)
}

func TestActivityIgnoresAnonymousRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &recordingStore{}
	sessions := service.NewSessionService(store, nil, time.Hour)

	r := gin.New()
	r.GET("/health", Activity(sessions), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, store.expired)
}
