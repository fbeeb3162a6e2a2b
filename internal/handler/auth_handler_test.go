package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statusplus/portal-api/internal/middleware"
	"github.com/statusplus/portal-api/internal/models"
	"github.com/statusplus/portal-api/internal/service"
	appErrors "github.com/statusplus/portal-api/pkg/errors"
	"github.com/statusplus/portal-api/pkg/response"
)

type stubUpstream struct {
	profile  *models.UserProfile
	loginErr error
}

func (s *stubUpstream) AdminLogin(context.Context, string, string) error {
	return s.loginErr
}

func (s *stubUpstream) LoginUser(context.Context, models.UserRole, string, string) (*models.UserProfile, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return s.profile, nil
}

func (s *stubUpstream) CreateUser(context.Context, models.UserRole, string, string, map[string]string) (*models.UserProfile, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return s.profile, nil
}

type stubSessionRepo struct {
	tokens  map[string]*models.RefreshToken
	revoked []string
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{tokens: map[string]*models.RefreshToken{}}
}

func (s *stubSessionRepo) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	s.tokens[token.ID] = token
	return nil
}

func (s *stubSessionRepo) FindRefreshToken(_ context.Context, id string) (*models.RefreshToken, error) {
	token, ok := s.tokens[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return token, nil
}

func (s *stubSessionRepo) RevokeRefreshToken(_ context.Context, id string, _ time.Time) error {
	s.revoked = append(s.revoked, id)
	if token, ok := s.tokens[id]; ok {
		token.Revoked = true
	}
	return nil
}

func (s *stubSessionRepo) RevokeUserRefreshTokens(context.Context, string) error { return nil }

func (s *stubSessionRepo) CreateAuditLog(context.Context, *models.AuditLog) error { return nil }

type stubNavStore struct {
	values  map[string][]byte
	deleted []string
}

func newStubNavStore() *stubNavStore {
	return &stubNavStore{values: map[string][]byte{}}
}

func (s *stubNavStore) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := s.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *stubNavStore) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.values[key] = raw
	return nil
}

func (s *stubNavStore) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	delete(s.values, key)
	return nil
}

func (s *stubNavStore) Expire(context.Context, string, time.Duration) error { return nil }

func newTestAuthService(upstream *stubUpstream, sessions *stubSessionRepo) *service.AuthService {
	return service.NewAuthService(upstream, sessions, nil, nil, service.AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "status-plus",
	})
}

func postJSON(t *testing.T, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestAuthHandlerLoginSuccess(t *testing.T) {
	handler := NewAuthHandler(newTestAuthService(&stubUpstream{profile: &models.UserProfile{Klase: "9C"}}, newStubSessionRepo()), nil)

	c, rec := postJSON(t, gin.H{"role": "mokinys", "email": "jonas@mokykla.lt", "password": "slaptas"})
	handler.Login(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, data["access_token"])
	assert.NotEmpty(t, data["refresh_token"])
}

func TestAuthHandlerLoginBadPayload(t *testing.T) {
	handler := NewAuthHandler(newTestAuthService(&stubUpstream{}, newStubSessionRepo()), nil)

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("ne json")))

	handler.Login(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	upstream := &stubUpstream{loginErr: appErrors.Clone(appErrors.ErrUpstreamRejected, "Neteisingas slaptažodis.")}
	handler := NewAuthHandler(newTestAuthService(upstream, newStubSessionRepo()), nil)

	c, rec := postJSON(t, gin.H{"role": "mokinys", "email": "jonas@mokykla.lt", "password": "blogas"})
	handler.Login(c)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "Neteisingas slaptažodis.", envelope.Error.Message)
}

func TestAuthHandlerRegisterCreated(t *testing.T) {
	handler := NewAuthHandler(newTestAuthService(&stubUpstream{profile: &models.UserProfile{}}, newStubSessionRepo()), nil)

	c, rec := postJSON(t, gin.H{
		"role":         "mokinys",
		"email":        "jonas@mokykla.lt",
		"password":     "slaptas",
		"registration": gin.H{"vardas": "Jonas", "klase": "9C"},
	})
	handler.Register(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAuthHandlerLogoutClearsNavigationSession(t *testing.T) {
	upstream := &stubUpstream{profile: &models.UserProfile{}}
	sessions := newStubSessionRepo()
	authSvc := newTestAuthService(upstream, sessions)
	store := newStubNavStore()
	sessionSvc := service.NewSessionService(store, nil, time.Hour)
	handler := NewAuthHandler(authSvc, sessionSvc)

	login, err := authSvc.Login(context.Background(), models.LoginRequest{
		Role:     "mokinys",
		Email:    "jonas@mokykla.lt",
		Password: "slaptas",
	})
	require.NoError(t, err)

	c, rec := postJSON(t, gin.H{"refresh_token": login.RefreshToken})
	c.Set(middleware.ContextUserKey, &models.JWTClaims{Role: models.RoleStudent, Email: "jonas@mokykla.lt"})

	handler.Logout(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, sessions.revoked)
	assert.Contains(t, store.deleted, "session:navigation:jonas@mokykla.lt")
}

func TestAuthHandlerLogoutRequiresClaims(t *testing.T) {
	handler := NewAuthHandler(newTestAuthService(&stubUpstream{}, newStubSessionRepo()), nil)

	c, rec := postJSON(t, gin.H{"refresh_token": "id.secret"})
	handler.Logout(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
