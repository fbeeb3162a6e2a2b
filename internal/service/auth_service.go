package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/statusplus/portal-api/internal/models"
	appErrors "github.com/statusplus/portal-api/pkg/errors"
)

type authUpstream interface {
	AdminLogin(ctx context.Context, email, password string) error
	LoginUser(ctx context.Context, role models.UserRole, email, password string) (*models.UserProfile, error)
	CreateUser(ctx context.Context, role models.UserRole, email, password string, registration map[string]string) (*models.UserProfile, error)
}

type sessionRepository interface {
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, id string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userEmail string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Issuer             string
	SingleSession      bool
}

// AuthService validates credentials against the spreadsheet upstream and
// manages the locally issued token pair. Credentials are opaque strings to
// this service; only the upstream knows whether they match.
type AuthService struct {
	upstream  authUpstream
	sessions  sessionRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(upstream authUpstream, sessions sessionRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &AuthService{upstream: upstream, sessions: sessions, validator: validate, logger: logger, config: config}
	svc.validator.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseRole(fl.Field().String())
		return ok
	})
	return svc
}

// Login authenticates against the upstream and issues a token pair. The
// administrator flow uses the upstream's bare credential body; every other
// role goes through the loginUser action and returns a stored profile.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	role, _ := models.ParseRole(req.Role)

	var profile *models.UserProfile
	if role == models.RoleAdmin {
		if err := s.upstream.AdminLogin(ctx, req.Email, req.Password); err != nil {
			return nil, s.loginError(err, "Neteisingi administratoriaus prisijungimo duomenys.")
		}
		profile = &models.UserProfile{Role: role, Email: strings.TrimSpace(req.Email)}
	} else {
		var err error
		profile, err = s.upstream.LoginUser(ctx, role, req.Email, req.Password)
		if err != nil {
			return nil, s.loginError(err, appErrors.ErrInvalidCredentials.Message)
		}
		profile.Role = role
		if profile.Email == "" {
			profile.Email = strings.TrimSpace(req.Email)
		}
	}

	return s.issueSession(ctx, profile, models.AuditActionLogin, req.IP, req.UserAgent)
}

// Register creates an account via the upstream and logs the user in.
// Administrator accounts are provisioned directly in the spreadsheet, never
// through the portal.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	role, _ := models.ParseRole(req.Role)
	if role == models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Administracijos paskyra kuriama tik duomenų bazėje.")
	}

	profile, err := s.upstream.CreateUser(ctx, role, req.Email, req.Password, req.Registration)
	if err != nil {
		return nil, err
	}
	profile.Role = role
	if profile.Email == "" {
		profile.Email = strings.TrimSpace(req.Email)
	}

	return s.issueSession(ctx, profile, models.AuditActionRegister, req.IP, req.UserAgent)
}

// Refresh rotates a refresh token and issues a new access token.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refresh payload")
	}

	stored, secret, err := s.lookupRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}

	if stored.Revoked || time.Now().UTC().After(stored.ExpiresAt) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token is expired or revoked")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(stored.SecretHash), []byte(secret)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token mismatch")
	}

	if err := s.sessions.RevokeRefreshToken(ctx, stored.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to revoke used refresh token", zap.Error(err))
	}

	profile := models.UserProfile{Role: stored.Role, Email: stored.UserEmail}
	accessToken, err := s.generateAccessToken(&profile)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate access token")
	}

	refreshValue, err := s.createRefreshToken(ctx, &profile, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}

	return &models.RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshValue,
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:     time.Now().UTC(),
	}, nil
}

// Logout revokes the provided refresh token.
func (s *AuthService) Logout(ctx context.Context, refreshToken, userEmail, ip, userAgent string) error {
	stored, _, err := s.lookupRefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}

	if stored.UserEmail != userEmail {
		return appErrors.Clone(appErrors.ErrForbidden, "token does not belong to user")
	}

	if err := s.sessions.RevokeRefreshToken(ctx, stored.ID, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke refresh token")
	}

	s.audit(ctx, userEmail, models.AuditActionLogout, "auth", nil, ip, userAgent)
	return nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) issueSession(ctx context.Context, profile *models.UserProfile, auditAction, ip, userAgent string) (*models.LoginResponse, error) {
	if s.config.SingleSession {
		if err := s.sessions.RevokeUserRefreshTokens(ctx, profile.Email); err != nil {
			s.logger.Warn("failed to revoke previous refresh tokens", zap.Error(err))
		}
	}

	accessToken, err := s.generateAccessToken(profile)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	refreshValue, err := s.createRefreshToken(ctx, profile, ip, userAgent)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, profile.Email, auditAction, "auth", nil, ip, userAgent)

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshValue,
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		Profile:      *profile,
		IssuedAt:     time.Now().UTC(),
	}, nil
}

// createRefreshToken builds an "id.secret" token, storing only a bcrypt
// hash of the secret half.
func (s *AuthService) createRefreshToken(ctx context.Context, profile *models.UserProfile, ip, userAgent string) (string, error) {
	secret, err := randomToken()
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash refresh token")
	}

	token := &models.RefreshToken{
		ID:         uuid.NewString(),
		UserEmail:  profile.Email,
		Role:       profile.Role,
		SecretHash: string(hash),
		ExpiresAt:  time.Now().UTC().Add(s.config.RefreshTokenExpiry),
		CreatedAt:  time.Now().UTC(),
		IPAddress:  ip,
		UserAgent:  userAgent,
	}

	if err := s.sessions.CreateRefreshToken(ctx, token); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refresh token")
	}

	return token.ID + "." + secret, nil
}

func (s *AuthService) lookupRefreshToken(ctx context.Context, raw string) (*models.RefreshToken, string, error) {
	id, secret, ok := strings.Cut(raw, ".")
	if !ok || id == "" || secret == "" {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "malformed refresh token")
	}

	stored, err := s.sessions.FindRefreshToken(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "refresh token not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch refresh token")
	}

	return stored, secret, nil
}

func (s *AuthService) generateAccessToken(profile *models.UserProfile) (string, error) {
	issuedAt := time.Now().UTC()
	claims := &models.JWTClaims{
		Role:    profile.Role,
		Email:   profile.Email,
		Profile: *profile,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   profile.Email,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.AccessTokenSecret))
}

// loginError maps an upstream rejection onto a 401 without losing the
// upstream's own message; transport and decode failures pass through.
func (s *AuthService) loginError(err error, fallback string) error {
	appErr := appErrors.FromError(err)
	if appErr.Code == appErrors.ErrUpstreamRejected.Code {
		message := appErr.Message
		if message == "" || message == appErrors.ErrUpstreamRejected.Message {
			message = fallback
		}
		return appErrors.New(appErrors.ErrInvalidCredentials.Code, appErrors.ErrInvalidCredentials.Status, message)
	}
	return err
}

func (s *AuthService) audit(ctx context.Context, userEmail, action, resource string, resourceID *string, ip, userAgent string) {
	log := &models.AuditLog{
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IPAddress:  ip,
		UserAgent:  userAgent,
	}
	if userEmail != "" {
		log.UserEmail = &userEmail
	}
	if err := s.sessions.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
