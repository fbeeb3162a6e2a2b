package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials forwarded opaquely to the upstream.
type LoginRequest struct {
	Role      string `json:"role" validate:"required,role"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// RegisterRequest creates a new portal account via the upstream.
type RegisterRequest struct {
	Role         string            `json:"role" validate:"required,role"`
	Email        string            `json:"email" validate:"required,email"`
	Password     string            `json:"password" validate:"required,min=6"`
	Registration map[string]string `json:"registration"`
	IP           string            `json:"-"`
	UserAgent    string            `json:"-"`
}

// LoginResponse returns the issued tokens and the upstream profile.
type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"`
	Profile      UserProfile `json:"profile"`
	IssuedAt     time.Time   `json:"issued_at"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshTokenResponse returns the rotated tokens.
type RefreshTokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// JWTClaims is the access-token payload. The profile snapshot travels in the
// token because the upstream has no profile lookup besides login itself.
type JWTClaims struct {
	Role    UserRole    `json:"role"`
	Email   string      `json:"email"`
	Profile UserProfile `json:"profile"`
	jwt.RegisteredClaims
}
