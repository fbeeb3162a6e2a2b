package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/statusplus/portal-api/internal/models"
)

// SessionRepository persists the server-side session artifacts: refresh
// tokens and the audit trail. Accounts themselves live upstream in the
// spreadsheet, so there is no users table.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new instance of SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateRefreshToken persists a refresh token entry.
func (r *SessionRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO refresh_tokens (id, user_email, role, secret_hash, expires_at, created_at, revoked, ip_address, user_agent)
VALUES (:id, :user_email, :role, :secret_hash, :expires_at, :created_at, :revoked, :ip_address, :user_agent)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken returns a refresh token by its identifier. Secrets are
// hashed at rest, so lookup is by ID and the caller compares the secret.
func (r *SessionRepository) FindRefreshToken(ctx context.Context, id string) (*models.RefreshToken, error) {
	const query = `SELECT id, user_email, role, secret_hash, expires_at, created_at, revoked, revoked_at, ip_address, user_agent
FROM refresh_tokens WHERE id = $1 LIMIT 1`
	var token models.RefreshToken
	if err := r.db.GetContext(ctx, &token, query, id); err != nil {
		return nil, err
	}
	return &token, nil
}

// RevokeRefreshToken marks a single refresh token as revoked.
func (r *SessionRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeUserRefreshTokens revokes every active token for an account.
func (r *SessionRepository) RevokeUserRefreshTokens(ctx context.Context, userEmail string) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = NOW() WHERE user_email = $1 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userEmail); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}

// CreateAuditLog stores an audit trail record.
func (r *SessionRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_email, action, resource, resource_id, details, ip_address, user_agent, created_at)
VALUES (:id, :user_email, :action, :resource, :resource_id, :details, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
