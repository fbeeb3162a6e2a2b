package models

import "time"

// RefreshToken is a persisted refresh session. Only a bcrypt hash of the
// secret half of the token is stored; lookup happens by ID.
type RefreshToken struct {
	ID         string     `db:"id" json:"id"`
	UserEmail  string     `db:"user_email" json:"user_email"`
	Role       UserRole   `db:"role" json:"role"`
	SecretHash string     `db:"secret_hash" json:"-"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	Revoked    bool       `db:"revoked" json:"revoked"`
	RevokedAt  *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	IPAddress  string     `db:"ip_address" json:"ip_address"`
	UserAgent  string     `db:"user_agent" json:"user_agent"`
}
