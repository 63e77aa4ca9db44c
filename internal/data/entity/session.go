package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session rows are deactivated, never deleted. Token is empty between creation
// and the moment the signed credential embedding the session id is minted.
type Session struct {
	Base
	UserID    uuid.UUID `db:"user_id"`
	Token     string    `db:"token"`
	IPAddress *string   `db:"ip_address"`
	UserAgent *string   `db:"user_agent"`
	ExpiresAt time.Time `db:"expires_at"`
	IsActive  bool      `db:"is_active"`
}

func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
