package entity

import "time"

type ActionType string

const (
	ActionOTPRequest ActionType = "OTP_REQUEST"
	ActionLogin      ActionType = "LOGIN"
)

// RateLimitRecord is keyed by Identifier+ActionType. Count only grows inside a
// window; an elapsed window resets it to zero rather than deleting the record.
type RateLimitRecord struct {
	Identifier   string     `json:"identifier"`
	ActionType   ActionType `json:"action_type"`
	Count        int        `json:"count"`
	WindowStart  time.Time  `json:"window_start"`
	LastAttempt  time.Time  `json:"last_attempt"`
	BlockedUntil *time.Time `json:"blocked_until,omitempty"`
}
