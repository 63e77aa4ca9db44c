package entity

import "time"

// OTPRecord is the single active code for an identifier. CodeHash is a bcrypt
// hash; the plain code only leaves the OTP store through the SMS sender.
type OTPRecord struct {
	Identifier string    `json:"identifier"`
	CodeHash   string    `json:"code_hash"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func (o *OTPRecord) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
