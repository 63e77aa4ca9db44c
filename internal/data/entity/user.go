package entity

import "time"

type UserRole string

const (
	RoleKioskUser UserRole = "KIOSK_USER"
	RoleAdmin     UserRole = "ADMIN"
	RoleOwner     UserRole = "OWNER"
)

// User is created on the first successful OTP verification for a phone number
// and never deleted.
type User struct {
	Base
	PhoneNumber string     `db:"phone_number"`
	Role        UserRole   `db:"role"`
	LastLoginAt *time.Time `db:"last_login_at"`
}
