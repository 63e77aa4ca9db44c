package response

import (
	"time"

	"citizen-kiosk/internal/data/entity"
	"citizen-kiosk/pkg/utils"
)

type SendOTPResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ExpiresIn string `json:"expiresIn"`
	OTP       string `json:"otp,omitempty"`
	Demo      bool   `json:"demo,omitempty"`
}

type UserInfo struct {
	PhoneNumber string `json:"phoneNumber"`
	UserID      string `json:"userId"`
	Role        string `json:"role"`
}

type VerifyOTPResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        UserInfo  `json:"user"`
}

type MeResponse struct {
	PhoneNumber string     `json:"phoneNumber"`
	UserID      string     `json:"userId"`
	Role        string     `json:"role"`
	SessionID   string     `json:"sessionId"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

func UserToInfo(user *entity.User) UserInfo {
	return UserInfo{
		PhoneNumber: user.PhoneNumber,
		UserID:      user.ID.String(),
		Role:        string(user.Role),
	}
}

func IdentityToMe(identity utils.Identity, user *entity.User) MeResponse {
	resp := MeResponse{
		PhoneNumber: identity.PhoneNumber,
		UserID:      identity.UserID.String(),
		Role:        identity.Role,
		SessionID:   identity.SessionID.String(),
	}
	if user != nil {
		resp.LastLoginAt = user.LastLoginAt
	}
	return resp
}
