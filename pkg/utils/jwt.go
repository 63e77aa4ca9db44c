package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// AccessClaims is the signed credential handed to the kiosk after OTP login.
type AccessClaims struct {
	PhoneNumber string `json:"phoneNumber"`
	UserID      string `json:"userId"`
	Role        string `json:"role"`
	SessionID   string `json:"sessionId"`

	jwt.RegisteredClaims
}

type TokenManager struct {
	secret []byte
	expiry time.Duration
	issuer string
}

func NewTokenManager(secret string, expiry time.Duration, issuer string) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
	}
}

func (m *TokenManager) Expiry() time.Duration {
	return m.expiry
}

// Issue signs an HS256 token for identity, valid from now for the configured expiry.
func (m *TokenManager) Issue(identity Identity, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(m.expiry)

	claims := AccessClaims{
		PhoneNumber: identity.PhoneNumber,
		UserID:      identity.UserID.String(),
		Role:        identity.Role,
		SessionID:   identity.SessionID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.UserID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Parse verifies signature and expiry and returns the embedded identity.
func (m *TokenManager) Parse(tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return Identity{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok {
		return Identity{}, errors.New("invalid token claims")
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid user id claim: %w", err)
	}
	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid session id claim: %w", err)
	}

	return Identity{
		UserID:      userID,
		PhoneNumber: claims.PhoneNumber,
		Role:        claims.Role,
		SessionID:   sessionID,
	}, nil
}
