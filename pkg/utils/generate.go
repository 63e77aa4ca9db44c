package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ==================== UUID ====================

func GenerateUUID() uuid.UUID {
	return uuid.New()
}

func ParseUUID(uuidStr string) (uuid.UUID, error) {
	return uuid.Parse(uuidStr)
}

// ==================== OTP ====================

const (
	otpMin = 100000
	otpMax = 999999
)

// GenerateOTP draws a 6-digit code uniformly from 100000-999999.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}

func HashSecret(secret string, cost int) (string, error) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckSecretHash(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// ==================== PAYMENT REFERENCE ====================

// GeneratePaymentReference returns a unique settlement reference.
// Format: PAY-YYYYMMDD-<12 hex chars of a uuid>
func GeneratePaymentReference(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("PAY-%s-%s", now.Format("20060102"), strings.ToUpper(random[:12]))
}

// GenerateReceiptNumber returns a human readable receipt number for gateway orders.
// Format: RCPT-<dept>-HHMMSS-<6 hex>
func GenerateReceiptNumber(department string, now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("RCPT-%s-%s-%s", department, now.Format("150405"), strings.ToUpper(random[:6]))
}
