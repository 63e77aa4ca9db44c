package entity

import "time"

type AuditAction string

const (
	AuditOTPSent             AuditAction = "OTP_SENT"
	AuditOTPRateLimited      AuditAction = "OTP_RATE_LIMITED"
	AuditLoginSuccess        AuditAction = "LOGIN_SUCCESS"
	AuditLoginFailed         AuditAction = "LOGIN_FAILED"
	AuditLogout              AuditAction = "LOGOUT"
	AuditPaymentOrderCreated AuditAction = "PAYMENT_ORDER_CREATED"
	AuditPaymentSuccess      AuditAction = "PAYMENT_SUCCESS"
	AuditPaymentFailed       AuditAction = "PAYMENT_FAILED"
	AuditPaymentWebhook      AuditAction = "PAYMENT_WEBHOOK"
	AuditReceiptPrinted      AuditAction = "RECEIPT_PRINTED"
)

type AuditSeverity string

const (
	SeverityInfo     AuditSeverity = "INFO"
	SeverityWarning  AuditSeverity = "WARNING"
	SeverityCritical AuditSeverity = "CRITICAL"
)

// AuditLog is append-only.
type AuditLog struct {
	BaseSimple
	Action          AuditAction    `db:"action" json:"action"`
	ActorIdentifier string         `db:"actor_identifier" json:"actor_identifier"`
	IPAddress       *string        `db:"ip_address" json:"ip_address,omitempty"`
	Metadata        map[string]any `db:"metadata" json:"metadata,omitempty"`
	Severity        AuditSeverity  `db:"severity" json:"severity"`
	Timestamp       time.Time      `db:"timestamp" json:"timestamp"`
}
