package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SMSSender delivers an OTP to a phone number.
type SMSSender interface {
	SendOTP(ctx context.Context, phone, code string, expiresAt time.Time) error
}

// LogSMSSender stands in for an SMS provider. The code is only written at debug level.
type LogSMSSender struct {
	log *zap.Logger
}

func NewLogSMSSender(log *zap.Logger) *LogSMSSender {
	return &LogSMSSender{log: log.With(zap.String("service", "sms"))}
}

func (s *LogSMSSender) SendOTP(_ context.Context, phone, code string, expiresAt time.Time) error {
	s.log.Info("OTP dispatched", zap.String("phone", phone), zap.Time("expires_at", expiresAt))
	s.log.Debug("OTP code", zap.String("phone", phone), zap.String("otp_code", code))
	return nil
}
