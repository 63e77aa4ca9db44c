package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"citizen-kiosk/internal/data/entity"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// OTPStore holds at most one active code per identifier. Save overwrites.
type OTPStore interface {
	Save(ctx context.Context, record *entity.OTPRecord) error
	Get(ctx context.Context, identifier string) (*entity.OTPRecord, error)
	Delete(ctx context.Context, identifier string) error
}

// otpKeyGrace keeps a record readable briefly past ExpiresAt so verification can
// tell an expired code apart from one that was never issued.
const otpKeyGrace = time.Minute

type redisOTPStore struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisOTPStore(client *redis.Client, log *zap.Logger) OTPStore {
	return &redisOTPStore{
		client: client,
		log:    log.With(zap.String("repository", "otp")),
	}
}

func otpKey(identifier string) string {
	return fmt.Sprintf("kiosk:otp:%s", identifier)
}

func (s *redisOTPStore) Save(ctx context.Context, record *entity.OTPRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal otp record: %w", err)
	}

	ttl := record.ExpiresAt.Sub(record.IssuedAt) + otpKeyGrace
	if err := s.client.Set(ctx, otpKey(record.Identifier), payload, ttl).Err(); err != nil {
		s.log.Error("Failed to save OTP", zap.Error(err), zap.String("identifier", record.Identifier))
		return fmt.Errorf("save otp for %s: %w", record.Identifier, err)
	}

	return nil
}

func (s *redisOTPStore) Get(ctx context.Context, identifier string) (*entity.OTPRecord, error) {
	payload, err := s.client.Get(ctx, otpKey(identifier)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		s.log.Error("Failed to load OTP", zap.Error(err), zap.String("identifier", identifier))
		return nil, fmt.Errorf("load otp for %s: %w", identifier, err)
	}

	var record entity.OTPRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("decode otp for %s: %w", identifier, err)
	}

	return &record, nil
}

func (s *redisOTPStore) Delete(ctx context.Context, identifier string) error {
	if err := s.client.Del(ctx, otpKey(identifier)).Err(); err != nil {
		s.log.Error("Failed to delete OTP", zap.Error(err), zap.String("identifier", identifier))
		return fmt.Errorf("delete otp for %s: %w", identifier, err)
	}
	return nil
}
