package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"citizen-kiosk/internal/data/entity"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitStore persists one record per identifier+action.
type RateLimitStore interface {
	Get(ctx context.Context, identifier string, action entity.ActionType) (*entity.RateLimitRecord, error)
	Save(ctx context.Context, record *entity.RateLimitRecord) error
	Increment(ctx context.Context, identifier string, action entity.ActionType, at time.Time) error
	Delete(ctx context.Context, identifier string, action entity.ActionType) error
}

const (
	fieldCount        = "count"
	fieldWindowStart  = "window_start"
	fieldLastAttempt  = "last_attempt"
	fieldBlockedUntil = "blocked_until"
)

// redisRateLimitStore keeps each record as a hash so Increment is a single
// atomic HINCRBY rather than a read-modify-write of a JSON blob.
type redisRateLimitStore struct {
	client    *redis.Client
	retention time.Duration
	log       *zap.Logger
}

// NewRedisRateLimitStore expires idle records after retention, which must exceed
// the longest block period (2x the largest window).
func NewRedisRateLimitStore(client *redis.Client, retention time.Duration, log *zap.Logger) RateLimitStore {
	return &redisRateLimitStore{
		client:    client,
		retention: retention,
		log:       log.With(zap.String("repository", "rate_limit")),
	}
}

func rateLimitKey(identifier string, action entity.ActionType) string {
	return fmt.Sprintf("kiosk:ratelimit:%s:%s", action, identifier)
}

func (s *redisRateLimitStore) Get(ctx context.Context, identifier string, action entity.ActionType) (*entity.RateLimitRecord, error) {
	values, err := s.client.HGetAll(ctx, rateLimitKey(identifier, action)).Result()
	if err != nil {
		return nil, fmt.Errorf("load rate limit %s/%s: %w", action, identifier, err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	record := &entity.RateLimitRecord{
		Identifier: identifier,
		ActionType: action,
	}
	if record.Count, err = strconv.Atoi(values[fieldCount]); err != nil {
		return nil, fmt.Errorf("decode rate limit count: %w", err)
	}
	if record.WindowStart, err = parseUnixNano(values[fieldWindowStart]); err != nil {
		return nil, fmt.Errorf("decode rate limit window start: %w", err)
	}
	if record.LastAttempt, err = parseUnixNano(values[fieldLastAttempt]); err != nil {
		return nil, fmt.Errorf("decode rate limit last attempt: %w", err)
	}
	if raw, ok := values[fieldBlockedUntil]; ok {
		blockedUntil, err := parseUnixNano(raw)
		if err != nil {
			return nil, fmt.Errorf("decode rate limit blocked until: %w", err)
		}
		record.BlockedUntil = &blockedUntil
	}

	return record, nil
}

func (s *redisRateLimitStore) Save(ctx context.Context, record *entity.RateLimitRecord) error {
	key := rateLimitKey(record.Identifier, record.ActionType)
	fields := map[string]any{
		fieldCount:       record.Count,
		fieldWindowStart: record.WindowStart.UnixNano(),
		fieldLastAttempt: record.LastAttempt.UnixNano(),
	}
	if record.BlockedUntil != nil {
		fields[fieldBlockedUntil] = record.BlockedUntil.UnixNano()
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, s.retention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save rate limit %s/%s: %w", record.ActionType, record.Identifier, err)
	}

	return nil
}

func (s *redisRateLimitStore) Increment(ctx context.Context, identifier string, action entity.ActionType, at time.Time) error {
	key := rateLimitKey(identifier, action)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, fieldCount, 1)
		pipe.HSetNX(ctx, key, fieldWindowStart, at.UnixNano())
		pipe.HSet(ctx, key, fieldLastAttempt, at.UnixNano())
		pipe.Expire(ctx, key, s.retention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("increment rate limit %s/%s: %w", action, identifier, err)
	}

	return nil
}

func (s *redisRateLimitStore) Delete(ctx context.Context, identifier string, action entity.ActionType) error {
	if err := s.client.Del(ctx, rateLimitKey(identifier, action)).Err(); err != nil {
		return fmt.Errorf("delete rate limit %s/%s: %w", action, identifier, err)
	}
	return nil
}

func parseUnixNano(raw string) (time.Time, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, n), nil
}
