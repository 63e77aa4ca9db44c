package usecase

import (
	"context"
	"time"

	"citizen-kiosk/internal/data/entity"
	"citizen-kiosk/internal/data/repository"

	"go.uber.org/zap"
)

type RateLimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RateLimitPolicy is a named limit/window pair.
type RateLimitPolicy struct {
	Action entity.ActionType
	Limit  int
	Window time.Duration
}

type RateLimiter interface {
	CheckLimit(ctx context.Context, identifier string, action entity.ActionType, limit int, window time.Duration) RateLimitResult
	RecordAttempt(ctx context.Context, identifier string, action entity.ActionType)
	ResetLimit(ctx context.Context, identifier string, action entity.ActionType)
}

type rateLimiter struct {
	store repository.RateLimitStore
	now   func() time.Time
	log   *zap.Logger
}

func NewRateLimiter(store repository.RateLimitStore, now func() time.Time, log *zap.Logger) RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &rateLimiter{
		store: store,
		now:   now,
		log:   log.With(zap.String("service", "rate_limiter")),
	}
}

// CheckLimit never fails: a store error allows the request.
func (l *rateLimiter) CheckLimit(ctx context.Context, identifier string, action entity.ActionType, limit int, window time.Duration) RateLimitResult {
	now := l.now()

	record, err := l.store.Get(ctx, identifier, action)
	if err != nil {
		l.log.Error("Rate limit store unavailable, allowing request",
			zap.Error(err),
			zap.String("identifier", identifier),
			zap.String("action", string(action)),
		)
		return RateLimitResult{Allowed: true}
	}

	// 1. Still blocked, even once the window has gone quiet
	if record.BlockedUntil != nil && record.BlockedUntil.After(now) {
		return RateLimitResult{Allowed: false, RetryAfter: record.BlockedUntil.Sub(now)}
	}

	// 2. Fresh window
	if record == nil || now.Sub(record.LastAttempt) > window {
		fresh := &entity.RateLimitRecord{
			Identifier:  identifier,
			ActionType:  action,
			Count:       0,
			WindowStart: now,
			LastAttempt: now,
		}
		if err := l.store.Save(ctx, fresh); err != nil {
			l.log.Error("Failed to reset rate limit window",
				zap.Error(err),
				zap.String("identifier", identifier),
				zap.String("action", string(action)),
			)
		}
		return RateLimitResult{Allowed: true}
	}

	// 3. Limit reached, start a block
	if record.Count >= limit {
		blockFor := 2 * window
		blockedUntil := now.Add(blockFor)
		record.BlockedUntil = &blockedUntil
		if err := l.store.Save(ctx, record); err != nil {
			l.log.Error("Failed to persist rate limit block",
				zap.Error(err),
				zap.String("identifier", identifier),
				zap.String("action", string(action)),
			)
		}
		l.log.Warn("Rate limit exceeded",
			zap.String("identifier", identifier),
			zap.String("action", string(action)),
			zap.Int("count", record.Count),
			zap.Time("blocked_until", blockedUntil),
		)
		return RateLimitResult{Allowed: false, RetryAfter: blockFor}
	}

	return RateLimitResult{Allowed: true}
}

func (l *rateLimiter) RecordAttempt(ctx context.Context, identifier string, action entity.ActionType) {
	if err := l.store.Increment(ctx, identifier, action, l.now()); err != nil {
		l.log.Error("Failed to record rate limit attempt",
			zap.Error(err),
			zap.String("identifier", identifier),
			zap.String("action", string(action)),
		)
	}
}

func (l *rateLimiter) ResetLimit(ctx context.Context, identifier string, action entity.ActionType) {
	if err := l.store.Delete(ctx, identifier, action); err != nil {
		l.log.Error("Failed to reset rate limit",
			zap.Error(err),
			zap.String("identifier", identifier),
			zap.String("action", string(action)),
		)
	}
}
