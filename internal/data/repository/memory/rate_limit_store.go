package memory

import (
	"context"
	"sync"
	"time"

	"citizen-kiosk/internal/data/entity"
	"citizen-kiosk/internal/data/repository"
)

var _ repository.RateLimitStore = (*RateLimitStore)(nil)

type rateLimitKey struct {
	identifier string
	action     entity.ActionType
}

type RateLimitStore struct {
	mu      sync.Mutex
	records map[rateLimitKey]entity.RateLimitRecord
}

func NewRateLimitStore() *RateLimitStore {
	return &RateLimitStore{records: make(map[rateLimitKey]entity.RateLimitRecord)}
}

func (s *RateLimitStore) Get(_ context.Context, identifier string, action entity.ActionType) (*entity.RateLimitRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[rateLimitKey{identifier, action}]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (s *RateLimitStore) Save(_ context.Context, record *entity.RateLimitRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rateLimitKey{record.Identifier, record.ActionType}] = *record
	return nil
}

func (s *RateLimitStore) Increment(_ context.Context, identifier string, action entity.ActionType, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := rateLimitKey{identifier, action}
	record, ok := s.records[key]
	if !ok {
		record = entity.RateLimitRecord{
			Identifier:  identifier,
			ActionType:  action,
			WindowStart: at,
		}
	}
	record.Count++
	record.LastAttempt = at
	s.records[key] = record
	return nil
}

func (s *RateLimitStore) Delete(_ context.Context, identifier string, action entity.ActionType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, rateLimitKey{identifier, action})
	return nil
}
