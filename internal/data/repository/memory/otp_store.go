package memory

import (
	"context"
	"sync"

	"citizen-kiosk/internal/data/entity"
	"citizen-kiosk/internal/data/repository"
)

var _ repository.OTPStore = (*OTPStore)(nil)

type OTPStore struct {
	mu      sync.Mutex
	records map[string]entity.OTPRecord
}

func NewOTPStore() *OTPStore {
	return &OTPStore{records: make(map[string]entity.OTPRecord)}
}

func (s *OTPStore) Save(_ context.Context, record *entity.OTPRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Identifier] = *record
	return nil
}

func (s *OTPStore) Get(_ context.Context, identifier string) (*entity.OTPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[identifier]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (s *OTPStore) Delete(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, identifier)
	return nil
}
