package memory

import (
	"context"
	"sync"

	"citizen-kiosk/internal/data/entity"
	"citizen-kiosk/internal/data/repository"
)

var _ repository.AuditRepository = (*AuditRepository)(nil)

type AuditRepository struct {
	mu      sync.Mutex
	entries []entity.AuditLog
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) Create(_ context.Context, entry *entity.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

// Actions lists recorded actions in insertion order.
func (r *AuditRepository) Actions() []entity.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]entity.AuditAction, len(r.entries))
	for i, entry := range r.entries {
		actions[i] = entry.Action
	}
	return actions
}

// Entries returns a copy of every recorded entry.
func (r *AuditRepository) Entries() []entity.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.AuditLog(nil), r.entries...)
}
