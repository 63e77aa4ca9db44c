package usecase

import (
	"context"
	"time"

	"citizen-kiosk/internal/data/entity"
	"citizen-kiosk/internal/data/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditPublisher ships audit entries off-box. Publish must not block.
type AuditPublisher interface {
	Publish(ev any)
}

type AuditEntry struct {
	Action    entity.AuditAction
	Actor     string
	IPAddress string
	Metadata  map[string]any
	Severity  entity.AuditSeverity
}

// AuditService is a sink: Record never returns an error.
type AuditService interface {
	Record(ctx context.Context, entry AuditEntry)
}

type auditService struct {
	repo      repository.AuditRepository
	publisher AuditPublisher
	now       func() time.Time
	log       *zap.Logger
}

// NewAuditService accepts a nil publisher when off-box shipping is disabled.
func NewAuditService(repo repository.AuditRepository, publisher AuditPublisher, now func() time.Time, log *zap.Logger) AuditService {
	if now == nil {
		now = time.Now
	}
	return &auditService{
		repo:      repo,
		publisher: publisher,
		now:       now,
		log:       log.With(zap.String("service", "audit")),
	}
}

func (s *auditService) Record(ctx context.Context, entry AuditEntry) {
	now := s.now()
	severity := entry.Severity
	if severity == "" {
		severity = entity.SeverityInfo
	}

	record := &entity.AuditLog{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: now,
		},
		Action:          entry.Action,
		ActorIdentifier: entry.Actor,
		Metadata:        entry.Metadata,
		Severity:        severity,
		Timestamp:       now,
	}
	if entry.IPAddress != "" {
		ip := entry.IPAddress
		record.IPAddress = &ip
	}

	// Audit writes outlive a cancelled request.
	if err := s.repo.Create(context.WithoutCancel(ctx), record); err != nil {
		s.log.Error("Failed to write audit log",
			zap.Error(err),
			zap.String("action", string(entry.Action)),
			zap.String("actor", entry.Actor),
		)
	}

	if s.publisher != nil {
		s.publisher.Publish(record)
	}
}
