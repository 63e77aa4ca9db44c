package repository

import (
	"context"
	"fmt"

	"citizen-kiosk/internal/data/entity"
	"citizen-kiosk/pkg/database"

	"go.uber.org/zap"
)

type AuditRepository interface {
	Create(ctx context.Context, log *entity.AuditLog) error
}

type auditRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewAuditRepository(db database.PgxIface, log *zap.Logger) AuditRepository {
	return &auditRepository{
		db:  db,
		log: log.With(zap.String("repository", "audit")),
	}
}

func (r *auditRepository) Create(ctx context.Context, entry *entity.AuditLog) error {
	query := `
		INSERT INTO audit_logs (id, action, actor_identifier, ip_address, metadata,
		                        severity, timestamp, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.Action,
		entry.ActorIdentifier,
		entry.IPAddress,
		entry.Metadata,
		entry.Severity,
		entry.Timestamp,
		entry.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("insert audit log %s: %w", entry.Action, err)
	}

	return nil
}
