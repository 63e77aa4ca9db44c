package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"citizen-kiosk/internal/data/entity"
	"citizen-kiosk/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error)
	UpdateToken(ctx context.Context, id uuid.UUID, token string) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	DeactivateByUserAndToken(ctx context.Context, userID uuid.UUID, token string) (int64, error)
}

type sessionRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewSessionRepository(db database.PgxIface, log *zap.Logger) SessionRepository {
	return &sessionRepository{
		db:  db,
		log: log.With(zap.String("repository", "session")),
	}
}

func (r *sessionRepository) Create(ctx context.Context, session *entity.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, token, user_agent, ip_address,
		                      expires_at, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.Token,
		session.UserAgent,
		session.IPAddress,
		session.ExpiresAt,
		session.IsActive,
		session.CreatedAt,
		session.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create session",
			zap.Error(err),
			zap.String("user_id", session.UserID.String()),
		)
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

func (r *sessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	query := `
		SELECT id, user_id, token, user_agent, ip_address,
		       expires_at, is_active, created_at, updated_at
		FROM sessions
		WHERE id = $1
	`

	var session entity.Session
	err := r.db.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.UserAgent,
		&session.IPAddress,
		&session.ExpiresAt,
		&session.IsActive,
		&session.CreatedAt,
		&session.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find session",
			zap.Error(err),
			zap.String("session_id", id.String()),
		)
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return &session, nil
}

// UpdateToken completes the second phase of session creation.
func (r *sessionRepository) UpdateToken(ctx context.Context, id uuid.UUID, token string) error {
	query := `
		UPDATE sessions
		SET token = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, token, time.Now())
	if err != nil {
		r.log.Error("Failed to update session token",
			zap.Error(err),
			zap.String("session_id", id.String()),
		)
		return fmt.Errorf("failed to update session token: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("session %s not found", id.String())
	}

	return nil
}

func (r *sessionRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE sessions
		SET is_active = FALSE, updated_at = $2
		WHERE id = $1 AND is_active
	`

	if _, err := r.db.Exec(ctx, query, id, time.Now()); err != nil {
		r.log.Error("Failed to deactivate session",
			zap.Error(err),
			zap.String("session_id", id.String()),
		)
		return fmt.Errorf("failed to deactivate session: %w", err)
	}

	return nil
}

func (r *sessionRepository) DeactivateByUserAndToken(ctx context.Context, userID uuid.UUID, token string) (int64, error) {
	query := `
		UPDATE sessions
		SET is_active = FALSE, updated_at = $3
		WHERE user_id = $1 AND token = $2 AND is_active
	`

	result, err := r.db.Exec(ctx, query, userID, token, time.Now())
	if err != nil {
		r.log.Error("Failed to deactivate user sessions",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return 0, fmt.Errorf("failed to deactivate sessions: %w", err)
	}

	return result.RowsAffected(), nil
}
