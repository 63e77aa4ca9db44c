package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"citizen-kiosk/internal/data/entity"
	"citizen-kiosk/internal/data/repository"

	"github.com/google/uuid"
)

var _ repository.SessionRepository = (*SessionRepository)(nil)

type SessionRepository struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]entity.Session
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[uuid.UUID]entity.Session)}
}

func (r *SessionRepository) Create(_ context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = *session
	return nil
}

func (r *SessionRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (r *SessionRepository) UpdateToken(_ context.Context, id uuid.UUID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("session %s not found", id.String())
	}
	session.Token = token
	session.UpdatedAt = time.Now()
	r.sessions[id] = session
	return nil
}

func (r *SessionRepository) Deactivate(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[id]; ok {
		session.IsActive = false
		r.sessions[id] = session
	}
	return nil
}

func (r *SessionRepository) DeactivateByUserAndToken(_ context.Context, userID uuid.UUID, token string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var affected int64
	for id, session := range r.sessions {
		if session.UserID == userID && session.Token == token && session.IsActive {
			session.IsActive = false
			r.sessions[id] = session
			affected++
		}
	}
	return affected, nil
}
