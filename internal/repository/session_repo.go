package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"gearadvisor-backend/internal/advisor"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepo keeps conversation sessions in memory. Sessions idle for
// longer than the TTL are treated as ended and dropped by Run.
type SessionRepo struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*advisor.Session
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionRepo(ttl time.Duration) *SessionRepo {
	return &SessionRepo{
		sessions: make(map[uuid.UUID]*advisor.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create provisions a new session seeded with the greeting.
func (r *SessionRepo) Create(_ context.Context) *advisor.Session {
	session := advisor.NewSession(uuid.New(), r.now().UTC())

	r.mu.Lock()
	r.sessions[session.ID] = session
	r.mu.Unlock()

	return session
}

// Get returns a live session and records activity on it.
func (r *SessionRepo) Get(_ context.Context, id uuid.UUID) (*advisor.Session, error) {
	r.mu.RLock()
	session, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	now := r.now().UTC()
	if r.expired(session, now) {
		r.Delete(context.Background(), id)
		return nil, ErrSessionNotFound
	}

	session.Touch(now)
	return session, nil
}

func (r *SessionRepo) Delete(_ context.Context, id uuid.UUID) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *SessionRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep drops every expired session and returns how many were removed.
// Sessions with a model call in flight are kept until the call settles.
func (r *SessionRepo) Sweep() int {
	now := r.now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, session := range r.sessions {
		if r.expired(session, now) && !session.InFlight() {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is cancelled.
func (r *SessionRepo) Run(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := r.Sweep()
			if onSweep != nil && removed > 0 {
				onSweep(removed)
			}
		}
	}
}

func (r *SessionRepo) expired(session *advisor.Session, now time.Time) bool {
	return now.Sub(session.LastActive()) > r.ttl
}
