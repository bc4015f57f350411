package advisor

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"gearadvisor-backend/internal/models"
)

// Session holds one browser conversation. Turns are append-only and only
// the Bridge appends to them.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	mu         sync.Mutex
	turns      []models.Turn
	inFlight   bool
	lastActive time.Time
}

// NewSession returns a session seeded with the greeting turn.
func NewSession(id uuid.UUID, now time.Time) *Session {
	turns := make([]models.Turn, 1, 16)
	turns[0] = models.Turn{Role: models.RoleAssistant, Content: Greeting}

	return &Session{
		ID:         id,
		CreatedAt:  now,
		turns:      turns,
		lastActive: now,
	}
}

// Turns returns a copy of the conversation in display order.
func (s *Session) Turns() []models.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]models.Turn, len(s.turns))
	copy(copied, s.turns)
	return copied
}

// Len reports the number of turns.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Touch records activity at now.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	if now.After(s.lastActive) {
		s.lastActive = now
	}
	s.mu.Unlock()
}

// LastActive returns the time of the most recent activity.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// InFlight reports whether a model call is outstanding.
func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// begin marks the session busy. It returns false if a call is already
// outstanding.
func (s *Session) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.inFlight = true
	return true
}

func (s *Session) end() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

// appendTurn adds t and returns its index.
func (s *Session) appendTurn(t models.Turn) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, t)
	return len(s.turns) - 1
}
