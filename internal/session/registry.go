package session

import (
	"fmt"
	"sync"
	"time"
)

// Registry indexes Active sessions by id.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Register adds an Active session.
func (r *Registry) Register(s *Session) error {
	if s.State() != StateActive {
		return fmt.Errorf("%w: register %s session", ErrInvalidState, s.State())
	}
	id := s.ID()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSession, id)
	}
	r.sessions[id] = s
	r.order = append(r.order, id)
	return nil
}

// Remove drops a session only if it is still the one registered under its
// id, so a stale handle cannot evict a newer session.
func (r *Registry) Remove(s *Session) bool {
	id := s.ID()

	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.sessions[id]
	if !ok || current != s {
		return false
	}
	delete(r.sessions, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the session registered under id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sessions returns the registered sessions in registration order.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sessions[id])
	}
	return out
}

// CrewOf returns the crew sessions attached to shipID.
func (r *Registry) CrewOf(shipID string) []*Session {
	var crew []*Session
	for _, s := range r.Sessions() {
		if s.Role() == RoleCrew && s.ShipID() == shipID {
			crew = append(crew, s)
		}
	}
	return crew
}

// SendTo delivers payload to one registered session.
func (r *Registry) SendTo(id string, payload []byte) error {
	s, ok := r.Get(id)
	if !ok || s.State() != StateActive {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err := s.Send(payload); err != nil {
		s.MarkFailed(err)
		return err
	}
	return nil
}

// SendFailure records a session that could not be reached during a broadcast.
type SendFailure struct {
	ID  string
	Err error
}

// Broadcast sends the same payload to every registered session. A failed
// session is marked for reaping and never stops delivery to the rest.
func (r *Registry) Broadcast(payload []byte) (delivered int, failures []SendFailure) {
	for _, s := range r.Sessions() {
		if err := s.Send(payload); err != nil {
			s.MarkFailed(err)
			failures = append(failures, SendFailure{ID: s.ID(), Err: err})
			continue
		}
		delivered++
	}
	return delivered, failures
}

// ReapReason explains why a session was selected for reaping.
type ReapReason uint8

const (
	ReapIdle ReapReason = iota + 1
	ReapFailed
)

func (r ReapReason) String() string {
	switch r {
	case ReapIdle:
		return "idle"
	case ReapFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ReapCandidate is a session due for forced disconnect.
type ReapCandidate struct {
	Session *Session
	Reason  ReapReason
}

// Stale lists sessions that have failed a send or have been silent for
// longer than idleTimeout. A non-positive idleTimeout disables idle reaping.
func (r *Registry) Stale(now time.Time, idleTimeout time.Duration) []ReapCandidate {
	var out []ReapCandidate
	for _, s := range r.Sessions() {
		if failed, _ := s.Failed(); failed {
			out = append(out, ReapCandidate{Session: s, Reason: ReapFailed})
			continue
		}
		if idleTimeout > 0 && now.Sub(s.LastSeen()) > idleTimeout {
			out = append(out, ReapCandidate{Session: s, Reason: ReapIdle})
		}
	}
	return out
}

// Describe returns diagnostic copies of every registered session.
func (r *Registry) Describe() []Info {
	sessions := r.Sessions()
	out := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Info())
	}
	return out
}
