package session

import (
	"fmt"
	"sync"
	"time"
)

// Role distinguishes the two kinds of participant.
type Role uint8

const (
	RoleVehicle Role = iota + 1
	RoleCrew
)

func (r Role) String() string {
	switch r {
	case RoleVehicle:
		return "vehicle"
	case RoleCrew:
		return "crew"
	default:
		return "unassigned"
	}
}

// State is a step in the session lifecycle.
type State uint8

const (
	StateConnecting State = iota
	StateIdentifying
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateIdentifying:
		return "identifying"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Transport is the outbound half of a connection. Send must not block on a
// slow peer.
type Transport interface {
	Send(payload []byte) error
	Close(code int, reason string) error
}

// Session is one connected participant.
type Session struct {
	transport Transport

	mu         sync.Mutex
	id         string
	role       Role
	shipID     string
	state      State
	lastSeen   time.Time
	failed     bool
	failReason error
}

// New wraps a freshly opened transport. The session starts in Connecting.
func New(transport Transport, now time.Time) *Session {
	return &Session{transport: transport, state: StateConnecting, lastSeen: now}
}

// Accept moves a connecting session to Identifying.
func (s *Session) Accept() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnecting {
		return fmt.Errorf("%w: accept from %s", ErrInvalidState, s.state)
	}
	s.state = StateIdentifying
	return nil
}

// Activate binds the identity established by the handshake.
func (s *Session) Activate(id string, role Role, shipID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdentifying {
		return fmt.Errorf("%w: activate from %s", ErrInvalidState, s.state)
	}
	s.id = id
	s.role = role
	s.shipID = shipID
	s.state = StateActive
	return nil
}

// Close moves the session to Closed and closes the transport with code. It
// reports false if the session was already closed.
func (s *Session) Close(code int, reason string) bool {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return false
	}
	s.state = StateClosed
	s.mu.Unlock()

	if s.transport != nil {
		_ = s.transport.Close(code, reason)
	}
	return true
}

// Send queues payload on the transport. Connecting and Closed sessions refuse
// frames.
func (s *Session) Send(payload []byte) error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state == StateClosed || state == StateConnecting {
		return ErrSessionClosed
	}
	return s.transport.Send(payload)
}

// MarkFailed flags the session for reaping after a transport error.
func (s *Session) MarkFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.failed {
		s.failed = true
		s.failReason = err
	}
}

// Failed reports whether a send has failed and the error that caused it.
func (s *Session) Failed() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed, s.failReason
}

// Touch records inbound activity.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	if now.After(s.lastSeen) {
		s.lastSeen = now
	}
	s.mu.Unlock()
}

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *Session) Role() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

func (s *Session) ShipID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shipID
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Info is a diagnostic view of a session.
type Info struct {
	ID       string    `json:"id"`
	Role     string    `json:"role"`
	State    string    `json:"state"`
	ShipID   string    `json:"shipId"`
	LastSeen time.Time `json:"lastSeen"`
	Failed   bool      `json:"failed,omitempty"`
}

// Info returns a diagnostic copy of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:       s.id,
		Role:     s.role.String(),
		State:    s.state.String(),
		ShipID:   s.shipID,
		LastSeen: s.lastSeen,
		Failed:   s.failed,
	}
}
