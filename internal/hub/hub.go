package hub

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/FrogCounters/boatboat/internal/net/proto"
	"github.com/FrogCounters/boatboat/internal/net/router"
	"github.com/FrogCounters/boatboat/internal/session"
	"github.com/FrogCounters/boatboat/internal/telemetry"
	"github.com/FrogCounters/boatboat/internal/world"
)

// Config wires the collaborators and tunables of a Hub.
type Config struct {
	IdleTimeout time.Duration
	TicketTTL   time.Duration

	Logger       zerolog.Logger
	RouterLogger telemetry.Logger
	Metrics      telemetry.Metrics
	Now          func() time.Time
	NewID        func() string
}

// Hub is the single authority over world state and sessions. It owns the
// session lifecycle: handshakes, routing and disconnect cleanup.
type Hub struct {
	world    *world.World
	sessions *session.Registry
	tickets  *session.Tickets
	router   *router.Router

	logger      zerolog.Logger
	metrics     telemetry.Metrics
	now         func() time.Time
	newID       func() string
	idleTimeout time.Duration

	// lifecycle serializes handshakes and disconnect cleanup. Inbound frames
	// hold the read side so cleanup never interleaves with a routed mutation.
	lifecycle sync.RWMutex
}

// HandshakeError rejects a connection during identification.
type HandshakeError struct {
	Code   int
	Reason string
	Err    error
}

func (e *HandshakeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("handshake rejected (%d %s): %v", e.Code, e.Reason, e.Err)
	}
	return fmt.Sprintf("handshake rejected (%d %s)", e.Code, e.Reason)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// CrewTarget identifies the ship a crew session wants to join, either directly
// or through a ticket issued by IssueTicket.
type CrewTarget struct {
	ShipID   string
	PlayerID string
}

// New constructs a hub around w.
func New(w *world.World, cfg Config) *Hub {
	h := &Hub{
		world:       w,
		sessions:    session.NewRegistry(),
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		now:         cfg.Now,
		newID:       cfg.NewID,
		idleTimeout: cfg.IdleTimeout,
	}
	if h.metrics == nil {
		h.metrics = telemetry.Nop
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.newID == nil {
		h.newID = uuid.NewString
	}
	h.tickets = session.NewTickets(cfg.TicketTTL, h.now, h.newID)
	h.router = router.New(w, h.sessions, router.Config{
		Logger:  cfg.RouterLogger,
		Metrics: h.metrics,
		Now:     h.now,
	})
	return h
}

// World exposes the owned world state.
func (h *Hub) World() *world.World { return h.world }

// Sessions exposes the session registry.
func (h *Hub) Sessions() *session.Registry { return h.sessions }

// ConnectVehicle identifies a vehicle session: a fresh ship is created, its id
// sent in the init frame, and the session becomes Active.
func (h *Hub) ConnectVehicle(s *session.Session) (string, error) {
	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()

	shipID := h.newID()
	if err := s.Activate(shipID, session.RoleVehicle, shipID); err != nil {
		return "", err
	}
	h.world.CreateShip(shipID)

	if err := h.sendInit(s, shipID, ""); err != nil {
		h.world.RemoveShip(shipID)
		s.Close(session.CloseInitFailed, "init failed")
		return "", err
	}
	if err := h.sessions.Register(s); err != nil {
		h.world.RemoveShip(shipID)
		s.Close(session.CloseUnavailable, "ship unavailable")
		return "", err
	}

	h.logger.Info().Str("session", shipID).Str("role", "vehicle").Msg("vehicle connected")
	return shipID, nil
}

// ConnectCrew identifies a crew session. Rejections close the session with a
// distinct code and are returned as *HandshakeError.
func (h *Hub) ConnectCrew(s *session.Session, target CrewTarget) (string, error) {
	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()

	shipID, playerID, herr := h.resolveCrew(target)
	if herr == nil {
		if err := s.Activate(playerID, session.RoleCrew, shipID); err != nil {
			herr = &HandshakeError{Code: session.CloseMalformed, Reason: "invalid handshake", Err: err}
		}
	}
	if herr == nil {
		if err := h.sendInit(s, shipID, playerID); err != nil {
			herr = &HandshakeError{Code: session.CloseInitFailed, Reason: "init failed", Err: err}
		} else if err := h.sessions.Register(s); err != nil {
			herr = &HandshakeError{Code: session.CloseUnavailable, Reason: "player already connected", Err: err}
		}
	}
	if herr != nil {
		s.Close(herr.Code, herr.Reason)
		h.logger.Debug().Str("ship", target.ShipID).Str("player", target.PlayerID).Int("code", herr.Code).Msg(herr.Reason)
		return "", herr
	}

	h.logger.Info().Str("session", playerID).Str("role", "crew").Str("ship", shipID).Msg("crew connected")
	return playerID, nil
}

func (h *Hub) resolveCrew(target CrewTarget) (shipID, playerID string, herr *HandshakeError) {
	switch {
	case target.PlayerID != "":
		ship, err := h.tickets.Redeem(target.PlayerID)
		switch {
		case errors.Is(err, session.ErrTicketRedeemed):
			return "", "", &HandshakeError{Code: session.CloseUnavailable, Reason: "player id already used", Err: err}
		case err != nil:
			return "", "", &HandshakeError{Code: session.CloseUnknown, Reason: "unknown player id", Err: err}
		}
		shipID, playerID = ship, target.PlayerID
	case target.ShipID != "":
		shipID, playerID = target.ShipID, h.newID()
	default:
		return "", "", &HandshakeError{Code: session.CloseMalformed, Reason: "missing ship_id or player_id"}
	}

	size, ok := h.world.CrewSize(shipID)
	if !ok {
		return "", "", &HandshakeError{Code: session.CloseUnknown, Reason: "ship not found", Err: world.ErrShipNotFound}
	}
	if limit := h.world.Config().MaxCrew; limit > 0 && size >= limit {
		return "", "", &HandshakeError{Code: session.CloseUnavailable, Reason: "ship is full", Err: world.ErrCrewFull}
	}
	return shipID, playerID, nil
}

// IssueTicket reserves a player id for a later crew handshake.
func (h *Hub) IssueTicket(shipID string) (string, error) {
	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()

	if !h.world.HasShip(shipID) {
		return "", world.ErrShipNotFound
	}
	return h.tickets.Issue(shipID), nil
}

// Handle routes one inbound frame. Any frame counts as activity. Frames from a
// session that is no longer Active are dropped with ErrSessionClosed.
func (h *Hub) Handle(s *session.Session, raw []byte) error {
	h.lifecycle.RLock()
	defer h.lifecycle.RUnlock()

	if s.State() != session.StateActive {
		h.metrics.Add(telemetry.WithReason(telemetry.MetricMessagesDropped, "closed"), 1)
		return session.ErrSessionClosed
	}
	s.Touch(h.now())
	return h.router.Route(s, raw)
}

// Touch records non-data activity such as a pong.
func (h *Hub) Touch(s *session.Session) {
	s.Touch(h.now())
}

// Disconnect closes a session and releases everything derived from it. A
// vehicle takes its ship and the ship's crew sessions with it; a crew member
// frees its station. Calling it twice is harmless.
func (h *Hub) Disconnect(s *session.Session, code int, reason string) {
	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()
	h.disconnectLocked(s, code, reason)
}

func (h *Hub) disconnectLocked(s *session.Session, code int, reason string) {
	if !h.sessions.Remove(s) {
		s.Close(code, reason)
		return
	}

	id, shipID := s.ID(), s.ShipID()
	switch s.Role() {
	case session.RoleVehicle:
		final, _ := h.world.Ship(shipID)
		crew, _ := h.world.RemoveShip(shipID)
		h.tickets.DropShip(shipID)
		for _, member := range h.sessions.CrewOf(shipID) {
			h.sessions.Remove(member)
			member.Close(session.CloseShipRemoved, "ship removed")
		}
		h.logger.Info().Str("session", id).Str("role", "vehicle").Int("crew", len(crew)).
			Int("score", final.Score).Int("health", final.Health).Str("reason", reason).Msg("vehicle disconnected; ship removed")
	case session.RoleCrew:
		h.world.LeaveStation(shipID, id)
		h.logger.Info().Str("session", id).Str("role", "crew").Str("ship", shipID).Str("reason", reason).Msg("crew disconnected")
	}
	s.Close(code, reason)
}

// ReapStale disconnects sessions that failed a send or have been silent past
// the idle timeout, running the same cleanup as a transport disconnect.
func (h *Hub) ReapStale(now time.Time) int {
	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()

	candidates := h.sessions.Stale(now, h.idleTimeout)
	for _, candidate := range candidates {
		reason := candidate.Reason.String()
		if _, err := candidate.Session.Failed(); err != nil {
			h.logger.Warn().Str("session", candidate.Session.ID()).Err(err).Msg("reaping session after failed send")
		} else {
			h.logger.Info().Str("session", candidate.Session.ID()).Msg("reaping idle session")
		}
		h.disconnectLocked(candidate.Session, session.CloseIdle, reason)
	}
	if n := len(candidates); n > 0 {
		h.metrics.Add(telemetry.MetricSessionsReaped, uint64(n))
	}
	return len(candidates)
}

func (h *Hub) sendInit(s *session.Session, shipID, playerID string) error {
	data, err := proto.EncodeInit(shipID, playerID)
	if err != nil {
		return err
	}
	return s.Send(data)
}
