package router

import (
	"errors"
	"fmt"
	"time"

	"github.com/FrogCounters/boatboat/internal/geom"
	"github.com/FrogCounters/boatboat/internal/net/proto"
	"github.com/FrogCounters/boatboat/internal/session"
	"github.com/FrogCounters/boatboat/internal/telemetry"
	"github.com/FrogCounters/boatboat/internal/world"
)

// World is the subset of the world state the router mutates.
type World interface {
	UpdateShipKinematics(shipID string, position, velocity geom.Vec2, timestamp float64) bool
	Fire(intent world.FireIntent) (world.FireResult, error)
	JoinStation(shipID, playerID string, station world.Station) error
	MoveStation(shipID, playerID string, station world.Station) error
	LeaveStation(shipID, playerID string) bool
}

// Sessions delivers relayed frames.
type Sessions interface {
	SendTo(id string, payload []byte) error
}

// Config carries the router's optional collaborators.
type Config struct {
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
	Now     func() time.Time
}

// Router decodes inbound frames and dispatches them by kind.
type Router struct {
	world    World
	sessions Sessions
	logger   telemetry.Logger
	metrics  telemetry.Metrics
	now      func() time.Time
}

var errUnrouted = errors.New("kind has no route")

// New constructs a router.
func New(w World, sessions Sessions, cfg Config) *Router {
	r := &Router{
		world:    w,
		sessions: sessions,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		now:      cfg.Now,
	}
	if r.logger == nil {
		r.logger = telemetry.Discard
	}
	if r.metrics == nil {
		r.metrics = telemetry.Nop
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Route handles one frame received from an Active session. Frames that cannot
// be routed are dropped and the returned error says why; the connection is
// never closed here.
func (r *Router) Route(sess *session.Session, raw []byte) error {
	env, kind, err := proto.DecodeEnvelope(raw)
	if err != nil {
		return r.drop(sess, err)
	}

	switch kind {
	case proto.KindLocationUpdate:
		err = r.handleLocation(sess, env)
	case proto.KindFire:
		err = r.handleFire(sess, env)
	case proto.KindJoinStation, proto.KindMoveStation, proto.KindLeaveStation:
		err = r.handleStation(sess, env, kind)
	case proto.KindRelay:
		err = r.handleRelay(sess, env, raw)
	case proto.KindHeartbeat:
		err = r.handleHeartbeat(sess, env)
	default:
		err = fmt.Errorf("%w: %s", errUnrouted, kind)
	}
	if err != nil {
		return r.drop(sess, err)
	}
	return nil
}

func (r *Router) handleLocation(sess *session.Session, env proto.Envelope) error {
	msg, err := proto.DecodePayload[proto.LocationUpdate](env)
	if err != nil {
		return err
	}
	r.world.UpdateShipKinematics(sess.ShipID(), *msg.Position, *msg.Velocity, msg.Timestamp)
	return nil
}

func (r *Router) handleFire(sess *session.Session, env proto.Envelope) error {
	msg, err := proto.DecodePayload[proto.FireUpdate](env)
	if err != nil {
		return err
	}
	playerID := msg.PlayerID
	if sess.Role() == session.RoleCrew {
		playerID = sess.ID()
	}
	result, err := r.world.Fire(world.FireIntent{
		ShipID:    sess.ShipID(),
		PlayerID:  playerID,
		Position:  *msg.Position,
		Angle:     *msg.Angle,
		Timestamp: msg.Timestamp,
	})
	if result.Expired > 0 {
		r.metrics.Add(telemetry.MetricProjectilesExpired, uint64(result.Expired))
	}
	if err != nil {
		r.logger.Printf("fire from %s rejected: %v", sess.ID(), err)
		return nil
	}
	if result.Hit {
		r.metrics.Add(telemetry.MetricCombatHits, 1)
		r.logger.Printf("ship %s hit %s at distance %.1f (health %d)", sess.ShipID(), result.TargetID, result.Distance, result.TargetHealth)
	}
	return nil
}

func (r *Router) handleStation(sess *session.Session, env proto.Envelope, kind proto.Kind) error {
	var msg proto.StationRequest
	if kind != proto.KindLeaveStation || len(env.Data) > 0 {
		decoded, err := proto.DecodePayload[proto.StationRequest](env)
		if err != nil {
			return err
		}
		msg = decoded
	}

	playerID := sess.ID()
	if sess.Role() == session.RoleVehicle {
		if msg.PlayerID == "" {
			return fmt.Errorf("%w: %s from vehicle requires player_id", proto.ErrMalformed, env.Type)
		}
		playerID = msg.PlayerID
	}
	shipID := sess.ShipID()

	var success bool
	switch kind {
	case proto.KindJoinStation:
		station, err := msg.RequireStation()
		if err != nil {
			return err
		}
		success = r.world.JoinStation(shipID, playerID, station) == nil
	case proto.KindMoveStation:
		station, err := msg.RequireStation()
		if err != nil {
			return err
		}
		success = r.world.MoveStation(shipID, playerID, station) == nil
	case proto.KindLeaveStation:
		success = r.world.LeaveStation(shipID, playerID)
	}

	r.reply(sess, env.Type, success)
	return nil
}

func (r *Router) handleRelay(sess *session.Session, env proto.Envelope, raw []byte) error {
	target := env.Destination()
	if target == "" {
		return fmt.Errorf("%w: %s without destination", proto.ErrMalformed, env.Type)
	}
	if err := r.sessions.SendTo(target, raw); err != nil {
		r.logger.Printf("relay from %s to %s dropped: %v", sess.ID(), target, err)
	}
	return nil
}

func (r *Router) handleHeartbeat(sess *session.Session, env proto.Envelope) error {
	var msg proto.HeartbeatRequest
	if len(env.Data) > 0 {
		decoded, err := proto.DecodePayload[proto.HeartbeatRequest](env)
		if err != nil {
			return err
		}
		msg = decoded
	}
	data, err := proto.EncodeHeartbeat(r.now().UnixMilli(), msg.SentAt)
	if err != nil {
		return err
	}
	r.send(sess, data)
	return nil
}

func (r *Router) reply(sess *session.Session, requestType string, success bool) {
	data, err := proto.EncodeResponse(requestType, success)
	if err != nil {
		r.logger.Printf("failed to marshal %s response for %s: %v", requestType, sess.ID(), err)
		return
	}
	r.send(sess, data)
}

func (r *Router) send(sess *session.Session, data []byte) {
	if err := sess.Send(data); err != nil {
		sess.MarkFailed(err)
	}
}

func (r *Router) drop(sess *session.Session, err error) error {
	reason := "malformed"
	switch {
	case errors.Is(err, proto.ErrUnknownKind):
		reason = "unknown_kind"
	case errors.Is(err, errUnrouted):
		reason = "unrouted"
	}
	r.metrics.Add(telemetry.WithReason(telemetry.MetricMessagesDropped, reason), 1)
	r.logger.Printf("discarding message from %s: %v", sess.ID(), err)
	return err
}
