package proto

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/FrogCounters/boatboat/internal/geom"
	"github.com/FrogCounters/boatboat/internal/world"
)

var (
	// ErrMalformed marks a frame that cannot be decoded or lacks a required field.
	ErrMalformed = errors.New("malformed message")
	// ErrUnknownKind marks a frame whose type is not routable.
	ErrUnknownKind = errors.New("unknown message type")
)

// Envelope is the outer shape of every inbound frame. Relay frames name their
// destination session in PlayerID, or in TargetID for older clients.
type Envelope struct {
	Type     string          `json:"type" jsonschema:"required"`
	Data     json.RawMessage `json:"data,omitempty"`
	PlayerID string          `json:"player_id,omitempty"`
	TargetID string          `json:"target_id,omitempty"`
}

// Destination returns the relay target session id.
func (e Envelope) Destination() string {
	if e.PlayerID != "" {
		return e.PlayerID
	}
	return e.TargetID
}

// DecodeEnvelope parses a raw frame and classifies its kind. A frame that
// parses but carries an unknown type is returned together with ErrUnknownKind.
func DecodeEnvelope(raw []byte) (Envelope, Kind, error) {
	if len(raw) == 0 {
		return Envelope{}, KindUnknown, fmt.Errorf("%w: empty frame", ErrMalformed)
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, KindUnknown, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return env, KindUnknown, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	kind := ParseKind(env.Type)
	if kind == KindUnknown {
		return env, kind, fmt.Errorf("%w: %q", ErrUnknownKind, env.Type)
	}
	return env, kind, nil
}

type validator interface {
	Validate() error
}

// DecodePayload unmarshals the envelope data into T and checks its required
// fields.
func DecodePayload[T validator](env Envelope) (T, error) {
	var out T
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return out, fmt.Errorf("%w: empty data for %q", ErrMalformed, env.Type)
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return out, fmt.Errorf("%w: %s: %v", ErrMalformed, env.Type, err)
	}
	if err := out.Validate(); err != nil {
		return out, fmt.Errorf("%w: %s: %v", ErrMalformed, env.Type, err)
	}
	return out, nil
}

// LocationUpdate reports a ship's client-side motion.
type LocationUpdate struct {
	Position  *geom.Vec2 `json:"position" jsonschema:"required"`
	Velocity  *geom.Vec2 `json:"velocity" jsonschema:"required"`
	Timestamp float64    `json:"timestamp"`
}

func (m LocationUpdate) Validate() error {
	if m.Position == nil {
		return errors.New("position is required")
	}
	if m.Velocity == nil {
		return errors.New("velocity is required")
	}
	if !m.Position.Finite() || !m.Velocity.Finite() {
		return errors.New("position and velocity must be finite")
	}
	return nil
}

// FireUpdate is a fire intent. PlayerID names the gunner when a vehicle
// session fires on behalf of its crew.
type FireUpdate struct {
	Position  *geom.Vec2 `json:"position" jsonschema:"required"`
	Angle     *float64   `json:"angle" jsonschema:"required"`
	Timestamp float64    `json:"timestamp"`
	PlayerID  string     `json:"player_id,omitempty"`
}

func (m FireUpdate) Validate() error {
	if m.Position == nil {
		return errors.New("position is required")
	}
	if m.Angle == nil {
		return errors.New("angle is required")
	}
	if !m.Position.Finite() {
		return errors.New("position must be finite")
	}
	return nil
}

// StationRequest asks to join, move to or leave a station. Position is
// ignored for leave requests.
type StationRequest struct {
	Position *world.Station `json:"position,omitempty"`
	PlayerID string         `json:"player_id,omitempty"`
}

func (m StationRequest) Validate() error {
	return nil
}

// RequireStation reports an error when the request names no station.
func (m StationRequest) RequireStation() (world.Station, error) {
	if m.Position == nil {
		return 0, fmt.Errorf("%w: position is required", ErrMalformed)
	}
	return *m.Position, nil
}

// HeartbeatRequest carries the client's send time in milliseconds.
type HeartbeatRequest struct {
	SentAt int64 `json:"sentAt"`
}

func (HeartbeatRequest) Validate() error { return nil }

// Init is the first frame sent on every session.
type Init struct {
	Type     string `json:"type"`
	ShipID   string `json:"ship_id"`
	PlayerID string `json:"player_id,omitempty"`
}

// Response acknowledges a station request.
type Response struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
}

// Heartbeat echoes a client heartbeat.
type Heartbeat struct {
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
}

// StateUpdate is the per-tick broadcast snapshot.
type StateUpdate struct {
	Type        string                   `json:"type"`
	Ships       []world.ShipView         `json:"ships"`
	Projectiles []world.ProjectileView   `json:"projectiles"`
	Leaderboard []world.LeaderboardEntry `json:"leaderboard"`
}

// EncodeInit renders the handshake frame for a vehicle or crew session.
func EncodeInit(shipID, playerID string) ([]byte, error) {
	return json.Marshal(Init{Type: TypeInit, ShipID: shipID, PlayerID: playerID})
}

// EncodeResponse renders the reply to a station request.
func EncodeResponse(requestType string, success bool) ([]byte, error) {
	return json.Marshal(Response{Type: ResponseType(requestType), Success: success})
}

// EncodeHeartbeat renders a heartbeat acknowledgement.
func EncodeHeartbeat(serverTime, clientTime int64) ([]byte, error) {
	return json.Marshal(Heartbeat{Type: TypeHeartbeat, ServerTime: serverTime, ClientTime: clientTime})
}

// EncodeStateUpdate renders a world snapshot. Empty collections encode as
// empty arrays, never null.
func EncodeStateUpdate(snapshot world.Snapshot) ([]byte, error) {
	msg := StateUpdate{
		Type:        TypeStateUpdate,
		Ships:       snapshot.Ships,
		Projectiles: snapshot.Projectiles,
		Leaderboard: snapshot.Leaderboard,
	}
	if msg.Ships == nil {
		msg.Ships = []world.ShipView{}
	}
	if msg.Projectiles == nil {
		msg.Projectiles = []world.ProjectileView{}
	}
	if msg.Leaderboard == nil {
		msg.Leaderboard = []world.LeaderboardEntry{}
	}
	return json.Marshal(msg)
}
