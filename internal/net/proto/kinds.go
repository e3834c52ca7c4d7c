package proto

import "fmt"

// Kind is the closed set of inbound message kinds. The router switches over
// every value; adding a kind without a route fails its exhaustiveness test.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindLocationUpdate
	KindFire
	KindJoinStation
	KindMoveStation
	KindLeaveStation
	KindRelay
	KindHeartbeat

	kindCount
)

// Inbound type identifiers.
const (
	TypeLocationUpdate = "location_update"
	TypeBulletUpdate   = "bullet_update"
	TypeBombUpdate     = "bomb_update"
	TypeJoinPosition   = "join_position"
	TypePositionUpdate = "position_update"
	TypeLeavePosition  = "leave_position"
	TypeCommunication  = "player_communication"
	TypeHeartbeat      = "heartbeat"
)

// Outbound type identifiers.
const (
	TypeInit        = "init"
	TypeStateUpdate = "state_update"

	responseSuffix = "_response"
)

var kindsByType = map[string]Kind{
	TypeLocationUpdate: KindLocationUpdate,
	TypeBulletUpdate:   KindFire,
	TypeBombUpdate:     KindFire,
	TypeJoinPosition:   KindJoinStation,
	TypePositionUpdate: KindMoveStation,
	TypeLeavePosition:  KindLeaveStation,
	TypeCommunication:  KindRelay,
	TypeHeartbeat:      KindHeartbeat,
}

var kindNames = [kindCount]string{
	KindUnknown:        "unknown",
	KindLocationUpdate: TypeLocationUpdate,
	KindFire:           "fire",
	KindJoinStation:    TypeJoinPosition,
	KindMoveStation:    TypePositionUpdate,
	KindLeaveStation:   TypeLeavePosition,
	KindRelay:          TypeCommunication,
	KindHeartbeat:      TypeHeartbeat,
}

// ParseKind resolves a wire type. Unrecognised types map to KindUnknown.
func ParseKind(msgType string) Kind {
	if kind, ok := kindsByType[msgType]; ok {
		return kind
	}
	return KindUnknown
}

// Kinds lists every routable kind.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount-1)
	for k := KindUnknown + 1; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// Types lists every inbound wire type accepted by ParseKind.
func Types() []string {
	return []string{
		TypeLocationUpdate,
		TypeBulletUpdate,
		TypeBombUpdate,
		TypeJoinPosition,
		TypePositionUpdate,
		TypeLeavePosition,
		TypeCommunication,
		TypeHeartbeat,
	}
}

func (k Kind) String() string {
	if k >= kindCount {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// ResponseType returns the reply type for a request type, e.g.
// "join_position" -> "join_position_response".
func ResponseType(msgType string) string {
	return msgType + responseSuffix
}
