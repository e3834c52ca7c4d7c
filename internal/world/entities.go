package world

import (
	"time"

	"github.com/FrogCounters/boatboat/internal/geom"
)

// Ship is a vehicle operated by its crew. Score never decreases; health is
// clamped at zero.
type Ship struct {
	ID         string
	Position   geom.Vec2
	Velocity   geom.Vec2
	Health     int
	Score      int
	LastUpdate float64

	crew      map[string]*CrewMember
	crewOrder []string
}

func newShip(id string, health int) *Ship {
	return &Ship{
		ID:     id,
		Health: health,
		crew:   make(map[string]*CrewMember),
	}
}

// CrewMember is a player occupying a station aboard a ship.
type CrewMember struct {
	ID          string
	ShipID      string
	Station     Station
	RelativePos geom.Vec2
}

// Projectile is the record of a single fire intent. Its ray is evaluated once
// at creation; misses linger until their time-to-live runs out.
type Projectile struct {
	ID        string
	Position  geom.Vec2
	Angle     float64
	ShipID    string
	PlayerID  string
	Timestamp float64

	createdAt time.Time
}
