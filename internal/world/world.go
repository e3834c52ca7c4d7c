package world

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FrogCounters/boatboat/internal/combat"
	"github.com/FrogCounters/boatboat/internal/geom"
)

// Deps bundles runtime collaborators injected into a World.
type Deps struct {
	Now   func() time.Time
	NewID func() string
}

// World owns every live ship, crew member and projectile. All mutation and
// every snapshot go through its mutex, so a snapshot never observes a
// half-applied operation.
type World struct {
	mu sync.Mutex

	config Config
	now    func() time.Time
	newID  func() string

	ships     map[string]*Ship
	shipOrder []string

	projectiles []*Projectile
}

// New constructs an empty world.
func New(cfg Config, deps Deps) *World {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	newID := deps.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &World{
		config: cfg.normalized(),
		now:    now,
		newID:  newID,
		ships:  make(map[string]*Ship),
	}
}

// Config returns the normalized rules in effect.
func (w *World) Config() Config {
	return w.config
}

// CreateShip registers a ship at the origin with full health. Creating an
// existing ship returns it unchanged.
func (w *World) CreateShip(shipID string) ShipView {
	w.mu.Lock()
	defer w.mu.Unlock()

	if ship, ok := w.ships[shipID]; ok {
		return viewShip(ship)
	}
	ship := newShip(shipID, w.config.InitialHealth)
	w.ships[shipID] = ship
	w.shipOrder = append(w.shipOrder, shipID)
	return viewShip(ship)
}

// HasShip reports whether the ship is live.
func (w *World) HasShip(shipID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.ships[shipID]
	return ok
}

// CrewSize returns the number of crew aboard a ship, or false if unknown.
func (w *World) CrewSize(shipID string) (int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ship, ok := w.ships[shipID]
	if !ok {
		return 0, false
	}
	return ship.CrewSize(), true
}

// UpdateShipKinematics overwrites the client-reported motion of a ship. The
// timestamp is trusted verbatim. Unknown ships are ignored.
func (w *World) UpdateShipKinematics(shipID string, position, velocity geom.Vec2, timestamp float64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	ship, ok := w.ships[shipID]
	if !ok {
		return false
	}
	ship.Position = position
	ship.Velocity = velocity
	ship.LastUpdate = timestamp
	return true
}

// JoinStation places a player aboard a ship. A player already aboard is moved
// instead, so a crew member never holds two stations.
func (w *World) JoinStation(shipID, playerID string, station Station) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ship, ok := w.ships[shipID]
	if !ok {
		return ErrShipNotFound
	}
	if err := ship.canTake(playerID, station); err != nil {
		return err
	}
	if member, aboard := ship.crew[playerID]; aboard {
		member.moveTo(station)
		return nil
	}
	if w.config.MaxCrew > 0 && ship.CrewSize() >= w.config.MaxCrew {
		return ErrCrewFull
	}
	ship.addCrew(playerID, station)
	return nil
}

// MoveStation moves a crew member to another station on the same ship.
func (w *World) MoveStation(shipID, playerID string, station Station) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ship, ok := w.ships[shipID]
	if !ok {
		return ErrShipNotFound
	}
	member, aboard := ship.crew[playerID]
	if !aboard {
		return ErrPlayerNotFound
	}
	if err := ship.canTake(playerID, station); err != nil {
		return err
	}
	member.moveTo(station)
	return nil
}

// LeaveStation removes a player from a ship's crew. It reports whether the
// player was aboard.
func (w *World) LeaveStation(shipID, playerID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	ship, ok := w.ships[shipID]
	if !ok {
		return false
	}
	return ship.removeCrew(playerID)
}

// RemoveShip deletes a ship together with its crew and returns the ids of the
// crew that were aboard.
func (w *World) RemoveShip(shipID string) ([]string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ship, ok := w.ships[shipID]
	if !ok {
		return nil, false
	}
	crew := append([]string(nil), ship.crewOrder...)
	delete(w.ships, shipID)
	for i, id := range w.shipOrder {
		if id == shipID {
			w.shipOrder = append(w.shipOrder[:i], w.shipOrder[i+1:]...)
			break
		}
	}
	return crew, true
}

// FireIntent is a client request to fire from a ship.
type FireIntent struct {
	ShipID    string
	PlayerID  string
	Position  geom.Vec2
	Angle     float64
	Timestamp float64
}

// FireResult reports the outcome of resolving a fire intent.
type FireResult struct {
	ProjectileID string
	Hit          bool
	TargetID     string
	TargetHealth int
	ShooterScore int
	Distance     float64
	Expired      int
}

// Fire records a projectile and resolves its ray against every other ship.
// On a hit the target loses HitDamage health, the firing ship scores a point
// and the projectile is discarded; a miss is retained until it expires.
func (w *World) Fire(intent FireIntent) (FireResult, error) {
	if !intent.Position.Finite() {
		return FireResult{}, ErrInvalidPosition
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	result := FireResult{Expired: w.pruneProjectilesLocked(now)}

	shooter, ok := w.ships[intent.ShipID]
	if !ok {
		return result, fmt.Errorf("fire from %s: %w", intent.ShipID, ErrShipNotFound)
	}

	projectile := &Projectile{
		ID:        w.newID(),
		Position:  intent.Position,
		Angle:     intent.Angle,
		ShipID:    intent.ShipID,
		PlayerID:  intent.PlayerID,
		Timestamp: intent.Timestamp,
		createdAt: now,
	}
	result.ProjectileID = projectile.ID

	ray := combat.Ray{Origin: projectile.Position, Angle: projectile.Angle, OwnerID: shooter.ID}
	hit, struck := combat.ResolveRayHit(ray, func(visit combat.RayHitVisitor) {
		for _, id := range w.shipOrder {
			ship := w.ships[id]
			target := combat.RayHitTarget{ID: ship.ID, Position: ship.Position, Radius: w.config.HitRadius, Raw: ship}
			if !visit(target) {
				return
			}
		}
	})
	if !struck {
		w.projectiles = append(w.projectiles, projectile)
		result.ShooterScore = shooter.Score
		return result, nil
	}

	target := hit.Target.Raw.(*Ship)
	target.Health -= w.config.HitDamage
	if target.Health < 0 {
		target.Health = 0
	}
	shooter.Score++

	result.Hit = true
	result.TargetID = target.ID
	result.TargetHealth = target.Health
	result.ShooterScore = shooter.Score
	result.Distance = hit.T
	return result, nil
}

// PruneProjectiles drops projectiles older than the configured time-to-live
// and returns how many were removed.
func (w *World) PruneProjectiles() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pruneProjectilesLocked(w.now())
}

func (w *World) pruneProjectilesLocked(now time.Time) int {
	if len(w.projectiles) == 0 {
		return 0
	}
	cutoff := now.Add(-w.config.ProjectileTTL)
	kept := w.projectiles[:0]
	for _, projectile := range w.projectiles {
		if projectile.createdAt.After(cutoff) {
			kept = append(kept, projectile)
		}
	}
	removed := len(w.projectiles) - len(kept)
	for i := len(kept); i < len(w.projectiles); i++ {
		w.projectiles[i] = nil
	}
	w.projectiles = kept
	return removed
}

// Counts returns the number of live ships and projectiles.
func (w *World) Counts() (ships, projectiles int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.ships), len(w.projectiles)
}
