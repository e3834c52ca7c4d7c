package world

import (
	"sort"

	"github.com/FrogCounters/boatboat/internal/geom"
)

// CrewView is the broadcast form of a crew member.
type CrewView struct {
	ID          string    `json:"id"`
	Station     Station   `json:"station"`
	RelativePos geom.Vec2 `json:"relative_pos"`
}

// ShipView is the broadcast form of a ship.
type ShipView struct {
	ID        string     `json:"id"`
	Position  geom.Vec2  `json:"position"`
	Velocity  geom.Vec2  `json:"velocity"`
	Health    int        `json:"health"`
	Score     int        `json:"score"`
	Crew      []CrewView `json:"crew"`
	Timestamp float64    `json:"timestamp"`
}

// ProjectileView is the broadcast form of a projectile.
type ProjectileView struct {
	ID        string    `json:"id"`
	ShipID    string    `json:"ship_id"`
	Position  geom.Vec2 `json:"position"`
	Angle     float64   `json:"angle"`
	Timestamp float64   `json:"timestamp"`
}

// LeaderboardEntry ranks a ship by score.
type LeaderboardEntry struct {
	ShipID string `json:"ship_id"`
	Score  int    `json:"score"`
}

// Snapshot is one consistent read of every live entity.
type Snapshot struct {
	Ships       []ShipView
	Projectiles []ProjectileView
	Leaderboard []LeaderboardEntry
}

// Snapshot copies the world under its lock. Expired projectiles are purged
// first so they never reach a client. Ships and crew are listed in
// registration order; the leaderboard is sorted by score descending with ties
// kept in registration order.
func (w *World) Snapshot() (Snapshot, int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	expired := w.pruneProjectilesLocked(w.now())

	snapshot := Snapshot{
		Ships:       make([]ShipView, 0, len(w.shipOrder)),
		Projectiles: make([]ProjectileView, 0, len(w.projectiles)),
		Leaderboard: make([]LeaderboardEntry, 0, len(w.shipOrder)),
	}
	for _, id := range w.shipOrder {
		ship := w.ships[id]
		snapshot.Ships = append(snapshot.Ships, viewShip(ship))
		snapshot.Leaderboard = append(snapshot.Leaderboard, LeaderboardEntry{ShipID: ship.ID, Score: ship.Score})
	}
	for _, projectile := range w.projectiles {
		snapshot.Projectiles = append(snapshot.Projectiles, ProjectileView{
			ID:        projectile.ID,
			ShipID:    projectile.ShipID,
			Position:  projectile.Position,
			Angle:     projectile.Angle,
			Timestamp: projectile.Timestamp,
		})
	}
	sort.SliceStable(snapshot.Leaderboard, func(i, j int) bool {
		return snapshot.Leaderboard[i].Score > snapshot.Leaderboard[j].Score
	})
	return snapshot, expired
}

// Ship returns a copy of a single ship.
func (w *World) Ship(shipID string) (ShipView, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ship, ok := w.ships[shipID]
	if !ok {
		return ShipView{}, false
	}
	return viewShip(ship), true
}

func viewShip(ship *Ship) ShipView {
	view := ShipView{
		ID:        ship.ID,
		Position:  ship.Position,
		Velocity:  ship.Velocity,
		Health:    ship.Health,
		Score:     ship.Score,
		Crew:      make([]CrewView, 0, len(ship.crewOrder)),
		Timestamp: ship.LastUpdate,
	}
	for _, id := range ship.crewOrder {
		member := ship.crew[id]
		view.Crew = append(view.Crew, CrewView{ID: member.ID, Station: member.Station, RelativePos: member.RelativePos})
	}
	return view
}
