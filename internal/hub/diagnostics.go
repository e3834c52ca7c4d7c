package hub

import (
	"github.com/FrogCounters/boatboat/internal/session"
	"github.com/FrogCounters/boatboat/internal/telemetry"
)

// Diagnostics summarises live state for the diagnostics endpoint.
type Diagnostics struct {
	Sessions    []session.Info `json:"sessions"`
	Ships       int            `json:"ships"`
	Projectiles int            `json:"projectiles"`
	Tickets     int            `json:"tickets"`
}

// DiagnosticsSnapshot exposes session liveness and entity counts. Expired
// projectiles are pruned first so the count matches the next broadcast.
func (h *Hub) DiagnosticsSnapshot() Diagnostics {
	if expired := h.world.PruneProjectiles(); expired > 0 {
		h.metrics.Add(telemetry.MetricProjectilesExpired, uint64(expired))
	}
	ships, projectiles := h.world.Counts()
	return Diagnostics{
		Sessions:    h.sessions.Describe(),
		Ships:       ships,
		Projectiles: projectiles,
		Tickets:     h.tickets.Len(),
	}
}
