package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Tickets are single-use crew identifiers issued over REST and redeemed by
// the crew websocket handshake.
type Tickets struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	newID   func() string
	tickets map[string]*ticket
}

type ticket struct {
	shipID   string
	issuedAt time.Time
	redeemed bool
}

// NewTickets constructs a ticket book. Nil functions fall back to the wall
// clock and random UUIDs.
func NewTickets(ttl time.Duration, now func() time.Time, newID func() string) *Tickets {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &Tickets{ttl: ttl, now: now, newID: newID, tickets: make(map[string]*ticket)}
}

// Issue reserves a fresh player id for shipID.
func (t *Tickets) Issue(shipID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.pruneLocked(now)
	id := t.newID()
	t.tickets[id] = &ticket{shipID: shipID, issuedAt: now}
	return id
}

// Redeem consumes a ticket and returns the ship it was issued for.
func (t *Tickets) Redeem(playerID string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked(t.now())
	tk, ok := t.tickets[playerID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTicketNotFound, playerID)
	}
	if tk.redeemed {
		return "", fmt.Errorf("%w: %s", ErrTicketRedeemed, playerID)
	}
	tk.redeemed = true
	return tk.shipID, nil
}

// DropShip forgets every ticket issued for shipID.
func (t *Tickets) DropShip(shipID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, tk := range t.tickets {
		if tk.shipID == shipID {
			delete(t.tickets, id)
		}
	}
}

// Len returns the number of tickets still tracked.
func (t *Tickets) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tickets)
}

func (t *Tickets) pruneLocked(now time.Time) {
	if t.ttl <= 0 {
		return
	}
	for id, tk := range t.tickets {
		if now.Sub(tk.issuedAt) > t.ttl {
			delete(t.tickets, id)
		}
	}
}
