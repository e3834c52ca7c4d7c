package hub

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrogCounters/boatboat/internal/session"
	"github.com/FrogCounters/boatboat/internal/telemetry"
	"github.com/FrogCounters/boatboat/internal/world"
)

type fakeTransport struct {
	mu      sync.Mutex
	sent    [][]byte
	sendErr error
	closed  bool
	code    int
}

func (f *fakeTransport) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, append([]byte(nil), payload...))
	return nil
}

func (f *fakeTransport) Close(code int, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.code = code
	return nil
}

func (f *fakeTransport) closeCode() (bool, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed, f.code
}

func (f *fakeTransport) first(t *testing.T) map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(f.sent[0], &msg))
	return msg
}

type testHub struct {
	*Hub
	now     time.Time
	metrics *telemetry.Counters
}

func newTestHub(t *testing.T, worldCfg world.Config) *testHub {
	t.Helper()
	th := &testHub{now: time.Unix(1_700_000_000, 0), metrics: &telemetry.Counters{}}
	seq := 0
	th.Hub = New(world.New(worldCfg, world.Deps{Now: func() time.Time { return th.now }}), Config{
		IdleTimeout: 30 * time.Second,
		TicketTTL:   time.Minute,
		Logger:      zerolog.Nop(),
		Metrics:     th.metrics,
		Now:         func() time.Time { return th.now },
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
	})
	return th
}

func (th *testHub) open(t *testing.T) (*session.Session, *fakeTransport) {
	t.Helper()
	transport := &fakeTransport{}
	s := session.New(transport, th.now)
	require.NoError(t, s.Accept())
	return s, transport
}

func (th *testHub) vehicle(t *testing.T) (*session.Session, *fakeTransport, string) {
	t.Helper()
	s, transport := th.open(t)
	shipID, err := th.ConnectVehicle(s)
	require.NoError(t, err)
	return s, transport, shipID
}

func (th *testHub) crew(t *testing.T, target CrewTarget) (*session.Session, *fakeTransport, string, error) {
	t.Helper()
	s, transport := th.open(t)
	playerID, err := th.ConnectCrew(s, target)
	return s, transport, playerID, err
}

func TestConnectVehicleSendsInitAndCreatesShip(t *testing.T) {
	th := newTestHub(t, world.DefaultConfig())
	s, transport, shipID := th.vehicle(t)

	assert.Equal(t, map[string]any{"type": "init", "ship_id": shipID}, transport.first(t))
	assert.Equal(t, session.StateActive, s.State())
	assert.True(t, th.World().HasShip(shipID))
	assert.Equal(t, 1, th.Sessions().Count())
}

func TestConnectCrewByShip(t *testing.T) {
	th := newTestHub(t, world.DefaultConfig())
	_, _, shipID := th.vehicle(t)

	s, transport, playerID, err := th.crew(t, CrewTarget{ShipID: shipID})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"type": "init", "ship_id": shipID, "player_id": playerID}, transport.first(t))
	assert.Equal(t, session.RoleCrew, s.Role())
	assert.Equal(t, shipID, s.ShipID())
}

func TestConnectCrewRejections(t *testing.T) {
	cfg := world.DefaultConfig()
	cfg.MaxCrew = 1
	th := newTestHub(t, cfg)
	_, _, shipID := th.vehicle(t)

	cases := []struct {
		name   string
		target CrewTarget
		code   int
	}{
		{name: "missing identifier", target: CrewTarget{}, code: session.CloseMalformed},
		{name: "unknown ship", target: CrewTarget{ShipID: "nowhere"}, code: session.CloseUnknown},
		{name: "unknown ticket", target: CrewTarget{PlayerID: "forged"}, code: session.CloseUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, transport, _, err := th.crew(t, tc.target)
			var herr *HandshakeError
			require.True(t, errors.As(err, &herr), "got %v", err)
			assert.Equal(t, tc.code, herr.Code)
			closed, code := transport.closeCode()
			assert.True(t, closed)
			assert.Equal(t, tc.code, code)
			assert.Equal(t, session.StateClosed, s.State())
		})
	}

	member, _, _, err := th.crew(t, CrewTarget{ShipID: shipID})
	require.NoError(t, err)
	require.NoError(t, th.Handle(member, []byte(`{"type":"join_position","data":{"position":"helm"}}`)))

	_, transport, _, err := th.crew(t, CrewTarget{ShipID: shipID})
	var herr *HandshakeError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, session.CloseUnavailable, herr.Code)
	_, code := transport.closeCode()
	assert.Equal(t, session.CloseUnavailable, code)
}

func TestTicketRedemption(t *testing.T) {
	th := newTestHub(t, world.DefaultConfig())
	_, _, shipID := th.vehicle(t)

	_, err := th.IssueTicket("nowhere")
	assert.ErrorIs(t, err, world.ErrShipNotFound)

	playerID, err := th.IssueTicket(shipID)
	require.NoError(t, err)

	s, transport, got, err := th.crew(t, CrewTarget{PlayerID: playerID})
	require.NoError(t, err)
	assert.Equal(t, playerID, got)
	assert.Equal(t, playerID, s.ID())
	assert.Equal(t, shipID, transport.first(t)["ship_id"])

	_, _, _, err = th.crew(t, CrewTarget{PlayerID: playerID})
	var herr *HandshakeError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, session.CloseUnavailable, herr.Code)
}

func TestCrewDisconnectFreesStation(t *testing.T) {
	th := newTestHub(t, world.DefaultConfig())
	_, _, shipID := th.vehicle(t)
	p1, _, _, err := th.crew(t, CrewTarget{ShipID: shipID})
	require.NoError(t, err)
	p2, p2Transport, _, err := th.crew(t, CrewTarget{ShipID: shipID})
	require.NoError(t, err)

	join := []byte(`{"type":"join_position","data":{"position":"helm"}}`)
	require.NoError(t, th.Handle(p1, join))
	require.NoError(t, th.Handle(p2, join))

	th.Disconnect(p1, 1000, "bye")
	assert.Equal(t, session.StateClosed, p1.State())

	require.NoError(t, th.Handle(p2, join))
	p2Transport.mu.Lock()
	last := p2Transport.sent[len(p2Transport.sent)-1]
	p2Transport.mu.Unlock()
	assert.JSONEq(t, `{"type":"join_position_response","success":true}`, string(last))

	snapshot, _ := th.World().Snapshot()
	require.Len(t, snapshot.Ships, 1)
	require.Len(t, snapshot.Ships[0].Crew, 1)
	assert.Equal(t, p2.ID(), snapshot.Ships[0].Crew[0].ID)
}

func TestVehicleDisconnectRemovesShipAndCrew(t *testing.T) {
	th := newTestHub(t, world.DefaultConfig())
	vehicle, _, shipID := th.vehicle(t)
	_, _, otherShip := th.vehicle(t)
	member, memberTransport, _, err := th.crew(t, CrewTarget{ShipID: shipID})
	require.NoError(t, err)
	require.NoError(t, th.Handle(member, []byte(`{"type":"join_position","data":{"position":"cannon_left_1"}}`)))
	ticket, err := th.IssueTicket(shipID)
	require.NoError(t, err)

	th.Disconnect(vehicle, 1000, "closed")
	th.Disconnect(vehicle, 1000, "closed")

	assert.False(t, th.World().HasShip(shipID))
	assert.True(t, th.World().HasShip(otherShip))
	closed, code := memberTransport.closeCode()
	assert.True(t, closed)
	assert.Equal(t, session.CloseShipRemoved, code)
	assert.Equal(t, 1, th.Sessions().Count())

	_, _, _, err = th.crew(t, CrewTarget{PlayerID: ticket})
	assert.Error(t, err, "tickets for a removed ship are void")

	snapshot, _ := th.World().Snapshot()
	require.Len(t, snapshot.Ships, 1)
	assert.Equal(t, otherShip, snapshot.Ships[0].ID)
}

func TestReapStaleClosesIdleAndFailedSessions(t *testing.T) {
	th := newTestHub(t, world.DefaultConfig())
	idle, idleTransport, idleShip := th.vehicle(t)
	active, _, _ := th.vehicle(t)
	broken, brokenTransport, _ := th.vehicle(t)

	th.now = th.now.Add(time.Minute)
	require.NoError(t, th.Handle(active, []byte(`{"type":"heartbeat"}`)))
	th.Touch(broken)
	brokenTransport.mu.Lock()
	brokenTransport.sendErr = session.ErrSendQueueFull
	brokenTransport.mu.Unlock()
	th.Sessions().Broadcast([]byte(`{}`))

	reaped := th.ReapStale(th.now)
	assert.Equal(t, 2, reaped)
	assert.Equal(t, session.StateClosed, idle.State())
	assert.Equal(t, session.StateClosed, broken.State())
	assert.Equal(t, session.StateActive, active.State())
	_, code := idleTransport.closeCode()
	assert.Equal(t, session.CloseIdle, code)
	assert.False(t, th.World().HasShip(idleShip))
	assert.Equal(t, uint64(2), th.metrics.Snapshot()[telemetry.MetricSessionsReaped])
}

func TestDiagnosticsSnapshot(t *testing.T) {
	th := newTestHub(t, world.DefaultConfig())
	_, _, shipID := th.vehicle(t)
	_, err := th.IssueTicket(shipID)
	require.NoError(t, err)

	diag := th.DiagnosticsSnapshot()
	assert.Equal(t, 1, diag.Ships)
	assert.Equal(t, 1, diag.Tickets)
	require.Len(t, diag.Sessions, 1)
	assert.Equal(t, "vehicle", diag.Sessions[0].Role)
	assert.Equal(t, "active", diag.Sessions[0].State)
}

func TestReapedCrewCannotReclaimStation(t *testing.T) {
	th := newTestHub(t, world.DefaultConfig())
	vehicle, _, shipID := th.vehicle(t)
	p1, _, _, err := th.crew(t, CrewTarget{ShipID: shipID})
	require.NoError(t, err)
	p2, p2Transport, _, err := th.crew(t, CrewTarget{ShipID: shipID})
	require.NoError(t, err)

	th.now = th.now.Add(time.Minute)
	th.Touch(vehicle)
	th.Touch(p2)
	require.Equal(t, 1, th.ReapStale(th.now))
	require.Equal(t, session.StateClosed, p1.State())

	join := []byte(`{"type":"join_position","data":{"position":"helm"}}`)
	err = th.Handle(p1, join)
	assert.ErrorIs(t, err, session.ErrSessionClosed)
	th.Disconnect(p1, 1000, "transport closed")

	require.NoError(t, th.Handle(p2, join))
	p2Transport.mu.Lock()
	last := p2Transport.sent[len(p2Transport.sent)-1]
	p2Transport.mu.Unlock()
	assert.JSONEq(t, `{"type":"join_position_response","success":true}`, string(last))

	snapshot, _ := th.World().Snapshot()
	require.Len(t, snapshot.Ships, 1)
	require.Len(t, snapshot.Ships[0].Crew, 1)
	assert.Equal(t, p2.ID(), snapshot.Ships[0].Crew[0].ID)
	assert.Equal(t, uint64(1), th.metrics.Snapshot()[telemetry.WithReason(telemetry.MetricMessagesDropped, "closed")])
}

func TestInitSendFailureClosesWithInitFailed(t *testing.T) {
	th := newTestHub(t, world.DefaultConfig())

	vehicle, vehicleTransport := th.open(t)
	vehicleTransport.sendErr = session.ErrSendQueueFull
	_, err := th.ConnectVehicle(vehicle)
	require.ErrorIs(t, err, session.ErrSendQueueFull)
	_, code := vehicleTransport.closeCode()
	assert.Equal(t, session.CloseInitFailed, code)
	ships, _ := th.World().Counts()
	assert.Zero(t, ships)

	_, _, shipID := th.vehicle(t)
	member, memberTransport := th.open(t)
	memberTransport.sendErr = session.ErrSendQueueFull
	_, err = th.ConnectCrew(member, CrewTarget{ShipID: shipID})
	var herr *HandshakeError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, session.CloseInitFailed, herr.Code)
	_, code = memberTransport.closeCode()
	assert.Equal(t, session.CloseInitFailed, code)
	assert.Equal(t, 1, th.Sessions().Count())
}

func TestDiagnosticsPrunesExpiredProjectiles(t *testing.T) {
	th := newTestHub(t, world.DefaultConfig())
	vehicle, _, _ := th.vehicle(t)

	require.NoError(t, th.Handle(vehicle, []byte(`{"type":"bullet_update","data":{"position":{"x":0,"y":0},"angle":0,"timestamp":1}}`)))
	assert.Equal(t, 1, th.DiagnosticsSnapshot().Projectiles)

	th.now = th.now.Add(world.DefaultProjectileTTL + time.Millisecond)
	assert.Zero(t, th.DiagnosticsSnapshot().Projectiles)
	assert.Equal(t, uint64(1), th.metrics.Snapshot()[telemetry.MetricProjectilesExpired])
}
