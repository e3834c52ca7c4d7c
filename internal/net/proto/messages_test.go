package proto

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrogCounters/boatboat/internal/geom"
	"github.com/FrogCounters/boatboat/internal/world"
)

func TestParseKindAliasesFire(t *testing.T) {
	assert.Equal(t, KindFire, ParseKind(TypeBulletUpdate))
	assert.Equal(t, KindFire, ParseKind(TypeBombUpdate))
	assert.Equal(t, KindUnknown, ParseKind("teleport"))
}

func TestEveryTypeParsesToRoutableKind(t *testing.T) {
	seen := make(map[Kind]bool)
	for _, msgType := range Types() {
		kind := ParseKind(msgType)
		require.NotEqual(t, KindUnknown, kind, "type %q must be routable", msgType)
		seen[kind] = true
	}
	for _, kind := range Kinds() {
		assert.True(t, seen[kind], "kind %s has no wire type", kind)
	}
}

func TestDecodeEnvelope(t *testing.T) {
	env, kind, err := DecodeEnvelope([]byte(`{"type":"join_position","data":{"position":"helm"}}`))
	require.NoError(t, err)
	assert.Equal(t, KindJoinStation, kind)

	req, err := DecodePayload[StationRequest](env)
	require.NoError(t, err)
	station, err := req.RequireStation()
	require.NoError(t, err)
	assert.Equal(t, world.StationHelm, station)
}

func TestDecodeEnvelopeErrors(t *testing.T) {
	cases := map[string]struct {
		raw  string
		want error
	}{
		"empty":        {raw: ``, want: ErrMalformed},
		"not json":     {raw: `{type`, want: ErrMalformed},
		"missing type": {raw: `{"data":{}}`, want: ErrMalformed},
		"unknown type": {raw: `{"type":"teleport"}`, want: ErrUnknownKind},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := DecodeEnvelope([]byte(tc.raw))
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestDecodePayloadRequiresFields(t *testing.T) {
	cases := map[string]string{
		"location without velocity": `{"type":"location_update","data":{"position":{"x":1,"y":2}}}`,
		"fire without angle":        `{"type":"bullet_update","data":{"position":{"x":1,"y":2}}}`,
		"fire without data":         `{"type":"bomb_update"}`,
		"unknown station":           `{"type":"join_position","data":{"position":"crow_nest"}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			env, kind, err := DecodeEnvelope([]byte(raw))
			require.NoError(t, err)
			switch kind {
			case KindLocationUpdate:
				_, err = DecodePayload[LocationUpdate](env)
			case KindFire:
				_, err = DecodePayload[FireUpdate](env)
			default:
				_, err = DecodePayload[StationRequest](env)
			}
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestDecodeFireUpdate(t *testing.T) {
	env, _, err := DecodeEnvelope([]byte(`{"type":"bullet_update","data":{"position":{"x":3,"y":4},"angle":0,"timestamp":12.5,"player_id":"gunner"}}`))
	require.NoError(t, err)
	fire, err := DecodePayload[FireUpdate](env)
	require.NoError(t, err)
	assert.Equal(t, geom.Vec2{X: 3, Y: 4}, *fire.Position)
	assert.Zero(t, *fire.Angle)
	assert.Equal(t, "gunner", fire.PlayerID)
}

func TestEnvelopeDestination(t *testing.T) {
	assert.Equal(t, "a", Envelope{PlayerID: "a", TargetID: "b"}.Destination())
	assert.Equal(t, "b", Envelope{TargetID: "b"}.Destination())
	assert.Empty(t, Envelope{}.Destination())
}

func TestEncodeResponse(t *testing.T) {
	data, err := EncodeResponse(TypeJoinPosition, true)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"join_position_response","success":true}`, string(data))
}

func TestEncodeInitOmitsEmptyPlayer(t *testing.T) {
	data, err := EncodeInit("ship-1", "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"init","ship_id":"ship-1"}`, string(data))
}

func TestEncodeStateUpdateUsesEmptyArrays(t *testing.T) {
	data, err := EncodeStateUpdate(world.Snapshot{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"state_update","ships":[],"projectiles":[],"leaderboard":[]}`, string(data))
}

func TestSchemaDescribesStations(t *testing.T) {
	data, err := json.Marshal(Schema())
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, "Boatboat Wire Protocol"))
	for _, station := range world.Stations() {
		assert.Contains(t, text, `"`+station.String()+`"`)
	}
}
