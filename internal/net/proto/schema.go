package proto

import (
	"reflect"

	"github.com/invopop/jsonschema"

	"github.com/FrogCounters/boatboat/internal/world"
)

// Catalog groups every message shape exchanged over the websocket so the
// protocol can be described by one schema document.
type Catalog struct {
	Envelope       Envelope         `json:"envelope"`
	LocationUpdate LocationUpdate   `json:"location_update"`
	FireUpdate     FireUpdate       `json:"fire_update"`
	StationRequest StationRequest   `json:"station_request"`
	Heartbeat      HeartbeatRequest `json:"heartbeat"`
	Init           Init             `json:"init"`
	Response       Response         `json:"response"`
	HeartbeatAck   Heartbeat        `json:"heartbeat_ack"`
	StateUpdate    StateUpdate      `json:"state_update"`
}

var stationType = reflect.TypeOf(world.Station(0))

// Schema reflects the JSON schema of the wire protocol.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  true,
		RequiredFromJSONSchemaTags: true,
		Mapper:                     mapType,
	}
	schema := reflector.Reflect(new(Catalog))
	schema.Title = "Boatboat Wire Protocol"
	schema.Description = "Inbound envelopes and outbound frames exchanged on /ws and /ws/crew"
	return schema
}

func mapType(t reflect.Type) *jsonschema.Schema {
	if t != stationType {
		return nil
	}
	stations := world.Stations()
	names := make([]interface{}, 0, len(stations))
	for _, station := range stations {
		names = append(names, station.String())
	}
	return &jsonschema.Schema{
		Type:        "string",
		Enum:        names,
		Description: "crew station",
	}
}
