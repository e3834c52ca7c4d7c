package world

import (
	"fmt"

	"github.com/FrogCounters/boatboat/internal/geom"
)

// Station is a fixed attachment point on a ship that a crew member occupies.
type Station uint8

const (
	StationHelm Station = iota
	StationCannonLeft1
	StationCannonLeft2
	StationCannonRight1
	StationCannonRight2
	// StationFree is the overflow slot; any number of crew may share it.
	StationFree

	stationCount
)

type stationSpec struct {
	name   string
	offset geom.Vec2
}

// stationTable maps every station to its wire name and offset from the ship
// center. It is the only place offsets are defined.
var stationTable = [stationCount]stationSpec{
	StationHelm:         {name: "helm", offset: geom.Vec2{X: 0, Y: 0}},
	StationCannonLeft1:  {name: "cannon_left_1", offset: geom.Vec2{X: -20, Y: 10}},
	StationCannonLeft2:  {name: "cannon_left_2", offset: geom.Vec2{X: -20, Y: -10}},
	StationCannonRight1: {name: "cannon_right_1", offset: geom.Vec2{X: 20, Y: 10}},
	StationCannonRight2: {name: "cannon_right_2", offset: geom.Vec2{X: 20, Y: -10}},
	StationFree:         {name: "free", offset: geom.Vec2{X: 0, Y: 0}},
}

var stationsByName = func() map[string]Station {
	byName := make(map[string]Station, stationCount)
	for i := Station(0); i < stationCount; i++ {
		spec := stationTable[i]
		if spec.name == "" {
			panic(fmt.Sprintf("world: station %d has no name", i))
		}
		if _, dup := byName[spec.name]; dup {
			panic(fmt.Sprintf("world: duplicate station name %q", spec.name))
		}
		byName[spec.name] = i
	}
	return byName
}()

// Stations lists every station in declaration order.
func Stations() []Station {
	out := make([]Station, 0, stationCount)
	for i := Station(0); i < stationCount; i++ {
		out = append(out, i)
	}
	return out
}

// ParseStation resolves a wire name such as "cannon_left_1".
func ParseStation(name string) (Station, error) {
	station, ok := stationsByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownStation, name)
	}
	return station, nil
}

// Valid reports whether s is a declared station.
func (s Station) Valid() bool {
	return s < stationCount
}

// Exclusive reports whether at most one crew member may hold the station.
func (s Station) Exclusive() bool {
	return s != StationFree
}

// Offset returns the station position relative to the ship center.
func (s Station) Offset() geom.Vec2 {
	if !s.Valid() {
		return stationTable[StationFree].offset
	}
	return stationTable[s].offset
}

func (s Station) String() string {
	if !s.Valid() {
		return fmt.Sprintf("station(%d)", uint8(s))
	}
	return stationTable[s].name
}

// MarshalText encodes the station by wire name.
func (s Station) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStation, uint8(s))
	}
	return []byte(stationTable[s].name), nil
}

// UnmarshalText decodes a wire name.
func (s *Station) UnmarshalText(text []byte) error {
	parsed, err := ParseStation(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
