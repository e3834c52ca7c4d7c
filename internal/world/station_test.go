package world

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/FrogCounters/boatboat/internal/geom"
)

func TestParseStationRoundTripsEveryName(t *testing.T) {
	for _, station := range Stations() {
		parsed, err := ParseStation(station.String())
		if err != nil {
			t.Fatalf("ParseStation(%q) failed: %v", station.String(), err)
		}
		if parsed != station {
			t.Fatalf("ParseStation(%q) = %v, want %v", station.String(), parsed, station)
		}
	}
}

func TestParseStationRejectsUnknownName(t *testing.T) {
	_, err := ParseStation("crow_nest")
	if !errors.Is(err, ErrUnknownStation) {
		t.Fatalf("expected ErrUnknownStation, got %v", err)
	}
}

func TestStationOffsets(t *testing.T) {
	cases := map[Station]geom.Vec2{
		StationHelm:         {X: 0, Y: 0},
		StationCannonLeft1:  {X: -20, Y: 10},
		StationCannonLeft2:  {X: -20, Y: -10},
		StationCannonRight1: {X: 20, Y: 10},
		StationCannonRight2: {X: 20, Y: -10},
		StationFree:         {X: 0, Y: 0},
	}
	for station, want := range cases {
		if got := station.Offset(); got != want {
			t.Fatalf("%s offset = %+v, want %+v", station, got, want)
		}
	}
	if StationFree.Exclusive() {
		t.Fatalf("free station must not be exclusive")
	}
	if !StationHelm.Exclusive() {
		t.Fatalf("helm must be exclusive")
	}
}

func TestStationJSON(t *testing.T) {
	var payload struct {
		Position Station `json:"position"`
	}
	if err := json.Unmarshal([]byte(`{"position":"cannon_right_2"}`), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.Position != StationCannonRight2 {
		t.Fatalf("expected cannon_right_2, got %v", payload.Position)
	}
	if err := json.Unmarshal([]byte(`{"position":"deck"}`), &payload); err == nil {
		t.Fatalf("expected unknown station to fail decoding")
	}

	data, err := json.Marshal(CrewView{ID: "p", Station: StationCannonLeft1})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := `{"id":"p","station":"cannon_left_1","relative_pos":{"x":0,"y":0}}`
	if string(data) != want {
		t.Fatalf("marshal = %s, want %s", data, want)
	}
}
