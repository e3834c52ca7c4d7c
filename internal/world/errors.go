package world

import "errors"

var (
	ErrShipNotFound    = errors.New("ship not found")
	ErrPlayerNotFound  = errors.New("player not aboard ship")
	ErrStationOccupied = errors.New("station occupied")
	ErrUnknownStation  = errors.New("unknown station")
	ErrCrewFull        = errors.New("ship crew is full")
	ErrInvalidPosition = errors.New("position is not finite")
)
