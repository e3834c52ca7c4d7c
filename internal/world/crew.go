package world

// Crew assignment rules. Crews are small, so occupancy is a linear scan.

// occupant returns the id of the crew member holding an exclusive station.
func (s *Ship) occupant(station Station) (string, bool) {
	if !station.Exclusive() {
		return "", false
	}
	for _, id := range s.crewOrder {
		if member := s.crew[id]; member != nil && member.Station == station {
			return id, true
		}
	}
	return "", false
}

// canTake reports whether playerID may hold station on this ship.
func (s *Ship) canTake(playerID string, station Station) error {
	if !station.Valid() {
		return ErrUnknownStation
	}
	if holder, taken := s.occupant(station); taken && holder != playerID {
		return ErrStationOccupied
	}
	return nil
}

func (s *Ship) addCrew(playerID string, station Station) *CrewMember {
	member := &CrewMember{
		ID:          playerID,
		ShipID:      s.ID,
		Station:     station,
		RelativePos: station.Offset(),
	}
	s.crew[playerID] = member
	s.crewOrder = append(s.crewOrder, playerID)
	return member
}

func (s *Ship) removeCrew(playerID string) bool {
	if _, ok := s.crew[playerID]; !ok {
		return false
	}
	delete(s.crew, playerID)
	for i, id := range s.crewOrder {
		if id == playerID {
			s.crewOrder = append(s.crewOrder[:i], s.crewOrder[i+1:]...)
			break
		}
	}
	return true
}

func (m *CrewMember) moveTo(station Station) {
	m.Station = station
	m.RelativePos = station.Offset()
}

// CrewSize returns the number of crew aboard.
func (s *Ship) CrewSize() int {
	return len(s.crew)
}
