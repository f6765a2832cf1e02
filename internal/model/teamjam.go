package model

import (
	"time"

	"github.com/trackside/derby-scoreboard-backend/internal/fault"
)

// TeamSide distinguishes the two scoring records of a jam.
type TeamSide string

const (
	TeamHome TeamSide = "home"
	TeamAway TeamSide = "away"
)

// ParseTeamSide validates a wire-side team name.
func ParseTeamSide(s string) (TeamSide, error) {
	switch t := TeamSide(s); t {
	case TeamHome, TeamAway:
		return t, nil
	default:
		return "", fault.BadRequest("unknown team %q", s)
	}
}

// Trip is one scoring pass: 0–4 points at an instant.
type Trip struct {
	Timestamp time.Time
	Points    int
}

// TeamJam is one side's scoring record within a jam.
type TeamJam struct {
	jam  *Jam
	side TeamSide

	lead     bool
	lost     bool
	starPass *int
	trips    []Trip
}

func (tj *TeamJam) Lead() bool     { return tj.lead }
func (tj *TeamJam) Lost() bool     { return tj.lost }
func (tj *TeamJam) StarPass() *int { return tj.starPass }
func (tj *TeamJam) Trips() []Trip  { return tj.trips }

func (tj *TeamJam) other() *TeamJam {
	if tj.side == TeamHome {
		return tj.jam.away
	}
	return tj.jam.home
}

// LeadEligible reports whether this side may still earn lead: nobody else has
// it and this side has not lost it.
func (tj *TeamJam) LeadEligible() bool {
	return !tj.other().lead && !tj.lost
}

// Score sums the side's trip points.
func (tj *TeamJam) Score() int {
	total := 0
	for _, trip := range tj.trips {
		total += trip.Points
	}
	return total
}

// ApplyTrip records a trip. index == len(trips) appends; an index inside the
// list replaces that trip's points (timestamp unchanged). A valid-pass append
// by a lead-eligible team earns lead first. All preconditions are checked
// before any state changes.
func (tj *TeamJam) ApplyTrip(index, points int, t time.Time, validPass bool) error {
	if points < 0 || points > 4 {
		return fault.Bounds("points must be between 0 and 4")
	}
	if index < 0 || index > len(tj.trips) {
		return fault.Bounds("trip number must be between 0 and %d", len(tj.trips))
	}
	if index == 0 && points != 0 {
		return fault.Rule("the initial pass cannot score points")
	}

	if index == len(tj.trips) {
		if validPass && tj.LeadEligible() {
			tj.lead = true
		}
		tj.trips = append(tj.trips, Trip{Timestamp: t, Points: points})
	} else {
		tj.trips[index].Points = points
	}
	tj.jam.queue()
	return nil
}

// DeleteTrip removes the trip at index, clearing a star pass that would point
// at or past the new end of the list.
func (tj *TeamJam) DeleteTrip(index int) error {
	if index < 0 || index >= len(tj.trips) {
		return fault.Bounds("no trip %d for this team", index)
	}
	tj.trips = append(tj.trips[:index], tj.trips[index+1:]...)
	if tj.starPass != nil && *tj.starPass >= len(tj.trips) {
		tj.starPass = nil
	}
	tj.jam.queue()
	return nil
}

// SetLead grants or clears lead. At most one side of a jam may hold it, and a
// side that lost its jammer cannot earn it.
func (tj *TeamJam) SetLead(lead bool) error {
	if lead {
		if tj.other().lead {
			return fault.Rule("There is already a lead Jammer for this Jam")
		}
		if tj.lost {
			return fault.Rule("a Jammer that has lost lead cannot become lead")
		}
	}
	tj.lead = lead
	tj.jam.queue()
	return nil
}

func (tj *TeamJam) SetLost(lost bool) {
	tj.lost = lost
	tj.jam.queue()
}

// SetStarPass records the trip at which the star passed; a non-null value
// forfeits lead for the rest of the jam.
func (tj *TeamJam) SetStarPass(trip *int) error {
	if trip != nil && *trip < 0 {
		return fault.Bounds("star pass trip cannot be negative")
	}
	tj.starPass = trip
	if trip != nil {
		tj.lost = true
	}
	tj.jam.queue()
	return nil
}

type tripJSON struct {
	Timestamp string `json:"timestamp"`
	Points    int    `json:"points"`
}

type teamJamJSON struct {
	Lead     bool       `json:"lead"`
	Lost     bool       `json:"lost"`
	StarPass *int       `json:"starPass"`
	Trips    []tripJSON `json:"trips"`
}

func (tj *TeamJam) encode() teamJamJSON {
	trips := make([]tripJSON, 0, len(tj.trips))
	for _, trip := range tj.trips {
		ts := trip.Timestamp
		trips = append(trips, tripJSON{Timestamp: *encodeInstant(&ts), Points: trip.Points})
	}
	return teamJamJSON{
		Lead:     tj.lead,
		Lost:     tj.lost,
		StarPass: tj.starPass,
		Trips:    trips,
	}
}
