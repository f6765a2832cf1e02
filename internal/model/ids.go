package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Kind names an addressable entity class for update broadcasting.
type Kind string

const (
	KindSeries Kind = "series"
	KindBout   Kind = "bout"
	KindPeriod Kind = "period"
	KindJam    Kind = "jam"
)

// ID addresses one entity for update broadcasting. It is comparable so the
// broadcaster's pending set can deduplicate on it; -1 marks an unset index.
type ID struct {
	Kind   Kind
	Bout   uuid.UUID
	Period int
	Jam    int
	Team   TeamSide
}

func SeriesID() ID {
	return ID{Kind: KindSeries, Period: -1, Jam: -1}
}

func BoutID(bout uuid.UUID) ID {
	return ID{Kind: KindBout, Bout: bout, Period: -1, Jam: -1}
}

func PeriodID(bout uuid.UUID, period int) ID {
	return ID{Kind: KindPeriod, Bout: bout, Period: period, Jam: -1}
}

func JamID(bout uuid.UUID, period, jam int) ID {
	return ID{Kind: KindJam, Bout: bout, Period: period, Jam: jam}
}

func (id ID) MarshalJSON() ([]byte, error) {
	out := struct {
		Name   string    `json:"name"`
		BoutID *string   `json:"boutId,omitempty"`
		Period *int      `json:"period,omitempty"`
		Jam    *int      `json:"jam,omitempty"`
		Team   *TeamSide `json:"team,omitempty"`
	}{Name: string(id.Kind)}
	if id.Kind != KindSeries {
		s := id.Bout.String()
		out.BoutID = &s
	}
	if id.Period >= 0 {
		p := id.Period
		out.Period = &p
	}
	if id.Jam >= 0 {
		j := id.Jam
		out.Jam = &j
	}
	if id.Team != "" {
		t := id.Team
		out.Team = &t
	}
	return json.Marshal(out)
}

// Updater receives the id of every entity a mutator changed. The broadcaster
// implements it; sendNow requests an immediate flush instead of waiting for
// the end of the current command.
type Updater interface {
	QueueUpdate(id ID, sendNow bool)
}

// AlarmFunc is invoked from clock alarm tasks when a game clock expires.
type AlarmFunc func(id ID, at time.Time)

// encodeInstant renders a nullable instant as ISO-8601 UTC.
func encodeInstant(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}
