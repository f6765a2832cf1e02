package model

import (
	"github.com/google/uuid"

	"github.com/trackside/derby-scoreboard-backend/internal/fault"
)

// Series is the process-wide singleton: an ordered list of bouts, the last of
// which is current. It is created at startup and never destroyed.
type Series struct {
	updates Updater
	alarm   AlarmFunc
	bouts   []*Bout
}

// NewSeries builds an empty series. updates receives every mutation; alarm is
// installed as the expiry callback on every game clock the series creates
// (may be nil in tests).
func NewSeries(updates Updater, alarm AlarmFunc) *Series {
	return &Series{updates: updates, alarm: alarm}
}

// AddBout appends a fresh bout (one period, one empty jam) and makes it
// current.
func (s *Series) AddBout() *Bout {
	b := newBout(s)
	s.bouts = append(s.bouts, b)
	s.updates.QueueUpdate(SeriesID(), false)
	return b
}

// DeleteBout removes the bout; its id is still queued so subscribers see the
// tombstone.
func (s *Series) DeleteBout(id uuid.UUID) error {
	for i, b := range s.bouts {
		if b.id == id {
			s.bouts = append(s.bouts[:i], s.bouts[i+1:]...)
			s.updates.QueueUpdate(SeriesID(), false)
			s.updates.QueueUpdate(BoutID(id), false)
			return nil
		}
	}
	return fault.BadRequest("no Bout with id %s", id)
}

func (s *Series) Bout(id uuid.UUID) (*Bout, error) {
	for _, b := range s.bouts {
		if b.id == id {
			return b, nil
		}
	}
	return nil, fault.BadRequest("no Bout with id %s", id)
}

func (s *Series) BoutCount() int { return len(s.bouts) }

// CurrentBout is the last bout, or nil when the series is empty. Derived, not
// stored.
func (s *Series) CurrentBout() *Bout {
	if len(s.bouts) == 0 {
		return nil
	}
	return s.bouts[len(s.bouts)-1]
}

type seriesJSON struct {
	Bouts       []string `json:"bouts"`
	CurrentBout *string  `json:"currentBout"`
}

func (s *Series) Encode() any {
	out := seriesJSON{Bouts: make([]string, 0, len(s.bouts))}
	for _, b := range s.bouts {
		out.Bouts = append(out.Bouts, b.id.String())
	}
	if cur := s.CurrentBout(); cur != nil {
		id := cur.id.String()
		out.CurrentBout = &id
	}
	return out
}
