package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/trackside/derby-scoreboard-backend/internal/clock"
	"github.com/trackside/derby-scoreboard-backend/internal/fault"
)

const (
	intermissionPreset = 15 * time.Minute
	periodPreset       = 30 * time.Minute
	lineupPreset       = 30 * time.Second
	jamPreset          = 2 * time.Minute
	teamTimeoutPreset  = time.Minute
)

// Bout is a single game: one or two periods, the stoppage ledger, and the
// five operator clocks. The period clock is shared by both periods and the
// jam clock is shared by every jam, the way a physical scoreboard's are.
type Bout struct {
	series *Series
	id     uuid.UUID

	periods   []*Period
	stoppages *BoutStoppages

	intermissionClock *clock.Clock
	periodClock       *clock.Clock
	lineupClock       *clock.Clock
	jamClock          *clock.Clock
	timeoutClock      *clock.Clock
}

func newBout(s *Series) *Bout {
	b := &Bout{
		series:            s,
		id:                uuid.New(),
		intermissionClock: clock.NewCountdown(intermissionPreset),
		periodClock:       clock.NewCountdown(periodPreset),
		lineupClock:       clock.NewCountdown(lineupPreset),
		jamClock:          clock.NewCountdown(jamPreset),
		timeoutClock:      clock.New(),
	}
	b.stoppages = newBoutStoppages(b)
	b.periods = []*Period{newPeriod(b, 0)}

	if s.alarm != nil {
		id := BoutID(b.id)
		fire := func(at time.Time) { s.alarm(id, at) }
		for _, c := range b.clocks() {
			c.SetCallback(fire)
		}
	}
	return b
}

func (b *Bout) UUID() uuid.UUID           { return b.id }
func (b *Bout) Stoppages() *BoutStoppages { return b.stoppages }
func (b *Bout) PeriodCount() int          { return len(b.periods) }

func (b *Bout) clocks() []*clock.Clock {
	return []*clock.Clock{
		b.intermissionClock, b.periodClock, b.lineupClock, b.jamClock, b.timeoutClock,
	}
}

// AddPeriod purges unplayed jams from the current period, then appends a new
// period seeded with one empty jam.
func (b *Bout) AddPeriod() (*Period, error) {
	if len(b.periods) >= 2 {
		return nil, fault.Rule("a Bout cannot have more than 2 Periods")
	}
	b.CurrentPeriod().Purge()
	p := newPeriod(b, len(b.periods))
	b.periods = append(b.periods, p)
	b.series.updates.QueueUpdate(BoutID(b.id), false)
	return p, nil
}

func (b *Bout) Period(i int) (*Period, error) {
	if i < 0 || i >= len(b.periods) {
		return nil, fault.Bounds("no Period %d in this Bout", i)
	}
	return b.periods[i], nil
}

// CurrentPeriod is the last period; a bout always has at least one.
func (b *Bout) CurrentPeriod() *Period {
	return b.periods[len(b.periods)-1]
}

// StartIntermission starts the 15-minute intermission countdown.
func (b *Bout) StartIntermission(t time.Time) error {
	if err := b.intermissionClock.Start(t); err != nil {
		return err
	}
	b.series.updates.QueueUpdate(BoutID(b.id), false)
	return nil
}

// StopIntermission halts the intermission countdown.
func (b *Bout) StopIntermission(t time.Time) error {
	if err := b.intermissionClock.Stop(t); err != nil {
		return err
	}
	b.series.updates.QueueUpdate(BoutID(b.id), false)
	return nil
}

type boutJSON struct {
	UUID          string                    `json:"uuid"`
	PeriodCount   int                       `json:"periodCount"`
	CurrentJamNum int                       `json:"currentJamNum"`
	JamCounts     []int                     `json:"jamCounts"`
	Clocks        map[string]clock.Snapshot `json:"clocks"`
	Timeouts      timeoutsJSON              `json:"timeouts"`
	Jams          jamsSummaryJSON           `json:"jams"`
}

type jamsSummaryJSON struct {
	Score     map[TeamSide]int `json:"score"`
	JamCounts []int            `json:"jamCounts"`
}

func (b *Bout) Encode(now time.Time) any {
	jamCounts := make([]int, 0, len(b.periods))
	score := map[TeamSide]int{TeamHome: 0, TeamAway: 0}
	for _, p := range b.periods {
		jamCounts = append(jamCounts, len(p.jams))
		for _, j := range p.jams {
			score[TeamHome] += j.home.Score()
			score[TeamAway] += j.away.Score()
		}
	}
	return boutJSON{
		UUID:          b.id.String(),
		PeriodCount:   len(b.periods),
		CurrentJamNum: b.CurrentPeriod().CurrentJamNum(),
		JamCounts:     jamCounts,
		Clocks: map[string]clock.Snapshot{
			"intermission": b.intermissionClock.Snapshot(now),
			"period":       b.periodClock.Snapshot(now),
			"lineup":       b.lineupClock.Snapshot(now),
			"jam":          b.jamClock.Snapshot(now),
			"timeout":      b.timeoutClock.Snapshot(now),
		},
		Timeouts: b.stoppages.encode(),
		Jams:     jamsSummaryJSON{Score: score, JamCounts: jamCounts},
	}
}
