package model

import (
	"time"

	"github.com/trackside/derby-scoreboard-backend/internal/fault"
)

// StopReason records why a jam ended.
type StopReason string

const (
	StopReasonTime   StopReason = "time"
	StopReasonCalled StopReason = "called"
	StopReasonInjury StopReason = "injury"
)

// ParseStopReason validates a wire-side stop reason.
func ParseStopReason(s string) (StopReason, error) {
	switch r := StopReason(s); r {
	case StopReasonTime, StopReasonCalled, StopReasonInjury:
		return r, nil
	default:
		return "", fault.BadRequest("unknown stop reason %q", s)
	}
}

// Jam is a single play. The bout's jam clock serves every jam in turn (lineup
// arms it at 30s, the jam proper at 2m), so jams record instants rather than
// owning a clock.
type Jam struct {
	period *Period
	index  int

	start      *time.Time
	stop       *time.Time
	stopReason *StopReason
	hasStarted bool

	home *TeamJam
	away *TeamJam
}

func newJam(p *Period, index int) *Jam {
	j := &Jam{period: p, index: index}
	j.home = &TeamJam{jam: j, side: TeamHome}
	j.away = &TeamJam{jam: j, side: TeamAway}
	return j
}

func (j *Jam) HasStarted() bool { return j.hasStarted }

func (j *Jam) Team(side TeamSide) *TeamJam {
	if side == TeamAway {
		return j.away
	}
	return j.home
}

// Lineup begins the 30-second pre-jam interval on the jam clock (and the
// operator lineup clock alongside it).
func (j *Jam) Lineup(t time.Time) error {
	if j.hasStarted {
		return fault.Rule("the Jam has already started")
	}
	b := j.period.bout
	if b.jamClock.IsRunning() {
		_ = b.jamClock.Stop(t)
	}
	b.jamClock.SetElapsed(0, t)
	b.jamClock.SetAlarm(lineupPreset)
	if err := b.jamClock.Start(t); err != nil {
		return err
	}
	if b.lineupClock.IsRunning() {
		_ = b.lineupClock.Stop(t)
	}
	b.lineupClock.SetElapsed(0, t)
	_ = b.lineupClock.Start(t)

	j.queue()
	j.period.bout.series.updates.QueueUpdate(BoutID(b.id), false)
	return nil
}

// Start begins the jam: the jam clock restarts armed at 2 minutes, the jam is
// marked started, and the parent period starts too if it is not yet running.
func (j *Jam) Start(t time.Time) error {
	if j.hasStarted {
		return fault.Rule("the Jam has already started")
	}
	b := j.period.bout
	if b.jamClock.IsRunning() {
		_ = b.jamClock.Stop(t)
	}
	b.jamClock.SetElapsed(0, t)
	b.jamClock.SetAlarm(jamPreset)
	if err := b.jamClock.Start(t); err != nil {
		return err
	}
	if b.lineupClock.IsRunning() {
		_ = b.lineupClock.Stop(t)
	}

	startAt := t
	j.start = &startAt
	j.hasStarted = true
	j.queue()

	if !b.periodClock.IsRunning() {
		if err := j.period.Start(t); err != nil {
			return err
		}
	} else {
		b.series.updates.QueueUpdate(BoutID(b.id), false)
	}
	return nil
}

// Stop ends the jam, then seeds the next jam and puts it straight into
// lineup.
func (j *Jam) Stop(t time.Time, reason *StopReason) error {
	if !j.hasStarted {
		return fault.Rule("the Jam has not started")
	}
	if j.stop != nil {
		return fault.Rule("the Jam has already stopped")
	}
	b := j.period.bout
	if b.jamClock.IsRunning() {
		_ = b.jamClock.Stop(t)
	}
	stopAt := t
	j.stop = &stopAt
	j.stopReason = reason
	j.queue()

	next := j.period.AddJam()
	return next.Lineup(t)
}

// SetStopReason corrects the recorded reason after the fact.
func (j *Jam) SetStopReason(reason *StopReason) error {
	if j.stop == nil && reason != nil {
		return fault.Rule("the Jam has not stopped")
	}
	j.stopReason = reason
	j.queue()
	return nil
}

func (j *Jam) queue() {
	j.period.bout.series.updates.QueueUpdate(j.id(), false)
}

func (j *Jam) id() ID {
	return JamID(j.period.bout.id, j.period.index, j.index)
}

type jamJSON struct {
	StartTimestamp *string     `json:"startTimestamp"`
	StopTimestamp  *string     `json:"stopTimestamp"`
	StopReason     *StopReason `json:"stopReason"`
	Home           teamJamJSON `json:"home"`
	Away           teamJamJSON `json:"away"`
}

func (j *Jam) Encode() any {
	return jamJSON{
		StartTimestamp: encodeInstant(j.start),
		StopTimestamp:  encodeInstant(j.stop),
		StopReason:     j.stopReason,
		Home:           j.home.encode(),
		Away:           j.away.encode(),
	}
}
