package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/trackside/derby-scoreboard-backend/internal/clock"
	"github.com/trackside/derby-scoreboard-backend/internal/fault"
)

// Period is one half of a bout. It owns its jams (never fewer than one) and
// its pre-game time-to-derby countdown; the period clock itself is the bout's.
type Period struct {
	bout  *Bout
	id    uuid.UUID
	index int

	timeToDerby *clock.Clock
	hasStarted  bool
	jams        []*Jam
}

func newPeriod(b *Bout, index int) *Period {
	p := &Period{
		bout:        b,
		id:          uuid.New(),
		index:       index,
		timeToDerby: clock.New(),
	}
	if b.series.alarm != nil {
		id := PeriodID(b.id, index)
		p.timeToDerby.SetCallback(func(at time.Time) { b.series.alarm(id, at) })
	}
	p.jams = []*Jam{newJam(p, 0)}
	return p
}

func (p *Period) HasStarted() bool { return p.hasStarted }

// SetTimeToDerby resets the pre-game countdown to the given duration and
// starts it at t.
func (p *Period) SetTimeToDerby(t time.Time, d time.Duration) error {
	if d <= 0 {
		return fault.Bounds("time to derby must be positive")
	}
	if p.timeToDerby.IsRunning() {
		if err := p.timeToDerby.Stop(t); err != nil {
			return err
		}
	}
	p.timeToDerby.SetElapsed(0, t)
	p.timeToDerby.SetAlarm(d)
	if err := p.timeToDerby.Start(t); err != nil {
		return err
	}
	p.queue()
	return nil
}

// StartTimeToDerby resumes the pre-game countdown.
func (p *Period) StartTimeToDerby(t time.Time) error {
	if err := p.timeToDerby.Start(t); err != nil {
		return err
	}
	p.queue()
	return nil
}

// Start begins the period: the period clock runs, the time-to-derby countdown
// stops, and the period is marked as started. The first start of a period
// resets the bout-shared clock to a fresh 30-minute countdown; later starts
// resume it where a stoppage left it.
func (p *Period) Start(t time.Time) error {
	pc := p.bout.periodClock
	if !p.hasStarted {
		if pc.IsRunning() {
			_ = pc.Stop(t)
		}
		pc.SetElapsed(0, t)
		pc.SetAlarm(periodPreset)
	}
	if err := pc.Start(t); err != nil {
		return err
	}
	if p.timeToDerby.IsRunning() {
		_ = p.timeToDerby.Stop(t)
	}
	p.hasStarted = true
	p.queue()
	p.bout.series.updates.QueueUpdate(BoutID(p.bout.id), false)
	return nil
}

// Stop halts the period clock.
func (p *Period) Stop(t time.Time) error {
	if err := p.bout.periodClock.Stop(t); err != nil {
		return err
	}
	p.queue()
	p.bout.series.updates.QueueUpdate(BoutID(p.bout.id), false)
	return nil
}

// AddJam appends an empty jam.
func (p *Period) AddJam() *Jam {
	j := newJam(p, len(p.jams))
	p.jams = append(p.jams, j)
	p.queue()
	return j
}

// DeleteJam removes the jam at index i, reseeding one empty jam when the list
// would become empty.
func (p *Period) DeleteJam(i int) error {
	if i < 0 || i >= len(p.jams) {
		return fault.Bounds("no Jam %d in this Period", i)
	}
	p.jams = append(p.jams[:i], p.jams[i+1:]...)
	for n, j := range p.jams {
		j.index = n
	}
	if len(p.jams) == 0 {
		p.jams = []*Jam{newJam(p, 0)}
	}
	p.queue()
	p.bout.series.updates.QueueUpdate(BoutID(p.bout.id), false)
	return nil
}

// Purge drops trailing jams that never started, always leaving at least one.
func (p *Period) Purge() {
	n := len(p.jams)
	for n > 1 && !p.jams[n-1].hasStarted {
		n--
	}
	if n == len(p.jams) {
		return
	}
	p.jams = p.jams[:n]
	p.queue()
	p.bout.series.updates.QueueUpdate(BoutID(p.bout.id), false)
}

func (p *Period) Jam(i int) (*Jam, error) {
	if i < 0 || i >= len(p.jams) {
		return nil, fault.Bounds("no Jam %d in this Period", i)
	}
	return p.jams[i], nil
}

// CurrentJamNum is the index of the last started jam, or 0 when none started.
// Derived, not stored.
func (p *Period) CurrentJamNum() int {
	for i := len(p.jams) - 1; i >= 0; i-- {
		if p.jams[i].hasStarted {
			return i
		}
	}
	return 0
}

func (p *Period) queue() {
	p.bout.series.updates.QueueUpdate(PeriodID(p.bout.id, p.index), false)
}

type periodJSON struct {
	UUID        string         `json:"uuid"`
	TimeToDerby clock.Snapshot `json:"timeToDerby"`
	HasStarted  bool           `json:"hasStarted"`
	Clock       clock.Snapshot `json:"clock"`
	JamCount    int            `json:"jamCount"`
}

func (p *Period) Encode(now time.Time) any {
	return periodJSON{
		UUID:        p.id.String(),
		TimeToDerby: p.timeToDerby.Snapshot(now),
		HasStarted:  p.hasStarted,
		Clock:       p.bout.periodClock.Snapshot(now),
		JamCount:    len(p.jams),
	}
}
