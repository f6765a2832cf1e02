package clock

import (
	"sync"
	"time"

	"github.com/trackside/derby-scoreboard-backend/internal/fault"
)

// Clock is a count-up stopwatch with an optional countdown alarm. When the
// alarm duration elapses on a running clock, the registered callback fires at
// most once per arming.
//
// Every other piece of game state lives on the hub goroutine, but the alarm
// task is its own goroutine, so the clock carries its own lock.
type Clock struct {
	mu       sync.Mutex
	start    *time.Time
	stop     *time.Time
	elapsed  time.Duration
	alarm    time.Duration // <= 0 means no alarm
	callback func(time.Time)

	// gen invalidates in-flight alarm tasks: any reset bumps it, and a task
	// that wakes with a stale gen exits without firing.
	gen uint64
}

// New returns a stopped clock with no alarm.
func New() *Clock { return &Clock{} }

// NewCountdown returns a stopped clock pre-armed with the given alarm.
func NewCountdown(alarm time.Duration) *Clock { return &Clock{alarm: alarm} }

// Start begins (or resumes) the clock at t. A resumption folds the previous
// lap into elapsed. Fails when the clock is already running.
func (c *Clock) Start(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runningLocked() {
		return fault.Rule("the Clock is already running")
	}
	if c.start != nil && c.stop != nil {
		c.elapsed += c.stop.Sub(*c.start)
	}
	startAt := t
	c.start = &startAt
	c.stop = nil
	if c.alarm > 0 {
		c.armLocked()
	}
	return nil
}

// Stop halts the clock at t and cancels any pending alarm task. Fails when
// the clock is not running.
func (c *Clock) Stop(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.runningLocked() {
		return fault.Rule("the Clock is not running")
	}
	stopAt := t
	c.stop = &stopAt
	c.gen++
	return nil
}

func (c *Clock) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runningLocked()
}

// Elapsed reports total accumulated time. now is only consulted while the
// clock is running.
func (c *Clock) Elapsed(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsedLocked(now)
}

// SetElapsed replaces the accumulated time. A running clock's current lap
// restarts at now; a stopped clock's previous lap is discarded so Elapsed
// reports exactly d. Restarts the alarm task when running.
func (c *Clock) SetElapsed(d time.Duration, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.elapsed = d
	if c.runningLocked() {
		startAt := now
		c.start = &startAt
		if c.alarm > 0 {
			c.armLocked()
		}
		return
	}
	c.start = nil
	c.stop = nil
	c.gen++
}

// SetAlarm replaces the alarm duration; non-positive clears it. Restarts the
// alarm task when the clock is running.
func (c *Clock) SetAlarm(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d <= 0 {
		c.alarm = 0
		c.gen++
		return
	}
	c.alarm = d
	if c.runningLocked() {
		c.armLocked()
	} else {
		c.gen++
	}
}

// Alarm returns the armed alarm duration and whether one is set.
func (c *Clock) Alarm() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alarm, c.alarm > 0
}

// Remaining reports alarm minus elapsed; ok is false when no alarm is set.
func (c *Clock) Remaining(now time.Time) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.alarm <= 0 {
		return 0, false
	}
	return c.alarm - c.elapsedLocked(now), true
}

// SetCallback registers the single alarm callback, replacing any previous one.
func (c *Clock) SetCallback(fn func(time.Time)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callback = fn
}

func (c *Clock) runningLocked() bool {
	return c.start != nil && c.stop == nil
}

func (c *Clock) elapsedLocked(now time.Time) time.Duration {
	switch {
	case c.start != nil && c.stop != nil:
		return c.elapsed + c.stop.Sub(*c.start)
	case c.runningLocked():
		return c.elapsed + now.Sub(*c.start)
	default:
		return c.elapsed
	}
}

// armLocked cancels any pending alarm task and spawns a fresh one.
func (c *Clock) armLocked() {
	c.gen++
	go c.alarmTask(c.gen)
}

// alarmTask sleeps until the alarm should fire, re-reading remaining on every
// wake so concurrent SetElapsed/SetAlarm calls are tolerated. Stale tasks
// (gen mismatch) exit without firing.
func (c *Clock) alarmTask(gen uint64) {
	for {
		c.mu.Lock()
		if gen != c.gen || c.alarm <= 0 || !c.runningLocked() {
			c.mu.Unlock()
			return
		}
		now := time.Now()
		rem := c.alarm - c.elapsedLocked(now)
		if rem <= 0 {
			// Consume the arming so no later task can double-fire.
			c.gen++
			fn := c.callback
			c.mu.Unlock()
			if fn != nil {
				fn(now)
			}
			return
		}
		c.mu.Unlock()
		time.Sleep(rem)
	}
}

// Snapshot is the wire shape of a clock: milliseconds elapsed, milliseconds
// of alarm (null when unset), and whether it is running.
type Snapshot struct {
	Elapsed   int64  `json:"elapsed"`
	Alarm     *int64 `json:"alarm"`
	IsRunning bool   `json:"isRunning"`
}

func (c *Clock) Snapshot(now time.Time) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		Elapsed:   c.elapsedLocked(now).Milliseconds(),
		IsRunning: c.runningLocked(),
	}
	if c.alarm > 0 {
		ms := c.alarm.Milliseconds()
		snap.Alarm = &ms
	}
	return snap
}
