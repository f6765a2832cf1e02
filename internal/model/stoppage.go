package model

import (
	"time"

	"github.com/trackside/derby-scoreboard-backend/internal/fault"
)

// Caller identifies who owns a clock stoppage.
type Caller string

const (
	CallerHome     Caller = "home"
	CallerAway     Caller = "away"
	CallerOfficial Caller = "official"
)

// ParseCaller validates a wire-side stoppage source.
func ParseCaller(s string) (Caller, error) {
	switch c := Caller(s); c {
	case CallerHome, CallerAway, CallerOfficial:
		return c, nil
	default:
		return "", fault.BadRequest("unknown stoppage source %q", s)
	}
}

// Stoppage is one clock-stop episode: start/stop instants plus who called it
// and, for official reviews, the outcome.
type Stoppage struct {
	start *time.Time
	stop  *time.Time

	caller           *Caller
	isOfficialReview bool
	isRetained       bool
	notes            string
}

func (s *Stoppage) Caller() *Caller        { return s.caller }
func (s *Stoppage) IsOfficialReview() bool { return s.isOfficialReview }
func (s *Stoppage) IsRetained() bool       { return s.isRetained }
func (s *Stoppage) Notes() string          { return s.notes }

// TeamStoppages is one team's ledger: remaining allowances plus the
// stoppages charged to it.
type TeamStoppages struct {
	timeoutsRemaining        int
	officialReviewsRemaining int
	stoppages                []*Stoppage
}

func (ts *TeamStoppages) TimeoutsRemaining() int        { return ts.timeoutsRemaining }
func (ts *TeamStoppages) OfficialReviewsRemaining() int { return ts.officialReviewsRemaining }

// BoutStoppages is the bout's stoppage ledger and the state machine for the
// single active stoppage.
type BoutStoppages struct {
	bout *Bout

	home     *TeamStoppages
	away     *TeamStoppages
	official []*Stoppage
	active   *Stoppage
}

func newBoutStoppages(b *Bout) *BoutStoppages {
	return &BoutStoppages{
		bout: b,
		home: &TeamStoppages{timeoutsRemaining: 3, officialReviewsRemaining: 1},
		away: &TeamStoppages{timeoutsRemaining: 3, officialReviewsRemaining: 1},
	}
}

func (bs *BoutStoppages) Team(side TeamSide) *TeamStoppages {
	if side == TeamAway {
		return bs.away
	}
	return bs.home
}

func (bs *BoutStoppages) Active() *Stoppage { return bs.active }

// Call opens a stoppage: the period clock halts and the timeout clock starts
// counting up from zero. Who gets charged is decided later by Assign.
func (bs *BoutStoppages) Call(t time.Time) error {
	if bs.active != nil {
		return fault.Rule("a clock stoppage is already in progress")
	}
	startAt := t
	bs.active = &Stoppage{start: &startAt}

	b := bs.bout
	if b.periodClock.IsRunning() {
		_ = b.periodClock.Stop(t)
	}
	if b.timeoutClock.IsRunning() {
		_ = b.timeoutClock.Stop(t)
	}
	b.timeoutClock.SetElapsed(0, t)
	b.timeoutClock.SetAlarm(0)
	if err := b.timeoutClock.Start(t); err != nil {
		return err
	}
	bs.queue()
	return nil
}

// Assign charges the active stoppage to a source, moving it between ledgers
// on re-assignment. A team timeout arms the one-minute alarm; an official
// review may never belong to an official.
func (bs *BoutStoppages) Assign(source Caller) error {
	s := bs.active
	if s == nil {
		return fault.Rule("no clock stoppage is in progress")
	}
	if source == CallerOfficial {
		if s.isOfficialReview {
			return fault.Rule("an Official Review must be assigned to a team")
		}
		bs.unassign(s)
		bs.official = append(bs.official, s)
	} else {
		ledger := bs.teamLedger(source)
		if s.isOfficialReview {
			if ledger.officialReviewsRemaining <= 0 {
				return fault.Rule("this team has no remaining Official Reviews")
			}
			bs.unassign(s)
			ledger.officialReviewsRemaining--
		} else {
			if ledger.timeoutsRemaining <= 0 {
				return fault.Rule("this team has no remaining Timeouts")
			}
			bs.unassign(s)
			ledger.timeoutsRemaining--
			bs.bout.timeoutClock.SetAlarm(teamTimeoutPreset)
		}
		ledger.stoppages = append(ledger.stoppages, s)
	}
	caller := source
	s.caller = &caller
	bs.queue()
	return nil
}

// ConvertToOfficialReview turns an active team timeout into an official
// review: the timeout is refunded, a review is charged, and the one-minute
// alarm clears.
func (bs *BoutStoppages) ConvertToOfficialReview() error {
	s := bs.active
	if s == nil {
		return fault.Rule("no clock stoppage is in progress")
	}
	if s.isOfficialReview {
		return fault.Rule("the stoppage is already an Official Review")
	}
	if s.caller != nil && *s.caller == CallerOfficial {
		return fault.Rule("an Official Timeout cannot become an Official Review")
	}
	if s.caller != nil {
		ledger := bs.teamLedger(*s.caller)
		if ledger.officialReviewsRemaining <= 0 {
			return fault.Rule("this team has no remaining Official Reviews")
		}
		ledger.timeoutsRemaining++
		ledger.officialReviewsRemaining--
		bs.bout.timeoutClock.SetAlarm(0)
	}
	s.isOfficialReview = true
	bs.queue()
	return nil
}

// ConvertToTimeout turns an active official review back into a team timeout,
// refunding the review, charging a timeout, and re-arming the alarm.
func (bs *BoutStoppages) ConvertToTimeout() error {
	s := bs.active
	if s == nil {
		return fault.Rule("no clock stoppage is in progress")
	}
	if !s.isOfficialReview {
		return fault.Rule("the stoppage is not an Official Review")
	}
	if s.caller != nil {
		ledger := bs.teamLedger(*s.caller)
		if ledger.timeoutsRemaining <= 0 {
			return fault.Rule("this team has no remaining Timeouts")
		}
		ledger.officialReviewsRemaining++
		ledger.timeoutsRemaining--
		bs.bout.timeoutClock.SetAlarm(teamTimeoutPreset)
	}
	s.isOfficialReview = false
	bs.queue()
	return nil
}

// Resolve records the outcome of the active official review.
func (bs *BoutStoppages) Resolve(retained bool, notes string) error {
	s := bs.active
	if s == nil {
		return fault.Rule("no clock stoppage is in progress")
	}
	if !s.isOfficialReview {
		return fault.Rule("the stoppage is not an Official Review")
	}
	s.isRetained = retained
	s.notes = notes
	bs.queue()
	return nil
}

// End closes the active stoppage and halts the timeout clock. An official
// review must have been assigned to a team first.
func (bs *BoutStoppages) End(t time.Time) error {
	s := bs.active
	if s == nil {
		return fault.Rule("no clock stoppage is in progress")
	}
	if s.caller == nil {
		return fault.Rule("the stoppage has not been assigned")
	}
	if s.isOfficialReview && *s.caller == CallerOfficial {
		return fault.Rule("an Official Review must be assigned to a team")
	}
	stopAt := t
	s.stop = &stopAt
	bs.active = nil
	if bs.bout.timeoutClock.IsRunning() {
		_ = bs.bout.timeoutClock.Stop(t)
	}
	bs.queue()
	return nil
}

// unassign refunds whatever the stoppage was previously charged as and
// removes it from its old ledger.
func (bs *BoutStoppages) unassign(s *Stoppage) {
	if s.caller == nil {
		return
	}
	switch *s.caller {
	case CallerOfficial:
		bs.official = removeStoppage(bs.official, s)
	default:
		ledger := bs.teamLedger(*s.caller)
		ledger.stoppages = removeStoppage(ledger.stoppages, s)
		if s.isOfficialReview {
			ledger.officialReviewsRemaining++
		} else {
			ledger.timeoutsRemaining++
		}
	}
	s.caller = nil
}

func (bs *BoutStoppages) teamLedger(c Caller) *TeamStoppages {
	if c == CallerAway {
		return bs.away
	}
	return bs.home
}

func removeStoppage(list []*Stoppage, s *Stoppage) []*Stoppage {
	for i, cur := range list {
		if cur == s {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func (bs *BoutStoppages) queue() {
	bs.bout.series.updates.QueueUpdate(BoutID(bs.bout.id), false)
}

type allowanceJSON struct {
	Timeouts        int `json:"timeouts"`
	OfficialReviews int `json:"officialReviews"`
}

type stoppageJSON struct {
	StartTimestamp   *string `json:"startTimestamp"`
	StopTimestamp    *string `json:"stopTimestamp"`
	Caller           *Caller `json:"caller"`
	IsOfficialReview bool    `json:"isOfficialReview"`
	IsRetained       bool    `json:"isRetained"`
	Notes            string  `json:"notes"`
}

type timeoutsJSON struct {
	Remaining map[TeamSide]allowanceJSON `json:"remaining"`
	Ongoing   *stoppageJSON              `json:"ongoing"`
}

func (s *Stoppage) encode() *stoppageJSON {
	return &stoppageJSON{
		StartTimestamp:   encodeInstant(s.start),
		StopTimestamp:    encodeInstant(s.stop),
		Caller:           s.caller,
		IsOfficialReview: s.isOfficialReview,
		IsRetained:       s.isRetained,
		Notes:            s.notes,
	}
}

func (bs *BoutStoppages) encode() timeoutsJSON {
	out := timeoutsJSON{
		Remaining: map[TeamSide]allowanceJSON{
			TeamHome: {Timeouts: bs.home.timeoutsRemaining, OfficialReviews: bs.home.officialReviewsRemaining},
			TeamAway: {Timeouts: bs.away.timeoutsRemaining, OfficialReviews: bs.away.officialReviewsRemaining},
		},
	}
	if bs.active != nil {
		out.Ongoing = bs.active.encode()
	}
	return out
}
