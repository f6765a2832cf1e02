package model

import (
	"errors"
	"testing"
	"time"

	"github.com/trackside/derby-scoreboard-backend/internal/fault"
)

// recorder collects queued update ids so tests can assert what a mutation
// touched without a real broadcaster.
type recorder struct {
	ids []ID
}

func (r *recorder) QueueUpdate(id ID, sendNow bool) { r.ids = append(r.ids, id) }

func (r *recorder) contains(id ID) bool {
	for _, got := range r.ids {
		if got == id {
			return true
		}
	}
	return false
}

func newTestSeries() (*Series, *recorder) {
	rec := &recorder{}
	return NewSeries(rec, nil), rec
}

func ts(sec int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, sec, 0, time.UTC)
}

func wantKind(t *testing.T, err error, kind fault.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := fault.KindOf(err); got != kind {
		t.Fatalf("error kind: got %s (%v), want %s", got, err, kind)
	}
}

func TestBout_NewBoutHasOnePeriodOneJam(t *testing.T) {
	s, _ := newTestSeries()
	b := s.AddBout()

	if b.PeriodCount() != 1 {
		t.Fatalf("new bout periods: got %d, want 1", b.PeriodCount())
	}
	p := b.CurrentPeriod()
	if len(p.jams) != 1 {
		t.Fatalf("new period jams: got %d, want 1", len(p.jams))
	}
	if p.CurrentJamNum() != 0 {
		t.Fatalf("current jam num: got %d, want 0", p.CurrentJamNum())
	}
}

func TestBout_AddPeriodCapsAtTwo(t *testing.T) {
	s, _ := newTestSeries()
	b := s.AddBout()

	if _, err := b.AddPeriod(); err != nil {
		t.Fatalf("second period: %v", err)
	}
	_, err := b.AddPeriod()
	wantKind(t, err, fault.KindRule)
	if b.PeriodCount() != 2 {
		t.Fatalf("period count after failed add: got %d, want 2", b.PeriodCount())
	}
}

func TestBout_AddPeriodPurgesUnstartedJams(t *testing.T) {
	s, _ := newTestSeries()
	b := s.AddBout()
	p := b.CurrentPeriod()

	if err := p.jams[0].Start(ts(0)); err != nil {
		t.Fatalf("start jam: %v", err)
	}
	p.AddJam()
	p.AddJam()

	if _, err := b.AddPeriod(); err != nil {
		t.Fatalf("add period: %v", err)
	}
	if got := len(p.jams); got != 1 {
		t.Fatalf("jams after purge: got %d, want 1", got)
	}
}

func TestPeriod_DeleteJamNeverLeavesEmptyList(t *testing.T) {
	s, _ := newTestSeries()
	p := s.AddBout().CurrentPeriod()

	if err := p.DeleteJam(0); err != nil {
		t.Fatalf("delete jam: %v", err)
	}
	if len(p.jams) != 1 {
		t.Fatalf("jams after deleting last: got %d, want 1", len(p.jams))
	}

	err := p.DeleteJam(5)
	wantKind(t, err, fault.KindBounds)
}

func TestPeriod_StartStopsTimeToDerby(t *testing.T) {
	s, _ := newTestSeries()
	p := s.AddBout().CurrentPeriod()

	if err := p.SetTimeToDerby(ts(0), 10*time.Minute); err != nil {
		t.Fatalf("set time to derby: %v", err)
	}
	if !p.timeToDerby.IsRunning() {
		t.Fatalf("time to derby should be running")
	}
	if err := p.StartTimeToDerby(ts(1)); err == nil {
		t.Fatalf("expected error starting an already-running countdown")
	}

	if err := p.Start(ts(2)); err != nil {
		t.Fatalf("start period: %v", err)
	}
	if p.timeToDerby.IsRunning() {
		t.Fatalf("time to derby should stop when the period starts")
	}
	if !p.hasStarted {
		t.Fatalf("period should be marked started")
	}
	if err := p.Start(ts(3)); err == nil {
		t.Fatalf("expected error starting a running period")
	}
}

func TestPeriod_SecondPeriodGetsFreshClock(t *testing.T) {
	s, _ := newTestSeries()
	b := s.AddBout()
	p1 := b.CurrentPeriod()

	if err := p1.Start(ts(0)); err != nil {
		t.Fatalf("start period 1: %v", err)
	}
	if err := p1.Stop(ts(1800)); err != nil {
		t.Fatalf("stop period 1: %v", err)
	}

	p2, err := b.AddPeriod()
	if err != nil {
		t.Fatalf("add period 2: %v", err)
	}
	if err := p2.Start(ts(2700)); err != nil {
		t.Fatalf("start period 2: %v", err)
	}

	if got := b.periodClock.Elapsed(ts(2700)); got != 0 {
		t.Fatalf("period 2 clock elapsed at start: got %v, want 0", got)
	}
	rem, ok := b.periodClock.Remaining(ts(2700))
	if !ok || rem != 30*time.Minute {
		t.Fatalf("period 2 clock remaining: got %v ok=%v, want 30m", rem, ok)
	}

	// Resuming after a stoppage keeps the accumulated time.
	if err := p2.Stop(ts(2760)); err != nil {
		t.Fatalf("stop period 2: %v", err)
	}
	if err := p2.Start(ts(2900)); err != nil {
		t.Fatalf("resume period 2: %v", err)
	}
	if got := b.periodClock.Elapsed(ts(2900)); got != time.Minute {
		t.Fatalf("period 2 clock after resume: got %v, want 1m", got)
	}
}

func TestJam_StartCascadesToPeriod(t *testing.T) {
	s, _ := newTestSeries()
	b := s.AddBout()
	p := b.CurrentPeriod()

	if err := p.jams[0].Start(ts(0)); err != nil {
		t.Fatalf("start jam: %v", err)
	}
	if !p.hasStarted {
		t.Fatalf("period should start with the first jam")
	}
	if !b.periodClock.IsRunning() {
		t.Fatalf("period clock should be running")
	}
	if !b.jamClock.IsRunning() {
		t.Fatalf("jam clock should be running")
	}
	if alarm, ok := b.jamClock.Alarm(); !ok || alarm != 2*time.Minute {
		t.Fatalf("jam clock alarm: got %v ok=%v, want 2m", alarm, ok)
	}
}

func TestJam_LineupThenStart(t *testing.T) {
	s, _ := newTestSeries()
	b := s.AddBout()
	j := b.CurrentPeriod().jams[0]

	if err := j.Lineup(ts(0)); err != nil {
		t.Fatalf("lineup: %v", err)
	}
	if alarm, _ := b.jamClock.Alarm(); alarm != 30*time.Second {
		t.Fatalf("lineup alarm: got %v, want 30s", alarm)
	}

	if err := j.Start(ts(10)); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := b.jamClock.Elapsed(ts(10)); got != 0 {
		t.Fatalf("jam clock elapsed should reset on start, got %v", got)
	}
	if alarm, _ := b.jamClock.Alarm(); alarm != 2*time.Minute {
		t.Fatalf("jam alarm: got %v, want 2m", alarm)
	}

	if err := j.Lineup(ts(11)); err == nil {
		t.Fatalf("expected error lining up a started jam")
	}
}

func TestJam_StopSeedsNextJamInLineup(t *testing.T) {
	s, _ := newTestSeries()
	b := s.AddBout()
	p := b.CurrentPeriod()
	j := p.jams[0]

	if err := j.Stop(ts(0), nil); err == nil {
		t.Fatalf("expected error stopping a jam that never started")
	}
	if err := j.Start(ts(0)); err != nil {
		t.Fatalf("start: %v", err)
	}

	reason := StopReasonCalled
	if err := j.Stop(ts(90), &reason); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if j.stop == nil || j.stopReason == nil || *j.stopReason != StopReasonCalled {
		t.Fatalf("stop fields not recorded: %+v", j)
	}
	if len(p.jams) != 2 {
		t.Fatalf("expected a fresh jam after stop, got %d", len(p.jams))
	}
	if alarm, _ := b.jamClock.Alarm(); alarm != 30*time.Second {
		t.Fatalf("next jam should be in lineup, alarm %v", alarm)
	}
	if err := j.Stop(ts(91), nil); err == nil {
		t.Fatalf("expected error stopping twice")
	}
}

func TestJam_SetStopReasonRequiresStop(t *testing.T) {
	s, _ := newTestSeries()
	j := s.AddBout().CurrentPeriod().jams[0]

	reason := StopReasonInjury
	err := j.SetStopReason(&reason)
	wantKind(t, err, fault.KindRule)
}

func TestTeamJam_FirstTripEarnsLead(t *testing.T) {
	s, _ := newTestSeries()
	j := s.AddBout().CurrentPeriod().jams[0]
	home := j.Team(TeamHome)

	if err := home.ApplyTrip(0, 0, ts(0), true); err != nil {
		t.Fatalf("initial pass: %v", err)
	}
	if !home.lead || home.lost {
		t.Fatalf("after initial pass: lead=%v lost=%v, want lead and not lost", home.lead, home.lost)
	}
	if j.Team(TeamAway).lead {
		t.Fatalf("away should not have lead")
	}
	if len(home.trips) != 1 || home.trips[0].Points != 0 {
		t.Fatalf("trips: %+v", home.trips)
	}
}

func TestTeamJam_LeadExclusive(t *testing.T) {
	s, _ := newTestSeries()
	j := s.AddBout().CurrentPeriod().jams[0]
	if err := j.Team(TeamHome).ApplyTrip(0, 0, ts(0), true); err != nil {
		t.Fatalf("setup: %v", err)
	}

	err := j.Team(TeamAway).SetLead(true)
	wantKind(t, err, fault.KindRule)
	if err.Error() != "There is already a lead Jammer for this Jam" {
		t.Fatalf("unexpected detail: %q", err.Error())
	}
	if j.Team(TeamAway).lead {
		t.Fatalf("away lead should be unchanged")
	}
}

func TestTeamJam_StarPassForcesLost(t *testing.T) {
	s, _ := newTestSeries()
	home := s.AddBout().CurrentPeriod().jams[0].Team(TeamHome)

	two := 2
	if err := home.SetStarPass(&two); err != nil {
		t.Fatalf("set star pass: %v", err)
	}
	if home.starPass == nil || *home.starPass != 2 || !home.lost {
		t.Fatalf("after star pass: starPass=%v lost=%v", home.starPass, home.lost)
	}

	err := home.SetLead(true)
	wantKind(t, err, fault.KindRule)
}

func TestTeamJam_TripValidation(t *testing.T) {
	s, _ := newTestSeries()
	home := s.AddBout().CurrentPeriod().jams[0].Team(TeamHome)

	cases := []struct {
		name   string
		index  int
		points int
		kind   fault.Kind
	}{
		{"points above four", 0, 5, fault.KindBounds},
		{"negative points", 0, -1, fault.KindBounds},
		{"index past append slot", 3, 0, fault.KindBounds},
		{"negative index", -1, 0, fault.KindBounds},
		{"initial pass with points", 0, 3, fault.KindRule},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := home.ApplyTrip(tc.index, tc.points, ts(0), true)
			wantKind(t, err, tc.kind)
			if len(home.trips) != 0 {
				t.Fatalf("trip list should be unchanged, got %+v", home.trips)
			}
		})
	}
}

func TestTeamJam_TripEditVsAppend(t *testing.T) {
	s, _ := newTestSeries()
	home := s.AddBout().CurrentPeriod().jams[0].Team(TeamHome)

	if err := home.ApplyTrip(0, 0, ts(0), true); err != nil {
		t.Fatalf("trip 0: %v", err)
	}
	if err := home.ApplyTrip(1, 4, ts(30), false); err != nil {
		t.Fatalf("trip 1: %v", err)
	}
	// Replace points on trip 1; timestamp must survive.
	if err := home.ApplyTrip(1, 3, ts(60), false); err != nil {
		t.Fatalf("edit trip 1: %v", err)
	}
	if home.trips[1].Points != 3 || !home.trips[1].Timestamp.Equal(ts(30)) {
		t.Fatalf("edited trip: %+v", home.trips[1])
	}
	if home.Score() != 3 {
		t.Fatalf("score: got %d, want 3", home.Score())
	}
}

func TestTeamJam_DeleteTripClearsDanglingStarPass(t *testing.T) {
	s, _ := newTestSeries()
	home := s.AddBout().CurrentPeriod().jams[0].Team(TeamHome)

	if err := home.ApplyTrip(0, 0, ts(0), true); err != nil {
		t.Fatalf("trip 0: %v", err)
	}
	if err := home.ApplyTrip(1, 2, ts(10), false); err != nil {
		t.Fatalf("trip 1: %v", err)
	}
	one := 1
	if err := home.SetStarPass(&one); err != nil {
		t.Fatalf("star pass: %v", err)
	}

	if err := home.DeleteTrip(1); err != nil {
		t.Fatalf("delete trip: %v", err)
	}
	if home.starPass != nil {
		t.Fatalf("star pass should clear when it points past the end")
	}

	err := home.DeleteTrip(7)
	wantKind(t, err, fault.KindBounds)
}

func TestSeries_DeleteBoutRestoresShape(t *testing.T) {
	s, rec := newTestSeries()
	before := encodeToString(t, s.Encode())

	b := s.AddBout()
	if err := s.DeleteBout(b.UUID()); err != nil {
		t.Fatalf("delete bout: %v", err)
	}
	after := encodeToString(t, s.Encode())
	if before != after {
		t.Fatalf("series shape changed: %s != %s", before, after)
	}
	if !rec.contains(BoutID(b.UUID())) {
		t.Fatalf("deleted bout id should be queued as a tombstone")
	}

	err := s.DeleteBout(b.UUID())
	wantKind(t, err, fault.KindBadRequest)
}

func TestStoppage_TeamTimeoutLifecycle(t *testing.T) {
	s, _ := newTestSeries()
	b := s.AddBout()
	bs := b.Stoppages()

	if err := b.CurrentPeriod().Start(ts(0)); err != nil {
		t.Fatalf("start period: %v", err)
	}
	if err := bs.Call(ts(10)); err != nil {
		t.Fatalf("call: %v", err)
	}
	if b.periodClock.IsRunning() {
		t.Fatalf("period clock should stop on a stoppage")
	}
	if !b.timeoutClock.IsRunning() {
		t.Fatalf("timeout clock should run during a stoppage")
	}
	if err := bs.Call(ts(11)); err == nil {
		t.Fatalf("expected error calling a second stoppage")
	}

	if err := bs.Assign(CallerHome); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got := bs.Team(TeamHome).TimeoutsRemaining(); got != 2 {
		t.Fatalf("home timeouts remaining: got %d, want 2", got)
	}
	if alarm, ok := b.timeoutClock.Alarm(); !ok || alarm != time.Minute {
		t.Fatalf("timeout alarm: got %v ok=%v, want 1m", alarm, ok)
	}

	if err := bs.End(ts(70)); err != nil {
		t.Fatalf("end: %v", err)
	}
	if bs.Active() != nil {
		t.Fatalf("active stoppage should clear on end")
	}
	if b.timeoutClock.IsRunning() {
		t.Fatalf("timeout clock should stop on end")
	}
}

func TestStoppage_ReassignRefundsOldLedger(t *testing.T) {
	s, _ := newTestSeries()
	bs := s.AddBout().Stoppages()

	if err := bs.Call(ts(0)); err != nil {
		t.Fatalf("call: %v", err)
	}
	if err := bs.Assign(CallerHome); err != nil {
		t.Fatalf("assign home: %v", err)
	}
	if err := bs.Assign(CallerAway); err != nil {
		t.Fatalf("assign away: %v", err)
	}

	if got := bs.Team(TeamHome).TimeoutsRemaining(); got != 3 {
		t.Fatalf("home should be refunded, got %d", got)
	}
	if got := bs.Team(TeamAway).TimeoutsRemaining(); got != 2 {
		t.Fatalf("away should be charged, got %d", got)
	}
	if len(bs.Team(TeamHome).stoppages) != 0 || len(bs.Team(TeamAway).stoppages) != 1 {
		t.Fatalf("stoppage should move ledgers")
	}
}

func TestStoppage_TimeoutExhaustion(t *testing.T) {
	s, _ := newTestSeries()
	bs := s.AddBout().Stoppages()
	bs.home.timeoutsRemaining = 0

	if err := bs.Call(ts(0)); err != nil {
		t.Fatalf("call: %v", err)
	}
	err := bs.Assign(CallerHome)
	wantKind(t, err, fault.KindRule)
	if err.Error() != "this team has no remaining Timeouts" {
		t.Fatalf("unexpected detail: %q", err.Error())
	}
}

func TestStoppage_ConvertTimeoutAndReview(t *testing.T) {
	s, _ := newTestSeries()
	b := s.AddBout()
	bs := b.Stoppages()

	if err := bs.Call(ts(0)); err != nil {
		t.Fatalf("call: %v", err)
	}
	if err := bs.Assign(CallerHome); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if err := bs.ConvertToOfficialReview(); err != nil {
		t.Fatalf("convert to review: %v", err)
	}
	home := bs.Team(TeamHome)
	if home.TimeoutsRemaining() != 3 || home.OfficialReviewsRemaining() != 0 {
		t.Fatalf("after convert: timeouts=%d reviews=%d", home.TimeoutsRemaining(), home.OfficialReviewsRemaining())
	}
	if _, ok := b.timeoutClock.Alarm(); ok {
		t.Fatalf("review should clear the one-minute alarm")
	}

	if err := bs.Resolve(true, "score corrected"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !bs.Active().IsRetained() || bs.Active().Notes() != "score corrected" {
		t.Fatalf("resolve fields not set")
	}

	if err := bs.ConvertToTimeout(); err != nil {
		t.Fatalf("convert back: %v", err)
	}
	if home.TimeoutsRemaining() != 2 || home.OfficialReviewsRemaining() != 1 {
		t.Fatalf("after convert back: timeouts=%d reviews=%d", home.TimeoutsRemaining(), home.OfficialReviewsRemaining())
	}
}

func TestStoppage_OfficialReviewNeverOfficial(t *testing.T) {
	s, _ := newTestSeries()
	bs := s.AddBout().Stoppages()

	if err := bs.Call(ts(0)); err != nil {
		t.Fatalf("call: %v", err)
	}
	if err := bs.Assign(CallerOfficial); err != nil {
		t.Fatalf("official timeout: %v", err)
	}
	err := bs.ConvertToOfficialReview()
	wantKind(t, err, fault.KindRule)

	// An unassigned stoppage flipped to review cannot be assigned to an
	// official, nor ended while unassigned.
	if err := bs.End(ts(5)); err != nil {
		t.Fatalf("end official timeout: %v", err)
	}
	if err := bs.Call(ts(10)); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if err := bs.ConvertToOfficialReview(); err != nil {
		t.Fatalf("convert pending: %v", err)
	}
	err = bs.Assign(CallerOfficial)
	wantKind(t, err, fault.KindRule)
	err = bs.End(ts(15))
	wantKind(t, err, fault.KindRule)
}

func TestParseHelpers(t *testing.T) {
	if _, err := ParseTeamSide("neither"); err == nil {
		t.Fatalf("expected error for bad team")
	}
	if _, err := ParseStopReason("boredom"); err == nil {
		t.Fatalf("expected error for bad stop reason")
	}
	if _, err := ParseCaller("referee"); err == nil {
		t.Fatalf("expected error for bad caller")
	}
	if side, err := ParseTeamSide("away"); err != nil || side != TeamAway {
		t.Fatalf("parse away: %v %v", side, err)
	}
}

func TestFaultKindOfPlainError(t *testing.T) {
	if got := fault.KindOf(errors.New("boom")); got != fault.KindInternal {
		t.Fatalf("plain error kind: got %s, want internal", got)
	}
}
