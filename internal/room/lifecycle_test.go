package room

import (
	"testing"
	"time"

	"github.com/verbo-app/roomsync/internal/debate"
)

func activeDebate(id string, endsIn time.Duration, now time.Time) *debate.Debate {
	end := now.Add(endsIn)
	return &debate.Debate{ID: id, Status: debate.StatusActive, StartTime: now.Add(-time.Hour), EndTime: &end}
}

func TestLifecycle_AutoEndExactlyOnce(t *testing.T) {
	l := &Lifecycle{}
	now := time.Now()
	d := activeDebate("d1", 7*time.Second, now)

	// Before the deadline nothing fires.
	if res := l.Check(d, now); res.AutoEnd {
		t.Fatal("auto-end before the deadline")
	}

	// First 5s-cadence check at/after the deadline fires once.
	if res := l.Check(d, now.Add(10*time.Second)); !res.AutoEnd {
		t.Fatal("no auto-end on first check past the deadline")
	}

	// Every later check, including one simulating a reconnect storm of
	// rapid re-checks, stays quiet.
	for i := 0; i < 5; i++ {
		if res := l.Check(d, now.Add(time.Duration(10+5*i)*time.Second)); res.AutoEnd {
			t.Fatalf("check %d re-fired auto-end", i)
		}
	}
}

func TestLifecycle_WarningsAreOneShot(t *testing.T) {
	l := &Lifecycle{}
	now := time.Now()
	d := activeDebate("d1", 10*time.Minute, now)

	if res := l.Check(d, now); len(res.Warnings) != 0 {
		t.Fatalf("warning with 10m remaining: %v", res.Warnings)
	}

	res := l.Check(d, now.Add(6*time.Minute))
	if len(res.Warnings) != 1 || res.Warnings[0] != WarningFiveMinutes {
		t.Fatalf("at 4m remaining: %v", res.Warnings)
	}
	if res := l.Check(d, now.Add(6*time.Minute+5*time.Second)); len(res.Warnings) != 0 {
		t.Fatalf("five-minute warning re-fired: %v", res.Warnings)
	}

	res = l.Check(d, now.Add(9*time.Minute+30*time.Second))
	if len(res.Warnings) != 1 || res.Warnings[0] != WarningOneMinute {
		t.Fatalf("at 30s remaining: %v", res.Warnings)
	}
	if res := l.Check(d, now.Add(9*time.Minute+40*time.Second)); len(res.Warnings) != 0 {
		t.Fatalf("one-minute warning re-fired: %v", res.Warnings)
	}
}

func TestLifecycle_JumpStraightToFinalMinute(t *testing.T) {
	l := &Lifecycle{}
	now := time.Now()
	d := activeDebate("d1", 45*time.Second, now)

	// A session attached with under a minute left gets only the one-minute
	// warning; the five-minute one is considered spent.
	res := l.Check(d, now)
	if len(res.Warnings) != 1 || res.Warnings[0] != WarningOneMinute {
		t.Fatalf("warnings = %v", res.Warnings)
	}
	if res := l.Check(d, now.Add(5*time.Second)); len(res.Warnings) != 0 {
		t.Fatalf("late five-minute warning: %v", res.Warnings)
	}
}

func TestLifecycle_FlagsResetOnlyOnDebateChange(t *testing.T) {
	l := &Lifecycle{}
	now := time.Now()

	d1 := activeDebate("d1", -time.Second, now)
	if res := l.Check(d1, now); !res.AutoEnd {
		t.Fatal("no auto-end for d1")
	}
	if res := l.Check(d1, now.Add(5*time.Second)); res.AutoEnd {
		t.Fatal("auto-end re-fired for d1")
	}

	// A different debate id resets every one-shot flag.
	d2 := activeDebate("d2", -time.Second, now)
	if res := l.Check(d2, now.Add(10*time.Second)); !res.AutoEnd {
		t.Fatal("flags not reset for new debate id")
	}
}

func TestLifecycle_InactiveStatesAreQuiet(t *testing.T) {
	l := &Lifecycle{}
	now := time.Now()

	scheduled := activeDebate("d1", -time.Minute, now)
	scheduled.Status = debate.StatusScheduled
	if res := l.Check(scheduled, now); res.AutoEnd || len(res.Warnings) != 0 {
		t.Fatal("scheduled debate triggered lifecycle effects")
	}

	ended := activeDebate("d1", -time.Minute, now)
	ended.Status = debate.StatusEnded
	if res := l.Check(ended, now); res.AutoEnd {
		t.Fatal("ended debate re-triggered auto-end")
	}

	if res := l.Check(nil, now); res.AutoEnd || len(res.Warnings) != 0 {
		t.Fatal("nil debate triggered lifecycle effects")
	}
}
