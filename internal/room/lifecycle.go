package room

import (
	"time"

	"github.com/verbo-app/roomsync/internal/debate"
)

const (
	// lifecycleTick is the wall-clock re-check cadence for warnings and
	// the auto-end trigger.
	lifecycleTick = 5 * time.Second

	warnLongRemaining  = 5 * time.Minute
	warnShortRemaining = time.Minute
)

type Warning string

const (
	WarningFiveMinutes Warning = "five_minutes_remaining"
	WarningOneMinute   Warning = "one_minute_remaining"
)

// Lifecycle holds the one-shot flags driving timed warnings and the
// client auto-end. Each flag transitions false→true at most once; all of
// them reset only when the debate id changes.
//
// Owned by the Manager's event loop, not safe for concurrent use.
type Lifecycle struct {
	debateID    string
	warnedLong  bool
	warnedShort bool
	autoEnded   bool
}

// TickResult is what a single wall-clock check decided.
type TickResult struct {
	Warnings []Warning
	// AutoEnd is set on the first check at or after the end time, exactly
	// once. The resulting end command is best-effort regardless of host
	// status; the backend is the final authority on who may end a debate.
	AutoEnd bool
}

// Check evaluates one tick. Scheduled→Active is backend-driven and never
// initiated here.
func (l *Lifecycle) Check(d *debate.Debate, now time.Time) TickResult {
	if d == nil {
		return TickResult{}
	}
	l.observe(d.ID)

	if d.Status != debate.StatusActive {
		return TickResult{}
	}
	endsAt, ok := d.EndsAt()
	if !ok {
		return TickResult{}
	}

	remaining := endsAt.Sub(now)
	if remaining <= 0 {
		if l.autoEnded {
			return TickResult{}
		}
		l.autoEnded = true
		return TickResult{AutoEnd: true}
	}

	var res TickResult
	if remaining <= warnShortRemaining && !l.warnedShort {
		l.warnedShort = true
		l.warnedLong = true
		res.Warnings = append(res.Warnings, WarningOneMinute)
	} else if remaining <= warnLongRemaining && !l.warnedLong {
		l.warnedLong = true
		res.Warnings = append(res.Warnings, WarningFiveMinutes)
	}
	return res
}

// observe resets every flag when the debate id changes. That is the only
// reset condition.
func (l *Lifecycle) observe(debateID string) {
	if debateID == l.debateID {
		return
	}
	*l = Lifecycle{debateID: debateID}
}
