package room

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/verbo-app/roomsync/internal/debate"
	"github.com/verbo-app/roomsync/internal/realtime"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testIdentity() debate.Identity {
	return debate.Identity{UserID: "u-local", DisplayName: "Local User", Handle: "local"}
}

type joinCall struct {
	UserID string
	Side   debate.Side
}

type fakeBackend struct {
	mu sync.Mutex

	debate       *debate.Debate
	participants []debate.Participant

	joinCalls   []joinCall
	leaveCalls  int
	statusCalls []debate.Status
	statsCalls  []debate.StatsRecord

	joinErr   error
	statusErr error
	statsErr  error
	partErr   error

	// When set, Join blocks on this channel after passing the error
	// check, holding the call in flight until the test releases it.
	joinGate chan struct{}
}

func (f *fakeBackend) Debate(ctx context.Context, id string) (*debate.Debate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.debate == nil {
		return &debate.Debate{ID: id, Status: debate.StatusActive}, nil
	}
	d := *f.debate
	return &d, nil
}

func (f *fakeBackend) Participants(ctx context.Context, debateID string) ([]debate.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.partErr != nil {
		return nil, f.partErr
	}
	out := make([]debate.Participant, len(f.participants))
	copy(out, f.participants)
	return out, nil
}

func (f *fakeBackend) Join(ctx context.Context, debateID, userID string, side debate.Side) error {
	f.mu.Lock()
	gate := f.joinGate
	err := f.joinErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joinCalls = append(f.joinCalls, joinCall{UserID: userID, Side: side})
	return nil
}

func (f *fakeBackend) Leave(ctx context.Context, debateID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaveCalls++
	return nil
}

func (f *fakeBackend) UpdateStatus(ctx context.Context, debateID string, status debate.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return f.statusErr
	}
	f.statusCalls = append(f.statusCalls, status)
	return nil
}

func (f *fakeBackend) RecordStats(ctx context.Context, rec debate.StatsRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statsErr != nil {
		return f.statsErr
	}
	f.statsCalls = append(f.statsCalls, rec)
	return nil
}

func (f *fakeBackend) joins() []joinCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]joinCall, len(f.joinCalls))
	copy(out, f.joinCalls)
	return out
}

func (f *fakeBackend) endCommands() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.statusCalls {
		if s == debate.StatusEnded {
			n++
		}
	}
	return n
}

func (f *fakeBackend) statsCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.statsCalls)
}

type fakeAudio struct {
	mu       sync.Mutex
	requests int
	stops    int
	muted    bool
	live     bool
	err      error
}

func (f *fakeAudio) RequestAccess(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	if f.err == nil {
		f.live = true
	}
	return f.err
}

func (f *fakeAudio) ToggleMute() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = !f.muted
	return f.muted
}

func (f *fakeAudio) Muted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.muted
}

func (f *fakeAudio) Live() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live
}

func (f *fakeAudio) StopStream() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.live = false
}

func (f *fakeAudio) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

// fakeChannel feeds scripted events to the manager loop.
type fakeChannel struct {
	events chan realtime.Event
	once   sync.Once
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{events: make(chan realtime.Event, 16)}
}

func (f *fakeChannel) Start(ctx context.Context)     {}
func (f *fakeChannel) Events() <-chan realtime.Event { return f.events }
func (f *fakeChannel) PushConnected() bool           { return true }
func (f *fakeChannel) Close()                        { f.once.Do(func() { close(f.events) }) }
func (f *fakeChannel) send(ev realtime.Event)        { f.events <- ev }

// waitFor polls cond until it holds or the deadline passes.
func waitFor(d time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
