package room

import (
	"sync"

	"github.com/verbo-app/roomsync/internal/debate"
	"github.com/verbo-app/roomsync/internal/shared"
)

type Phase string

const (
	PhaseIdle    Phase = "IDLE"
	PhaseJoining Phase = "JOINING"
	PhaseJoined  Phase = "JOINED"
	PhaseLeaving Phase = "LEAVING"
)

type MicState string

const (
	MicNotRequested MicState = "NOT_REQUESTED"
	MicRequesting   MicState = "REQUESTING"
	MicGranted      MicState = "GRANTED"
	MicDenied       MicState = "DENIED"
)

// Session is the client-local join/role state for one attachment to one
// room. It is owned by the Controller; everything else reads snapshots.
//
// Two flags are one-way for the session's lifetime: leaving (a session
// that starts leaving never un-leaves, so stale asynchronous continuations
// can check it and drop their writes) and switched (at most one side
// switch per debate per user).
type Session struct {
	mu        sync.RWMutex
	phase     Phase
	side      debate.Side
	mic       MicState
	leaving   bool
	switched  bool
	switching bool
}

func NewSession() *Session {
	return &Session{phase: PhaseIdle, mic: MicNotRequested}
}

func (s *Session) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

func (s *Session) Joined() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase == PhaseJoined
}

func (s *Session) Side() debate.Side {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.side
}

func (s *Session) Leaving() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leaving
}

func (s *Session) HasSwitched() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.switched
}

func (s *Session) MicState() MicState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mic
}

// beginJoin moves Idle→Joining. A session already past Idle, or one that
// has started leaving, rejects the transition.
func (s *Session) beginJoin(side debate.Side) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.leaving {
		return shared.ErrConflict
	}
	if s.phase != PhaseIdle {
		return shared.ErrConflict
	}
	s.phase = PhaseJoining
	s.side = side
	return nil
}

func (s *Session) markJoined() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.leaving {
		return
	}
	if s.phase == PhaseJoining {
		s.phase = PhaseJoined
	}
}

// demote collapses the session back to not-joined without marking it as
// leaving. Used when the backend disagrees with local join state past the
// convergence window.
func (s *Session) demote() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.leaving {
		return
	}
	s.phase = PhaseIdle
}

// beginLeave sets the monotonic leaving flag and moves to Leaving.
func (s *Session) beginLeave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaving = true
	s.phase = PhaseLeaving
}

func (s *Session) finishLeave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseIdle
}

// beginSwitch reserves the one-shot side switch. The reservation is
// taken under the lock before any backend traffic, so two racing
// callers cannot both pass the guard; finishSwitch resolves it.
func (s *Session) beginSwitch() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseJoined || s.leaving {
		return shared.ErrConflict
	}
	if s.switched || s.switching {
		return shared.ErrConflict
	}
	s.switching = true
	return nil
}

// finishSwitch resolves an open reservation: on success the new side is
// recorded and the one-shot flag burns; on failure the reservation is
// released so the switch stays available.
func (s *Session) finishSwitch(side debate.Side, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.switching = false
	if !ok {
		return
	}
	s.side = side
	s.switched = true
}

// setMic enforces the permission state machine: Requesting is reachable
// only from NotRequested, and Denied is terminal.
func (s *Session) setMic(next MicState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.mic == MicDenied:
		return false
	case next == MicRequesting && s.mic != MicNotRequested:
		return false
	}
	s.mic = next
	return true
}

// View is the read-only snapshot of a Session published to consumers.
type View struct {
	Phase       Phase       `json:"phase"`
	Side        debate.Side `json:"side,omitempty"`
	Mic         MicState    `json:"mic"`
	Leaving     bool        `json:"leaving"`
	HasSwitched bool        `json:"hasSwitched"`
}

func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{
		Phase:       s.phase,
		Side:        s.side,
		Mic:         s.mic,
		Leaving:     s.leaving,
		HasSwitched: s.switched,
	}
}
