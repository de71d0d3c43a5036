// Package store is the client-local persistence shim: a typed key/value
// surface scoped per debate identifier. Durable keys (chosen side, stats
// marker) survive process restarts on this device; session keys (mic
// permission asked) live only as long as the process.
package store

import (
	"sync"

	"github.com/verbo-app/roomsync/internal/debate"
)

type Store interface {
	// Side returns the persisted side choice for a debate, if any.
	Side(debateID string) (debate.Side, bool, error)
	SetSide(debateID string, side debate.Side) error
	ClearSide(debateID string) error

	// StatsRecorded is the durable idempotency marker for statistics
	// recording; once set it is never cleared.
	StatsRecorded(debateID string) (bool, error)
	MarkStatsRecorded(debateID string) error

	// MicAsked is session-scoped: cleared when the process exits or when
	// the session leaves the room.
	MicAsked(debateID string) bool
	SetMicAsked(debateID string, asked bool)
}

// session holds the process-scoped flags shared by every Store backend.
type session struct {
	mu       sync.Mutex
	micAsked map[string]bool
}

func newSession() *session {
	return &session{micAsked: make(map[string]bool)}
}

func (s *session) micAskedFor(debateID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.micAsked[debateID]
}

func (s *session) setMicAsked(debateID string, asked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if asked {
		s.micAsked[debateID] = true
	} else {
		delete(s.micAsked, debateID)
	}
}

// Memory is an in-process Store used by tests and as a fallback when no
// store path is configured.
type Memory struct {
	mu    sync.Mutex
	sides map[string]debate.Side
	stats map[string]bool
	flags *session
}

func NewMemory() *Memory {
	return &Memory{
		sides: make(map[string]debate.Side),
		stats: make(map[string]bool),
		flags: newSession(),
	}
}

func (m *Memory) Side(debateID string) (debate.Side, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	side, ok := m.sides[debateID]
	return side, ok, nil
}

func (m *Memory) SetSide(debateID string, side debate.Side) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sides[debateID] = side
	return nil
}

func (m *Memory) ClearSide(debateID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sides, debateID)
	return nil
}

func (m *Memory) StatsRecorded(debateID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats[debateID], nil
}

func (m *Memory) MarkStatsRecorded(debateID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[debateID] = true
	return nil
}

func (m *Memory) MicAsked(debateID string) bool {
	return m.flags.micAskedFor(debateID)
}

func (m *Memory) SetMicAsked(debateID string, asked bool) {
	m.flags.setMicAsked(debateID, asked)
}
