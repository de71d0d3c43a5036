package audio

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/verbo-app/roomsync/internal/shared"
)

// Track is the live capture track. The engine touches it only to keep the
// enabled flag in sync with the requested mute state.
type Track interface {
	Enabled() bool
	SetEnabled(enabled bool)
	Live() bool
}

// Stream is an open capture session on the device.
type Stream interface {
	Track() Track
	Close() error
}

// Device is the capture hardware collaborator. Open blocks on the
// platform permission prompt and returns shared.ErrPermissionDenied when
// the user refuses.
type Device interface {
	Open(ctx context.Context, grant Grant) (Stream, error)
}

// Manager owns the device exclusively. Only one permission request may
// be outstanding at a time, and a denial is terminal: the session stays
// listen-only and is never re-prompted automatically.
type Manager struct {
	device   Device
	grants   *GrantService
	identity string
	room     string
	log      *slog.Logger

	mu       sync.Mutex
	inFlight bool
	denied   bool
	stream   Stream
	muted    bool
}

func NewManager(device Device, grants *GrantService, identity, room string, log *slog.Logger) *Manager {
	return &Manager{
		device:   device,
		grants:   grants,
		identity: identity,
		room:     room,
		log:      log,
		muted:    true, // sessions start self-muted
	}
}

// RequestAccess opens the capture stream, prompting for permission if
// needed. Re-entrant calls while a request is in flight are suppressed.
func (m *Manager) RequestAccess(ctx context.Context) error {
	m.mu.Lock()
	if m.denied {
		m.mu.Unlock()
		return shared.ErrPermissionDenied
	}
	if m.stream != nil || m.inFlight {
		m.mu.Unlock()
		return nil
	}
	m.inFlight = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight = false
		m.mu.Unlock()
	}()

	grant, err := m.grants.Mint(m.identity, m.room)
	if err != nil {
		return err
	}

	stream, err := m.device.Open(ctx, grant)
	if err != nil {
		if errors.Is(err, shared.ErrPermissionDenied) {
			m.mu.Lock()
			m.denied = true
			m.mu.Unlock()
			return shared.ErrPermissionDenied
		}
		return err
	}

	m.mu.Lock()
	m.stream = stream
	stream.Track().SetEnabled(!m.muted)
	m.mu.Unlock()
	return nil
}

// ToggleMute flips the mute state and returns the new value. The track's
// enabled flag is re-checked afterwards; capture stacks have been seen
// dropping the first write during renegotiation.
func (m *Manager) ToggleMute() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.muted = !m.muted
	if m.stream != nil {
		track := m.stream.Track()
		track.SetEnabled(!m.muted)
		if track.Enabled() == m.muted {
			m.log.Warn("track enabled flag out of sync after toggle, rewriting", "muted", m.muted)
			track.SetEnabled(!m.muted)
		}
	}
	return m.muted
}

func (m *Manager) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

// Live reports whether an open stream has a live capture track.
func (m *Manager) Live() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stream != nil && m.stream.Track().Live()
}

// StopStream tears the capture session down. Safe to call repeatedly.
func (m *Manager) StopStream() {
	m.mu.Lock()
	stream := m.stream
	m.stream = nil
	m.mu.Unlock()

	if stream == nil {
		return
	}
	if err := stream.Close(); err != nil {
		m.log.Debug("capture stream close failed", "error", err)
	}
}
