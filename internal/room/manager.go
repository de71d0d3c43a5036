package room

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/verbo-app/roomsync/internal/debate"
	"github.com/verbo-app/roomsync/internal/realtime"
	"github.com/verbo-app/roomsync/internal/store"
)

// exitDelay is the pause between a background-observed end and the hard
// room teardown, long enough for the ended state to be observed.
const exitDelay = 3 * time.Second

// Channel is the slice of the dual-channel producer the manager consumes.
type Channel interface {
	Start(ctx context.Context)
	Events() <-chan realtime.Event
	PushConnected() bool
	Close()
}

// Manager owns one room attachment: it runs the event loop that consumes
// dual-channel events and the lifecycle ticker, feeds the reconciler and
// host resolver, and publishes a read-only RoomView. One Manager serves
// one debate id; attaching to a different debate means a new Manager.
type Manager struct {
	debateID string
	identity debate.Identity

	backend   Backend
	channel   Channel
	ctrl      *Controller
	rec       *Reconciler
	resolver  *HostResolver
	session   *Session
	lifecycle *Lifecycle
	stats     *StatsRecorder
	log       *slog.Logger

	// now is swappable so wall-clock tests do not sleep.
	now      func() time.Time
	tickEach time.Duration
	onExit   func()

	mu       sync.RWMutex
	debate   *debate.Debate
	merged   []debate.Participant
	warnings []Warning

	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
	exitOnce  sync.Once
}

type ManagerConfig struct {
	DebateID string
	Identity debate.Identity
	Backend  Backend
	Channel  Channel
	Audio    AudioSession
	Store    store.Store
	Log      *slog.Logger
	// OnExit runs after a background-observed end once the delayed
	// teardown fires. Optional.
	OnExit func()
}

func NewManager(cfg ManagerConfig) *Manager {
	session := NewSession()
	resolver := NewHostResolver(cfg.Identity.UserID)
	m := &Manager{
		debateID:  cfg.DebateID,
		identity:  cfg.Identity,
		backend:   cfg.Backend,
		channel:   cfg.Channel,
		rec:       NewReconciler(cfg.Identity),
		resolver:  resolver,
		session:   session,
		lifecycle: &Lifecycle{},
		stats:     NewStatsRecorder(cfg.Backend, cfg.Store, cfg.Log),
		log:       cfg.Log,
		now:       time.Now,
		tickEach:  lifecycleTick,
		onExit:    cfg.OnExit,
		done:      make(chan struct{}),
	}
	m.ctrl = NewController(cfg.Backend, cfg.Store, cfg.Audio, session, resolver, cfg.Identity, cfg.DebateID, cfg.Log)
	return m
}

// Controller exposes the join/role command surface.
func (m *Manager) Controller() *Controller { return m.ctrl }

func (m *Manager) Session() *Session { return m.session }

// Start primes state from the backend, restores any persisted join, and
// launches the event loop. Idempotent.
func (m *Manager) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		ctx, m.cancel = context.WithCancel(ctx)

		m.prime(ctx)
		m.channel.Start(ctx)
		go m.run(ctx)
	})
}

func (m *Manager) prime(ctx context.Context) {
	d, err := m.backend.Debate(ctx, m.debateID)
	if err != nil {
		m.log.Warn("initial debate fetch failed", "debateId", m.debateID, "error", err)
	} else {
		m.observeDebate(ctx, d)
	}

	if restored, err := m.ctrl.Restore(ctx); err != nil {
		m.log.Debug("persisted-side rejoin failed", "debateId", m.debateID, "error", err)
	} else if restored {
		m.log.Info("rejoined from persisted side", "debateId", m.debateID, "side", m.session.Side())
	}
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.tickEach)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-m.channel.Events():
			if !ok {
				return
			}
			m.handleEvent(ctx, ev)
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Manager) handleEvent(ctx context.Context, ev realtime.Event) {
	if m.session.Leaving() {
		return
	}
	if ev.DebateID != "" && ev.DebateID != m.debateID {
		return
	}

	switch ev.Type {
	case realtime.EventParticipantsReplaced:
		m.applySnapshot(ctx, ev.Participants)
	case realtime.EventStatusChanged:
		if ev.Debate != nil {
			m.observeDebate(ctx, ev.Debate)
		} else {
			m.applyStatus(ctx, ev.Status)
		}
	case realtime.EventPeerJoined:
		// A peer announcement carries no list; refetch so the roster
		// catches up before the next poll tick.
		if parts, err := m.backend.Participants(ctx, m.debateID); err == nil {
			m.applySnapshot(ctx, parts)
		}
	}
}

// applySnapshot runs one snapshot through the reconciler and publishes
// the merge. Snapshots are total replacements; duplicates and reordering
// between channels are harmless here.
func (m *Manager) applySnapshot(ctx context.Context, snapshot []debate.Participant) {
	joined := m.session.Joined() || m.session.Phase() == PhaseJoining
	merge := m.rec.Apply(snapshot, joined, m.session.Side(), m.now())

	m.mu.Lock()
	m.merged = merge.Participants
	m.mu.Unlock()

	if merge.Desync {
		m.resolveDesync(ctx)
	}
}

// resolveDesync handles an expired convergence window: confirm against a
// fresh fetch, spend the one corrective re-join, and failing that demote
// the session silently.
func (m *Manager) resolveDesync(ctx context.Context) {
	fresh, err := m.backend.Participants(ctx, m.debateID)
	if err == nil {
		for _, p := range fresh {
			if p.UserID == m.identity.UserID {
				m.applySnapshot(ctx, fresh)
				return
			}
		}
	}

	if m.rec.SpendCorrection() {
		if err := m.ctrl.CorrectDesync(ctx); err == nil {
			m.rec.RestartWindow(m.now())
			m.log.Info("issued corrective rejoin", "debateId", m.debateID)
			return
		}
	}

	m.log.Info("join state desynced past window, demoting", "debateId", m.debateID)
	m.ctrl.Demote()
	m.rec.Reset()
}

func (m *Manager) applyStatus(ctx context.Context, status debate.Status) {
	m.mu.Lock()
	var prev debate.Status
	if m.debate == nil {
		// Status arrived before the first successful debate fetch.
		m.debate = &debate.Debate{ID: m.debateID, Status: status}
	} else {
		prev = m.debate.Status
		if prev.Terminal() {
			// An ended debate never reopens; stale status is dropped.
			m.mu.Unlock()
			return
		}
		m.debate.Status = status
	}
	m.mu.Unlock()

	if prev == status {
		return
	}
	m.log.Info("debate status changed", "debateId", m.debateID, "from", prev, "to", status)

	m.ctrl.AutoJoinHost(ctx, status)
	if status == debate.StatusEnded {
		m.onEnded(ctx)
	}
}

func (m *Manager) observeDebate(ctx context.Context, d *debate.Debate) {
	m.mu.Lock()
	var prev debate.Status
	if m.debate != nil {
		prev = m.debate.Status
	}
	if prev.Terminal() && !d.Status.Terminal() {
		// An ended debate never reopens; drop the stale snapshot.
		m.mu.Unlock()
		return
	}
	m.debate = d
	m.mu.Unlock()

	m.resolver.Observe(d.ResolvedHostID())
	if d.Status != prev {
		m.log.Info("debate status changed", "debateId", m.debateID, "from", prev, "to", d.Status)
	}
	m.ctrl.AutoJoinHost(ctx, d.Status)
	if d.Status == debate.StatusEnded && d.Status != prev {
		m.onEnded(ctx)
	}
}

// tick is the 5s wall-clock check for warnings and the auto-end trigger.
func (m *Manager) tick(ctx context.Context) {
	m.mu.RLock()
	d := m.debate
	m.mu.RUnlock()

	res := m.lifecycle.Check(d, m.now())
	for _, w := range res.Warnings {
		m.log.Info("debate time warning", "debateId", m.debateID, "warning", w)
		m.mu.Lock()
		m.warnings = append(m.warnings, w)
		m.mu.Unlock()
	}

	if res.AutoEnd {
		// Best-effort regardless of host status; the backend rejects
		// unauthorized attempts and that rejection is not surfaced.
		if err := m.backend.UpdateStatus(ctx, m.debateID, debate.StatusEnded); err != nil {
			m.log.Debug("auto-end command rejected", "debateId", m.debateID, "error", err)
		}
		m.applyStatus(ctx, debate.StatusEnded)
	}
}

// End is the user-initiated end command. Unlike auto-end, an
// authorization rejection here is returned to the caller.
func (m *Manager) End(ctx context.Context) error {
	if err := m.backend.UpdateStatus(ctx, m.debateID, debate.StatusEnded); err != nil {
		return err
	}
	m.applyStatus(ctx, debate.StatusEnded)
	return nil
}

// onEnded runs the terminal side effects: at-most-once stats recording,
// and, when the session is not joined, a delayed hard teardown. An
// actively present user is never ejected by a background timer.
func (m *Manager) onEnded(ctx context.Context) {
	m.mu.RLock()
	d := m.debate
	merged := m.merged
	m.mu.RUnlock()

	if err := m.stats.Record(ctx, d, merged); err != nil {
		m.log.Debug("stats recording failed", "debateId", m.debateID, "error", err)
	}

	if m.session.Joined() {
		return
	}
	m.exitOnce.Do(func() {
		time.AfterFunc(exitDelay, func() {
			m.Close()
			if m.onExit != nil {
				m.onExit()
			}
		})
	})
}

// RoomView is the read-only snapshot published to the control surface.
type RoomView struct {
	Debate        *debate.Debate       `json:"debate,omitempty"`
	Participants  []debate.Participant `json:"participants"`
	IsHost        bool                 `json:"isHost"`
	Session       View                 `json:"session"`
	PushConnected bool                 `json:"pushConnected"`
	Muted         bool                 `json:"muted"`
	MicLive       bool                 `json:"micLive"`
	Warnings      []Warning            `json:"warnings,omitempty"`
}

func (m *Manager) RoomView() RoomView {
	m.mu.RLock()
	defer m.mu.RUnlock()

	parts := make([]debate.Participant, len(m.merged))
	copy(parts, m.merged)
	warnings := make([]Warning, len(m.warnings))
	copy(warnings, m.warnings)

	var d *debate.Debate
	if m.debate != nil {
		cp := *m.debate
		d = &cp
	}

	return RoomView{
		Debate:        d,
		Participants:  parts,
		IsHost:        m.resolver.IsHost(),
		Session:       m.session.View(),
		PushConnected: m.channel.PushConnected(),
		Muted:         m.ctrl.audio.Muted(),
		MicLive:       m.ctrl.audio.Live(),
		Warnings:      warnings,
	}
}

// Close tears down the event loop and both sync channels. Idempotent.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		if m.cancel == nil {
			// Never started.
			return
		}
		m.cancel()
		m.channel.Close()
		m.ctrl.stopMicTimer()
		<-m.done
	})
}
