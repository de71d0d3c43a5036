package room

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/verbo-app/roomsync/internal/debate"
	"github.com/verbo-app/roomsync/internal/shared"
	"github.com/verbo-app/roomsync/internal/store"
)

const (
	// Mic permission is requested only after host resolution has had a
	// chance to settle; hosts wait longer because their resolution depends
	// on the debate fetch, not just the participant list.
	micDelayUser = 500 * time.Millisecond
	micDelayHost = time.Second

	micRequestTimeout = 30 * time.Second
)

// AudioSession is the narrow contract the controller holds on the audio
// collaborator.
type AudioSession interface {
	RequestAccess(ctx context.Context) error
	ToggleMute() bool
	Muted() bool
	Live() bool
	StopStream()
}

// Controller drives the per-session join/role state machine:
// Idle→Joining→Joined→Leaving→Idle. It owns the Session exclusively and
// coordinates the persistence shim and the audio collaborator.
type Controller struct {
	backend  Backend
	store    store.Store
	audio    AudioSession
	session  *Session
	resolver *HostResolver
	identity debate.Identity
	debateID string
	log      *slog.Logger

	micDelayUser time.Duration
	micDelayHost time.Duration

	timerMu  sync.Mutex
	micTimer *time.Timer
}

func NewController(backend Backend, st store.Store, audio AudioSession, session *Session, resolver *HostResolver, identity debate.Identity, debateID string, log *slog.Logger) *Controller {
	return &Controller{
		backend:      backend,
		store:        st,
		audio:        audio,
		session:      session,
		resolver:     resolver,
		identity:     identity,
		debateID:     debateID,
		log:          log,
		micDelayUser: micDelayUser,
		micDelayHost: micDelayHost,
	}
}

// Restore re-joins from a persisted side choice without prompting. No
// persisted side means the session stays Idle awaiting an explicit choice.
func (c *Controller) Restore(ctx context.Context) (bool, error) {
	side, ok, err := c.store.Side(c.debateID)
	if err != nil {
		c.log.Warn("persisted side read failed", "debateId", c.debateID, "error", err)
		return false, nil
	}
	if !ok {
		return false, nil
	}
	if err := c.Join(ctx, side); err != nil {
		return false, err
	}
	return true, nil
}

// AutoJoinHost moves a resolved host straight to Joining with side
// neutral once the debate is past Scheduled. No-op for everyone else.
func (c *Controller) AutoJoinHost(ctx context.Context, status debate.Status) {
	if !c.resolver.IsHost() || status == debate.StatusScheduled {
		return
	}
	if c.session.Phase() != PhaseIdle || c.session.Leaving() {
		return
	}
	if err := c.Join(ctx, debate.SideNeutral); err != nil {
		c.log.Debug("host auto-join deferred", "debateId", c.debateID, "error", err)
	}
}

func (c *Controller) Join(ctx context.Context, side debate.Side) error {
	if !side.Valid() {
		return shared.ErrConflict
	}
	if err := c.session.beginJoin(side); err != nil {
		return err
	}
	if err := c.backend.Join(ctx, c.debateID, c.identity.UserID, side); err != nil {
		c.session.demote()
		return err
	}
	c.session.markJoined()

	// Only deliberate side choices persist; a host's automatic neutral
	// join should not turn into an auto-rejoin next session.
	if side.Debatable() {
		if err := c.store.SetSide(c.debateID, side); err != nil {
			c.log.Warn("side persist failed", "debateId", c.debateID, "error", err)
		}
	}

	c.scheduleMicRequest()
	return nil
}

// SwitchSide performs the one-shot side switch. Hosts and spectators
// cannot switch, and a second switch is rejected. An empty side means
// "the other one". The one-shot flag is reserved before the backend
// call so concurrent requests cannot both switch.
func (c *Controller) SwitchSide(ctx context.Context, side debate.Side) error {
	if !c.session.Joined() || c.session.Leaving() {
		return shared.ErrConflict
	}
	if c.resolver.IsHost() || !c.session.Side().Debatable() {
		return shared.ErrForbidden
	}
	if side == "" {
		side = c.session.Side().Opposite()
	}
	if !side.Debatable() {
		return shared.ErrConflict
	}
	if err := c.session.beginSwitch(); err != nil {
		return err
	}

	// The switch rides the join endpoint with the new side value.
	if err := c.backend.Join(ctx, c.debateID, c.identity.UserID, side); err != nil {
		c.session.finishSwitch(side, false)
		return err
	}
	c.session.finishSwitch(side, true)

	if err := c.store.SetSide(c.debateID, side); err != nil {
		c.log.Warn("side persist failed", "debateId", c.debateID, "error", err)
	}
	return nil
}

// ToggleMute flips the publish state of the local track and reports the
// resulting muted state. Only a joined, non-leaving session may toggle.
func (c *Controller) ToggleMute() (bool, error) {
	if !c.session.Joined() || c.session.Leaving() {
		return false, shared.ErrConflict
	}
	return c.audio.ToggleMute(), nil
}

// Leave sets the monotonic leaving flag first so every in-flight
// continuation drops its writes, then tears down audio and notifies the
// backend best-effort.
func (c *Controller) Leave(ctx context.Context) error {
	c.session.beginLeave()
	c.stopMicTimer()
	c.audio.StopStream()

	if err := c.backend.Leave(ctx, c.debateID, c.identity.UserID); err != nil {
		c.log.Debug("leave call failed", "debateId", c.debateID, "error", err)
	}

	c.store.SetMicAsked(c.debateID, false)
	c.session.finishLeave()
	return nil
}

// CorrectDesync is the single corrective re-join issued when the
// convergence window expires with the local user still absent.
func (c *Controller) CorrectDesync(ctx context.Context) error {
	side := c.session.Side()
	if side == "" {
		side = debate.SideNeutral
	}
	return c.backend.Join(ctx, c.debateID, c.identity.UserID, side)
}

// Demote collapses the session to not-joined without an error surfacing
// to the user.
func (c *Controller) Demote() {
	c.session.demote()
}

// scheduleMicRequest arms the deferred permission request after a
// successful join. At most one request is ever in flight; a denial is
// terminal for the session.
func (c *Controller) scheduleMicRequest() {
	if c.session.MicState() != MicNotRequested {
		return
	}
	if c.store.MicAsked(c.debateID) {
		return
	}

	delay := c.micDelayUser
	if c.resolver.IsHost() {
		delay = c.micDelayHost
	}

	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	if c.micTimer != nil {
		return
	}
	c.micTimer = time.AfterFunc(delay, c.requestMic)
}

func (c *Controller) requestMic() {
	if c.session.Leaving() || !c.session.Joined() {
		return
	}
	if !c.session.setMic(MicRequesting) {
		return
	}
	c.store.SetMicAsked(c.debateID, true)

	ctx, cancel := context.WithTimeout(context.Background(), micRequestTimeout)
	defer cancel()

	if err := c.audio.RequestAccess(ctx); err != nil {
		if errors.Is(err, shared.ErrPermissionDenied) {
			c.session.setMic(MicDenied)
			c.log.Info("mic permission denied, session is listen-only", "debateId", c.debateID)
			return
		}
		// Transient failure: back off to NotRequested but keep the asked
		// flag set so the session is not re-prompted automatically.
		c.session.setMic(MicNotRequested)
		c.log.Debug("mic request failed", "debateId", c.debateID, "error", err)
		return
	}
	c.session.setMic(MicGranted)
}

func (c *Controller) stopMicTimer() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	if c.micTimer != nil {
		c.micTimer.Stop()
		c.micTimer = nil
	}
}
