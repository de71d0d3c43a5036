package realtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/verbo-app/roomsync/internal/debate"
)

// Backend is the slice of the REST client the poll loop needs.
type Backend interface {
	Debate(ctx context.Context, id string) (*debate.Debate, error)
	Participants(ctx context.Context, debateID string) ([]debate.Participant, error)
}

// poller is the pull half of the dual channel: fixed-interval REST polls
// against the same resources the push channel covers. A failed or timed-out
// poll is swallowed and retried on the next tick; the loop never stops on
// error because it is the availability fallback for the push channel.
type poller struct {
	backend  Backend
	debateID string
	cfg      Config
	events   chan<- Event
	joined   func() bool
	log      *slog.Logger
}

func newPoller(cfg Config, backend Backend, debateID string, joined func() bool, events chan<- Event, log *slog.Logger) *poller {
	return &poller{
		backend:  backend,
		debateID: debateID,
		cfg:      cfg,
		events:   events,
		joined:   joined,
		log:      log.With("channel", "poll"),
	}
}

func (p *poller) run(ctx context.Context) {
	participantTicker := time.NewTicker(p.cfg.ParticipantInterval)
	defer participantTicker.Stop()
	statusTicker := time.NewTicker(p.cfg.StatusInterval)
	defer statusTicker.Stop()

	// prime the room immediately instead of waiting a full interval
	p.pollStatus(ctx)
	p.pollParticipants(ctx)

	for {
		select {
		case <-participantTicker.C:
			p.pollParticipants(ctx)
		case <-statusTicker.C:
			p.pollStatus(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *poller) pollParticipants(ctx context.Context) {
	if p.joined != nil && !p.joined() {
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.StatusInterval)
	defer cancel()

	list, err := p.backend.Participants(callCtx, p.debateID)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Debug("participant poll failed, retrying next tick", "error", err)
		}
		return
	}
	p.emit(ctx, Event{Type: EventParticipantsReplaced, DebateID: p.debateID, Participants: list})
}

func (p *poller) pollStatus(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.StatusInterval)
	defer cancel()

	d, err := p.backend.Debate(callCtx, p.debateID)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Debug("status poll failed, retrying next tick", "error", err)
		}
		return
	}
	// Poll-sourced status events carry the full debate so downstream host
	// resolution keeps observing the denormalized host fields.
	p.emit(ctx, Event{Type: EventStatusChanged, DebateID: p.debateID, Status: d.Status, Debate: d})
}

func (p *poller) emit(ctx context.Context, event Event) {
	select {
	case p.events <- event:
	case <-ctx.Done():
	}
}
