package room

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/verbo-app/roomsync/internal/debate"
	"github.com/verbo-app/roomsync/internal/shared"
	"github.com/verbo-app/roomsync/internal/store"
)

// StatsRecorder converges the three end paths (auto-end, host end,
// backend-observed end) on at most one statistics submission per debate
// per device. The in-process map suppresses racing call sites within one
// session; the durable store marker suppresses re-sends across restarts.
type StatsRecorder struct {
	backend Backend
	store   store.Store
	log     *slog.Logger

	mu        sync.Mutex
	attempted map[string]bool
}

func NewStatsRecorder(backend Backend, st store.Store, log *slog.Logger) *StatsRecorder {
	return &StatsRecorder{
		backend:   backend,
		store:     st,
		log:       log,
		attempted: make(map[string]bool),
	}
}

// Record attempts the submission once for the debate. Safe to call from
// any number of call sites; all but the first are no-ops.
func (s *StatsRecorder) Record(ctx context.Context, d *debate.Debate, merged []debate.Participant) error {
	if d == nil || d.ID == "" {
		return nil
	}

	s.mu.Lock()
	if s.attempted[d.ID] {
		s.mu.Unlock()
		return nil
	}
	s.attempted[d.ID] = true
	s.mu.Unlock()

	recorded, err := s.store.StatsRecorded(d.ID)
	if err != nil {
		s.log.Warn("stats marker read failed", "debateId", d.ID, "error", err)
	}
	if recorded {
		return nil
	}

	agree, disagree := s.deriveCounts(ctx, d, merged)
	if agree+disagree == 0 {
		s.log.Debug("no countable participants, stats not submitted", "debateId", d.ID)
		return nil
	}

	rec := debate.StatsRecord{
		DebateID:      d.ID,
		Topic:         d.Title,
		AgreeCount:    agree,
		DisagreeCount: disagree,
		Participants:  agree + disagree,
	}
	if err := s.backend.RecordStats(ctx, rec); err != nil {
		if isDuplicateRecord(err) {
			// The backend already has this debate's stats; remember that
			// so future sessions skip the call entirely.
			s.markRecorded(d.ID)
			return nil
		}
		s.log.Warn("stats submission failed", "debateId", d.ID, "error", err)
		return err
	}

	s.markRecorded(d.ID)
	s.log.Info("debate stats recorded", "debateId", d.ID, "agree", agree, "disagree", disagree)
	return nil
}

func (s *StatsRecorder) markRecorded(debateID string) {
	if err := s.store.MarkStatsRecorded(debateID); err != nil {
		s.log.Warn("stats marker write failed", "debateId", debateID, "error", err)
	}
}

// deriveCounts prefers the backend's aggregates, falls back to scanning
// the merged list, and finally to a fresh fetch. Hosts and
// neutral/spectator entries never count.
func (s *StatsRecorder) deriveCounts(ctx context.Context, d *debate.Debate, merged []debate.Participant) (int, int) {
	if d.AgreeCount > 0 || d.DisagreeCount > 0 {
		return d.AgreeCount, d.DisagreeCount
	}

	hostID := d.ResolvedHostID()
	agree, disagree := debate.CountSides(merged, hostID)
	if agree+disagree > 0 {
		return agree, disagree
	}

	fresh, err := s.backend.Participants(ctx, d.ID)
	if err != nil {
		s.log.Debug("fresh participant fetch for stats failed", "debateId", d.ID, "error", err)
		return 0, 0
	}
	return debate.CountSides(fresh, hostID)
}

// isDuplicateRecord recognizes a backend rejection that means the stats
// were recorded by someone else already.
func isDuplicateRecord(err error) bool {
	if errors.Is(err, shared.ErrConflict) {
		return true
	}
	var apiErr *shared.APIError
	return errors.As(err, &apiErr) && apiErr.Status == 400
}
