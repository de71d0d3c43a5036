package room

import (
	"time"

	"github.com/verbo-app/roomsync/internal/debate"
)

// convergenceWindow bounds how long a shadow participant is tolerated
// before an absent local user counts as a genuine desync.
const convergenceWindow = 10 * time.Second

// Reconciler merges authoritative participant snapshots with the local
// shadow entry. Backend writes and read replicas are not immediately
// consistent after a join, so the local user can be missing from the list
// for several poll cycles; the shadow entry keeps them visible until the
// backend catches up or the window expires.
//
// Not safe for concurrent use: the Manager's event loop owns it.
type Reconciler struct {
	identity debate.Identity

	windowStart time.Time
	corrected   bool
}

// Merge is the reconciliation outcome for one snapshot.
type Merge struct {
	Participants []debate.Participant
	Shadowed     bool
	// Desync is set when the window has expired with the local user still
	// absent. The caller re-fetches, retries once, or demotes.
	Desync bool
}

func NewReconciler(identity debate.Identity) *Reconciler {
	return &Reconciler{identity: identity}
}

// Apply merges one authoritative snapshot. Every snapshot is a total
// replacement candidate; matching is by user id only, never by the
// participant record id.
func (r *Reconciler) Apply(snapshot []debate.Participant, joined bool, side debate.Side, now time.Time) Merge {
	merged := dedupeByUser(snapshot)

	for _, p := range merged {
		if p.UserID == r.identity.UserID {
			// Converged. Window and correction budget reset.
			r.windowStart = time.Time{}
			r.corrected = false
			return Merge{Participants: merged}
		}
	}

	if !joined && r.windowStart.IsZero() {
		return Merge{Participants: merged}
	}

	merged = append(merged, r.shadow(side))
	if r.windowStart.IsZero() {
		r.windowStart = now
	}

	return Merge{
		Participants: merged,
		Shadowed:     true,
		Desync:       now.Sub(r.windowStart) >= convergenceWindow,
	}
}

// SpendCorrection consumes the single corrective re-join budget for the
// current window. Returns false once spent.
func (r *Reconciler) SpendCorrection() bool {
	if r.corrected {
		return false
	}
	r.corrected = true
	return true
}

// RestartWindow gives a successful corrective re-join a fresh window.
func (r *Reconciler) RestartWindow(now time.Time) {
	r.windowStart = now
}

func (r *Reconciler) Reset() {
	r.windowStart = time.Time{}
	r.corrected = false
}

func (r *Reconciler) shadow(side debate.Side) debate.Participant {
	if side == "" {
		side = debate.SideNeutral
	}
	return debate.Participant{
		UserID:      r.identity.UserID,
		Side:        side,
		IsSelfMuted: true,
		DisplayName: r.identity.DisplayName,
		Handle:      r.identity.Handle,
		Avatar:      r.identity.Avatar,
	}
}

// dedupeByUser keeps the first entry per user id. Server lists keyed by
// record id can carry stale rows for the same user after a rapid
// leave/rejoin.
func dedupeByUser(in []debate.Participant) []debate.Participant {
	seen := make(map[string]struct{}, len(in))
	out := make([]debate.Participant, 0, len(in))
	for _, p := range in {
		if p.UserID == "" {
			continue
		}
		if _, dup := seen[p.UserID]; dup {
			continue
		}
		seen[p.UserID] = struct{}{}
		out = append(out, p)
	}
	return out
}
