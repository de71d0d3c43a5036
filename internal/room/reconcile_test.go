package room

import (
	"testing"
	"time"

	"github.com/verbo-app/roomsync/internal/debate"
)

func part(userID string, side debate.Side) debate.Participant {
	return debate.Participant{ID: "rec-" + userID, UserID: userID, Side: side}
}

func countUser(list []debate.Participant, userID string) int {
	n := 0
	for _, p := range list {
		if p.UserID == userID {
			n++
		}
	}
	return n
}

func TestReconciler_VerbatimWhenPresent(t *testing.T) {
	r := NewReconciler(testIdentity())
	now := time.Now()

	snapshot := []debate.Participant{part("u-local", debate.SideAgree), part("u2", debate.SideDisagree)}
	m := r.Apply(snapshot, true, debate.SideAgree, now)

	if m.Shadowed || m.Desync {
		t.Fatalf("unexpected shadow/desync: %+v", m)
	}
	if len(m.Participants) != 2 {
		t.Fatalf("got %d participants, want 2", len(m.Participants))
	}
}

func TestReconciler_ShadowAcrossOmittingSnapshots(t *testing.T) {
	r := NewReconciler(testIdentity())
	now := time.Now()

	// Three consecutive snapshots omit the local user after a join; each
	// merge still shows exactly one local entry via the shadow.
	for i := 0; i < 3; i++ {
		snapshot := []debate.Participant{part("u2", debate.SideDisagree)}
		m := r.Apply(snapshot, true, debate.SideAgree, now.Add(time.Duration(i)*time.Second))

		if !m.Shadowed {
			t.Fatalf("snapshot %d: expected shadow entry", i)
		}
		if m.Desync {
			t.Fatalf("snapshot %d: desync before the window expired", i)
		}
		if got := countUser(m.Participants, "u-local"); got != 1 {
			t.Fatalf("snapshot %d: local user appears %d times, want 1", i, got)
		}
		shadow := m.Participants[len(m.Participants)-1]
		if shadow.Side != debate.SideAgree || !shadow.IsSelfMuted {
			t.Fatalf("shadow entry wrong: %+v", shadow)
		}
	}

	// Convergence clears the window.
	m := r.Apply([]debate.Participant{part("u-local", debate.SideAgree)}, true, debate.SideAgree, now.Add(5*time.Second))
	if m.Shadowed || !r.windowStart.IsZero() {
		t.Fatal("window not cleared on convergence")
	}
}

func TestReconciler_NoDuplicateUserIDs(t *testing.T) {
	r := NewReconciler(testIdentity())
	now := time.Now()

	// Arbitrary interleavings: authoritative copies, stale rows with a
	// different record id, and the shadow must never produce two entries
	// for one user id.
	snapshots := [][]debate.Participant{
		{part("u-local", debate.SideAgree), part("u2", debate.SideDisagree)},
		{part("u2", debate.SideDisagree)},
		{{ID: "rec-a", UserID: "u-local", Side: debate.SideAgree}, {ID: "rec-b", UserID: "u-local", Side: debate.SideAgree}},
		{part("u2", debate.SideDisagree), part("u2", debate.SideAgree)},
		{part("u-local", debate.SideAgree)},
	}
	for i, snapshot := range snapshots {
		m := r.Apply(snapshot, true, debate.SideAgree, now)
		seen := map[string]int{}
		for _, p := range m.Participants {
			seen[p.UserID]++
		}
		for userID, n := range seen {
			if n > 1 {
				t.Fatalf("snapshot %d: user %q appears %d times", i, userID, n)
			}
		}
	}
}

func TestReconciler_DesyncAfterWindow(t *testing.T) {
	r := NewReconciler(testIdentity())
	start := time.Now()
	empty := []debate.Participant{part("u2", debate.SideDisagree)}

	if m := r.Apply(empty, true, debate.SideAgree, start); m.Desync {
		t.Fatal("desync on the first absent snapshot")
	}
	if m := r.Apply(empty, true, debate.SideAgree, start.Add(9*time.Second)); m.Desync {
		t.Fatal("desync before 10s")
	}
	m := r.Apply(empty, true, debate.SideAgree, start.Add(10*time.Second))
	if !m.Desync {
		t.Fatal("no desync at the 10s threshold")
	}

	// One corrective re-join budget per window.
	if !r.SpendCorrection() {
		t.Fatal("first correction unavailable")
	}
	if r.SpendCorrection() {
		t.Fatal("second correction granted")
	}

	// Convergence restores the budget.
	r.Apply([]debate.Participant{part("u-local", debate.SideAgree)}, true, debate.SideAgree, start.Add(11*time.Second))
	if !r.SpendCorrection() {
		t.Fatal("correction budget not restored on convergence")
	}
}

func TestReconciler_NotJoinedNoShadow(t *testing.T) {
	r := NewReconciler(testIdentity())
	m := r.Apply([]debate.Participant{part("u2", debate.SideDisagree)}, false, "", time.Now())
	if m.Shadowed || countUser(m.Participants, "u-local") != 0 {
		t.Fatal("shadow synthesized for a session that never joined")
	}
}
