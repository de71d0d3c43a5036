package room

import "sync"

// HostResolver answers "is the local user the host" with sticky memory.
// The host linkage is denormalized across backend fields and can vanish
// from individual snapshots during a refetch; re-deriving on every
// snapshot makes host-only affordances flicker. The resolver therefore
// keeps the last non-empty host id it saw and only flips when a snapshot
// carries a different non-empty id.
type HostResolver struct {
	mu     sync.RWMutex
	userID string
	hostID string
}

func NewHostResolver(userID string) *HostResolver {
	return &HostResolver{userID: userID}
}

// Observe feeds the resolver the host id from a snapshot. An empty id is
// a partial snapshot, not a host change, and leaves memory intact.
func (r *HostResolver) Observe(hostID string) {
	if hostID == "" {
		return
	}
	r.mu.Lock()
	r.hostID = hostID
	r.mu.Unlock()
}

func (r *HostResolver) HostID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hostID
}

func (r *HostResolver) IsHost() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hostID != "" && r.hostID == r.userID
}

// Reset clears memory. Called only when the debate id changes.
func (r *HostResolver) Reset() {
	r.mu.Lock()
	r.hostID = ""
	r.mu.Unlock()
}
