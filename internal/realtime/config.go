package realtime

import (
	"time"

	"github.com/verbo-app/roomsync/internal/shared"
)

const (
	// DefaultParticipantInterval is the pull cadence for the participant
	// list while the local session is joined.
	DefaultParticipantInterval = 1500 * time.Millisecond
	// DefaultStatusInterval is the pull cadence for status-only checks.
	DefaultStatusInterval = 5 * time.Second
	// DefaultListInterval is the pull cadence for list-level watchers
	// (browse surfaces poll far less aggressively than a live room).
	DefaultListInterval = 30 * time.Second
)

type Config struct {
	WSBaseURL           string
	ParticipantInterval time.Duration
	StatusInterval      time.Duration
	EventBuffer         int
	Backoff             shared.BackoffConfig
}

func (c Config) withDefaults() Config {
	if c.ParticipantInterval <= 0 {
		c.ParticipantInterval = DefaultParticipantInterval
	}
	if c.StatusInterval <= 0 {
		c.StatusInterval = DefaultStatusInterval
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 64
	}
	c.Backoff = shared.NormalizeBackoff(c.Backoff)
	return c
}
