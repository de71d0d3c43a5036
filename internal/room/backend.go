package room

import (
	"context"

	"github.com/verbo-app/roomsync/internal/debate"
)

// Backend is the slice of the CRUD API the room engine drives. Every call
// must tolerate duplicates; the engine's retry and one-shot guards assume
// idempotent-safe endpoints.
type Backend interface {
	Debate(ctx context.Context, id string) (*debate.Debate, error)
	Participants(ctx context.Context, debateID string) ([]debate.Participant, error)
	Join(ctx context.Context, debateID, userID string, side debate.Side) error
	Leave(ctx context.Context, debateID, userID string) error
	UpdateStatus(ctx context.Context, debateID string, status debate.Status) error
	RecordStats(ctx context.Context, rec debate.StatsRecord) error
}
