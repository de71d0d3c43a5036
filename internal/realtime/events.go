package realtime

import (
	"encoding/json"

	"github.com/verbo-app/roomsync/internal/debate"
)

type EventType string

const (
	// EventParticipantsReplaced carries a full snapshot of the participant
	// list. It is always a total replacement candidate, never a delta.
	EventParticipantsReplaced EventType = "participants_replaced"
	EventStatusChanged        EventType = "status_changed"
	EventPeerJoined           EventType = "peer_joined"
)

// Event is the normalized vocabulary both channels emit. Consumers must be
// idempotent under duplicate and out-of-order delivery; no ordering is
// guaranteed between the push channel and the poll loop.
type Event struct {
	Type         EventType
	DebateID     string
	Participants []debate.Participant
	Status       debate.Status
	UserID       string
	// Debate is populated on poll-sourced status events only; push frames
	// carry just the status value.
	Debate *debate.Debate
}

// wire message types on the push channel
const (
	wireParticipantsUpdated = "debate:participants_updated"
	wireStatusChanged       = "debate:status_changed"
	wireUserJoined          = "user-joined"
)

type wireMessage struct {
	Type         string               `json:"type"`
	DebateID     string               `json:"debateId,omitempty"`
	Status       debate.Status        `json:"status,omitempty"`
	Participants []debate.Participant `json:"participants,omitempty"`
	UserID       string               `json:"userId,omitempty"`
}

// decodeWire normalizes a push-channel frame. Unknown types are ignored,
// not errors.
func decodeWire(data []byte) (Event, bool) {
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Event{}, false
	}
	switch msg.Type {
	case wireParticipantsUpdated:
		return Event{
			Type:         EventParticipantsReplaced,
			DebateID:     msg.DebateID,
			Participants: msg.Participants,
		}, true
	case wireStatusChanged:
		return Event{
			Type:     EventStatusChanged,
			DebateID: msg.DebateID,
			Status:   msg.Status,
		}, true
	case wireUserJoined:
		return Event{
			Type:     EventPeerJoined,
			DebateID: msg.DebateID,
			UserID:   msg.UserID,
		}, true
	}
	return Event{}, false
}
