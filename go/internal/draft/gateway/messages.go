package gateway

import (
	"encoding/json"
	"time"

	"github.com/bestballhq/draftengine/go/internal/draft/engine"
	"github.com/bestballhq/draftengine/go/internal/models"
)

// Server to client message types.
const (
	MessageStateSync = "StateSync"
	MessageEvent     = "Event"
	MessageError     = "Error"
	MessageAck       = "Ack"
)

// Client to server actions.
const (
	ActionMakePick    = "make_pick"
	ActionStartDraft  = "start_draft"
	ActionPauseDraft  = "pause_draft"
	ActionResumeDraft = "resume_draft"
	ActionStateSync   = "state_sync"
)

// Message is the framing for everything the gateway sends down a
// websocket.
type Message struct {
	Type   string          `json:"type"`
	RoomID string          `json:"room_id"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Command is a client request received over a websocket.
type Command struct {
	Action           string `json:"action"`
	ParticipantIndex int    `json:"participant_index"`
	PlayerID         string `json:"player_id,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

// StateSyncPayload carries the full room view sent on connect and on
// explicit state_sync requests. SecondsRemaining in the snapshot is
// live, so a reconnecting client lands on the right clock.
type StateSyncPayload struct {
	Snapshot engine.Snapshot    `json:"snapshot"`
	Picks    []models.DraftPick `json:"picks"`
	SyncedAt time.Time          `json:"synced_at"`
}

// ErrorPayload reports a rejected command back to the issuing client.
type ErrorPayload struct {
	Action string `json:"action"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

// AckPayload confirms an accepted command.
type AckPayload struct {
	Action string `json:"action"`
}

func marshalMessage(msgType string, roomID string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: msgType, RoomID: roomID, Data: data})
}
