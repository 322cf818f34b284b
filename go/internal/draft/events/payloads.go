// Package events defines the payloads the engine publishes as the draft
// progresses. The NATS notifier and the websocket gateway both consume
// these.
package events

import (
	"time"

	"github.com/bestballhq/draftengine/go/internal/models"
)

// Event types routed through Sink implementations.
const (
	TypeDraftStarted     = "DraftStarted"
	TypeDraftPaused      = "DraftPaused"
	TypeDraftResumed     = "DraftResumed"
	TypeDraftCompleted   = "DraftCompleted"
	TypePickStarted      = "PickStarted"
	TypePickMade         = "PickMade"
	TypeGracePeriodStart = "GracePeriodStart"
)

// Envelope wraps one event for transport.
type Envelope struct {
	Type       string    `json:"type"`
	RoomID     string    `json:"room_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// Sink receives engine events. Implementations must not block.
type Sink interface {
	Publish(env Envelope)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(env Envelope)

// Publish implements Sink.
func (f SinkFunc) Publish(env Envelope) { f(env) }

// PickStartedPayload announces that a pick clock has started.
type PickStartedPayload struct {
	OverallPick      int       `json:"overall_pick"`
	Round            int       `json:"round"`
	Pick             int       `json:"pick"`
	ParticipantIndex int       `json:"participant_index"`
	StartedAt        time.Time `json:"started_at"`
	TimePerPickSec   int       `json:"time_per_pick_sec"`
	GracePeriodSec   int       `json:"grace_period_sec"`
}

// PickMadePayload announces a committed pick.
type PickMadePayload struct {
	PickID           string            `json:"pick_id"`
	OverallPick      int               `json:"overall_pick"`
	Round            int               `json:"round"`
	Pick             int               `json:"pick"`
	ParticipantIndex int               `json:"participant_index"`
	PlayerID         string            `json:"player_id"`
	Auto             bool              `json:"auto"`
	AutoSource       models.PickSource `json:"auto_source,omitempty"`
	MadeAt           time.Time         `json:"made_at"`
}

// DraftStartedPayload announces the room going active.
type DraftStartedPayload struct {
	StartedAt   time.Time `json:"started_at"`
	TotalRounds int       `json:"total_rounds"`
	TotalPicks  int       `json:"total_picks"`
}

// DraftPausedPayload announces an operator pause.
type DraftPausedPayload struct {
	PausedAt time.Time `json:"paused_at"`
	Reason   string    `json:"reason,omitempty"`
}

// DraftResumedPayload announces the room resuming.
type DraftResumedPayload struct {
	ResumedAt time.Time `json:"resumed_at"`
}

// DraftCompletedPayload announces the final pick landing.
type DraftCompletedPayload struct {
	CompletedAt time.Time `json:"completed_at"`
	TotalPicks  int       `json:"total_picks"`
}
