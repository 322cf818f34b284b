package models

import (
	"time"

	"github.com/google/uuid"
)

// PickSource identifies which ranked source an autopick came from.
type PickSource string

const (
	PickSourceQueue   PickSource = "queue"
	PickSourceRanking PickSource = "custom_ranking"
	PickSourceADP     PickSource = "adp"
)

// DraftPick is one immutable pick record. The ordered sequence of picks
// is the draft's full history and the sole source of truth for who has
// what.
type DraftPick struct {
	ID               uuid.UUID  `json:"id"`
	RoomID           uuid.UUID  `json:"room_id"`
	OverallPick      int        `json:"overall_pick"` // 1-indexed, gapless
	Round            int        `json:"round"`
	Pick             int        `json:"pick"` // pick number within the round
	ParticipantIndex int        `json:"participant_index"`
	PlayerID         string     `json:"player_id"`
	Auto             bool       `json:"auto"`
	AutoSource       PickSource `json:"auto_source,omitempty"` // empty for manual picks
	PickedAt         time.Time  `json:"picked_at"`
}
