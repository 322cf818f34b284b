package engine

import (
	"github.com/google/uuid"

	"github.com/bestballhq/draftengine/go/internal/draft/order"
	"github.com/bestballhq/draftengine/go/internal/draft/timer"
	"github.com/bestballhq/draftengine/go/internal/models"
)

// Snapshot is the read-only derived view of the draft. It is recomputed
// from the pick history on every update; the engine holds no
// independently-mutable status that could desync from the pick list.
type Snapshot struct {
	RoomID uuid.UUID         `json:"room_id"`
	Status models.RoomStatus `json:"status"`

	CurrentPick        int    `json:"current_pick"`        // next overall pick; TotalPicks+1 once complete
	CurrentParticipant int    `json:"current_participant"` // -1 once complete
	Round              int    `json:"round"`
	PickInRound        int    `json:"pick_in_round"`
	FormattedPick      string `json:"formatted_pick"`

	IsLocalTurn bool  `json:"is_local_turn"`
	PickCounts  []int `json:"pick_counts"` // committed picks per participant
	TotalPicks  int   `json:"total_picks"`
	Complete    bool  `json:"complete"`

	SecondsRemaining int           `json:"seconds_remaining"`
	InGracePeriod    bool          `json:"in_grace_period"`
	Urgency          timer.Urgency `json:"urgency"`
}

// computeSnapshot derives the current view from the room config and the
// confirmed pick history.
func computeSnapshot(room models.DraftRoom, picks []models.DraftPick, localParticipant int) Snapshot {
	settings := room.Settings
	total := settings.TotalPicks()
	counts := make([]int, settings.TeamCount)
	for _, p := range picks {
		if p.ParticipantIndex >= 0 && p.ParticipantIndex < len(counts) {
			counts[p.ParticipantIndex]++
		}
	}

	snap := Snapshot{
		RoomID:     room.ID,
		Status:     room.Status,
		PickCounts: counts,
		TotalPicks: total,
	}

	current := len(picks) + 1
	snap.CurrentPick = current
	if current > total {
		snap.Complete = true
		snap.CurrentParticipant = -1
		snap.IsLocalTurn = false
		return snap
	}

	snap.CurrentParticipant = order.ParticipantForPick(current, settings.TeamCount)
	snap.Round = order.RoundForPick(current, settings.TeamCount)
	snap.PickInRound = order.PickInRound(current, settings.TeamCount)
	snap.FormattedPick = order.FormatPickNumber(current, settings.TeamCount)
	snap.IsLocalTurn = localParticipant >= 0 && snap.CurrentParticipant == localParticipant
	return snap
}
