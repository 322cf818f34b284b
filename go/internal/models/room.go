package models

import (
	"time"

	"github.com/google/uuid"
)

// RoomStatus defines the lifecycle status of a draft room.
type RoomStatus string

const (
	RoomStatusPending   RoomStatus = "PENDING"
	RoomStatusActive    RoomStatus = "ACTIVE"
	RoomStatusPaused    RoomStatus = "PAUSED"
	RoomStatusCompleted RoomStatus = "COMPLETED"
)

// CanTransitionTo reports whether the lifecycle allows moving to next.
// Valid flow: PENDING -> ACTIVE -> PAUSED <-> ACTIVE -> COMPLETED.
func (s RoomStatus) CanTransitionTo(next RoomStatus) bool {
	switch s {
	case RoomStatusPending:
		return next == RoomStatusActive
	case RoomStatusActive:
		return next == RoomStatusPaused || next == RoomStatusCompleted
	case RoomStatusPaused:
		return next == RoomStatusActive
	default:
		return false
	}
}

// RoomSettings holds the per-room draft configuration.
type RoomSettings struct {
	TeamCount      int `json:"team_count" yaml:"team_count"`
	Rounds         int `json:"rounds" yaml:"rounds"`
	TimePerPickSec int `json:"time_per_pick_sec" yaml:"time_per_pick_sec"`
	GracePeriodSec int `json:"grace_period_sec" yaml:"grace_period_sec"`
}

// DefaultRoomSettings returns the standard best ball format:
// 12 teams, 18 rounds, 30 seconds per pick, 5 second grace period.
func DefaultRoomSettings() RoomSettings {
	return RoomSettings{
		TeamCount:      12,
		Rounds:         18,
		TimePerPickSec: 30,
		GracePeriodSec: 5,
	}
}

// TotalPicks returns the number of pick slots in the full draft.
func (s RoomSettings) TotalPicks() int {
	return s.TeamCount * s.Rounds
}

// Participant is one seat in a draft room. Index is stable for the life
// of the room and drives turn order.
type Participant struct {
	Index       int    `json:"index"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Bot         bool   `json:"bot"`
}

// DraftRoom represents one draft instance.
type DraftRoom struct {
	ID           uuid.UUID     `json:"id"`
	Name         string        `json:"name"`
	Status       RoomStatus    `json:"status"`
	Settings     RoomSettings  `json:"settings"`
	Participants []Participant `json:"participants"`
	ScheduledAt  *time.Time    `json:"scheduled_at,omitempty"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
