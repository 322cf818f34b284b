// Package adapter abstracts room and pick persistence behind a strategy
// interface. The engine validates against possibly-stale local state, so
// AddPick is the single point of truth for "was this pick number already
// taken" and must enforce it atomically at the storage layer.
package adapter

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/bestballhq/draftengine/go/internal/models"
)

// ErrPickTaken is returned by AddPick when the pick number (or player)
// was already committed by another writer.
var ErrPickTaken = errors.New("pick already taken")

// ErrRoomNotFound is returned when a room id resolves to nothing.
var ErrRoomNotFound = errors.New("draft room not found")

// Unsubscribe cancels a subscription. Safe to call more than once.
type Unsubscribe func()

// Adapter is the persistence contract the engine consumes. Two
// implementations ship here: Memory for tests and offline drafts, and
// Postgres for production rooms.
type Adapter interface {
	// GetRoom fetches the room configuration and participants.
	GetRoom(ctx context.Context, roomID uuid.UUID) (*models.DraftRoom, error)

	// UpdateRoomStatus transitions the room lifecycle. Only the engine
	// calls this.
	UpdateRoomStatus(ctx context.Context, roomID uuid.UUID, status models.RoomStatus) error

	// SubscribeRoom registers for room change notifications. The callback
	// must not block.
	SubscribeRoom(ctx context.Context, roomID uuid.UUID, onChange func(models.DraftRoom)) (Unsubscribe, error)

	// SubscribePicks registers for pick list change notifications.
	SubscribePicks(ctx context.Context, roomID uuid.UUID, onChange func([]models.DraftPick)) (Unsubscribe, error)

	// ListPicks returns the full pick history ordered by overall pick.
	ListPicks(ctx context.Context, roomID uuid.UUID) ([]models.DraftPick, error)

	// AddPick commits a pick. It fails with ErrPickTaken when the pick
	// number already exists; this check is atomic with the write.
	AddPick(ctx context.Context, roomID uuid.UUID, pick models.DraftPick) (*models.DraftPick, error)

	// AvailablePlayers returns catalog entries not yet consumed in this
	// room, in deterministic order.
	AvailablePlayers(ctx context.Context, roomID uuid.UUID) ([]models.DraftPlayer, error)
}
