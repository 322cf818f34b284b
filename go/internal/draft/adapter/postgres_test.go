package adapter

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/bestballhq/draftengine/go/internal/models"
)

// A Postgres adapter built without a notifier must still serve
// subscriptions; the engine subscribes at boot before any query runs.
func TestPostgresNilNotifierSubscribes(t *testing.T) {
	ctx := context.Background()
	pg := NewPostgres(nil, nil)
	roomID := uuid.New()

	unsubRoom, err := pg.SubscribeRoom(ctx, roomID, func(models.DraftRoom) {
		t.Error("room callback fired without a notifier")
	})
	if err != nil {
		t.Fatalf("subscribe room: %v", err)
	}
	unsubRoom()

	unsubPicks, err := pg.SubscribePicks(ctx, roomID, func([]models.DraftPick) {
		t.Error("picks callback fired without a notifier")
	})
	if err != nil {
		t.Fatalf("subscribe picks: %v", err)
	}
	unsubPicks()
}

func TestNoopNotifierPublishes(t *testing.T) {
	var n Notifier = noopNotifier{}
	if err := n.PublishRoomChanged(uuid.New()); err != nil {
		t.Fatalf("publish room: %v", err)
	}
	if err := n.PublishPicksChanged(uuid.New()); err != nil {
		t.Fatalf("publish picks: %v", err)
	}
}
