package adapter

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/bestballhq/draftengine/go/internal/models"
)

func testCatalog() []models.DraftPlayer {
	return []models.DraftPlayer{
		{ID: "rb1", FullName: "RB One", Position: models.PositionRB, ADP: 1},
		{ID: "wr1", FullName: "WR One", Position: models.PositionWR, ADP: 2},
		{ID: "qb1", FullName: "QB One", Position: models.PositionQB, ADP: 3},
	}
}

func testRoom() models.DraftRoom {
	return models.DraftRoom{
		ID:       uuid.New(),
		Name:     "test room",
		Status:   models.RoomStatusPending,
		Settings: models.RoomSettings{TeamCount: 2, Rounds: 2, TimePerPickSec: 30, GracePeriodSec: 5},
		Participants: []models.Participant{
			{Index: 0, UserID: "u0"},
			{Index: 1, UserID: "u1"},
		},
	}
}

func TestMemoryAddPickRejectsDuplicateNumber(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(clockwork.NewFakeClock(), testCatalog())
	room := testRoom()
	m.CreateRoom(context.Background(), room)

	pick := models.DraftPick{OverallPick: 1, Round: 1, Pick: 1, ParticipantIndex: 0, PlayerID: "rb1"}
	if _, err := m.AddPick(ctx, room.ID, pick); err != nil {
		t.Fatal(err)
	}

	dup := models.DraftPick{OverallPick: 1, Round: 1, Pick: 1, ParticipantIndex: 0, PlayerID: "wr1"}
	_, err := m.AddPick(ctx, room.ID, dup)
	if !errors.Is(err, ErrPickTaken) {
		t.Fatalf("got %v, want ErrPickTaken", err)
	}
}

func TestMemoryAddPickRejectsDuplicatePlayer(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(clockwork.NewFakeClock(), testCatalog())
	room := testRoom()
	m.CreateRoom(context.Background(), room)

	if _, err := m.AddPick(ctx, room.ID, models.DraftPick{OverallPick: 1, ParticipantIndex: 0, PlayerID: "rb1"}); err != nil {
		t.Fatal(err)
	}
	_, err := m.AddPick(ctx, room.ID, models.DraftPick{OverallPick: 2, ParticipantIndex: 1, PlayerID: "rb1"})
	if !errors.Is(err, ErrPickTaken) {
		t.Fatalf("got %v, want ErrPickTaken", err)
	}
}

func TestMemoryAddPickRacingWriters(t *testing.T) {
	// Two writers race the same pick number; exactly one wins.
	ctx := context.Background()
	m := NewMemory(clockwork.NewFakeClock(), testCatalog())
	room := testRoom()
	m.CreateRoom(context.Background(), room)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			player := []string{"rb1", "wr1"}[i]
			_, errs[i] = m.AddPick(ctx, room.ID, models.DraftPick{OverallPick: 1, ParticipantIndex: 0, PlayerID: player})
		}(i)
	}
	wg.Wait()

	var taken int
	for _, err := range errs {
		if errors.Is(err, ErrPickTaken) {
			taken++
		} else if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if taken != 1 {
		t.Fatalf("%d writers rejected, want exactly 1", taken)
	}

	picks, err := m.ListPicks(ctx, room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(picks) != 1 {
		t.Fatalf("%d picks committed, want 1", len(picks))
	}
}

func TestMemoryAvailablePlayers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(clockwork.NewFakeClock(), testCatalog())
	room := testRoom()
	m.CreateRoom(context.Background(), room)

	available, err := m.AvailablePlayers(ctx, room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(available) != 3 || available[0].ID != "rb1" {
		t.Fatalf("want full catalog ADP-ordered, got %v", available)
	}

	if _, err := m.AddPick(ctx, room.ID, models.DraftPick{OverallPick: 1, ParticipantIndex: 0, PlayerID: "rb1"}); err != nil {
		t.Fatal(err)
	}
	available, err = m.AvailablePlayers(ctx, room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(available) != 2 {
		t.Fatalf("drafted player still available: %v", available)
	}
	for _, p := range available {
		if p.ID == "rb1" {
			t.Fatal("rb1 should be consumed")
		}
	}
}

func TestMemorySubscribePicks(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(clockwork.NewFakeClock(), testCatalog())
	room := testRoom()
	m.CreateRoom(context.Background(), room)

	var mu sync.Mutex
	var notified [][]models.DraftPick
	unsub, err := m.SubscribePicks(ctx, room.ID, func(picks []models.DraftPick) {
		mu.Lock()
		notified = append(notified, picks)
		mu.Unlock()
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.AddPick(ctx, room.ID, models.DraftPick{OverallPick: 1, ParticipantIndex: 0, PlayerID: "rb1"}); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	n := len(notified)
	mu.Unlock()
	if n != 1 {
		t.Fatalf("got %d notifications, want 1", n)
	}

	unsub()
	unsub() // repeated unsubscribe is safe
	if _, err := m.AddPick(ctx, room.ID, models.DraftPick{OverallPick: 2, ParticipantIndex: 1, PlayerID: "wr1"}); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	n = len(notified)
	mu.Unlock()
	if n != 1 {
		t.Fatalf("notified after unsubscribe: %d", n)
	}
}

func TestMemoryRoomLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(clockwork.NewFakeClock(), testCatalog())
	room := testRoom()
	m.CreateRoom(context.Background(), room)

	if err := m.UpdateRoomStatus(ctx, room.ID, models.RoomStatusActive); err != nil {
		t.Fatal(err)
	}
	got, err := m.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.RoomStatusActive || got.StartedAt == nil {
		t.Fatalf("room not started: %+v", got)
	}

	// PENDING is not reachable from ACTIVE.
	if err := m.UpdateRoomStatus(ctx, room.ID, models.RoomStatusPending); err == nil {
		t.Fatal("expected invalid transition error")
	}

	if err := m.UpdateRoomStatus(ctx, room.ID, models.RoomStatusPaused); err != nil {
		t.Fatal(err)
	}
	if err := m.UpdateRoomStatus(ctx, room.ID, models.RoomStatusActive); err != nil {
		t.Fatal(err)
	}
	if err := m.UpdateRoomStatus(ctx, room.ID, models.RoomStatusCompleted); err != nil {
		t.Fatal(err)
	}
	got, _ = m.GetRoom(ctx, room.ID)
	if got.CompletedAt == nil {
		t.Fatal("completed room missing CompletedAt")
	}
}

func TestMemoryUnknownRoom(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(clockwork.NewFakeClock(), testCatalog())

	if _, err := m.GetRoom(ctx, uuid.New()); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("got %v, want ErrRoomNotFound", err)
	}
	if _, err := m.ListPicks(ctx, uuid.New()); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("got %v, want ErrRoomNotFound", err)
	}
}
