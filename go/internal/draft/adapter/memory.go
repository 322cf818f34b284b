package adapter

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/bestballhq/draftengine/go/internal/models"
)

// Memory is the reference in-process adapter used by tests and offline
// drafts. AddPick holds the lock across the duplicate check and the
// append, which makes it atomic the same way the postgres unique index
// does.
type Memory struct {
	clock clockwork.Clock

	mu       sync.Mutex
	rooms    map[uuid.UUID]*models.DraftRoom
	picks    map[uuid.UUID][]models.DraftPick
	catalog  []models.DraftPlayer
	roomSubs map[uuid.UUID]map[int]func(models.DraftRoom)
	pickSubs map[uuid.UUID]map[int]func([]models.DraftPick)
	nextSub  int
}

// NewMemory builds an empty adapter over the given player catalog.
func NewMemory(clock clockwork.Clock, catalog []models.DraftPlayer) *Memory {
	pool := make([]models.DraftPlayer, len(catalog))
	copy(pool, catalog)
	sort.Slice(pool, func(i, j int) bool {
		if pool[i].ADP != pool[j].ADP {
			return pool[i].ADP < pool[j].ADP
		}
		return pool[i].ID < pool[j].ID
	})
	return &Memory{
		clock:    clock,
		rooms:    make(map[uuid.UUID]*models.DraftRoom),
		picks:    make(map[uuid.UUID][]models.DraftPick),
		catalog:  pool,
		roomSubs: make(map[uuid.UUID]map[int]func(models.DraftRoom)),
		pickSubs: make(map[uuid.UUID]map[int]func([]models.DraftPick)),
	}
}

// CreateRoom registers a room.
func (m *Memory) CreateRoom(_ context.Context, room models.DraftRoom) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rooms[room.ID]; exists {
		return fmt.Errorf("room %s already exists", room.ID)
	}
	now := m.clock.Now()
	room.CreatedAt = now
	room.UpdatedAt = now
	if room.Status == "" {
		room.Status = models.RoomStatusPending
	}
	copied := room
	m.rooms[room.ID] = &copied
	return nil
}

// GetRoom implements Adapter.
func (m *Memory) GetRoom(_ context.Context, roomID uuid.UUID) (*models.DraftRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	copied := *room
	return &copied, nil
}

// UpdateRoomStatus implements Adapter.
func (m *Memory) UpdateRoomStatus(_ context.Context, roomID uuid.UUID, status models.RoomStatus) error {
	m.mu.Lock()
	room, ok := m.rooms[roomID]
	if !ok {
		m.mu.Unlock()
		return ErrRoomNotFound
	}
	if !room.Status.CanTransitionTo(status) {
		m.mu.Unlock()
		return fmt.Errorf("invalid status transition %s -> %s", room.Status, status)
	}
	now := m.clock.Now()
	room.Status = status
	room.UpdatedAt = now
	switch status {
	case models.RoomStatusActive:
		if room.StartedAt == nil {
			room.StartedAt = &now
		}
	case models.RoomStatusCompleted:
		room.CompletedAt = &now
	}
	snapshot := *room
	subs := m.roomSubsSnapshot(roomID)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
	return nil
}

// SubscribeRoom implements Adapter.
func (m *Memory) SubscribeRoom(_ context.Context, roomID uuid.UUID, onChange func(models.DraftRoom)) (Unsubscribe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[roomID]; !ok {
		return nil, ErrRoomNotFound
	}
	if m.roomSubs[roomID] == nil {
		m.roomSubs[roomID] = make(map[int]func(models.DraftRoom))
	}
	id := m.nextSub
	m.nextSub++
	m.roomSubs[roomID][id] = onChange

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.roomSubs[roomID], id)
			m.mu.Unlock()
		})
	}, nil
}

// SubscribePicks implements Adapter.
func (m *Memory) SubscribePicks(_ context.Context, roomID uuid.UUID, onChange func([]models.DraftPick)) (Unsubscribe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[roomID]; !ok {
		return nil, ErrRoomNotFound
	}
	if m.pickSubs[roomID] == nil {
		m.pickSubs[roomID] = make(map[int]func([]models.DraftPick))
	}
	id := m.nextSub
	m.nextSub++
	m.pickSubs[roomID][id] = onChange

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.pickSubs[roomID], id)
			m.mu.Unlock()
		})
	}, nil
}

// ListPicks implements Adapter.
func (m *Memory) ListPicks(_ context.Context, roomID uuid.UUID) ([]models.DraftPick, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[roomID]; !ok {
		return nil, ErrRoomNotFound
	}
	return m.picksSnapshotLocked(roomID), nil
}

// AddPick implements Adapter. The duplicate checks and the append happen
// under one lock, so two racing writers cannot both land the same pick
// number or player.
func (m *Memory) AddPick(_ context.Context, roomID uuid.UUID, pick models.DraftPick) (*models.DraftPick, error) {
	m.mu.Lock()
	if _, ok := m.rooms[roomID]; !ok {
		m.mu.Unlock()
		return nil, ErrRoomNotFound
	}
	for _, existing := range m.picks[roomID] {
		if existing.OverallPick == pick.OverallPick {
			m.mu.Unlock()
			return nil, fmt.Errorf("pick %d: %w", pick.OverallPick, ErrPickTaken)
		}
		if existing.PlayerID == pick.PlayerID {
			m.mu.Unlock()
			return nil, fmt.Errorf("player %s: %w", pick.PlayerID, ErrPickTaken)
		}
	}
	if pick.ID == uuid.Nil {
		pick.ID = uuid.New()
	}
	if pick.PickedAt.IsZero() {
		pick.PickedAt = m.clock.Now()
	}
	pick.RoomID = roomID
	m.picks[roomID] = append(m.picks[roomID], pick)
	sort.Slice(m.picks[roomID], func(i, j int) bool {
		return m.picks[roomID][i].OverallPick < m.picks[roomID][j].OverallPick
	})

	committed := pick
	snapshot := m.picksSnapshotLocked(roomID)
	subs := m.pickSubsSnapshot(roomID)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
	return &committed, nil
}

// AvailablePlayers implements Adapter. The pool is ordered by ascending
// ADP with id tie-break, so callers see a deterministic list.
func (m *Memory) AvailablePlayers(_ context.Context, roomID uuid.UUID) ([]models.DraftPlayer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[roomID]; !ok {
		return nil, ErrRoomNotFound
	}
	taken := make(map[string]bool, len(m.picks[roomID]))
	for _, p := range m.picks[roomID] {
		taken[p.PlayerID] = true
	}
	available := make([]models.DraftPlayer, 0, len(m.catalog)-len(taken))
	for _, p := range m.catalog {
		if !taken[p.ID] {
			available = append(available, p)
		}
	}
	return available, nil
}

func (m *Memory) picksSnapshotLocked(roomID uuid.UUID) []models.DraftPick {
	out := make([]models.DraftPick, len(m.picks[roomID]))
	copy(out, m.picks[roomID])
	return out
}

func (m *Memory) roomSubsSnapshot(roomID uuid.UUID) []func(models.DraftRoom) {
	subs := make([]func(models.DraftRoom), 0, len(m.roomSubs[roomID]))
	for _, fn := range m.roomSubs[roomID] {
		subs = append(subs, fn)
	}
	return subs
}

func (m *Memory) pickSubsSnapshot(roomID uuid.UUID) []func([]models.DraftPick) {
	subs := make([]func([]models.DraftPick), 0, len(m.pickSubs[roomID]))
	for _, fn := range m.pickSubs[roomID] {
		subs = append(subs, fn)
	}
	return subs
}

var _ Adapter = (*Memory)(nil)
