// Package gateway exposes running draft engines over websockets and a
// small JSON state API. Clients receive every engine event plus a full
// state sync on connect; commands flow back through the same socket.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/bestballhq/draftengine/go/internal/draft/engine"
	"github.com/bestballhq/draftengine/go/internal/draft/events"
	"github.com/bestballhq/draftengine/go/internal/draft/rules"
)

// Service routes websocket traffic to registered engines.
type Service struct {
	hub   *Hub
	clock clockwork.Clock

	mu      sync.RWMutex
	engines map[uuid.UUID]*engine.Engine
}

// NewService builds a gateway over the hub.
func NewService(hub *Hub, clock clockwork.Clock) *Service {
	return &Service{
		hub:     hub,
		clock:   clock,
		engines: make(map[uuid.UUID]*engine.Engine),
	}
}

// RegisterEngine makes a room reachable through the gateway. The service
// should also be wired into the engine's sink list so events reach
// connected clients.
func (s *Service) RegisterEngine(roomID uuid.UUID, eng *engine.Engine) {
	s.mu.Lock()
	s.engines[roomID] = eng
	s.mu.Unlock()
}

// UnregisterEngine removes a completed room.
func (s *Service) UnregisterEngine(roomID uuid.UUID) {
	s.mu.Lock()
	delete(s.engines, roomID)
	s.mu.Unlock()
}

func (s *Service) engineFor(roomID uuid.UUID) (*engine.Engine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eng, ok := s.engines[roomID]
	return eng, ok
}

// Publish implements events.Sink: every engine event is fanned out to
// the room's websocket clients.
func (s *Service) Publish(env events.Envelope) {
	roomID, err := uuid.Parse(env.RoomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", env.RoomID).Msg("event with unparseable room id")
		return
	}
	frame, err := marshalMessage(MessageEvent, env.RoomID, env)
	if err != nil {
		log.Error().Err(err).Str("event_type", env.Type).Msg("failed to marshal event frame")
		return
	}
	s.hub.Broadcast(roomID, frame)
}

// RegisterRoutes attaches the gateway endpoints to mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/draft", s.HandleDraftSocket)
	mux.HandleFunc("/api/rooms/", s.handleRoomAPI)
}

// HandleDraftSocket upgrades GET /ws/draft?room_id=...&user_id=... to a
// websocket and replays the current state to the new client.
func (s *Service) HandleDraftSocket(w http.ResponseWriter, r *http.Request) {
	roomIDStr := r.URL.Query().Get("room_id")
	if roomIDStr == "" {
		http.Error(w, "room_id is required", http.StatusBadRequest)
		return
	}
	roomID, err := uuid.Parse(roomIDStr)
	if err != nil {
		http.Error(w, "invalid room_id", http.StatusBadRequest)
		return
	}
	eng, ok := s.engineFor(roomID)
	if !ok {
		http.Error(w, "unknown room", http.StatusNotFound)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = "anonymous"
	}

	onCommand := func(ctx context.Context, cmd Command, reply func(string, any)) {
		s.dispatch(ctx, eng, roomID, cmd, reply)
	}
	onConnect := func(reply func(string, any)) {
		reply(MessageStateSync, s.stateSync(eng))
	}
	if err := s.hub.ServeWS(w, r, roomID, userID, onCommand, onConnect); err != nil {
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("websocket upgrade failed")
	}
}

// handleRoomAPI serves GET /api/rooms/{id}/state and
// GET /api/rooms/{id}/picks.
func (s *Service) handleRoomAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/rooms/")
	idStr, resource, ok := strings.Cut(rest, "/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	roomID, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}
	eng, found := s.engineFor(roomID)
	if !found {
		http.Error(w, "unknown room", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch resource {
	case "state":
		writeJSON(w, s.stateSync(eng))
	case "picks":
		writeJSON(w, eng.Picks())
	default:
		http.NotFound(w, r)
	}
}

func (s *Service) stateSync(eng *engine.Engine) StateSyncPayload {
	return StateSyncPayload{
		Snapshot: eng.Snapshot(),
		Picks:    eng.Picks(),
		SyncedAt: s.clock.Now(),
	}
}

// dispatch runs one client command against the engine. Rule violations
// go back to the issuing client; everything else is logged and reported
// as internal.
func (s *Service) dispatch(ctx context.Context, eng *engine.Engine, roomID uuid.UUID, cmd Command, reply func(string, any)) {
	var err error
	switch cmd.Action {
	case ActionMakePick:
		err = eng.MakePick(ctx, cmd.ParticipantIndex, cmd.PlayerID)
	case ActionStartDraft:
		err = eng.StartDraft(ctx)
	case ActionPauseDraft:
		err = eng.PauseDraft(ctx, cmd.Reason)
	case ActionResumeDraft:
		err = eng.ResumeDraft(ctx)
	case ActionStateSync:
		reply(MessageStateSync, s.stateSync(eng))
		return
	default:
		reply(MessageError, ErrorPayload{Action: cmd.Action, Code: "UNKNOWN_ACTION"})
		return
	}

	if err != nil {
		var v *rules.Violation
		if errors.As(err, &v) {
			reply(MessageError, ErrorPayload{Action: cmd.Action, Code: string(v.Code), Detail: v.Detail})
			return
		}
		log.Error().Err(err).Str("room_id", roomID.String()).Str("action", cmd.Action).Msg("command failed")
		reply(MessageError, ErrorPayload{Action: cmd.Action, Code: "INTERNAL"})
		return
	}
	reply(MessageAck, AckPayload{Action: cmd.Action})
}

func writeJSON(w http.ResponseWriter, payload any) {
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
