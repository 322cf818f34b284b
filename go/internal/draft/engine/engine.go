// Package engine orchestrates one draft room: it derives state from the
// adapter's confirmed pick history, runs the per-pick countdown, honors
// manual picks, and autopicks when a clock expires. All state
// transitions happen on a single event loop goroutine; timer ticks and
// adapter change notifications are delivered into it as wakeups.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/bestballhq/draftengine/go/internal/draft/adapter"
	"github.com/bestballhq/draftengine/go/internal/draft/autopick"
	"github.com/bestballhq/draftengine/go/internal/draft/events"
	"github.com/bestballhq/draftengine/go/internal/draft/rules"
	"github.com/bestballhq/draftengine/go/internal/draft/timer"
	"github.com/bestballhq/draftengine/go/internal/models"
)

// NoLocalParticipant configures the engine to host every seat: it runs
// the clock and autopicks for all participants.
const NoLocalParticipant = -1

// QueueProvider supplies each participant's ordered player queue at
// autopick time.
type QueueProvider interface {
	QueueFor(participantIndex int) []string
}

// QueueProviderFunc adapts a function to QueueProvider.
type QueueProviderFunc func(participantIndex int) []string

// QueueFor implements QueueProvider.
func (f QueueProviderFunc) QueueFor(idx int) []string { return f(idx) }

// Config wires an Engine.
type Config struct {
	RoomID uuid.UUID

	// LocalParticipant is the seat this engine acts for, or
	// NoLocalParticipant to host the whole room.
	LocalParticipant int

	// Autodraft holds per-participant settings. Missing entries use the
	// zero config with default position limits. Seats with Enabled set
	// autopick as soon as their turn starts.
	Autodraft map[int]models.AutodraftConfig

	// Queues supplies participant queues. Optional.
	Queues QueueProvider

	// Strategy picks a player on expiry. Defaults to the cascade.
	Strategy autopick.Strategy

	// Clock defaults to the real clock.
	Clock clockwork.Clock

	// Sinks receive draft events. Optional.
	Sinks []events.Sink
}

type pickRequest struct {
	participantIndex int
	playerID         string
	reply            chan error
}

type controlKind int

const (
	controlStart controlKind = iota
	controlPause
	controlResume
)

type controlRequest struct {
	kind   controlKind
	reason string
	reply  chan error
}

// Engine drives one draft room.
type Engine struct {
	adp   adapter.Adapter
	cfg   Config
	clock clockwork.Clock
	strat autopick.Strategy

	countdown *timer.Countdown

	wakeCh    chan struct{}
	expireCh  chan int
	pickCh    chan pickRequest
	controlCh chan controlRequest
	doneCh    chan struct{}
	doneOnce  sync.Once

	mu       sync.RWMutex
	room     models.DraftRoom
	picks    []models.DraftPick
	snap     Snapshot
	pendRoom *models.DraftRoom // latest pushed room update, applied by the loop

	// playersByID caches catalog entries observed in available pools so
	// picked players keep their position metadata. Loop goroutine only.
	playersByID map[string]models.DraftPlayer
}

// New builds an engine for one room. Run must be called to start it.
func New(adp adapter.Adapter, cfg Config) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Strategy == nil {
		cfg.Strategy = autopick.NewCascadeStrategy()
	}
	return &Engine{
		adp:       adp,
		cfg:       cfg,
		clock:     cfg.Clock,
		strat:     cfg.Strategy,
		wakeCh:    make(chan struct{}, 1),
		expireCh:  make(chan int, 1),
		pickCh:    make(chan pickRequest),
		controlCh: make(chan controlRequest),
		doneCh:    make(chan struct{}),
	}
}

// Run subscribes to the adapter and processes events until the draft
// completes or ctx is cancelled. It returns nil on completion.
func (e *Engine) Run(ctx context.Context) error {
	// Done must close on every exit path, including startup failures, so
	// callers blocked in MakePick or a control call always unblock.
	defer e.markDone()

	room, err := e.adp.GetRoom(ctx, e.cfg.RoomID)
	if err != nil {
		return fmt.Errorf("failed to load room: %w", err)
	}
	e.mu.Lock()
	e.room = *room
	e.mu.Unlock()

	unsubRoom, err := e.adp.SubscribeRoom(ctx, e.cfg.RoomID, e.onRoomChanged)
	if err != nil {
		return fmt.Errorf("failed to subscribe to room: %w", err)
	}
	defer unsubRoom()

	unsubPicks, err := e.adp.SubscribePicks(ctx, e.cfg.RoomID, e.onPicksChanged)
	if err != nil {
		return fmt.Errorf("failed to subscribe to picks: %w", err)
	}
	defer unsubPicks()

	countdown := timer.New(e.clock, room.Settings.TimePerPickSec, room.Settings.GracePeriodSec, timer.Callbacks{
		OnGracePeriodStart: e.onGracePeriodStart,
		OnExpire:           e.onCountdownExpire,
	})
	defer countdown.Stop()
	// Published under the lock: Snapshot may run from gateway goroutines
	// before the loop is up.
	e.mu.Lock()
	e.countdown = countdown
	e.mu.Unlock()

	log.Info().
		Str("room_id", e.cfg.RoomID.String()).
		Int("team_count", room.Settings.TeamCount).
		Int("rounds", room.Settings.Rounds).
		Msg("engine started")

	if err := e.resync(ctx); err != nil {
		return err
	}

	for {
		e.mu.RLock()
		complete := e.snap.Complete
		e.mu.RUnlock()
		if complete {
			return nil
		}

		select {
		case <-ctx.Done():
			log.Info().Str("room_id", e.cfg.RoomID.String()).Msg("engine shutting down")
			return nil
		case <-e.wakeCh:
			e.applyPendingRoom()
			if err := e.resync(ctx); err != nil {
				log.Error().Err(err).Str("room_id", e.cfg.RoomID.String()).Msg("resync failed")
			}
		case pickNumber := <-e.expireCh:
			e.handleExpire(ctx, pickNumber)
		case req := <-e.pickCh:
			req.reply <- e.handleManualPick(ctx, req)
		case req := <-e.controlCh:
			req.reply <- e.handleControl(ctx, req)
		}
	}
}

// Snapshot returns the current derived view with live timer fields.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	snap := e.snap
	countdown := e.countdown
	e.mu.RUnlock()
	if countdown != nil && snap.Status == models.RoomStatusActive && !snap.Complete {
		snap.SecondsRemaining = countdown.Remaining()
		snap.InGracePeriod = countdown.InGracePeriod()
		snap.Urgency = timer.UrgencyFor(snap.SecondsRemaining)
	}
	return snap
}

// Picks returns a copy of the confirmed pick history.
func (e *Engine) Picks() []models.DraftPick {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.DraftPick, len(e.picks))
	copy(out, e.picks)
	return out
}

// Done is closed when the engine stops, either on completion or
// shutdown.
func (e *Engine) Done() <-chan struct{} { return e.doneCh }

// MakePick submits a manual pick on behalf of a participant. Rule
// violations come back as *rules.Violation values; a write conflict with
// a racing autopick surfaces as PLAYER_UNAVAILABLE.
func (e *Engine) MakePick(ctx context.Context, participantIndex int, playerID string) error {
	req := pickRequest{participantIndex: participantIndex, playerID: playerID, reply: make(chan error, 1)}
	select {
	case e.pickCh <- req:
	case <-e.doneCh:
		return &rules.Violation{Code: rules.CodeDraftNotActive, Detail: "draft is not running"}
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartDraft activates a pending room and starts the first pick clock.
func (e *Engine) StartDraft(ctx context.Context) error {
	return e.control(ctx, controlRequest{kind: controlStart, reply: make(chan error, 1)})
}

// PauseDraft freezes the room and the pick clock.
func (e *Engine) PauseDraft(ctx context.Context, reason string) error {
	return e.control(ctx, controlRequest{kind: controlPause, reason: reason, reply: make(chan error, 1)})
}

// ResumeDraft unfreezes a paused room, continuing from the remaining
// time rather than a full clock.
func (e *Engine) ResumeDraft(ctx context.Context) error {
	return e.control(ctx, controlRequest{kind: controlResume, reply: make(chan error, 1)})
}

func (e *Engine) control(ctx context.Context, req controlRequest) error {
	select {
	case e.controlCh <- req:
	case <-e.doneCh:
		return &rules.Violation{Code: rules.CodeDraftNotActive, Detail: "draft is not running"}
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// onRoomChanged runs on the adapter's notification goroutine. It parks
// the update and wakes the loop.
func (e *Engine) onRoomChanged(room models.DraftRoom) {
	e.mu.Lock()
	e.pendRoom = &room
	e.mu.Unlock()
	e.wake()
}

// onPicksChanged runs on the adapter's notification goroutine.
func (e *Engine) onPicksChanged([]models.DraftPick) {
	e.wake()
}

func (e *Engine) wake() {
	select {
	case e.wakeCh <- struct{}{}:
	default:
	}
}

func (e *Engine) markDone() {
	e.doneOnce.Do(func() { close(e.doneCh) })
}

func (e *Engine) onGracePeriodStart() {
	e.mu.RLock()
	pickNumber := e.snap.CurrentPick
	participant := e.snap.CurrentParticipant
	graceSec := e.room.Settings.GracePeriodSec
	e.mu.RUnlock()
	e.emit(events.TypeGracePeriodStart, events.PickStartedPayload{
		OverallPick:      pickNumber,
		ParticipantIndex: participant,
		GracePeriodSec:   graceSec,
	})
}

// onCountdownExpire runs on the timer goroutine. The loop re-validates
// the pick number, so a stale expiry against an already-advanced pick is
// dropped.
func (e *Engine) onCountdownExpire() {
	e.mu.RLock()
	pickNumber := e.snap.CurrentPick
	e.mu.RUnlock()
	select {
	case e.expireCh <- pickNumber:
	default:
	}
}

// applyPendingRoom folds a pushed room update into engine state and
// mirrors lifecycle changes onto the countdown.
func (e *Engine) applyPendingRoom() {
	e.mu.Lock()
	pending := e.pendRoom
	e.pendRoom = nil
	if pending == nil {
		e.mu.Unlock()
		return
	}
	prev := e.room.Status
	e.room = *pending
	e.mu.Unlock()

	if prev == pending.Status {
		return
	}
	switch pending.Status {
	case models.RoomStatusPaused:
		e.countdown.Pause()
	case models.RoomStatusActive:
		if prev == models.RoomStatusPaused {
			e.countdown.Resume()
		}
	}
}

// resync re-derives the snapshot from confirmed adapter state and
// advances the pick clock when the current pick moved.
func (e *Engine) resync(ctx context.Context) error {
	picks, err := e.adp.ListPicks(ctx, e.cfg.RoomID)
	if err != nil {
		return fmt.Errorf("failed to list picks: %w", err)
	}

	e.mu.Lock()
	prevPick := e.snap.CurrentPick
	e.picks = picks
	e.snap = computeSnapshot(e.room, picks, e.cfg.LocalParticipant)
	snap := e.snap
	room := e.room
	e.mu.Unlock()

	if snap.Complete {
		e.finalize(ctx, room)
		return nil
	}

	if room.Status == models.RoomStatusActive && snap.CurrentPick != prevPick {
		e.countdown.Reset()
		e.countdown.Start()
		e.emit(events.TypePickStarted, events.PickStartedPayload{
			OverallPick:      snap.CurrentPick,
			Round:            snap.Round,
			Pick:             snap.PickInRound,
			ParticipantIndex: snap.CurrentParticipant,
			StartedAt:        e.clock.Now(),
			TimePerPickSec:   room.Settings.TimePerPickSec,
			GracePeriodSec:   room.Settings.GracePeriodSec,
		})
		log.Debug().
			Str("room_id", room.ID.String()).
			Int("overall_pick", snap.CurrentPick).
			Int("participant", snap.CurrentParticipant).
			Msg("pick clock started")
		e.scheduleInstantPick(snap.CurrentPick, snap.CurrentParticipant)
	}
	return nil
}

// scheduleInstantPick queues an immediate expiry for seats that turned
// autodraft on: they pick right away instead of waiting out the clock.
// Runs on the loop goroutine only.
func (e *Engine) scheduleInstantPick(pickNumber, participant int) {
	if !e.autodraftFor(participant).Enabled {
		return
	}
	// Drain a stale expiry so the fresh pick number lands; handleExpire
	// re-validates either way.
	select {
	case <-e.expireCh:
	default:
	}
	select {
	case e.expireCh <- pickNumber:
	default:
	}
}

// finalize marks the room completed exactly once and stops the clock.
func (e *Engine) finalize(ctx context.Context, room models.DraftRoom) {
	e.countdown.Stop()
	if room.Status != models.RoomStatusCompleted {
		if err := e.adp.UpdateRoomStatus(ctx, e.cfg.RoomID, models.RoomStatusCompleted); err != nil {
			log.Error().Err(err).Str("room_id", room.ID.String()).Msg("failed to mark room completed")
		}
		e.emit(events.TypeDraftCompleted, events.DraftCompletedPayload{
			CompletedAt: e.clock.Now(),
			TotalPicks:  room.Settings.TotalPicks(),
		})
		log.Info().Str("room_id", room.ID.String()).Msg("draft completed")
	}
	e.mu.Lock()
	if e.pendRoom != nil {
		e.room = *e.pendRoom
		e.pendRoom = nil
	}
	e.room.Status = models.RoomStatusCompleted
	e.snap.Status = models.RoomStatusCompleted
	e.mu.Unlock()
}

func (e *Engine) handleControl(ctx context.Context, req controlRequest) error {
	e.mu.RLock()
	status := e.room.Status
	e.mu.RUnlock()

	switch req.kind {
	case controlStart:
		if status != models.RoomStatusPending {
			return &rules.Violation{Code: rules.CodeDraftNotActive, Detail: fmt.Sprintf("cannot start a %s draft", status)}
		}
		if err := e.adp.UpdateRoomStatus(ctx, e.cfg.RoomID, models.RoomStatusActive); err != nil {
			return fmt.Errorf("failed to activate room: %w", err)
		}
		e.applyPendingRoom()
		e.mu.Lock()
		e.room.Status = models.RoomStatusActive
		e.snap = computeSnapshot(e.room, e.picks, e.cfg.LocalParticipant)
		room := e.room
		snap := e.snap
		e.mu.Unlock()

		e.emit(events.TypeDraftStarted, events.DraftStartedPayload{
			StartedAt:   e.clock.Now(),
			TotalRounds: room.Settings.Rounds,
			TotalPicks:  room.Settings.TotalPicks(),
		})
		e.countdown.Reset()
		e.countdown.Start()
		e.emit(events.TypePickStarted, events.PickStartedPayload{
			OverallPick:      snap.CurrentPick,
			Round:            snap.Round,
			Pick:             snap.PickInRound,
			ParticipantIndex: snap.CurrentParticipant,
			StartedAt:        e.clock.Now(),
			TimePerPickSec:   room.Settings.TimePerPickSec,
			GracePeriodSec:   room.Settings.GracePeriodSec,
		})
		e.scheduleInstantPick(snap.CurrentPick, snap.CurrentParticipant)
		return nil

	case controlPause:
		if status != models.RoomStatusActive {
			return &rules.Violation{Code: rules.CodeDraftNotActive, Detail: fmt.Sprintf("cannot pause a %s draft", status)}
		}
		if err := e.adp.UpdateRoomStatus(ctx, e.cfg.RoomID, models.RoomStatusPaused); err != nil {
			return fmt.Errorf("failed to pause room: %w", err)
		}
		e.applyPendingRoom()
		e.countdown.Pause()
		e.setStatus(models.RoomStatusPaused)
		e.emit(events.TypeDraftPaused, events.DraftPausedPayload{PausedAt: e.clock.Now(), Reason: req.reason})
		return nil

	case controlResume:
		if status != models.RoomStatusPaused {
			return &rules.Violation{Code: rules.CodeDraftNotActive, Detail: fmt.Sprintf("cannot resume a %s draft", status)}
		}
		if err := e.adp.UpdateRoomStatus(ctx, e.cfg.RoomID, models.RoomStatusActive); err != nil {
			return fmt.Errorf("failed to resume room: %w", err)
		}
		e.applyPendingRoom()
		e.countdown.Resume()
		e.setStatus(models.RoomStatusActive)
		e.emit(events.TypeDraftResumed, events.DraftResumedPayload{ResumedAt: e.clock.Now()})
		return nil
	}
	return fmt.Errorf("unknown control request %d", req.kind)
}

func (e *Engine) setStatus(status models.RoomStatus) {
	e.mu.Lock()
	e.room.Status = status
	e.snap.Status = status
	e.mu.Unlock()
}

// handleManualPick validates and commits a human pick. Position limits
// are deliberately not enforced here.
func (e *Engine) handleManualPick(ctx context.Context, req pickRequest) error {
	e.mu.RLock()
	room := e.room
	snap := e.snap
	taken := takenSet(e.picks)
	e.mu.RUnlock()

	if room.Status != models.RoomStatusActive {
		return &rules.Violation{Code: rules.CodeDraftNotActive, Detail: fmt.Sprintf("draft is %s", room.Status)}
	}
	if snap.Complete {
		return &rules.Violation{Code: rules.CodeDraftNotActive, Detail: "draft is complete"}
	}
	// Once the grace period has elapsed the pick belongs to the autodraft
	// selector; a late manual pick is rejected rather than racing it.
	if e.countdown.Expired() {
		return &rules.Violation{Code: rules.CodeTimerExpired, Detail: "pick clock expired"}
	}
	if v := rules.ValidatePick(snap.CurrentPick, req.participantIndex, room.Settings.TeamCount, req.playerID, taken); v != nil {
		return v
	}

	pick := models.DraftPick{
		RoomID:           room.ID,
		OverallPick:      snap.CurrentPick,
		Round:            snap.Round,
		Pick:             snap.PickInRound,
		ParticipantIndex: req.participantIndex,
		PlayerID:         req.playerID,
		PickedAt:         e.clock.Now(),
	}
	return e.commit(ctx, pick, true)
}

// handleExpire runs the autodraft selector for an expired pick clock.
func (e *Engine) handleExpire(ctx context.Context, pickNumber int) {
	e.mu.RLock()
	room := e.room
	snap := e.snap
	e.mu.RUnlock()

	// A stale expiry against an already-advanced pick, or one delivered
	// after a pause landed, is dropped.
	if snap.Complete || room.Status != models.RoomStatusActive || snap.CurrentPick != pickNumber {
		return
	}

	idx := snap.CurrentParticipant
	available, err := e.adp.AvailablePlayers(ctx, e.cfg.RoomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", room.ID.String()).Msg("failed to list available players for autopick")
		return
	}
	if len(available) == 0 {
		log.Error().Str("room_id", room.ID.String()).Msg("no players left in catalog; cannot autopick")
		return
	}

	sel, err := e.strat.Select(autopick.Request{
		Available: available,
		Roster:    e.rosterFor(idx, available),
		Queue:     e.queueFor(idx),
		Config:    e.autodraftFor(idx),
	})
	if err != nil {
		if !errors.Is(err, autopick.ErrNoLegalPick) {
			log.Error().Err(err).Str("room_id", room.ID.String()).Msg("autopick strategy failed")
			return
		}
		// Every position is capped out: relax the limits so the draft
		// never stalls.
		best, ok := autopick.BestAvailable(available)
		if !ok {
			return
		}
		sel = autopick.Selection{Player: best, Source: models.PickSourceADP}
	}

	e.mu.RLock()
	taken := takenSet(e.picks)
	e.mu.RUnlock()
	// The autopick passes through the same validation as a manual pick so
	// a race against a last-second human pick resolves identically.
	if v := rules.ValidatePick(pickNumber, idx, room.Settings.TeamCount, sel.Player.ID, taken); v != nil {
		log.Warn().Str("room_id", room.ID.String()).Str("code", string(v.Code)).Msg("autopick proposal rejected locally")
		return
	}

	pick := models.DraftPick{
		RoomID:           room.ID,
		OverallPick:      pickNumber,
		Round:            snap.Round,
		Pick:             snap.PickInRound,
		ParticipantIndex: idx,
		PlayerID:         sel.Player.ID,
		Auto:             true,
		AutoSource:       sel.Source,
		PickedAt:         e.clock.Now(),
	}
	if err := e.commit(ctx, pick, false); err != nil {
		if errors.Is(err, adapter.ErrPickTaken) {
			// Someone else's write landed first; our proposal is stale and
			// is dropped without retry. The resync already picked up theirs.
			log.Debug().Str("room_id", room.ID.String()).Int("overall_pick", pickNumber).Msg("autopick lost the write race")
			return
		}
		log.Error().Err(err).Str("room_id", room.ID.String()).Int("overall_pick", pickNumber).Msg("failed to commit autopick")
	}
}

// commit writes through the adapter and resyncs. The pick counts as
// committed only once the adapter confirms it; the next clock starts
// from the resync.
func (e *Engine) commit(ctx context.Context, pick models.DraftPick, manual bool) error {
	committed, err := e.adp.AddPick(ctx, e.cfg.RoomID, pick)
	if err != nil {
		if errors.Is(err, adapter.ErrPickTaken) {
			if rerr := e.resync(ctx); rerr != nil {
				log.Error().Err(rerr).Str("room_id", pick.RoomID.String()).Msg("resync after write conflict failed")
			}
			if manual {
				return &rules.Violation{Code: rules.CodePlayerUnavailable, Detail: "someone else picked first"}
			}
			return err
		}
		return fmt.Errorf("failed to commit pick: %w", err)
	}

	e.emit(events.TypePickMade, events.PickMadePayload{
		PickID:           committed.ID.String(),
		OverallPick:      committed.OverallPick,
		Round:            committed.Round,
		Pick:             committed.Pick,
		ParticipantIndex: committed.ParticipantIndex,
		PlayerID:         committed.PlayerID,
		Auto:             committed.Auto,
		AutoSource:       committed.AutoSource,
		MadeAt:           committed.PickedAt,
	})
	log.Info().
		Str("room_id", pick.RoomID.String()).
		Int("overall_pick", committed.OverallPick).
		Str("player_id", committed.PlayerID).
		Bool("auto", committed.Auto).
		Msg("pick committed")

	return e.resync(ctx)
}

// rosterFor reconstructs the participant's current roster from the pick
// history. Positions come from the catalog view the adapter returns;
// players already picked are resolved from a cached id lookup built as
// pools are observed.
func (e *Engine) rosterFor(idx int, available []models.DraftPlayer) []models.DraftPlayer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	byID := e.playerIndex(available)
	var roster []models.DraftPlayer
	for _, p := range e.picks {
		if p.ParticipantIndex != idx {
			continue
		}
		if pl, ok := byID[p.PlayerID]; ok {
			roster = append(roster, pl)
		}
	}
	return roster
}

// playerIndex caches catalog entries by id across resyncs so picked
// players keep their position metadata after leaving the available pool.
func (e *Engine) playerIndex(available []models.DraftPlayer) map[string]models.DraftPlayer {
	if e.playersByID == nil {
		e.playersByID = make(map[string]models.DraftPlayer)
	}
	for _, p := range available {
		e.playersByID[p.ID] = p
	}
	return e.playersByID
}

func (e *Engine) queueFor(idx int) []string {
	if e.cfg.Queues == nil {
		return nil
	}
	return e.cfg.Queues.QueueFor(idx)
}

func (e *Engine) autodraftFor(idx int) models.AutodraftConfig {
	if cfg, ok := e.cfg.Autodraft[idx]; ok {
		return cfg
	}
	return models.AutodraftConfig{}
}

func (e *Engine) emit(eventType string, payload any) {
	env := events.Envelope{
		Type:       eventType,
		RoomID:     e.cfg.RoomID.String(),
		OccurredAt: e.clock.Now(),
		Payload:    payload,
	}
	for _, sink := range e.cfg.Sinks {
		sink.Publish(env)
	}
}

func takenSet(picks []models.DraftPick) map[string]bool {
	taken := make(map[string]bool, len(picks))
	for _, p := range picks {
		taken[p.PlayerID] = true
	}
	return taken
}
