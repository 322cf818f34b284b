package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/bestballhq/draftengine/go/internal/models"
	"github.com/bestballhq/draftengine/go/internal/sqlutil"
)

// Notifier carries cross-instance change notifications for the Postgres
// adapter. The NATS implementation lives in notify_nats.go.
type Notifier interface {
	PublishRoomChanged(roomID uuid.UUID) error
	PublishPicksChanged(roomID uuid.UUID) error
	SubscribeRoomChanged(roomID uuid.UUID, fn func()) (Unsubscribe, error)
	SubscribePicksChanged(roomID uuid.UUID, fn func()) (Unsubscribe, error)
}

const uniqueViolation = "23505"

// noopNotifier backs single-instance deployments that run Postgres
// without a message bus. Publishes are discarded and subscriptions never
// fire; the engine still observes its own writes through the resync that
// follows every commit.
type noopNotifier struct{}

func (noopNotifier) PublishRoomChanged(uuid.UUID) error  { return nil }
func (noopNotifier) PublishPicksChanged(uuid.UUID) error { return nil }

func (noopNotifier) SubscribeRoomChanged(uuid.UUID, func()) (Unsubscribe, error) {
	return func() {}, nil
}

func (noopNotifier) SubscribePicksChanged(uuid.UUID, func()) (Unsubscribe, error) {
	return func() {}, nil
}

// Postgres is the production adapter. The unique indexes on
// (room_id, overall_pick) and (room_id, player_id) make AddPick atomic:
// two near-simultaneous writers cannot both land the same pick number.
type Postgres struct {
	pool     *pgxpool.Pool
	notifier Notifier
}

// NewPostgres wraps a pgx pool and a change notifier. A nil notifier
// falls back to a no-op, for single-instance deployments without NATS.
func NewPostgres(pool *pgxpool.Pool, notifier Notifier) *Postgres {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Postgres{pool: pool, notifier: notifier}
}

// Migrate creates the adapter's tables and indexes if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS draft_rooms (
    id            UUID PRIMARY KEY,
    name          TEXT NOT NULL DEFAULT '',
    status        TEXT NOT NULL,
    settings      JSONB NOT NULL,
    participants  JSONB NOT NULL,
    scheduled_at  TIMESTAMPTZ,
    started_at    TIMESTAMPTZ,
    completed_at  TIMESTAMPTZ,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS players (
    id                TEXT PRIMARY KEY,
    full_name         TEXT NOT NULL,
    position          TEXT NOT NULL,
    team              TEXT NOT NULL DEFAULT '',
    bye_week          INT NOT NULL DEFAULT 0,
    adp               DOUBLE PRECISION NOT NULL,
    projected_points  DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS draft_picks (
    id                 UUID PRIMARY KEY,
    room_id            UUID NOT NULL REFERENCES draft_rooms(id),
    overall_pick       INT NOT NULL,
    round              INT NOT NULL,
    pick               INT NOT NULL,
    participant_index  INT NOT NULL,
    player_id          TEXT NOT NULL REFERENCES players(id),
    auto               BOOLEAN NOT NULL DEFAULT FALSE,
    auto_source        TEXT NOT NULL DEFAULT '',
    picked_at          TIMESTAMPTZ NOT NULL,
    UNIQUE (room_id, overall_pick),
    UNIQUE (room_id, player_id)
);`
	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// CreateRoom inserts a scheduled room.
func (p *Postgres) CreateRoom(ctx context.Context, room models.DraftRoom) error {
	settings, err := json.Marshal(room.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	participants, err := json.Marshal(room.Participants)
	if err != nil {
		return fmt.Errorf("failed to marshal participants: %w", err)
	}
	if room.Status == "" {
		room.Status = models.RoomStatusPending
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO draft_rooms (id, name, status, settings, participants, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		room.ID, room.Name, room.Status, settings, participants, room.ScheduledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

// GetRoom implements Adapter.
func (p *Postgres) GetRoom(ctx context.Context, roomID uuid.UUID) (*models.DraftRoom, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, name, status, settings, participants,
		       scheduled_at, started_at, completed_at, created_at, updated_at
		FROM draft_rooms WHERE id = $1`, roomID)

	var room models.DraftRoom
	var settings, participants []byte
	err := row.Scan(
		&room.ID, &room.Name, &room.Status, &settings, &participants,
		&room.ScheduledAt, &room.StartedAt, &room.CompletedAt, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if err := json.Unmarshal(settings, &room.Settings); err != nil {
		return nil, fmt.Errorf("failed to parse room settings: %w", err)
	}
	if err := json.Unmarshal(participants, &room.Participants); err != nil {
		return nil, fmt.Errorf("failed to parse room participants: %w", err)
	}
	return &room, nil
}

// UpdateRoomStatus implements Adapter. The transition check runs inside
// the same transaction as the update.
func (p *Postgres) UpdateRoomStatus(ctx context.Context, roomID uuid.UUID, status models.RoomStatus) error {
	err := sqlutil.WithTx(ctx, p.pool, func(tx pgx.Tx) error {
		var current models.RoomStatus
		err := tx.QueryRow(ctx, `SELECT status FROM draft_rooms WHERE id = $1 FOR UPDATE`, roomID).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrRoomNotFound
			}
			return fmt.Errorf("failed to lock room: %w", err)
		}
		if !current.CanTransitionTo(status) {
			return fmt.Errorf("invalid status transition %s -> %s", current, status)
		}
		_, err = tx.Exec(ctx, `
			UPDATE draft_rooms
			SET status = $2,
			    updated_at = now(),
			    started_at = CASE WHEN $2 = 'ACTIVE' AND started_at IS NULL THEN now() ELSE started_at END,
			    completed_at = CASE WHEN $2 = 'COMPLETED' THEN now() ELSE completed_at END
			WHERE id = $1`, roomID, status)
		if err != nil {
			return fmt.Errorf("failed to update room status: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := p.notifier.PublishRoomChanged(roomID); err != nil {
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("failed to publish room change")
	}
	return nil
}

// SubscribeRoom implements Adapter. On every notification the room is
// re-fetched so subscribers always see confirmed state.
func (p *Postgres) SubscribeRoom(ctx context.Context, roomID uuid.UUID, onChange func(models.DraftRoom)) (Unsubscribe, error) {
	return p.notifier.SubscribeRoomChanged(roomID, func() {
		room, err := p.GetRoom(ctx, roomID)
		if err != nil {
			log.Error().Err(err).Str("room_id", roomID.String()).Msg("failed to refresh room after change")
			return
		}
		onChange(*room)
	})
}

// SubscribePicks implements Adapter.
func (p *Postgres) SubscribePicks(ctx context.Context, roomID uuid.UUID, onChange func([]models.DraftPick)) (Unsubscribe, error) {
	return p.notifier.SubscribePicksChanged(roomID, func() {
		picks, err := p.ListPicks(ctx, roomID)
		if err != nil {
			log.Error().Err(err).Str("room_id", roomID.String()).Msg("failed to refresh picks after change")
			return
		}
		onChange(picks)
	})
}

// ListPicks implements Adapter.
func (p *Postgres) ListPicks(ctx context.Context, roomID uuid.UUID) ([]models.DraftPick, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, room_id, overall_pick, round, pick, participant_index,
		       player_id, auto, auto_source, picked_at
		FROM draft_picks WHERE room_id = $1
		ORDER BY overall_pick`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list picks: %w", err)
	}
	defer rows.Close()

	var picks []models.DraftPick
	for rows.Next() {
		var pk models.DraftPick
		if err := rows.Scan(
			&pk.ID, &pk.RoomID, &pk.OverallPick, &pk.Round, &pk.Pick, &pk.ParticipantIndex,
			&pk.PlayerID, &pk.Auto, &pk.AutoSource, &pk.PickedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pick: %w", err)
		}
		picks = append(picks, pk)
	}
	return picks, rows.Err()
}

// AddPick implements Adapter. Uniqueness of the pick number and the
// player is enforced by the storage layer, not by the engine's pre-write
// validation, so racing writers resolve here.
func (p *Postgres) AddPick(ctx context.Context, roomID uuid.UUID, pick models.DraftPick) (*models.DraftPick, error) {
	if pick.ID == uuid.Nil {
		pick.ID = uuid.New()
	}
	pick.RoomID = roomID

	_, err := p.pool.Exec(ctx, `
		INSERT INTO draft_picks
			(id, room_id, overall_pick, round, pick, participant_index, player_id, auto, auto_source, picked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		pick.ID, pick.RoomID, pick.OverallPick, pick.Round, pick.Pick, pick.ParticipantIndex,
		pick.PlayerID, pick.Auto, string(pick.AutoSource), pick.PickedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("pick %d: %w", pick.OverallPick, ErrPickTaken)
		}
		return nil, fmt.Errorf("failed to add pick: %w", err)
	}

	if err := p.notifier.PublishPicksChanged(roomID); err != nil {
		log.Error().Err(err).Str("room_id", roomID.String()).Msg("failed to publish pick change")
	}
	return &pick, nil
}

// AvailablePlayers implements Adapter.
func (p *Postgres) AvailablePlayers(ctx context.Context, roomID uuid.UUID) ([]models.DraftPlayer, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT pl.id, pl.full_name, pl.position, pl.team, pl.bye_week, pl.adp, pl.projected_points
		FROM players pl
		WHERE NOT EXISTS (
			SELECT 1 FROM draft_picks dp WHERE dp.room_id = $1 AND dp.player_id = pl.id
		)
		ORDER BY pl.adp, pl.id`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list available players: %w", err)
	}
	defer rows.Close()

	var players []models.DraftPlayer
	for rows.Next() {
		var pl models.DraftPlayer
		if err := rows.Scan(&pl.ID, &pl.FullName, &pl.Position, &pl.Team, &pl.ByeWeek, &pl.ADP, &pl.ProjectedPoints); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, pl)
	}
	return players, rows.Err()
}

var _ Adapter = (*Postgres)(nil)
