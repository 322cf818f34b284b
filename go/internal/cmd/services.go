package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/bestballhq/draftengine/go/internal/dbconfig"
	"github.com/bestballhq/draftengine/go/internal/draft/adapter"
	"github.com/bestballhq/draftengine/go/internal/draft/engine"
	"github.com/bestballhq/draftengine/go/internal/draft/events"
	"github.com/bestballhq/draftengine/go/internal/draft/gateway"
	"github.com/bestballhq/draftengine/go/internal/draft/queue"
	"github.com/bestballhq/draftengine/go/internal/models"
)

// roomCreator is the adapter-side room registration both backends
// provide outside the read-path Adapter interface.
type roomCreator interface {
	CreateRoom(ctx context.Context, room models.DraftRoom) error
}

func setupAdapter(ctx context.Context, cfg AdapterConfig, clock clockwork.Clock, catalog []models.DraftPlayer) (adapter.Adapter, func(), error) {
	switch cfg.Kind {
	case "memory":
		return adapter.NewMemory(clock, catalog), func() {}, nil

	case "postgres":
		pool, err := dbconfig.NewConfigFromEnv().Pool(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		cleanup := func() { pool.Close() }

		var notifier adapter.Notifier
		if cfg.NATSURL != "" {
			nc, err := adapter.ConnectNATS(cfg.NATSURL)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("failed to connect to nats: %w", err)
			}
			notifier = adapter.NewNATSNotifier(nc)
			cleanup = func() {
				nc.Drain()
				pool.Close()
			}
		}

		pg := adapter.NewPostgres(pool, notifier)
		if err := pg.Migrate(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return pg, cleanup, nil

	default:
		return nil, nil, fmt.Errorf("unknown adapter kind %q", cfg.Kind)
	}
}

func setupQueueStore(cfg QueueConfig) (queue.Store, func(), error) {
	switch cfg.Kind {
	case "memory":
		return queue.NewMemoryStore(), func() {}, nil

	case "file":
		dir := cfg.Dir
		if dir == "" {
			dir = "queues"
		}
		store, err := queue.NewFileStore(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open queue dir: %w", err)
		}
		return store, func() {}, nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return queue.NewRedisStore(client), func() { client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown queue kind %q", cfg.Kind)
	}
}

// storeQueueProvider resolves a participant's queue from the queue store
// at autopick time, keyed by the seat's user id.
type storeQueueProvider struct {
	store queue.Store
	users map[int]string
}

func (p *storeQueueProvider) QueueFor(idx int) []string {
	userID, ok := p.users[idx]
	if !ok || userID == "" {
		return nil
	}
	ids, err := p.store.Load(context.Background(), userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("failed to load queue for autopick")
		return nil
	}
	return ids
}

// setupRooms creates the configured rooms, builds an engine per room and
// registers each with the gateway. Engines start running immediately;
// AutoStart rooms also go active.
func setupRooms(ctx context.Context, rooms []RoomConfig, adp adapter.Adapter, clock clockwork.Clock, store queue.Store, svc *gateway.Service, sinks []events.Sink) ([]*engine.Engine, error) {
	creator, canCreate := adp.(roomCreator)
	engines := make([]*engine.Engine, 0, len(rooms))

	for _, rc := range rooms {
		room := models.DraftRoom{
			ID:       uuid.New(),
			Name:     rc.Name,
			Status:   models.RoomStatusPending,
			Settings: rc.Settings,
		}
		users := make(map[int]string, rc.Settings.TeamCount)
		for i := 0; i < rc.Settings.TeamCount; i++ {
			p := models.Participant{Index: i, Bot: true, DisplayName: fmt.Sprintf("Bot %d", i+1)}
			if i < len(rc.Participants) {
				pc := rc.Participants[i]
				p.UserID = pc.UserID
				p.DisplayName = pc.DisplayName
				p.Bot = pc.Bot
				users[i] = pc.UserID
			}
			room.Participants = append(room.Participants, p)
		}

		if !canCreate {
			return nil, fmt.Errorf("adapter cannot create rooms")
		}
		if err := creator.CreateRoom(ctx, room); err != nil {
			return nil, fmt.Errorf("failed to create room %s: %w", rc.Name, err)
		}

		eng := engine.New(adp, engine.Config{
			RoomID:           room.ID,
			LocalParticipant: engine.NoLocalParticipant,
			Queues:           &storeQueueProvider{store: store, users: users},
			Clock:            clock,
			Sinks:            sinks,
		})
		svc.RegisterEngine(room.ID, eng)

		go func(name string, e *engine.Engine) {
			if err := e.Run(ctx); err != nil {
				log.Error().Err(err).Str("room", name).Msg("engine stopped with error")
			}
		}(rc.Name, eng)

		if rc.AutoStart {
			if err := eng.StartDraft(ctx); err != nil {
				return nil, fmt.Errorf("failed to auto-start room %s: %w", rc.Name, err)
			}
		}

		log.Info().
			Str("room_id", room.ID.String()).
			Str("name", rc.Name).
			Int("teams", room.Settings.TeamCount).
			Int("rounds", room.Settings.Rounds).
			Bool("auto_start", rc.AutoStart).
			Msg("room hosted")
		engines = append(engines, eng)
	}
	return engines, nil
}
