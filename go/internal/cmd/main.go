package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bestballhq/draftengine/go/internal/catalog"
	"github.com/bestballhq/draftengine/go/internal/draft/events"
	"github.com/bestballhq/draftengine/go/internal/draft/gateway"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}
	setupLogging()

	cfg, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()

	players, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Catalog.Path).Msg("failed to load player catalog")
	}
	log.Info().Int("players", len(players)).Str("path", cfg.Catalog.Path).Msg("catalog loaded")

	adp, closeAdapter, err := setupAdapter(ctx, cfg.Adapter, clock, players)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up adapter")
	}
	defer closeAdapter()

	store, closeStore, err := setupQueueStore(cfg.Queue)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up queue store")
	}
	defer closeStore()

	hub := gateway.NewHub(gateway.DefaultHubConfig())
	svc := gateway.NewService(hub, clock)
	go hub.Run(ctx)

	engines, err := setupRooms(ctx, cfg.Rooms, adp, clock, store, svc, []events.Sink{svc})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up rooms")
	}

	server := setupServer(cfg.HTTP.Addr, svc)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("gateway listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	for _, eng := range engines {
		select {
		case <-eng.Done():
		case <-shutdownCtx.Done():
		}
	}
}

func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
