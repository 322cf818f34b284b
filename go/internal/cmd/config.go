package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bestballhq/draftengine/go/internal/models"
)

// Config is the server configuration, loaded from YAML with env
// overrides for deployment-specific values.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Adapter AdapterConfig `yaml:"adapter"`
	Queue   QueueConfig   `yaml:"queue"`
	Catalog CatalogConfig `yaml:"catalog"`
	Rooms   []RoomConfig  `yaml:"rooms"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type AdapterConfig struct {
	// Kind selects the storage backend: "memory" or "postgres".
	Kind string `yaml:"kind"`
	// NATSURL enables cross-instance change notification for the
	// postgres adapter. Empty disables it.
	NATSURL string `yaml:"nats_url"`
}

type QueueConfig struct {
	// Kind selects queue persistence: "memory", "file" or "redis".
	Kind      string `yaml:"kind"`
	Dir       string `yaml:"dir"`
	RedisAddr string `yaml:"redis_addr"`
}

type CatalogConfig struct {
	Path string `yaml:"path"`
}

// RoomConfig declares a draft room the server hosts on boot.
type RoomConfig struct {
	Name         string              `yaml:"name"`
	Settings     models.RoomSettings `yaml:"settings"`
	Participants []ParticipantConfig `yaml:"participants"`
	// AutoStart activates the room immediately instead of waiting for a
	// start_draft command.
	AutoStart bool `yaml:"auto_start"`
}

type ParticipantConfig struct {
	UserID      string `yaml:"user_id"`
	DisplayName string `yaml:"display_name"`
	Bot         bool   `yaml:"bot"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	config := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No file: run on defaults and env alone.
	} else if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if config.HTTP.Addr == "" {
		config.HTTP.Addr = ":" + getEnv("PORT", "8080")
	}
	if config.Adapter.Kind == "" {
		config.Adapter.Kind = getEnv("ADAPTER_KIND", "memory")
	}
	if config.Adapter.NATSURL == "" {
		config.Adapter.NATSURL = os.Getenv("NATS_URL")
	}
	if config.Queue.Kind == "" {
		config.Queue.Kind = getEnv("QUEUE_KIND", "memory")
	}
	if config.Queue.RedisAddr == "" {
		config.Queue.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	}
	if config.Catalog.Path == "" {
		config.Catalog.Path = getEnv("CATALOG_PATH", "players.json")
	}

	for i := range config.Rooms {
		room := &config.Rooms[i]
		defaults := models.DefaultRoomSettings()
		if room.Settings.TeamCount == 0 {
			room.Settings.TeamCount = defaults.TeamCount
		}
		if room.Settings.Rounds == 0 {
			room.Settings.Rounds = defaults.Rounds
		}
		if room.Settings.TimePerPickSec == 0 {
			room.Settings.TimePerPickSec = defaults.TimePerPickSec
		}
		if room.Settings.GracePeriodSec == 0 {
			room.Settings.GracePeriodSec = defaults.GracePeriodSec
		}
	}
	return config, nil
}
