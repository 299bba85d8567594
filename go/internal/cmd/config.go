package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/mcdev12/cascade/go/internal/timing"
	"gopkg.in/yaml.v3"
)

// Config is the client session configuration file.
type Config struct {
	Session struct {
		QuickMode bool `yaml:"quick_mode"`
	} `yaml:"session"`

	Transport struct {
		// Kind selects the authority feed: "nats", "websocket" or "none".
		Kind string `yaml:"kind"`

		NATS struct {
			URL           string `yaml:"url"`
			Stream        string `yaml:"stream"`
			SubjectFilter string `yaml:"subject_filter"`
			Consumer      string `yaml:"consumer"`
		} `yaml:"nats"`

		Websocket struct {
			URL string `yaml:"url"`
		} `yaml:"websocket"`
	} `yaml:"transport"`

	Acks struct {
		// Channel selects the acknowledgment path: "nats", "feed", "log"
		// or "none". Absence of a channel is tolerated.
		Channel       string `yaml:"channel"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"acks"`

	Status struct {
		Addr string `yaml:"addr"`
	} `yaml:"status"`

	Timings map[string]timing.WindowMs `yaml:"timings"`
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Transport.Kind = "nats"
	cfg.Transport.NATS.URL = getEnv("NATS_URL", "nats://localhost:4222")
	cfg.Transport.NATS.Stream = "CASCADE_EVENTS"
	cfg.Transport.NATS.SubjectFilter = "cascade.events.>"
	cfg.Transport.NATS.Consumer = "cascade-client"
	cfg.Acks.Channel = "nats"
	cfg.Acks.SubjectPrefix = "cascade.acks"
	cfg.Status.Addr = fmt.Sprintf(":%d", getEnvAsInt("STATUS_PORT", 8090))
	return cfg
}

func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
