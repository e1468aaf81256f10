package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port      string `yaml:"port"`
		PublicURL string `yaml:"publicURL"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Game struct {
		HostGracePeriod string `yaml:"hostGracePeriod"`
		IdleTimeout     string `yaml:"idleTimeout"`
		PinLength       int    `yaml:"pinLength"`
	} `yaml:"game"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values that would make a game unplayable.
func (c Config) Validate() error {
	if c.Game.PinLength != 0 && (c.Game.PinLength < 4 || c.Game.PinLength > 9) {
		return fmt.Errorf("game.pinLength must be between 4 and 9, got %d", c.Game.PinLength)
	}
	for name, raw := range map[string]string{
		"redis.ttl":            c.Redis.TTL,
		"quiz.ttl":             c.Quiz.TTL,
		"game.hostGracePeriod": c.Game.HostGracePeriod,
		"game.idleTimeout":     c.Game.IdleTimeout,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
