package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Attempt struct {
		// TimerMode is "nominal" (restart the countdown on resume) or "elapsed".
		TimerMode string `yaml:"timer_mode"`
	} `yaml:"attempt"`
	Snapshots struct {
		// Driver is one of memory, redis or sqlite.
		Driver     string `yaml:"driver"`
		SQLitePath string `yaml:"sqlite_path"`
		// TTL bounds how long an untouched snapshot is kept. Empty keeps it until the
		// attempt is submitted or reset.
		TTL string `yaml:"ttl"`
	} `yaml:"snapshots"`
	Auth struct {
		JWTSecret    string            `yaml:"jwt_secret"`
		StaticTokens map[string]string `yaml:"static_tokens"`
	} `yaml:"auth"`
	Rabbit struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"rabbit"`
}

// Load reads YAML config from path. ${VAR} references are expanded from the environment
// before parsing.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Snapshots.Driver == "" {
		cfg.Snapshots.Driver = "memory"
		if cfg.Redis.Addr != "" {
			cfg.Snapshots.Driver = "redis"
		}
	}
	if cfg.Rabbit.Exchange == "" {
		cfg.Rabbit.Exchange = "quiz.events"
	}
	return cfg, nil
}

// SnapshotTTL is the expiry applied to saved attempts; zero means none.
func (c Config) SnapshotTTL() time.Duration {
	return TTLDuration(c.Snapshots.TTL, 0)
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
