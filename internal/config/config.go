// Package config handles application configuration from environment
// variables and the YAML sources file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"atlas/internal/feed"
	"atlas/internal/model"
)

// Config holds the application configuration.
type Config struct {
	DatabasePath     string
	SourcesPath      string
	LogLevel         string
	TelegramBotToken string
	TelegramChatID   int64
	DailyQuota       int
	MaxRetries       int
	CheckInterval    time.Duration
	TaskTimeout      time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath:  envOrDefault("DATABASE_PATH", "./data/atlas.db"),
		SourcesPath:   envOrDefault("ATLAS_SOURCES", "./sources.yaml"),
		LogLevel:      envOrDefault("LOG_LEVEL", "info"),
		DailyQuota:    50,
		MaxRetries:    3,
		CheckInterval: 60 * time.Second,
		TaskTimeout:   10 * time.Minute,
	}

	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", raw, err)
		}
		cfg.TelegramChatID = id
	}

	if raw := os.Getenv("DAILY_QUOTA"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid DAILY_QUOTA %q", raw)
		}
		cfg.DailyQuota = n
	}

	if raw := os.Getenv("MAX_RETRIES"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid MAX_RETRIES %q", raw)
		}
		cfg.MaxRetries = n
	}

	if raw := os.Getenv("CHECK_INTERVAL_SECONDS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid CHECK_INTERVAL_SECONDS %q", raw)
		}
		cfg.CheckInterval = time.Duration(n) * time.Second
	}

	if raw := os.Getenv("TASK_TIMEOUT_SECONDS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid TASK_TIMEOUT_SECONDS %q", raw)
		}
		cfg.TaskTimeout = time.Duration(n) * time.Second
	}

	return cfg, nil
}

// Source describes a single content source to schedule for discovery.
type Source struct {
	Name          string           `yaml:"name"`
	Kind          model.SourceKind `yaml:"kind"`
	FeedURL       string           `yaml:"feed_url"`
	Show          string           `yaml:"show"`
	IntervalHours float64          `yaml:"interval_hours"`
	Priority      int              `yaml:"priority"`
	Filters       []feed.Rule      `yaml:"filters"`
}

// Interval returns the source's check interval as a duration.
func (s Source) Interval() time.Duration {
	return time.Duration(s.IntervalHours * float64(time.Hour))
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources reads and validates the YAML sources file.
func LoadSources(path string) ([]Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var f sourcesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Sources))
	for i, src := range f.Sources {
		if src.Name == "" {
			return nil, fmt.Errorf("source %d: name is required", i)
		}
		if _, dup := seen[src.Name]; dup {
			return nil, fmt.Errorf("duplicate source name %q", src.Name)
		}
		seen[src.Name] = struct{}{}

		if src.FeedURL == "" {
			return nil, fmt.Errorf("source %q: feed_url is required", src.Name)
		}
		if src.IntervalHours <= 0 {
			return nil, fmt.Errorf("source %q: interval_hours must be positive", src.Name)
		}
		for _, r := range src.Filters {
			if err := feed.ValidateRule(r); err != nil {
				return nil, fmt.Errorf("source %q: %w", src.Name, err)
			}
		}
	}

	return f.Sources, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
