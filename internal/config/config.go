package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	DataDir       string `json:"data_dir" env:"GHOSTWALK_DATA_DIR"`
	LogLevel      string `json:"log_level" env:"GHOSTWALK_LOG_LEVEL"`
	MaxConcurrent int    `json:"max_concurrent" env:"GHOSTWALK_MAX_CONCURRENT"`
	Mixpanel      struct {
		BaseURL   string `json:"base_url" env:"MIXPANEL_BASE_URL"`
		ProjectID string `json:"project_id" env:"MIXPANEL_PROJECT_ID"`
		Username  string `json:"username" env:"MIXPANEL_USERNAME"`
		Secret    string `json:"secret" env:"MIXPANEL_SECRET"`
	} `json:"mixpanel"`
	Schema struct {
		ReplayDataKey    string `json:"replay_data_key"`
		DimensionKey     string `json:"dimension_key"`
		ScrollTopKey     string `json:"scroll_top_key"`
		MousePositionKey string `json:"mouse_position_key"`
		TimeKey          string `json:"time_key"`
		PageKey          string `json:"page_key"`
		QueryKey         string `json:"query_key"`
	} `json:"schema"`
	Replay struct {
		FixedDelaySeconds float64 `json:"fixed_delay_seconds"`
		SnapshotPages     bool    `json:"snapshot_pages"`
	} `json:"replay"`
	Telegram struct {
		Token  string `json:"token" env:"TELEGRAM_BOT_TOKEN"`
		ChatID int64  `json:"chat_id" env:"TELEGRAM_CHAT_ID"`
	} `json:"telegram"`
	HTTP struct {
		Enabled bool   `json:"enabled"`
		Listen  string `json:"listen" env:"GHOSTWALK_HTTP_LISTEN"`
	} `json:"http"`
}

// Load reads configuration with three layers of precedence: built-in
// defaults, the JSON file at path (written with defaults on first run),
// and environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{
		DataDir:       filepath.Join(os.Getenv("HOME"), ".ghostwalk"),
		MaxConcurrent: 2,
	}
	cfg.LogLevel = "info"
	cfg.Mixpanel.BaseURL = "https://data-eu.mixpanel.com"
	cfg.Schema.ReplayDataKey = "reproductive"
	cfg.Schema.DimensionKey = "dimension"
	cfg.Schema.ScrollTopKey = "scrollTop"
	cfg.Schema.MousePositionKey = "mousePosition"
	cfg.Schema.TimeKey = "time"
	cfg.Schema.PageKey = "location"
	cfg.Schema.QueryKey = "searchArgs"
	cfg.Replay.SnapshotPages = true
	cfg.HTTP.Listen = "127.0.0.1:8400"

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := writeDefaults(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env overrides: %w", err)
	}

	return cfg, nil
}

// Save writes the config back to path atomically.
func Save(path string, cfg *Config) error {
	return writeDefaults(path, cfg)
}

func writeDefaults(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
