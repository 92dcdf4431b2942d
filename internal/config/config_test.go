package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func tempConfigPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "config.json")
}

func writeTestConfig(t *testing.T, path string, cfg *Config) {
	t.Helper()
	if err := Save(path, cfg); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := tempConfigPath(t)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("expected default log_level=info, got %v", cfg.LogLevel)
	}
	if cfg.MaxConcurrent != 2 {
		t.Errorf("expected default max_concurrent=2, got %v", cfg.MaxConcurrent)
	}
	if cfg.Mixpanel.BaseURL != "https://data-eu.mixpanel.com" {
		t.Errorf("unexpected mixpanel base url: %v", cfg.Mixpanel.BaseURL)
	}
	if cfg.Schema.ReplayDataKey != "reproductive" {
		t.Errorf("unexpected replay data key: %v", cfg.Schema.ReplayDataKey)
	}
	if cfg.Schema.PageKey != "location" || cfg.Schema.QueryKey != "searchArgs" {
		t.Errorf("unexpected schema defaults: %+v", cfg.Schema)
	}

	// Load writes defaults on first run
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file should exist after first Load: %v", err)
	}
}

func TestSave_ReloadRoundTrip(t *testing.T) {
	path := tempConfigPath(t)

	original := &Config{
		DataDir:       "/tmp/test-data",
		LogLevel:      "debug",
		MaxConcurrent: 4,
	}
	original.Mixpanel.BaseURL = "https://data.mixpanel.com"
	original.Mixpanel.ProjectID = "12345"
	original.Mixpanel.Username = "svc.export"
	original.Mixpanel.Secret = "mp-secret-round-trip"
	original.Schema.ReplayDataKey = "reproductive"
	original.Schema.TimeKey = "time"
	original.Replay.FixedDelaySeconds = 1.5
	original.Telegram.Token = "bot-token-456"
	original.HTTP.Listen = "127.0.0.1:9000"

	if err := Save(path, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file does not exist after Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.DataDir != original.DataDir {
		t.Errorf("DataDir mismatch: %v != %v", loaded.DataDir, original.DataDir)
	}
	if loaded.LogLevel != original.LogLevel {
		t.Errorf("LogLevel mismatch: %v != %v", loaded.LogLevel, original.LogLevel)
	}
	if loaded.MaxConcurrent != original.MaxConcurrent {
		t.Errorf("MaxConcurrent mismatch: %v != %v", loaded.MaxConcurrent, original.MaxConcurrent)
	}
	if loaded.Mixpanel.ProjectID != original.Mixpanel.ProjectID {
		t.Errorf("Mixpanel.ProjectID mismatch: %v != %v", loaded.Mixpanel.ProjectID, original.Mixpanel.ProjectID)
	}
	if loaded.Mixpanel.Secret != original.Mixpanel.Secret {
		t.Errorf("Mixpanel.Secret mismatch: %v != %v", loaded.Mixpanel.Secret, original.Mixpanel.Secret)
	}
	if loaded.Replay.FixedDelaySeconds != original.Replay.FixedDelaySeconds {
		t.Errorf("Replay.FixedDelaySeconds mismatch: %v != %v", loaded.Replay.FixedDelaySeconds, original.Replay.FixedDelaySeconds)
	}
	if loaded.Telegram.Token != original.Telegram.Token {
		t.Errorf("Telegram.Token mismatch: %v != %v", loaded.Telegram.Token, original.Telegram.Token)
	}
	if loaded.HTTP.Listen != original.HTTP.Listen {
		t.Errorf("HTTP.Listen mismatch: %v != %v", loaded.HTTP.Listen, original.HTTP.Listen)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	cfg.Mixpanel.Secret = "from-file"
	writeTestConfig(t, path, cfg)

	t.Setenv("MIXPANEL_SECRET", "from-env")
	t.Setenv("GHOSTWALK_LOG_LEVEL", "debug")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Mixpanel.Secret != "from-env" {
		t.Errorf("expected env override for mixpanel secret, got %v", loaded.Mixpanel.Secret)
	}
	if loaded.LogLevel != "debug" {
		t.Errorf("expected env override for log level, got %v", loaded.LogLevel)
	}
}

func TestSave_AtomicWrite(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Verify no temp file left behind
	tmpPath := path + ".tmp"
	if _, err := os.Stat(tmpPath); !os.IsNotExist(err) {
		t.Errorf("temp file should not exist after successful save")
	}

	// Verify the file is valid JSON
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved config: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Errorf("saved file is not valid JSON: %v", err)
	}
}

func TestToMap(t *testing.T) {
	cfg := &Config{
		DataDir:       "/tmp/test",
		LogLevel:      "debug",
		MaxConcurrent: 4,
	}
	cfg.Mixpanel.Username = "svc.export"

	m, err := ToMap(cfg)
	if err != nil {
		t.Fatalf("ToMap failed: %v", err)
	}

	if m["data_dir"] != "/tmp/test" {
		t.Errorf("expected data_dir=/tmp/test, got %v", m["data_dir"])
	}
	if m["log_level"] != "debug" {
		t.Errorf("expected log_level=debug, got %v", m["log_level"])
	}
	// JSON numbers are float64
	if m["max_concurrent"] != float64(4) {
		t.Errorf("expected max_concurrent=4, got %v", m["max_concurrent"])
	}

	mp, ok := m["mixpanel"].(map[string]any)
	if !ok {
		t.Fatalf("expected mixpanel to be map, got %T", m["mixpanel"])
	}
	if mp["username"] != "svc.export" {
		t.Errorf("expected mixpanel.username=svc.export, got %v", mp["username"])
	}
}

func TestListValues_NoMask(t *testing.T) {
	cfg := &Config{
		LogLevel: "info",
	}
	cfg.Mixpanel.Secret = "mp-secret-key-1234"
	cfg.Telegram.Token = "bot-token-abcd"

	flat, err := ListValues(cfg, false)
	if err != nil {
		t.Fatalf("ListValues failed: %v", err)
	}

	if flat["mixpanel.secret"] != "mp-secret-key-1234" {
		t.Errorf("expected unmasked mixpanel.secret, got %v", flat["mixpanel.secret"])
	}
	if flat["telegram.token"] != "bot-token-abcd" {
		t.Errorf("expected unmasked telegram.token, got %v", flat["telegram.token"])
	}
	if flat["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", flat["log_level"])
	}
}

func TestListValues_WithMask(t *testing.T) {
	cfg := &Config{
		LogLevel: "info",
	}
	cfg.Mixpanel.Secret = "mp-secret-key-1234"
	cfg.Telegram.Token = "bot-token-abcd"

	flat, err := ListValues(cfg, true)
	if err != nil {
		t.Fatalf("ListValues failed: %v", err)
	}

	if flat["mixpanel.secret"] != "***1234" {
		t.Errorf("expected masked mixpanel.secret=***1234, got %v", flat["mixpanel.secret"])
	}
	if flat["telegram.token"] != "***abcd" {
		t.Errorf("expected masked telegram.token=***abcd, got %v", flat["telegram.token"])
	}
	if flat["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", flat["log_level"])
	}
}

func TestGetValue_ExistingKey(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{
		LogLevel:      "debug",
		MaxConcurrent: 8,
	}
	cfg.Mixpanel.Username = "svc.export"
	writeTestConfig(t, path, cfg)

	v, err := GetValue(path, "log_level")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "debug" {
		t.Errorf("expected log_level=debug, got %v", v)
	}

	v, err = GetValue(path, "mixpanel.username")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "svc.export" {
		t.Errorf("expected mixpanel.username=svc.export, got %v", v)
	}

	v, err = GetValue(path, "max_concurrent")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	// JSON numbers are float64
	if v != float64(8) {
		t.Errorf("expected max_concurrent=8, got %v (%T)", v, v)
	}
}

func TestGetValue_UnknownKey(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	writeTestConfig(t, path, cfg)

	_, err := GetValue(path, "nonexistent.key")
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	expected := "unknown config key: nonexistent.key"
	if err.Error() != expected {
		t.Errorf("expected error %q, got %q", expected, err.Error())
	}
}

func TestSetValue_String(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	cfg.Mixpanel.Username = "svc.export"
	writeTestConfig(t, path, cfg)

	if err := SetValue(path, "log_level", "debug"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	v, err := GetValue(path, "log_level")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "debug" {
		t.Errorf("expected log_level=debug after set, got %v", v)
	}

	// Verify other values are preserved
	v, err = GetValue(path, "mixpanel.username")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "svc.export" {
		t.Errorf("expected mixpanel.username=svc.export (preserved), got %v", v)
	}
}

func TestSetValue_Numeric(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{MaxConcurrent: 2}
	writeTestConfig(t, path, cfg)

	if err := SetValue(path, "max_concurrent", "16"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	v, err := GetValue(path, "max_concurrent")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != float64(16) {
		t.Errorf("expected max_concurrent=16, got %v (%T)", v, v)
	}
}

func TestSetValue_Boolean(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	writeTestConfig(t, path, cfg)

	if err := SetValue(path, "replay.snapshot_pages", "true"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	v, err := GetValue(path, "replay.snapshot_pages")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != true {
		t.Errorf("expected replay.snapshot_pages=true, got %v (%T)", v, v)
	}
}

func TestSetValue_Float(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{}
	cfg.Replay.FixedDelaySeconds = 1.0
	writeTestConfig(t, path, cfg)

	if err := SetValue(path, "replay.fixed_delay_seconds", "0.5"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	v, err := GetValue(path, "replay.fixed_delay_seconds")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != 0.5 {
		t.Errorf("expected replay.fixed_delay_seconds=0.5, got %v (%T)", v, v)
	}
}

func TestSetValue_NewNestedKey(t *testing.T) {
	path := tempConfigPath(t)

	cfg := &Config{LogLevel: "info"}
	writeTestConfig(t, path, cfg)

	// Set a new nested key that doesn't exist in Config struct
	if err := SetValue(path, "custom.setting", "value"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	v, err := GetValue(path, "custom.setting")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "value" {
		t.Errorf("expected custom.setting=value, got %v", v)
	}
}

func TestSetValue_NonexistentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist", "config.json")
	err := SetValue(path, "log_level", "debug")
	if err == nil {
		t.Fatal("expected error for nonexistent file, got nil")
	}
}

func TestGetValue_NonexistentFile(t *testing.T) {
	// File doesn't exist yet; Load will create it with defaults
	path := tempConfigPath(t)

	v, err := GetValue(path, "log_level")
	if err != nil {
		t.Fatalf("GetValue on new config failed: %v", err)
	}
	if v != "info" {
		t.Errorf("expected default log_level=info, got %v", v)
	}
}

func TestSave_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "config.json")

	cfg := &Config{LogLevel: "warn"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save should create parent directory, got: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file should exist: %v", err)
	}
}
