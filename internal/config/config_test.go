package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tunefinder.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Expected no error for missing file, got: %v", err)
	}

	if cfg.Recognition.Endpoint != "https://api.audd.io/" {
		t.Errorf("Expected default endpoint, got %s", cfg.Recognition.Endpoint)
	}
	if cfg.Recognition.Return != "apple_music,spotify,youtube" {
		t.Errorf("Expected default return platforms, got %s", cfg.Recognition.Return)
	}
	if cfg.Recognition.Timeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %s", cfg.Recognition.Timeout)
	}
	if cfg.Audio.MaxDuration != 12*time.Second {
		t.Errorf("Expected 12s max duration, got %s", cfg.Audio.MaxDuration)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("Expected file storage, got %s", cfg.Storage.Backend)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Server.Port)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	configFile := createTempConfig(t, `
recognition:
  api_token: abc123
  timeout: 10s
audio:
  backend: pipewire
  source: "alsa_input.usb-mic:capture_FL"
  sample_rate: 48000
  channels: 2
  max_duration: 0s
storage:
  backend: sqlite
  path: ~/music/history.db
ui:
  locale: bn-BD
  share_command: "wl-copy"
server:
  port: 9090
  allowed_origins:
    - http://localhost:3000
`)

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Recognition.APIToken != "abc123" {
		t.Errorf("Expected token abc123, got %s", cfg.Recognition.APIToken)
	}
	if cfg.Recognition.Timeout != 10*time.Second {
		t.Errorf("Expected 10s timeout, got %s", cfg.Recognition.Timeout)
	}
	if cfg.Audio.Source != "alsa_input.usb-mic:capture_FL" || cfg.Audio.SampleRate != 48000 || cfg.Audio.Channels != 2 {
		t.Errorf("Audio section incorrect: %+v", cfg.Audio)
	}
	if cfg.Audio.MaxDuration != 0 {
		t.Errorf("Expected max duration disabled, got %s", cfg.Audio.MaxDuration)
	}
	home, _ := os.UserHomeDir()
	if cfg.Storage.Path != filepath.Join(home, "music", "history.db") {
		t.Errorf("Expected expanded storage path, got %s", cfg.Storage.Path)
	}
	if cfg.UI.Locale != "bn-BD" || cfg.UI.ShareCommand != "wl-copy" {
		t.Errorf("UI section incorrect: %+v", cfg.UI)
	}
	// Unset keys keep their defaults
	if cfg.Recognition.Endpoint != "https://api.audd.io/" {
		t.Errorf("Expected default endpoint, got %s", cfg.Recognition.Endpoint)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("Expected allowed origins override, got %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoad_EnvironmentToken(t *testing.T) {
	t.Setenv("TUNEFINDER_API_TOKEN", "from-env")
	t.Setenv("TUNEFINDER_SERVER_PORT", "7000")

	cfg, err := Load(createTempConfig(t, "recognition:\n  api_token: from-file\n"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cfg.Recognition.APIToken != "from-env" {
		t.Errorf("Expected env token to win, got %s", cfg.Recognition.APIToken)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Expected env port 7000, got %d", cfg.Server.Port)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(createTempConfig(t, "recognition: [unclosed"))
	if err == nil {
		t.Fatal("Expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "error reading config file") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad endpoint scheme", func(c *Config) { c.Recognition.Endpoint = "ftp://api.audd.io" }, "recognition.endpoint"},
		{"endpoint without host", func(c *Config) { c.Recognition.Endpoint = "https://" }, "recognition.endpoint"},
		{"zero timeout", func(c *Config) { c.Recognition.Timeout = 0 }, "recognition.timeout"},
		{"unknown backend", func(c *Config) { c.Audio.Backend = "alsa" }, "audio.backend"},
		{"low sample rate", func(c *Config) { c.Audio.SampleRate = 4000 }, "audio.sample_rate"},
		{"three channels", func(c *Config) { c.Audio.Channels = 3 }, "audio.channels"},
		{"negative duration", func(c *Config) { c.Audio.MaxDuration = -time.Second }, "audio.max_duration"},
		{"port without device", func(c *Config) { c.Audio.Source = ":capture_1" }, "audio.source"},
		{"device without port", func(c *Config) { c.Audio.Source = "system:" }, "audio.source"},
		{"node name", func(c *Config) { c.Audio.Source = "alsa_input.pci-0000_00_1f.3.analog-stereo" }, ""},
		{"storage backend", func(c *Config) { c.Storage.Backend = "redis" }, "storage.backend"},
		{"locale", func(c *Config) { c.UI.Locale = "not a tag!" }, "ui.locale"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestMasked(t *testing.T) {
	cfg := Default()
	cfg.Recognition.APIToken = "supersecret1234"

	masked := cfg.Masked()
	if masked.Recognition.APIToken != "***********1234" {
		t.Errorf("Expected masked token, got %s", masked.Recognition.APIToken)
	}
	if cfg.Recognition.APIToken != "supersecret1234" {
		t.Error("Masked must not modify the original")
	}

	cfg.Recognition.APIToken = "abc"
	if got := cfg.Masked().Recognition.APIToken; got != "****" {
		t.Errorf("Expected short token fully masked, got %s", got)
	}
}

func TestUpdateValue(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "nested", "tunefinder.yaml")

	if err := UpdateValue(configFile, "ui.locale", "bn-BD"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := UpdateValue(configFile, "server.port", "9191"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}
	if cfg.UI.Locale != "bn-BD" {
		t.Errorf("Expected locale bn-BD, got %s", cfg.UI.Locale)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("Expected port 9191, got %d", cfg.Server.Port)
	}

	if err := UpdateValue(configFile, "server.port", "0"); err == nil {
		t.Error("Expected validation error for port 0")
	}
	if err := UpdateValue(configFile, "nope.key", "x"); err == nil {
		t.Error("Expected error for unknown key")
	}
}
