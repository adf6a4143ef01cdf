package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

type Config struct {
	Recognition RecognitionConfig `mapstructure:"recognition" yaml:"recognition"`
	Audio       AudioConfig       `mapstructure:"audio" yaml:"audio"`
	Storage     StorageConfig     `mapstructure:"storage" yaml:"storage"`
	UI          UIConfig          `mapstructure:"ui" yaml:"ui"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
}

type RecognitionConfig struct {
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIToken string        `mapstructure:"api_token" yaml:"api_token"`
	Return   string        `mapstructure:"return" yaml:"return"` // companion platforms, comma separated
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type AudioConfig struct {
	Backend     string        `mapstructure:"backend" yaml:"backend"` // "pipewire", "auto"
	Source      string        `mapstructure:"source" yaml:"source"`   // PipeWire node or port, empty = default input
	SampleRate  int           `mapstructure:"sample_rate" yaml:"sample_rate"`
	Channels    int           `mapstructure:"channels" yaml:"channels"`
	MaxDuration time.Duration `mapstructure:"max_duration" yaml:"max_duration"` // 0 = until stopped
}

type StorageConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"` // "file", "sqlite", "memory"
	Path    string `mapstructure:"path" yaml:"path"`
}

type UIConfig struct {
	Locale       string `mapstructure:"locale" yaml:"locale"`
	AppURL       string `mapstructure:"app_url" yaml:"app_url"`
	ShareCommand string `mapstructure:"share_command" yaml:"share_command"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port" yaml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

var defaultConfig = Config{
	Recognition: RecognitionConfig{
		Endpoint: "https://api.audd.io/",
		Return:   "apple_music,spotify,youtube",
		Timeout:  30 * time.Second,
	},
	Audio: AudioConfig{
		Backend:     "auto",
		SampleRate:  44100,
		Channels:    1,
		MaxDuration: 12 * time.Second,
	},
	Storage: StorageConfig{
		Backend: "file",
	},
	UI: UIConfig{
		Locale: "en-US",
		AppURL: "https://github.com/audiolibrelab/tunefinder",
	},
	Server: ServerConfig{
		Port:           8080,
		AllowedOrigins: []string{"*"},
	},
}

// Default returns a copy of the built-in configuration.
func Default() *Config {
	c := defaultConfig
	c.Server.AllowedOrigins = append([]string(nil), defaultConfig.Server.AllowedOrigins...)
	return &c
}

// DefaultPath is ~/.config/tunefinder.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "tunefinder.yaml"
	}
	return filepath.Join(home, ".config", "tunefinder.yaml")
}

// Load reads configFile on top of the defaults. A missing file is not an
// error; environment variables prefixed with TUNEFINDER_ override both
// (TUNEFINDER_RECOGNITION_API_TOKEN, or the shorter TUNEFINDER_API_TOKEN).
func Load(configFile string) (*Config, error) {
	v := newViper()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Storage.Path = expandPath(cfg.Storage.Path)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("recognition.endpoint", defaultConfig.Recognition.Endpoint)
	v.SetDefault("recognition.api_token", "")
	v.SetDefault("recognition.return", defaultConfig.Recognition.Return)
	v.SetDefault("recognition.timeout", defaultConfig.Recognition.Timeout)
	v.SetDefault("audio.backend", defaultConfig.Audio.Backend)
	v.SetDefault("audio.source", "")
	v.SetDefault("audio.sample_rate", defaultConfig.Audio.SampleRate)
	v.SetDefault("audio.channels", defaultConfig.Audio.Channels)
	v.SetDefault("audio.max_duration", defaultConfig.Audio.MaxDuration)
	v.SetDefault("storage.backend", defaultConfig.Storage.Backend)
	v.SetDefault("storage.path", "")
	v.SetDefault("ui.locale", defaultConfig.UI.Locale)
	v.SetDefault("ui.app_url", defaultConfig.UI.AppURL)
	v.SetDefault("ui.share_command", "")
	v.SetDefault("server.port", defaultConfig.Server.Port)
	v.SetDefault("server.allowed_origins", defaultConfig.Server.AllowedOrigins)

	v.SetEnvPrefix("TUNEFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("recognition.api_token", "TUNEFINDER_RECOGNITION_API_TOKEN", "TUNEFINDER_API_TOKEN")

	return v
}

// UpdateValue sets a single key in the config file, creating the file if needed.
func UpdateValue(configFile, key, value string) error {
	if configFile == "" {
		return fmt.Errorf("no config file specified")
	}
	if !isKnownKey(key) {
		return fmt.Errorf("unknown config key %q", key)
	}

	// Create a new viper instance to avoid touching defaults or env overrides
	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	v.Set(key, value)

	// Validate the result before writing it
	check := newViper()
	if err := check.MergeConfigMap(v.AllSettings()); err != nil {
		return fmt.Errorf("error merging config: %w", err)
	}
	var cfg Config
	if err := check.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("error writing config file %s: %w", configFile, err)
	}

	return nil
}

func isKnownKey(key string) bool {
	for _, k := range newViper().AllKeys() {
		if k == strings.ToLower(key) {
			return true
		}
	}
	return false
}

// Masked returns a copy safe for display, with the API token hidden.
func (c *Config) Masked() *Config {
	out := *c
	out.Server.AllowedOrigins = append([]string(nil), c.Server.AllowedOrigins...)
	if tok := c.Recognition.APIToken; tok != "" {
		if len(tok) > 4 {
			out.Recognition.APIToken = strings.Repeat("*", len(tok)-4) + tok[len(tok)-4:]
		} else {
			out.Recognition.APIToken = "****"
		}
	}
	return &out
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if err := validateEndpoint(c.Recognition.Endpoint); err != nil {
		return fmt.Errorf("recognition.endpoint: %w", err)
	}
	if c.Recognition.Timeout <= 0 {
		return fmt.Errorf("recognition.timeout must be positive, got: %s", c.Recognition.Timeout)
	}

	switch strings.ToLower(c.Audio.Backend) {
	case "pipewire", "auto":
	default:
		return fmt.Errorf("audio.backend must be 'pipewire' or 'auto', got: %s", c.Audio.Backend)
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return fmt.Errorf("audio.sample_rate must be between 8000 and 192000, got: %d", c.Audio.SampleRate)
	}
	if c.Audio.Channels != 1 && c.Audio.Channels != 2 {
		return fmt.Errorf("audio.channels must be 1 or 2, got: %d", c.Audio.Channels)
	}
	if c.Audio.MaxDuration < 0 {
		return fmt.Errorf("audio.max_duration must not be negative, got: %s", c.Audio.MaxDuration)
	}
	if !isValidAudioSource(c.Audio.Source) {
		return fmt.Errorf("audio.source must be a PipeWire node or port name, got: %q", c.Audio.Source)
	}

	switch c.Storage.Backend {
	case "file", "sqlite", "memory":
	default:
		return fmt.Errorf("storage.backend must be 'file', 'sqlite' or 'memory', got: %s", c.Storage.Backend)
	}

	if _, err := language.Parse(c.UI.Locale); err != nil {
		return fmt.Errorf("ui.locale is not a valid BCP 47 tag: %q", c.UI.Locale)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", c.Server.Port)
	}

	return nil
}

func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must be an http(s) URL, got: %q", endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", endpoint)
	}
	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// isValidAudioSource accepts node names and device:port names
func isValidAudioSource(source string) bool {
	source = strings.TrimSpace(source)

	// Empty means the default input
	if source == "" {
		return true
	}

	if strings.Contains(source, ":") {
		// Device names may contain colons themselves, so split on the last one
		lastColonIndex := strings.LastIndex(source, ":")
		deviceName := strings.TrimSpace(source[:lastColonIndex])
		port := strings.TrimSpace(source[lastColonIndex+1:])
		return deviceName != "" && port != ""
	}

	return !strings.ContainsAny(source, "\n\t")
}
