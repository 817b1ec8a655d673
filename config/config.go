// Package config handles application configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/language"
)

const (
	appName        = "jarwiz"
	configFileName = "config.json"
)

// Environment overrides, applied after the config file.
const (
	EnvBackendURL     = "JARWIZ_API_URL"
	EnvBackendURLAlt  = "VITE_API_URL"
	EnvDeepgramKey    = "JARWIZ_DEEPGRAM_API_KEY"
	EnvDeepgramKeyAlt = "VITE_DEEPGRAM_API_KEY"
	EnvFFmpeg         = "JARWIZ_FFMPEG"
)

// Config represents the application configuration.
type Config struct {
	BackendURL     string `json:"backend_url"`
	DeepgramAPIKey string `json:"deepgram_api_key,omitempty"`

	Listen  ListenConfig  `json:"listen"`
	Capture CaptureConfig `json:"capture"`
	Hotkeys HotkeyConfig  `json:"hotkeys"`
	Cache   CacheConfig   `json:"cache"`

	path string
}

// ListenConfig tunes the live transcription stream.
type ListenConfig struct {
	Model            string `json:"model"`
	Language         string `json:"language"`
	UtteranceEndMs   int    `json:"utterance_end_ms"`
	KeepAliveSeconds int    `json:"keep_alive_seconds"`
	ChunkMs          int    `json:"chunk_ms"`
}

// CaptureConfig selects the ffmpeg capture devices.
type CaptureConfig struct {
	FFmpegPath       string `json:"ffmpeg_path,omitempty"`
	InputFormat      string `json:"input_format,omitempty"`
	DisplayDevice    string `json:"display_device,omitempty"`
	MicrophoneDevice string `json:"microphone_device,omitempty"`
	SampleRate       int    `json:"sample_rate"`
}

// HotkeyConfig holds the global shortcuts of the desktop shell.
type HotkeyConfig struct {
	Enabled   bool     `json:"enabled"`
	AskLatest []string `json:"ask_latest"`
	ToggleMic []string `json:"toggle_mic"`
}

// CacheConfig controls the page image cache.
type CacheConfig struct {
	Enabled  bool   `json:"enabled"`
	Dir      string `json:"dir,omitempty"`
	TTLHours int    `json:"ttl_hours"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BackendURL: "http://localhost:8000",
		Listen: ListenConfig{
			Model:            "nova-2",
			Language:         "en",
			UtteranceEndMs:   3000,
			KeepAliveSeconds: 10,
			ChunkMs:          250,
		},
		Capture: CaptureConfig{SampleRate: 48000},
		Hotkeys: HotkeyConfig{
			Enabled:   true,
			AskLatest: []string{"a", "ctrl", "shift"},
			ToggleMic: []string{"m", "ctrl", "shift"},
		},
		Cache: CacheConfig{Enabled: true, TTLHours: 24 * 7},
	}
}

// Load loads configuration from the user config directory and applies
// environment overrides. Returns defaults if the file doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}
	return LoadFrom(path)
}

// LoadFrom loads configuration from path.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := firstEnv(EnvBackendURL, EnvBackendURLAlt); v != "" {
		c.BackendURL = v
	}
	if v := firstEnv(EnvDeepgramKey, EnvDeepgramKeyAlt); v != "" {
		c.DeepgramAPIKey = v
	}
	if v := os.Getenv(EnvFFmpeg); v != "" {
		c.Capture.FFmpegPath = v
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// applyDefaults fills zero values left by a partial config file.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Listen.Model == "" {
		c.Listen.Model = def.Listen.Model
	}
	if c.Listen.Language == "" {
		c.Listen.Language = def.Listen.Language
	}
	if c.Listen.UtteranceEndMs == 0 {
		c.Listen.UtteranceEndMs = def.Listen.UtteranceEndMs
	}
	if c.Listen.KeepAliveSeconds == 0 {
		c.Listen.KeepAliveSeconds = def.Listen.KeepAliveSeconds
	}
	if c.Listen.ChunkMs == 0 {
		c.Listen.ChunkMs = def.Listen.ChunkMs
	}
	if c.Capture.SampleRate == 0 {
		c.Capture.SampleRate = def.Capture.SampleRate
	}
	if len(c.Hotkeys.AskLatest) == 0 {
		c.Hotkeys.AskLatest = def.Hotkeys.AskLatest
	}
	if len(c.Hotkeys.ToggleMic) == 0 {
		c.Hotkeys.ToggleMic = def.Hotkeys.ToggleMic
	}
	if c.Cache.TTLHours == 0 {
		c.Cache.TTLHours = def.Cache.TTLHours
	}
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.BackendURL != "" {
		u, err := url.Parse(c.BackendURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid backend_url %q", c.BackendURL)
		}
	}
	if _, err := language.Parse(c.Listen.Language); err != nil {
		return fmt.Errorf("invalid listen language %q: %w", c.Listen.Language, err)
	}
	if c.Listen.UtteranceEndMs < 1000 {
		return fmt.Errorf("utterance_end_ms must be at least 1000, got %d", c.Listen.UtteranceEndMs)
	}
	if c.Listen.KeepAliveSeconds < 1 {
		return fmt.Errorf("keep_alive_seconds must be positive, got %d", c.Listen.KeepAliveSeconds)
	}
	if c.Listen.ChunkMs < 20 {
		return fmt.Errorf("chunk_ms must be at least 20, got %d", c.Listen.ChunkMs)
	}
	if c.Capture.SampleRate < 8000 {
		return fmt.Errorf("capture sample_rate must be at least 8000, got %d", c.Capture.SampleRate)
	}
	return nil
}

// Save persists the configuration to disk.
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		p, err := configPath()
		if err != nil {
			return fmt.Errorf("get config path: %w", err)
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// KeepAliveInterval returns the transcription keep-alive period.
func (c *Config) KeepAliveInterval() time.Duration {
	return time.Duration(c.Listen.KeepAliveSeconds) * time.Second
}

// ChunkInterval returns the recorder chunk period.
func (c *Config) ChunkInterval() time.Duration {
	return time.Duration(c.Listen.ChunkMs) * time.Millisecond
}

// CacheTTL returns how long page images stay cached.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// CacheDir returns the page image cache directory.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("get cache dir: %w", err)
	}
	return filepath.Join(dir, appName, "pages"), nil
}

func configPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, configFileName), nil
}
