// Package config provides configuration loading for tunes.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gigurra/tunes/cmd/player/engine"
)

// Config represents the tunes configuration file structure.
type Config struct {
	Player        *PlayerConfig       `json:"player,omitempty"`
	Library       *LibraryConfig      `json:"library,omitempty"`
	Notifications *NotificationConfig `json:"notifications,omitempty"`
}

// PlayerConfig holds the session defaults applied when a player starts.
type PlayerConfig struct {
	Volume *float64 `json:"volume,omitempty"`
	Repeat string   `json:"repeat,omitempty"`
	Preset string   `json:"preset,omitempty"`
	// Gains are per band in dB. Ignored when Preset is set.
	Gains []float64 `json:"gains,omitempty"`
}

// LibraryConfig lists where music is found when no paths are given.
type LibraryConfig struct {
	Dirs  []string `json:"dirs,omitempty"`
	Watch bool     `json:"watch"`
}

// NotificationConfig holds settings for "now playing" desktop notifications.
type NotificationConfig struct {
	Enabled         bool `json:"enabled"`
	CooldownSeconds int  `json:"cooldown_seconds,omitempty"`
}

const (
	defaultVolume   = 0.7
	defaultCooldown = 5
)

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	volume := defaultVolume
	return &Config{
		Player: &PlayerConfig{
			Volume: &volume,
			Repeat: string(engine.RepeatOff),
		},
		Library: &LibraryConfig{},
		Notifications: &NotificationConfig{
			Enabled:         false,
			CooldownSeconds: defaultCooldown,
		},
	}
}

// ConfigDir returns the tunes config directory (~/.tunes).
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".tunes")
}

// ConfigPath returns the path to the config file (~/.tunes/config.json).
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// LogPath returns where logs go while the terminal UI owns the screen.
func LogPath() string {
	return filepath.Join(ConfigDir(), "tunes.log")
}

// Load loads the config from ~/.tunes/config.json.
// Returns default config if file doesn't exist.
func Load() (*Config, error) {
	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ConfigPath(), err)
	}

	// Apply defaults for missing sections
	defaults := DefaultConfig()
	if config.Player == nil {
		config.Player = defaults.Player
	} else {
		if config.Player.Volume == nil {
			config.Player.Volume = defaults.Player.Volume
		}
		if config.Player.Repeat == "" {
			config.Player.Repeat = defaults.Player.Repeat
		}
	}
	if config.Library == nil {
		config.Library = defaults.Library
	}
	if config.Notifications == nil {
		config.Notifications = defaults.Notifications
	} else if config.Notifications.CooldownSeconds == 0 {
		config.Notifications.CooldownSeconds = defaultCooldown
	}

	return &config, nil
}

// Save saves the config to ~/.tunes/config.json.
func Save(config *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}

// Equalizer resolves the configured band gains: the preset when one is
// named, else the explicit gains, else flat.
func (c *PlayerConfig) Equalizer() ([engine.NumBands]float64, error) {
	var gains [engine.NumBands]float64
	if c == nil {
		return gains, nil
	}
	if c.Preset != "" {
		p, err := engine.PresetByName(c.Preset)
		if err != nil {
			return gains, err
		}
		return p.Gains, nil
	}
	copy(gains[:], c.Gains)
	return gains, nil
}
