package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const DefaultRuntimeSettingsFile = "/app/config/settings.json"

// RuntimeSettings are the knobs operators may change while the bot runs.
type RuntimeSettings struct {
	ReactionWarn     int    `json:"reaction_warn"`
	ReactionAlert    int    `json:"reaction_alert"`
	ReactionDelete   int    `json:"reaction_delete"`
	ReactionRework   int    `json:"reaction_rework"`
	AgedPostsCron    string `json:"aged_posts_cron"`
	StaleThreadsCron string `json:"stale_threads_cron"`
}

func RuntimeSettingsFilePath() string {
	return getEnvString("SETTINGS_FILE", DefaultRuntimeSettingsFile)
}

func (s RuntimeSettings) Validate() error {
	if s.ReactionWarn < 0 {
		return fmt.Errorf("reaction_warn must not be negative")
	}
	if s.ReactionAlert < 1 {
		return fmt.Errorf("reaction_alert must be at least 1")
	}
	if s.ReactionDelete < 0 {
		return fmt.Errorf("reaction_delete must not be negative")
	}
	if s.ReactionRework < 1 {
		return fmt.Errorf("reaction_rework must be at least 1")
	}
	if err := ValidateCron(s.AgedPostsCron); err != nil {
		return fmt.Errorf("aged_posts_cron: %w", err)
	}
	if err := ValidateCron(s.StaleThreadsCron); err != nil {
		return fmt.Errorf("stale_threads_cron: %w", err)
	}
	return nil
}

func (c *Config) RuntimeSettings() RuntimeSettings {
	return RuntimeSettings{
		ReactionWarn:     c.Reactions.Warn,
		ReactionAlert:    c.Reactions.Alert,
		ReactionDelete:   c.Reactions.Delete,
		ReactionRework:   c.Reactions.Rework,
		AgedPostsCron:    c.Schedule.AgedPostsCron,
		StaleThreadsCron: c.Schedule.StaleThreadsCron,
	}
}

// WithRuntimeSettings overrides config with the non-zero fields of settings.
func WithRuntimeSettings(settings RuntimeSettings) Option {
	return func(c *Config) {
		if settings.ReactionWarn > 0 {
			c.Reactions.Warn = settings.ReactionWarn
		}
		if settings.ReactionAlert > 0 {
			c.Reactions.Alert = settings.ReactionAlert
		}
		if settings.ReactionDelete > 0 {
			c.Reactions.Delete = settings.ReactionDelete
		}
		if settings.ReactionRework > 0 {
			c.Reactions.Rework = settings.ReactionRework
		}
		if strings.TrimSpace(settings.AgedPostsCron) != "" {
			c.Schedule.AgedPostsCron = settings.AgedPostsCron
		}
		if strings.TrimSpace(settings.StaleThreadsCron) != "" {
			c.Schedule.StaleThreadsCron = settings.StaleThreadsCron
		}
	}
}

func LoadRuntimeSettingsFile(path string) (RuntimeSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuntimeSettings{}, err
	}
	var settings RuntimeSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return RuntimeSettings{}, fmt.Errorf("invalid settings file: %w", err)
	}
	return settings, nil
}

func WriteRuntimeSettingsFile(path string, settings RuntimeSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	content, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	content = append(content, '\n')

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// RuntimeSettingsStore keeps the current settings, persists updates and notifies listeners.
type RuntimeSettingsStore struct {
	path string

	mu        sync.RWMutex
	current   RuntimeSettings
	listeners []func(RuntimeSettings) error
}

func NewRuntimeSettingsStore(path string, initial RuntimeSettings) (*RuntimeSettingsStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("settings file path is required")
	}
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &RuntimeSettingsStore{
		path:    path,
		current: initial,
	}, nil
}

// OnChange registers fn to run after every successful update. A listener error fails the update.
func (s *RuntimeSettingsStore) OnChange(fn func(RuntimeSettings) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *RuntimeSettingsStore) GetRuntimeSettings() (RuntimeSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

func (s *RuntimeSettingsStore) UpdateRuntimeSettings(next RuntimeSettings) (RuntimeSettings, error) {
	if err := next.Validate(); err != nil {
		return RuntimeSettings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fn := range s.listeners {
		if err := fn(next); err != nil {
			return RuntimeSettings{}, err
		}
	}
	if err := WriteRuntimeSettingsFile(s.path, next); err != nil {
		return RuntimeSettings{}, err
	}
	s.current = next
	return next, nil
}
