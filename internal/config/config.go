package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/MimeLyc/job-board-moderator/pkg/log"
)

// Config holds all application configuration.
// Values come from environment variables (optionally seeded from a .env file) with defaults.
//
// Environment Variables:
// Discord:
// - DISCORD_TOKEN: bot token (required)
// - DISCORD_GUILD_ID: the moderated guild (required)
// - DISCORD_APP_ID: application ID, enables the reset-job-cache command
// - DISCORD_REQUEST_TIMEOUT: per-call timeout (default: 10s)
//
// Channels and roles:
// - JOB_BOARD_CHANNEL_ID: the monitored job board (required)
// - MOD_LOG_CHANNEL_ID: where reports go (required)
// - STAFF_ROLE_IDS, HELPFUL_ROLE_IDS: comma separated role IDs
//
// Moderation:
// - REPOST_THRESHOLD (default: 10m), POST_WINDOW (default: 162h)
// - THREAD_CACHE_SIZE (default: 100), THREAD_TTL (default: 2h)
// - STALE_THREAD_AGE (default: 1h), MARKER_TTL (default: 5m)
// - REQUIRE_ENGLISH (default: false)
//
// Reactions:
// - REACTION_WARN (1), REACTION_ALERT (2), REACTION_DELETE (0, disabled), REACTION_REWORK (2)
// - REACTION_COOLDOWN (default: 60s)
//
// Schedule:
// - AGED_POSTS_CRON (default: 0 * * * *), STALE_THREADS_CRON (default: 30 * * * *)
//
// System:
// - HTTP_ADDR (default: :8080), DATA_DIR (default: /app/data), LOG_LEVEL (default: info)
type Config struct {
	Discord    DiscordConfig    `json:"discord"`
	Channels   ChannelsConfig   `json:"channels"`
	Roles      RolesConfig      `json:"roles"`
	Moderation ModerationConfig `json:"moderation"`
	Reactions  ReactionsConfig  `json:"reactions"`
	Schedule   ScheduleConfig   `json:"schedule"`
	HTTP       HTTPConfig       `json:"http"`
	System     SystemConfig     `json:"system"`

	offline bool
}

type DiscordConfig struct {
	Token          string        `json:"-"`
	GuildID        string        `json:"guild_id"`
	AppID          string        `json:"app_id"`
	RequestTimeout time.Duration `json:"request_timeout"`
}

type ChannelsConfig struct {
	JobBoard string `json:"job_board"`
	ModLog   string `json:"mod_log"`
}

type RolesConfig struct {
	Staff   []string `json:"staff"`
	Helpful []string `json:"helpful"`
}

type ModerationConfig struct {
	RepostThreshold time.Duration `json:"repost_threshold"`
	PostWindow      time.Duration `json:"post_window"`
	ThreadCacheSize int           `json:"thread_cache_size"`
	ThreadTTL       time.Duration `json:"thread_ttl"`
	StaleThreadAge  time.Duration `json:"stale_thread_age"`
	MarkerTTL       time.Duration `json:"marker_ttl"`
	RequireEnglish  bool          `json:"require_english"`
}

type ReactionsConfig struct {
	Warn     int           `json:"warn"`
	Alert    int           `json:"alert"`
	Delete   int           `json:"delete"`
	Rework   int           `json:"rework"`
	Cooldown time.Duration `json:"cooldown"`
}

type ScheduleConfig struct {
	AgedPostsCron    string `json:"aged_posts_cron"`
	StaleThreadsCron string `json:"stale_threads_cron"`
}

type HTTPConfig struct {
	Addr string `json:"addr"`
}

type SystemConfig struct {
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`
}

// LogLevelFromEnv returns LOG_LEVEL, for initializing logging before the full config loads.
func LogLevelFromEnv() string {
	return getEnvString("LOG_LEVEL", "info")
}

func (c *Config) DBPath() string {
	return filepath.Join(c.System.DataDir, "jobmod.db")
}

// Option is a function type for configuring Config
type Option func(*Config)

// Offline skips the Discord requirements, for commands that only touch local storage.
func Offline() Option {
	return func(c *Config) {
		c.offline = true
	}
}

// LoadDotEnv seeds the environment from the given files. Missing files are ignored and
// variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
		log.Debug("Loaded environment from %s", path)
	}
	return nil
}

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		Discord: DiscordConfig{
			Token:          getEnvString("DISCORD_TOKEN", ""),
			GuildID:        getEnvString("DISCORD_GUILD_ID", ""),
			AppID:          getEnvString("DISCORD_APP_ID", ""),
			RequestTimeout: getEnvDuration("DISCORD_REQUEST_TIMEOUT", 10*time.Second),
		},
		Channels: ChannelsConfig{
			JobBoard: getEnvString("JOB_BOARD_CHANNEL_ID", ""),
			ModLog:   getEnvString("MOD_LOG_CHANNEL_ID", ""),
		},
		Roles: RolesConfig{
			Staff:   getEnvList("STAFF_ROLE_IDS"),
			Helpful: getEnvList("HELPFUL_ROLE_IDS"),
		},
		Moderation: ModerationConfig{
			RepostThreshold: getEnvDuration("REPOST_THRESHOLD", 10*time.Minute),
			PostWindow:      getEnvDuration("POST_WINDOW", 162*time.Hour),
			ThreadCacheSize: getEnvInt("THREAD_CACHE_SIZE", 100),
			ThreadTTL:       getEnvDuration("THREAD_TTL", 2*time.Hour),
			StaleThreadAge:  getEnvDuration("STALE_THREAD_AGE", time.Hour),
			MarkerTTL:       getEnvDuration("MARKER_TTL", 5*time.Minute),
			RequireEnglish:  getEnvBool("REQUIRE_ENGLISH", false),
		},
		Reactions: ReactionsConfig{
			Warn:     getEnvInt("REACTION_WARN", 1),
			Alert:    getEnvInt("REACTION_ALERT", 2),
			Delete:   getEnvInt("REACTION_DELETE", 0),
			Rework:   getEnvInt("REACTION_REWORK", 2),
			Cooldown: getEnvDuration("REACTION_COOLDOWN", time.Minute),
		},
		Schedule: ScheduleConfig{
			AgedPostsCron:    getEnvString("AGED_POSTS_CRON", "0 * * * *"),
			StaleThreadsCron: getEnvString("STALE_THREADS_CRON", "30 * * * *"),
		},
		HTTP: HTTPConfig{
			Addr: getEnvString("HTTP_ADDR", ":8080"),
		},
		System: SystemConfig{
			DataDir:  getEnvString("DATA_DIR", "/app/data"),
			LogLevel: getEnvString("LOG_LEVEL", "info"),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Debug("Config: %+v", *config)
	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if !c.offline {
		if c.Discord.Token == "" {
			return fmt.Errorf("DISCORD_TOKEN is required")
		}
		if c.Discord.GuildID == "" {
			return fmt.Errorf("DISCORD_GUILD_ID is required")
		}
		if c.Channels.JobBoard == "" {
			return fmt.Errorf("JOB_BOARD_CHANNEL_ID is required")
		}
		if c.Channels.ModLog == "" {
			return fmt.Errorf("MOD_LOG_CHANNEL_ID is required")
		}
	}
	if c.Moderation.RepostThreshold <= 0 {
		return fmt.Errorf("REPOST_THRESHOLD must be positive")
	}
	if c.Moderation.PostWindow <= 0 {
		return fmt.Errorf("POST_WINDOW must be positive")
	}
	if c.Moderation.ThreadCacheSize <= 0 {
		return fmt.Errorf("THREAD_CACHE_SIZE must be positive")
	}
	if c.System.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	return c.RuntimeSettings().Validate()
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string) []string {
	var ret []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			ret = append(ret, part)
		}
	}
	return ret
}

// ValidateCron reports whether expr is a standard five-field cron expression.
func ValidateCron(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return fmt.Errorf("cron expression is required")
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}
