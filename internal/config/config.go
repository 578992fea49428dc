// Package config loads application configuration from an optional YAML
// file and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "TGBRIDGE_"

// Config holds the application configuration. It is passed explicitly
// into the components that need it; there is no global state.
type Config struct {
	BotToken       string  `koanf:"bot_token"`
	APIID          int     `koanf:"api_id"`
	APIHash        string  `koanf:"api_hash"`
	DataDir        string  `koanf:"data_dir"`
	PollInterval   int     `koanf:"poll_interval"`    // seconds between poll cycles
	MinSleep       int     `koanf:"min_sleep"`        // seconds, sleep floor after slow cycles
	ChannelPauseMS int     `koanf:"channel_pause_ms"` // pause between channels within a cycle
	MaxMediaBytes  int64   `koanf:"max_media_bytes"`
	BatchLimit     int     `koanf:"batch_limit"` // max messages fetched per channel per cycle
	Admins         []int64 `koanf:"admins"`
	OpenSubscribe  bool    `koanf:"open_subscribe"` // allow non-admins to manage subscriptions
	LogLevel       string  `koanf:"log_level"`
}

// Load reads path (when it exists) and then the TGBRIDGE_* environment
// variables, which take precedence over file values.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	// TGBRIDGE_BOT_TOKEN -> bot_token
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	// Environment variables deliver admins as a comma-separated string.
	if raw, ok := k.Get("admins").(string); ok {
		admins, err := ParseAdmins(raw)
		if err != nil {
			return nil, err
		}
		if err := k.Set("admins", admins); err != nil {
			return nil, fmt.Errorf("set admins: %w", err)
		}
	}

	cfg := &Config{
		DataDir:        "./data",
		PollInterval:   300,
		MinSleep:       10,
		ChannelPauseMS: 1000,
		MaxMediaBytes:  5 * 1024 * 1024,
		BatchLimit:     100,
		LogLevel:       "info",
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("bot_token is required")
	}
	if cfg.PollInterval < 1 {
		return nil, fmt.Errorf("poll_interval must be positive")
	}
	return cfg, nil
}

// ParseAdmins parses a comma-separated list of user IDs.
func ParseAdmins(raw string) ([]int64, error) {
	var admins []int64
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin ID %q: %w", s, err)
		}
		admins = append(admins, id)
	}
	return admins, nil
}

// IsAdmin checks whether a user ID is in the admin list. An empty list
// means everyone is an admin.
func (c *Config) IsAdmin(userID int64) bool {
	if len(c.Admins) == 0 {
		return true
	}
	for _, id := range c.Admins {
		if id == userID {
			return true
		}
	}
	return false
}

// PollIntervalD returns the poll interval as a duration.
func (c *Config) PollIntervalD() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

// MinSleepD returns the sleep floor as a duration.
func (c *Config) MinSleepD() time.Duration {
	return time.Duration(c.MinSleep) * time.Second
}

// ChannelPauseD returns the inter-channel pause as a duration.
func (c *Config) ChannelPauseD() time.Duration {
	return time.Duration(c.ChannelPauseMS) * time.Millisecond
}
