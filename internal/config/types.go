package config

import (
	"errors"
	"fmt"
	"strings"
)

// Config is the daemon configuration, loaded from JSON or YAML.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Journal  *JournalConfig `json:"journal,omitempty"`
	Probe    *ProbeConfig   `json:"probe,omitempty"`
}

// TelegramConfig binds the token pool and the tunnel channel.
type TelegramConfig struct {
	// Tokens is the bot token pool. Every token must be an admin of the
	// channel; at least one is required.
	Tokens []string `json:"tokens"`

	// ChannelID is the channel the tunnel is bound to.
	ChannelID int64 `json:"channel_id"`

	// Cooldown is the minimum idle time per token between calls.
	Cooldown string `json:"cooldown,omitempty"`

	// PollTimeout bounds one getUpdates long-poll round.
	PollTimeout string `json:"poll_timeout,omitempty"`

	// APIHost overrides the Bot API endpoint (self-hosted servers).
	APIHost string `json:"api_host,omitempty"`

	// RatePerSec optionally caps total calls per second across the
	// whole pool. 0 disables the cap.
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// JournalConfig controls the optional packet journal.
//
// Example:
//
//	"journal": { "driver": "sqlite", "path": "./isotun.db" }
type JournalConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// ProbeConfig controls the scheduled credential liveness probe.
// Schedule accepts cron syntax, including "@every 5m".
type ProbeConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"`
}

// Validate rejects configurations the daemon cannot start with.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	tokens := 0
	for _, t := range c.Telegram.Tokens {
		if strings.TrimSpace(t) != "" {
			tokens++
		}
	}
	if tokens == 0 {
		return errors.New("telegram.tokens: at least one bot token is required")
	}
	if c.Telegram.ChannelID == 0 {
		return errors.New("telegram.channel_id is required")
	}
	for _, f := range []struct{ path, raw string }{
		{"telegram.cooldown", c.Telegram.Cooldown},
		{"telegram.poll_timeout", c.Telegram.PollTimeout},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}
	if c.Journal != nil {
		if _, err := ParseDurationField("journal.busy_timeout", c.Journal.BusyTimeout); err != nil {
			return err
		}
	}
	if c.Probe != nil && c.Probe.Enabled && strings.TrimSpace(c.Probe.Schedule) == "" {
		return fmt.Errorf("probe.schedule is required when probe is enabled")
	}
	return nil
}
