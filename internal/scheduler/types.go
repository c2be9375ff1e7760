package scheduler

import (
	"errors"
	"time"

	"isotun/internal/telegram"
)

var (
	// ErrNoCredentials is fatal at startup: the pool cannot run empty.
	ErrNoCredentials = errors.New("scheduler: no bot tokens supplied")
	// ErrStopped resolves handles that were still pending at shutdown.
	ErrStopped = errors.New("scheduler: stopped")
)

// Config controls the credential pool and the long-poll loop.
//
// All durations are parsed upstream from Go duration strings.
type Config struct {
	// Tokens is the bot token pool. At least one is required.
	Tokens []string

	// ChannelID binds the long-poll loop to one channel. If zero, the
	// poll loop is not started and only outbound dispatch runs.
	ChannelID int64

	// Cooldown is the minimum idle time before a credential may be
	// selected again. Stamped at selection, not completion. Default 1s.
	Cooldown time.Duration

	// PollTimeout bounds one getUpdates long-poll round. Default 10s.
	PollTimeout time.Duration

	// APIHost overrides the Bot API endpoint (tests, self-hosted).
	APIHost string

	// RatePerSec optionally caps total calls per second across the
	// whole pool. 0 disables the cap.
	RatePerSec int

	// InboxSize is the buffer of the inbound batch channel. Default 16.
	InboxSize int
}

func (c Config) withDefaults() Config {
	if c.Cooldown <= 0 {
		c.Cooldown = time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 10 * time.Second
	}
	if c.InboxSize <= 0 {
		c.InboxSize = 16
	}
	return c
}

// credential is one bot token plus its cooldown state. Owned by the
// dispatch loop; nothing else reads or writes lastUsed.
type credential struct {
	key      string
	lastUsed time.Time
}

// queuedCall sits in the FIFO until the dispatch loop picks it up.
type queuedCall struct {
	req    telegram.Request
	handle *Handle
}

// Inbound is one retained channel post, ready for the server's dispatch
// loop.
type Inbound struct {
	Text      string
	MessageID int64
	ChatID    int64
	UpdateID  int64
}
