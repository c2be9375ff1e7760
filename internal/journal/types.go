package journal

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("journal disabled")

// Config configures the journal.
//
// Driver values:
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", the journal is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means driver default
}

// Direction of a journaled event.
const (
	DirSend = "send"
	DirRecv = "recv"
	DirDrop = "drop"
)

// Entry is one journaled tunnel event. Keep it compact and
// schema-stable.
type Entry struct {
	At         time.Time
	Direction  string
	Source     uint16
	Dest       uint16
	PayloadLen int
	MessageID  int64
	Note       string
}

// Recorder is the write side consumed by the server. A nil Recorder is
// valid and records nothing.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}
