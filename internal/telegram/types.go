package telegram

import "encoding/json"

// Args is the argument mapping of one Bot API call. Values may be
// string, int/int64, bool, slices or maps; non-scalar values are
// JSON-serialized into the query string.
type Args map[string]any

// APIResponse is the Bot API envelope common to every method.
type APIResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Update is one getUpdates item. Only channel posts matter to the
// tunnel; other update kinds arrive with ChannelPost == nil and are
// skipped upstream.
type Update struct {
	UpdateID    int64    `json:"update_id"`
	ChannelPost *Message `json:"channel_post,omitempty"`
}

// Message is the subset of a Telegram message the tunnel reads.
// Text == "" means the post carried no text body (stickers, photos, ...)
// and cannot hold a tunneled packet.
type Message struct {
	ID   int64  `json:"message_id"`
	Chat Chat   `json:"chat"`
	Text string `json:"text,omitempty"`
}

type Chat struct {
	ID int64 `json:"id"`
}
