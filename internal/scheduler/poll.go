package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"isotun/internal/telegram"
	logx "isotun/pkg/logx"
)

// PollInbound performs one long-poll round through the regular call
// queue (so the round uses an eligible credential like any other call).
// It returns the retained channel posts in arrival order and advances
// the consumption offset to the update ID of the last RAW item — not
// the last retained one — so skipped items are never re-fetched.
//
// A round that times out with no new data returns (nil, nil).
func (s *Service) PollInbound(ctx context.Context, channelID int64) ([]Inbound, error) {
	args := telegram.Args{
		"timeout":         int(s.cfg.PollTimeout / time.Second),
		"allowed_updates": []string{"channel_post"},
	}
	if off := s.offset.Load(); off != 0 {
		args["offset"] = off
	}

	raw, err := s.Enqueue("getUpdates", args).Wait(ctx)
	if err != nil {
		return nil, err
	}

	var updates []telegram.Update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, &telegram.TransportError{Err: err}
	}
	if len(updates) == 0 {
		return nil, nil
	}

	s.offset.Store(updates[len(updates)-1].UpdateID)

	out := make([]Inbound, 0, len(updates))
	for _, u := range updates {
		post := u.ChannelPost
		if post == nil || post.Text == "" {
			continue // not a text post; cannot carry a packet
		}
		if channelID != 0 && post.Chat.ID != channelID {
			continue
		}
		out = append(out, Inbound{
			Text:      post.Text,
			MessageID: post.ID,
			ChatID:    post.Chat.ID,
			UpdateID:  u.UpdateID,
		})
	}
	return out, nil
}

// pollLoop drives PollInbound continuously and hands retained batches
// to the inbox. Poll failures are logged and retried after a short
// pause; nothing terminates the loop except the context.
func (s *Service) pollLoop(ctx context.Context) {
	const failurePause = 3 * time.Second

	for {
		if ctx.Err() != nil {
			return
		}

		batch, err := s.PollInbound(ctx, s.cfg.ChannelID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("long poll failed", logx.Err(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(failurePause):
			}
			continue
		}
		if len(batch) == 0 {
			continue
		}

		s.log.Debug("inbound batch",
			logx.Int("messages", len(batch)),
			logx.Int64("offset", s.offset.Load()))

		select {
		case <-ctx.Done():
			return
		case s.inbox <- batch:
		}
	}
}
