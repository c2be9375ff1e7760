package server

import (
	"context"

	"isotun/internal/journal"
	"isotun/internal/scheduler"
	"isotun/internal/telegram"
	"isotun/internal/wire"
	logx "isotun/pkg/logx"
)

// listen consumes the scheduler's inbound batches for the lifetime of
// the process. No per-message failure terminates it.
func (s *Server) listen(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-s.sched.Inbox():
			for _, msg := range batch {
				s.handleInbound(ctx, msg)
			}
		}
	}
}

// handleInbound runs one message through the decode pipeline and routes
// by destination address. Undecodable messages are deleted from the
// channel; messages for unrouted destinations stay in place.
func (s *Server) handleInbound(ctx context.Context, msg scheduler.Inbound) {
	raw, err := s.text.DecodeText(msg.Text)
	if err != nil {
		s.log.Debug("inbound text decode failed; deleting",
			logx.Int64("message_id", msg.MessageID), logx.Err(err))
		s.record(ctx, journal.Entry{Direction: journal.DirDrop, MessageID: msg.MessageID, Note: "text decode failed"})
		s.deleteMessage(ctx, msg)
		return
	}

	dec, err := s.codec.Decode(raw)
	if err != nil {
		s.log.Debug("inbound payload codec failed; deleting",
			logx.Int64("message_id", msg.MessageID), logx.Err(err))
		s.record(ctx, journal.Entry{Direction: journal.DirDrop, MessageID: msg.MessageID, Note: "codec decode failed"})
		s.deleteMessage(ctx, msg)
		return
	}

	pkt, err := wire.DecodePacket(dec)
	if err != nil {
		s.log.Debug("inbound framing failed; deleting",
			logx.Int64("message_id", msg.MessageID), logx.Err(err))
		s.record(ctx, journal.Entry{Direction: journal.DirDrop, MessageID: msg.MessageID, Note: "framing failed"})
		s.deleteMessage(ctx, msg)
		return
	}

	switch pkt.Destination {
	case wire.AddrServer:
		s.record(ctx, journal.Entry{
			Direction:  journal.DirRecv,
			Source:     uint16(pkt.Source),
			Dest:       uint16(pkt.Destination),
			PayloadLen: len(pkt.Payload),
			MessageID:  msg.MessageID,
		})
		s.invokeHandler(ctx, pkt)
		s.deleteMessage(ctx, msg)
	default:
		// Routing for broadcast and peer destinations is not
		// implemented. The message stays in the channel.
		s.log.Info("no route for destination; message left in channel",
			logx.String("dest", pkt.Destination.String()),
			logx.String("source", pkt.Source.String()),
			logx.Int64("message_id", msg.MessageID))
	}
}

// invokeHandler runs the callback in its own goroutine. A panicking or
// failing handler must never take the listen loop down with it.
func (s *Server) invokeHandler(ctx context.Context, pkt *wire.Packet) {
	if s.handler == nil {
		s.log.Debug("packet for server but no handler bound",
			logx.String("source", pkt.Source.String()),
			logx.Int("payload_len", len(pkt.Payload)))
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("packet handler panicked", logx.Any("panic", r))
			}
		}()
		s.handler(ctx, pkt)
	}()
}

// deleteMessage enqueues the cleanup call and logs its outcome without
// blocking the listen loop.
func (s *Server) deleteMessage(ctx context.Context, msg scheduler.Inbound) {
	h := s.sched.Enqueue("deleteMessage", telegram.Args{
		"chat_id":    msg.ChatID,
		"message_id": msg.MessageID,
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := h.Wait(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("delete failed; message may linger in channel",
				logx.Int64("message_id", msg.MessageID), logx.Err(err))
		}
	}()
}
