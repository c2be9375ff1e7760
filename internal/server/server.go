package server

import (
	"context"
	"sync"

	"isotun/internal/journal"
	"isotun/internal/scheduler"
	"isotun/internal/telegram"
	"isotun/internal/textcodec"
	"isotun/internal/wire"
	logx "isotun/pkg/logx"
)

// Handler is invoked once per packet addressed to the server. It runs
// in its own goroutine; panics and errors are contained and never stop
// the listen loop.
type Handler func(ctx context.Context, pkt *wire.Packet)

// Options are the pluggable pieces of a Server. Zero values select the
// defaults (identity payload codec, base64 text codec, no handler, no
// journal).
type Options struct {
	Codec   wire.Codec
	Text    textcodec.Codec
	Handler Handler
	Journal journal.Recorder
}

// Server is the tunnel endpoint for one channel.
type Server struct {
	channelID int64
	codec     wire.Codec
	text      textcodec.Codec
	sched     *scheduler.Service
	handler   Handler
	journal   journal.Recorder
	log       logx.Logger

	runMu     sync.Mutex
	running   bool
	runCancel context.CancelFunc
	wg        sync.WaitGroup
}

func New(channelID int64, sched *scheduler.Service, opt Options, log logx.Logger) *Server {
	if opt.Codec == nil {
		opt.Codec = wire.Plain{}
	}
	if opt.Text == nil {
		opt.Text = textcodec.Base64{}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{
		channelID: channelID,
		codec:     opt.Codec,
		text:      opt.Text,
		sched:     sched,
		handler:   opt.Handler,
		journal:   opt.Journal,
		log:       log,
	}
}

// Send frames payload for dst (source is always the server address),
// runs it through the payload codec and the text-safe encoding, and
// enqueues one sendMessage. The returned handle may be awaited for the
// delivery result or dropped.
func (s *Server) Send(ctx context.Context, dst wire.Address, payload []byte) (*scheduler.Handle, error) {
	pkt := &wire.Packet{Source: wire.AddrServer, Destination: dst, Payload: payload}

	enc, err := s.codec.Encode(pkt.Encode())
	if err != nil {
		return nil, err
	}
	text := s.text.EncodeText(enc)

	h := s.sched.Enqueue("sendMessage", telegram.Args{
		"chat_id": s.channelID,
		"text":    text,
	})

	s.record(ctx, journal.Entry{
		Direction:  journal.DirSend,
		Source:     uint16(wire.AddrServer),
		Dest:       uint16(dst),
		PayloadLen: len(payload),
	})
	s.log.Debug("packet enqueued",
		logx.String("dest", dst.String()),
		logx.Int("payload_len", len(payload)))
	return h, nil
}

// Start launches the scheduler and the listen loop. Both run until the
// context is cancelled.
func (s *Server) Start(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.running {
		return
	}
	s.running = true

	rctx, cancel := context.WithCancel(ctx)
	s.runCancel = cancel

	s.sched.Start(rctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.listen(rctx)
	}()

	s.log.Info("server started", logx.Int64("channel_id", s.channelID))
}

// Stop shuts down the listen loop and the scheduler.
func (s *Server) Stop(ctx context.Context) error {
	s.runMu.Lock()
	cancel := s.runCancel
	s.runCancel = nil
	wasRunning := s.running
	s.running = false
	s.runMu.Unlock()

	if !wasRunning {
		return nil
	}
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.sched.Stop(ctx)
}

func (s *Server) record(ctx context.Context, e journal.Entry) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(ctx, e); err != nil {
		s.log.Warn("journal write failed", logx.Err(err))
	}
}
