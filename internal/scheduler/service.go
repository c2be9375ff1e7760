package scheduler

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"isotun/internal/telegram"
	logx "isotun/pkg/logx"
)

// Service owns the credential pool, the pending-call FIFO and the
// consumption offset.
type Service struct {
	log       logx.Logger
	transport telegram.Transport
	cfg       Config

	// pending is the FIFO of not-yet-dispatched calls. Producers append
	// under mu; only the dispatch loop removes.
	mu      sync.Mutex
	pending []*queuedCall
	wake    chan struct{} // cap 1; nudges the dispatch loop

	// creds and cursor are owned by the dispatch loop.
	creds  []*credential
	cursor int

	limiter *rate.Limiter // optional pool-wide cap

	// offset is written only by the poll loop; atomic for diagnostics.
	offset atomic.Int64

	inbox chan []Inbound

	runMu     sync.Mutex
	running   bool
	runCancel context.CancelFunc
	loopWG    sync.WaitGroup
	callWG    sync.WaitGroup // in-flight fire-and-forget calls
}

// New validates the config and builds the service. Zero tokens is the
// one unrecoverable configuration error.
func New(cfg Config, transport telegram.Transport, log logx.Logger) (*Service, error) {
	if len(cfg.Tokens) == 0 {
		return nil, ErrNoCredentials
	}
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}

	s := &Service{
		log:       log,
		transport: transport,
		cfg:       cfg,
		wake:      make(chan struct{}, 1),
		inbox:     make(chan []Inbound, cfg.InboxSize),
	}
	for _, tok := range cfg.Tokens {
		s.creds = append(s.creds, &credential{key: tok})
	}
	if cfg.RatePerSec > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	return s, nil
}

// Enqueue appends a call to the FIFO and returns its handle. It never
// blocks beyond the append itself.
func (s *Service) Enqueue(method string, args telegram.Args) *Handle {
	qc := &queuedCall{
		req:    telegram.Request{Method: method, Args: args},
		handle: newHandle(),
	}

	s.mu.Lock()
	s.pending = append(s.pending, qc)
	n := len(s.pending)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}

	if n > 64 {
		s.log.Warn("call queue growing", logx.Int("pending", n))
	}
	return qc.handle
}

// Inbox delivers the batches retained by the poll loop.
func (s *Service) Inbox() <-chan []Inbound { return s.inbox }

// Offset reports the current consumption offset (diagnostics only).
func (s *Service) Offset() int64 { return s.offset.Load() }

// PendingCalls reports the FIFO depth (diagnostics only).
func (s *Service) PendingCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Start launches the dispatch loop and, when a channel is bound, the
// long-poll loop. Both run until the context is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.running {
		return
	}
	s.running = true

	rctx, cancel := context.WithCancel(ctx)
	s.runCancel = cancel

	s.loopWG.Add(1)
	go func() {
		defer s.loopWG.Done()
		s.dispatchLoop(rctx)
	}()

	if s.cfg.ChannelID != 0 {
		s.loopWG.Add(1)
		go func() {
			defer s.loopWG.Done()
			s.pollLoop(rctx)
		}()
	}

	s.log.Info("scheduler started",
		logx.Int("tokens", len(s.creds)),
		logx.Duration("cooldown", s.cfg.Cooldown),
		logx.Duration("poll_timeout", s.cfg.PollTimeout),
		logx.Bool("polling", s.cfg.ChannelID != 0))
}

// Stop cancels both loops, waits for in-flight calls (bounded by ctx)
// and fails everything still pending with ErrStopped.
func (s *Service) Stop(ctx context.Context) error {
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
		s.loopWG.Wait()
		s.callWG.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	s.failPending(ErrStopped)
	s.log.Info("scheduler stopped", logx.Err(err))
	return err
}

func (s *Service) failPending(cause error) {
	s.mu.Lock()
	rest := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, qc := range rest {
		qc.handle.fail(cause)
	}
}
