// Package probe periodically runs a getMe call through the scheduler so
// a dead or revoked bot token surfaces in the logs before real traffic
// hits it. Each round exercises whichever credential the dispatch loop
// selects; successive rounds walk the pool round-robin.
package probe

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"isotun/internal/scheduler"
	"isotun/internal/telegram"
	logx "isotun/pkg/logx"
)

// Enqueuer is the slice of the scheduler the probe needs.
type Enqueuer interface {
	Enqueue(method string, args telegram.Args) *scheduler.Handle
}

type Service struct {
	cron  *cron.Cron
	sched Enqueuer
	log   logx.Logger
}

// New builds the probe on the given cron schedule (standard 5-field
// syntax or "@every 5m").
func New(schedule string, sched Enqueuer, log logx.Logger) (*Service, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{cron: cron.New(), sched: sched, log: log}
	if _, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = s.RunOnce(ctx)
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// RunOnce performs one liveness round and logs the outcome.
func (s *Service) RunOnce(ctx context.Context) error {
	start := time.Now()
	_, err := s.sched.Enqueue("getMe", nil).Wait(ctx)
	if err != nil {
		s.log.Warn("credential probe failed",
			logx.Duration("took", time.Since(start)), logx.Err(err))
		return err
	}
	s.log.Debug("credential probe ok", logx.Duration("took", time.Since(start)))
	return nil
}

func (s *Service) Start() { s.cron.Start() }

// Stop waits for an in-flight probe run, bounded by ctx.
func (s *Service) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
