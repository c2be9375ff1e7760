package scheduler

import (
	"context"
	"time"

	"isotun/internal/telegram"
	logx "isotun/pkg/logx"
)

// dispatchLoop drains the FIFO in arrival order. For each call it picks
// the first eligible credential (round-robin from where the last scan
// stopped), stamps it used at selection time, and performs the call in
// its own goroutine. With no eligible credential it sleeps until the
// soonest cooldown expiry, racing the wake channel instead of spinning.
func (s *Service) dispatchLoop(ctx context.Context) {
	for {
		qc := s.nextPending()
		if qc == nil {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
			}
			continue
		}

		for {
			cred, wait := s.selectCredential(time.Now())
			if cred != nil {
				if s.limiter != nil {
					if err := s.limiter.Wait(ctx); err != nil {
						qc.handle.fail(err)
						return
					}
				}
				s.callWG.Add(1)
				go s.perform(ctx, qc, cred.key)
				break
			}

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				qc.handle.fail(ErrStopped)
				return
			case <-s.wake:
				// New arrivals don't change eligibility for the call at
				// the head, but draining the signal here is harmless.
				timer.Stop()
			case <-timer.C:
			}
		}
	}
}

func (s *Service) nextPending() *queuedCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	qc := s.pending[0]
	s.pending = s.pending[1:]
	return qc
}

// selectCredential scans the pool once, starting at the cursor. On a
// hit it stamps lastUsed and advances the cursor past the pick; on a
// miss it returns how long until the soonest credential frees up.
// Dispatch-loop only.
func (s *Service) selectCredential(now time.Time) (*credential, time.Duration) {
	n := len(s.creds)
	soonest := time.Duration(-1)

	for i := 0; i < n; i++ {
		idx := (s.cursor + i) % n
		c := s.creds[idx]

		idle := now.Sub(c.lastUsed)
		if idle > s.cfg.Cooldown {
			c.lastUsed = now
			s.cursor = (idx + 1) % n
			return c, 0
		}
		if left := s.cfg.Cooldown - idle; soonest < 0 || left < soonest {
			soonest = left
		}
	}

	// Eligibility is strictly "idle > cooldown"; the extra millisecond
	// keeps the wakeup from landing exactly on the boundary.
	return nil, soonest + time.Millisecond
}

// perform runs one call to completion and resolves its handle. Errors
// stay on the handle; nothing crosses back into the dispatch loop.
func (s *Service) perform(ctx context.Context, qc *queuedCall, token string) {
	defer s.callWG.Done()

	start := time.Now()

	callURL, err := qc.req.URL(s.cfg.APIHost, token)
	if err != nil {
		qc.handle.fail(err)
		return
	}

	resp, err := s.transport.Perform(ctx, callURL)
	if err != nil {
		s.log.Warn("call transport failed",
			logx.String("method", qc.req.Method),
			logx.Duration("took", time.Since(start)),
			logx.Err(err))
		qc.handle.fail(err)
		return
	}
	if !resp.OK {
		apiErr := &telegram.APIError{Code: resp.ErrorCode, Description: resp.Description}
		s.log.Warn("call rejected by api",
			logx.String("method", qc.req.Method),
			logx.Int("code", apiErr.Code),
			logx.String("description", apiErr.Description))
		qc.handle.fail(apiErr)
		return
	}

	s.log.Trace("call completed",
		logx.String("method", qc.req.Method),
		logx.Duration("took", time.Since(start)))
	qc.handle.resolve(resp.Result)
}
