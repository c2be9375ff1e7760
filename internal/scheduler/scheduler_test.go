package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"isotun/internal/telegram"
	logx "isotun/pkg/logx"
)

type transportFunc func(ctx context.Context, callURL string) (*telegram.APIResponse, error)

func (f transportFunc) Perform(ctx context.Context, callURL string) (*telegram.APIResponse, error) {
	return f(ctx, callURL)
}

// callRecord captures one call the mock transport saw.
type callRecord struct {
	at     time.Time
	token  string
	method string
	query  url.Values
}

type recorder struct {
	mu    sync.Mutex
	calls []callRecord
}

func (r *recorder) add(callURL string) callRecord {
	u, _ := url.Parse(callURL)
	// Path shape: /bot<token>/<method>
	var token, method string
	if rest, ok := strings.CutPrefix(u.Path, "/bot"); ok {
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			token, method = rest[:i], rest[i+1:]
		}
	}
	rec := callRecord{at: time.Now(), token: token, method: method, query: u.Query()}
	r.mu.Lock()
	r.calls = append(r.calls, rec)
	r.mu.Unlock()
	return rec
}

func (r *recorder) snapshot() []callRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]callRecord(nil), r.calls...)
}

func okResponse(result string) *telegram.APIResponse {
	return &telegram.APIResponse{OK: true, Result: json.RawMessage(result)}
}

func newTestService(t *testing.T, cfg Config, tr telegram.Transport) (*Service, context.Context) {
	t.Helper()
	s, err := New(cfg, tr, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	t.Cleanup(func() {
		cancel()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer stopCancel()
		_ = s.Stop(stopCtx)
	})
	return s, ctx
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Parallel()
	_, err := New(Config{}, nil, logx.Nop())
	if !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("New with zero tokens = %v, want ErrNoCredentials", err)
	}
}

func TestDispatchSpreadsAcrossFreeCredentials(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	tr := transportFunc(func(ctx context.Context, callURL string) (*telegram.APIResponse, error) {
		rec.add(callURL)
		return okResponse("{}"), nil
	})

	cooldown := 400 * time.Millisecond
	s, _ := newTestService(t, Config{Tokens: []string{"t1", "t2", "t3"}, Cooldown: cooldown}, tr)

	waitCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	handles := make([]*Handle, 3)
	for i := range handles {
		handles[i] = s.Enqueue("sendMessage", telegram.Args{"text": fmt.Sprintf("m%d", i)})
	}
	for i, h := range handles {
		if _, err := h.Wait(waitCtx); err != nil {
			t.Fatalf("handle %d: %v", i, err)
		}
	}

	calls := rec.snapshot()
	if len(calls) != 3 {
		t.Fatalf("saw %d calls, want 3", len(calls))
	}
	tokens := map[string]bool{}
	for _, c := range calls {
		tokens[c.token] = true
	}
	if len(tokens) != 3 {
		t.Fatalf("calls used %d distinct tokens, want 3 (%v)", len(tokens), tokens)
	}
	if spread := calls[2].at.Sub(calls[0].at); spread >= cooldown {
		t.Fatalf("dispatch spread %v, want < cooldown %v (no call should wait)", spread, cooldown)
	}
}

func TestSingleCredentialRespectsCooldown(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	tr := transportFunc(func(ctx context.Context, callURL string) (*telegram.APIResponse, error) {
		rec.add(callURL)
		return okResponse("{}"), nil
	})

	cooldown := 150 * time.Millisecond
	s, _ := newTestService(t, Config{Tokens: []string{"only"}, Cooldown: cooldown}, tr)

	waitCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	h1 := s.Enqueue("sendMessage", telegram.Args{"text": "a"})
	h2 := s.Enqueue("sendMessage", telegram.Args{"text": "b"})
	if _, err := h1.Wait(waitCtx); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := h2.Wait(waitCtx); err != nil {
		t.Fatalf("second call: %v", err)
	}

	calls := rec.snapshot()
	if len(calls) != 2 {
		t.Fatalf("saw %d calls, want 2", len(calls))
	}
	if gap := calls[1].at.Sub(calls[0].at); gap <= cooldown {
		t.Fatalf("dispatch gap %v, want > cooldown %v", gap, cooldown)
	}
}

func TestDispatchKeepsFIFOOrder(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	tr := transportFunc(func(ctx context.Context, callURL string) (*telegram.APIResponse, error) {
		rec.add(callURL)
		return okResponse("{}"), nil
	})

	// One token with a real cooldown: dispatches are spaced far enough
	// apart that recorded order is the selection order.
	s, _ := newTestService(t, Config{Tokens: []string{"only"}, Cooldown: 20 * time.Millisecond}, tr)

	waitCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	const n = 4
	handles := make([]*Handle, n)
	for i := range handles {
		handles[i] = s.Enqueue(fmt.Sprintf("method%d", i), nil)
	}
	for i, h := range handles {
		if _, err := h.Wait(waitCtx); err != nil {
			t.Fatalf("handle %d: %v", i, err)
		}
	}

	calls := rec.snapshot()
	if len(calls) != n {
		t.Fatalf("saw %d calls, want %d", len(calls), n)
	}
	for i, c := range calls {
		if want := fmt.Sprintf("method%d", i); c.method != want {
			t.Fatalf("call %d = %s, want %s", i, c.method, want)
		}
	}
}

func TestAPIErrorReachesHandleOnly(t *testing.T) {
	t.Parallel()
	var n int
	var mu sync.Mutex
	tr := transportFunc(func(ctx context.Context, callURL string) (*telegram.APIResponse, error) {
		mu.Lock()
		n++
		first := n == 1
		mu.Unlock()
		if first {
			return &telegram.APIResponse{OK: false, ErrorCode: 429, Description: "Too Many Requests"}, nil
		}
		return okResponse("{}"), nil
	})

	s, _ := newTestService(t, Config{Tokens: []string{"only"}, Cooldown: time.Millisecond}, tr)

	waitCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := s.Enqueue("sendMessage", nil).Wait(waitCtx)
	var apiErr *telegram.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("first call error = %v, want APIError", err)
	}
	if apiErr.Code != 429 || apiErr.Description != "Too Many Requests" {
		t.Fatalf("unexpected APIError: %+v", apiErr)
	}

	// A failed call must not halt the scheduler.
	if _, err := s.Enqueue("sendMessage", nil).Wait(waitCtx); err != nil {
		t.Fatalf("second call after failure: %v", err)
	}
}

func TestTransportErrorReachesHandle(t *testing.T) {
	t.Parallel()
	boom := &telegram.TransportError{Err: errors.New("connection reset")}
	tr := transportFunc(func(ctx context.Context, callURL string) (*telegram.APIResponse, error) {
		return nil, boom
	})

	s, _ := newTestService(t, Config{Tokens: []string{"only"}, Cooldown: time.Millisecond}, tr)

	waitCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := s.Enqueue("sendMessage", nil).Wait(waitCtx)
	var terr *telegram.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %v, want TransportError", err)
	}
}

func TestPollInboundAdvancesOffsetPastSkippedItems(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	updates := `[
		{"update_id": 101, "channel_post": {"message_id": 9, "chat": {"id": -100}, "text": "aGk"}},
		{"update_id": 102},
		{"update_id": 103, "channel_post": {"message_id": 10, "chat": {"id": -100}}}
	]`
	tr := transportFunc(func(ctx context.Context, callURL string) (*telegram.APIResponse, error) {
		c := rec.add(callURL)
		if c.method != "getUpdates" {
			return okResponse("{}"), nil
		}
		if len(rec.snapshot()) == 1 {
			return okResponse(updates), nil
		}
		return okResponse("[]"), nil
	})

	s, ctx := newTestService(t, Config{Tokens: []string{"only"}, Cooldown: time.Millisecond}, tr)

	batch, err := s.PollInbound(ctx, -100)
	if err != nil {
		t.Fatalf("PollInbound: %v", err)
	}
	if len(batch) != 1 {
		t.Fatalf("retained %d messages, want 1", len(batch))
	}
	if batch[0].Text != "aGk" || batch[0].MessageID != 9 || batch[0].UpdateID != 101 {
		t.Fatalf("unexpected inbound: %+v", batch[0])
	}
	// Offset tracks the last RAW update, not the last retained one.
	if got := s.Offset(); got != 103 {
		t.Fatalf("offset = %d, want 103", got)
	}

	if _, err := s.PollInbound(ctx, -100); err != nil {
		t.Fatalf("second PollInbound: %v", err)
	}
	calls := rec.snapshot()
	if len(calls) != 2 {
		t.Fatalf("saw %d calls, want 2", len(calls))
	}
	if got := calls[1].query.Get("offset"); got != "103" {
		t.Fatalf("second poll offset arg = %q, want 103", got)
	}
}

func TestPollInboundEmptyRound(t *testing.T) {
	t.Parallel()
	tr := transportFunc(func(ctx context.Context, callURL string) (*telegram.APIResponse, error) {
		return okResponse("[]"), nil
	})

	s, ctx := newTestService(t, Config{Tokens: []string{"only"}, Cooldown: time.Millisecond}, tr)

	batch, err := s.PollInbound(ctx, -100)
	if err != nil {
		t.Fatalf("PollInbound: %v", err)
	}
	if len(batch) != 0 {
		t.Fatalf("retained %d messages, want 0", len(batch))
	}
	if got := s.Offset(); got != 0 {
		t.Fatalf("offset moved to %d on an empty round", got)
	}
}

func TestStopFailsPendingCalls(t *testing.T) {
	t.Parallel()
	tr := transportFunc(func(ctx context.Context, callURL string) (*telegram.APIResponse, error) {
		return okResponse("{}"), nil
	})

	s, err := New(Config{Tokens: []string{"only"}, Cooldown: time.Hour}, tr, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()

	h1 := s.Enqueue("sendMessage", nil) // dispatches immediately
	h2 := s.Enqueue("sendMessage", nil) // stuck behind the cooldown
	if _, err := h1.Wait(waitCtx); err != nil {
		t.Fatalf("first call: %v", err)
	}

	cancel()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	_ = s.Stop(stopCtx)

	if _, err := h2.Wait(waitCtx); !errors.Is(err, ErrStopped) {
		t.Fatalf("pending call after stop = %v, want ErrStopped", err)
	}
}
