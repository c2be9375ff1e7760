package probe

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"isotun/internal/scheduler"
	"isotun/internal/telegram"
	logx "isotun/pkg/logx"
)

type transportFunc func(ctx context.Context, callURL string) (*telegram.APIResponse, error)

func (f transportFunc) Perform(ctx context.Context, callURL string) (*telegram.APIResponse, error) {
	return f(ctx, callURL)
}

func newSched(t *testing.T, tr telegram.Transport) *scheduler.Service {
	t.Helper()
	s, err := scheduler.New(scheduler.Config{Tokens: []string{"tok"}, Cooldown: time.Millisecond}, tr, logx.Nop())
	if err != nil {
		t.Fatalf("scheduler.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	t.Cleanup(func() {
		cancel()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer stopCancel()
		_ = s.Stop(stopCtx)
	})
	return s
}

func TestRunOnce(t *testing.T) {
	t.Parallel()
	ok := transportFunc(func(ctx context.Context, callURL string) (*telegram.APIResponse, error) {
		return &telegram.APIResponse{OK: true, Result: json.RawMessage(`{"id": 1}`)}, nil
	})
	p, err := New("@every 1h", newSched(t, ok), logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
}

func TestRunOnceSurfacesAPIError(t *testing.T) {
	t.Parallel()
	bad := transportFunc(func(ctx context.Context, callURL string) (*telegram.APIResponse, error) {
		return &telegram.APIResponse{OK: false, ErrorCode: 401, Description: "Unauthorized"}, nil
	})
	p, err := New("@every 1h", newSched(t, bad), logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var apiErr *telegram.APIError
	if err := p.RunOnce(ctx); !errors.As(err, &apiErr) || apiErr.Code != 401 {
		t.Fatalf("RunOnce = %v, want 401 APIError", err)
	}
}

func TestNewRejectsBadSchedule(t *testing.T) {
	t.Parallel()
	if _, err := New("every so often", nil, logx.Nop()); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}
