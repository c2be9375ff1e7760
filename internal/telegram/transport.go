package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Transport performs one prepared Bot API call and parses the envelope.
// A *TransportError means the network or the envelope failed; an
// envelope with ok=false is NOT an error at this layer — interpreting
// it is the scheduler's job.
type Transport interface {
	Perform(ctx context.Context, callURL string) (*APIResponse, error)
}

// HTTPTransport is the production Transport on net/http.
//
// The client timeout must exceed the scheduler's long-poll timeout or
// every getUpdates round would be cut short.
type HTTPTransport struct {
	Client *http.Client
}

// NewHTTPTransport returns a transport whose client timeout leaves the
// given long-poll window room to complete.
func NewHTTPTransport(pollTimeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		Client: &http.Client{Timeout: pollTimeout + 10*time.Second},
	}
}

func (t *HTTPTransport) Perform(ctx context.Context, callURL string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, callURL, nil)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	var env APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &TransportError{Err: err}
	}
	return &env, nil
}
