package telegram

import "fmt"

// APIError is a Bot API failure: the backend answered, but with
// ok=false. It belongs to exactly one call and is delivered through
// that call's handle.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: api error %d: %s", e.Code, e.Description)
}

// TransportError is a network-level failure: the backend never answered
// with a parseable envelope.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("telegram: transport: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }
