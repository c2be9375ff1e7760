// Package telegram holds the thin Bot API surface the tunnel consumes:
// request building, the response envelope, the typed API/transport
// errors and the Transport capability interface. The scheduler owns
// which credential performs a call; this package only shapes the call.
package telegram
