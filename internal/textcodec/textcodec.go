// Package textcodec turns arbitrary bytes into chat-message-safe text
// and back. The tunnel treats this as an opaque reversible stage; Base64
// is the default implementation.
package textcodec

import (
	"encoding/base64"
	"fmt"
)

// Codec is the text-safe transport encoding consumed by the server.
type Codec interface {
	EncodeText(src []byte) string
	DecodeText(text string) ([]byte, error)
}

// DecodeError reports text that is not valid output of the codec
// (characters outside the alphabet, truncated input, ...).
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("textcodec: %v", e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// Base64 encodes with the URL-safe alphabet, unpadded, so the output
// survives chat backends that mangle '+', '/' and trailing '='.
type Base64 struct{}

var b64 = base64.RawURLEncoding

func (Base64) EncodeText(src []byte) string { return b64.EncodeToString(src) }

func (Base64) DecodeText(text string) ([]byte, error) {
	out, err := b64.DecodeString(text)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return out, nil
}
