package textcodec

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestBase64RoundTrip(t *testing.T) {
	t.Parallel()
	payloads := [][]byte{nil, []byte("hello"), {0x00, 0xFF, 0x7F, 0x80}, bytes.Repeat([]byte{0xAB}, 300)}
	for _, p := range payloads {
		text := (Base64{}).EncodeText(p)
		got, err := (Base64{}).DecodeText(text)
		if err != nil {
			t.Fatalf("DecodeText(%q): %v", text, err)
		}
		if !bytes.Equal(got, p) {
			t.Fatalf("round trip = %q, want %q", got, p)
		}
	}
}

func TestBase64MessageSafeAlphabet(t *testing.T) {
	t.Parallel()
	text := (Base64{}).EncodeText([]byte{0xFB, 0xFF, 0xFE, 0xFD})
	if strings.ContainsAny(text, "+/=") {
		t.Fatalf("encoded text %q contains non-message-safe characters", text)
	}
}

func TestBase64DecodeMalformed(t *testing.T) {
	t.Parallel()
	for _, text := range []string{"not base64!!", "ab cd", "ä"} {
		_, err := (Base64{}).DecodeText(text)
		var derr *DecodeError
		if !errors.As(err, &derr) {
			t.Fatalf("DecodeText(%q) = %v, want DecodeError", text, err)
		}
	}
}
