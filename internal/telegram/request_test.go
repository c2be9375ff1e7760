package telegram

import (
	"net/url"
	"strings"
	"testing"
)

func TestRequestURL(t *testing.T) {
	t.Parallel()
	r := Request{
		Method: "getUpdates",
		Args: Args{
			"timeout":         10,
			"offset":          int64(1234567),
			"allowed_updates": []string{"channel_post"},
		},
	}
	got, err := r.URL("", "123:abc")
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	if !strings.HasPrefix(got, "https://api.telegram.org/bot123:abc/getUpdates?") {
		t.Fatalf("unexpected prefix: %s", got)
	}

	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("parse rendered url: %v", err)
	}
	q := u.Query()
	if q.Get("timeout") != "10" {
		t.Fatalf("timeout = %q", q.Get("timeout"))
	}
	if q.Get("offset") != "1234567" {
		t.Fatalf("offset = %q", q.Get("offset"))
	}
	if q.Get("allowed_updates") != `["channel_post"]` {
		t.Fatalf("allowed_updates = %q", q.Get("allowed_updates"))
	}
}

func TestRequestURLSerializesStructuredArgs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		arg  any
		want string
	}{
		{name: "bool", arg: true, want: "true"},
		{name: "string", arg: "hi there", want: "hi there"},
		{name: "map", arg: map[string]int{"a": 1}, want: `{"a":1}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Request{Method: "m", Args: Args{"k": tt.arg}}.URL("https://example.test", "tok")
			if err != nil {
				t.Fatalf("URL: %v", err)
			}
			u, err := url.Parse(raw)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got := u.Query().Get("k"); got != tt.want {
				t.Fatalf("k = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequestURLNoArgs(t *testing.T) {
	t.Parallel()
	got, err := Request{Method: "getMe"}.URL("https://example.test", "tok")
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	if got != "https://example.test/bottok/getMe" {
		t.Fatalf("url = %s", got)
	}
}
