package telegram

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
)

// DefaultHost is the public Bot API endpoint. Overridable for tests and
// self-hosted Bot API servers.
const DefaultHost = "https://api.telegram.org"

// Request describes one Bot API call before a credential is attached.
type Request struct {
	Method string
	Args   Args
}

// URL renders the call for a concrete credential. Keys are emitted in
// sorted order so the output is stable for logging and tests.
func (r Request) URL(host, token string) (string, error) {
	if host == "" {
		host = DefaultHost
	}

	q := url.Values{}
	keys := make([]string, 0, len(r.Args))
	for k := range r.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		s, err := encodeArg(r.Args[k])
		if err != nil {
			return "", fmt.Errorf("telegram: arg %q: %w", k, err)
		}
		q.Set(k, s)
	}

	u := host + "/bot" + token + "/" + r.Method
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return u, nil
}

// encodeArg follows the Bot API convention: scalars verbatim,
// everything structured (and bools) as JSON.
func encodeArg(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
