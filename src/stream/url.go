package stream

import (
	"fmt"
	"net/url"
	"strings"
)

// StreamURL derives the push endpoint from the HTTP API origin:
// http becomes ws and https becomes wss, the path is replaced.
func StreamURL(base, path string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid api origin %q: %w", base, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported api origin scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("api origin %q has no host", base)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u.Path = path
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
