package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseEndpoint validates an object-storage endpoint given either as a bare
// host[:port] or as an http(s) URL, and returns the host part together with
// whether TLS is implied by the scheme.
func ParseEndpoint(raw string) (host string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("endpoint cannot be empty")
	}

	dangerous := []string{";", "&", "|", "`", "$", "(", ")", "<", ">", "\"", "'", "\\", "\n", "\r", " "}
	for _, char := range dangerous {
		if strings.Contains(raw, char) {
			return "", false, fmt.Errorf("endpoint contains dangerous character: %q", char)
		}
	}

	if !strings.Contains(raw, "://") {
		if strings.Contains(raw, "/") {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		return raw, false, nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("invalid endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", false, fmt.Errorf("invalid endpoint scheme: %s (only http/https allowed)", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", false, fmt.Errorf("endpoint must have a valid hostname")
	}
	if parsed.Path != "" && parsed.Path != "/" {
		return "", false, fmt.Errorf("endpoint must not contain a path")
	}

	return parsed.Host, parsed.Scheme == "https", nil
}
