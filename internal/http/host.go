package httpx

import (
	"net/http"
	"regexp"
	"strings"
)

// HostConfig controls how the public host of a request is determined.
type HostConfig struct {
	// HeaderName is the trusted header carrying the host, "Host" when empty.
	HeaderName string
	// FrontendURL replaces missing or loopback hosts when set.
	FrontendURL string
}

var loopbackHost = regexp.MustCompile(`(?i)^(?:https?://)?(?:localhost|127\.0\.0\.1)`)

// ResolveHost returns the host the client addressed. Loopback and missing
// values fall back to cfg.FrontendURL when one is configured.
func ResolveHost(req *http.Request, cfg HostConfig) (string, bool) {
	host := strings.TrimSpace(headerHost(req, cfg.HeaderName))
	if host == "" || loopbackHost.MatchString(host) {
		if cfg.FrontendURL != "" {
			return cfg.FrontendURL, true
		}
	}
	if host == "" {
		return "", false
	}
	return host, true
}

func headerHost(req *http.Request, name string) string {
	name = strings.TrimSpace(name)
	if name == "" || http.CanonicalHeaderKey(name) == "Host" {
		// net/http moves the Host header out of req.Header.
		if req.Host != "" {
			return req.Host
		}
		return req.Header.Get("Host")
	}
	return req.Header.Get(name)
}
