package httpx

import (
	"net/http"
	"strings"

	"github.com/modscf/gateway/pkg/analytics"
)

// Paths that never produce a page view.
var uncapturedPaths = map[string]struct{}{
	"/":        {},
	"/health":  {},
	"/metrics": {},
}

// capture reports a page view once next has produced its response.
func (r *Router) capture(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if r.analytics == nil {
			next(w, req)
			return
		}
		if _, skip := uncapturedPaths[req.URL.Path]; skip {
			next(w, req)
			return
		}

		host, hasHost := ResolveHost(req, r.host)
		var userAgent *string
		if values := req.Header.Values("User-Agent"); len(values) > 0 {
			ua := values[0]
			userAgent = &ua
		}

		recorder, ok := w.(*statusRecorder)
		if !ok {
			recorder = &statusRecorder{ResponseWriter: w}
		}
		next(recorder, req)

		status := recorder.statusCode()
		r.analytics.Capture(req.Context(), analytics.PageView{
			CurrentURL: currentURL(req, host, hasHost),
			Host:       host,
			Path:       req.URL.Path,
			Status:     status,
			Success:    status >= 200 && status < 400,
			UserAgent:  userAgent,
		})
	}
}

// currentURL rebuilds the absolute URL the client requested.
func currentURL(req *http.Request, host string, hasHost bool) string {
	uri := req.URL.RequestURI()
	if !hasHost {
		return uri
	}
	if strings.Contains(host, "://") {
		return strings.TrimRight(host, "/") + uri
	}
	return requestScheme(req) + "://" + host + uri
}

func requestScheme(req *http.Request) string {
	if req.TLS != nil {
		return "https"
	}
	proto, _, _ := strings.Cut(req.Header.Get("X-Forwarded-Proto"), ",")
	if strings.EqualFold(strings.TrimSpace(proto), "https") {
		return "https"
	}
	return "http"
}
