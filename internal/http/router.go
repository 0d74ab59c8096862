package httpx

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/modscf/gateway/pkg/analytics"
	"github.com/modscf/gateway/pkg/curseforge"
)

const requestIDHeader = "X-Request-ID"

// FileResolver looks up a file together with its owning project.
type FileResolver interface {
	GetFileInfo(ctx context.Context, fileID uint64) (curseforge.Project, curseforge.File, error)
}

// Capturer records page views. Implementations must not fail the request.
type Capturer interface {
	Capture(ctx context.Context, view analytics.PageView)
}

// Config holds the process-lifetime router settings.
type Config struct {
	Host                  HostConfig
	ProjectRedirectStatus int
}

// Router wires the redirect endpoints.
type Router struct {
	mux           *http.ServeMux
	logger        *slog.Logger
	files         FileResolver
	analytics     Capturer
	host          HostConfig
	projectStatus int

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	lookupResults      *prometheus.CounterVec
}

// NewRouter assembles routes with dependencies. A nil capturer disables analytics.
func NewRouter(logger *slog.Logger, files FileResolver, capturer Capturer, cfg Config) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	status := cfg.ProjectRedirectStatus
	if status != http.StatusSeeOther {
		status = http.StatusTemporaryRedirect
	}
	r := &Router{
		mux:           http.NewServeMux(),
		logger:        logger,
		files:         files,
		analytics:     capturer,
		host:          cfg.Host,
		projectStatus: status,
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) register() {
	r.mux.HandleFunc("GET /{$}", r.audit("/", r.capture(r.handleRoot)))
	r.mux.HandleFunc("GET /health", r.audit("/health", r.capture(r.handleHealth)))
	r.mux.HandleFunc("GET /metrics", r.audit("/metrics", promhttp.Handler().ServeHTTP))
	r.mux.HandleFunc("GET /{project_id}", r.audit("/{project_id}", r.capture(r.handleProject)))
	r.mux.HandleFunc("GET /f/{file_id}", r.audit("/f/{file_id}", r.capture(r.handleFile)))
	r.mux.HandleFunc("/", r.audit("unmatched", r.capture(r.handleNotFound)))
}

func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		reqID := strings.TrimSpace(req.Header.Get(requestIDHeader))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)

		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.statusCode()
		duration := time.Since(start)
		r.recordRequest(req.Method, route, status, duration)

		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
			"request_id", reqID,
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if location := recorder.Header().Get("Location"); location != "" {
			fields = append(fields, "location", location)
		}

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) statusCode() int {
	if sr.status == 0 {
		return http.StatusOK
	}
	return sr.status
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}
