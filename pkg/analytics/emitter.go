package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTimeout   = 5 * time.Second
	maxErrorBodySize = 4096
	captureSuffix    = "/i/v0/e/"

	// EventPageView is the PostHog event name used for every capture.
	EventPageView = "$pageview"
	// LibraryName is reported as the $lib property.
	LibraryName = "mods.cf"
)

// ErrMissingAPIKey indicates analytics were enabled without a project API key.
var ErrMissingAPIKey = errors.New("analytics enabled but no project api key configured")

// ErrUnauthorized indicates the collector rejected the project API key.
var ErrUnauthorized = errors.New("analytics collector unauthorized")

// ErrInvalidEvent indicates the collector rejected the payload.
var ErrInvalidEvent = errors.New("analytics collector rejected event")

// Config controls whether and where page views are delivered.
type Config struct {
	Enabled  bool
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// PageView is a single request observed by the gateway.
type PageView struct {
	CurrentURL string
	Host       string
	Path       string
	Status     int
	Success    bool
	UserAgent  *string
}

// Emitter forwards page views to a PostHog compatible collector. A nil or
// disabled Emitter performs no I/O.
type Emitter struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	client   *http.Client
	logger   *slog.Logger
	now      func() time.Time
	newID    func() (uuid.UUID, error)
}

// Option customises emitter instantiation.
type Option func(*Emitter)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Emitter) {
		if client != nil {
			e.client = client
		}
	}
}

// WithLogger sets the logger delivery failures are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Emitter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New builds an emitter from cfg. Analytics stay disabled unless cfg.Enabled is
// set and an endpoint is configured.
func New(cfg Config, opts ...Option) (*Emitter, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if !cfg.Enabled || endpoint == "" {
		return &Emitter{}, nil
	}
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	e := &Emitter{
		endpoint: endpoint + captureSuffix,
		apiKey:   key,
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
		logger:   slog.Default(),
		now:      time.Now,
		newID:    uuid.NewV7,
	}
	for _, opt := range opts {
		opt(e)
	}
	initMetrics()
	return e, nil
}

// Enabled reports whether Capture delivers events.
func (e *Emitter) Enabled() bool {
	return e != nil && e.endpoint != ""
}

// Capture delivers view and blocks until the collector answered or the
// emitter timeout elapsed. Failures are logged and never returned. Cancelling
// ctx does not abort delivery.
func (e *Emitter) Capture(ctx context.Context, view PageView) {
	if !e.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	if err := e.Send(ctx, view); err != nil {
		recordDelivery("failed")
		e.logger.Warn("analytics capture failed", "path", view.Path, "status", view.Status, "error", err)
		return
	}
	recordDelivery("delivered")
}

// Send posts view to the collector and reports the outcome.
func (e *Emitter) Send(ctx context.Context, view PageView) error {
	if !e.Enabled() {
		return errors.New("analytics emitter not enabled")
	}
	distinctID, err := e.newID()
	if err != nil {
		return fmt.Errorf("generate distinct id: %w", err)
	}
	body, err := json.Marshal(buildPayload(e.apiKey, distinctID, view, e.now().UTC()))
	if err != nil {
		return fmt.Errorf("marshal analytics event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build analytics request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", LibraryName)
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("send analytics request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorForStatus(resp)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
	return nil
}

func errorForStatus(resp *http.Response) error {
	buf, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	summary := strings.TrimSpace(string(buf))
	if summary == "" {
		summary = resp.Status
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, summary)
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrInvalidEvent, summary)
	default:
		return fmt.Errorf("analytics request failed (%d): %s", resp.StatusCode, summary)
	}
}

type capturePayload struct {
	APIKey     string         `json:"api_key"`
	Event      string         `json:"event"`
	DistinctID string         `json:"distinct_id"`
	Timestamp  string         `json:"timestamp"`
	Properties map[string]any `json:"properties"`
}

func buildPayload(apiKey string, distinctID uuid.UUID, view PageView, at time.Time) capturePayload {
	return capturePayload{
		APIKey:     apiKey,
		Event:      EventPageView,
		DistinctID: distinctID.String(),
		Timestamp:  at.Format(time.RFC3339Nano),
		Properties: map[string]any{
			"$current_url":            view.CurrentURL,
			"$host":                   view.Host,
			"$pathname":               view.Path,
			"status":                  view.Status,
			"success":                 view.Success,
			"user_agent":              view.UserAgent,
			"$process_person_profile": false,
			"$lib":                    LibraryName,
		},
	}
}
