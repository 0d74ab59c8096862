package curseforge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the public CurseForge API host.
	DefaultBaseURL = "https://api.curseforge.com"
	// UserAgent identifies the gateway to the API.
	UserAgent = "mods.cf/Service (https://github.com/Up-Mods/mods.cf)"

	defaultTimeout   = 15 * time.Second
	maxErrorBodySize = 4096
	maxBodySize      = 16 << 20
)

// ErrNotFound indicates the API reported the requested entity as absent.
var ErrNotFound = errors.New("curseforge: not found")

// ErrInconsistent indicates the API returned results that violate its own contract.
var ErrInconsistent = errors.New("curseforge: inconsistent response")

// StatusError is returned for unexpected non-success responses.
type StatusError struct {
	URL     string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("curseforge request %s failed with status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("curseforge request %s failed (%d): %s", e.URL, e.Status, e.Message)
}

// DecodeError reports a response body that does not match the v1 schema.
type DecodeError struct {
	URL     string
	Subject string
	Field   string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unable to decode response for %s from %s at %s: %v", e.Subject, e.URL, e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Client provides typed access to the CurseForge v1 API.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithBaseURL points the client at another API host, e.g. a mock.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(base); trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// WithUserAgent replaces the identifying User-Agent.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(ua); trimmed != "" {
			c.userAgent = trimmed
		}
	}
}

// New constructs a Client authenticating with apiKey.
func New(apiKey string, opts ...Option) (*Client, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, errors.New("curseforge api key required")
	}
	cli := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     key,
		userAgent:  UserAgent,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(cli)
	}
	if _, err := url.Parse(cli.baseURL); err != nil {
		return nil, fmt.Errorf("invalid curseforge base url: %w", err)
	}
	return cli, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	if c == nil {
		return nil, errors.New("curseforge client is nil")
	}
	endpoint := c.baseURL + path
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	limited := io.LimitReader(resp.Body, maxErrorBodySize)
	buf, _ := io.ReadAll(limited)
	return &StatusError{
		URL:     requestURL(resp),
		Status:  resp.StatusCode,
		Message: strings.TrimSpace(string(buf)),
	}
}

// decode reads the response body into v. Errors carry the JSON path of the
// offending field so schema drift upstream can be pinpointed.
func decode(resp *http.Response, subject string, v any) error {
	endpoint := requestURL(resp)
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("unable to read response body for %s from %s: %w", subject, endpoint, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &DecodeError{URL: endpoint, Subject: subject, Field: fieldPath(err), Err: err}
	}
	return nil
}

func fieldPath(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field != "" {
			return typeErr.Field
		}
		return fmt.Sprintf("offset %d", typeErr.Offset)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Sprintf("offset %d", syntaxErr.Offset)
	}
	return "$"
}

// missingField builds the DecodeError for a required field the API left out.
func missingField(resp *http.Response, subject, field string) error {
	return &DecodeError{
		URL:     requestURL(resp),
		Subject: subject,
		Field:   field,
		Err:     errors.New("missing required field"),
	}
}

func requestURL(resp *http.Response) string {
	if resp.Request == nil || resp.Request.URL == nil {
		return ""
	}
	return resp.Request.URL.String()
}
