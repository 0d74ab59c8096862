package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/net/http/httpguts"
)

// ErrMissingAPIToken is returned when no CurseForge API token is configured.
var ErrMissingAPIToken = errors.New("config: CURSEFORGE_ETERNAL_API_TOKEN is required")

const (
	defaultCurseForgeURL   = "https://api.curseforge.com"
	defaultHostHeader      = "Host"
	defaultProjectStatus   = http.StatusTemporaryRedirect
	defaultUpstreamTimeout = 15 * time.Second
	defaultCaptureTimeout  = 5 * time.Second
)

// GatewayConfig holds runtime configuration for the redirect gateway.
type GatewayConfig struct {
	Environment           string
	Addr                  string
	LogLevel              string
	CurseForgeToken       string
	CurseForgeURL         string
	CurseForgeTimeout     time.Duration
	AnalyticsEnabled      bool
	AnalyticsEndpoint     string
	AnalyticsAPIKey       string
	AnalyticsTimeout      time.Duration
	HostHeaderName        string
	FrontendURL           string
	ProjectRedirectStatus int
	OTLPEndpoint          string
}

// LoadDotEnv populates the environment from path when the file exists.
// Variables that are already set win over the file.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadGatewayConfig constructs a GatewayConfig from environment variables and
// rejects settings the gateway cannot run with.
func LoadGatewayConfig() (GatewayConfig, error) {
	cfg := GatewayConfig{
		Environment:       GetString("APP_ENV", "development"),
		Addr:              GetString("GATEWAY_ADDR", ":3000"),
		LogLevel:          GetString("LOG_LEVEL", "info"),
		CurseForgeToken:   strings.TrimSpace(GetString("CURSEFORGE_ETERNAL_API_TOKEN", "")),
		CurseForgeURL:     strings.TrimRight(GetString("CURSEFORGE_API_URL", defaultCurseForgeURL), "/"),
		CurseForgeTimeout: GetSeconds("CURSEFORGE_TIMEOUT_SECONDS", defaultUpstreamTimeout),
		AnalyticsEnabled:  GetBool("ENABLE_ANALYTICS", false),
		AnalyticsEndpoint: strings.TrimSpace(GetString("POSTHOG_INSTANCE_URL", "")),
		AnalyticsAPIKey:   strings.TrimSpace(GetString("POSTHOG_PROJECT_API_KEY", "")),
		AnalyticsTimeout:  GetSeconds("ANALYTICS_TIMEOUT_SECONDS", defaultCaptureTimeout),
		OTLPEndpoint:      strings.TrimSpace(GetString("OTEL_EXPORTER_OTLP_ENDPOINT", "")),
	}
	if cfg.CurseForgeToken == "" {
		return GatewayConfig{}, ErrMissingAPIToken
	}

	header, err := parseHeaderName(GetString("HOST_HEADER_NAME", defaultHostHeader))
	if err != nil {
		return GatewayConfig{}, err
	}
	cfg.HostHeaderName = header

	if raw, ok := Lookup("FRONTEND_URL"); ok {
		frontend, err := parseFrontendURL(raw)
		if err != nil {
			return GatewayConfig{}, err
		}
		cfg.FrontendURL = frontend
	}

	status, err := parseRedirectStatus(GetString("PROJECT_REDIRECT_STATUS", ""))
	if err != nil {
		return GatewayConfig{}, err
	}
	cfg.ProjectRedirectStatus = status
	return cfg, nil
}

func parseHeaderName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return defaultHostHeader, nil
	}
	if !httpguts.ValidHeaderFieldName(name) {
		return "", fmt.Errorf("config: unable to parse HOST_HEADER_NAME %q", raw)
	}
	return http.CanonicalHeaderKey(name), nil
}

func parseFrontendURL(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("config: unable to parse FRONTEND_URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("config: FRONTEND_URL must be an absolute URL, got %q", raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

func parseRedirectStatus(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultProjectStatus, nil
	}
	status, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: unable to parse PROJECT_REDIRECT_STATUS: %w", err)
	}
	switch status {
	case http.StatusSeeOther, http.StatusTemporaryRedirect:
		return status, nil
	default:
		return 0, fmt.Errorf("config: PROJECT_REDIRECT_STATUS must be 303 or 307, got %d", status)
	}
}
