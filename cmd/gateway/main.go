package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	httpx "github.com/modscf/gateway/internal/http"
	"github.com/modscf/gateway/internal/tracing"
	"github.com/modscf/gateway/pkg/analytics"
	"github.com/modscf/gateway/pkg/config"
	"github.com/modscf/gateway/pkg/curseforge"
	"github.com/modscf/gateway/pkg/logger"
)

const serviceName = "mods.cf"

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("failed to read .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.LoadGatewayConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New("gateway", logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.OTLPEndpoint, serviceName, cfg.Environment)
	if err != nil {
		log.Error("failed to configure tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()

	directory, err := curseforge.New(cfg.CurseForgeToken,
		curseforge.WithBaseURL(cfg.CurseForgeURL),
		curseforge.WithHTTPClient(&http.Client{
			Timeout:   cfg.CurseForgeTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}),
	)
	if err != nil {
		log.Error("failed to configure curseforge client", "error", err)
		os.Exit(1)
	}

	emitter, err := analytics.New(analytics.Config{
		Enabled:  cfg.AnalyticsEnabled,
		Endpoint: cfg.AnalyticsEndpoint,
		APIKey:   cfg.AnalyticsAPIKey,
		Timeout:  cfg.AnalyticsTimeout,
	}, analytics.WithLogger(log), analytics.WithHTTPClient(&http.Client{
		Timeout:   cfg.AnalyticsTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}))
	if err != nil {
		log.Error("failed to configure analytics", "error", err)
		os.Exit(1)
	}
	if !emitter.Enabled() {
		log.Info("analytics disabled")
	}

	router := httpx.NewRouter(log, directory, emitter, httpx.Config{
		Host: httpx.HostConfig{
			HeaderName:  cfg.HostHeaderName,
			FrontendURL: cfg.FrontendURL,
		},
		ProjectRedirectStatus: cfg.ProjectRedirectStatus,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           otelhttp.NewHandler(router, "http.server"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("gateway starting", "addr", cfg.Addr, "env", cfg.Environment)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("gateway stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
