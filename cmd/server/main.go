// Package main provides a standalone webhook server for self-hosted deployments
// installed as a GitHub App.
//
// Configuration via environment variables:
//
//	GITHUB_APP_ID         - GitHub App ID (required)
//	GITHUB_WEBHOOK_SECRET - Webhook signature verification secret (required)
//	GITHUB_PRIVATE_KEY    - GitHub App private key in PEM format (required)
//	GITHUB_API_URL        - GitHub Enterprise API root (optional)
//	MODEL_PROVIDER        - anthropic or openai (default: anthropic)
//	ANTHROPIC_API_KEY     - Anthropic API key (required for anthropic)
//	OPENAI_API_KEY        - OpenAI API key (required for openai)
//	MODEL_NAME            - Model override (optional)
//	SYSTEM_PROFILE        - Default reviewer persona (optional)
//	DATABASE_URL          - PostgreSQL connection string (optional; enables run history and redelivery dedup)
//	PORT                  - HTTP server port (default: 8080)
//
// Usage:
//
//	go run ./cmd/server
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/shipitai/filereviewer/config"
	"github.com/shipitai/filereviewer/github"
	"github.com/shipitai/filereviewer/storage/postgres"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	srv, closeStore, err := initialize(logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	srv.wait()
}

func initialize(logger *slog.Logger) (*server, func(), error) {
	webhookSecret := os.Getenv("GITHUB_WEBHOOK_SECRET")
	if webhookSecret == "" {
		return nil, nil, fmt.Errorf("GITHUB_WEBHOOK_SECRET is required")
	}

	privateKey := os.Getenv("GITHUB_PRIVATE_KEY")
	if privateKey == "" {
		return nil, nil, fmt.Errorf("GITHUB_PRIVATE_KEY is required")
	}

	appIDStr := os.Getenv("GITHUB_APP_ID")
	if appIDStr == "" {
		return nil, nil, fmt.Errorf("GITHUB_APP_ID is required")
	}
	appID, err := strconv.ParseInt(appIDStr, 10, 64)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid GITHUB_APP_ID: %w", err)
	}

	defaults := &config.Inputs{
		// Installation clients carry their own credentials.
		GitHubToken:   "installation",
		GitHubAPIURL:  os.Getenv("GITHUB_API_URL"),
		ModelProvider: os.Getenv("MODEL_PROVIDER"),
		ModelName:     os.Getenv("MODEL_NAME"),
		SystemProfile: os.Getenv("SYSTEM_PROFILE"),
	}
	defaults.ApplyDefaults()
	if defaults.ModelProvider == config.ProviderOpenAI {
		defaults.ModelAPIKey = os.Getenv("OPENAI_API_KEY")
	} else {
		defaults.ModelAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if err := defaults.Validate(); err != nil {
		return nil, nil, err
	}

	srv := newServer(github.NewWebhookHandler(webhookSecret), defaults, logger)
	srv.newClient = func(installationID int64) (installationClient, error) {
		return github.NewInstallationClient(appID, installationID, []byte(privateKey), defaults.GitHubAPIURL)
	}

	closeStore := func() {}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		store, err := postgres.NewFromDSN(context.Background(), dsn)
		if err != nil {
			return nil, nil, err
		}
		srv.store = store
		closeStore = func() { _ = store.Close() }
	} else {
		logger.Warn("DATABASE_URL not set, run history and redelivery dedup are disabled")
	}

	logger.Info("initialized",
		"app_id", appID,
		"provider", defaults.ModelProvider,
		"model", defaults.ModelName,
		"storage", srv.store != nil,
	)

	return srv, closeStore, nil
}
