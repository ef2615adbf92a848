package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Veraticus/roomrush/internal/browser"
	"github.com/Veraticus/roomrush/internal/common"
	"github.com/Veraticus/roomrush/internal/config"
	"github.com/Veraticus/roomrush/internal/engine"
	"github.com/Veraticus/roomrush/internal/portal"
	"github.com/Veraticus/roomrush/internal/storage"
)

// initStorage opens the database and applies migrations.
func initStorage(ctx context.Context, settings config.Settings) (*storage.SQLiteStorage, error) {
	dbPath := settings.DatabasePath
	if dbPath == "" {
		dbPath = config.ExpandPath("$HOME/.local/share/roomrush/roomrush.db")
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// newPortalClient builds the HTTP client for the configured session.
func newPortalClient(settings config.Settings) (*portal.Client, error) {
	return portal.NewClient(portal.Config{
		Logger:  slog.Default(),
		BaseURL: settings.Portal.BaseURL,
		Cookie:  settings.Portal.Cookie,
		Timeout: settings.Portal.RequestTimeout,
	})
}

// newBrowserTransport starts Chrome and wraps it in a browser transport.
// The returned close func shuts the browser down.
func newBrowserTransport(ctx context.Context, settings config.Settings) (*browser.Transport, func(), error) {
	page, err := browser.NewChromePage(ctx, browser.Options{
		Logger:   slog.Default(),
		ExecPath: settings.Browser.ExecPath,
		Headless: settings.Browser.Headless,
	})
	if err != nil {
		return nil, nil, err
	}

	transport := browser.NewTransport(page, browser.Config{
		Logger:        slog.Default(),
		BaseURL:       settings.Portal.BaseURL,
		Cookie:        settings.Portal.Cookie,
		Account:       settings.Portal.Account,
		Password:      settings.Portal.Password,
		ClickInterval: settings.Selection.ClickInterval,
		ManualGrace:   settings.Selection.ManualGrace,
		LoginTimeout:  settings.Browser.LoginTimeout,
		AutoConfirm:   settings.Selection.AutoConfirm,
	})

	return transport, func() {
		if err := page.Close(); err != nil {
			slog.Warn("Failed to close browser", "error", err)
		}
	}, nil
}

// newTransport builds the transport for the configured mode.
func newTransport(ctx context.Context, settings config.Settings) (engine.Transport, func(), error) {
	switch settings.Selection.Mode {
	case config.ModeHTTP:
		client, err := newPortalClient(settings)
		if err != nil {
			return nil, nil, err
		}
		return portal.NewTransport(client, slog.Default()), func() {}, nil
	case config.ModeBrowser:
		return newBrowserTransport(ctx, settings)
	default:
		return nil, nil, fmt.Errorf("unknown selection mode %q", settings.Selection.Mode)
	}
}

// openLogFile opens path for appending, creating its directory.
func openLogFile(path string) (*os.File, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: logging.file is empty", common.ErrMissingConfig)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// engineConfig maps settings onto orchestrator tunables.
func engineConfig(settings config.Settings) engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Logger = slog.Default()
	cfg.LeadTime = settings.LeadTime
	if settings.RetryDelay > 0 {
		cfg.RetryDelay = settings.RetryDelay
	}
	if settings.RetryMax > 0 {
		cfg.MaxAttempts = settings.RetryMax
	}
	return cfg
}
