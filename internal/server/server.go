// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires configuration, storage, services and routes into
// a running HTTP service.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Railfan3/RevenueRadar/internal/config"
	"github.com/Railfan3/RevenueRadar/internal/handlers"
	"github.com/Railfan3/RevenueRadar/internal/i18n"
	"github.com/Railfan3/RevenueRadar/internal/repository"
	"github.com/Railfan3/RevenueRadar/internal/repository/jsonfile"
	"github.com/Railfan3/RevenueRadar/internal/repository/sqlite"
	"github.com/Railfan3/RevenueRadar/internal/salesdata"
	"github.com/Railfan3/RevenueRadar/internal/services/auth"
	"github.com/Railfan3/RevenueRadar/internal/services/email"
	"github.com/Railfan3/RevenueRadar/internal/services/otp"
	"github.com/Railfan3/RevenueRadar/internal/services/session"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// Run starts the server with the given CLI command.
func Run(_ context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}
	setupLogger(&cfg.Log)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"storage", cfg.Storage.Driver,
	)

	// Storage backend
	repo, closeRepo, err := openRepository(cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer closeRepo()

	// Sales dataset
	if err := salesdata.EnsureFile(cfg.Storage.SalesCSV); err != nil {
		return err
	}
	records, err := salesdata.Load(cfg.Storage.SalesCSV)
	if err != nil {
		return err
	}
	slog.Info("sales_data_loaded", "path", cfg.Storage.SalesCSV, "records", len(records))

	// i18n
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	// Services
	notifier := email.NewService(&cfg.SMTP)
	if !notifier.Configured() {
		slog.Warn("smtp not configured, verification codes fall back to in-app display")
	}
	authSvc := auth.NewService(repo, otp.NewService(repo.Challenges, notifier))

	secure := strings.HasPrefix(cfg.Server.BaseURL, "https://")
	sessions, err := session.NewManager(&cfg.Session, secure)
	if err != nil {
		return err
	}

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, cfg)
	setupRoutes(e, authSvc, sessions, repo, records)

	return startWithGracefulShutdown(e, cfg)
}

// openRepository opens the configured storage backend. The returned
// close func releases whatever the backend holds.
func openRepository(cfg *config.Config) (*repository.Repository, func(), error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.Storage.DSN)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := db.Close(); err != nil {
				slog.Error("failed to close database", "error", err)
			}
		}
		return sqlite.NewRepository(db), closeFn, nil
	default:
		store, err := jsonfile.Open(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return jsonfile.NewRepository(store), func() {}, nil
	}
}

func setupRoutes(e *echo.Echo, authSvc *auth.Service, sessions *session.Manager, repo *repository.Repository, records []salesdata.Record) {
	h := handlers.New()
	authH := handlers.NewAuth(authSvc, auth.NewFlowStore(), sessions, repo)
	dashH := handlers.NewDashboard(records)

	e.GET("/health", h.Health)

	ag := e.Group("/auth")
	ag.GET("/password-policy", authH.PasswordPolicy)
	ag.POST("/register", authH.RegisterBegin)
	ag.POST("/register/verify", authH.RegisterVerify)
	ag.POST("/register/resend", authH.RegisterResend)
	ag.POST("/register/abandon", authH.RegisterAbandon)
	ag.POST("/login", authH.LoginBegin)
	ag.POST("/login/verify", authH.LoginVerify)
	ag.POST("/login/resend", authH.LoginResend)
	ag.POST("/login/back", authH.LoginBack)
	ag.POST("/logout", authH.Logout)
	ag.GET("/me", authH.Me, handlers.RequireSession(sessions))

	dg := e.Group("/api/dashboard", handlers.RequireSession(sessions))
	dg.GET("/summary", dashH.Summary)
	dg.GET("/charts", dashH.Charts)
	dg.GET("/filters", dashH.Filters)
	dg.GET("/records", dashH.Records)
	dg.GET("/export", dashH.Export)
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("Server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
