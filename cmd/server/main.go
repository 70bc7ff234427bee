package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"cuestionarios/internal/app"
	"cuestionarios/internal/client"
	"cuestionarios/internal/config"
	"cuestionarios/internal/logging"
	"cuestionarios/internal/service"
	"cuestionarios/internal/transport/rest"
	"cuestionarios/internal/transport/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()

	store, err := app.Connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	// Initialize WebSocket hub
	wsHub := ws.NewHub(logger)
	defer wsHub.Stop()

	// Initialize services
	authSvc := service.NewAuthService(service.AuthConfig{
		StaffUsername: cfg.StaffUsername,
		StaffPassword: cfg.StaffPassword,
		JWTSecret:     cfg.JWTSecret,
	})
	recordsSvc := service.NewRecordsService(store.QuestionnaireRepo, store.AnswerRepo, store.FinalizationRepo, store.ProfileRepo, store.CatalogCache, cfg.UnlockMode, logger)

	// Sessions talk to the questionnaire API over HTTP, this server's own by default
	backendURL := cfg.BackendURL
	if backendURL == "" {
		backendURL = cfg.SelfURL()
	}
	backend := client.New(client.Config{BaseURL: backendURL, Token: cfg.BackendToken}, logger)
	sessionSvc := service.NewSessionService(backend, store.SessionCache, wsHub, logger, service.SessionOptions{
		QuietPeriod:      cfg.QuietPeriod,
		ShortQuietPeriod: cfg.ShortQuietPeriod,
		UnlockMode:       cfg.UnlockMode,
	})

	router := rest.NewRouter(&rest.Container{
		AuthService:    authSvc,
		RecordsService: recordsSvc,
		SessionService: sessionSvc,
		WSHub:          wsHub,
		ServiceToken:   cfg.BackendToken,
		CORSOrigins:    cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("backend", backendURL),
			zap.String("unlockMode", string(cfg.UnlockMode)),
			zap.Duration("quietPeriod", cfg.QuietPeriod),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Pending answer writes go out before the HTTP server stops accepting them.
	sessionSvc.Shutdown(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}
