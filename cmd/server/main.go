package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"empty-jar/internal/config"
	"empty-jar/internal/email"
	"empty-jar/internal/handler"
	"empty-jar/internal/lease"
	"empty-jar/internal/repository"
	"empty-jar/internal/service"
	"empty-jar/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := config.NewLogger(cfg.Logging.Level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer repos.Close()
	logger.Info("storage ready", "driver", cfg.Database.Driver)

	wsManager := websocket.NewManager(websocket.Options{
		MaxConnPerUser: cfg.WebSocket.MaxConnPerUser,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		WriteWait:      cfg.WebSocket.WriteWait,
		PongWait:       cfg.WebSocket.PongWait,
		PingPeriod:     cfg.WebSocket.PingPeriod,
	}, logger)
	go wsManager.Run(ctx)

	authService := service.NewAuthService(repos.Users, cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.RefreshTokenExpiration)
	noteService := service.NewNoteService(repos.Notes, wsManager, logger)
	settingsService := service.NewSettingsService(repos.Settings, wsManager, logger)

	if cfg.SMTP.Enabled() {
		reminders, closeLease, err := newReminderService(ctx, cfg, repos, logger)
		if err != nil {
			return err
		}
		defer closeLease()
		go runReminders(ctx, reminders, cfg.Reminder.Interval, logger)
	} else {
		logger.Info("email reminders disabled: SMTP_HOST or SMTP_FROM not set")
	}

	router := handler.NewRouter(handler.RouterDeps{
		Config:   cfg,
		Auth:     authService,
		Notes:    noteService,
		Settings: settingsService,
		Manager:  wsManager,
		Logger:   logger,
		Health: func(r *http.Request) error {
			return repos.Ping(r.Context())
		},
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting Empty Jar server", "addr", addr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}

func openRepositories(ctx context.Context, db config.DatabaseConfig) (*repository.Repositories, error) {
	switch db.Driver {
	case config.DriverPostgres:
		migrations := repository.Migrations()
		if db.MigrationsDir != "" {
			migrations = os.DirFS(db.MigrationsDir)
		}
		return repository.OpenPostgres(ctx, db.PostgresURL, migrations)
	default:
		return repository.OpenCouch(ctx, db.CouchURL(), db.Name)
	}
}

func newReminderService(ctx context.Context, cfg *config.Config, repos *repository.Repositories, logger *slog.Logger) (*service.ReminderService, func(), error) {
	mailer := email.NewService(email.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: "Empty Jar",
	})

	if cfg.Redis.URL == "" {
		logger.Warn("REDIS_URL not set; every instance will run the reminder sweep")
		return service.NewReminderService(repos, mailer, nil, cfg.Reminder.AppURL, logger), func() {}, nil
	}

	l, err := lease.Open(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, nil, err
	}
	closeLease := func() { l.Close() }
	return service.NewReminderService(repos, mailer, l, cfg.Reminder.AppURL, logger), closeLease, nil
}

func runReminders(ctx context.Context, reminders *service.ReminderService, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := reminders.Sweep(ctx); err != nil {
				logger.Error("reminder sweep failed", "error", err)
			}
		}
	}
}
