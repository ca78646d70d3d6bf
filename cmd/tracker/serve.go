package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/tracker/db"
	"github.com/monocle-dev/tracker/internal/auth"
	"github.com/monocle-dev/tracker/internal/events"
	"github.com/monocle-dev/tracker/internal/handlers"
	"github.com/monocle-dev/tracker/internal/markdown"
	"github.com/monocle-dev/tracker/internal/notify"
	"github.com/monocle-dev/tracker/internal/realtime"
	"github.com/monocle-dev/tracker/internal/router"
	"github.com/monocle-dev/tracker/internal/scheduler"
	"github.com/monocle-dev/tracker/internal/services"
	"github.com/monocle-dev/tracker/internal/storage"
	"github.com/monocle-dev/tracker/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func (a *app) serveCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "update the database schema before serving")

	return cmd
}

func (a *app) serve(ctx context.Context, migrate bool) error {
	cfg := a.cfg

	shutdownTracing, err := telemetry.Setup(cfg.TracingEnabled, os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			a.log.Warn().Err(err).Msg("failed to flush traces")
		}
	}()

	conn, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	if migrate {
		if err := db.Migrate(conn); err != nil {
			return err
		}
	}

	files, err := storage.NewFiles(cfg.FilesDir)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.TokenExpiry)
	if err != nil {
		return err
	}

	hub := realtime.NewHub(cfg.AllowedOrigins, a.log)
	notifier := notify.NewNotifier(a.log)

	svc := services.New(conn, services.Options{
		Logger:            a.log,
		Publisher:         events.Multi{hub, notifier},
		Files:             files,
		AuthLockAttempts:  cfg.AuthLockAttempts,
		AuthLockDuration:  cfg.AuthLockDuration,
		MaxUploadSize:     cfg.MaxUploadSize,
		AllowRegistration: cfg.AllowRegistration,
	})

	jobs := scheduler.New(conn, scheduler.Options{
		Logger:           a.log,
		Notifier:         notifier,
		Files:            files,
		CriticalInterval: cfg.CriticalCheckInterval,
		PurgeInterval:    cfg.FilePurgeInterval,
		FileRetention:    cfg.FileRetention,
	})
	jobs.Start()
	defer jobs.Stop()

	if a.log.GetLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	h := handlers.New(handlers.Options{
		Service:   svc,
		Tokens:    tokens,
		Renderer:  markdown.NewRenderer(),
		Hub:       hub,
		Scheduler: jobs,
		Cookie:    handlers.CookieOptions{Domain: cfg.CookieDomain, Secure: cfg.CookieSecure},
		Logger:    a.log,
	})

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.NewRouter(router.Options{
			Handler:        h,
			Service:        svc,
			Tokens:         tokens,
			Logger:         a.log,
			AllowedOrigins: cfg.AllowedOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
