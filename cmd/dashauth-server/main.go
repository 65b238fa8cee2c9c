package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/MrEthical07/dashauth"
	"github.com/MrEthical07/dashauth/internal/config"
	"github.com/MrEthical07/dashauth/internal/httpapi"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	cfg, _, err := config.Load("dashauth-server", os.Args[1:], nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger = logger.With("service", "dashauth-server")

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, closeStore, err := config.OpenStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("close store", "error", err)
		}
	}()

	b := dashauth.New().
		WithConfig(cfg.Engine()).
		WithStore(store).
		WithLogger(logger).
		WithNotifier(dashauth.NotifierFunc(func(ctx context.Context, email, code string, expiresAt time.Time) error {
			// no mail gateway: the operator relays the code
			logger.InfoContext(ctx, "password reset code", "email", email, "code", code, "expires_at", expiresAt)
			return nil
		}))
	if cfg.Auth.AuditLog {
		b = b.WithAuditSink(dashauth.NewSlogSink(logger.With("component", "audit")))
	}
	engine, err := b.Build(ctx)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.NewRouter(httpapi.NewHandler(engine, logger)),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("listening", "addr", srv.Addr, "store", cfg.Store.Backend, "version", buildVersion, "commit", buildCommit)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("received interruption signal, shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err)
	}
	wg.Wait()
	logger.Info("shutdown complete")
	return nil
}
