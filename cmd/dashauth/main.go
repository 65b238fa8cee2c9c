package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/MrEthical07/dashauth"
	"github.com/MrEthical07/dashauth/internal/cli"
	"github.com/MrEthical07/dashauth/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, args, err := config.Load("dashauth", os.Args[1:], nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	logger, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, closeStore, err := config.OpenStore(ctx, cfg.Store)
	if err != nil {
		logger.Error("open store", "backend", cfg.Store.Backend, "error", err)
		return 1
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
		WithNotifier(dashauth.NotifierFunc(printCode))
	if cfg.Auth.AuditLog {
		b = b.WithAuditSink(dashauth.NewSlogSink(logger))
	}
	engine, err := b.Build(ctx)
	if err != nil {
		logger.Error("build engine", "error", err)
		return 1
	}
	defer engine.Close()

	app := cli.NewApp(engine, os.Stdout)
	if err := app.Run(ctx, args); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// printCode stands in for an email gateway: the code goes to the terminal.
func printCode(_ context.Context, email, code string, expiresAt time.Time) error {
	fmt.Fprintf(os.Stderr, "reset code for %s: %s (expires %s)\n", email, code, expiresAt.Local().Format(time.Kitchen))
	return nil
}
