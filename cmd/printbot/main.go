// printbot is the Telegram order-intake bot of the print shop.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vrecdsxcdv/printbot/internal/bot"
	"github.com/vrecdsxcdv/printbot/internal/config"
	"github.com/vrecdsxcdv/printbot/internal/database"
	"github.com/vrecdsxcdv/printbot/internal/logger"
	"github.com/vrecdsxcdv/printbot/internal/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("printbot: %v", err)
	}
}

func run() error {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	log.Printf("loading config: %s", cfgPath)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.Logging); err != nil {
		return err
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	startedAt := time.Now()
	app := logger.Component("app")

	if err := database.RunMigrations(cfg.Database); err != nil {
		return err
	}
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	store := storage.New(db)
	b, err := bot.New(cfg, store)
	if err != nil {
		return err
	}

	app.Info("app ready",
		slog.String("event", "ready"),
		slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Run(gctx) })
	g.Go(func() error { return b.Sweep(gctx) })
	g.Go(func() error { return b.PruneSessions(gctx) })

	err = g.Wait()
	app.Info("shutting down", slog.String("event", "shutdown"))
	return err
}
