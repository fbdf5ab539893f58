// splitledger-worker consumes ledger mutation events from the AMQP
// queue and mirrors the ledger into a local snapshot file, so a copy
// of the data survives outages of the primary backend.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"splitledger/internal/backend"
	"splitledger/internal/config"
	"splitledger/internal/log"
	"splitledger/internal/notify"
	"splitledger/internal/store/file"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log.Setup(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		slog.Error("configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		slog.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	client, err := notify.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		slog.Error("failed to connect to AMQP broker", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	selector := backend.NewSelector(cfg.BackendConfig(), slog.Default())
	defer selector.Close()

	mirrorPath := cfg.DataFile + ".mirror"
	mirror := file.New(mirrorPath)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("worker started",
		"queue", cfg.AMQPQueue,
		"mirror", mirrorPath)

	err = client.Consume(ctx, func(event *notify.LedgerEvent) error {
		src, err := selector.Resolve(ctx)
		if err != nil {
			return err
		}
		expenses, err := src.ListExpenses(ctx)
		if err != nil {
			return err
		}
		meta, err := src.Meta(ctx)
		if err != nil {
			return err
		}
		if err := mirror.Replace(ctx, expenses, meta); err != nil {
			return err
		}
		slog.InfoContext(ctx, "mirror refreshed",
			"trigger_op", event.Op,
			"trigger_id", event.ID,
			"expenses", len(expenses))
		return nil
	})
	if err != nil && ctx.Err() == nil {
		slog.Error("consumer stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("worker stopped")
}
