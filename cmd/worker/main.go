package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/rl1809/flash-sale-pipeline/internal/adapter/storage"
	"github.com/rl1809/flash-sale-pipeline/internal/adapter/stream"
	"github.com/rl1809/flash-sale-pipeline/internal/config"
	"github.com/rl1809/flash-sale-pipeline/internal/core/service"
)

const (
	seedProductID = "iphone-15"
	seedStock     = 100
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := config.Load()
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Record of truth
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		slog.Error("failed to open mysql", "err", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		slog.Error("failed to ping mysql", "err", err)
		os.Exit(1)
	}
	slog.Info("connected to mysql")

	mysqlAdapter := storage.NewMySQLAdapter(db)

	// Bootstrap: schema plus a known product row.
	if err := mysqlAdapter.Migrate(ctx); err != nil {
		slog.Error("migration failed", "err", err)
		os.Exit(1)
	}
	if err := mysqlAdapter.SeedProduct(ctx, seedProductID, seedStock); err != nil {
		slog.Error("seed failed", "err", err)
		os.Exit(1)
	}
	slog.Info("schema ready", "seed_product", seedProductID)

	reader := stream.NewReader(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID)
	fulfillment := service.NewFulfillmentService(mysqlAdapter)

	slog.Info("consuming", "topic", cfg.KafkaTopic, "group", cfg.KafkaGroupID)
	stream.Consume(ctx, reader, fulfillment.HandleMessage)

	if err := reader.Close(); err != nil {
		slog.Error("failed to close kafka reader", "err", err)
	}
	db.Close()
	slog.Info("worker stopped")
}
