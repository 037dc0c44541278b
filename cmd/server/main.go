package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/flash-sale-pipeline/internal/adapter/handler"
	"github.com/rl1809/flash-sale-pipeline/internal/adapter/storage"
	"github.com/rl1809/flash-sale-pipeline/internal/adapter/stream"
	"github.com/rl1809/flash-sale-pipeline/internal/config"
	"github.com/rl1809/flash-sale-pipeline/internal/core/service"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Counter store
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: cfg.RedisPoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("failed to connect redis", "addr", cfg.RedisAddr, "err", err)
		os.Exit(1)
	}
	slog.Info("connected to redis", "addr", cfg.RedisAddr)

	// Durable log
	writer := stream.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic)

	// Wiring
	redisAdapter := storage.NewRedisAdapter(rdb)
	ingestService := service.NewIngestService(redisAdapter, stream.NewProducer(writer), cfg.AdmissionCap)
	httpHandler := handler.NewHTTPHandler(ingestService, cfg.WaitingRoomURL, cfg.CallTimeout)

	mux := http.NewServeMux()
	httpHandler.Register(mux)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("HTTP server error", "err", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	slog.Info("HTTP server stopped")

	if err := writer.Close(); err != nil {
		slog.Error("failed to close kafka writer", "err", err)
	}
	rdb.Close()
	slog.Info("connections closed")
}
