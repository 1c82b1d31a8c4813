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

	"github.com/joho/godotenv"

	"github.com/hongminglow/taskql/internal/config"
	"github.com/hongminglow/taskql/internal/logger"
	"github.com/hongminglow/taskql/internal/server"
	"github.com/hongminglow/taskql/internal/storage"
	"github.com/hongminglow/taskql/internal/storage/memory"
	"github.com/hongminglow/taskql/internal/storage/mongo"
	"github.com/hongminglow/taskql/internal/storage/postgres"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.SetupDefault(os.Stdout, cfg.LogLevel)
	if envErr != nil {
		log.Info("no .env file found; relying on existing environment")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := openStore(ctx, cfg)
	cancel()
	if err != nil {
		log.Error("init store", slog.String("driver", cfg.StoreDriver), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	srv, err := server.New(cfg, store, log)
	if err != nil {
		log.Error("init server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	go func() {
		log.Info("taskql listening", slog.String("addr", cfg.HTTPAddress()), slog.String("store", cfg.StoreDriver))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error("graceful shutdown error", slog.String("error", err.Error()))
	}
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		return mongo.NewStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.DriverPostgres:
		return postgres.NewStore(ctx, cfg.DatabaseURL)
	case config.DriverMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
