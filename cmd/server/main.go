package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"whiteboard/internal/config"
	httpserver "whiteboard/internal/http"
	"whiteboard/internal/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logg := logger.New(cfg.LogFile, cfg.IsProduction())
	defer logg.Sync()

	srv, err := httpserver.NewServer(cfg, logg)
	if err != nil {
		logg.Fatal("failed to create server", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logg.Fatal("server stopped with error", zap.Error(err))
	}
}
