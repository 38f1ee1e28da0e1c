package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"prediction-systemv1/internal/logger"
	"prediction-systemv1/internal/predengine"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	_ = godotenv.Load()

	slogger := logger.Init("predengine", logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	cfg := predengine.LoadConfig()
	slogger.Info("configuration loaded",
		"symbols", cfg.Symbols,
		"windowSize", cfg.WindowSize,
		"evalIntervalSec", cfg.EvalIntervalS)

	svc, err := predengine.New(cfg, slogger)
	if err != nil {
		log.Fatalf("[predengine] init failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := svc.Run(ctx); err != nil {
		log.Fatalf("[predengine] fatal: %v", err)
	}
}
