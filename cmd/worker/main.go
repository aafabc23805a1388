package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ignite/outreach-tracker/internal/app"
	"github.com/ignite/outreach-tracker/internal/worker"
)

func main() {
	log.Println("Starting outreach follow-up worker...")

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	cfg, err := app.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	if err := a.Sweep.Start(ctx); err != nil {
		log.Fatalf("Failed to start sweep: %v", err)
	}
	log.Printf("Follow-up sweep running every %s (batch %d)", cfg.Worker.SweepInterval(), cfg.Worker.SweepBatchSize)

	cleanup := worker.NewRequestCleanupWorker(a.DB)
	cleanup.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
	cancel()
	a.Sweep.Stop()
	cleanup.Stop()
	log.Println("Worker stopped")
}
