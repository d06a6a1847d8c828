package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/helixbio/gva-annotation-orchestrator/config"
	"github.com/helixbio/gva-annotation-orchestrator/consumer/worker"
	"github.com/helixbio/gva-annotation-orchestrator/infra"
	"github.com/helixbio/gva-annotation-orchestrator/repository"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	cfg := config.NewConfig()

	shutdownTelemetry := infra.InitTelemetry(cfg.EnvConfig)

	infrastructure := infra.InitInfra(cfg)
	defer infrastructure.Close()

	repo := repository.InitRepository(infrastructure)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := worker.NewAnnotatorRunner(
		cfg.EnvConfig.Annotator.BinaryPath,
		time.Duration(cfg.EnvConfig.Annotator.TimeoutSeconds)*time.Second,
	)

	annotate := worker.NewAnnotateWorker(cfg.EnvConfig, infrastructure.Logger, repo.JobRepo, infrastructure.Minio, runner, infrastructure.Produce, infrastructure.RabbitMQ.Channel)
	archive := worker.NewArchiveWorker(cfg.EnvConfig, infrastructure.Logger, repo.JobRepo, infrastructure.AccountService, infrastructure.WorkflowService, infrastructure.RabbitMQ.Channel)
	thaw := worker.NewThawWorker(infrastructure.Logger, repo.JobRepo, infrastructure.ColdStore, infrastructure.RabbitMQ.Channel)
	notify := worker.NewNotifyWorker(infrastructure.Logger, infrastructure.Produce, infrastructure.RabbitMQ.Channel)

	if err := annotate.Start(ctx); err != nil {
		log.Fatalf("Annotate worker failed to start: %v", err)
	}
	if err := archive.Start(ctx); err != nil {
		log.Fatalf("Archive worker failed to start: %v", err)
	}
	if err := thaw.Start(ctx); err != nil {
		log.Fatalf("Thaw worker failed to start: %v", err)
	}
	if err := notify.Start(ctx); err != nil {
		log.Fatalf("Notify worker failed to start: %v", err)
	}

	infrastructure.Logger.InfoWithContextf(ctx, "[Consumer] All workers started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	infrastructure.Logger.InfoWithContextf(ctx, "[Consumer] Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Printf("Telemetry shutdown failed: %v", err)
	}
}
