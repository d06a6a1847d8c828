package main

import (
	"context"
	"log"
	"time"

	"github.com/helixbio/gva-annotation-orchestrator/config"
	"github.com/helixbio/gva-annotation-orchestrator/http/controller"
	routes "github.com/helixbio/gva-annotation-orchestrator/http/route"
	infraPkg "github.com/helixbio/gva-annotation-orchestrator/infra"
	"github.com/helixbio/gva-annotation-orchestrator/repository"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()

	shutdownTelemetry := infraPkg.InitTelemetry(cfg.EnvConfig)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			log.Printf("Telemetry shutdown failed: %v", err)
		}
	}()

	infra := infraPkg.InitInfra(cfg)
	defer infra.Close()

	repo := repository.InitRepository(infra)

	ctrl := controller.NewController(cfg, infra, repo)

	router := routes.SetupRouter(ctrl)

	log.Println("HTTP Server started on :8080")
	if err := router.Run(":8080"); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
