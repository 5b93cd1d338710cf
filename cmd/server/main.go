package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bridge-backend/internal/clients"
	"bridge-backend/internal/config"
	"bridge-backend/internal/db"
	"bridge-backend/internal/events"
	"bridge-backend/internal/gateway"
	"bridge-backend/internal/handlers"
	"bridge-backend/internal/push"
	"bridge-backend/internal/repository"
	"bridge-backend/internal/router"
	"bridge-backend/internal/services"

	"github.com/sirupsen/logrus"
)

func main() {
	log.Println("🚀 Starting bridge-backend...")

	configPath := os.Getenv("CONFIG_PATH")
	if err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.AppConfig

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	stopCh := make(chan struct{})
	db.StartPoolMetricsReporter(database, stopCh)

	// Chain gateways
	gateways, err := gateway.NewRegistry(cfg.Chains)
	if err != nil {
		log.Fatalf("Failed to initialize chain gateways: %v", err)
	}
	log.Printf("✅ Chain gateways ready: %v", gateways.Chains())

	// Proof service
	proofClient := clients.NewProofClient(cfg.Proof.BaseURL, time.Duration(cfg.Proof.Timeout)*time.Second)
	proofGate := services.NewProofGate(proofClient)

	// Event publisher; the engine runs without a broker
	var publisher *events.Publisher
	if cfg.NATS.URL != "" {
		publisher, err = events.NewPublisher(cfg.NATS)
		if err != nil {
			log.Printf("⚠️ NATS unavailable, events disabled: %v", err)
			publisher = nil
		}
	} else {
		log.Println("📋 NATS not configured, events disabled")
	}

	// WebSocket push
	pushService := push.NewService()

	// Repositories
	orderRepo := repository.NewOrderRepository(database)
	escrowRepo := repository.NewEscrowRepository(database)
	treasuryRepo := repository.NewTreasuryRepository(database)
	auditRepo := repository.NewAuditRepository(database)

	// Services
	orderService := services.NewOrderService(orderRepo, auditRepo, gateways, proofGate, publisher, pushService)
	escrowService := services.NewEscrowService(escrowRepo, gateways, publisher)
	treasuryService := services.NewTreasuryService(treasuryRepo, gateways, publisher)

	// Background sweeps
	expiryService := services.NewOrderExpiryService(orderService, time.Duration(cfg.Orders.SweepInterval)*time.Second)
	expiryService.Start()
	workflowService := services.NewTreasuryWorkflowService(treasuryService, time.Duration(cfg.Treasury.WorkflowInterval)*time.Second)
	workflowService.Start()

	// HTTP layer
	engine := router.SetupRouter(database, &router.Handlers{
		Order:     handlers.NewOrderHandler(orderService, logger),
		Escrow:    handlers.NewEscrowHandler(escrowService, logger),
		Treasury:  handlers.NewTreasuryHandler(treasuryService, logger),
		Audit:     handlers.NewAuditHandler(auditRepo),
		WebSocket: handlers.NewWebSocketHandler(pushService),
		AdminAuth: handlers.NewAdminAuthHandler(),
	}, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		log.Printf("🚀 HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down...")

	expiryService.Stop()
	workflowService.Stop()
	close(stopCh)
	publisher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ HTTP server shutdown: %v", err)
	}
	log.Println("✅ Shutdown complete")
}
