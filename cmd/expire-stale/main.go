// One-shot expiry sweep, for cron-style operation or manual cleanup when the
// in-process sweeper is disabled.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"bridge-backend/internal/config"
	"bridge-backend/internal/db"
	"bridge-backend/internal/gateway"
	"bridge-backend/internal/repository"
	"bridge-backend/internal/services"
)

func main() {
	fmt.Println("🔍 Running one-shot order expiry sweep...")

	configPath := os.Getenv("CONFIG_PATH")
	if err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	gateways, err := gateway.NewRegistry(config.AppConfig.Chains)
	if err != nil {
		log.Fatalf("Failed to initialize chain gateways: %v", err)
	}

	orderRepo := repository.NewOrderRepository(database)
	auditRepo := repository.NewAuditRepository(database)

	// No proof gate, publisher or push needed for a sweep
	orderService := services.NewOrderService(orderRepo, auditRepo, gateways, nil, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	expired, disputed, err := orderService.ExpireStale(ctx)
	if err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}

	fmt.Printf("✅ Sweep complete: %d orders expired, %d escalated to disputed\n", expired, disputed)
}
