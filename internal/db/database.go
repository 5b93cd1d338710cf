package db

import (
	"log"
	"time"

	"bridge-backend/internal/config"
	"bridge-backend/internal/metrics"
	"bridge-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the postgres connection and migrates the schema
func Connect() (*gorm.DB, error) {
	if config.AppConfig == nil || config.AppConfig.Database.DSN == "" {
		log.Fatalf("Database DSN is required")
	}

	dsn := config.AppConfig.Database.DSN
	log.Printf("Connecting to database...")

	database, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		PrepareStmt:                              true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	log.Println("✅ Database connected successfully")

	log.Println("🚀 Starting database schema migration...")
	if err := database.AutoMigrate(
		&models.BridgeOrder{},
		&models.Escrow{},
		&models.Treasury{},
		&models.TreasuryWallet{},
		&models.AuditEntry{},
	); err != nil {
		return nil, err
	}
	log.Println("✅ Database schema migrated successfully")

	return database, nil
}

// StartPoolMetricsReporter reports connection pool stats to prometheus until
// stopCh closes
func StartPoolMetricsReporter(database *gorm.DB, stopCh <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				sqlDB, err := database.DB()
				if err != nil {
					metrics.DBConnectionStatus.Set(0)
					continue
				}
				stats := sqlDB.Stats()
				metrics.DBConnectionPoolSize.Set(float64(stats.OpenConnections))
				metrics.DBConnectionIdle.Set(float64(stats.Idle))
				if err := sqlDB.Ping(); err != nil {
					metrics.DBConnectionStatus.Set(0)
				} else {
					metrics.DBConnectionStatus.Set(1)
				}
			case <-stopCh:
				return
			}
		}
	}()
}
