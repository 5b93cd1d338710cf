// Verifies database connectivity and the schema the engine expects, using
// database/sql directly so it works before any migration has run.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"bridge-backend/internal/config"

	_ "github.com/lib/pq"
)

var requiredTables = []string{
	"bridge_orders",
	"escrows",
	"treasuries",
	"treasury_wallets",
	"audit_entries",
}

func main() {
	fmt.Println("🔍 Verifying database connection and schema...")

	configPath := os.Getenv("CONFIG_PATH")
	if err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dsn := config.AppConfig.Database.DSN
	if dsn == "" {
		log.Fatalf("Database DSN is not configured (set DATABASE_DSN)")
	}

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	var dbName string
	if err := sqlDB.QueryRow("SELECT current_database()").Scan(&dbName); err != nil {
		log.Fatalf("Failed to get database name: %v", err)
	}
	fmt.Printf("📋 Connected to database: %s\n", dbName)

	missing := 0
	for _, table := range requiredTables {
		var exists bool
		err := sqlDB.QueryRow(`
			SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_schema = 'public' AND table_name = $1
			)
		`, table).Scan(&exists)
		if err != nil {
			log.Fatalf("Failed to check table %s: %v", table, err)
		}
		if exists {
			var count int64
			if err := sqlDB.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
				log.Fatalf("Failed to count rows in %s: %v", table, err)
			}
			fmt.Printf("✅ %s: %d rows\n", table, count)
		} else {
			fmt.Printf("❌ %s: missing (run the server once to migrate)\n", table)
			missing++
		}
	}

	// Amount columns must be wide enough for 38,18 numerics
	var precision sql.NullInt64
	err = sqlDB.QueryRow(`
		SELECT numeric_precision
		FROM information_schema.columns
		WHERE table_schema = 'public'
		AND table_name = 'bridge_orders'
		AND column_name = 'amount'
	`).Scan(&precision)
	if err == nil && precision.Valid {
		if precision.Int64 < 38 {
			fmt.Printf("❌ bridge_orders.amount precision is %d, need 38\n", precision.Int64)
			missing++
		} else {
			fmt.Printf("✅ bridge_orders.amount: numeric(%d)\n", precision.Int64)
		}
	}

	if missing > 0 {
		os.Exit(1)
	}
	fmt.Println("✅ Database verification passed")
}
