package main

import (
	"log"
	"os"

	"fitness-billing-be/internal/model"
	"fitness-billing-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting billing schema migration...")

	// 3. Pre-Migration: extensions
	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
	}
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 4. AutoMigrate
	models := []interface{}{
		&model.User{},
		&model.Subscription{},
		&model.SubscriptionAuditEvent{},
		&model.BillingEventReceipt{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Post-Migration: at most one active row per user
	postMigrationSQL := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_subscriptions_one_active
		 ON subscriptions (user_id) WHERE status = 'active';`,

		`CREATE OR REPLACE VIEW subscriber_billing_summary AS
		 SELECT u.id AS user_id, u.phone, u.subscription_status, u.subscription_plan, u.subscription_end_date,
		        COUNT(s.id) AS subscription_rows,
		        COALESCE(SUM(s.amount * (1 + s.renewal_count)) FILTER (WHERE s.status <> 'pending'), 0) AS lifetime_revenue
		 FROM users u LEFT JOIN subscriptions s ON s.user_id = u.id
		 WHERE u.deleted_at IS NULL
		 GROUP BY u.id;`,
	}
	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
