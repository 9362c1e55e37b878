// Standalone seeder for local development.
// Usage: go run scripts/seed/main.go
package main

import (
	"fmt"
	"log"

	"github.com/blaisecz/sleepsense/internal/config"
	"github.com/blaisecz/sleepsense/internal/seed"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()

	db, err := config.NewDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Run(db); err != nil {
		log.Fatalf("Seed failed: %v", err)
	}

	printUsers(db)
}

func printUsers(db *gorm.DB) {
	var rows []struct {
		ID       string
		Timezone string
	}
	if err := db.Table("users").Select("id", "timezone").Scan(&rows).Error; err != nil {
		log.Printf("Failed to list users: %v", err)
		return
	}

	fmt.Println("\nSample user IDs for testing:")
	for _, row := range rows {
		fmt.Printf("  %s (%s)\n", row.ID, row.Timezone)
	}
}
