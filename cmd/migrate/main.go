// Command migrate applies the database schema and the built-in groups.
package main

import (
	"log"

	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/seed"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Connect skips AutoMigrate in production, so run it explicitly here.
	if err := db.AutoMigrate(database.AllModels()...); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	if err := seed.Groups(db); err != nil {
		log.Fatalf("Built-in group seeding failed: %v", err)
	}

	log.Println("Migrations applied")
}
