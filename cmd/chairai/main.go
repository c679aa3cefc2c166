package main

import (
	"flag"
	"log"
	"time"

	"github.com/darglk/chairai-sub002/internal"
)

func main() {
	seedFlag := flag.Bool("seed", false, "Seed the database with demo data")
	flag.Parse()

	app, err := internal.NewApp()
	if err != nil {
		log.Fatal(err)
	}

	// Run database migrations
	log.Println("Running database migrations...")
	if err := internal.RunMigrations(app); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// If seed flag is provided, seed and exit
	if *seedFlag {
		log.Println("Seeding database...")
		if err := internal.SeedDemoData(app); err != nil {
			log.Fatalf("Failed to seed database: %v", err)
		}
		log.Println("Database seeded successfully!")
		return
	}

	// Run with graceful shutdown
	if err := app.RunWithTimeout(10 * time.Second); err != nil {
		log.Fatal(err)
	}
}
