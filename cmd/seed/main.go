// Command seed populates the database with demo users, posts, likes and
// comments for local development.
package main

import (
	"flag"
	"log"

	"echofeed/internal/config"
	"echofeed/internal/database"
	"echofeed/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 25, "Number of users to create")
	numPosts := flag.Int("posts", 100, "Number of posts to create")
	clean := flag.Bool("clean", true, "Delete existing data before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Printf("Seeding %d users and %d posts (clean=%v)...", *numUsers, *numPosts, *clean)

	if err := seed.NewSeeder(db).Run(seed.Options{
		Users: *numUsers,
		Posts: *numPosts,
		Clean: *clean,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Done. All seeded accounts use the password: password123")
}
