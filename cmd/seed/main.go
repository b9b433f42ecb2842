// Command seed fills the database with demo users, groups, posts,
// comments, and follow edges for local development.
package main

import (
	"flag"
	"log"

	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	users := flag.Int("users", defaults.NumUsers, "number of users to create")
	posts := flag.Int("posts", defaults.NumPosts, "number of posts to create")
	comments := flag.Int("comments", defaults.NumComments, "number of comments to create")
	follows := flag.Int("follows", defaults.NumFollows, "number of follow edges to draw")
	clean := flag.Bool("clean", false, "truncate all tables before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	err = seed.Seed(db, seed.Options{
		NumUsers:    *users,
		NumPosts:    *posts,
		NumComments: *comments,
		NumFollows:  *follows,
		ShouldClean: *clean,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
