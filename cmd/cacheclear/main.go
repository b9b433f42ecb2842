// Command cacheclear drops every cached rendered page so new posts show
// up on the index before the cache TTL elapses.
package main

import (
	"context"
	"log"
	"time"

	"quill/internal/cache"
	"quill/internal/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	cache.InitRedis(cfg.RedisURL)
	if cache.GetClient() == nil {
		log.Fatal("Redis is not reachable, nothing to clear")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := cache.ClearPages(ctx); err != nil {
		log.Fatalf("Failed to clear page cache: %v", err)
	}
	log.Println("Page cache cleared")
}
