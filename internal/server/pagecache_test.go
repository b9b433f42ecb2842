package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"quill/internal/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// TestIndexPageCache_StaleUntilTTL checks the feed cache contract: a
// new post does not appear on the index until the cached page expires
// or an operator clears the page cache.
func TestIndexPageCache_StaleUntilTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(redisClient)
	t.Cleanup(func() { cache.SetClient(nil) })

	s, app, db := setupTestServer(t)
	_ = s

	author := mustCreateUser(t, db, "cachedauthor")
	mustCreatePost(t, db, author, "first post", nil)

	// First request populates the cache.
	resp := doGet(t, app, "/", "")
	wantStatus(t, resp, http.StatusOK)
	if got := len(postsOf(t, decodeBody(t, resp))); got != 1 {
		t.Fatalf("expected 1 post, got %d", got)
	}

	// A new post does not invalidate the cached page.
	mustCreatePost(t, db, author, "second post", nil)
	resp = doGet(t, app, "/", "")
	wantStatus(t, resp, http.StatusOK)
	if got := len(postsOf(t, decodeBody(t, resp))); got != 1 {
		t.Fatalf("expected stale cached page with 1 post, got %d", got)
	}

	// After the TTL the page refreshes.
	mr.FastForward(21 * time.Second)
	resp = doGet(t, app, "/", "")
	wantStatus(t, resp, http.StatusOK)
	if got := len(postsOf(t, decodeBody(t, resp))); got != 2 {
		t.Fatalf("expected refreshed page with 2 posts, got %d", got)
	}

	// An explicit clear refreshes immediately.
	mustCreatePost(t, db, author, "third post", nil)
	resp = doGet(t, app, "/", "")
	if got := len(postsOf(t, decodeBody(t, resp))); got != 2 {
		t.Fatalf("expected cached page with 2 posts, got %d", got)
	}
	if err := cache.ClearPages(context.Background()); err != nil {
		t.Fatalf("ClearPages: %v", err)
	}
	resp = doGet(t, app, "/", "")
	if got := len(postsOf(t, decodeBody(t, resp))); got != 3 {
		t.Fatalf("expected fresh page with 3 posts after clear, got %d", got)
	}
}

// Different query strings cache independently.
func TestPageCache_KeyedByURL(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(redisClient)
	t.Cleanup(func() { cache.SetClient(nil) })

	_, app, db := setupTestServer(t)

	author := mustCreateUser(t, db, "pager")
	for i := 0; i < 11; i++ {
		mustCreatePost(t, db, author, "numbered", nil)
	}

	resp := doGet(t, app, "/", "")
	wantStatus(t, resp, http.StatusOK)
	if got := len(postsOf(t, decodeBody(t, resp))); got != 10 {
		t.Fatalf("expected 10 posts on page 1, got %d", got)
	}

	resp = doGet(t, app, "/?page=2", "")
	wantStatus(t, resp, http.StatusOK)
	if got := len(postsOf(t, decodeBody(t, resp))); got != 1 {
		t.Fatalf("expected 1 post on page 2, got %d", got)
	}
}
