package cache

import (
	"context"
	"time"
)

// Rendered feed pages are cached as opaque blobs keyed by request URL.
// Post creation intentionally does not touch these keys: a newly created
// post becomes visible in the cached feed only after the TTL elapses or
// an explicit ClearPages.
const pageKeyPrefix = "page:"

// PageKey returns the cache key for a rendered page at the given request URL.
func PageKey(url string) string {
	return pageKeyPrefix + url
}

// FetchPage returns the cached rendered page body for key, if present.
func FetchPage(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	body, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return body, true
}

// StorePage caches the rendered page body under key for the given TTL.
// Best-effort: failures are surfaced through the Redis error metric only.
func StorePage(ctx context.Context, key string, body []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	client.Set(ctx, key, body, ttl)
}

// ClearPages removes every cached rendered page. Invoked by operators
// (cmd/cacheclear) when new posts must appear before the TTL elapses.
func ClearPages(ctx context.Context) error {
	if client == nil {
		return nil
	}
	iter := client.Scan(ctx, 0, pageKeyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return client.Del(ctx, keys...).Err()
}
