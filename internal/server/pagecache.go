package server

import (
	"time"

	"quill/internal/cache"
	"quill/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// PageCached serves GET responses from the page cache for the feed's
// TTL. Responses go stale for up to the TTL after a write; nothing here
// invalidates on post creation.
func (s *Server) PageCached() fiber.Handler {
	ttl := time.Duration(s.config.FeedCacheTTLSeconds) * time.Second
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet || cache.GetClient() == nil {
			return c.Next()
		}

		key := cache.PageKey(c.OriginalURL())
		if body, ok := cache.FetchPage(c.UserContext(), key); ok {
			observability.FeedCacheHits.WithLabelValues("hit").Inc()
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
			return c.Send(body)
		}
		observability.FeedCacheHits.WithLabelValues("miss").Inc()

		if err := c.Next(); err != nil {
			return err
		}

		if c.Response().StatusCode() == fiber.StatusOK {
			body := make([]byte, len(c.Response().Body()))
			copy(body, c.Response().Body())
			cache.StorePage(c.UserContext(), key, body, ttl)
		}
		return nil
	}
}
