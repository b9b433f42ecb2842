// Package observability provides metrics and tracing instrumentation.
package observability

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// FeedCacheHits counts page-cache lookups on the global feed by outcome.
	FeedCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_feed_cache_lookups_total",
		Help: "Total number of feed page cache lookups by outcome",
	}, []string{"outcome"})

	// PostsCreated counts successfully created posts.
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quill_posts_created_total",
		Help: "Total number of posts created",
	})

	// FollowEdgesChanged counts follow/unfollow mutations by direction.
	FollowEdgesChanged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_follow_edges_changed_total",
		Help: "Total number of follow edge mutations by direction",
	}, []string{"direction"})
)

var (
	promOnce       sync.Once
	promMiddleware *fiberprometheus.FiberPrometheus
)

// InitMetrics creates the Prometheus HTTP middleware for the given
// service name. The middleware registers collectors globally, so the
// same instance is returned on repeated calls.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promMiddleware = fiberprometheus.New(serviceName)
	})
	return promMiddleware
}
