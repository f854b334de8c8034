package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PostViewsCounted counts views that incremented a post's view counter.
var PostViewsCounted = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "postforum_post_views_counted_total",
		Help: "Total number of post views that incremented a view counter",
	},
)

// PostViewErrors counts view recordings that failed and were skipped.
var PostViewErrors = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "postforum_post_view_errors_total",
		Help: "Total number of post view recordings that failed",
	},
)

// RequestDuration records handler latency by route pattern and status code.
var RequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "postforum_http_request_duration_seconds",
		Help:    "Latency in seconds of HTTP requests",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"route", "code"},
)

// ThreadSubscribers tracks open websocket subscriptions to thread feeds.
var ThreadSubscribers = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "postforum_thread_feed_subscribers",
		Help: "Number of open thread feed websocket connections",
	},
)

// RecentVotesCache counts recent-vote cache lookups by result (hit, miss, error).
var RecentVotesCache = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "postforum_recent_votes_cache_total",
		Help: "Recent votes cache lookups by result",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(PostViewsCounted, PostViewErrors)
	prometheus.MustRegister(RequestDuration, ThreadSubscribers, RecentVotesCache)
}
