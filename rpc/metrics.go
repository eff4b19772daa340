package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "commune",
		Subsystem: "rpc",
		Name:      "requests_total",
		Help:      "JSON-RPC requests by method and HTTP status.",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "commune",
		Subsystem: "rpc",
		Name:      "request_duration_seconds",
		Help:      "JSON-RPC request latency by method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "commune",
		Subsystem: "rpc",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the per-source rate limiter.",
	})
)
