// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package metrics holds the Prometheus collectors for the service and the
// handler that exposes them.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "livepoll"

// Registry is the registry every collector below is registered with
var Registry = prometheus.NewRegistry()

var (
	VotesSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "votes_submitted_total",
		Help:      "Vote submissions by outcome.",
	}, []string{"outcome"})

	PollsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "polls_created_total",
		Help:      "Polls created.",
	})

	PublishFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_publish_failures_total",
		Help:      "Vote events that could not be published to the change feed.",
	})

	LiveViews = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_views_open",
		Help:      "Live views currently subscribed to the change feed.",
	})

	LiveEventsFolded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "live_events_folded_total",
		Help:      "Change feed events folded into live views.",
	})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method and status code.",
	}, []string{"method", "code"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
)

// Vote submission outcomes
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		VotesSubmitted,
		PollsCreated,
		PublishFailures,
		LiveViews,
		LiveEventsFolded,
		HTTPRequests,
		HTTPDuration,
	)
}

// ObserveRequest records one finished HTTP request
func ObserveRequest(method string, status int, elapsed time.Duration) {
	HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
