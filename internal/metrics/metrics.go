// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Loading
	EventsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socdash_events_loaded_total",
			Help: "Total number of events loaded",
		},
		[]string{"source"},
	)

	EventsMalformed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "socdash_events_malformed_total",
			Help: "Total number of rows rejected as malformed",
		},
	)

	// Scoring
	RiskScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "socdash_risk_score",
			Help:    "Distribution of computed risk scores",
			Buckets: []float64{10, 25, 50, 75, 100},
		},
	)

	// Alerting
	AlertsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socdash_alerts_emitted_total",
			Help: "Total number of rolling-window alerts emitted",
		},
		[]string{"scope"},
	)

	// API
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socdash_http_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"route", "code"},
	)
)
