// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offer_submissions_total",
			Help: "Offer submissions by outcome",
		},
		[]string{"outcome"},
	)

	ValidationBlocks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "offer_validation_blocks_total",
			Help: "Submissions blocked by missing required fields",
		},
	)

	DraftSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offer_draft_saves_total",
			Help: "Draft autosaves by result",
		},
		[]string{"result"},
	)

	WebhookDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "offer_webhook_duration_seconds",
			Help:    "Duration of webhook deliveries in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	LiveSubscribers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "offer_live_subscribers",
			Help: "Open live subscriptions per stream",
		},
		[]string{"stream"},
	)

	FormSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "offer_form_sessions",
			Help: "Form sessions held in memory",
		},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
