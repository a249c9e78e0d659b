package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec

	bookingsTotal    *prometheus.CounterVec
	emailsTotal      *prometheus.CounterVec
	invitationsTotal *prometheus.CounterVec
	deployRunsTotal  *prometheus.CounterVec
	feedEventsTotal  *prometheus.CounterVec
	feedSubscribers  prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used across the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exeats_http_requests_total",
			Help: "Total number of tutor and signup requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exeats_http_latency_seconds",
			Help:    "Latency distribution for tutor and signup requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exeats_http_errors_total",
			Help: "Total number of error responses returned.",
		}, []string{"method", "route", "status"})

		bookingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exeats_bookings_total",
			Help: "Booking attempts by outcome.",
		}, []string{"result"})

		emailsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exeats_emails_total",
			Help: "Outbound emails by provider and status.",
		}, []string{"provider", "status"})

		invitationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exeats_invitations_total",
			Help: "Invitation emails by status.",
		}, []string{"status"})

		deployRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exeats_deploy_runs_total",
			Help: "Deploy webhook runs by result.",
		}, []string{"result"})

		feedEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exeats_feed_events_total",
			Help: "Booking feed events by origin.",
		}, []string{"source"})

		feedSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "exeats_feed_subscribers",
			Help: "Tutor feed connections currently open.",
		})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
			bookingsTotal, emailsTotal, invitationsTotal, deployRunsTotal,
			feedEventsTotal, feedSubscribers,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the error response counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// BookingsTotal exposes booking outcomes.
func BookingsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return bookingsTotal
}

// EmailsTotal exposes outbound email outcomes.
func EmailsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return emailsTotal
}

// InvitationsTotal exposes invitation outcomes.
func InvitationsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return invitationsTotal
}

// DeployRunsTotal exposes deploy webhook outcomes.
func DeployRunsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return deployRunsTotal
}

// FeedEventsTotal exposes booking feed event counts.
func FeedEventsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return feedEventsTotal
}

// FeedSubscribers exposes the open feed connection gauge.
func FeedSubscribers() prometheus.Gauge {
	RegisterMetrics()
	return feedSubscribers
}
