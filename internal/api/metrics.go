package api

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects server metrics. Counters are kept twice: as atomics for
// the JSON /metricz snapshot and as Prometheus collectors for /metrics.
type Metrics struct {
	startTime      time.Time
	requests       atomic.Int64
	serverErrors   atomic.Int64
	clientErrors   atomic.Int64
	rateLimited    atomic.Int64
	journeyWrites  atomic.Int64
	trialsCreated  atomic.Int64
	checkouts      atomic.Int64
	webhookEvents  atomic.Int64
	upgrades       atomic.Int64
	activeWatchers atomic.Int64

	registry        *prometheus.Registry
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	webhookCounter  *prometheus.CounterVec
	checkoutCounter *prometheus.CounterVec
	watchGauge      *prometheus.GaugeVec
	journeyCounter  prometheus.Counter
	trialCounter    prometheus.Counter
	limitedCounter  prometheus.Counter
}

// MetricsSnapshot is a point-in-time view of server metrics.
type MetricsSnapshot struct {
	UptimeSeconds      float64 `json:"uptime_seconds"`
	Requests           int64   `json:"requests"`
	ServerErrors       int64   `json:"server_errors"`
	ClientErrors       int64   `json:"client_errors"`
	RateLimited        int64   `json:"rate_limited"`
	JourneyWrites      int64   `json:"journey_writes"`
	TrialsCreated      int64   `json:"trials_created"`
	CheckoutSessions   int64   `json:"checkout_sessions"`
	WebhookEvents      int64   `json:"webhook_events"`
	SubscriptionsPaid  int64   `json:"subscriptions_paid"`
	ActiveWatchStreams int64   `json:"active_watch_streams"`
}

// NewMetrics creates a new Metrics instance with the current time as start.
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),
		registry:  prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sutra",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sutra",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method"}),
		webhookCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sutra",
			Subsystem: "payment",
			Name:      "webhook_events_total",
			Help:      "Payment webhook deliveries by event type and outcome.",
		}, []string{"type", "outcome"}),
		checkoutCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sutra",
			Subsystem: "payment",
			Name:      "checkout_sessions_total",
			Help:      "Checkout session creations by outcome.",
		}, []string{"outcome"}),
		watchGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sutra",
			Subsystem: "watch",
			Name:      "active_streams",
			Help:      "Open document watch streams.",
		}, []string{"doc"}),
		journeyCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sutra",
			Subsystem: "journey",
			Name:      "writes_total",
			Help:      "Accepted journey document writes.",
		}),
		trialCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sutra",
			Subsystem: "subscription",
			Name:      "trials_created_total",
			Help:      "Trials created on first subscription load.",
		}),
		limitedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sutra",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}
	m.registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.webhookCounter,
		m.checkoutCounter,
		m.watchGauge,
		m.journeyCounter,
		m.trialCounter,
		m.limitedCounter,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the Prometheus collectors.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest counts a finished request by method and status code.
func (m *Metrics) RecordRequest(method string, code int, dur time.Duration) {
	m.requests.Add(1)
	switch {
	case code >= 500:
		m.serverErrors.Add(1)
	case code >= 400:
		m.clientErrors.Add(1)
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(dur.Seconds())
}

// RecordRateLimited increments the rate limited counter.
func (m *Metrics) RecordRateLimited() {
	m.rateLimited.Add(1)
	m.limitedCounter.Inc()
}

// RecordJourneyWrite increments the journey write counter.
func (m *Metrics) RecordJourneyWrite() {
	m.journeyWrites.Add(1)
	m.journeyCounter.Inc()
}

// RecordTrialCreated increments the trial counter.
func (m *Metrics) RecordTrialCreated() {
	m.trialsCreated.Add(1)
	m.trialCounter.Inc()
}

// RecordCheckout counts a checkout session creation attempt.
func (m *Metrics) RecordCheckout(outcome string) {
	if outcome == "created" {
		m.checkouts.Add(1)
	}
	m.checkoutCounter.WithLabelValues(outcome).Inc()
}

// RecordWebhook counts a webhook delivery. An "upgraded" outcome also counts
// as a paid subscription.
func (m *Metrics) RecordWebhook(eventType, outcome string) {
	m.webhookEvents.Add(1)
	if outcome == "upgraded" {
		m.upgrades.Add(1)
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.webhookCounter.WithLabelValues(eventType, outcome).Inc()
}

// WatchOpened tracks a new watch stream for doc; the returned func closes it.
func (m *Metrics) WatchOpened(doc string) func() {
	m.activeWatchers.Add(1)
	g := m.watchGauge.WithLabelValues(doc)
	g.Inc()
	return func() {
		m.activeWatchers.Add(-1)
		g.Dec()
	}
}

// Snapshot returns a point-in-time copy of the metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		UptimeSeconds:      time.Since(m.startTime).Seconds(),
		Requests:           m.requests.Load(),
		ServerErrors:       m.serverErrors.Load(),
		ClientErrors:       m.clientErrors.Load(),
		RateLimited:        m.rateLimited.Load(),
		JourneyWrites:      m.journeyWrites.Load(),
		TrialsCreated:      m.trialsCreated.Load(),
		CheckoutSessions:   m.checkouts.Load(),
		WebhookEvents:      m.webhookEvents.Load(),
		SubscriptionsPaid:  m.upgrades.Load(),
		ActiveWatchStreams: m.activeWatchers.Load(),
	}
}
