// Package metrics exposes delivery counters and latencies to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aliskhannn/clinic-notifier/internal/model"
)

const namespace = "notifier"

// Metrics holds the collectors the delivery path updates.
type Metrics struct {
	dispatched     *prometheus.CounterVec
	sendDuration   *prometheus.HistogramVec
	claimed        prometheus.Counter
	storeErrors    *prometheus.CounterVec
	purged         prometheus.Counter
	published      *prometheus.CounterVec
	submitted      *prometheus.CounterVec
	publisherQueue prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		dispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatch_total",
				Help:      "Dispatch attempts by channel and resulting status",
			},
			[]string{"channel", "status"},
		),
		sendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "send_duration_seconds",
				Help:      "Duration of channel sender calls in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"channel"},
		),
		claimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claimed_total",
			Help:      "Notifications claimed by scheduler runs",
		}),
		storeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_errors_total",
				Help:      "Record store failures by operation",
			},
			[]string{"operation"},
		),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purged_total",
			Help:      "Terminal notifications removed by retention",
		}),
		published: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outcomes_published_total",
				Help:      "Delivery outcome events by result (delivered, dropped, failed)",
			},
			[]string{"result"},
		),
		submitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submitted_total",
				Help:      "Accepted notification requests by channel",
			},
			[]string{"channel"},
		),
		publisherQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "publisher_queue_length",
			Help:      "Outcome events waiting to be published",
		}),
	}

	reg.MustRegister(
		m.dispatched,
		m.sendDuration,
		m.claimed,
		m.storeErrors,
		m.purged,
		m.published,
		m.submitted,
		m.publisherQueue,
	)

	return m
}

// NewNop returns collectors registered nowhere, for tests and tools.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

func (m *Metrics) Dispatched(channel model.Channel, status model.Status) {
	m.dispatched.WithLabelValues(channel.String(), status.String()).Inc()
}

func (m *Metrics) ObserveSend(channel model.Channel, d time.Duration) {
	m.sendDuration.WithLabelValues(channel.String()).Observe(d.Seconds())
}

func (m *Metrics) Claimed(n int) {
	m.claimed.Add(float64(n))
}

func (m *Metrics) StoreError(operation string) {
	m.storeErrors.WithLabelValues(operation).Inc()
}

func (m *Metrics) Purged(n int64) {
	m.purged.Add(float64(n))
}

// Published counts an outcome event by result: delivered, dropped or failed.
func (m *Metrics) Published(result string) {
	m.published.WithLabelValues(result).Inc()
}

func (m *Metrics) Submitted(channel model.Channel) {
	m.submitted.WithLabelValues(channel.String()).Inc()
}

func (m *Metrics) PublisherQueue(n int) {
	m.publisherQueue.Set(float64(n))
}

// Handler serves /metrics from gatherer and a /healthz liveness probe.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
