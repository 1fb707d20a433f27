package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records cart store and booking activity.
type CartMetrics struct {
	mutations       *prometheus.CounterVec
	persistFailures prometheus.Counter
	persistDuration prometheus.Histogram
	hydrations      *prometheus.CounterVec
	openCarts       prometheus.Gauge
	bookings        *prometheus.CounterVec
}

// NewCartMetrics registers the cart metrics on the provided registerer. A nil registerer
// yields a no-op recorder.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	m := &CartMetrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_mutations_total",
			Help: "Effective cart mutations by operation.",
		}, []string{"op"}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cart_persist_failures_total",
			Help: "Cart slot writes that failed and were swallowed.",
		}),
		persistDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cart_persist_duration_seconds",
			Help:    "Duration of cart slot writes in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		hydrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_hydrations_total",
			Help: "Cart hydration attempts by outcome.",
		}, []string{"outcome"}),
		openCarts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cart_open_stores",
			Help: "Cart stores currently held in memory.",
		}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookings_total",
			Help: "Booking submissions by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.mutations, m.persistFailures, m.persistDuration, m.hydrations, m.openCarts, m.bookings)
	return m
}

// IncMutation counts an effective mutation for the named operation.
func (m *CartMetrics) IncMutation(op string) {
	if m == nil || m.mutations == nil {
		return
	}
	m.mutations.WithLabelValues(normalizeLabel(op)).Inc()
}

// ObservePersist records a slot write and whether it failed.
func (m *CartMetrics) ObservePersist(duration time.Duration, err error) {
	if m == nil || m.persistDuration == nil {
		return
	}
	m.persistDuration.Observe(duration.Seconds())
	if err != nil {
		m.persistFailures.Inc()
	}
}

// IncHydration counts a hydration attempt by outcome (restored, empty, corrupt, unavailable).
func (m *CartMetrics) IncHydration(outcome string) {
	if m == nil || m.hydrations == nil {
		return
	}
	m.hydrations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// SetOpenCarts reports how many stores the registry holds.
func (m *CartMetrics) SetOpenCarts(n int) {
	if m == nil || m.openCarts == nil {
		return
	}
	m.openCarts.Set(float64(n))
}

// IncBooking counts a booking submission outcome.
func (m *CartMetrics) IncBooking(outcome string) {
	if m == nil || m.bookings == nil {
		return
	}
	m.bookings.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
