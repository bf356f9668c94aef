package metrics

import "github.com/prometheus/client_golang/prometheus"

// ClinicMetrics exposes counters/histograms for booking and lifecycle flows.
type ClinicMetrics struct {
	transitionsTotal *prometheus.CounterVec
	slotConflicts    prometheus.Counter
	resolveLatency   prometheus.Histogram
	cacheFetches     *prometheus.CounterVec
}

func NewClinicMetrics(reg prometheus.Registerer) *ClinicMetrics {
	m := &ClinicMetrics{
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "appointments",
			Name:      "transitions_total",
			Help:      "Appointment lifecycle operations by outcome",
		}, []string{"operation", "outcome"}),
		slotConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "appointments",
			Name:      "slot_conflicts_total",
			Help:      "Bookings rejected because the slot was already taken",
		}),
		resolveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "availability",
			Name:      "resolve_seconds",
			Help:      "Latency of availability resolution",
			Buckets:   prometheus.DefBuckets,
		}),
		cacheFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "records",
			Name:      "cache_fetches_total",
			Help:      "Related record lookups by result",
		}, []string{"kind", "result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitionsTotal, m.slotConflicts, m.resolveLatency, m.cacheFetches)
	return m
}

func (m *ClinicMetrics) ObserveTransition(operation, outcome string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *ClinicMetrics) ObserveSlotConflict() {
	if m == nil {
		return
	}
	m.slotConflicts.Inc()
}

func (m *ClinicMetrics) ObserveResolve(seconds float64) {
	if m == nil {
		return
	}
	m.resolveLatency.Observe(seconds)
}

// ObserveCacheFetch records a related-record lookup; result is hit, fetched, missing or error.
func (m *ClinicMetrics) ObserveCacheFetch(kind, result string) {
	if m == nil {
		return
	}
	m.cacheFetches.WithLabelValues(kind, result).Inc()
}
