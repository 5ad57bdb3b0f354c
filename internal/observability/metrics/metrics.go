package metrics

import "github.com/prometheus/client_golang/prometheus"

// ClinicMetrics exposes counters and gauges for the triage and
// waiting-room flows. All methods are nil-safe so callers can skip wiring
// metrics entirely (tests, one-off commands).
type ClinicMetrics struct {
	bookingsTotal      *prometheus.CounterVec
	triageFallbacks    *prometheus.CounterVec
	transitionsTotal   *prometheus.CounterVec
	invalidTransitions prometheus.Counter
	waitroomDepth      prometheus.Gauge
	resortLatency      prometheus.Histogram
}

func NewClinicMetrics(reg prometheus.Registerer) *ClinicMetrics {
	m := &ClinicMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "triage",
			Name:      "bookings_total",
			Help:      "Total booking requests by assigned priority",
		}, []string{"priority"}),
		triageFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "triage",
			Name:      "assisted_fallback_total",
			Help:      "Assisted classifications replaced by the rule table",
		}, []string{"reason"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Applied status transitions",
		}, []string{"to"}),
		invalidTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "lifecycle",
			Name:      "invalid_transitions_total",
			Help:      "Rejected status transition requests",
		}),
		waitroomDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clinic",
			Subsystem: "waitroom",
			Name:      "depth",
			Help:      "Checked-in patients currently waiting",
		}),
		resortLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "waitroom",
			Name:      "resort_latency_seconds",
			Help:      "Latency of waiting room re-sorts",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.triageFallbacks, m.transitionsTotal,
		m.invalidTransitions, m.waitroomDepth, m.resortLatency)
	return m
}

func (m *ClinicMetrics) ObserveBooking(priority string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(priority).Inc()
}

func (m *ClinicMetrics) ObserveTriageFallback(reason string) {
	if m == nil {
		return
	}
	m.triageFallbacks.WithLabelValues(reason).Inc()
}

func (m *ClinicMetrics) ObserveTransition(to string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(to).Inc()
}

func (m *ClinicMetrics) ObserveInvalidTransition() {
	if m == nil {
		return
	}
	m.invalidTransitions.Inc()
}

func (m *ClinicMetrics) SetWaitroomDepth(n int) {
	if m == nil {
		return
	}
	m.waitroomDepth.Set(float64(n))
}

func (m *ClinicMetrics) ObserveResortLatency(seconds float64) {
	if m == nil {
		return
	}
	m.resortLatency.Observe(seconds)
}
