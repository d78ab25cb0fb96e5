package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking flow.
type BookingMetrics struct {
	transitionsTotal *prometheus.CounterVec
	conflictsTotal   *prometheus.CounterVec
	externalFailures *prometheus.CounterVec
	emailsTotal      *prometheus.CounterVec
	lockWait         prometheus.Histogram
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetcare",
			Subsystem: "bookings",
			Name:      "transitions_total",
			Help:      "Booking lifecycle transitions by action, resulting status and actor role",
		}, []string{"action", "status", "role"}),
		conflictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetcare",
			Subsystem: "bookings",
			Name:      "slot_conflicts_total",
			Help:      "Booking attempts rejected because the slot was taken",
		}, []string{"source"}),
		externalFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetcare",
			Subsystem: "external",
			Name:      "failures_total",
			Help:      "Failed calls to email, meeting and captcha providers",
		}, []string{"service"}),
		emailsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetcare",
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Transactional emails by template and outcome",
		}, []string{"template", "status"}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vetcare",
			Subsystem: "bookings",
			Name:      "slot_lock_wait_seconds",
			Help:      "Time spent waiting for the per-vet-day slot lock",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitionsTotal, m.conflictsTotal, m.externalFailures, m.emailsTotal, m.lockWait)
	return m
}

func (m *BookingMetrics) ObserveTransition(action, status, role string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(action, status, role).Inc()
}

// ObserveConflict records a rejected booking; source is "precheck" or "constraint".
func (m *BookingMetrics) ObserveConflict(source string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(source).Inc()
}

func (m *BookingMetrics) ObserveExternalFailure(service string) {
	if m == nil {
		return
	}
	m.externalFailures.WithLabelValues(service).Inc()
}

func (m *BookingMetrics) ObserveEmail(template string, ok bool) {
	if m == nil {
		return
	}
	status := "sent"
	if !ok {
		status = "failed"
	}
	m.emailsTotal.WithLabelValues(template, status).Inc()
}

func (m *BookingMetrics) ObserveLockWait(seconds float64) {
	if m == nil {
		return
	}
	m.lockWait.Observe(seconds)
}
