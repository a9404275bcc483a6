package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking flows.
type BookingMetrics struct {
	bookingTotal        *prometheus.CounterVec
	notificationTotal   *prometheus.CounterVec
	availabilityLatency *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Total appointment booking attempts by outcome",
		}, []string{"outcome"}),
		notificationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "notifications_total",
			Help:      "Total appointment emails by event and delivery status",
		}, []string{"event", "status"}),
		availabilityLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "availability_seconds",
			Help:      "Latency of slot availability computation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingTotal, m.notificationTotal, m.availabilityLatency)
	return m
}

// ObserveBooking counts a booking attempt. Outcomes: created, conflict, invalid, error.
func (m *BookingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveNotification(event string, delivered bool) {
	if m == nil {
		return
	}
	status := "sent"
	if !delivered {
		status = "failed"
	}
	m.notificationTotal.WithLabelValues(event, status).Inc()
}

func (m *BookingMetrics) ObserveAvailability(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.availabilityLatency.WithLabelValues(operation).Observe(seconds)
}
