package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsy_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fieldsy_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsy_bookings_total",
			Help: "Total number of bookings created",
		},
		[]string{"source"},
	)

	BookingCancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fieldsy_booking_cancellations_total",
			Help: "Total number of booking cancellations",
		},
	)

	AvailabilityConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsy_availability_conflicts_total",
			Help: "Availability checks rejected, by conflict tier",
		},
		[]string{"conflict_type"},
	)

	SlotLockContentionTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fieldsy_slot_lock_contention_total",
			Help: "Slot lock acquisitions rejected because another user held the lock",
		},
	)

	PayoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsy_payouts_total",
			Help: "Payout attempts by outcome",
		},
		[]string{"outcome"},
	)

	RefundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsy_refunds_total",
			Help: "Refunds by tier (full, half, none)",
		},
		[]string{"tier"},
	)

	SubscriptionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsy_subscription_events_total",
			Help: "Recurring subscription lifecycle events",
		},
		[]string{"event"},
	)

	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fieldsy_sweep_duration_seconds",
			Help:    "Duration of scheduled sweep jobs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldsy_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fieldsy_email_queue_length",
			Help: "Current length of email queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordBooking(source string) {
	BookingsTotal.WithLabelValues(source).Inc()
}

func RecordBookingCancellation() {
	BookingCancellationsTotal.Inc()
}

func RecordAvailabilityConflict(conflictType string) {
	AvailabilityConflictsTotal.WithLabelValues(conflictType).Inc()
}

func RecordPayout(outcome string) {
	PayoutsTotal.WithLabelValues(outcome).Inc()
}

func RecordRefund(tier string) {
	RefundsTotal.WithLabelValues(tier).Inc()
}

func RecordSubscriptionEvent(event string) {
	SubscriptionEventsTotal.WithLabelValues(event).Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}
