package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenbot_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tokenbot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	PaymentsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tokenbot_payments_created_total",
			Help: "Total number of purchase requests recorded",
		},
	)

	PaymentsDecidedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenbot_payments_decided_total",
			Help: "Total number of payment decisions",
		},
		[]string{"outcome"},
	)

	TokensGrantedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenbot_tokens_granted_total",
			Help: "Total tokens credited to user balances",
		},
		[]string{"reason"},
	)

	TokensSpentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenbot_tokens_spent_total",
			Help: "Total tokens debited from user balances",
		},
		[]string{"reason"},
	)

	ReferralBonusesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tokenbot_referral_bonuses_total",
			Help: "Total number of referral bonuses granted",
		},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenbot_rate_limited_total",
			Help: "Total number of commands rejected by the rate limiter",
		},
		[]string{"command_class"},
	)

	NotificationsQueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenbot_notifications_queued_total",
			Help: "Total number of outbound notifications queued",
		},
		[]string{"type", "status"},
	)

	NotifyQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tokenbot_notify_queue_length",
			Help: "Current length of the outbound notification queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordPaymentCreated() {
	PaymentsCreatedTotal.Inc()
}

func RecordPaymentDecided(outcome string) {
	PaymentsDecidedTotal.WithLabelValues(outcome).Inc()
}

func RecordTokens(delta int64, reason string) {
	if delta >= 0 {
		TokensGrantedTotal.WithLabelValues(reason).Add(float64(delta))
	} else {
		TokensSpentTotal.WithLabelValues(reason).Add(float64(-delta))
	}
}

func RecordReferralBonus() {
	ReferralBonusesTotal.Inc()
}

func RecordRateLimited(commandClass string) {
	RateLimitedTotal.WithLabelValues(commandClass).Inc()
}

func RecordNotification(notifType, status string) {
	NotificationsQueuedTotal.WithLabelValues(notifType, status).Inc()
}
