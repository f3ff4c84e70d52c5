package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ResendsTotal         *prometheus.CounterVec
	ResendFailuresTotal  prometheus.Counter
	ThresholdAlertsTotal prometheus.Counter
	NotifierErrorsTotal  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		ResendsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "remail_resends_total",
			Help: "Total number of successful resends",
		}, []string{"mode"}),
		ResendFailuresTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "remail_resend_failures_total",
			Help: "Total number of failed resend attempts",
		}),
		ThresholdAlertsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "remail_threshold_alerts_total",
			Help: "Total number of threshold alerts sent to the chat channel",
		}),
		NotifierErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "remail_notifier_errors_total",
			Help: "Total number of swallowed chat notification failures",
		}),
	}
}

func (m *Metrics) IncrementResends(mode string) {
	m.ResendsTotal.WithLabelValues(mode).Inc()
}

func (m *Metrics) IncrementResendFailures() {
	m.ResendFailuresTotal.Inc()
}

func (m *Metrics) IncrementThresholdAlerts() {
	m.ThresholdAlertsTotal.Inc()
}

func (m *Metrics) IncrementNotifierErrors() {
	m.NotifierErrorsTotal.Inc()
}
