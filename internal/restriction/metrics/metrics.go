package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	BansTotal           prometheus.Counter
	UnbansTotal         prometheus.Counter
	NotifyFailuresTotal prometheus.Counter
	BannedAccounts      prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		BansTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warden_restriction_bans_total",
			Help: "Total number of restrictions imposed",
		}),
		UnbansTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warden_restriction_unbans_total",
			Help: "Total number of restrictions lifted",
		}),
		NotifyFailuresTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warden_restriction_notify_failures_total",
			Help: "Total number of ban notifications that could not be delivered",
		}),
		BannedAccounts: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "warden_restriction_banned_accounts",
			Help: "Current number of accounts with an unlifted restriction",
		}),
	}
}

func (m *Metrics) IncrementBans() {
	m.BansTotal.Inc()
}

func (m *Metrics) IncrementUnbans() {
	m.UnbansTotal.Inc()
}

func (m *Metrics) IncrementNotifyFailures() {
	m.NotifyFailuresTotal.Inc()
}

func (m *Metrics) SetBannedAccounts(count int64) {
	m.BannedAccounts.Set(float64(count))
}
