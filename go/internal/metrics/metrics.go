// Package metrics holds the market's Prometheus collectors
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Resolution kinds
const (
	KindAuction = "auction"
	KindWaiver  = "waiver"
)

// Market collects resolution and sweep metrics. A nil *Market records nothing.
type Market struct {
	resolutions   *prometheus.CounterVec
	sweepDuration *prometheus.HistogramVec
	sweepBacklog  *prometheus.GaugeVec
}

// NewMarket creates the collectors and registers them with reg
func NewMarket(reg prometheus.Registerer) *Market {
	m := &Market{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "market_resolutions_total",
			Help: "Auction and waiver resolutions by outcome",
		}, []string{"kind", "outcome"}),
		sweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "market_sweep_duration_seconds",
			Help:    "Time spent resolving a single player or waiver",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		sweepBacklog: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "market_sweep_backlog",
			Help: "Entities found due on the last scheduler pass",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.resolutions, m.sweepDuration, m.sweepBacklog)
	return m
}

func (m *Market) RecordResolution(kind, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(kind, outcome).Inc()
	m.sweepDuration.WithLabelValues(kind).Observe(took.Seconds())
}

func (m *Market) RecordBacklog(kind string, due int) {
	if m == nil {
		return
	}
	m.sweepBacklog.WithLabelValues(kind).Set(float64(due))
}
