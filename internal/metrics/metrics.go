package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Ticks            prometheus.Counter
	Redraws          prometheus.Counter
	Unchanged        prometheus.Counter
	Failures         *prometheus.CounterVec
	TickDuration     prometheus.Histogram
	OutstandingUnits *prometheus.GaugeVec
	Surfaces         prometheus.Gauge
	FramesDropped    prometheus.Counter
	FeedsAccepted    prometheus.Counter
	FeedsRejected    prometheus.Counter
	Orders           prometheus.Gauge
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Name: "wachtrij_refresh_ticks_total",
			Help: "Refresh ticks that found an open panel.",
		}),
		Redraws: f.NewCounter(prometheus.CounterOpts{
			Name: "wachtrij_refresh_redraws_total",
			Help: "Panel redraws pushed to open surfaces.",
		}),
		Unchanged: f.NewCounter(prometheus.CounterOpts{
			Name: "wachtrij_refresh_unchanged_total",
			Help: "Ticks skipped because the aggregate did not change.",
		}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wachtrij_refresh_failures_total",
			Help: "Ticks abandoned because of an error, by stage.",
		}, []string{"stage"}),
		TickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "wachtrij_refresh_tick_duration_seconds",
			Help:    "Duration of a refresh tick.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		OutstandingUnits: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "wachtrij_outstanding_units",
			Help: "Outstanding units per display group at the last tick.",
		}, []string{"group"}),
		Surfaces: f.NewGauge(prometheus.GaugeOpts{
			Name: "wachtrij_open_surfaces",
			Help: "Overlay panels currently connected.",
		}),
		FramesDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "wachtrij_frames_dropped_total",
			Help: "Panel frames dropped because a surface was too slow.",
		}),
		FeedsAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: "wachtrij_feeds_accepted_total",
			Help: "Order feeds accepted from the game client.",
		}),
		FeedsRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "wachtrij_feeds_rejected_total",
			Help: "Order feeds rejected by validation.",
		}),
		Orders: f.NewGauge(prometheus.GaugeOpts{
			Name: "wachtrij_orders",
			Help: "Orders in the mirrored store.",
		}),
	}
}

// The helpers below are nil-safe so components can run without metrics.

func (m *Metrics) ObserveTick(start time.Time) {
	if m == nil {
		return
	}
	m.Ticks.Inc()
	m.TickDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncRedraw() {
	if m == nil {
		return
	}
	m.Redraws.Inc()
}

func (m *Metrics) IncUnchanged() {
	if m == nil {
		return
	}
	m.Unchanged.Inc()
}

func (m *Metrics) IncFailure(stage string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(stage).Inc()
}

func (m *Metrics) SetOutstanding(group string, units int) {
	if m == nil {
		return
	}
	m.OutstandingUnits.WithLabelValues(group).Set(float64(units))
}

func (m *Metrics) SetSurfaces(n int) {
	if m == nil {
		return
	}
	m.Surfaces.Set(float64(n))
}

func (m *Metrics) IncDropped() {
	if m == nil {
		return
	}
	m.FramesDropped.Inc()
}

func (m *Metrics) ObserveFeed(accepted bool, orders int) {
	if m == nil {
		return
	}
	if !accepted {
		m.FeedsRejected.Inc()
		return
	}
	m.FeedsAccepted.Inc()
	m.Orders.Set(float64(orders))
}

// ResetOrders zeroes the order gauge after the store is cleared.
func (m *Metrics) ResetOrders() {
	if m == nil {
		return
	}
	m.Orders.Set(0)
}
