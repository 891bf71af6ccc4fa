package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Destroy reasons, used as metric labels and in logs.
const (
	ReasonIdle     = "idle"
	ReasonDeleted  = "deleted"
	ReasonReplaced = "replaced"
	ReasonExternal = "external"
	ReasonStale    = "stale"
)

type Metrics struct {
	RoomsCreated       prometheus.Counter
	RoomsDestroyed     *prometheus.CounterVec
	DecorationFailures *prometheus.CounterVec
	SweepDuration      prometheus.Histogram
	SweepsSkipped      prometheus.Counter
	HubJoinsLimited    prometheus.Counter
}

// NewMetrics registers the lifecycle collectors on reg. Gauges read the
// registry directly.
func NewMetrics(reg prometheus.Registerer, registry *Registry) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		RoomsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: "tempvoice",
			Name:      "rooms_created_total",
			Help:      "Rooms created on hub join or by operators.",
		}),
		RoomsDestroyed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tempvoice",
			Name:      "rooms_destroyed_total",
			Help:      "Rooms destroyed, by reason.",
		}, []string{"reason"}),
		DecorationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tempvoice",
			Name:      "decoration_failures_total",
			Help:      "Best-effort platform calls that failed, by step.",
		}, []string{"step"}),
		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tempvoice",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of reaper sweeps.",
			Buckets:   prometheus.DefBuckets,
		}),
		SweepsSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "tempvoice",
			Name:      "sweeps_skipped_total",
			Help:      "Sweep ticks skipped because a sweep was still running.",
		}),
		HubJoinsLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: "tempvoice",
			Name:      "hub_joins_limited_total",
			Help:      "Hub joins ignored by the creation rate limit.",
		}),
	}
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "tempvoice",
		Name:      "active_rooms",
		Help:      "Rooms currently tracked.",
	}, func() float64 { return float64(registry.Count()) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "tempvoice",
		Name:      "idle_rooms",
		Help:      "Tracked rooms that are currently empty.",
	}, func() float64 { return float64(registry.IdleCount()) })
	return m
}
