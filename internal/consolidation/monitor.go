package consolidation

import (
	"time"

	"github.com/cobaltcore-dev/consolidator/internal/monitoring"
	"github.com/prometheus/client_golang/prometheus"
)

// Monitor wraps the Prometheus metrics emitted by a consolidation pass.
type Monitor struct {
	phaseTimer      *prometheus.HistogramVec
	victimGauge     *prometheus.GaugeVec
	placementGauge  prometheus.Gauge
	drainedGauge    prometheus.Gauge
	softFailCounter *prometheus.CounterVec
}

func NewMonitor(registry *monitoring.Registry) Monitor {
	m := Monitor{
		phaseTimer: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "consolidator_pass_phase_duration_seconds",
			Help: "Duration of a consolidation pass phase.",
		}, []string{"phase"}),
		victimGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "consolidator_eviction_victims",
			Help: "Number of VMs selected for eviction in the last pass, by dimension.",
		}, []string{"dimension"}),
		placementGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "consolidator_placements",
			Help: "Number of placements made in the last pass.",
		}),
		drainedGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "consolidator_hosts_drained",
			Help: "Number of under-utilized hosts successfully drained in the last pass.",
		}),
		softFailCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "consolidator_soft_failures_total",
			Help: "Count of non-fatal placement/selection failures, by kind.",
		}, []string{"kind"}),
	}
	registry.MustRegister(m.phaseTimer, m.victimGauge, m.placementGauge, m.drainedGauge, m.softFailCounter)
	return m
}

// PhaseTimer returns a function that, when called, records the elapsed
// time since now against the given phase label.
func (m Monitor) PhaseTimer(phase string) func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		elapsed := time.Since(start)
		m.phaseTimer.WithLabelValues(phase).Observe(elapsed.Seconds())
		return elapsed
	}
}

func (m Monitor) ObserveVictims(cpu, io int) {
	m.victimGauge.WithLabelValues("cpu").Set(float64(cpu))
	m.victimGauge.WithLabelValues("io").Set(float64(io))
}

func (m Monitor) ObservePlacements(n int) { m.placementGauge.Set(float64(n)) }

func (m Monitor) ObserveDrained(n int) { m.drainedGauge.Set(float64(n)) }

func (m Monitor) ObserveNoPlacement() { m.softFailCounter.WithLabelValues("NoPlacement").Inc() }

func (m Monitor) ObserveEmptySelection() { m.softFailCounter.WithLabelValues("EmptySelection").Inc() }
