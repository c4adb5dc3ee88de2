package consolidation

import (
	"sync"
	"time"

	"github.com/cobaltcore-dev/consolidator/internal/fleet"
)

// History accumulates the in-memory traces a pass produces: per-phase
// execution durations, and per-host utilization traces recorded once per
// pass. It is safe for concurrent use, though in practice a single
// Consolidator drives one pass at a time.
type History struct {
	mu sync.Mutex

	durations map[string][]time.Duration

	hostTimes map[int][]float64
	hostCPU   map[int][]float64
	hostIO    map[int][]float64
}

func NewHistory() *History {
	return &History{
		durations: make(map[string][]time.Duration),
		hostTimes: make(map[int][]float64),
		hostCPU:   make(map[int][]float64),
		hostIO:    make(map[int][]float64),
	}
}

// RecordDuration appends a phase's execution time to its trace.
func (h *History) RecordDuration(phase string, d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.durations[phase] = append(h.durations[phase], d)
}

func (h *History) Durations(phase string) []time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]time.Duration(nil), h.durations[phase]...)
}

// AddEntry records one host's utilization at the given clock tick. It is
// idempotent: a duplicate clock value for the same host is a no-op, mirroring
// the original's duplicate-entry guard.
func (h *History) AddEntry(host *fleet.Host, clock float64, cpuUtilization, ioUtilization float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	times := h.hostTimes[host.ID]
	for _, t := range times {
		if t == clock {
			return
		}
	}
	h.hostTimes[host.ID] = append(times, clock)
	h.hostCPU[host.ID] = append(h.hostCPU[host.ID], cpuUtilization)
	h.hostIO[host.ID] = append(h.hostIO[host.ID], ioUtilization)
}

func (h *History) TimeHistory(hostID int) []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]float64(nil), h.hostTimes[hostID]...)
}

func (h *History) CPUUtilizationHistory(hostID int) []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]float64(nil), h.hostCPU[hostID]...)
}

func (h *History) IOUtilizationHistory(hostID int) []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]float64(nil), h.hostIO[hostID]...)
}
