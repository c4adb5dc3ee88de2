package consolidation

import "github.com/cobaltcore-dev/consolidator/internal/fleet"

// Predicate decides whether a host is over-utilized in one resource
// dimension, given its current utilization fraction and its own recent
// utilization history. Implementations live in plugins/overload.
type Predicate interface {
	IsOverUtilized(utilization float64, history []float64) bool
}

// OverloadDetector applies independent CPU and IO predicates against a
// fleet view. Both dimensions are evaluated separately; nothing here
// combines them.
type OverloadDetector struct {
	View *fleet.View
	CPU  Predicate
	IO   Predicate
}

func (d *OverloadDetector) IsOverUtilizedCPU(h *fleet.Host) bool {
	u := d.View.UtilizationFractionCpu(h)
	return d.CPU.IsOverUtilized(u, h.CPUHistory())
}

func (d *OverloadDetector) IsOverUtilizedIO(h *fleet.Host) bool {
	u := d.View.UtilizationFractionIo(h)
	return d.IO.IsOverUtilized(u, h.IOHistory())
}

// OverUtilizedHostsCpu returns every host currently over-utilized in the
// CPU dimension.
func (d *OverloadDetector) OverUtilizedHostsCpu() []*fleet.Host {
	return filterHosts(d.View.Hosts(), d.IsOverUtilizedCPU)
}

// OverUtilizedHostsIo returns every host currently over-utilized in the IO
// dimension.
func (d *OverloadDetector) OverUtilizedHostsIo() []*fleet.Host {
	return filterHosts(d.View.Hosts(), d.IsOverUtilizedIO)
}

// FindCommonOverUtilizedHosts returns the hosts present in both lists: hosts
// over-utilized on both dimensions at once, which the eviction planner must
// treat specially rather than evicting for each dimension independently.
func FindCommonOverUtilizedHosts(cpuList, ioList []*fleet.Host) []*fleet.Host {
	cpuSet := toHostSet(cpuList)
	return filterHosts(ioList, func(h *fleet.Host) bool { return cpuSet[h] })
}
