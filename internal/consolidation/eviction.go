package consolidation

import "github.com/cobaltcore-dev/consolidator/internal/fleet"

// EvictionPlanner decides which VMs must be migrated off over-utilized
// hosts, one resource dimension at a time, following the two-pass
// all-hosts-per-dimension form: hosts over-utilized on both dimensions at
// once are resolved first (dimension priority from Weights), then the
// remaining CPU-only and IO-only hosts are each resolved independently.
//
// The interleaved per-host variant CloudSim carries as a dead, commented-out
// alternative is intentionally not implemented here.
type EvictionPlanner struct {
	Detector    *OverloadDetector
	CPUSelector VmSelector
	IOSelector  VmSelector
	Weights     Weights
}

// EvictionResult is the set of VMs selected for eviction, grouped by the
// dimension whose overload triggered their selection. A VM can appear in
// only one of the two lists.
type EvictionResult struct {
	CPUVictims []*fleet.VM
	IOVictims  []*fleet.VM
}

func (p *EvictionPlanner) Plan(cpuOver, ioOver []*fleet.Host) EvictionResult {
	common := FindCommonOverUtilizedHosts(cpuOver, ioOver)
	commonSet := toHostSet(common)
	cpuOnly := subtractHosts(cpuOver, commonSet)
	ioOnly := subtractHosts(ioOver, commonSet)

	var result EvictionResult

	if len(common) > 0 {
		if p.Weights.PrefersCPU() {
			result.CPUVictims = append(result.CPUVictims, p.evictUntilRelieved(common, p.CPUSelector, p.Detector.IsOverUtilizedCPU)...)
			stillIo := filterHosts(common, p.Detector.IsOverUtilizedIO)
			result.IOVictims = append(result.IOVictims, p.evictUntilRelieved(stillIo, p.IOSelector, p.Detector.IsOverUtilizedIO)...)
		} else {
			result.IOVictims = append(result.IOVictims, p.evictUntilRelieved(common, p.IOSelector, p.Detector.IsOverUtilizedIO)...)
			stillCpu := filterHosts(common, p.Detector.IsOverUtilizedCPU)
			result.CPUVictims = append(result.CPUVictims, p.evictUntilRelieved(stillCpu, p.CPUSelector, p.Detector.IsOverUtilizedCPU)...)
		}
	}

	result.CPUVictims = append(result.CPUVictims, p.evictUntilRelieved(cpuOnly, p.CPUSelector, p.Detector.IsOverUtilizedCPU)...)
	result.IOVictims = append(result.IOVictims, p.evictUntilRelieved(ioOnly, p.IOSelector, p.Detector.IsOverUtilizedIO)...)

	return result
}

// evictUntilRelieved removes VMs from each host in hosts, one at a time via
// selector, until the host no longer reports over-utilized on the given
// dimension or the selector runs out of eligible VMs.
func (p *EvictionPlanner) evictUntilRelieved(hosts []*fleet.Host, selector VmSelector, stillOverUtilized func(*fleet.Host) bool) []*fleet.VM {
	var victims []*fleet.VM
	for _, h := range hosts {
		for {
			vm := selector.SelectVictim(h)
			if vm == nil {
				break
			}
			h.VMDestroy(vm)
			victims = append(victims, vm)
			if !stillOverUtilized(h) {
				break
			}
		}
	}
	return victims
}
