package consolidation

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/cobaltcore-dev/consolidator/internal/fleet"
)

// Consolidator is the top-level entry point of the planner: one call to
// Optimize runs a full pass — overload detection, eviction selection,
// placement, under-utilized host draining — and restores the live fleet to
// its pre-pass state before returning, per invariant I1. Across calls it
// retains only what History accumulates, the default clock counter, and the
// per-host utilization samples it records on the fleet's hosts.
type Consolidator struct {
	View      *fleet.View
	Detector  *OverloadDetector
	Eviction  *EvictionPlanner
	Placement *PlacementSearch
	Weights   Weights
	History   *History
	Monitor   Monitor

	// Clock returns the current simulation time, used only to stamp
	// history entries. Defaults to a monotonically increasing counter if
	// nil.
	Clock func() float64

	clockTick float64
}

func (c *Consolidator) clock() float64 {
	if c.Clock != nil {
		return c.Clock()
	}
	c.clockTick++
	return c.clockTick
}

// Optimize runs one consolidation pass. vmList is accepted for interface
// parity with the algorithm this is ported from, which never reads its own
// vmList argument either — overload/eviction/placement all operate on the
// live fleet view instead.
func (c *Consolidator) Optimize(_ []*fleet.VM) (MigrationMap, error) {
	stopTotal := c.Monitor.PhaseTimer("total")

	stopCPU := c.Monitor.PhaseTimer("host_selection_cpu")
	cpuOver := c.Detector.OverUtilizedHostsCpu()
	c.History.RecordDuration("host_selection_cpu", stopCPU())

	stopIO := c.Monitor.PhaseTimer("host_selection_io")
	ioOver := c.Detector.OverUtilizedHostsIo()
	c.History.RecordDuration("host_selection_io", stopIO())

	saved := c.saveAllocation()

	stopSel := c.Monitor.PhaseTimer("vm_selection")
	evicted := c.Eviction.Plan(cpuOver, ioOver)
	c.History.RecordDuration("vm_selection", stopSel())

	stopRealloc := c.Monitor.PhaseTimer("vm_reallocation")
	overUnion := toHostSet(cpuOver, ioOver)
	migrationMap := c.placeOverloadVictims(evicted, overUnion)
	drained := c.drainUnderUtilizedHosts(overUnion)
	migrationMap = append(migrationMap, drained...)
	c.History.RecordDuration("vm_reallocation", stopRealloc())

	if err := c.restoreAllocation(saved); err != nil {
		return nil, err
	}

	c.History.RecordDuration("total", stopTotal())
	c.Monitor.ObserveVictims(len(evicted.CPUVictims), len(evicted.IOVictims))
	c.Monitor.ObservePlacements(len(migrationMap))

	now := c.clock()
	for _, h := range c.View.Hosts() {
		cpuFraction := c.View.UtilizationFractionCpu(h)
		ioFraction := c.View.UtilizationFractionIo(h)
		c.History.AddEntry(h, now, cpuFraction, ioFraction)
		// Feeds the adaptive overload predicates (MAD/IQR), which read a
		// host's own utilization history rather than the pass-indexed one
		// kept in History.
		h.RecordCPUUtilization(cpuFraction)
		h.RecordIOUtilization(ioFraction)
	}

	return migrationMap, nil
}

// saveAllocation snapshots every (host, vm) placement in the live fleet,
// excluding VMs still migrating in — those are never part of the
// snapshot and are restored separately via ReallocateMigratingInVms.
func (c *Consolidator) saveAllocation() []savedPair {
	var saved []savedPair
	for _, h := range c.View.Hosts() {
		for _, vm := range h.VMs() {
			if h.IsMigratingIn(vm) {
				continue
			}
			saved = append(saved, savedPair{Host: h, VM: vm})
		}
	}
	return saved
}

// restoreAllocation wipes every host's tentative, in-pass placements and
// replays the saved snapshot exactly, satisfying invariant I1: Optimize
// never leaves the fleet mutated after it returns.
func (c *Consolidator) restoreAllocation(saved []savedPair) error {
	for _, h := range c.View.Hosts() {
		h.VMDestroyAll()
		h.ReallocateMigratingInVms()
	}
	for _, p := range saved {
		if !p.Host.VMCreate(p.VM) {
			return fmt.Errorf("%w: vm %d onto host %d", ErrRestoreFailed, p.VM.UID, p.Host.ID)
		}
	}
	return nil
}

// placeOverloadVictims finds a destination for every evicted VM, processing
// the CPU and IO victim lists in the order the configured weights prefer,
// each sorted by descending current footprint on its own dimension so the
// heaviest VMs are placed first.
func (c *Consolidator) placeOverloadVictims(evicted EvictionResult, excluded map[*fleet.Host]bool) MigrationMap {
	cpuVictims := append([]*fleet.VM(nil), evicted.CPUVictims...)
	ioVictims := append([]*fleet.VM(nil), evicted.IOVictims...)
	sortDescBy(cpuVictims, func(vm *fleet.VM) float64 { return vm.AllocatedMips() })
	sortDescBy(ioVictims, func(vm *fleet.VM) float64 { return vm.AllocatedIops() })

	var migrationMap MigrationMap
	if c.Weights.PrefersCPU() {
		migrationMap = append(migrationMap, c.placeList(cpuVictims, excluded)...)
		migrationMap = append(migrationMap, c.placeList(ioVictims, excluded)...)
	} else {
		migrationMap = append(migrationMap, c.placeList(ioVictims, excluded)...)
		migrationMap = append(migrationMap, c.placeList(cpuVictims, excluded)...)
	}
	return migrationMap
}

func (c *Consolidator) placeList(vms []*fleet.VM, excluded map[*fleet.Host]bool) MigrationMap {
	var out MigrationMap
	for _, vm := range vms {
		h := c.Placement.FindHostForVM(vm, excluded)
		if h == nil {
			slog.Warn("consolidation: no placement found for eviction victim", "vmUID", vm.UID)
			c.Monitor.ObserveNoPlacement()
			continue
		}
		h.VMCreate(vm)
		out = append(out, Placement{VM: vm, Host: h})
	}
	return out
}

// drainUnderUtilizedHosts repeatedly finds the least-utilized host not yet
// excluded and tries to migrate every one of its non-migrating VMs
// elsewhere. A host is only added to the plan if ALL of its VMs found a
// new home; otherwise the attempt is rolled back and the host is left
// alone, per the all-or-nothing drain semantics.
func (c *Consolidator) drainUnderUtilizedHosts(overUnion map[*fleet.Host]bool) MigrationMap {
	switchedOff := toHostSet(c.View.SwitchedOffHosts())
	excludeSearch := make(map[*fleet.Host]bool)
	excludeNew := make(map[*fleet.Host]bool)
	for h := range overUnion {
		excludeSearch[h] = true
		excludeNew[h] = true
	}
	for h := range switchedOff {
		excludeSearch[h] = true
		excludeNew[h] = true
	}

	var migrationMap MigrationMap
	drained := 0

	for len(excludeSearch) < len(c.View.Hosts()) {
		under := c.getUnderUtilizedHost(excludeSearch)
		if under == nil {
			break
		}
		excludeSearch[under] = true
		excludeNew[under] = true

		victims := under.EligibleVMs()
		if len(victims) == 0 {
			continue
		}
		victims = append([]*fleet.VM(nil), victims...)
		if c.Weights.PrefersCPU() {
			sortDescBy(victims, func(vm *fleet.VM) float64 { return vm.AllocatedMips() })
		} else {
			sortDescBy(victims, func(vm *fleet.VM) float64 { return vm.AllocatedIops() })
		}

		var localPlan MigrationMap
		aborted := false
		for _, vm := range victims {
			h := c.Placement.FindHostForVM(vm, excludeNew)
			if h == nil {
				aborted = true
				break
			}
			h.VMCreate(vm)
			localPlan = append(localPlan, Placement{VM: vm, Host: h})
		}

		if aborted {
			for _, p := range localPlan {
				p.Host.VMDestroy(p.VM)
			}
			slog.Info("consolidation: aborting drain of under-utilized host, not every vm could be placed", "hostID", under.ID)
			continue
		}

		for _, p := range localPlan {
			excludeSearch[p.Host] = true
		}
		migrationMap = append(migrationMap, localPlan...)
		drained++
	}

	c.Monitor.ObserveDrained(drained)
	return migrationMap
}

// getUnderUtilizedHost returns the non-excluded host with the lowest
// non-zero utilization on the weight-preferred dimension, skipping hosts
// whose VMs are all already migrating out (or which have a VM migrating
// in) — those will resolve themselves without draining. Uses the corrected
// wMips > wIops dimension check, not the source's wMips > wMips typo.
func (c *Consolidator) getUnderUtilizedHost(excluded map[*fleet.Host]bool) *fleet.Host {
	minUtil := 1.0
	var under *fleet.Host
	for _, h := range c.View.Hosts() {
		if excluded[h] {
			continue
		}
		var u float64
		if c.Weights.PrefersCPU() {
			u = c.View.UtilizationFractionCpu(h)
		} else {
			u = c.View.UtilizationFractionIo(h)
		}
		if u > 0 && u < minUtil && !c.areAllVmsMigratingOutOrAnyVmMigratingIn(h) {
			minUtil = u
			under = h
		}
	}
	return under
}

func (c *Consolidator) areAllVmsMigratingOutOrAnyVmMigratingIn(h *fleet.Host) bool {
	vms := h.VMs()
	if len(vms) == 0 {
		return true
	}
	for _, vm := range vms {
		if h.IsMigratingIn(vm) {
			return true
		}
	}
	for _, vm := range vms {
		if !vm.IsInMigration() {
			return false
		}
	}
	return true
}

func sortDescBy(vms []*fleet.VM, key func(*fleet.VM) float64) {
	sort.Slice(vms, func(i, j int) bool { return key(vms[i]) > key(vms[j]) })
}
