package consolidation

import (
	"testing"

	"github.com/cobaltcore-dev/consolidator/internal/conf"
	"github.com/cobaltcore-dev/consolidator/internal/fleet"
	"github.com/cobaltcore-dev/consolidator/internal/fleet/power"
	"github.com/cobaltcore-dev/consolidator/internal/monitoring"
)

func newTestMonitor() Monitor {
	return NewMonitor(monitoring.NewRegistry(conf.MonitoringConfig{}))
}

func residentUIDs(h *fleet.Host) map[int]bool {
	out := make(map[int]bool)
	for _, vm := range h.VMs() {
		out[vm.UID] = true
	}
	return out
}

func TestOptimizeRestoresFleetAfterSuccessfulPass(t *testing.T) {
	h1 := fleet.NewHost(1, 100, 100, power.Constant{Watts: 100})
	// h2 starts idle, so the after-allocation overload guard does not run
	// against it; at 200 mips, vm1 also lands well under the 0.8 CPU threshold.
	h2 := fleet.NewHost(2, 200, 200, power.Constant{Watts: 50})
	vm1 := &fleet.VM{UID: 1, RequestedTotalMips: 90, RequestedIops: 10}
	h1.VMCreate(vm1)

	view := fleet.NewView([]*fleet.Host{h1, h2})
	detector := &OverloadDetector{View: view, CPU: thresholdPredicate{Threshold: 0.8}, IO: thresholdPredicate{Threshold: 2}}
	weights, _ := NewWeights(0.7, 0.3)
	planner := &EvictionPlanner{Detector: detector, CPUSelector: biggestFirstSelector{}, IOSelector: biggestFirstSelector{}, Weights: weights}
	search := &PlacementSearch{View: view, Detector: detector}

	c := &Consolidator{
		View:      view,
		Detector:  detector,
		Eviction:  planner,
		Placement: search,
		Weights:   weights,
		History:   NewHistory(),
		Monitor:   newTestMonitor(),
	}

	migrationMap, err := c.Optimize(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migrationMap) != 1 || migrationMap[0].VM != vm1 || migrationMap[0].Host != h2 {
		t.Fatalf("expected vm1 planned onto h2, got %+v", migrationMap)
	}

	if !residentUIDs(h1)[vm1.UID] {
		t.Fatalf("expected fleet restored: vm1 should be back on h1 after Optimize returns")
	}
	if len(h2.VMs()) != 0 {
		t.Fatalf("expected fleet restored: h2 should have no resident vms after Optimize returns, got %v", h2.VMs())
	}
}

func TestOptimizeAllOrNothingDrainRollsBackWhenCapacityInsufficient(t *testing.T) {
	h1 := fleet.NewHost(1, 100, 100, power.Constant{Watts: 100})
	h2 := fleet.NewHost(2, 100, 100, power.Constant{Watts: 100})
	h3 := fleet.NewHost(3, 100, 100, power.Constant{Watts: 100})

	vmA := &fleet.VM{UID: 1, RequestedTotalMips: 30, RequestedIops: 1}
	vmB := &fleet.VM{UID: 2, RequestedTotalMips: 20, RequestedIops: 1}
	h1.VMCreate(vmA)
	h1.VMCreate(vmB) // h1 at 0.50 utilization

	fillerH2 := &fleet.VM{UID: 3, RequestedTotalMips: 70, RequestedIops: 1}
	h2.VMCreate(fillerH2) // h2 at 0.70, 30 spare

	fillerH3 := &fleet.VM{UID: 4, RequestedTotalMips: 85, RequestedIops: 1}
	h3.VMCreate(fillerH3) // h3 at 0.85, 15 spare

	view := fleet.NewView([]*fleet.Host{h1, h2, h3})
	// Thresholds high enough that nothing is ever over-utilized: this test
	// is purely about the drain pass, not eviction.
	detector := &OverloadDetector{View: view, CPU: thresholdPredicate{Threshold: 2}, IO: thresholdPredicate{Threshold: 2}}
	weights, _ := NewWeights(0.7, 0.3) // prefers CPU
	planner := &EvictionPlanner{Detector: detector, CPUSelector: biggestFirstSelector{}, IOSelector: biggestFirstSelector{}, Weights: weights}
	search := &PlacementSearch{View: view, Detector: detector}

	c := &Consolidator{
		View:      view,
		Detector:  detector,
		Eviction:  planner,
		Placement: search,
		Weights:   weights,
		History:   NewHistory(),
		Monitor:   newTestMonitor(),
	}

	before := map[int]map[int]bool{1: residentUIDs(h1), 2: residentUIDs(h2), 3: residentUIDs(h3)}

	migrationMap, err := c.Optimize(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migrationMap) != 0 {
		t.Fatalf("expected no placements: neither host has enough slack to fully absorb a drained host's vms, got %+v", migrationMap)
	}

	after := map[int]map[int]bool{1: residentUIDs(h1), 2: residentUIDs(h2), 3: residentUIDs(h3)}
	for id := range before {
		if len(before[id]) != len(after[id]) {
			t.Fatalf("host %d residency changed: before=%v after=%v", id, before[id], after[id])
		}
		for uid := range before[id] {
			if !after[id][uid] {
				t.Fatalf("host %d lost vm %d across the pass", id, uid)
			}
		}
	}
}

func TestOptimizeDrainsUnderUtilizedHostWhenCapacityAllows(t *testing.T) {
	h1 := fleet.NewHost(1, 100, 100, power.Constant{Watts: 100})
	h2 := fleet.NewHost(2, 100, 100, power.Constant{Watts: 100})
	h3 := fleet.NewHost(3, 100, 100, power.Constant{Watts: 100})

	vm := &fleet.VM{UID: 1, RequestedTotalMips: 10, RequestedIops: 1}
	h1.VMCreate(vm) // h1 at 0.10, the lowest utilized host

	fillerH2 := &fleet.VM{UID: 2, RequestedTotalMips: 50, RequestedIops: 1}
	h2.VMCreate(fillerH2) // h2 at 0.50, 50 spare

	fillerH3 := &fleet.VM{UID: 3, RequestedTotalMips: 60, RequestedIops: 1}
	h3.VMCreate(fillerH3) // h3 at 0.60, 40 spare

	view := fleet.NewView([]*fleet.Host{h1, h2, h3})
	detector := &OverloadDetector{View: view, CPU: thresholdPredicate{Threshold: 2}, IO: thresholdPredicate{Threshold: 2}}
	weights, _ := NewWeights(0.7, 0.3)
	planner := &EvictionPlanner{Detector: detector, CPUSelector: biggestFirstSelector{}, IOSelector: biggestFirstSelector{}, Weights: weights}
	search := &PlacementSearch{View: view, Detector: detector}

	c := &Consolidator{
		View:      view,
		Detector:  detector,
		Eviction:  planner,
		Placement: search,
		Weights:   weights,
		History:   NewHistory(),
		Monitor:   newTestMonitor(),
	}

	migrationMap, err := c.Optimize(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migrationMap) != 1 || migrationMap[0].VM != vm || migrationMap[0].Host != h2 {
		t.Fatalf("expected vm planned onto h2 (first equal-power candidate with room), got %+v", migrationMap)
	}

	// Regardless of success, invariant I1 holds: the live fleet is back to
	// its pre-pass state once Optimize returns.
	if !residentUIDs(h1)[vm.UID] {
		t.Fatalf("expected h1 to still hold vm after Optimize returns")
	}
	if residentUIDs(h2)[vm.UID] {
		t.Fatalf("expected h2 to not retain vm after Optimize returns")
	}
}

func TestGetUnderUtilizedHostUsesPreferredDimension(t *testing.T) {
	h1 := fleet.NewHost(1, 100, 100, nil)
	h2 := fleet.NewHost(2, 100, 100, nil)
	// h1: low CPU, high IO. h2: high CPU, low IO.
	h1.VMCreate(&fleet.VM{UID: 1, RequestedTotalMips: 10, RequestedIops: 80})
	h2.VMCreate(&fleet.VM{UID: 2, RequestedTotalMips: 80, RequestedIops: 10})

	view := fleet.NewView([]*fleet.Host{h1, h2})
	detector := &OverloadDetector{View: view, CPU: thresholdPredicate{Threshold: 2}, IO: thresholdPredicate{Threshold: 2}}

	cpuWeights, _ := NewWeights(0.9, 0.1)
	cCPU := &Consolidator{View: view, Detector: detector, Weights: cpuWeights, History: NewHistory(), Monitor: newTestMonitor()}
	if got := cCPU.getUnderUtilizedHost(nil); got != h1 {
		t.Fatalf("expected h1 (lowest CPU utilization) picked when CPU preferred, got %v", got)
	}

	ioWeights, _ := NewWeights(0.1, 0.9)
	cIO := &Consolidator{View: view, Detector: detector, Weights: ioWeights, History: NewHistory(), Monitor: newTestMonitor()}
	if got := cIO.getUnderUtilizedHost(nil); got != h2 {
		t.Fatalf("expected h2 (lowest IO utilization) picked when IO preferred, got %v", got)
	}
}
