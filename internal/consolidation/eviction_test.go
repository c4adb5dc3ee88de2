package consolidation

import (
	"testing"

	"github.com/cobaltcore-dev/consolidator/internal/fleet"
)

// biggestFirstSelector evicts the largest eligible VM by allocated MIPS,
// enough to drive the overload-relief loop in tests deterministically.
type biggestFirstSelector struct{}

func (biggestFirstSelector) SelectVictim(h *fleet.Host) *fleet.VM {
	candidates := h.EligibleVMs()
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	for _, vm := range candidates[1:] {
		if vm.AllocatedMips() > best.AllocatedMips() {
			best = vm
		}
	}
	return best
}

func TestEvictionPlannerRelievesCpuOnlyHost(t *testing.T) {
	h := fleet.NewHost(1, 100, 100, nil)
	vm1 := &fleet.VM{UID: 1, RequestedTotalMips: 60, RequestedIops: 1}
	vm2 := &fleet.VM{UID: 2, RequestedTotalMips: 30, RequestedIops: 1}
	h.VMCreate(vm1)
	h.VMCreate(vm2)

	view := fleet.NewView([]*fleet.Host{h})
	detector := &OverloadDetector{
		View: view,
		CPU:  thresholdPredicate{Threshold: 0.8},
		IO:   thresholdPredicate{Threshold: 0.8},
	}
	weights, _ := NewWeights(0.7, 0.3)
	planner := &EvictionPlanner{
		Detector:    detector,
		CPUSelector: biggestFirstSelector{},
		IOSelector:  biggestFirstSelector{},
		Weights:     weights,
	}

	result := planner.Plan([]*fleet.Host{h}, nil)
	if len(result.CPUVictims) != 1 || result.CPUVictims[0] != vm1 {
		t.Fatalf("expected vm1 (the larger vm) evicted, got %v", result.CPUVictims)
	}
	if detector.IsOverUtilizedCPU(h) {
		t.Fatalf("expected host to no longer be over-utilized after eviction")
	}
}

func TestEvictionPlannerCommonOverloadPicksDimensionByWeight(t *testing.T) {
	h := fleet.NewHost(1, 100, 100, nil)
	vm1 := &fleet.VM{UID: 1, RequestedTotalMips: 90, RequestedIops: 90}
	h.VMCreate(vm1)

	view := fleet.NewView([]*fleet.Host{h})
	detector := &OverloadDetector{
		View: view,
		CPU:  thresholdPredicate{Threshold: 0.5},
		IO:   thresholdPredicate{Threshold: 0.5},
	}
	weights, _ := NewWeights(0.7, 0.3) // prefers CPU
	planner := &EvictionPlanner{
		Detector:    detector,
		CPUSelector: biggestFirstSelector{},
		IOSelector:  biggestFirstSelector{},
		Weights:     weights,
	}

	result := planner.Plan([]*fleet.Host{h}, []*fleet.Host{h})
	if len(result.CPUVictims) != 1 {
		t.Fatalf("expected the single vm to be evicted via the CPU pass when CPU is preferred, got cpu=%v io=%v", result.CPUVictims, result.IOVictims)
	}
	if len(result.IOVictims) != 0 {
		t.Fatalf("expected no IO-dimension eviction once the common host is already relieved, got %v", result.IOVictims)
	}
}
