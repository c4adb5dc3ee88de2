package consolidation

import (
	"math"

	"github.com/cobaltcore-dev/consolidator/internal/fleet"
)

// PlacementSearch finds a destination host for a single VM, scanning every
// non-excluded host, rejecting any that would become over-utilized after
// the tentative allocation, and tie-breaking on the smallest resulting
// power-draw delta.
type PlacementSearch struct {
	View     *fleet.View
	Detector *OverloadDetector
}

// FindHostForVM returns the best candidate host for vm, or nil if none is
// suitable. excluded hosts are never considered, regardless of fit.
func (s *PlacementSearch) FindHostForVM(vm *fleet.VM, excluded map[*fleet.Host]bool) *fleet.Host {
	var best *fleet.Host
	minDelta := math.MaxFloat64

	for _, h := range s.View.Hosts() {
		if excluded[h] {
			continue
		}
		if !h.IsSuitableForVM(vm) {
			continue
		}
		// The after-allocation overload guard only applies to a host
		// already carrying load on both dimensions; a host with nothing
		// allocated on the CPU or IO side yet is always eligible, even if
		// the incoming vm alone would trip a predicate.
		loadedOnBothDimensions := s.View.UtilizationOfCpuMips(h) > 0 && s.View.UtilizationOfIops(h) > 0
		if loadedOnBothDimensions && s.isOverUtilizedAfterAllocation(h, vm) {
			continue
		}
		powerAfter, err := h.Power.Power(s.View.MaxUtilizationAfterAllocation(h, vm))
		if err != nil {
			continue
		}
		delta := powerAfter - h.CurrentPower()
		if delta < minDelta {
			minDelta = delta
			best = h
		}
	}
	return best
}

// isOverUtilizedAfterAllocation tentatively places vm on h, checks both
// overload predicates, then undoes the tentative placement. If the
// tentative placement itself fails (capacity race against a concurrent
// evaluation of the same host), the host is conservatively treated as
// over-utilized, matching the original's default-true behavior.
func (s *PlacementSearch) isOverUtilizedAfterAllocation(h *fleet.Host, vm *fleet.VM) bool {
	if !h.VMCreate(vm) {
		return true
	}
	overUtilized := s.Detector.IsOverUtilizedCPU(h) || s.Detector.IsOverUtilizedIO(h)
	h.VMDestroy(vm)
	return overUtilized
}
