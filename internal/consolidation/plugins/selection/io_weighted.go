package selection

import "github.com/cobaltcore-dev/consolidator/internal/fleet"

// IOWeighted evicts the VM with the highest combined CPU/IO footprint,
// weighted the same way the planner weighs the two dimensions overall. It
// is the IO-dimension counterpart to the CPU selectors above, parameterized
// at construction with the same wMips/wIops the rest of the planner uses.
type IOWeighted struct {
	WMips float64
	WIops float64
}

func (s IOWeighted) SelectVictim(h *fleet.Host) *fleet.VM {
	candidates := h.EligibleVMs()
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	bestScore := s.score(best)
	for _, vm := range candidates[1:] {
		score := s.score(vm)
		if score > bestScore {
			bestScore = score
			best = vm
		}
	}
	return best
}

func (s IOWeighted) score(vm *fleet.VM) float64 {
	return s.WMips*vm.AllocatedMips() + s.WIops*vm.AllocatedIops()
}
