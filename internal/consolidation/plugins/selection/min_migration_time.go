package selection

import "github.com/cobaltcore-dev/consolidator/internal/fleet"

// MinimumMigrationTime evicts the VM with the lowest currently-allocated
// MIPS, approximating the shortest migration time (CloudSim's original
// scores by RAM size; this fleet model has no RAM dimension, so allocated
// MIPS is the closest available proxy for transfer cost).
type MinimumMigrationTime struct{}

func (MinimumMigrationTime) SelectVictim(h *fleet.Host) *fleet.VM {
	candidates := h.EligibleVMs()
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	for _, vm := range candidates[1:] {
		if vm.AllocatedMips() < best.AllocatedMips() {
			best = vm
		}
	}
	return best
}
