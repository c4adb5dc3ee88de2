// Package selection provides VmSelector implementations for eviction
// victim choice: max-correlation, minimum-migration-time, random (all CPU
// dimension), and an IO-weighted combined-score policy.
package selection

import (
	"math"

	"github.com/cobaltcore-dev/consolidator/internal/fleet"
)

// MaximumCorrelation evicts the VM whose utilization history correlates
// most strongly with its host-mates': a VM whose load moves with the pack
// contributes the least to smoothing the host's peak if left in place, so
// it is the best eviction candidate. A VM with no comparable host-mates (or
// no recorded history) scores zero correlation, so it ranks below any VM
// with a positive average correlation; ties go to the earliest candidate.
type MaximumCorrelation struct{}

func (MaximumCorrelation) SelectVictim(h *fleet.Host) *fleet.VM {
	candidates := h.EligibleVMs()
	if len(candidates) == 0 {
		return nil
	}
	var best *fleet.VM
	bestScore := math.Inf(-1)
	for _, vm := range candidates {
		score := averageCorrelationWithPeers(vm, candidates)
		if score > bestScore {
			bestScore = score
			best = vm
		}
	}
	return best
}

func averageCorrelationWithPeers(vm *fleet.VM, peers []*fleet.VM) float64 {
	var total float64
	var n int
	for _, peer := range peers {
		if peer == vm {
			continue
		}
		c := pearsonCorrelation(vm.UtilizationSamples, peer.UtilizationSamples)
		total += c
		n++
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// pearsonCorrelation computes Pearson's r over the overlapping prefix of a
// and b. Returns 0 if either series is too short to be meaningful.
func pearsonCorrelation(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 2 {
		return 0
	}
	a, b = a[:n], b[:n]

	var sumA, sumB float64
	for i := 0; i < n; i++ {
		sumA += a[i]
		sumB += b[i]
	}
	meanA, meanB := sumA/float64(n), sumB/float64(n)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}
