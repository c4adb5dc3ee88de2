package selection

import (
	"math/rand/v2"

	"github.com/cobaltcore-dev/consolidator/internal/fleet"
)

// Random picks a uniformly random eligible VM. It takes an explicit source
// at construction rather than reading package-level global random state, so
// passes are reproducible in tests.
type Random struct {
	rng *rand.Rand
}

func NewRandom(source rand.Source) Random {
	return Random{rng: rand.New(source)}
}

func (r Random) SelectVictim(h *fleet.Host) *fleet.VM {
	candidates := h.EligibleVMs()
	if len(candidates) == 0 {
		return nil
	}
	return candidates[r.rng.IntN(len(candidates))]
}
