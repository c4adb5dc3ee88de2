package consolidation

import (
	"math"

	"github.com/cobaltcore-dev/consolidator/internal/fleet"
)

// Placement records a single VM having been assigned to a host by the
// planner. It is a plan, not an executed migration: nothing in this package
// calls out to an actual hypervisor.
type Placement struct {
	VM   *fleet.VM
	Host *fleet.Host
}

// MigrationMap is the ordered set of placements a pass decided on.
type MigrationMap []Placement

func (m MigrationMap) Hosts() []*fleet.Host {
	hosts := make([]*fleet.Host, 0, len(m))
	for _, p := range m {
		hosts = append(hosts, p.Host)
	}
	return hosts
}

// Weights are the wMips/wIops dimension weights used throughout the planner
// to decide which resource dimension takes priority when both are
// contended. They must sum to 1.0.
type Weights struct {
	WMips float64
	WIops float64
}

// NewWeights validates that wMips and wIops sum to 1.0, the same check
// CloudSim's constructor makes before anything else runs.
func NewWeights(wMips, wIops float64) (Weights, error) {
	if math.Abs(wMips+wIops-1.0) > 1e-9 {
		return Weights{}, ErrConfigInvalid
	}
	return Weights{WMips: wMips, WIops: wIops}, nil
}

// PrefersCPU reports whether the CPU dimension takes priority over IO when
// both are contended during eviction, placement weight-ordering, and
// under-utilized host draining.
func (w Weights) PrefersCPU() bool { return w.WMips > w.WIops }

type savedPair struct {
	Host *fleet.Host
	VM   *fleet.VM
}

func toHostSet(lists ...[]*fleet.Host) map[*fleet.Host]bool {
	set := make(map[*fleet.Host]bool)
	for _, list := range lists {
		for _, h := range list {
			set[h] = true
		}
	}
	return set
}

func subtractHosts(hosts []*fleet.Host, remove map[*fleet.Host]bool) []*fleet.Host {
	var out []*fleet.Host
	for _, h := range hosts {
		if !remove[h] {
			out = append(out, h)
		}
	}
	return out
}

func filterHosts(hosts []*fleet.Host, keep func(*fleet.Host) bool) []*fleet.Host {
	var out []*fleet.Host
	for _, h := range hosts {
		if keep(h) {
			out = append(out, h)
		}
	}
	return out
}
