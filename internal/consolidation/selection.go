package consolidation

import "github.com/cobaltcore-dev/consolidator/internal/fleet"

// VmSelector picks the next VM to evict from an over-utilized host, or nil
// if no eligible (non-migrating) VM remains. Implementations live in
// plugins/selection.
type VmSelector interface {
	SelectVictim(h *fleet.Host) *fleet.VM
}
