package fleet

import "github.com/cobaltcore-dev/consolidator/internal/fleet/power"

// Host is a physical machine hosting VMs, ported from the CloudSim original's
// concrete PowerHost class rather than an interface: the consolidation core
// always operates on a live, mutable fleet, never on a mock implementation.
type Host struct {
	ID int

	MaxMips float64
	MaxIops float64

	Power power.Model

	vms         []*VM
	migratingIn map[int]*VM

	currentPower float64

	cpuHistory []float64
	ioHistory  []float64
}

func NewHost(id int, maxMips, maxIops float64, model power.Model) *Host {
	return &Host{ID: id, MaxMips: maxMips, MaxIops: maxIops, Power: model}
}

// VMs returns the hosts's resident VMs, including any still marked as
// migrating in.
func (h *Host) VMs() []*VM { return h.vms }

// IsMigratingIn reports whether vm is mid-transfer onto this host.
func (h *Host) IsMigratingIn(vm *VM) bool {
	_, ok := h.migratingIn[vm.UID]
	return ok
}

// MarkMigratingIn adds vm to this host's resident list as a migrating-in VM,
// allocating its footprint immediately (FleetView additionally inflates its
// CPU footprint to 10x while it is migrating in, for the cost of the transfer).
func (h *Host) MarkMigratingIn(vm *VM) {
	if h.migratingIn == nil {
		h.migratingIn = make(map[int]*VM)
	}
	h.migratingIn[vm.UID] = vm
	vm.allocatedMips = vm.RequestedTotalMips
	vm.allocatedIops = vm.RequestedIops
	h.vms = append(h.vms, vm)
}

// CurrentPower is the power last recorded as drawn by this host.
func (h *Host) CurrentPower() float64 { return h.currentPower }

func (h *Host) SetCurrentPower(watts float64) { h.currentPower = watts }

// IsSuitableForVM reports whether this host has spare MIPS and IOPS capacity
// for vm, given its currently resident VMs.
func (h *Host) IsSuitableForVM(vm *VM) bool {
	usedMips, usedIops := 0.0, 0.0
	for _, v := range h.vms {
		usedMips += v.allocatedMips
		usedIops += v.allocatedIops
	}
	return usedMips+vm.RequestedTotalMips <= h.MaxMips &&
		usedIops+vm.RequestedIops <= h.MaxIops
}

// VMCreate places vm on this host if it fits, allocating its footprint.
// Reports whether placement succeeded.
func (h *Host) VMCreate(vm *VM) bool {
	if !h.IsSuitableForVM(vm) {
		return false
	}
	vm.allocatedMips = vm.RequestedTotalMips
	vm.allocatedIops = vm.RequestedIops
	h.vms = append(h.vms, vm)
	return true
}

// VMDestroy removes vm from this host. Its allocated MIPS/IOPS are left
// intact so callers can still read its last-known footprint (e.g. to rank
// eviction victims) after it is gone.
func (h *Host) VMDestroy(vm *VM) {
	for i, v := range h.vms {
		if v == vm {
			h.vms = append(h.vms[:i:i], h.vms[i+1:]...)
			break
		}
	}
	delete(h.migratingIn, vm.UID)
}

// VMDestroyAll clears every resident VM, including migrating-in ones. Used
// by restoreAllocation before replaying a saved allocation snapshot.
func (h *Host) VMDestroyAll() {
	h.vms = nil
}

// ReallocateMigratingInVms re-adds the VMs still marked as migrating-in to
// this host's resident list, restoring their allocated footprint. Called
// after VMDestroyAll during restoreAllocation, since migrating-in VMs are
// never part of a saved allocation snapshot.
func (h *Host) ReallocateMigratingInVms() {
	for _, vm := range h.migratingIn {
		vm.allocatedMips = vm.RequestedTotalMips
		vm.allocatedIops = vm.RequestedIops
		h.vms = append(h.vms, vm)
	}
}

const hostHistoryWindow = 30

func (h *Host) RecordCPUUtilization(fraction float64) {
	h.cpuHistory = append(h.cpuHistory, fraction)
	if len(h.cpuHistory) > hostHistoryWindow {
		h.cpuHistory = h.cpuHistory[len(h.cpuHistory)-hostHistoryWindow:]
	}
}

func (h *Host) RecordIOUtilization(fraction float64) {
	h.ioHistory = append(h.ioHistory, fraction)
	if len(h.ioHistory) > hostHistoryWindow {
		h.ioHistory = h.ioHistory[len(h.ioHistory)-hostHistoryWindow:]
	}
}

func (h *Host) CPUHistory() []float64 { return h.cpuHistory }
func (h *Host) IOHistory() []float64  { return h.ioHistory }

// EligibleVMs returns h's resident VMs that are not already mid-migration,
// the pool every eviction selection policy must choose from.
func (h *Host) EligibleVMs() []*VM {
	var out []*VM
	for _, vm := range h.vms {
		if !vm.IsInMigration() {
			out = append(out, vm)
		}
	}
	return out
}
