package fleet

// View is the read-mostly snapshot of the fleet the consolidation core
// operates against: the set of hosts, and the derived utilization figures
// computed from their currently resident VMs.
type View struct {
	hosts []*Host
}

func NewView(hosts []*Host) *View {
	return &View{hosts: hosts}
}

func (v *View) Hosts() []*Host { return v.hosts }

// UtilizationOfCpuMips sums the MIPS allocated to h's resident VMs. A VM
// still migrating in contributes 10x its allocated MIPS, since in CloudSim's
// model a migrating VM's actual resource draw during transfer is an order
// of magnitude higher than its steady-state allocation.
func (v *View) UtilizationOfCpuMips(h *Host) float64 {
	total := 0.0
	for _, vm := range h.VMs() {
		allocated := vm.AllocatedMips()
		if h.IsMigratingIn(vm) {
			total += allocated * 9
		}
		total += allocated
	}
	return total
}

// UtilizationOfIops sums the IOPS allocated to h's resident VMs. IO carries
// no migrating-in inflation term: CloudSim's inflation only ever applied to
// the CPU dimension.
func (v *View) UtilizationOfIops(h *Host) float64 {
	total := 0.0
	for _, vm := range h.VMs() {
		total += vm.AllocatedIops()
	}
	return total
}

// UtilizationFractionCpu is UtilizationOfCpuMips as a fraction of h's MIPS
// capacity; it can exceed 1 while VMs are migrating in.
func (v *View) UtilizationFractionCpu(h *Host) float64 {
	if h.MaxMips == 0 {
		return 0
	}
	return v.UtilizationOfCpuMips(h) / h.MaxMips
}

// UtilizationFractionIo is UtilizationOfIops as a fraction of h's IOPS
// capacity.
func (v *View) UtilizationFractionIo(h *Host) float64 {
	if h.MaxIops == 0 {
		return 0
	}
	return v.UtilizationOfIops(h) / h.MaxIops
}

// MaxUtilizationAfterAllocation is the CPU utilization fraction h would have
// if vm were additionally placed on it, without actually placing it.
func (v *View) MaxUtilizationAfterAllocation(h *Host, vm *VM) float64 {
	if h.MaxMips == 0 {
		return 0
	}
	return (v.UtilizationOfCpuMips(h) + vm.RequestedTotalMips) / h.MaxMips
}

// SwitchedOffHosts returns the hosts with no allocated MIPS or IOPS at all.
func (v *View) SwitchedOffHosts() []*Host {
	var out []*Host
	for _, h := range v.hosts {
		if v.UtilizationOfCpuMips(h) == 0 && v.UtilizationOfIops(h) == 0 {
			out = append(out, h)
		}
	}
	return out
}
