package fleet

// VM is a single migratable workload. Its allocated MIPS/IOPS reflect its
// footprint on whichever host it is currently (or was most recently)
// resident on; eviction does not zero them, since the consolidator still
// needs that footprint to rank eviction victims after they have been
// removed from their origin host.
type VM struct {
	UID int

	RequestedTotalMips float64
	RequestedIops      float64

	allocatedMips float64
	allocatedIops float64

	migrating bool

	// UtilizationSamples holds a short rolling history of this VM's own
	// CPU utilization fraction (of RequestedTotalMips), most recent last.
	// Selection policies such as MaximumCorrelation read this; nothing
	// else in the core depends on it.
	UtilizationSamples []float64
}

const vmHistoryWindow = 30

// RecordUtilization appends a utilization sample, keeping only the most
// recent vmHistoryWindow entries.
func (vm *VM) RecordUtilization(fraction float64) {
	vm.UtilizationSamples = append(vm.UtilizationSamples, fraction)
	if len(vm.UtilizationSamples) > vmHistoryWindow {
		vm.UtilizationSamples = vm.UtilizationSamples[len(vm.UtilizationSamples)-vmHistoryWindow:]
	}
}

// AllocatedMips is this VM's current (or last-known, if evicted) MIPS
// footprint on its host.
func (vm *VM) AllocatedMips() float64 { return vm.allocatedMips }

// AllocatedIops is this VM's current (or last-known) IOPS footprint.
func (vm *VM) AllocatedIops() float64 { return vm.allocatedIops }

func (vm *VM) IsInMigration() bool { return vm.migrating }

func (vm *VM) SetMigrating(migrating bool) { vm.migrating = migrating }
