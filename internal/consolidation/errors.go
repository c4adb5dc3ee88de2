package consolidation

import "errors"

// ErrConfigInvalid is returned when wMips and wIops do not sum to 1.0.
// CloudSim's original constructor calls System.exit(0) on this condition;
// this module returns a typed error instead and leaves the decision of
// whether to panic to the process entrypoint.
var ErrConfigInvalid = errors.New("consolidation: wMips and wIops must sum to 1.0")

// ErrRestoreFailed is returned when restoreAllocation cannot replay a saved
// (host, vm) pair after a pass completes. CloudSim's original treats this as
// unrecoverable and exits the process; this module surfaces it as an error
// so the caller decides.
var ErrRestoreFailed = errors.New("consolidation: failed to restore saved allocation")
