package fleet

import "testing"

func TestViewSwitchedOffHosts(t *testing.T) {
	idle := NewHost(1, 1000, 100, nil)
	busy := NewHost(2, 1000, 100, nil)
	busy.VMCreate(&VM{UID: 1, RequestedTotalMips: 100, RequestedIops: 10})

	view := NewView([]*Host{idle, busy})
	off := view.SwitchedOffHosts()
	if len(off) != 1 || off[0] != idle {
		t.Fatalf("expected only the idle host to be switched off, got %v", off)
	}
}

func TestViewMaxUtilizationAfterAllocation(t *testing.T) {
	h := NewHost(1, 1000, 100, nil)
	h.VMCreate(&VM{UID: 1, RequestedTotalMips: 200, RequestedIops: 10})

	view := NewView([]*Host{h})
	candidate := &VM{UID: 2, RequestedTotalMips: 300, RequestedIops: 10}
	got := view.MaxUtilizationAfterAllocation(h, candidate)
	want := (200.0 + 300.0) / 1000.0
	if got != want {
		t.Fatalf("got %f, want %f", got, want)
	}
}

func TestViewUtilizationFractionZeroCapacity(t *testing.T) {
	h := NewHost(1, 0, 0, nil)
	view := NewView([]*Host{h})
	if view.UtilizationFractionCpu(h) != 0 {
		t.Fatalf("expected zero-capacity host to report zero utilization fraction")
	}
}
