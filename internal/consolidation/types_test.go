package consolidation

import "testing"

func TestNewWeightsRejectsNonUnitSum(t *testing.T) {
	if _, err := NewWeights(0.6, 0.6); err == nil {
		t.Fatalf("expected error when weights do not sum to 1.0")
	}
	if _, err := NewWeights(0.7, 0.3); err != nil {
		t.Fatalf("unexpected error for valid weights: %v", err)
	}
}

func TestWeightsPrefersCPU(t *testing.T) {
	w, _ := NewWeights(0.7, 0.3)
	if !w.PrefersCPU() {
		t.Fatalf("expected wMips=0.7 > wIops=0.3 to prefer CPU")
	}
	w, _ = NewWeights(0.3, 0.7)
	if w.PrefersCPU() {
		t.Fatalf("expected wMips=0.3 < wIops=0.7 to not prefer CPU")
	}
}
