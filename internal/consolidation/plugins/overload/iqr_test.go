package overload

import "testing"

func TestIQRFallsBackWithInsufficientHistory(t *testing.T) {
	q := IQR{SafetyParameter: 1, MinHistorySamples: 5, FallbackThreshold: 0.75}
	if q.IsOverUtilized(0.74, []float64{0.1, 0.2}) {
		t.Fatalf("expected fallback threshold of 0.75 to apply with too little history")
	}
	if !q.IsOverUtilized(0.75, []float64{0.1, 0.2}) {
		t.Fatalf("expected fallback threshold of 0.75 to trip at 0.75")
	}
}

func TestIQRAdaptiveThreshold(t *testing.T) {
	q := IQR{SafetyParameter: 1, MinHistorySamples: 3, FallbackThreshold: 0.8}
	// history [1..8]: IQR is 4, so threshold = 1 - 1*4 = -3, always tripped.
	if !q.IsOverUtilized(0, []float64{8, 7, 6, 5, 4, 3, 2, 1}) {
		t.Fatalf("expected deeply negative threshold to always trip")
	}
}
