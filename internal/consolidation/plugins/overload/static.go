// Package overload provides OverloadDetector predicate implementations:
// fixed-threshold, and the two classic CloudSim adaptive thresholds (median
// absolute deviation and interquartile range).
package overload

// Static flags a host as over-utilized whenever its utilization reaches or
// exceeds a fixed fraction of capacity. It ignores history entirely.
type Static struct {
	Threshold float64
}

func (s Static) IsOverUtilized(utilization float64, _ []float64) bool {
	return utilization >= s.Threshold
}
