// Package metrics provides custom Prometheus metrics for the eyedrop checker.
package metrics

// Status label values shared by the collectors.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Histogram bucket parameters.
const (
	BucketStart1ms = 0.001
	BucketFactor2  = 2
	BucketCount10  = 10
)

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
