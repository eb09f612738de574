package metrics_collectors

import "context"

// MetricCollector defines the interface for collecting a single host metric.
type MetricCollector interface {
	Name() string                                 // Name of the metric (e.g., "cpu", "memory")
	Collect(ctx context.Context) (float64, error) // Collect the metric value
	Unit() string                                 // Unit of the metric (e.g., "percent")
	Description() string                          // Description of the metric
}
