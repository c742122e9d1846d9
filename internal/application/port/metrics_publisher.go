package port

import (
	"context"
	"time"
)

// ServiceMetric represents an operational metric of the service itself
// (ingested runs, detected regressions), not a benchmark measurement.
type ServiceMetric struct {
	Name       string
	Value      float64
	Unit       string
	Timestamp  time.Time
	Dimensions map[string]string
}

// MetricsPublisher defines the interface for publishing service metrics to external
// observability platforms. This port allows the application layer to publish metrics
// without coupling to specific implementations.
type MetricsPublisher interface {
	// PublishBatch publishes multiple metrics in a single operation.
	// Implementations should handle batching constraints (e.g., CloudWatch's 1000 metrics/request limit).
	PublishBatch(ctx context.Context, metrics []ServiceMetric) error

	// PublishSingle publishes a single metric immediately.
	// Use this for high-priority metrics that need immediate delivery.
	PublishSingle(ctx context.Context, metric ServiceMetric) error

	// Flush forces immediate publication of any buffered metrics.
	// Should be called during graceful shutdown to prevent data loss.
	Flush(ctx context.Context) error
}
