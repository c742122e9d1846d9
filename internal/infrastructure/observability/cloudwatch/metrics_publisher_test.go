package cloudwatch

import (
	"testing"
	"time"

	"github.com/dreschagin/bench-history/internal/application/port"
)

func TestMapUnit(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected string
	}{
		{"percentage", "%", "Percent"},
		{"milliseconds", "ms", "Milliseconds"},
		{"microseconds", "us", "Microseconds"},
		{"seconds", "s", "Seconds"},
		{"count", "count", "Count"},
		{"iterations per second", "iter/sec", "Count/Second"},
		{"unknown", "custom", "None"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := mapUnit(tt.unit)
			if string(result) != tt.expected {
				t.Errorf("mapUnit(%q) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestConvertToDatum(t *testing.T) {
	// Create test publisher (minimal config)
	p := &MetricsPublisher{
		namespace: "Test/Namespace",
		defaultDimensions: map[string]string{
			"Environment": "test",
			"Region":      "us-east-1",
		},
		storageResolution: 60,
	}

	timestamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	metric := port.ServiceMetric{
		Name:      "RunsIngested",
		Value:     3,
		Unit:      "count",
		Timestamp: timestamp,
		Dimensions: map[string]string{
			"Suite": "pytest-benchmarks",
		},
	}

	// Convert to CloudWatch datum
	datum := p.convertToDatum(metric)

	// Verify fields
	if datum.MetricName == nil || *datum.MetricName != "RunsIngested" {
		t.Errorf("Expected MetricName=RunsIngested, got %v", datum.MetricName)
	}

	if datum.Value == nil || *datum.Value != 3 {
		t.Errorf("Expected Value=3, got %v", datum.Value)
	}

	if datum.Unit != "Count" {
		t.Errorf("Expected Unit=Count, got %v", datum.Unit)
	}

	if datum.Timestamp == nil || !datum.Timestamp.Equal(timestamp) {
		t.Errorf("Expected Timestamp=%v, got %v", timestamp, datum.Timestamp)
	}

	if datum.StorageResolution == nil || *datum.StorageResolution != 60 {
		t.Errorf("Expected StorageResolution=60, got %v", datum.StorageResolution)
	}

	// Verify dimensions
	expectedDimensions := map[string]string{
		"Environment": "test",
		"Region":      "us-east-1",
		"Suite":       "pytest-benchmarks",
	}

	if len(datum.Dimensions) != len(expectedDimensions) {
		t.Errorf("Expected %d dimensions, got %d", len(expectedDimensions), len(datum.Dimensions))
	}

	for _, dim := range datum.Dimensions {
		if dim.Name == nil || dim.Value == nil {
			t.Error("Dimension name or value is nil")
			continue
		}

		expectedValue, ok := expectedDimensions[*dim.Name]
		if !ok {
			t.Errorf("Unexpected dimension: %s", *dim.Name)
			continue
		}

		if *dim.Value != expectedValue {
			t.Errorf("Dimension %s: expected %s, got %s", *dim.Name, expectedValue, *dim.Value)
		}
	}
}

func TestConvertToDatumDefaultsTimestamp(t *testing.T) {
	p := &MetricsPublisher{namespace: "Test/Namespace"}

	datum := p.convertToDatum(port.ServiceMetric{
		Name:  "MeasurementsIngested",
		Value: 12,
		Unit:  "count",
	})

	if datum.Timestamp == nil {
		t.Fatal("Expected Timestamp to be set")
	}
	if time.Since(*datum.Timestamp) > time.Minute {
		t.Errorf("Expected Timestamp to default to now, got %v", datum.Timestamp)
	}
}
