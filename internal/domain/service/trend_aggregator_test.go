package service

import (
	"testing"
	"time"

	"github.com/dreschagin/bench-history/internal/domain/repository"
)

func buildSeries(values ...float64) []repository.SeriesPoint {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	points := make([]repository.SeriesPoint, 0, len(values))
	for i, v := range values {
		points = append(points, repository.SeriesPoint{
			RecordedAt: base.Add(time.Duration(i) * time.Hour),
			CommitID:   "commit",
			Value:      v,
			Unit:       "iter/sec",
		})
	}
	return points
}

func TestTrendAggregator_Calculations(t *testing.T) {
	aggregator := NewTrendAggregator()
	points := buildSeries(100, 200, 300, 400)

	avg, err := aggregator.CalculateAverage(points)
	if err != nil || avg != 250 {
		t.Fatalf("CalculateAverage() = %v, %v; want 250", avg, err)
	}

	min, err := aggregator.CalculateMin(points)
	if err != nil || min != 100 {
		t.Fatalf("CalculateMin() = %v, %v; want 100", min, err)
	}

	max, err := aggregator.CalculateMax(points)
	if err != nil || max != 400 {
		t.Fatalf("CalculateMax() = %v, %v; want 400", max, err)
	}
}

func TestTrendAggregator_EmptySeries(t *testing.T) {
	aggregator := NewTrendAggregator()

	if _, err := aggregator.CalculateAverage(nil); err == nil {
		t.Fatalf("CalculateAverage(nil) expected error")
	}
	if _, err := aggregator.CalculateMin(nil); err == nil {
		t.Fatalf("CalculateMin(nil) expected error")
	}
	if _, err := aggregator.CalculatePercentile(nil, 95); err == nil {
		t.Fatalf("CalculatePercentile(nil) expected error")
	}
}

func TestTrendAggregator_Percentile(t *testing.T) {
	aggregator := NewTrendAggregator()
	points := buildSeries(50, 10, 40, 20, 30)

	p50, err := aggregator.CalculatePercentile(points, 50)
	if err != nil || p50 != 30 {
		t.Fatalf("CalculatePercentile(50) = %v, %v; want 30", p50, err)
	}

	p100, err := aggregator.CalculatePercentile(points, 100)
	if err != nil || p100 != 50 {
		t.Fatalf("CalculatePercentile(100) = %v, %v; want 50", p100, err)
	}

	if _, err := aggregator.CalculatePercentile(points, 101); err == nil {
		t.Fatalf("CalculatePercentile(101) expected error")
	}
}

func TestTrendAggregator_SortSeriesByTime(t *testing.T) {
	aggregator := NewTrendAggregator()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	points := []repository.SeriesPoint{
		{RecordedAt: base.Add(2 * time.Hour), Value: 3},
		{RecordedAt: base, Value: 1},
		{RecordedAt: base.Add(time.Hour), Value: 2},
	}

	ascending := aggregator.SortSeriesByTime(points, false)
	if ascending[0].Value != 1 || ascending[2].Value != 3 {
		t.Fatalf("ascending sort = %v", ascending)
	}

	descending := aggregator.SortSeriesByTime(points, true)
	if descending[0].Value != 3 || descending[2].Value != 1 {
		t.Fatalf("descending sort = %v", descending)
	}

	// Исходный срез не должен меняться
	if points[0].Value != 3 {
		t.Fatalf("SortSeriesByTime mutated the input slice")
	}
}
