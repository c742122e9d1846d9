package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dreschagin/bench-history/internal/domain/service"
	"github.com/dreschagin/bench-history/internal/domain/valueobject"
	"github.com/dreschagin/bench-history/pkg/logger"
)

func TestGetTrendUseCase_Execute(t *testing.T) {
	repo := newMemoryRunRepository()

	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	values := []float64{100, 200, 300, 400}
	for i, v := range values {
		commitID := fmt.Sprintf("aaaa00000000000000000000000000000000%04d", i)
		seedRun(t, repo, "pytest-benchmarks", commitID, base.Add(time.Duration(i)*time.Hour), v)
	}

	uc := NewGetTrendUseCase(repo, service.NewTrendAggregator(), nil, logger.New("error"))

	timeRange, err := valueobject.NewTimeRange(base.Add(-time.Hour), base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("NewTimeRange() error = %v", err)
	}

	trend, err := uc.Execute(context.Background(), "pytest-benchmarks", "tests/test_engine.py::test_add", timeRange)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(trend.Points) != 4 {
		t.Fatalf("got %d points, want 4", len(trend.Points))
	}
	if trend.Average != 250 || trend.Min != 100 || trend.Max != 400 {
		t.Fatalf("aggregates = avg %v, min %v, max %v", trend.Average, trend.Min, trend.Max)
	}

	// Точки упорядочены от старых к новым
	for i := 1; i < len(trend.Points); i++ {
		if trend.Points[i].RecordedAt.Before(trend.Points[i-1].RecordedAt) {
			t.Fatalf("points are not in ascending order")
		}
	}
}

func TestGetTrendUseCase_EmptySeries(t *testing.T) {
	uc := NewGetTrendUseCase(newMemoryRunRepository(), service.NewTrendAggregator(), nil, logger.New("error"))

	timeRange, err := valueobject.NewTimeRangeFromDuration(24 * time.Hour)
	if err != nil {
		t.Fatalf("NewTimeRangeFromDuration() error = %v", err)
	}

	trend, err := uc.Execute(context.Background(), "pytest-benchmarks", "unknown_test", timeRange)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(trend.Points) != 0 {
		t.Fatalf("expected empty points, got %d", len(trend.Points))
	}
	if trend.Suite != "pytest-benchmarks" || trend.TestName != "unknown_test" {
		t.Fatalf("trend identity = %q / %q", trend.Suite, trend.TestName)
	}
}

func TestGetTrendUseCase_RequiredParameters(t *testing.T) {
	uc := NewGetTrendUseCase(newMemoryRunRepository(), service.NewTrendAggregator(), nil, logger.New("error"))

	timeRange, _ := valueobject.NewTimeRangeFromDuration(time.Hour)

	if _, err := uc.Execute(context.Background(), "", "test", timeRange); err == nil {
		t.Fatalf("Execute() accepted empty suite")
	}
	if _, err := uc.Execute(context.Background(), "suite", "", timeRange); err == nil {
		t.Fatalf("Execute() accepted empty test name")
	}
}
