package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dreschagin/bench-history/pkg/logger"
)

func TestTrimHistoryUseCase_Execute(t *testing.T) {
	repo := newMemoryRunRepository()

	now := time.Now()

	// Два протухших прогона старше недели
	seedRun(t, repo, "pytest-benchmarks", "aaaa000000000000000000000000000000000001", now.Add(-10*24*time.Hour), 1000)
	seedRun(t, repo, "pytest-benchmarks", "aaaa000000000000000000000000000000000002", now.Add(-9*24*time.Hour), 1000)

	// Пять свежих, из которых должно остаться три
	for i := 0; i < 5; i++ {
		commitID := fmt.Sprintf("bbbb00000000000000000000000000000000%04d", i)
		seedRun(t, repo, "pytest-benchmarks", commitID, now.Add(-time.Duration(5-i)*time.Hour), 1000)
	}

	uc := NewTrimHistoryUseCase(repo, TrimSettings{
		MaxRunsPerSuite: 3,
		MaxAge:          7 * 24 * time.Hour,
	}, logger.New("error"))

	report, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if report.ExpiredDeleted != 2 {
		t.Fatalf("ExpiredDeleted = %d, want 2", report.ExpiredDeleted)
	}
	if report.TrimmedDeleted != 2 {
		t.Fatalf("TrimmedDeleted = %d, want 2", report.TrimmedDeleted)
	}

	count, _ := repo.Count(context.Background(), "pytest-benchmarks")
	if count != 3 {
		t.Fatalf("remaining runs = %d, want 3", count)
	}

	// Остались самые свежие прогоны
	runs, _ := repo.FindBySuite(context.Background(), "pytest-benchmarks", 0)
	for _, run := range runs {
		if run.RecordedAt().Before(now.Add(-4 * time.Hour)) {
			t.Fatalf("stale run survived trim: %v", run.RecordedAt())
		}
	}
}

func TestTrimHistoryUseCase_DisabledSettings(t *testing.T) {
	repo := newMemoryRunRepository()
	seedRun(t, repo, "pytest-benchmarks", "aaaa000000000000000000000000000000000001", time.Now().Add(-100*24*time.Hour), 1000)

	uc := NewTrimHistoryUseCase(repo, TrimSettings{}, logger.New("error"))

	report, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if report.ExpiredDeleted != 0 || report.TrimmedDeleted != 0 {
		t.Fatalf("nothing should be deleted with zero settings: %+v", report)
	}

	count, _ := repo.Count(context.Background(), "pytest-benchmarks")
	if count != 1 {
		t.Fatalf("run was deleted with retention disabled")
	}
}
