package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dreschagin/bench-history/internal/domain/service"
)

func TestGetRunHistoryUseCase_Execute(t *testing.T) {
	repo := newMemoryRunRepository()

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		commitID := fmt.Sprintf("aaaa00000000000000000000000000000000%04d", i)
		seedRun(t, repo, "pytest-benchmarks", commitID, base.Add(time.Duration(i)*time.Hour), 1000)
	}

	uc := NewGetRunHistoryUseCase(repo, service.NewTrendAggregator())

	runs, err := uc.Execute(context.Background(), GetRunHistoryQuery{Suite: "pytest-benchmarks"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(runs) != 5 {
		t.Fatalf("got %d runs, want 5", len(runs))
	}
	// Результат упорядочен от старых к новым
	for i := 1; i < len(runs); i++ {
		if runs[i].RecordedAt.Before(runs[i-1].RecordedAt) {
			t.Fatalf("runs are not in ascending order")
		}
	}
}

func TestGetRunHistoryUseCase_SuiteRequired(t *testing.T) {
	uc := NewGetRunHistoryUseCase(newMemoryRunRepository(), service.NewTrendAggregator())

	if _, err := uc.Execute(context.Background(), GetRunHistoryQuery{}); err == nil {
		t.Fatalf("Execute() accepted empty suite")
	}
}

func TestGetRunHistoryUseCase_TimeRange(t *testing.T) {
	repo := newMemoryRunRepository()

	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		commitID := fmt.Sprintf("aaaa00000000000000000000000000000000%04d", i)
		seedRun(t, repo, "pytest-benchmarks", commitID, base.Add(time.Duration(i)*time.Hour), 1000)
	}

	uc := NewGetRunHistoryUseCase(repo, service.NewTrendAggregator())

	runs, err := uc.Execute(context.Background(), GetRunHistoryQuery{
		Suite: "pytest-benchmarks",
		From:  base.Add(2 * time.Hour),
		To:    base.Add(5 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(runs) != 4 {
		t.Fatalf("got %d runs in range, want 4", len(runs))
	}

	// Лимит отсекает старые прогоны, сохраняя самые свежие
	limited, err := uc.Execute(context.Background(), GetRunHistoryQuery{
		Suite: "pytest-benchmarks",
		From:  base,
		To:    base.Add(9 * time.Hour),
		Limit: 3,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(limited) != 3 {
		t.Fatalf("got %d limited runs, want 3", len(limited))
	}
	if !limited[2].RecordedAt.Equal(base.Add(9 * time.Hour)) {
		t.Fatalf("limit should keep the newest runs, got last at %v", limited[2].RecordedAt)
	}

	// Инвертированный диапазон - ошибка
	if _, err := uc.Execute(context.Background(), GetRunHistoryQuery{
		Suite: "pytest-benchmarks",
		From:  base.Add(5 * time.Hour),
		To:    base,
	}); err == nil {
		t.Fatalf("Execute() accepted inverted time range")
	}
}

func TestGetLatestRunsUseCase(t *testing.T) {
	repo := newMemoryRunRepository()

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seedRun(t, repo, "pytest-benchmarks", "aaaa000000000000000000000000000000000001", base, 1000)
	latest := seedRun(t, repo, "pytest-benchmarks", "aaaa000000000000000000000000000000000002", base.Add(time.Hour), 900)
	seedRun(t, repo, "asv-benchmarks", "bbbb000000000000000000000000000000000001", base, 50)

	uc := NewGetLatestRunsUseCase(repo)

	all, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d suites, want 2", len(all))
	}
	if all["pytest-benchmarks"].Commit.ID != latest.Commit().ID() {
		t.Fatalf("latest run commit = %q", all["pytest-benchmarks"].Commit.ID)
	}

	one, err := uc.ExecuteForSuite(context.Background(), "pytest-benchmarks")
	if err != nil {
		t.Fatalf("ExecuteForSuite() error = %v", err)
	}
	if one.ID != latest.ID() {
		t.Fatalf("ExecuteForSuite() returned run %q, want %q", one.ID, latest.ID())
	}

	suites, err := uc.Suites(context.Background())
	if err != nil {
		t.Fatalf("Suites() error = %v", err)
	}
	if len(suites) != 2 || suites[0] != "asv-benchmarks" {
		t.Fatalf("Suites() = %v", suites)
	}
}
