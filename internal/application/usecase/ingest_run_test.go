package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dreschagin/bench-history/internal/domain/service"
	"github.com/dreschagin/bench-history/pkg/logger"
)

func buildIngestCommand(suite string, commitID string, recordedAt time.Time, value float64) IngestRunCommand {
	return IngestRunCommand{
		Suite: suite,
		Commit: CommitInput{
			ID:        commitID,
			Message:   "commit " + commitID[:7],
			Timestamp: recordedAt.Add(-time.Minute),
			URL:       "https://github.com/acme/engine/commit/" + commitID[:7],
		},
		CPU: CPUInput{
			Model:         "Intel(R) Xeon(R) CPU @ 2.20GHz",
			SpeedMHz:      2200,
			PhysicalCores: 1,
			LogicalCores:  2,
		},
		Extra:      map[string]string{"os": "linux"},
		RecordedAt: recordedAt,
		Benches: []MeasurementInput{
			{Name: "tests/test_engine.py::test_add", Value: value, Unit: "iter/sec", Range: "stddev: 1.2"},
		},
	}
}

func newIngestUseCase(repo *memoryRunRepository, notifier *mockNotifier, events *mockEventPublisher, metrics *mockMetricsPublisher) *IngestRunUseCase {
	uc := NewIngestRunUseCase(
		repo,
		service.NewRunValidator(),
		service.NewRegressionDetector(1.5, 2.0),
		notifier,
		nil,
		nil,
		nil,
		logger.New("error"),
	)

	// Типизированный nil в interface-поле ломает проверки uc.events == nil,
	// поэтому опциональные зависимости подставляются только когда заданы.
	if events != nil {
		uc.events = events
	}
	if metrics != nil {
		uc.metrics = metrics
	}
	return uc
}

func TestIngestRunUseCase_Success(t *testing.T) {
	repo := newMemoryRunRepository()
	notifier := &mockNotifier{}
	uc := newIngestUseCase(repo, notifier, nil, nil)

	recordedAt := time.Now().Add(-time.Hour)
	result, err := uc.Execute(context.Background(), buildIngestCommand("pytest-benchmarks", "aaaabbbbccccddddeeeeffff0000111122223333", recordedAt, 1000))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if result.RunID == "" {
		t.Fatalf("expected run id in result")
	}
	if len(result.Regressions) != 0 {
		t.Fatalf("first run produced %d regressions, want 0", len(result.Regressions))
	}

	count, _ := repo.Count(context.Background(), "pytest-benchmarks")
	if count != 1 {
		t.Fatalf("repository holds %d runs, want 1", count)
	}

	if len(notifier.snapshots) != 1 {
		t.Fatalf("expected 1 broadcast snapshot, got %d", len(notifier.snapshots))
	}
	if notifier.snapshots[0].Summary.OverallStatus != "healthy" {
		t.Fatalf("OverallStatus = %q, want healthy", notifier.snapshots[0].Summary.OverallStatus)
	}
}

func TestIngestRunUseCase_Duplicate(t *testing.T) {
	repo := newMemoryRunRepository()
	uc := newIngestUseCase(repo, &mockNotifier{}, nil, nil)

	cmd := buildIngestCommand("pytest-benchmarks", "aaaabbbbccccddddeeeeffff0000111122223333", time.Now().Add(-time.Hour), 1000)

	if _, err := uc.Execute(context.Background(), cmd); err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}

	_, err := uc.Execute(context.Background(), cmd)
	if !errors.Is(err, ErrDuplicateRun) {
		t.Fatalf("second Execute() error = %v, want ErrDuplicateRun", err)
	}

	count, _ := repo.Count(context.Background(), "pytest-benchmarks")
	if count != 1 {
		t.Fatalf("repository holds %d runs after duplicate, want 1", count)
	}
}

func TestIngestRunUseCase_RegressionAlerts(t *testing.T) {
	repo := newMemoryRunRepository()
	notifier := &mockNotifier{}
	events := newMockEventPublisher()
	metrics := &mockMetricsPublisher{}
	uc := newIngestUseCase(repo, notifier, events, metrics)

	base := time.Now().Add(-2 * time.Hour)
	if _, err := uc.Execute(context.Background(), buildIngestCommand("pytest-benchmarks", "aaaabbbbccccddddeeeeffff0000111122223333", base, 1000)); err != nil {
		t.Fatalf("baseline Execute() error = %v", err)
	}

	// Скорость упала в 2.5 раза - critical
	result, err := uc.Execute(context.Background(), buildIngestCommand("pytest-benchmarks", "bbbbccccddddeeeeffff0000111122223333aaaa", base.Add(time.Hour), 400))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(result.Regressions) != 1 {
		t.Fatalf("expected 1 regression, got %d", len(result.Regressions))
	}
	alert := result.Regressions[0]
	if alert.Level != "critical" {
		t.Fatalf("alert level = %q, want critical", alert.Level)
	}
	if alert.Details.TestName != "tests/test_engine.py::test_add" {
		t.Fatalf("alert test = %q", alert.Details.TestName)
	}

	if len(notifier.alerts) != 1 {
		t.Fatalf("expected 1 broadcast alert, got %d", len(notifier.alerts))
	}
	if notifier.snapshots[1].Summary.OverallStatus != "critical" {
		t.Fatalf("snapshot status = %q, want critical", notifier.snapshots[1].Summary.OverallStatus)
	}

	if events.count(SubjectRunIngested) != 2 {
		t.Fatalf("ingested events = %d, want 2", events.count(SubjectRunIngested))
	}
	if events.count(SubjectRunRegression) != 1 {
		t.Fatalf("regression events = %d, want 1", events.count(SubjectRunRegression))
	}

	metrics.mu.Lock()
	batches := len(metrics.batches)
	metrics.mu.Unlock()
	if batches != 2 {
		t.Fatalf("metric batches = %d, want 2", batches)
	}
}

func TestIngestRunUseCase_ValidationFailure(t *testing.T) {
	repo := newMemoryRunRepository()
	uc := newIngestUseCase(repo, &mockNotifier{}, nil, nil)

	cmd := buildIngestCommand("pytest-benchmarks", "aaaabbbbccccddddeeeeffff0000111122223333", time.Now().Add(24*time.Hour), 1000)

	if _, err := uc.Execute(context.Background(), cmd); err == nil {
		t.Fatalf("Execute() accepted future recorded_at")
	}

	count, _ := repo.Count(context.Background(), "pytest-benchmarks")
	if count != 0 {
		t.Fatalf("repository holds %d runs after rejected ingest, want 0", count)
	}
}

func TestIngestRunUseCase_InvalidMeasurement(t *testing.T) {
	uc := newIngestUseCase(newMemoryRunRepository(), &mockNotifier{}, nil, nil)

	cmd := buildIngestCommand("pytest-benchmarks", "aaaabbbbccccddddeeeeffff0000111122223333", time.Now().Add(-time.Hour), 1000)
	cmd.Benches = append(cmd.Benches, MeasurementInput{Name: "", Value: 1, Unit: "iter/sec"})

	if _, err := uc.Execute(context.Background(), cmd); err == nil {
		t.Fatalf("Execute() accepted measurement with empty name")
	}
}
