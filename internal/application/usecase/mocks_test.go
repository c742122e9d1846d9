package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dreschagin/bench-history/internal/application/dto"
	"github.com/dreschagin/bench-history/internal/application/port"
	"github.com/dreschagin/bench-history/internal/domain/entity"
	"github.com/dreschagin/bench-history/internal/domain/repository"
	"github.com/dreschagin/bench-history/internal/domain/valueobject"
)

// memoryRunRepository - in-memory реализация RunRepository для тестов use case'ов
type memoryRunRepository struct {
	mu   sync.Mutex
	runs []*entity.RunRecord

	saveErr error
}

func newMemoryRunRepository() *memoryRunRepository {
	return &memoryRunRepository{}
}

func (r *memoryRunRepository) Save(_ context.Context, record *entity.RunRecord) error {
	if r.saveErr != nil {
		return r.saveErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, record)
	return nil
}

func (r *memoryRunRepository) SaveBatch(ctx context.Context, records []*entity.RunRecord) error {
	for _, record := range records {
		if err := r.Save(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (r *memoryRunRepository) FindByID(_ context.Context, id string) (*entity.RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, run := range r.runs {
		if run.ID() == id {
			return run, nil
		}
	}
	return nil, fmt.Errorf("run %s not found", id)
}

func (r *memoryRunRepository) FindBySuite(_ context.Context, suite string, limit int) ([]*entity.RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := r.suiteRunsLocked(suite)
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].RecordedAt().After(matched[j].RecordedAt())
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *memoryRunRepository) FindByTimeRange(_ context.Context, suite string, timeRange valueobject.TimeRange) ([]*entity.RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*entity.RunRecord
	for _, run := range r.suiteRunsLocked(suite) {
		if timeRange.Contains(run.RecordedAt()) {
			matched = append(matched, run)
		}
	}
	return matched, nil
}

func (r *memoryRunRepository) FindLatest(_ context.Context) (map[string]*entity.RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	latest := make(map[string]*entity.RunRecord)
	for _, run := range r.runs {
		current, ok := latest[run.Suite()]
		if !ok || run.RecordedAt().After(current.RecordedAt()) {
			latest[run.Suite()] = run
		}
	}
	return latest, nil
}

func (r *memoryRunRepository) FindLatestBySuite(ctx context.Context, suite string) (*entity.RunRecord, error) {
	latest, err := r.FindLatest(ctx)
	if err != nil {
		return nil, err
	}

	run, ok := latest[suite]
	if !ok {
		return nil, fmt.Errorf("suite %s has no runs", suite)
	}
	return run, nil
}

func (r *memoryRunRepository) FindPrevious(_ context.Context, suite string, before time.Time) (*entity.RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var previous *entity.RunRecord
	for _, run := range r.suiteRunsLocked(suite) {
		if !run.RecordedAt().Before(before) {
			continue
		}
		if previous == nil || run.RecordedAt().After(previous.RecordedAt()) {
			previous = run
		}
	}
	return previous, nil
}

func (r *memoryRunRepository) FindMeasurementSeries(_ context.Context, suite, testName string, timeRange valueobject.TimeRange) ([]repository.SeriesPoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var series []repository.SeriesPoint
	for _, run := range r.suiteRunsLocked(suite) {
		if !timeRange.Contains(run.RecordedAt()) {
			continue
		}
		m, ok := run.Find(testName)
		if !ok {
			continue
		}
		series = append(series, repository.SeriesPoint{
			RecordedAt: run.RecordedAt(),
			CommitID:   run.Commit().ID(),
			Value:      m.Value(),
			Unit:       m.Unit(),
			Range:      m.Range(),
		})
	}

	sort.Slice(series, func(i, j int) bool {
		return series[i].RecordedAt.Before(series[j].RecordedAt)
	})
	return series, nil
}

func (r *memoryRunRepository) ExistsByCommit(_ context.Context, suite, commitID string, recordedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, run := range r.suiteRunsLocked(suite) {
		if run.Commit().ID() == commitID && run.RecordedAt().Equal(recordedAt) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRunRepository) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kept []*entity.RunRecord
	var deleted int64
	for _, run := range r.runs {
		if run.RecordedAt().Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, run)
	}
	r.runs = kept
	return deleted, nil
}

func (r *memoryRunRepository) TrimSuite(_ context.Context, suite string, maxRuns int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := r.suiteRunsLocked(suite)
	if len(matched) <= maxRuns {
		return 0, nil
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].RecordedAt().After(matched[j].RecordedAt())
	})

	drop := make(map[string]struct{})
	for _, run := range matched[maxRuns:] {
		drop[run.ID()] = struct{}{}
	}

	var kept []*entity.RunRecord
	for _, run := range r.runs {
		if _, ok := drop[run.ID()]; ok {
			continue
		}
		kept = append(kept, run)
	}
	r.runs = kept
	return int64(len(drop)), nil
}

func (r *memoryRunRepository) Count(_ context.Context, suite string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.suiteRunsLocked(suite))), nil
}

func (r *memoryRunRepository) Suites(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{})
	var suites []string
	for _, run := range r.runs {
		if _, ok := seen[run.Suite()]; ok {
			continue
		}
		seen[run.Suite()] = struct{}{}
		suites = append(suites, run.Suite())
	}

	sort.Strings(suites)
	return suites, nil
}

func (r *memoryRunRepository) suiteRunsLocked(suite string) []*entity.RunRecord {
	var matched []*entity.RunRecord
	for _, run := range r.runs {
		if run.Suite() == suite {
			matched = append(matched, run)
		}
	}
	return matched
}

// mockNotifier записывает рассылки WebSocket hub'а
type mockNotifier struct {
	mu        sync.Mutex
	snapshots []*dto.RunSnapshotDTO
	alerts    []*dto.RegressionAlertDTO
}

func (m *mockNotifier) Broadcast(snapshot *dto.RunSnapshotDTO) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, snapshot)
}

func (m *mockNotifier) BroadcastAlert(alert *dto.RegressionAlertDTO) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, alert)
}

func (m *mockNotifier) ClientCount() int {
	return 0
}

// mockEventPublisher записывает опубликованные события по subject'ам
type mockEventPublisher struct {
	mu     sync.Mutex
	events map[string][]interface{}
}

func newMockEventPublisher() *mockEventPublisher {
	return &mockEventPublisher{events: make(map[string][]interface{})}
}

func (m *mockEventPublisher) PublishEvent(_ context.Context, subject string, event interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[subject] = append(m.events[subject], event)
	return nil
}

func (m *mockEventPublisher) Close() error {
	return nil
}

func (m *mockEventPublisher) count(subject string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events[subject])
}

// mockMetricsPublisher записывает опубликованные метрики
type mockMetricsPublisher struct {
	mu      sync.Mutex
	batches [][]port.ServiceMetric
}

func (m *mockMetricsPublisher) PublishBatch(_ context.Context, metrics []port.ServiceMetric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, metrics)
	return nil
}

func (m *mockMetricsPublisher) PublishSingle(ctx context.Context, metric port.ServiceMetric) error {
	return m.PublishBatch(ctx, []port.ServiceMetric{metric})
}

func (m *mockMetricsPublisher) Flush(_ context.Context) error {
	return nil
}
