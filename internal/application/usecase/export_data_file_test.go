package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dreschagin/bench-history/internal/application/port"
	"github.com/dreschagin/bench-history/internal/domain/entity"
	"github.com/dreschagin/bench-history/internal/domain/service"
	"github.com/dreschagin/bench-history/internal/domain/valueobject"
	"github.com/dreschagin/bench-history/internal/infrastructure/datafile"
	"github.com/dreschagin/bench-history/pkg/logger"
)

type mockSnapshotStorage struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (m *mockSnapshotStorage) PutObject(_ context.Context, key, _ string, _ []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, key)
	if m.err != nil {
		return "", m.err
	}
	return "https://storage.example.com/" + key, nil
}

type mockSnapshotMetadataRepository struct {
	mu    sync.Mutex
	items []port.SnapshotMetadata
}

func (m *mockSnapshotMetadataRepository) Put(_ context.Context, record port.SnapshotMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, record)
	return nil
}

func (m *mockSnapshotMetadataRepository) List(_ context.Context, _ port.SnapshotListQuery) (port.SnapshotListPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return port.SnapshotListPage{Items: append([]port.SnapshotMetadata(nil), m.items...)}, nil
}

func seedRun(t *testing.T, repo *memoryRunRepository, suite, commitID string, recordedAt time.Time, value float64) *entity.RunRecord {
	t.Helper()

	commit, err := valueobject.NewCommit(commitID, "msg", recordedAt.Add(-time.Minute), "https://github.com/acme/engine/commit/"+commitID[:7])
	if err != nil {
		t.Fatalf("NewCommit() error = %v", err)
	}

	m, err := valueobject.NewMeasurement("tests/test_engine.py::test_add", value, "iter/sec")
	if err != nil {
		t.Fatalf("NewMeasurement() error = %v", err)
	}

	record, err := entity.NewRunRecord(suite, commit, valueobject.CPUInfo{}, recordedAt, []valueobject.Measurement{m})
	if err != nil {
		t.Fatalf("NewRunRecord() error = %v", err)
	}

	if err := repo.Save(context.Background(), record); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return record
}

func TestExportDataFileUseCase_Execute(t *testing.T) {
	repo := newMemoryRunRepository()

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	seedRun(t, repo, "pytest-benchmarks", "bbbbccccddddeeeeffff0000111122223333aaaa", base.Add(time.Hour), 900)
	seedRun(t, repo, "pytest-benchmarks", "aaaabbbbccccddddeeeeffff0000111122223333", base, 1000)
	seedRun(t, repo, "asv-benchmarks", "ccccddddeeeeffff0000111122223333aaaabbbb", base.Add(30*time.Minute), 50)

	uc := NewExportDataFileUseCase(repo, service.NewTrendAggregator(), nil, nil, ExportSettings{
		RepoURL: "https://github.com/acme/engine",
	}, logger.New("error"))

	result, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if result.SuiteCount != 2 || result.RunCount != 3 {
		t.Fatalf("SuiteCount = %d, RunCount = %d", result.SuiteCount, result.RunCount)
	}

	data, err := datafile.Parse(result.Body)
	if err != nil {
		t.Fatalf("rendered file failed to parse: %v", err)
	}

	if data.RepoURL != "https://github.com/acme/engine" {
		t.Fatalf("repoUrl = %q", data.RepoURL)
	}
	if data.XAxis != "id" {
		t.Fatalf("xAxis = %q, want default id", data.XAxis)
	}
	if data.LastUpdate != base.Add(time.Hour).UnixMilli() {
		t.Fatalf("lastUpdate = %d, want latest run date", data.LastUpdate)
	}

	runs := data.Entries["pytest-benchmarks"]
	if len(runs) != 2 {
		t.Fatalf("pytest-benchmarks has %d runs, want 2", len(runs))
	}
	// Прогоны внутри набора - от старых к новым
	if runs[0].Date > runs[1].Date {
		t.Fatalf("runs are not in chronological order: %d > %d", runs[0].Date, runs[1].Date)
	}
}

func TestExportDataFileUseCase_EmptyHistory(t *testing.T) {
	uc := NewExportDataFileUseCase(newMemoryRunRepository(), service.NewTrendAggregator(), nil, nil, ExportSettings{}, logger.New("error"))

	result, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.RunCount != 0 {
		t.Fatalf("RunCount = %d, want 0", result.RunCount)
	}

	data, err := datafile.Parse(result.Body)
	if err != nil {
		t.Fatalf("rendered file failed to parse: %v", err)
	}
	if data.LastUpdate == 0 {
		t.Fatalf("lastUpdate should default to current time")
	}
	if data.Entries == nil {
		t.Fatalf("entries must be an object even when empty")
	}
}

func TestExportDataFileUseCase_MaxRuns(t *testing.T) {
	repo := newMemoryRunRepository()

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	commits := []string{
		"aaaa000000000000000000000000000000000001",
		"aaaa000000000000000000000000000000000002",
		"aaaa000000000000000000000000000000000003",
	}
	for i, commitID := range commits {
		seedRun(t, repo, "pytest-benchmarks", commitID, base.Add(time.Duration(i)*time.Hour), 1000)
	}

	uc := NewExportDataFileUseCase(repo, service.NewTrendAggregator(), nil, nil, ExportSettings{MaxRuns: 2}, logger.New("error"))

	result, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	data, err := datafile.Parse(result.Body)
	if err != nil {
		t.Fatalf("rendered file failed to parse: %v", err)
	}

	runs := data.Entries["pytest-benchmarks"]
	if len(runs) != 2 {
		t.Fatalf("expected 2 newest runs, got %d", len(runs))
	}
	// Остаться должны два самых свежих прогона
	if runs[1].Commit.ID != commits[2] {
		t.Fatalf("newest run commit = %q", runs[1].Commit.ID)
	}
}

func TestExportDataFileUseCase_ExecuteWithUpload(t *testing.T) {
	repo := newMemoryRunRepository()
	seedRun(t, repo, "pytest-benchmarks", "aaaabbbbccccddddeeeeffff0000111122223333", time.Now().Add(-time.Hour), 1000)

	storage := &mockSnapshotStorage{}
	metadata := &mockSnapshotMetadataRepository{}
	uc := NewExportDataFileUseCase(repo, service.NewTrendAggregator(), storage, metadata, ExportSettings{}, logger.New("error"))

	result, err := uc.ExecuteWithUpload(context.Background())
	if err != nil {
		t.Fatalf("ExecuteWithUpload() error = %v", err)
	}

	if result.SnapshotID == "" || result.URL == "" {
		t.Fatalf("expected snapshot id and url, got %+v", result)
	}
	if len(storage.calls) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(storage.calls))
	}
	if !strings.HasPrefix(storage.calls[0], "snapshots/") || !strings.HasSuffix(storage.calls[0], "/data.js") {
		t.Fatalf("unexpected object key: %s", storage.calls[0])
	}

	if len(metadata.items) != 1 {
		t.Fatalf("expected 1 indexed snapshot, got %d", len(metadata.items))
	}
	if metadata.items[0].SnapshotID != result.SnapshotID {
		t.Fatalf("indexed snapshot id mismatch")
	}
	if metadata.items[0].RunCount != 1 {
		t.Fatalf("indexed run count = %d", metadata.items[0].RunCount)
	}
}

func TestExportDataFileUseCase_UploadWithoutStorage(t *testing.T) {
	uc := NewExportDataFileUseCase(newMemoryRunRepository(), service.NewTrendAggregator(), nil, nil, ExportSettings{}, logger.New("error"))

	if _, err := uc.ExecuteWithUpload(context.Background()); err == nil {
		t.Fatalf("ExecuteWithUpload() without storage expected error")
	}
	if _, err := uc.ListSnapshots(context.Background(), port.SnapshotListQuery{}); err == nil {
		t.Fatalf("ListSnapshots() without metadata repository expected error")
	}
}
