package dto

import (
	"fmt"
	"time"

	"github.com/dreschagin/bench-history/internal/domain/entity"
	"github.com/dreschagin/bench-history/internal/domain/valueobject"
)

// BenchmarkDataDTO - корневой объект data-файла дашборда.
// JSON-теги повторяют схему файла, присваиваемого window.BENCHMARK_DATA.
type BenchmarkDataDTO struct {
	LastUpdate     int64                        `json:"lastUpdate"`
	RepoURL        string                       `json:"repoUrl"`
	XAxis          string                       `json:"xAxis"`
	OneChartGroups []string                     `json:"oneChartGroups"`
	Entries        map[string][]BenchmarkRunDTO `json:"entries"`
}

// BenchmarkRunDTO - один прогон внутри `entries`; порядок в слайсе хронологический.
type BenchmarkRunDTO struct {
	CPU     BenchmarkCPUDTO           `json:"cpu"`
	Extra   map[string]string         `json:"extra,omitempty"`
	Commit  BenchmarkCommitDTO        `json:"commit"`
	Date    int64                     `json:"date"`
	Benches []BenchmarkMeasurementDTO `json:"benches"`
}

// BenchmarkCPUDTO - дескриптор процессора внутри run record.
type BenchmarkCPUDTO struct {
	Model         string  `json:"model,omitempty"`
	Speed         float64 `json:"speed"`
	PhysicalCores int     `json:"physicalCores"`
	LogicalCores  int     `json:"logicalCores"`
}

// BenchmarkCommitDTO - метаданные коммита внутри run record.
type BenchmarkCommitDTO struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
	Author    string `json:"author,omitempty"`
	Committer string `json:"committer,omitempty"`
}

// BenchmarkMeasurementDTO - одно измерение внутри `benches`.
type BenchmarkMeasurementDTO struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Range string  `json:"range,omitempty"`
	Group string  `json:"group,omitempty"`
	Extra string  `json:"extra,omitempty"`
}

// BenchmarkRunFromEntity конвертирует Domain Entity в run record data-файла
func BenchmarkRunFromEntity(record *entity.RunRecord) BenchmarkRunDTO {
	commit := record.Commit()
	cpu := record.CPU()

	benches := record.Measurements()
	benchDTOs := make([]BenchmarkMeasurementDTO, len(benches))
	for i, m := range benches {
		benchDTOs[i] = BenchmarkMeasurementDTO{
			Name:  m.Name(),
			Value: m.Value(),
			Unit:  m.Unit(),
			Range: m.Range(),
			Group: m.Group(),
			Extra: m.Extra(),
		}
	}

	return BenchmarkRunDTO{
		CPU: BenchmarkCPUDTO{
			Model:         cpu.Model(),
			Speed:         cpu.SpeedMHz(),
			PhysicalCores: cpu.PhysicalCores(),
			LogicalCores:  cpu.LogicalCores(),
		},
		Extra: record.Extra(),
		Commit: BenchmarkCommitDTO{
			ID:        commit.ID(),
			Message:   commit.Message(),
			Timestamp: commit.Timestamp().Format(time.RFC3339),
			URL:       commit.URL(),
			Author:    commit.Author(),
			Committer: commit.Committer(),
		},
		Date:    record.RecordedAt().UnixMilli(),
		Benches: benchDTOs,
	}
}

// BenchmarkRunToEntity конвертирует run record data-файла в Domain Entity.
// Используется при импорте существующего файла.
func BenchmarkRunToEntity(suite string, run BenchmarkRunDTO) (*entity.RunRecord, error) {
	commitTime, err := time.Parse(time.RFC3339, run.Commit.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("invalid commit timestamp %q: %w", run.Commit.Timestamp, err)
	}

	commit, err := valueobject.NewCommit(run.Commit.ID, run.Commit.Message, commitTime, run.Commit.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid commit: %w", err)
	}
	commit = commit.WithAuthor(run.Commit.Author, run.Commit.Committer)

	cpu, err := valueobject.NewCPUInfo(run.CPU.Model, run.CPU.Speed, run.CPU.PhysicalCores, run.CPU.LogicalCores)
	if err != nil {
		return nil, fmt.Errorf("invalid cpu descriptor: %w", err)
	}

	benches := make([]valueobject.Measurement, 0, len(run.Benches))
	for _, b := range run.Benches {
		m, err := valueobject.NewMeasurement(b.Name, b.Value, b.Unit)
		if err != nil {
			return nil, fmt.Errorf("invalid measurement %q: %w", b.Name, err)
		}
		benches = append(benches, m.WithRange(b.Range).WithGroup(b.Group).WithExtra(b.Extra))
	}

	record, err := entity.NewRunRecord(suite, commit, cpu, time.UnixMilli(run.Date), benches)
	if err != nil {
		return nil, err
	}

	for key, value := range run.Extra {
		record.SetExtra(key, value)
	}

	return record, nil
}
