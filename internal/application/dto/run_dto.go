package dto

import (
	"time"

	"github.com/dreschagin/bench-history/internal/domain/entity"
)

// MeasurementDTO представляет одно измерение для передачи между слоями
type MeasurementDTO struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Range string  `json:"range,omitempty"`
	Group string  `json:"group,omitempty"`
	Extra string  `json:"extra,omitempty"`
}

// CommitDTO представляет коммит прогона
type CommitDTO struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	URL       string    `json:"url"`
	Author    string    `json:"author,omitempty"`
	Committer string    `json:"committer,omitempty"`
}

// CPUDTO представляет дескриптор процессора
type CPUDTO struct {
	Model         string  `json:"model,omitempty"`
	SpeedMHz      float64 `json:"speed_mhz"`
	PhysicalCores int     `json:"physical_cores"`
	LogicalCores  int     `json:"logical_cores"`
}

// RunDTO представляет прогон бенчмарков для передачи между слоями
type RunDTO struct {
	ID         string            `json:"id"`
	Suite      string            `json:"suite"`
	Commit     CommitDTO         `json:"commit"`
	CPU        CPUDTO            `json:"cpu"`
	Extra      map[string]string `json:"extra,omitempty"`
	RecordedAt time.Time         `json:"recorded_at"`
	CreatedAt  time.Time         `json:"created_at"`
	Benches    []MeasurementDTO  `json:"benches"`
}

// FromEntity конвертирует Domain Entity в DTO
func FromEntity(record *entity.RunRecord) *RunDTO {
	commit := record.Commit()
	cpu := record.CPU()

	benches := record.Measurements()
	benchDTOs := make([]MeasurementDTO, len(benches))
	for i, m := range benches {
		benchDTOs[i] = MeasurementDTO{
			Name:  m.Name(),
			Value: m.Value(),
			Unit:  m.Unit(),
			Range: m.Range(),
			Group: m.Group(),
			Extra: m.Extra(),
		}
	}

	return &RunDTO{
		ID:    record.ID(),
		Suite: record.Suite(),
		Commit: CommitDTO{
			ID:        commit.ID(),
			Message:   commit.Message(),
			Timestamp: commit.Timestamp(),
			URL:       commit.URL(),
			Author:    commit.Author(),
			Committer: commit.Committer(),
		},
		CPU: CPUDTO{
			Model:         cpu.Model(),
			SpeedMHz:      cpu.SpeedMHz(),
			PhysicalCores: cpu.PhysicalCores(),
			LogicalCores:  cpu.LogicalCores(),
		},
		Extra:      record.Extra(),
		RecordedAt: record.RecordedAt(),
		CreatedAt:  record.CreatedAt(),
		Benches:    benchDTOs,
	}
}

// ToRunDTOs конвертирует слайс Entity в слайс DTO
func ToRunDTOs(records []*entity.RunRecord) []*RunDTO {
	dtos := make([]*RunDTO, len(records))
	for i, r := range records {
		dtos[i] = FromEntity(r)
	}
	return dtos
}
