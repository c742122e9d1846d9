package postgres

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/dreschagin/bench-history/internal/domain/entity"
	"github.com/dreschagin/bench-history/internal/domain/valueobject"
)

// RunDBModel представляет прогон в БД
type RunDBModel struct {
	ID              string
	Suite           string
	CommitID        string
	CommitMessage   string
	CommitTimestamp time.Time
	CommitURL       string
	CommitAuthor    string
	CommitCommitter string
	CPUModel        string
	CPUSpeedMHz     float64
	CPUPhysical     int
	CPULogical      int
	Extra           []byte // JSON
	RecordedAt      time.Time
	CreatedAt       time.Time
}

// MeasurementDBModel представляет одно измерение прогона в БД
type MeasurementDBModel struct {
	RunID    string
	Position int
	Name     string
	Value    float64
	Unit     string
	Range    string
	Group    string
	Extra    string
}

// ToDBModel конвертирует Domain Entity в DB Models
func ToDBModel(record *entity.RunRecord) (*RunDBModel, []MeasurementDBModel, error) {
	var extraBytes []byte
	var err error

	extra := record.Extra()
	if len(extra) > 0 {
		extraBytes, err = json.Marshal(extra)
		if err != nil {
			return nil, nil, err
		}
	}

	commit := record.Commit()
	cpu := record.CPU()

	model := &RunDBModel{
		ID:              record.ID(),
		Suite:           record.Suite(),
		CommitID:        commit.ID(),
		CommitMessage:   commit.Message(),
		CommitTimestamp: commit.Timestamp(),
		CommitURL:       commit.URL(),
		CommitAuthor:    commit.Author(),
		CommitCommitter: commit.Committer(),
		CPUModel:        cpu.Model(),
		CPUSpeedMHz:     cpu.SpeedMHz(),
		CPUPhysical:     cpu.PhysicalCores(),
		CPULogical:      cpu.LogicalCores(),
		Extra:           extraBytes,
		RecordedAt:      record.RecordedAt(),
		CreatedAt:       record.CreatedAt(),
	}

	benches := record.Measurements()
	measurements := make([]MeasurementDBModel, len(benches))
	for i, m := range benches {
		measurements[i] = MeasurementDBModel{
			RunID:    record.ID(),
			Position: i,
			Name:     m.Name(),
			Value:    m.Value(),
			Unit:     m.Unit(),
			Range:    m.Range(),
			Group:    m.Group(),
			Extra:    m.Extra(),
		}
	}

	return model, measurements, nil
}

// ToEntity конвертирует DB Models в Domain Entity
func ToEntity(model *RunDBModel, measurements []MeasurementDBModel) (*entity.RunRecord, error) {
	// Парсим extra
	var extra map[string]string
	if len(model.Extra) > 0 {
		if err := json.Unmarshal(model.Extra, &extra); err != nil {
			return nil, err
		}
	}

	commit, err := valueobject.NewCommit(model.CommitID, model.CommitMessage, model.CommitTimestamp, model.CommitURL)
	if err != nil {
		return nil, err
	}
	commit = commit.WithAuthor(model.CommitAuthor, model.CommitCommitter)

	cpu, err := valueobject.NewCPUInfo(model.CPUModel, model.CPUSpeedMHz, model.CPUPhysical, model.CPULogical)
	if err != nil {
		return nil, err
	}

	benches := make([]valueobject.Measurement, 0, len(measurements))
	for _, m := range measurements {
		bench, err := valueobject.NewMeasurement(m.Name, m.Value, m.Unit)
		if err != nil {
			return nil, err
		}
		benches = append(benches, bench.WithRange(m.Range).WithGroup(m.Group).WithExtra(m.Extra))
	}

	// Восстанавливаем entity через Reconstruct
	record := entity.Reconstruct(
		model.ID,
		model.Suite,
		commit,
		cpu,
		extra,
		model.RecordedAt,
		model.CreatedAt,
		benches,
	)

	return record, nil
}

// ScanRunRow сканирует строку БД в RunDBModel
func ScanRunRow(row interface {
	Scan(dest ...interface{}) error
}) (*RunDBModel, error) {
	var model RunDBModel
	var extra sql.NullString

	err := row.Scan(
		&model.ID,
		&model.Suite,
		&model.CommitID,
		&model.CommitMessage,
		&model.CommitTimestamp,
		&model.CommitURL,
		&model.CommitAuthor,
		&model.CommitCommitter,
		&model.CPUModel,
		&model.CPUSpeedMHz,
		&model.CPUPhysical,
		&model.CPULogical,
		&extra,
		&model.RecordedAt,
		&model.CreatedAt,
	)

	if err != nil {
		return nil, err
	}

	if extra.Valid {
		model.Extra = []byte(extra.String)
	}

	return &model, nil
}
