package dto

import (
	"fmt"
	"time"

	"github.com/dreschagin/bench-history/internal/domain/entity"
	"github.com/dreschagin/bench-history/internal/domain/service"
)

// RunSnapshotDTO представляет принятый прогон вместе со сводкой по регрессиям
// Используется для передачи через WebSocket
type RunSnapshotDTO struct {
	Timestamp time.Time       `json:"timestamp"`
	Run       *RunDTO         `json:"run"`
	Summary   *RunSummaryDTO  `json:"summary"`
	Alerts    []RegressionDTO `json:"alerts,omitempty"`
}

// RunSummaryDTO содержит сводную информацию о прогоне
type RunSummaryDTO struct {
	TotalTests    int    `json:"total_tests"`
	CriticalCount int    `json:"critical_count"`
	WarningCount  int    `json:"warning_count"`
	HasCritical   bool   `json:"has_critical"`
	HasWarning    bool   `json:"has_warning"`
	OverallStatus string `json:"overall_status"` // "healthy", "warning", "critical"
}

// RegressionDTO описывает замедление одного теста
type RegressionDTO struct {
	TestName      string  `json:"test_name"`
	Group         string  `json:"group,omitempty"`
	Unit          string  `json:"unit"`
	PreviousValue float64 `json:"previous_value"`
	CurrentValue  float64 `json:"current_value"`
	Ratio         float64 `json:"ratio"`
	Severity      string  `json:"severity"`
}

// NewRunSnapshotDTO создает snapshot из прогона и найденных регрессий
func NewRunSnapshotDTO(record *entity.RunRecord, regressions []service.Regression) *RunSnapshotDTO {
	snapshot := &RunSnapshotDTO{
		Timestamp: time.Now(),
		Run:       FromEntity(record),
		Summary: &RunSummaryDTO{
			TotalTests: record.MeasurementCount(),
		},
	}

	for _, reg := range regressions {
		snapshot.Alerts = append(snapshot.Alerts, RegressionDTO{
			TestName:      reg.TestName,
			Group:         reg.Group,
			Unit:          reg.Unit,
			PreviousValue: reg.PreviousValue,
			CurrentValue:  reg.CurrentValue,
			Ratio:         reg.Ratio,
			Severity:      string(reg.Severity),
		})

		switch reg.Severity {
		case service.SeverityCritical:
			snapshot.Summary.CriticalCount++
		case service.SeverityWarning:
			snapshot.Summary.WarningCount++
		}
	}

	snapshot.Summary.HasCritical = snapshot.Summary.CriticalCount > 0
	snapshot.Summary.HasWarning = snapshot.Summary.WarningCount > 0

	// Определяем общий статус
	if snapshot.Summary.HasCritical {
		snapshot.Summary.OverallStatus = "critical"
	} else if snapshot.Summary.HasWarning {
		snapshot.Summary.OverallStatus = "warning"
	} else {
		snapshot.Summary.OverallStatus = "healthy"
	}

	return snapshot
}

// RegressionAlertDTO представляет alert для отправки клиентам
type RegressionAlertDTO struct {
	Timestamp time.Time     `json:"timestamp"`
	Level     string        `json:"level"` // "warning", "critical"
	Suite     string        `json:"suite"`
	Commit    CommitDTO     `json:"commit"`
	Details   RegressionDTO `json:"details"`
	Message   string        `json:"message"`
}

// NewRegressionAlertDTO создает новый alert по найденной регрессии
func NewRegressionAlertDTO(record *entity.RunRecord, reg service.Regression) *RegressionAlertDTO {
	commit := record.Commit()

	message := fmt.Sprintf("%s is %.2fx slower (%g -> %g %s)",
		reg.TestName, reg.Ratio, reg.PreviousValue, reg.CurrentValue, reg.Unit)

	return &RegressionAlertDTO{
		Timestamp: time.Now(),
		Level:     string(reg.Severity),
		Suite:     record.Suite(),
		Commit: CommitDTO{
			ID:        commit.ID(),
			Message:   commit.Message(),
			Timestamp: commit.Timestamp(),
			URL:       commit.URL(),
		},
		Details: RegressionDTO{
			TestName:      reg.TestName,
			Group:         reg.Group,
			Unit:          reg.Unit,
			PreviousValue: reg.PreviousValue,
			CurrentValue:  reg.CurrentValue,
			Ratio:         reg.Ratio,
			Severity:      string(reg.Severity),
		},
		Message: message,
	}
}
