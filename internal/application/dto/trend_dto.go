package dto

import (
	"time"

	"github.com/dreschagin/bench-history/internal/domain/repository"
)

// TrendPointDTO представляет одну точку тренда теста
type TrendPointDTO struct {
	RecordedAt time.Time `json:"recorded_at"`
	CommitID   string    `json:"commit_id"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	Range      string    `json:"range,omitempty"`
}

// TrendDTO представляет исторические данные одного теста с агрегатами
type TrendDTO struct {
	Suite    string          `json:"suite"`
	TestName string          `json:"test_name"`
	Points   []TrendPointDTO `json:"points"`
	Average  float64         `json:"average"`
	Min      float64         `json:"min"`
	Max      float64         `json:"max"`
	P95      float64         `json:"p95"`
}

// ToTrendPointDTOs конвертирует точки серии в DTO
func ToTrendPointDTOs(points []repository.SeriesPoint) []TrendPointDTO {
	dtos := make([]TrendPointDTO, len(points))
	for i, p := range points {
		dtos[i] = TrendPointDTO{
			RecordedAt: p.RecordedAt,
			CommitID:   p.CommitID,
			Value:      p.Value,
			Unit:       p.Unit,
			Range:      p.Range,
		}
	}
	return dtos
}
