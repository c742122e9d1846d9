package service

import (
	"errors"
	"sort"

	"github.com/dreschagin/bench-history/internal/domain/entity"
	"github.com/dreschagin/bench-history/internal/domain/repository"
)

// TrendAggregator предоставляет сервисы для агрегации трендов (Domain Service)
// Содержит бизнес-логику, которая не принадлежит одной конкретной сущности
type TrendAggregator struct{}

// NewTrendAggregator создает новый TrendAggregator
func NewTrendAggregator() *TrendAggregator {
	return &TrendAggregator{}
}

// CalculateAverage вычисляет среднее значение серии
func (a *TrendAggregator) CalculateAverage(points []repository.SeriesPoint) (float64, error) {
	if len(points) == 0 {
		return 0, errors.New("no points to aggregate")
	}

	var sum float64
	for _, p := range points {
		sum += p.Value
	}

	return sum / float64(len(points)), nil
}

// CalculateMin находит минимальное значение серии
func (a *TrendAggregator) CalculateMin(points []repository.SeriesPoint) (float64, error) {
	if len(points) == 0 {
		return 0, errors.New("no points to aggregate")
	}

	min := points[0].Value
	for _, p := range points[1:] {
		if p.Value < min {
			min = p.Value
		}
	}

	return min, nil
}

// CalculateMax находит максимальное значение серии
func (a *TrendAggregator) CalculateMax(points []repository.SeriesPoint) (float64, error) {
	if len(points) == 0 {
		return 0, errors.New("no points to aggregate")
	}

	max := points[0].Value
	for _, p := range points[1:] {
		if p.Value > max {
			max = p.Value
		}
	}

	return max, nil
}

// CalculatePercentile вычисляет процентиль значений серии
func (a *TrendAggregator) CalculatePercentile(points []repository.SeriesPoint, percentile float64) (float64, error) {
	if len(points) == 0 {
		return 0, errors.New("no points to aggregate")
	}

	if percentile < 0 || percentile > 100 {
		return 0, errors.New("percentile must be between 0 and 100")
	}

	sorted := make([]repository.SeriesPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Value < sorted[j].Value
	})

	index := int(float64(len(sorted)-1) * (percentile / 100.0))

	return sorted[index].Value, nil
}

// SortSeriesByTime сортирует точки серии по времени прогона
func (a *TrendAggregator) SortSeriesByTime(points []repository.SeriesPoint, descending bool) []repository.SeriesPoint {
	sorted := make([]repository.SeriesPoint, len(points))
	copy(sorted, points)

	sort.Slice(sorted, func(i, j int) bool {
		if descending {
			return sorted[i].RecordedAt.After(sorted[j].RecordedAt)
		}
		return sorted[i].RecordedAt.Before(sorted[j].RecordedAt)
	})

	return sorted
}

// SortRunsByTime сортирует прогоны по времени
func (a *TrendAggregator) SortRunsByTime(records []*entity.RunRecord, descending bool) []*entity.RunRecord {
	sorted := make([]*entity.RunRecord, len(records))
	copy(sorted, records)

	sort.Slice(sorted, func(i, j int) bool {
		if descending {
			return sorted[i].RecordedAt().After(sorted[j].RecordedAt())
		}
		return sorted[i].RecordedAt().Before(sorted[j].RecordedAt())
	})

	return sorted
}
