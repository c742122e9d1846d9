package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dreschagin/bench-history/internal/application/dto"
	"github.com/dreschagin/bench-history/internal/domain/repository"
	"github.com/dreschagin/bench-history/internal/domain/service"
	"github.com/dreschagin/bench-history/internal/domain/valueobject"
)

// GetRunHistoryQuery - запрос истории прогонов набора
type GetRunHistoryQuery struct {
	Suite string
	From  time.Time
	To    time.Time
	Limit int
}

// GetRunHistoryUseCase возвращает историю прогонов одного набора
type GetRunHistoryUseCase struct {
	repository repository.RunRepository
	aggregator *service.TrendAggregator
}

// NewGetRunHistoryUseCase создает новый use case
func NewGetRunHistoryUseCase(
	repository repository.RunRepository,
	aggregator *service.TrendAggregator,
) *GetRunHistoryUseCase {
	return &GetRunHistoryUseCase{
		repository: repository,
		aggregator: aggregator,
	}
}

// Execute выполняет запрос истории.
// Прогоны возвращаются от старых к новым - в том порядке, в котором их рисует
// график; limit оставляет новейшие. Агрегаты по серии отдает trends endpoint.
func (uc *GetRunHistoryUseCase) Execute(ctx context.Context, query GetRunHistoryQuery) ([]*dto.RunDTO, error) {
	if query.Suite == "" {
		return nil, fmt.Errorf("suite is required")
	}

	limit := query.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	if !query.From.IsZero() && !query.To.IsZero() {
		timeRange, err := valueobject.NewTimeRange(query.From, query.To)
		if err != nil {
			return nil, fmt.Errorf("invalid time range: %w", err)
		}

		runs, err := uc.repository.FindByTimeRange(ctx, query.Suite, timeRange)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch run history: %w", err)
		}

		sorted := uc.aggregator.SortRunsByTime(runs, false)
		if len(sorted) > limit {
			sorted = sorted[len(sorted)-limit:]
		}
		return dto.ToRunDTOs(sorted), nil
	}

	runs, err := uc.repository.FindBySuite(ctx, query.Suite, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch run history: %w", err)
	}

	sorted := uc.aggregator.SortRunsByTime(runs, false)
	return dto.ToRunDTOs(sorted), nil
}
