package usecase

import (
	"context"
	"fmt"

	"github.com/dreschagin/bench-history/internal/application/dto"
	"github.com/dreschagin/bench-history/internal/application/port"
	"github.com/dreschagin/bench-history/internal/domain/repository"
	"github.com/dreschagin/bench-history/internal/domain/service"
	"github.com/dreschagin/bench-history/internal/domain/valueobject"
	"github.com/dreschagin/bench-history/internal/infrastructure/cache/redis"
	"github.com/dreschagin/bench-history/pkg/logger"
)

// GetTrendUseCase возвращает временной ряд одного теста с кешированием
type GetTrendUseCase struct {
	repository repository.RunRepository
	aggregator *service.TrendAggregator
	cache      port.Cache
	logger     *logger.Logger
}

// NewGetTrendUseCase создает новый use case с кешированием
func NewGetTrendUseCase(
	repository repository.RunRepository,
	aggregator *service.TrendAggregator,
	cache port.Cache,
	logger *logger.Logger,
) *GetTrendUseCase {
	return &GetTrendUseCase{
		repository: repository,
		aggregator: aggregator,
		cache:      cache,
		logger:     logger,
	}
}

// Execute выполняет получение тренда теста за период
func (uc *GetTrendUseCase) Execute(
	ctx context.Context,
	suite string,
	testName string,
	timeRange valueobject.TimeRange,
) (*dto.TrendDTO, error) {
	if suite == "" {
		return nil, fmt.Errorf("suite is required")
	}
	if testName == "" {
		return nil, fmt.Errorf("test name is required")
	}

	// Если кеш не настроен, используем стандартный путь
	if uc.cache == nil {
		return uc.executeWithoutCache(ctx, suite, testName, timeRange)
	}

	// Генерируем ключ кеша
	duration := timeRange.End().Sub(timeRange.Start()).String()
	cacheKey := redis.TrendCacheKey(suite, testName, duration)

	// Пытаемся получить из кеша
	var cachedTrend *dto.TrendDTO
	err := uc.cache.Get(ctx, cacheKey, &cachedTrend)
	if err == nil {
		uc.logger.Debug("Cache hit for trend",
			"suite", suite,
			"test", testName,
			"points", len(cachedTrend.Points))
		return cachedTrend, nil
	}

	// Cache miss - получаем из БД
	uc.logger.Debug("Cache miss for trend, fetching from DB",
		"suite", suite,
		"test", testName)

	trend, err := uc.executeWithoutCache(ctx, suite, testName, timeRange)
	if err != nil {
		return nil, err
	}

	// Сохраняем в кеш (асинхронно, не блокируем ответ)
	go func() {
		if err := uc.cache.Set(context.Background(), cacheKey, trend); err != nil {
			uc.logger.Warn("Failed to cache trend", "error", err.Error())
		}
	}()

	return trend, nil
}

// executeWithoutCache получает тренд без кеширования
func (uc *GetTrendUseCase) executeWithoutCache(
	ctx context.Context,
	suite string,
	testName string,
	timeRange valueobject.TimeRange,
) (*dto.TrendDTO, error) {
	series, err := uc.repository.FindMeasurementSeries(ctx, suite, testName, timeRange)
	if err != nil {
		uc.logger.Error("Failed to fetch measurement series", err)
		return nil, fmt.Errorf("failed to fetch measurement series: %w", err)
	}

	if len(series) == 0 {
		return &dto.TrendDTO{
			Suite:    suite,
			TestName: testName,
			Points:   []dto.TrendPointDTO{},
		}, nil
	}

	// Сортируем по времени (по возрастанию для графиков)
	sorted := uc.aggregator.SortSeriesByTime(series, false)

	avg, _ := uc.aggregator.CalculateAverage(sorted)
	min, _ := uc.aggregator.CalculateMin(sorted)
	max, _ := uc.aggregator.CalculateMax(sorted)
	p95, _ := uc.aggregator.CalculatePercentile(sorted, 95)

	return &dto.TrendDTO{
		Suite:    suite,
		TestName: testName,
		Points:   dto.ToTrendPointDTOs(sorted),
		Average:  avg,
		Min:      min,
		Max:      max,
		P95:      p95,
	}, nil
}
