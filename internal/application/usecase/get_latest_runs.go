package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/dreschagin/bench-history/internal/application/dto"
	"github.com/dreschagin/bench-history/internal/domain/repository"
)

// GetLatestRunsUseCase возвращает последний прогон каждого набора
type GetLatestRunsUseCase struct {
	repository repository.RunRepository
}

// NewGetLatestRunsUseCase создает новый use case
func NewGetLatestRunsUseCase(repository repository.RunRepository) *GetLatestRunsUseCase {
	return &GetLatestRunsUseCase{
		repository: repository,
	}
}

// Execute возвращает последние прогоны, сгруппированные по наборам
func (uc *GetLatestRunsUseCase) Execute(ctx context.Context) (map[string]*dto.RunDTO, error) {
	latest, err := uc.repository.FindLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest runs: %w", err)
	}

	result := make(map[string]*dto.RunDTO, len(latest))
	for suite, record := range latest {
		result[suite] = dto.FromEntity(record)
	}

	return result, nil
}

// ExecuteForSuite возвращает последний прогон одного набора
func (uc *GetLatestRunsUseCase) ExecuteForSuite(ctx context.Context, suite string) (*dto.RunDTO, error) {
	if suite == "" {
		return nil, fmt.Errorf("suite is required")
	}

	record, err := uc.repository.FindLatestBySuite(ctx, suite)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest run for suite %s: %w", suite, err)
	}

	return dto.FromEntity(record), nil
}

// Suites возвращает отсортированный список известных наборов
func (uc *GetLatestRunsUseCase) Suites(ctx context.Context) ([]string, error) {
	suites, err := uc.repository.Suites(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list suites: %w", err)
	}

	sort.Strings(suites)
	return suites, nil
}
