package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dreschagin/bench-history/internal/domain/repository"
	"github.com/dreschagin/bench-history/pkg/logger"
)

// TrimSettings - параметры ретенции истории
type TrimSettings struct {
	MaxRunsPerSuite int
	MaxAge          time.Duration
}

// TrimReport - итог одного прохода ретенции
type TrimReport struct {
	ExpiredDeleted int64
	TrimmedDeleted int64
}

// TrimHistoryUseCase ограничивает глубину истории прогонов.
// Сначала удаляются прогоны старше MaxAge, затем каждый набор
// усекается до MaxRunsPerSuite последних прогонов.
type TrimHistoryUseCase struct {
	repository repository.RunRepository
	settings   TrimSettings
	logger     *logger.Logger
}

// NewTrimHistoryUseCase создает новый use case
func NewTrimHistoryUseCase(
	repository repository.RunRepository,
	settings TrimSettings,
	logger *logger.Logger,
) *TrimHistoryUseCase {
	return &TrimHistoryUseCase{
		repository: repository,
		settings:   settings,
		logger:     logger,
	}
}

// Execute выполняет один проход ретенции
func (uc *TrimHistoryUseCase) Execute(ctx context.Context) (*TrimReport, error) {
	report := &TrimReport{}

	if uc.settings.MaxAge > 0 {
		cutoff := time.Now().Add(-uc.settings.MaxAge)
		deleted, err := uc.repository.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			return nil, fmt.Errorf("failed to delete expired runs: %w", err)
		}
		report.ExpiredDeleted = deleted
	}

	if uc.settings.MaxRunsPerSuite > 0 {
		suites, err := uc.repository.Suites(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list suites: %w", err)
		}

		for _, suite := range suites {
			deleted, err := uc.repository.TrimSuite(ctx, suite, uc.settings.MaxRunsPerSuite)
			if err != nil {
				return nil, fmt.Errorf("failed to trim suite %s: %w", suite, err)
			}
			report.TrimmedDeleted += deleted
		}
	}

	if report.ExpiredDeleted > 0 || report.TrimmedDeleted > 0 {
		uc.logger.Info("History trimmed",
			"expired", report.ExpiredDeleted,
			"trimmed", report.TrimmedDeleted,
		)
	}

	return report, nil
}
