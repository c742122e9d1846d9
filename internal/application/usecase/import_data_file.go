package usecase

import (
	"context"
	"fmt"

	"github.com/dreschagin/bench-history/internal/application/dto"
	"github.com/dreschagin/bench-history/internal/domain/entity"
	"github.com/dreschagin/bench-history/internal/domain/repository"
	"github.com/dreschagin/bench-history/internal/domain/service"
	"github.com/dreschagin/bench-history/internal/infrastructure/datafile"
	"github.com/dreschagin/bench-history/pkg/logger"
)

// ImportResult - итог импорта существующего data-файла
type ImportResult struct {
	SuiteCount int
	Imported   int
	Skipped    int
}

// ImportDataFileUseCase загружает историю из существующего data-файла.
// Импорт идемпотентен: уже известные прогоны пропускаются.
type ImportDataFileUseCase struct {
	repository repository.RunRepository
	validator  *service.RunValidator
	logger     *logger.Logger
}

// NewImportDataFileUseCase создает новый use case
func NewImportDataFileUseCase(
	repository repository.RunRepository,
	validator *service.RunValidator,
	logger *logger.Logger,
) *ImportDataFileUseCase {
	return &ImportDataFileUseCase{
		repository: repository,
		validator:  validator,
		logger:     logger,
	}
}

// Execute парсит файл и сохраняет недостающие прогоны
func (uc *ImportDataFileUseCase) Execute(ctx context.Context, raw []byte) (*ImportResult, error) {
	data, err := datafile.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse data file: %w", err)
	}

	if err := datafile.Validate(data); err != nil {
		return nil, fmt.Errorf("data file validation failed: %w", err)
	}

	result := &ImportResult{SuiteCount: len(data.Entries)}
	batch := make([]*entity.RunRecord, 0)

	for suite, runs := range data.Entries {
		for _, run := range runs {
			record, err := uc.buildRecord(suite, run)
			if err != nil {
				return nil, fmt.Errorf("suite %s, commit %s: %w", suite, run.Commit.ID, err)
			}

			exists, err := uc.repository.ExistsByCommit(ctx, suite, record.Commit().ID(), record.RecordedAt())
			if err != nil {
				return nil, fmt.Errorf("failed to check for existing run: %w", err)
			}
			if exists {
				result.Skipped++
				continue
			}

			batch = append(batch, record)
		}
	}

	if len(batch) > 0 {
		if err := uc.repository.SaveBatch(ctx, batch); err != nil {
			uc.logger.Error("Failed to save imported runs", err)
			return nil, fmt.Errorf("failed to save imported runs: %w", err)
		}
	}

	result.Imported = len(batch)

	uc.logger.Info("Data file imported",
		"suites", result.SuiteCount,
		"imported", result.Imported,
		"skipped", result.Skipped,
	)

	return result, nil
}

func (uc *ImportDataFileUseCase) buildRecord(suite string, run dto.BenchmarkRunDTO) (*entity.RunRecord, error) {
	record, err := dto.BenchmarkRunToEntity(suite, run)
	if err != nil {
		return nil, err
	}

	if err := uc.validator.Validate(record); err != nil {
		return nil, err
	}

	return record, nil
}
