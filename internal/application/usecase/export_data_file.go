package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dreschagin/bench-history/internal/application/dto"
	"github.com/dreschagin/bench-history/internal/application/port"
	"github.com/dreschagin/bench-history/internal/domain/repository"
	"github.com/dreschagin/bench-history/internal/domain/service"
	"github.com/dreschagin/bench-history/internal/infrastructure/datafile"
	"github.com/dreschagin/bench-history/pkg/logger"
)

const dataFileContentType = "application/javascript"

// ExportSettings - параметры сборки data-файла
type ExportSettings struct {
	RepoURL        string
	XAxis          string
	OneChartGroups []string
	MaxRuns        int
}

// ExportResult - результат выгрузки
type ExportResult struct {
	Body       []byte
	SuiteCount int
	RunCount   int
	SnapshotID string
	URL        string
}

// ExportDataFileUseCase собирает data-файл дашборда из истории прогонов.
// Опционально выгружает файл в объектное хранилище и индексирует метаданные.
type ExportDataFileUseCase struct {
	repository repository.RunRepository
	aggregator *service.TrendAggregator
	storage    port.SnapshotStorage           // Can be nil if S3 disabled
	metadata   port.SnapshotMetadataRepository // Can be nil if DynamoDB disabled
	settings   ExportSettings
	logger     *logger.Logger
}

// NewExportDataFileUseCase создает новый use case
func NewExportDataFileUseCase(
	repository repository.RunRepository,
	aggregator *service.TrendAggregator,
	storage port.SnapshotStorage,
	metadata port.SnapshotMetadataRepository,
	settings ExportSettings,
	logger *logger.Logger,
) *ExportDataFileUseCase {
	if settings.XAxis == "" {
		settings.XAxis = "id"
	}
	if settings.MaxRuns <= 0 {
		settings.MaxRuns = 50
	}

	return &ExportDataFileUseCase{
		repository: repository,
		aggregator: aggregator,
		storage:    storage,
		metadata:   metadata,
		settings:   settings,
		logger:     logger,
	}
}

// Execute собирает и рендерит data-файл
func (uc *ExportDataFileUseCase) Execute(ctx context.Context) (*ExportResult, error) {
	data, runCount, err := uc.assemble(ctx)
	if err != nil {
		return nil, err
	}

	body, err := datafile.Render(data)
	if err != nil {
		return nil, fmt.Errorf("failed to render data file: %w", err)
	}

	result := &ExportResult{
		Body:       body,
		SuiteCount: len(data.Entries),
		RunCount:   runCount,
	}

	uc.logger.Debug("Data file assembled",
		"suites", result.SuiteCount,
		"runs", result.RunCount,
		"bytes", len(body),
	)

	return result, nil
}

// ExecuteWithUpload собирает data-файл и выгружает его в объектное хранилище
func (uc *ExportDataFileUseCase) ExecuteWithUpload(ctx context.Context) (*ExportResult, error) {
	if uc.storage == nil {
		return nil, fmt.Errorf("snapshot storage is not configured")
	}

	result, err := uc.Execute(ctx)
	if err != nil {
		return nil, err
	}

	exportedAt := time.Now()
	snapshotID := uuid.New().String()
	key := fmt.Sprintf("snapshots/%s/data.js", exportedAt.Format("2006/01/02/150405"))

	url, err := uc.storage.PutObject(ctx, key, dataFileContentType, result.Body)
	if err != nil {
		uc.logger.Error("Failed to upload data file", err, "key", key)
		return nil, fmt.Errorf("failed to upload data file: %w", err)
	}

	result.SnapshotID = snapshotID
	result.URL = url

	uc.logger.Info("Data file uploaded",
		"key", key,
		"bytes", len(result.Body),
	)

	if uc.metadata != nil {
		record := port.SnapshotMetadata{
			SnapshotID:   snapshotID,
			S3Key:        key,
			URL:          url,
			ContentType:  dataFileContentType,
			SizeBytes:    int64(len(result.Body)),
			SuiteCount:   result.SuiteCount,
			RunCount:     result.RunCount,
			ExportedAt:   exportedAt,
			LastModified: exportedAt,
		}
		if err := uc.metadata.Put(ctx, record); err != nil {
			uc.logger.Warn("Failed to index snapshot metadata", "error", err.Error())
		}
	}

	return result, nil
}

// ListSnapshots возвращает страницу индекса выгруженных файлов
func (uc *ExportDataFileUseCase) ListSnapshots(ctx context.Context, query port.SnapshotListQuery) (port.SnapshotListPage, error) {
	if uc.metadata == nil {
		return port.SnapshotListPage{}, fmt.Errorf("snapshot metadata repository is not configured")
	}

	page, err := uc.metadata.List(ctx, query)
	if err != nil {
		return port.SnapshotListPage{}, fmt.Errorf("failed to list snapshots: %w", err)
	}

	return page, nil
}

// assemble строит корневой объект data-файла из истории прогонов
func (uc *ExportDataFileUseCase) assemble(ctx context.Context) (*dto.BenchmarkDataDTO, int, error) {
	suites, err := uc.repository.Suites(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list suites: %w", err)
	}

	entries := make(map[string][]dto.BenchmarkRunDTO, len(suites))
	runCount := 0
	var lastUpdate int64

	for _, suite := range suites {
		runs, err := uc.repository.FindBySuite(ctx, suite, uc.settings.MaxRuns)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to fetch runs for suite %s: %w", suite, err)
		}

		// В файле прогоны лежат от старых к новым
		sorted := uc.aggregator.SortRunsByTime(runs, false)

		suiteRuns := make([]dto.BenchmarkRunDTO, 0, len(sorted))
		for _, record := range sorted {
			run := dto.BenchmarkRunFromEntity(record)
			if run.Date > lastUpdate {
				lastUpdate = run.Date
			}
			suiteRuns = append(suiteRuns, run)
		}

		entries[suite] = suiteRuns
		runCount += len(suiteRuns)
	}

	if lastUpdate == 0 {
		lastUpdate = time.Now().UnixMilli()
	}

	oneChartGroups := uc.settings.OneChartGroups
	if oneChartGroups == nil {
		oneChartGroups = []string{}
	}

	return &dto.BenchmarkDataDTO{
		LastUpdate:     lastUpdate,
		RepoURL:        uc.settings.RepoURL,
		XAxis:          uc.settings.XAxis,
		OneChartGroups: oneChartGroups,
		Entries:        entries,
	}, runCount, nil
}
