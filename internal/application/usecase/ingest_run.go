package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dreschagin/bench-history/internal/application/dto"
	"github.com/dreschagin/bench-history/internal/application/port"
	"github.com/dreschagin/bench-history/internal/domain/entity"
	"github.com/dreschagin/bench-history/internal/domain/repository"
	"github.com/dreschagin/bench-history/internal/domain/service"
	"github.com/dreschagin/bench-history/internal/domain/valueobject"
	"github.com/dreschagin/bench-history/pkg/logger"
)

// ErrDuplicateRun возвращается при повторной отправке того же прогона.
// Ingest идемпотентен по паре (suite, commit id, recorded_at).
var ErrDuplicateRun = errors.New("run already ingested")

// NATS subjects для событий жизненного цикла прогонов
const (
	SubjectRunIngested   = "bench.runs.ingested"
	SubjectRunRegression = "bench.runs.regression"
)

// MeasurementInput - одно измерение во входной команде
type MeasurementInput struct {
	Name  string
	Value float64
	Unit  string
	Range string
	Group string
	Extra string
}

// CommitInput - метаданные коммита во входной команде
type CommitInput struct {
	ID        string
	Message   string
	Timestamp time.Time
	URL       string
	Author    string
	Committer string
}

// CPUInput - дескриптор процессора во входной команде
type CPUInput struct {
	Model         string
	SpeedMHz      float64
	PhysicalCores int
	LogicalCores  int
}

// IngestRunCommand - команда приема прогона
type IngestRunCommand struct {
	Suite      string
	Commit     CommitInput
	CPU        CPUInput
	Extra      map[string]string
	RecordedAt time.Time
	Benches    []MeasurementInput
}

// IngestRunResult - результат приема
type IngestRunResult struct {
	RunID       string
	Regressions []*dto.RegressionAlertDTO
}

// IngestRunUseCase координирует валидацию, сохранение, детект регрессий и рассылку
type IngestRunUseCase struct {
	repository repository.RunRepository
	validator  *service.RunValidator
	detector   *service.RegressionDetector
	notifier   port.NotificationService
	events     port.EventPublisher   // Can be nil if NATS disabled
	metrics    port.MetricsPublisher // Can be nil if CloudWatch disabled
	cache      port.Cache            // Can be nil if Redis disabled
	logger     *logger.Logger
}

// NewIngestRunUseCase создает новый use case
func NewIngestRunUseCase(
	repository repository.RunRepository,
	validator *service.RunValidator,
	detector *service.RegressionDetector,
	notifier port.NotificationService,
	events port.EventPublisher,
	metrics port.MetricsPublisher,
	cache port.Cache,
	logger *logger.Logger,
) *IngestRunUseCase {
	return &IngestRunUseCase{
		repository: repository,
		validator:  validator,
		detector:   detector,
		notifier:   notifier,
		events:     events,
		metrics:    metrics,
		cache:      cache,
		logger:     logger,
	}
}

// Execute выполняет прием прогона
func (uc *IngestRunUseCase) Execute(ctx context.Context, cmd IngestRunCommand) (*IngestRunResult, error) {
	// 1. Конвертируем команду в Domain Entity
	record, err := uc.buildRecord(cmd)
	if err != nil {
		return nil, fmt.Errorf("invalid run record: %w", err)
	}

	// 2. Полная валидация
	if err := uc.validator.Validate(record); err != nil {
		return nil, fmt.Errorf("run validation failed: %w", err)
	}

	// 3. Идемпотентность: тот же коммит с тем же временем не сохраняем повторно
	exists, err := uc.repository.ExistsByCommit(ctx, record.Suite(), record.Commit().ID(), record.RecordedAt())
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate run: %w", err)
	}
	if exists {
		uc.logger.Warn("Duplicate run rejected",
			"suite", record.Suite(),
			"commit", record.Commit().ShortID(),
		)
		return nil, ErrDuplicateRun
	}

	// 4. Baseline для детектора - ближайший прогон до текущего
	previous, err := uc.repository.FindPrevious(ctx, record.Suite(), record.RecordedAt())
	if err != nil {
		uc.logger.Warn("Failed to load baseline run, skipping regression check", "error", err.Error())
		previous = nil
	}

	// 5. Сохраняем
	if err := uc.repository.Save(ctx, record); err != nil {
		uc.logger.Error("Failed to save run record", err)
		return nil, fmt.Errorf("failed to save run record: %w", err)
	}

	uc.logger.Debug("Run record saved",
		"suite", record.Suite(),
		"commit", record.Commit().ShortID(),
		"benches", record.MeasurementCount(),
	)

	// 6. Детект регрессий относительно baseline
	var regressions []service.Regression
	if previous != nil {
		regressions = uc.detector.Compare(record, previous)
	}

	// 7. Рассылаем snapshot через WebSocket
	snapshot := dto.NewRunSnapshotDTO(record, regressions)
	uc.notifier.Broadcast(snapshot)
	uc.logger.Debug("Run broadcasted to clients", "client_count", uc.notifier.ClientCount())

	// 8. Alerts по каждой регрессии
	alerts := uc.sendAlerts(ctx, record, regressions)

	// 9. Событие о приеме
	uc.publishIngestedEvent(ctx, snapshot)

	// 10. Операционные метрики сервиса
	uc.publishServiceMetrics(ctx, record, regressions)

	// 11. Тренды набора изменились - сбрасываем кеш
	uc.invalidateTrendCache(record.Suite())

	return &IngestRunResult{
		RunID:       record.ID(),
		Regressions: alerts,
	}, nil
}

// buildRecord строит Domain Entity из команды
func (uc *IngestRunUseCase) buildRecord(cmd IngestRunCommand) (*entity.RunRecord, error) {
	commit, err := valueobject.NewCommit(cmd.Commit.ID, cmd.Commit.Message, cmd.Commit.Timestamp, cmd.Commit.URL)
	if err != nil {
		return nil, err
	}
	commit = commit.WithAuthor(cmd.Commit.Author, cmd.Commit.Committer)

	cpu, err := valueobject.NewCPUInfo(cmd.CPU.Model, cmd.CPU.SpeedMHz, cmd.CPU.PhysicalCores, cmd.CPU.LogicalCores)
	if err != nil {
		return nil, err
	}

	benches := make([]valueobject.Measurement, 0, len(cmd.Benches))
	for _, b := range cmd.Benches {
		m, err := valueobject.NewMeasurement(b.Name, b.Value, b.Unit)
		if err != nil {
			return nil, fmt.Errorf("measurement %q: %w", b.Name, err)
		}
		benches = append(benches, m.WithRange(b.Range).WithGroup(b.Group).WithExtra(b.Extra))
	}

	recordedAt := cmd.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	record, err := entity.NewRunRecord(cmd.Suite, commit, cpu, recordedAt, benches)
	if err != nil {
		return nil, err
	}

	for key, value := range cmd.Extra {
		record.SetExtra(key, value)
	}

	return record, nil
}

// sendAlerts рассылает alerts и события по найденным регрессиям
func (uc *IngestRunUseCase) sendAlerts(ctx context.Context, record *entity.RunRecord, regressions []service.Regression) []*dto.RegressionAlertDTO {
	alerts := make([]*dto.RegressionAlertDTO, 0, len(regressions))

	for _, reg := range regressions {
		alert := dto.NewRegressionAlertDTO(record, reg)
		alerts = append(alerts, alert)

		uc.notifier.BroadcastAlert(alert)
		uc.logger.Warn("Benchmark regression detected",
			"suite", record.Suite(),
			"test", reg.TestName,
			"ratio", fmt.Sprintf("%.2f", reg.Ratio),
			"severity", string(reg.Severity),
		)

		if uc.events != nil {
			if err := uc.events.PublishEvent(ctx, SubjectRunRegression, alert); err != nil {
				uc.logger.Warn("Failed to publish regression event", "error", err.Error())
			}
		}
	}

	return alerts
}

func (uc *IngestRunUseCase) publishIngestedEvent(ctx context.Context, snapshot *dto.RunSnapshotDTO) {
	if uc.events == nil {
		return
	}

	if err := uc.events.PublishEvent(ctx, SubjectRunIngested, snapshot); err != nil {
		uc.logger.Warn("Failed to publish ingested event", "error", err.Error())
	}
}

func (uc *IngestRunUseCase) publishServiceMetrics(ctx context.Context, record *entity.RunRecord, regressions []service.Regression) {
	if uc.metrics == nil {
		return
	}

	now := time.Now()
	dimensions := map[string]string{"Suite": record.Suite()}

	batch := []port.ServiceMetric{
		{
			Name:       "RunsIngested",
			Value:      1,
			Unit:       "count",
			Timestamp:  now,
			Dimensions: dimensions,
		},
		{
			Name:       "MeasurementsIngested",
			Value:      float64(record.MeasurementCount()),
			Unit:       "count",
			Timestamp:  now,
			Dimensions: dimensions,
		},
		{
			Name:       "RegressionsDetected",
			Value:      float64(len(regressions)),
			Unit:       "count",
			Timestamp:  now,
			Dimensions: dimensions,
		},
	}

	if err := uc.metrics.PublishBatch(ctx, batch); err != nil {
		uc.logger.Warn("Failed to publish service metrics", "error", err.Error())
	}
}

func (uc *IngestRunUseCase) invalidateTrendCache(suite string) {
	if uc.cache == nil {
		return
	}

	// Асинхронно, не блокируем ответ
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		pattern := fmt.Sprintf("trend:%s:*", suite)
		if err := uc.cache.DeletePattern(ctx, pattern); err != nil {
			uc.logger.Warn("Failed to invalidate trend cache", "error", err.Error())
		}
	}()
}
