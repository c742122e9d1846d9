package repository

import (
	"context"
	"time"

	"github.com/dreschagin/bench-history/internal/domain/entity"
	"github.com/dreschagin/bench-history/internal/domain/valueobject"
)

// SeriesPoint представляет одну точку тренда отдельного теста.
// Используется для передачи данных между Infrastructure и Application слоями.
type SeriesPoint struct {
	RecordedAt time.Time
	CommitID   string
	Value      float64
	Unit       string
	Range      string
}

// RunRepository определяет интерфейс для работы с хранилищем прогонов (Port)
// Реализация будет в Infrastructure слое
type RunRepository interface {
	// Save сохраняет один прогон вместе с его измерениями
	Save(ctx context.Context, record *entity.RunRecord) error

	// SaveBatch сохраняет несколько прогонов одной транзакцией
	SaveBatch(ctx context.Context, records []*entity.RunRecord) error

	// FindByID находит прогон по идентификатору
	FindByID(ctx context.Context, id string) (*entity.RunRecord, error)

	// FindBySuite находит прогоны набора, новые первыми, с ограничением количества
	FindBySuite(ctx context.Context, suite string, limit int) ([]*entity.RunRecord, error)

	// FindByTimeRange находит прогоны набора в заданном диапазоне
	FindByTimeRange(ctx context.Context, suite string, timeRange valueobject.TimeRange) ([]*entity.RunRecord, error)

	// FindLatest находит последний прогон каждого набора
	FindLatest(ctx context.Context) (map[string]*entity.RunRecord, error)

	// FindLatestBySuite находит последний прогон указанного набора
	FindLatestBySuite(ctx context.Context, suite string) (*entity.RunRecord, error)

	// FindPrevious находит ближайший прогон набора строго раньше указанного момента.
	// Используется как baseline детектором регрессий.
	FindPrevious(ctx context.Context, suite string, before time.Time) (*entity.RunRecord, error)

	// FindMeasurementSeries возвращает тренд одного теста внутри набора
	FindMeasurementSeries(ctx context.Context, suite, testName string, timeRange valueobject.TimeRange) ([]SeriesPoint, error)

	// ExistsByCommit проверяет наличие прогона с таким же коммитом и временем
	ExistsByCommit(ctx context.Context, suite, commitID string, recordedAt time.Time) (bool, error)

	// DeleteOlderThan удаляет прогоны старше указанного момента, возвращает число удаленных
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// TrimSuite оставляет только maxRuns последних прогонов набора
	TrimSuite(ctx context.Context, suite string, maxRuns int) (int64, error)

	// Count возвращает количество прогонов набора
	Count(ctx context.Context, suite string) (int64, error)

	// Suites возвращает список известных наборов в алфавитном порядке
	Suites(ctx context.Context) ([]string, error)
}
