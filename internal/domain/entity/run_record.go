package entity

import (
	"errors"
	"strings"
	"time"

	"github.com/dreschagin/bench-history/internal/domain/valueobject"
	"github.com/google/uuid"
)

// RunRecord представляет один прогон бенчмарков в CI (Aggregate Root)
// Содержит коммит, описание окружения и упорядоченный список измерений.
type RunRecord struct {
	id         string
	suite      string
	commit     valueobject.Commit
	cpu        valueobject.CPUInfo
	extra      map[string]string
	recordedAt time.Time
	createdAt  time.Time
	benches    []valueobject.Measurement
}

// NewRunRecord создает новый RunRecord (Factory Method)
// recordedAt - момент прогона (поле `date` в data-файле).
func NewRunRecord(
	suite string,
	commit valueobject.Commit,
	cpu valueobject.CPUInfo,
	recordedAt time.Time,
	benches []valueobject.Measurement,
) (*RunRecord, error) {
	if strings.TrimSpace(suite) == "" {
		return nil, errors.New("suite cannot be empty")
	}

	if recordedAt.IsZero() {
		return nil, errors.New("recorded_at cannot be zero")
	}

	if len(benches) == 0 {
		return nil, errors.New("run record must contain at least one measurement")
	}

	copied := make([]valueobject.Measurement, len(benches))
	copy(copied, benches)

	return &RunRecord{
		id:         uuid.New().String(),
		suite:      suite,
		commit:     commit,
		cpu:        cpu,
		extra:      make(map[string]string),
		recordedAt: recordedAt,
		createdAt:  time.Now(),
		benches:    copied,
	}, nil
}

// Reconstruct восстанавливает RunRecord из хранилища (для Repository)
func Reconstruct(
	id string,
	suite string,
	commit valueobject.Commit,
	cpu valueobject.CPUInfo,
	extra map[string]string,
	recordedAt, createdAt time.Time,
	benches []valueobject.Measurement,
) *RunRecord {
	if extra == nil {
		extra = make(map[string]string)
	}

	return &RunRecord{
		id:         id,
		suite:      suite,
		commit:     commit,
		cpu:        cpu,
		extra:      extra,
		recordedAt: recordedAt,
		createdAt:  createdAt,
		benches:    benches,
	}
}

// ID возвращает идентификатор прогона
func (r *RunRecord) ID() string {
	return r.id
}

// Suite возвращает название набора (ключ в `entries` data-файла)
func (r *RunRecord) Suite() string {
	return r.suite
}

// Commit возвращает коммит прогона
func (r *RunRecord) Commit() valueobject.Commit {
	return r.commit
}

// CPU возвращает дескриптор процессора
func (r *RunRecord) CPU() valueobject.CPUInfo {
	return r.cpu
}

// Extra возвращает копию environment-тегов
func (r *RunRecord) Extra() map[string]string {
	result := make(map[string]string, len(r.extra))
	for k, v := range r.extra {
		result[k] = v
	}
	return result
}

// RecordedAt возвращает время прогона
func (r *RunRecord) RecordedAt() time.Time {
	return r.recordedAt
}

// CreatedAt возвращает время создания записи
func (r *RunRecord) CreatedAt() time.Time {
	return r.createdAt
}

// Measurements возвращает копию измерений в исходном порядке
func (r *RunRecord) Measurements() []valueobject.Measurement {
	result := make([]valueobject.Measurement, len(r.benches))
	copy(result, r.benches)
	return result
}

// SetExtra устанавливает environment-тег
func (r *RunRecord) SetExtra(key, value string) {
	r.extra[key] = value
}

// Domain Methods (бизнес-логика)

// Find возвращает измерение по имени теста
func (r *RunRecord) Find(name string) (valueobject.Measurement, bool) {
	for _, m := range r.benches {
		if m.Name() == name {
			return m, true
		}
	}
	return valueobject.Measurement{}, false
}

// MeasurementCount возвращает количество измерений
func (r *RunRecord) MeasurementCount() int {
	return len(r.benches)
}

// IsStale проверяет, устарел ли прогон
func (r *RunRecord) IsStale(threshold time.Duration) bool {
	return time.Since(r.recordedAt) > threshold
}

// Age возвращает возраст прогона
func (r *RunRecord) Age() time.Duration {
	return time.Since(r.recordedAt)
}
