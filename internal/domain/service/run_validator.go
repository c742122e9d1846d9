package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/dreschagin/bench-history/internal/domain/entity"
)

// RunValidator предоставляет сервисы для валидации прогонов (Domain Service)
type RunValidator struct {
	// Допустимое отклонение recorded_at в будущее (рассинхронизация часов CI-агентов)
	clockSkew time.Duration
}

// NewRunValidator создает новый RunValidator
func NewRunValidator() *RunValidator {
	return &RunValidator{clockSkew: 5 * time.Minute}
}

// Validate выполняет полную валидацию прогона
func (v *RunValidator) Validate(record *entity.RunRecord) error {
	if record == nil {
		return errors.New("run record cannot be nil")
	}

	if record.Suite() == "" {
		return errors.New("suite cannot be empty")
	}

	if record.Commit().ID() == "" {
		return errors.New("commit id cannot be empty")
	}

	if record.RecordedAt().IsZero() {
		return errors.New("recorded_at cannot be zero")
	}

	if record.RecordedAt().After(time.Now().Add(v.clockSkew)) {
		return errors.New("recorded_at cannot be in the future")
	}

	if record.MeasurementCount() == 0 {
		return errors.New("run record must contain at least one measurement")
	}

	seen := make(map[string]struct{}, record.MeasurementCount())
	for _, m := range record.Measurements() {
		if _, ok := seen[m.Name()]; ok {
			return fmt.Errorf("duplicate measurement name: %s", m.Name())
		}
		seen[m.Name()] = struct{}{}
	}

	return nil
}

// ValidateBatch валидирует группу прогонов
func (v *RunValidator) ValidateBatch(records []*entity.RunRecord) []error {
	var errs []error

	for i, record := range records {
		if err := v.Validate(record); err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
		}
	}

	return errs
}
