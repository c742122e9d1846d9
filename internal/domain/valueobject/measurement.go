package valueobject

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Measurement представляет одно измерение бенчмарка (Value Object)
// Иммутабельный объект: имя теста, скорость выполнения, разброс и категория.
type Measurement struct {
	name  string
	value float64
	unit  string
	rng   string
	group string
	extra string
}

// NewMeasurement создает новый Measurement с валидацией
func NewMeasurement(name string, value float64, unit string) (Measurement, error) {
	if strings.TrimSpace(name) == "" {
		return Measurement{}, errors.New("measurement name cannot be empty")
	}

	if strings.TrimSpace(unit) == "" {
		return Measurement{}, errors.New("measurement unit cannot be empty")
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Measurement{}, errors.New("measurement value must be finite")
	}

	if value < 0 {
		return Measurement{}, errors.New("measurement value cannot be negative")
	}

	return Measurement{
		name:  name,
		value: value,
		unit:  unit,
	}, nil
}

// WithRange возвращает копию со строкой разброса (формат "stddev: 0.00123")
func (m Measurement) WithRange(rng string) Measurement {
	m.rng = rng
	return m
}

// WithGroup возвращает копию с категорией измерения
func (m Measurement) WithGroup(group string) Measurement {
	m.group = group
	return m
}

// WithExtra возвращает копию с текстовой сводкой (mean/rounds и т.п.)
func (m Measurement) WithExtra(extra string) Measurement {
	m.extra = extra
	return m
}

// Name возвращает идентификатор теста
func (m Measurement) Name() string {
	return m.name
}

// Value возвращает числовое значение (скорость выполнения)
func (m Measurement) Value() float64 {
	return m.value
}

// Unit возвращает единицу измерения
func (m Measurement) Unit() string {
	return m.unit
}

// Range возвращает строку разброса в исходном виде
func (m Measurement) Range() string {
	return m.rng
}

// Group возвращает категорию измерения
func (m Measurement) Group() string {
	return m.group
}

// Extra возвращает текстовую сводку измерения
func (m Measurement) Extra() string {
	return m.extra
}

// Stddev извлекает числовое значение из строки разброса.
// Поддерживаются форматы "stddev: 0.0123" и "± 0.0123"; при ошибке возвращает 0.
func (m Measurement) Stddev() float64 {
	raw := strings.TrimSpace(m.rng)
	raw = strings.TrimPrefix(raw, "stddev:")
	raw = strings.TrimPrefix(raw, "±")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		return 0
	}

	return value
}

// IsRate сообщает, что большее значение лучше (метрика скорости, а не длительности)
func (m Measurement) IsRate() bool {
	unit := strings.ToLower(m.unit)
	return strings.HasSuffix(unit, "/sec") || strings.HasSuffix(unit, "/s")
}

// String возвращает строковое представление
func (m Measurement) String() string {
	return fmt.Sprintf("%s: %g %s", m.name, m.value, m.unit)
}

// Equals сравнивает два измерения
func (m Measurement) Equals(other Measurement) bool {
	return m.name == other.name && m.value == other.value && m.unit == other.unit
}
