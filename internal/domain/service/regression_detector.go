package service

import (
	"github.com/dreschagin/bench-history/internal/domain/entity"
	"github.com/dreschagin/bench-history/internal/domain/valueobject"
)

// maxSlowdownRatio ограничивает ratio сверху, чтобы значение оставалось JSON-сериализуемым
const maxSlowdownRatio = 1000.0

// Severity описывает серьезность найденной регрессии
type Severity string

const (
	SeverityOK       Severity = "ok"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Regression описывает замедление одного теста относительно baseline-прогона
type Regression struct {
	TestName      string
	Group         string
	Unit          string
	PreviousValue float64
	CurrentValue  float64
	// Ratio - во сколько раз тест стал медленнее; > 1.0 означает деградацию
	Ratio    float64
	Severity Severity
}

// RegressionDetector сравнивает прогон с предыдущим прогоном того же набора (Domain Service)
// Для rate-метрик (iter/sec) деградация - падение значения, для остальных - рост.
type RegressionDetector struct {
	warningRatio  float64
	criticalRatio float64
}

// NewRegressionDetector создает новый детектор с указанными порогами
func NewRegressionDetector(warningRatio, criticalRatio float64) *RegressionDetector {
	if warningRatio <= 1.0 {
		warningRatio = 1.5
	}
	if criticalRatio < warningRatio {
		criticalRatio = 2.0
	}

	return &RegressionDetector{
		warningRatio:  warningRatio,
		criticalRatio: criticalRatio,
	}
}

// Compare находит регрессии текущего прогона относительно предыдущего.
// Тесты без baseline (новые или переименованные) регрессиями не считаются.
func (d *RegressionDetector) Compare(current, previous *entity.RunRecord) []Regression {
	if current == nil || previous == nil {
		return nil
	}

	var regressions []Regression

	for _, m := range current.Measurements() {
		baseline, ok := previous.Find(m.Name())
		if !ok {
			continue
		}
		if baseline.Unit() != m.Unit() {
			continue
		}

		ratio := slowdownRatio(m, baseline)
		severity := d.severityFor(ratio)
		if severity == SeverityOK {
			continue
		}

		regressions = append(regressions, Regression{
			TestName:      m.Name(),
			Group:         m.Group(),
			Unit:          m.Unit(),
			PreviousValue: baseline.Value(),
			CurrentValue:  m.Value(),
			Ratio:         ratio,
			Severity:      severity,
		})
	}

	return regressions
}

func (d *RegressionDetector) severityFor(ratio float64) Severity {
	switch {
	case ratio > d.criticalRatio:
		return SeverityCritical
	case ratio > d.warningRatio:
		return SeverityWarning
	default:
		return SeverityOK
	}
}

// slowdownRatio возвращает коэффициент замедления текущего измерения.
func slowdownRatio(current, baseline valueobject.Measurement) float64 {
	if current.IsRate() {
		if current.Value() == 0 {
			if baseline.Value() == 0 {
				return 1.0
			}
			// Скорость упала до нуля - максимальная деградация
			return maxSlowdownRatio
		}
		return baseline.Value() / current.Value()
	}

	// Для метрик длительности большее значение хуже
	if baseline.Value() == 0 {
		return 1.0
	}
	return current.Value() / baseline.Value()
}
