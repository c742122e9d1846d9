package valueobject

import (
	"errors"
	"fmt"
)

// CPUInfo описывает процессор, на котором выполнялся прогон (Value Object)
// Заполняется агентом на стороне CI и хранится как часть run record.
type CPUInfo struct {
	model         string
	speedMHz      float64
	physicalCores int
	logicalCores  int
}

// NewCPUInfo создает новый CPUInfo с валидацией
func NewCPUInfo(model string, speedMHz float64, physicalCores, logicalCores int) (CPUInfo, error) {
	if speedMHz < 0 {
		return CPUInfo{}, errors.New("cpu speed cannot be negative")
	}

	if physicalCores < 0 || logicalCores < 0 {
		return CPUInfo{}, errors.New("core counts cannot be negative")
	}

	if logicalCores > 0 && physicalCores > logicalCores {
		return CPUInfo{}, errors.New("physical cores cannot exceed logical cores")
	}

	return CPUInfo{
		model:         model,
		speedMHz:      speedMHz,
		physicalCores: physicalCores,
		logicalCores:  logicalCores,
	}, nil
}

// Model возвращает модель процессора
func (c CPUInfo) Model() string {
	return c.model
}

// SpeedMHz возвращает тактовую частоту в МГц
func (c CPUInfo) SpeedMHz() float64 {
	return c.speedMHz
}

// PhysicalCores возвращает количество физических ядер
func (c CPUInfo) PhysicalCores() int {
	return c.physicalCores
}

// LogicalCores возвращает количество логических ядер
func (c CPUInfo) LogicalCores() int {
	return c.logicalCores
}

// IsZero сообщает, что дескриптор не был заполнен
func (c CPUInfo) IsZero() bool {
	return c.model == "" && c.speedMHz == 0 && c.physicalCores == 0 && c.logicalCores == 0
}

// String возвращает строковое представление
func (c CPUInfo) String() string {
	return fmt.Sprintf("%s (%.0f MHz, %d/%d cores)", c.model, c.speedMHz, c.physicalCores, c.logicalCores)
}
