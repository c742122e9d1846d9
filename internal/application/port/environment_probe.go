package port

import (
	"context"

	"github.com/dreschagin/bench-history/internal/domain/valueobject"
)

// HostEnvironment описывает окружение, в котором выполнялся прогон бенчмарков.
// CPU попадает в поле `cpu` run record, Extra - в environment-теги.
type HostEnvironment struct {
	CPU   valueobject.CPUInfo
	Extra map[string]string
}

// EnvironmentProbe определяет интерфейс сбора описания окружения (Port)
// Реализация будет в Infrastructure слое (gopsutil)
type EnvironmentProbe interface {
	// Describe собирает дескриптор текущей машины
	Describe(ctx context.Context) (HostEnvironment, error)
}
