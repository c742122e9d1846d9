package envinfo

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/dreschagin/bench-history/internal/application/port"
	"github.com/dreschagin/bench-history/internal/domain/valueobject"
)

// HostProbe собирает дескриптор текущей машины через gopsutil.
// Реализует port.EnvironmentProbe. Используется CI-клиентом для
// заполнения полей cpu и extra прогона.
type HostProbe struct{}

// NewHostProbe создает новый HostProbe
func NewHostProbe() *HostProbe {
	return &HostProbe{}
}

// Describe собирает дескриптор текущей машины
func (p *HostProbe) Describe(ctx context.Context) (port.HostEnvironment, error) {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return port.HostEnvironment{}, fmt.Errorf("failed to read cpu info: %w", err)
	}

	model := ""
	speedMHz := 0.0
	if len(infos) > 0 {
		model = infos[0].ModelName
		speedMHz = infos[0].Mhz
	}

	physical, err := cpu.CountsWithContext(ctx, false)
	if err != nil {
		physical = 0
	}
	logical, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		logical = runtime.NumCPU()
	}

	cpuInfo, err := valueobject.NewCPUInfo(model, speedMHz, physical, logical)
	if err != nil {
		return port.HostEnvironment{}, fmt.Errorf("invalid cpu descriptor: %w", err)
	}

	extra := map[string]string{
		"os":   runtime.GOOS,
		"arch": runtime.GOARCH,
	}

	if hostInfo, err := host.InfoWithContext(ctx); err == nil {
		extra["platform"] = hostInfo.Platform
		extra["platform_version"] = hostInfo.PlatformVersion
		extra["kernel"] = hostInfo.KernelVersion
	}

	if vmStat, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		extra["ram_mb"] = strconv.FormatUint(vmStat.Total/1024/1024, 10)
	}

	return port.HostEnvironment{
		CPU:   cpuInfo,
		Extra: extra,
	}, nil
}
