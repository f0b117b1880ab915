package workers

import (
	"chat-notify/observability"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// SelfStatsWorker periodically samples this process's memory and CPU usage
// and publishes them as gauges. Sampling is cheap and read-only, so a missed
// tick is harmless.
type SelfStatsWorker struct {
	log      *slog.Logger
	interval time.Duration
}

func NewSelfStatsWorker(log *slog.Logger, interval time.Duration) *SelfStatsWorker {
	return &SelfStatsWorker{log: log, interval: interval}
}

func (w *SelfStatsWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rss, cpu, err := selfStats(p)
			if err != nil {
				w.log.Warn("Failed to collect self stats", "error", err)
				continue
			}
			observability.SelfRSSBytes.Set(float64(rss))
			observability.SelfCPUPercent.Set(cpu)
			w.log.Debug("Self stats", "rss_bytes", rss, "cpu_percent", cpu)
		}
	}
}

func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
