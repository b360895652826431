package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"nazar/internal/models"

	"github.com/shirou/gopsutil/v3/process"
)

// TopProcessLimit is how many processes the collector keeps
const TopProcessLimit = 20

// ProcessLister enumerates processes. SystemProcessLister is the live one.
type ProcessLister interface {
	Processes(ctx context.Context) ([]models.ProcessStatus, error)
}

// processWithScore helps with sorting
type processWithScore struct {
	models.ProcessStatus
	score float64
}

// ProcessCollector refreshes the top processes in the background.
type ProcessCollector struct {
	lister ProcessLister
	logger *zap.Logger

	mu          sync.RWMutex
	processes   []models.ProcessStatus
	totalCPU    float64
	totalMem    float64
	lastUpdated time.Time

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewProcessCollector(lister ProcessLister, logger *zap.Logger) *ProcessCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lister == nil {
		lister = SystemProcessLister{}
	}
	return &ProcessCollector{lister: lister, logger: logger}
}

// Start begins refreshing every interval. It is a no-op when running.
func (pc *ProcessCollector) Start(interval time.Duration) {
	pc.runMu.Lock()
	defer pc.runMu.Unlock()
	if pc.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	pc.cancel = cancel
	pc.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if err := pc.Refresh(ctx); err != nil && ctx.Err() == nil {
				pc.logger.Warn("process collection failed", zap.Error(err))
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}(pc.done)

	pc.logger.Info("process collector started", zap.Duration("interval", interval))
}

// Stop halts the background refresh and waits for it to exit.
func (pc *ProcessCollector) Stop() {
	pc.runMu.Lock()
	cancel, done := pc.cancel, pc.done
	pc.cancel = nil
	pc.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	pc.logger.Info("process collector stopped")
}

// Refresh collects once and replaces the cached list.
func (pc *ProcessCollector) Refresh(ctx context.Context) error {
	processes, totalCPU, totalMem, err := TopProcesses(ctx, pc.lister, TopProcessLimit)
	if err != nil {
		return err
	}

	pc.mu.Lock()
	pc.processes = processes
	pc.totalCPU = totalCPU
	pc.totalMem = totalMem
	pc.lastUpdated = time.Now()
	pc.mu.Unlock()
	return nil
}

// Cached returns the latest process list with CPU and memory totals.
func (pc *ProcessCollector) Cached() ([]models.ProcessStatus, float64, float64, time.Time) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	out := make([]models.ProcessStatus, len(pc.processes))
	copy(out, pc.processes)
	return out, pc.totalCPU, pc.totalMem, pc.lastUpdated
}

// TopProcesses ranks processes by CPU + memory and keeps the first limit.
// Pipeline: Collect → Enrich → Sort → Limit
func TopProcesses(ctx context.Context, lister ProcessLister, limit int) ([]models.ProcessStatus, float64, float64, error) {
	all, err := lister.Processes(ctx)
	if err != nil {
		return nil, 0, 0, err
	}

	limited := limitTo(sortByScore(enrichWithScores(all)), limit)

	var totalCPU, totalMem float64
	result := make([]models.ProcessStatus, 0, len(limited))
	for _, p := range limited {
		result = append(result, p.ProcessStatus)
		totalCPU += p.CPUPercent
		totalMem += float64(p.MemPercent)
	}
	return result, totalCPU, totalMem, nil
}

// ENRICH: combined CPU + memory score
func enrichWithScores(processes []models.ProcessStatus) []processWithScore {
	enriched := make([]processWithScore, len(processes))
	for i, p := range processes {
		enriched[i] = processWithScore{
			ProcessStatus: p,
			score:         p.CPUPercent + float64(p.MemPercent),
		}
	}
	return enriched
}

// SORT: by score descending, PID breaks ties so output is stable
func sortByScore(processes []processWithScore) []processWithScore {
	sort.Slice(processes, func(i, j int) bool {
		if processes[i].score == processes[j].score {
			return processes[i].PID < processes[j].PID
		}
		return processes[i].score > processes[j].score
	})
	return processes
}

// LIMIT: keep only top N
func limitTo(processes []processWithScore, limit int) []processWithScore {
	if limit > 0 && len(processes) > limit {
		return processes[:limit]
	}
	return processes
}

// SystemProcessLister lists host processes through gopsutil.
type SystemProcessLister struct{}

func (SystemProcessLister) Processes(ctx context.Context) ([]models.ProcessStatus, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	out := make([]models.ProcessStatus, 0, len(procs))
	seen := make(map[int32]bool, len(procs))
	for _, p := range procs {
		if seen[p.Pid] {
			continue
		}
		seen[p.Pid] = true

		name, err := p.NameWithContext(ctx)
		if err != nil {
			// process exited between listing and reading
			continue
		}
		cpuPercent, err := p.CPUPercentWithContext(ctx)
		if err != nil {
			cpuPercent = 0
		}
		memPercent, err := p.MemoryPercentWithContext(ctx)
		if err != nil {
			memPercent = 0
		}
		state := "unknown"
		if status, err := p.StatusWithContext(ctx); err == nil && len(status) > 0 {
			state = mapProcessState(status[0])
		}

		out = append(out, models.ProcessStatus{
			PID:        p.Pid,
			Name:       name,
			CPUPercent: cpuPercent,
			MemPercent: memPercent,
			Status:     state,
		})
	}
	return out, nil
}

// mapProcessState converts process state codes to readable strings
func mapProcessState(state string) string {
	if len(state) == 0 {
		return "unknown"
	}
	switch state[0] {
	case 'R':
		return "running"
	case 'S':
		return "sleeping"
	case 'D':
		return "disk_sleep"
	case 'Z':
		return "zombie"
	case 'T':
		return "stopped"
	case 't':
		return "tracing_stop"
	case 'W':
		return "paging"
	case 'X', 'x':
		return "dead"
	case 'I':
		return "idle"
	case 'P':
		return "parked"
	default:
		return state
	}
}
