package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"go.uber.org/zap"

	"nazar/internal/models"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// SystemSource reads live metrics from the host through gopsutil.
type SystemSource struct {
	// diskPaths restricts partition usage to these mount points; empty means
	// every physical partition.
	diskPaths []string
	logger    *zap.Logger
}

func NewSystemSource(diskPaths []string, logger *zap.Logger) *SystemSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SystemSource{diskPaths: diskPaths, logger: logger}
}

// CPUPercent returns overall CPU usage since the previous call
func (s *SystemSource) CPUPercent(ctx context.Context) (float64, error) {
	percentage, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, fmt.Errorf("cpu percent: %w", err)
	}
	if len(percentage) == 0 {
		return 0, errors.New("cpu percent: no data")
	}
	return percentage[0], nil
}

// Memory returns physical memory usage in MB
func (s *SystemSource) Memory(ctx context.Context) (models.MemoryReading, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return models.MemoryReading{}, fmt.Errorf("virtual memory: %w", err)
	}
	return models.MemoryReading{
		TotalMB:     vm.Total / models.MB,
		UsedMB:      vm.Used / models.MB,
		AvailableMB: vm.Available / models.MB,
	}, nil
}

// Partitions returns usage for every physical partition that can be read.
// Unreadable mounts are skipped.
func (s *SystemSource) Partitions(ctx context.Context) ([]models.DiskPartition, error) {
	partitions, err := s.partitionStats(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.DiskPartition, 0, len(partitions))
	for _, partition := range partitions {
		usage, err := disk.UsageWithContext(ctx, partition.Mountpoint)
		if err != nil {
			s.logger.Debug("skipping partition",
				zap.String("mountpoint", partition.Mountpoint), zap.Error(err))
			continue
		}
		if usage.Total == 0 {
			continue
		}
		out = append(out, models.DiskPartition{
			Path:       partition.Mountpoint,
			Filesystem: fstype(partition.Fstype, usage.Fstype),
			TotalGB:    float64(usage.Total) / models.GB,
			UsedGB:     float64(usage.Used) / models.GB,
			FreeGB:     float64(usage.Free) / models.GB,
		})
	}
	return out, nil
}

func (s *SystemSource) partitionStats(ctx context.Context) ([]disk.PartitionStat, error) {
	if len(s.diskPaths) > 0 {
		out := make([]disk.PartitionStat, 0, len(s.diskPaths))
		for _, p := range s.diskPaths {
			out = append(out, disk.PartitionStat{Mountpoint: p})
		}
		return out, nil
	}
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("disk partitions: %w", err)
	}
	return partitions, nil
}

// DiskBusyTime returns the average cumulative I/O time across disks, so two
// reads divided by wall time give a busy percentage comparable to a single
// disk's.
func (s *SystemSource) DiskBusyTime(ctx context.Context) (time.Duration, error) {
	counters, err := disk.IOCountersWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("disk io counters: %w", err)
	}
	if len(counters) == 0 {
		return 0, errors.New("disk io counters: no disks")
	}
	var total uint64
	for _, c := range counters {
		total += c.IoTime
	}
	return time.Duration(total/uint64(len(counters))) * time.Millisecond, nil
}

// Network returns byte counters summed over all interfaces and the number
// of non-loopback interfaces that are up.
func (s *SystemSource) Network(ctx context.Context) (models.NetworkReading, error) {
	counters, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		return models.NetworkReading{}, fmt.Errorf("net io counters: %w", err)
	}

	var reading models.NetworkReading
	for _, c := range counters {
		reading.BytesSent += c.BytesSent
		reading.BytesRecv += c.BytesRecv
	}

	interfaces, err := net.InterfacesWithContext(ctx)
	if err != nil {
		return models.NetworkReading{}, fmt.Errorf("net interfaces: %w", err)
	}
	for _, iface := range interfaces {
		if isActiveAdapter(iface.Flags) {
			reading.ActiveAdapters++
		}
	}
	return reading, nil
}

func fstype(fromPartition, fromUsage string) string {
	if fromPartition != "" {
		return fromPartition
	}
	return fromUsage
}

func isActiveAdapter(flags []string) bool {
	up := false
	for _, f := range flags {
		switch f {
		case "loopback":
			return false
		case "up":
			up = true
		}
	}
	return up
}

// ProcessCount returns the number of running processes
func (s *SystemSource) ProcessCount(ctx context.Context) (int, error) {
	if runtime.GOOS == "linux" {
		return processCountLinux()
	}
	pids, err := process.PidsWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("process ids: %w", err)
	}
	return len(pids), nil
}

// processCountLinux counts numeric entries in /proc, which is much cheaper
// than building gopsutil process handles.
func processCountLinux() (int, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return 0, fmt.Errorf("read /proc: %w", err)
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := strconv.ParseInt(entry.Name(), 10, 32); err != nil {
			continue
		}
		count++
	}
	return count, nil
}

// Uptime returns time since boot
func (s *SystemSource) Uptime(ctx context.Context) (time.Duration, error) {
	secs, err := host.UptimeWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("host uptime: %w", err)
	}
	return time.Duration(secs) * time.Second, nil
}
