package models

import (
	"encoding/json"
	"slices"
	"time"
)

const (
	// MB is the number of bytes in a mebibyte
	MB = 1024 * 1024
	// GB is the number of bytes in a gibibyte
	GB = 1024 * 1024 * 1024
)

// Snapshot is one point-in-time read of all sampled system metrics.
// Percentages and Mbps values are methods so they are always derived from
// the raw counts they describe.
type Snapshot struct {
	Timestamp           time.Time       `json:"timestamp"`
	CPUPercent          float64         `json:"cpu_percent"`
	RAMTotalMB          uint64          `json:"ram_total_mb"`
	RAMUsedMB           uint64          `json:"ram_used_mb"`
	RAMAvailableMB      uint64          `json:"ram_available_mb"`
	DiskActivityPercent float64         `json:"disk_activity_percent"`
	Partitions          []DiskPartition `json:"partitions"`
	BytesSentPerSec     float64         `json:"bytes_sent_per_sec"`
	BytesRecvPerSec     float64         `json:"bytes_recv_per_sec"`
	ActiveAdapters      int             `json:"active_adapters"`
	// NetworkSampled is false when the network counters could not be read,
	// in which case the rate and adapter fields carry no information.
	NetworkSampled bool          `json:"network_sampled"`
	ProcessCount   int           `json:"process_count"`
	Uptime         time.Duration `json:"uptime"`
}

// Clone returns a copy that shares no memory with s.
func (s Snapshot) Clone() Snapshot {
	s.Partitions = slices.Clone(s.Partitions)
	return s
}

// RAMPercent returns used RAM as a percentage of total, 0 when total is unknown.
func (s Snapshot) RAMPercent() float64 {
	if s.RAMTotalMB == 0 {
		return 0
	}
	return float64(s.RAMUsedMB) / float64(s.RAMTotalMB) * 100
}

// UploadMbps converts the send rate to megabits per second.
func (s Snapshot) UploadMbps() float64 {
	return s.BytesSentPerSec * 8 / 1e6
}

// DownloadMbps converts the receive rate to megabits per second.
func (s Snapshot) DownloadMbps() float64 {
	return s.BytesRecvPerSec * 8 / 1e6
}

// LowestFreePartition returns the partition with the least free space.
// ok is false when no partitions were collected.
func (s Snapshot) LowestFreePartition() (p DiskPartition, ok bool) {
	for i, part := range s.Partitions {
		if i == 0 || part.FreeGB < p.FreeGB {
			p = part
			ok = true
		}
	}
	return p, ok
}

// MarshalJSON adds the derived fields to the wire form.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type raw Snapshot
	return json.Marshal(struct {
		raw
		RAMPercent    float64 `json:"ram_percent"`
		UploadMbps    float64 `json:"upload_mbps"`
		DownloadMbps  float64 `json:"download_mbps"`
		UptimeSeconds float64 `json:"uptime_seconds"`
	}{
		raw:           raw(s),
		RAMPercent:    s.RAMPercent(),
		UploadMbps:    s.UploadMbps(),
		DownloadMbps:  s.DownloadMbps(),
		UptimeSeconds: s.Uptime.Seconds(),
	})
}
