package models

// NetworkReading is a cumulative counter read across all interfaces.
// Rates are computed by the collector from two readings.
type NetworkReading struct {
	BytesSent      uint64 `json:"bytes_sent"`
	BytesRecv      uint64 `json:"bytes_recv"`
	ActiveAdapters int    `json:"active_adapters"`
}

// MemoryReading holds physical memory counts in MB
type MemoryReading struct {
	TotalMB     uint64 `json:"total_mb"`
	UsedMB      uint64 `json:"used_mb"`
	AvailableMB uint64 `json:"available_mb"`
}
