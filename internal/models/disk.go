package models

import "encoding/json"

// DiskPartition represents usage of a single mounted partition
type DiskPartition struct {
	Path       string  `json:"path"`
	Filesystem string  `json:"filesystem"`
	TotalGB    float64 `json:"total_gb"`
	UsedGB     float64 `json:"used_gb"`
	FreeGB     float64 `json:"free_gb"`
}

// UsagePercent is derived from used and total space.
func (d DiskPartition) UsagePercent() float64 {
	if d.TotalGB <= 0 {
		return 0
	}
	return d.UsedGB / d.TotalGB * 100
}

func (d DiskPartition) MarshalJSON() ([]byte, error) {
	type raw DiskPartition
	return json.Marshal(struct {
		raw
		UsagePercent float64 `json:"usage_percent"`
	}{raw(d), d.UsagePercent()})
}
