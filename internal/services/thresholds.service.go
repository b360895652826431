package services

import (
	"sync"

	"nazar/internal/models"
)

// DefaultThresholds are used when no configuration overrides them
func DefaultThresholds() models.Thresholds {
	return models.Thresholds{
		CPUPercent:          85,
		RAMPercent:          85,
		DiskActivityPercent: 90,
		MinFreeDiskGB:       10,
	}
}

// ThresholdStore is the shared, runtime-mutable threshold configuration.
// Values are not validated here; callers own that.
type ThresholdStore struct {
	mu sync.RWMutex
	t  models.Thresholds
}

func NewThresholdStore(t models.Thresholds) *ThresholdStore {
	return &ThresholdStore{t: t}
}

// Get returns a copy of the current thresholds.
func (s *ThresholdStore) Get() models.Thresholds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.t
}

// Set replaces all thresholds at once.
func (s *ThresholdStore) Set(t models.Thresholds) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t = t
}

func (s *ThresholdStore) SetCPUPercent(v float64) {
	s.mu.Lock()
	s.t.CPUPercent = v
	s.mu.Unlock()
}

func (s *ThresholdStore) SetRAMPercent(v float64) {
	s.mu.Lock()
	s.t.RAMPercent = v
	s.mu.Unlock()
}

func (s *ThresholdStore) SetDiskActivityPercent(v float64) {
	s.mu.Lock()
	s.t.DiskActivityPercent = v
	s.mu.Unlock()
}

func (s *ThresholdStore) SetMinFreeDiskGB(v float64) {
	s.mu.Lock()
	s.t.MinFreeDiskGB = v
	s.mu.Unlock()
}
