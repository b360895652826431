package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"nazar/internal/models"
)

// DefaultInterval is the sampling period used when none is configured
const DefaultInterval = 2 * time.Second

// MetricsSource reads raw counters from the operating system.
// Each method covers one metric family so a failure in one does not
// prevent the others from being collected.
type MetricsSource interface {
	CPUPercent(ctx context.Context) (float64, error)
	Memory(ctx context.Context) (models.MemoryReading, error)
	Partitions(ctx context.Context) ([]models.DiskPartition, error)
	// DiskBusyTime is cumulative time the disks spent servicing I/O
	DiskBusyTime(ctx context.Context) (time.Duration, error)
	Network(ctx context.Context) (models.NetworkReading, error)
	ProcessCount(ctx context.Context) (int, error)
	Uptime(ctx context.Context) (time.Duration, error)
}

// CollectorConfig sizes the history buffer and the rate sampling window.
type CollectorConfig struct {
	HistorySize int
	// SampleWindow is the gap between the two counter reads used for
	// network and disk activity rates.
	SampleWindow time.Duration
}

func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		HistorySize:  600,
		SampleWindow: 500 * time.Millisecond,
	}
}

// Collector samples a MetricsSource on a fixed interval, keeps a bounded
// history and publishes every snapshot to its subscribers.
type Collector struct {
	source  MetricsSource
	cfg     CollectorConfig
	logger  *zap.Logger
	now     func() time.Time
	observe func(time.Duration)

	mu      sync.RWMutex
	history []models.Snapshot // oldest first

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	subscribers *Broadcaster[models.Snapshot]
}

// CollectorOption customises a Collector
type CollectorOption func(*Collector)

// WithCollectorClock replaces time.Now for snapshot timestamps.
func WithCollectorClock(now func() time.Time) CollectorOption {
	return func(c *Collector) { c.now = now }
}

// WithCollectionObserver is called with the duration of every collection.
func WithCollectionObserver(fn func(time.Duration)) CollectorOption {
	return func(c *Collector) { c.observe = fn }
}

func NewCollector(source MetricsSource, cfg CollectorConfig, logger *zap.Logger, opts ...CollectorOption) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultCollectorConfig()
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = def.HistorySize
	}
	if cfg.SampleWindow < 0 {
		cfg.SampleWindow = 0
	}

	c := &Collector{
		source:      source,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
		history:     make([]models.Snapshot, 0, cfg.HistorySize),
		subscribers: NewBroadcaster[models.Snapshot]("snapshots", logger),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins periodic collection. The first snapshot is taken immediately.
// Calling Start on a running collector does nothing.
func (c *Collector) Start(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true

	go c.run(ctx, interval, c.done)

	c.logger.Info("collector started", zap.Duration("interval", interval), zap.Stringer("config", c.cfg))
}

// Stop halts collection and waits for an in-flight tick to finish.
// Called synchronously from a subscriber it would wait on its own tick and
// deadlock; subscribers stop the collector with go c.Stop().
func (c *Collector) Stop() {
	c.runMu.Lock()
	if !c.running {
		c.runMu.Unlock()
		return
	}
	c.running = false
	cancel, done := c.cancel, c.done
	c.runMu.Unlock()

	cancel()
	<-done
	c.logger.Info("collector stopped")
}

// Running reports whether the collection loop is active.
func (c *Collector) Running() bool {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return c.running
}

func (c *Collector) run(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		// A tick that has started runs to completion even if Stop is called.
		c.tick(context.WithoutCancel(ctx))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Collector) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("collection tick panicked", zap.Any("panic", r))
		}
	}()

	start := time.Now()
	snap := c.CollectOnce(ctx)
	c.record(snap)
	if c.observe != nil {
		c.observe(time.Since(start))
	}
	c.subscribers.Publish(snap)
}

// CollectOnce takes a single snapshot without recording or publishing it.
// Metric families that fail are left at their zero value.
func (c *Collector) CollectOnce(ctx context.Context) models.Snapshot {
	snap := models.Snapshot{Timestamp: c.now()}

	c.acquire("cpu", func() error {
		v, err := c.source.CPUPercent(ctx)
		if err != nil {
			return err
		}
		snap.CPUPercent = clampPercent(v)
		return nil
	})

	c.acquire("memory", func() error {
		m, err := c.source.Memory(ctx)
		if err != nil {
			return err
		}
		snap.RAMTotalMB = m.TotalMB
		snap.RAMUsedMB = m.UsedMB
		snap.RAMAvailableMB = m.AvailableMB
		return nil
	})

	c.acquire("partitions", func() error {
		parts, err := c.source.Partitions(ctx)
		if err != nil {
			return err
		}
		snap.Partitions = parts
		return nil
	})

	c.acquire("processes", func() error {
		n, err := c.source.ProcessCount(ctx)
		if err != nil {
			return err
		}
		snap.ProcessCount = n
		return nil
	})

	c.acquire("uptime", func() error {
		d, err := c.source.Uptime(ctx)
		if err != nil {
			return err
		}
		snap.Uptime = d
		return nil
	})

	c.sampleRates(ctx, &snap)
	return snap
}

// sampleRates reads the cumulative network and disk counters twice, one
// sample window apart, and stores the rates computed from the difference.
func (c *Collector) sampleRates(ctx context.Context, snap *models.Snapshot) {
	var (
		net0, net1   models.NetworkReading
		busy0, busy1 time.Duration
	)
	netOK := c.acquire("network", func() (err error) {
		net0, err = c.source.Network(ctx)
		return err
	})
	diskOK := c.acquire("disk activity", func() (err error) {
		busy0, err = c.source.DiskBusyTime(ctx)
		return err
	})
	start := time.Now()

	if !sleepCtx(ctx, c.cfg.SampleWindow) {
		return
	}

	netOK = netOK && c.acquire("network", func() (err error) {
		net1, err = c.source.Network(ctx)
		return err
	})
	diskOK = diskOK && c.acquire("disk activity", func() (err error) {
		busy1, err = c.source.DiskBusyTime(ctx)
		return err
	})
	elapsed := time.Since(start)
	if elapsed <= 0 {
		return
	}

	if netOK {
		snap.BytesSentPerSec = counterRate(net0.BytesSent, net1.BytesSent, elapsed)
		snap.BytesRecvPerSec = counterRate(net0.BytesRecv, net1.BytesRecv, elapsed)
		snap.ActiveAdapters = net1.ActiveAdapters
		snap.NetworkSampled = true
	}
	if diskOK && busy1 >= busy0 {
		snap.DiskActivityPercent = clampPercent(float64(busy1-busy0) / float64(elapsed) * 100)
	}
}

// acquire runs one metric read, turning errors and panics into a logged
// warning. It reports whether the read succeeded.
func (c *Collector) acquire(family string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("metric read panicked", zap.String("family", family), zap.Any("panic", r))
			ok = false
		}
	}()
	if err := fn(); err != nil {
		c.logger.Warn("metric read failed", zap.String("family", family), zap.Error(err))
		return false
	}
	return true
}

func (c *Collector) record(s models.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.history) >= c.cfg.HistorySize {
		// shift left in place, keeping the backing array
		n := copy(c.history, c.history[len(c.history)-c.cfg.HistorySize+1:])
		c.history = c.history[:n]
	}
	c.history = append(c.history, s.Clone())
}

// GetRecent returns up to count of the newest snapshots in chronological
// order. count <= 0 or larger than the history returns everything.
func (c *Collector) GetRecent(count int) []models.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if count <= 0 || count > len(c.history) {
		count = len(c.history)
	}
	out := make([]models.Snapshot, 0, count)
	for _, s := range c.history[len(c.history)-count:] {
		out = append(out, s.Clone())
	}
	return out
}

// Latest returns the newest snapshot, if any.
func (c *Collector) Latest() (models.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.history) == 0 {
		return models.Snapshot{}, false
	}
	return c.history[len(c.history)-1].Clone(), true
}

// Len is the number of snapshots held.
func (c *Collector) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.history)
}

// Subscribe registers fn for every collected snapshot. fn runs on the
// collection goroutine and must not call Stop.
func (c *Collector) Subscribe(fn func(models.Snapshot)) (unsubscribe func()) {
	return c.subscribers.Subscribe(fn)
}

// counterRate is bytes per second between two cumulative readings.
// A counter that went backwards was reset and yields 0.
func counterRate(before, after uint64, elapsed time.Duration) float64 {
	if after < before || elapsed <= 0 {
		return 0
	}
	return float64(after-before) / elapsed.Seconds()
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// sleepCtx waits for d or until ctx is done, returning false in the latter case.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// String is used in log fields.
func (c CollectorConfig) String() string {
	return fmt.Sprintf("history=%d window=%s", c.HistorySize, c.SampleWindow)
}
