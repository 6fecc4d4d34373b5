package telemetry

import (
	"sync"
	"time"
)

// QueueStats is implemented by components with a pending backlog
type QueueStats interface {
	Len() int
}

// MetricsCollector periodically samples backlog sizes into gauges
type MetricsCollector struct {
	mirror   QueueStats
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(mirror QueueStats, interval time.Duration) *MetricsCollector {
	return &MetricsCollector{
		mirror:   mirror,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic collection
func (mc *MetricsCollector) Start() {
	mc.wg.Add(1)
	go mc.collectLoop()
}

// Stop stops the collector
func (mc *MetricsCollector) Stop() {
	close(mc.stopCh)
	mc.wg.Wait()
}

func (mc *MetricsCollector) collectLoop() {
	defer mc.wg.Done()

	ticker := time.NewTicker(mc.interval)
	defer ticker.Stop()

	mc.collect()

	for {
		select {
		case <-ticker.C:
			mc.collect()
		case <-mc.stopCh:
			return
		}
	}
}

func (mc *MetricsCollector) collect() {
	if mc.mirror == nil {
		return
	}
	MirrorPending.Set(float64(mc.mirror.Len()))
}
