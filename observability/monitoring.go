package observability

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// MonitoringStats aggregates the engine's metrics for the debug UI.
type MonitoringStats struct {
	ActiveConnections int64  `json:"active_connections"`
	EventsRouted      uint64 `json:"events_routed"`
	EventsDropped     uint64 `json:"events_dropped"`
	EmissionsSent     uint64 `json:"emissions_sent"`
	EmissionsDropped  uint64 `json:"emissions_dropped"`
	MalformedFrames   uint64 `json:"malformed_frames"`

	// Process self-stats, refreshed by the heartbeat worker.
	CPUPercent float64 `json:"cpu_percent"`
	RSSMb      uint64  `json:"rss_mb"`

	AllocMemMb uint64 `json:"alloc_mem_mb"`
	NumGC      uint32 `json:"num_gc"`
}

// MonitoringManager collects real-time telemetry. Counters are atomic so the
// router and transport can increment them without coordination; snapshots
// are refreshed on a ticker.
type MonitoringManager struct {
	log         *slog.Logger
	mu          sync.RWMutex
	latestStats MonitoringStats

	activeConnections int64
	eventsRouted      uint64
	eventsDropped     uint64
	emissionsSent     uint64
	emissionsDropped  uint64
	malformedFrames   uint64
}

func NewMonitoringManager(log *slog.Logger) *MonitoringManager {
	return &MonitoringManager{log: log}
}

func (mm *MonitoringManager) IncrConnectionsOpened() {
	atomic.AddInt64(&mm.activeConnections, 1)
}

func (mm *MonitoringManager) IncrConnectionsClosed() {
	atomic.AddInt64(&mm.activeConnections, -1)
}

func (mm *MonitoringManager) IncrEventsRouted() {
	atomic.AddUint64(&mm.eventsRouted, 1)
}

func (mm *MonitoringManager) IncrEventsDropped() {
	atomic.AddUint64(&mm.eventsDropped, 1)
}

func (mm *MonitoringManager) IncrEmissionsSent() {
	atomic.AddUint64(&mm.emissionsSent, 1)
}

func (mm *MonitoringManager) IncrEmissionsDropped() {
	atomic.AddUint64(&mm.emissionsDropped, 1)
}

func (mm *MonitoringManager) IncrMalformedFrames() {
	atomic.AddUint64(&mm.malformedFrames, 1)
}

// SetProcessStats merges self-stats reported by the heartbeat worker.
func (mm *MonitoringManager) SetProcessStats(cpuPercent float64, rssBytes uint64) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.latestStats.CPUPercent = cpuPercent
	mm.latestStats.RSSMb = rssBytes / 1024 / 1024
}

// Listen refreshes the snapshot every second until the context is canceled.
func (mm *MonitoringManager) Listen(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			mm.log.Info("Monitoring manager stopped")
			return
		case <-ticker.C:
			mm.updateStats()
		}
	}
}

func (mm *MonitoringManager) updateStats() {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	mm.latestStats.ActiveConnections = atomic.LoadInt64(&mm.activeConnections)
	mm.latestStats.EventsRouted = atomic.LoadUint64(&mm.eventsRouted)
	mm.latestStats.EventsDropped = atomic.LoadUint64(&mm.eventsDropped)
	mm.latestStats.EmissionsSent = atomic.LoadUint64(&mm.emissionsSent)
	mm.latestStats.EmissionsDropped = atomic.LoadUint64(&mm.emissionsDropped)
	mm.latestStats.MalformedFrames = atomic.LoadUint64(&mm.malformedFrames)

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	mm.latestStats.AllocMemMb = m.Alloc / 1024 / 1024
	mm.latestStats.NumGC = m.NumGC

	mm.log.Debug("Stats updated",
		"active_connections", mm.latestStats.ActiveConnections,
		"events_routed", mm.latestStats.EventsRouted,
		"emissions_sent", mm.latestStats.EmissionsSent,
		"mem_mb", mm.latestStats.AllocMemMb,
	)
}

func (mm *MonitoringManager) GetLatest() MonitoringStats {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.latestStats
}

// AsMap exposes the latest snapshot for the debug inspect page.
func (mm *MonitoringManager) AsMap() map[string]any {
	stats := mm.GetLatest()
	return map[string]any{
		"active_connections": stats.ActiveConnections,
		"events_routed":      stats.EventsRouted,
		"events_dropped":     stats.EventsDropped,
		"emissions_sent":     stats.EmissionsSent,
		"emissions_dropped":  stats.EmissionsDropped,
		"malformed_frames":   stats.MalformedFrames,
		"cpu_percent":        stats.CPUPercent,
		"rss_mb":             stats.RSSMb,
		"alloc_mem_mb":       stats.AllocMemMb,
		"num_gc":             stats.NumGC,
	}
}
