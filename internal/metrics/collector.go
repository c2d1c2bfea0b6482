// Package metrics collects process and infrastructure health for the server.
package metrics

import (
	"context"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/pulse-ops/statusgraph/internal/store"
)

// CachePinger reports cache connectivity. Nil when the cache is disabled.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// Health is the response body of the health endpoint.
type Health struct {
	Status   string        `json:"status"`
	Time     time.Time     `json:"time"`
	Process  ProcessHealth `json:"process"`
	Database Dependency    `json:"database"`
	Cache    Dependency    `json:"cache"`
}

// ProcessHealth describes the server process itself.
type ProcessHealth struct {
	Goroutines    int     `json:"goroutines"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryMB      float64 `json:"memory_mb"`
	MemoryPercent float64 `json:"memory_percent"`
}

// Dependency describes connectivity to a backing service.
type Dependency struct {
	Status  string `json:"status"`
	Enabled bool   `json:"enabled"`
}

// Collector gathers health metrics with a short-lived cache so the endpoint
// can be polled aggressively without repeated pings.
type Collector struct {
	store *store.Store
	cache CachePinger // may be nil if cache is disabled

	startTime time.Time

	mu            sync.RWMutex
	cachedHealth  *Health
	cacheExpiry   time.Time
	cacheDuration time.Duration
}

// NewCollector creates a new health collector.
func NewCollector(store *store.Store, cache CachePinger) *Collector {
	return &Collector{
		store:         store,
		cache:         cache,
		startTime:     time.Now(),
		cacheDuration: 15 * time.Second,
	}
}

// GetHealth returns the current health snapshot, cached for 15 seconds.
func (c *Collector) GetHealth(ctx context.Context) *Health {
	c.mu.RLock()
	if c.cachedHealth != nil && time.Now().Before(c.cacheExpiry) {
		health := *c.cachedHealth
		c.mu.RUnlock()
		return &health
	}
	c.mu.RUnlock()

	health := c.collectHealth(ctx)

	c.mu.Lock()
	c.cachedHealth = health
	c.cacheExpiry = time.Now().Add(c.cacheDuration)
	c.mu.Unlock()

	return health
}

func (c *Collector) collectHealth(ctx context.Context) *Health {
	health := &Health{
		Status:  "healthy",
		Time:    time.Now().UTC(),
		Process: c.collectProcessHealth(),
	}

	health.Database = Dependency{Status: "healthy", Enabled: true}
	if err := c.store.Ping(ctx); err != nil {
		health.Database.Status = "error"
		health.Status = "degraded"
	}

	if c.cache == nil {
		health.Cache = Dependency{Status: "disabled", Enabled: false}
	} else {
		health.Cache = Dependency{Status: "healthy", Enabled: true}
		if err := c.cache.Ping(ctx); err != nil {
			// A dead cache degrades latency, not correctness.
			health.Cache.Status = "error"
		}
	}

	return health
}

func (c *Collector) collectProcessHealth() ProcessHealth {
	health := ProcessHealth{
		Goroutines:    runtime.NumGoroutine(),
		UptimeSeconds: int64(time.Since(c.startTime).Seconds()),
	}

	// Get process metrics using gopsutil
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err == nil {
		if cpu, err := proc.CPUPercent(); err == nil {
			health.CPUPercent = cpu
		}
		if mem, err := proc.MemoryInfo(); err == nil {
			health.MemoryMB = float64(mem.RSS) / (1024 * 1024)
		}
		if memPct, err := proc.MemoryPercent(); err == nil {
			health.MemoryPercent = float64(memPct)
		}
	}

	return health
}
