package api

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/kdimtricp/emostim/internal/streaming"
)

const (
	memoryCacheTTL = 5 * time.Second
	pingTimeout    = 2 * time.Second
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type MemoryStats struct {
	Alloc     uint64 `json:"alloc"`
	Sys       uint64 `json:"sys"`
	HeapInUse uint64 `json:"heapInUse"`
	NumGC     uint32 `json:"numGC"`
}

type StreamStats struct {
	Active int `json:"active"`
	Max    int `json:"max"`
}

type DatabaseStatus struct {
	Status  string `json:"status"`
	Latency string `json:"latency"`
	Error   string `json:"error,omitempty"`
}

type HealthReport struct {
	Status          string         `json:"status"`
	Timestamp       time.Time      `json:"timestamp"`
	Uptime          string         `json:"uptime"`
	Goroutines      int            `json:"goroutines"`
	Memory          MemoryStats    `json:"memory"`
	MemoryCheckedAt time.Time      `json:"memoryCheckedAt"`
	Streams         StreamStats    `json:"streams"`
	Database        DatabaseStatus `json:"database"`
}

// Health builds health snapshots. runtime.ReadMemStats stops the world, so
// memory figures are refreshed at most once per memoryCacheTTL.
type Health struct {
	db      Pinger
	limiter *streaming.Limiter
	started time.Time
	now     func() time.Time

	mu        sync.Mutex
	memory    MemoryStats
	checkedAt time.Time
}

func NewHealth(db Pinger, limiter *streaming.Limiter) *Health {
	return &Health{
		db:      db,
		limiter: limiter,
		started: time.Now(),
		now:     time.Now,
	}
}

func (h *Health) Check(ctx context.Context) HealthReport {
	now := h.now()
	memory, checkedAt := h.memoryStats(now)

	report := HealthReport{
		Status:          "ok",
		Timestamp:       now.UTC(),
		Uptime:          now.Sub(h.started).Round(time.Second).String(),
		Goroutines:      runtime.NumGoroutine(),
		Memory:          memory,
		MemoryCheckedAt: checkedAt.UTC(),
		Database:        h.pingDatabase(ctx),
	}
	if h.limiter != nil {
		report.Streams = StreamStats{Active: h.limiter.Active(), Max: h.limiter.Max()}
	}
	if report.Database.Status != "ok" {
		report.Status = "degraded"
	}
	return report
}

func (h *Health) memoryStats(now time.Time) (MemoryStats, time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.checkedAt.IsZero() && now.Sub(h.checkedAt) < memoryCacheTTL {
		return h.memory, h.checkedAt
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	h.memory = MemoryStats{
		Alloc:     ms.Alloc,
		Sys:       ms.Sys,
		HeapInUse: ms.HeapInuse,
		NumGC:     ms.NumGC,
	}
	h.checkedAt = now
	return h.memory, h.checkedAt
}

func (h *Health) pingDatabase(ctx context.Context) DatabaseStatus {
	if h.db == nil {
		return DatabaseStatus{Status: "unavailable", Error: "no database configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return DatabaseStatus{Status: "error", Latency: latency.String(), Error: err.Error()}
	}
	return DatabaseStatus{Status: "ok", Latency: latency.String()}
}

func (app *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	report := app.Health.Check(r.Context())

	status := http.StatusOK
	if report.Database.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}
