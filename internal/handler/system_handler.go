package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/quizdesk-portal/internal/config"
	"github.com/stemsi/quizdesk-portal/internal/response"
)

const healthTimeout = 2 * time.Second

// SystemHandler reports liveness and worker health.
type SystemHandler struct {
	rdb       *redis.Client
	pool      *pgxpool.Pool
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(rdb *redis.Client, pool *pgxpool.Pool, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		rdb:       rdb,
		pool:      pool,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

// Health godoc
// GET /health
// 200 when Redis and Postgres answer, 503 otherwise.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status := gin.H{"status": "ok", "redis": "ok", "postgres": "ok"}
	code := http.StatusOK
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		h.log.Warn().Err(err).Msg("Redis health check failed")
		status["redis"], status["status"], code = "down", "degraded", http.StatusServiceUnavailable
	}
	if err := h.pool.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Postgres health check failed")
		status["postgres"], status["status"], code = "down", "degraded", http.StatusServiceUnavailable
	}

	response.Success(c, code, status)
}

type systemStatus struct {
	Timestamp int64  `json:"timestamp"`
	Uptime    string `json:"uptime"`

	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	NumGC      uint32 `json:"num_gc"`
	GoVersion  string `json:"go_version"`

	// Reconciliation queues
	QueueReconcile   int64 `json:"queue_reconcile"`
	DelayedReconcile int64 `json:"delayed_reconcile"`

	DBConnsInUse int32 `json:"db_conns_in_use"`
	DBConnsTotal int32 `json:"db_conns_total"`
}

// GetStatus godoc
// GET /api/v1/admin/system
func (h *SystemHandler) GetStatus(c *gin.Context) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	st := systemStatus{
		Timestamp:  time.Now().Unix(),
		Uptime:     formatDuration(time.Since(h.startTime)),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  ms.HeapAlloc,
		NumGC:      ms.NumGC,
		GoVersion:  runtime.Version(),
	}

	ctx := c.Request.Context()
	pipe := h.rdb.Pipeline()
	queueCmd := pipe.LLen(ctx, config.WorkerKey.ReconcileCheckoutsQueue)
	delayedCmd := pipe.ZCard(ctx, config.WorkerKey.ReconcileCheckoutsDelayed)
	if _, err := pipe.Exec(ctx); err == nil {
		st.QueueReconcile, _ = queueCmd.Result()
		st.DelayedReconcile, _ = delayedCmd.Result()
	} else {
		h.log.Warn().Err(err).Msg("Failed to read reconcile queue depth")
	}

	stat := h.pool.Stat()
	st.DBConnsInUse = stat.AcquiredConns()
	st.DBConnsTotal = stat.TotalConns()

	response.Success(c, http.StatusOK, st)
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
