package handler

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/creatorkit/internal/domain"
	"github.com/timmy/creatorkit/internal/logger"
	"github.com/timmy/creatorkit/internal/service"
	"github.com/timmy/creatorkit/internal/source/manifest"
)

const maxManifestBytes = 5 << 20

// AdminHandler handles admin operations.
type AdminHandler struct {
	backfill *service.BackfillService
	logger   *logger.Logger

	// Backfill job state
	mu            sync.RWMutex
	isRunning     bool
	currentStats  *service.BackfillStats
	lastRunTime   time.Time
	lastRunStatus string
}

// NewAdminHandler creates a new admin handler.
//
// Parameters:
//   - backfill: backfill service instance.
//   - log: logger instance.
//
// Returns:
//   - *AdminHandler: initialized handler.
func NewAdminHandler(backfill *service.BackfillService, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		backfill: backfill,
		logger:   log,
	}
}

// BackfillResponse represents the backfill API response.
type BackfillResponse struct {
	Message string                 `json:"message"`
	Stats   *service.BackfillStats `json:"stats,omitempty"`
}

// BackfillStatusResponse represents the backfill status.
type BackfillStatusResponse struct {
	IsRunning     bool                   `json:"is_running"`
	LastRunTime   string                 `json:"last_run_time,omitempty"`
	LastRunStatus string                 `json:"last_run_status,omitempty"`
	CurrentStats  *service.BackfillStats `json:"current_stats,omitempty"`
	RecentJobs    []domain.BackfillJob   `json:"recent_jobs"`
}

// TriggerBackfill handles POST /api/v1/admin/backfill. The body is a JSON
// Lines manifest of {"user_id","url"} records; ?limit caps the item count.
func (h *AdminHandler) TriggerBackfill(c *gin.Context) {
	ctx := c.Request.Context()

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if limit < 0 || limit > 10000 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 0 and 10000"})
		return
	}

	src, err := manifest.FromReader("upload", http.MaxBytesReader(c.Writer, c.Request.Body, maxManifestBytes))
	if err != nil {
		logger.CtxWarn(ctx, "Invalid backfill manifest: client_ip=%s, error=%v", c.ClientIP(), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid manifest"})
		return
	}

	h.mu.Lock()
	if h.isRunning {
		h.mu.Unlock()
		logger.CtxWarn(ctx, "Backfill request rejected: already running, client_ip=%s", c.ClientIP())
		c.JSON(http.StatusConflict, gin.H{"error": "Backfill is already running"})
		return
	}
	h.isRunning = true
	h.currentStats = nil
	h.mu.Unlock()

	logger.CtxInfo(ctx, "Starting backfill: limit=%d, client_ip=%s", limit, c.ClientIP())

	// Detach from the request so a client timeout does not cancel the run
	runCtx := logger.FromContext(ctx).WithContext(context.Background())
	start := time.Now()
	stats, err := h.backfill.Run(runCtx, src, limit)
	duration := time.Since(start)

	h.mu.Lock()
	h.isRunning = false
	h.currentStats = stats
	h.lastRunTime = time.Now()
	if err != nil {
		h.lastRunStatus = "failed: " + err.Error()
	} else {
		h.lastRunStatus = "success"
	}
	h.mu.Unlock()

	if err != nil {
		logger.With(logger.Fields{
			logger.FieldDurationMs: duration.Milliseconds(),
		}).Error(ctx, "Backfill failed: limit=%d, error=%v", limit, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Backfill failed"})
		return
	}

	logger.With(logger.Fields{
		logger.FieldDurationMs: duration.Milliseconds(),
		logger.FieldCount:      stats.ProcessedItems,
	}).Info(ctx, "Backfill completed: total=%d, processed=%d, skipped=%d, failed=%d",
		stats.TotalItems, stats.ProcessedItems, stats.SkippedItems, stats.FailedItems)

	c.JSON(http.StatusOK, BackfillResponse{
		Message: "Backfill completed successfully",
		Stats:   stats,
	})
}

// GetBackfillStatus returns the current backfill status.
func (h *AdminHandler) GetBackfillStatus(c *gin.Context) {
	jobs, err := h.backfill.RecentJobs(c.Request.Context(), 10)
	if err != nil {
		respondError(c, err)
		return
	}
	if jobs == nil {
		jobs = []domain.BackfillJob{}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	resp := BackfillStatusResponse{
		RecentJobs:    jobs,
		IsRunning:     h.isRunning,
		LastRunStatus: h.lastRunStatus,
		CurrentStats:  h.currentStats,
	}
	if !h.lastRunTime.IsZero() {
		resp.LastRunTime = h.lastRunTime.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}
