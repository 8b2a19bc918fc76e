package admin

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gaming-workshop/backend/pkg/queue"
	"github.com/gaming-workshop/backend/pkg/response"
)

// maxImportBytes caps an uploaded import document.
const maxImportBytes = 64 << 20

// Handler serves the operator endpoints under /admin.
type Handler struct {
	exporter    *Exporter
	maintenance *Maintenance
	jobs        *queue.Queue
	logger      *zap.Logger
}

// NewHandler creates the admin handler. jobs may be nil when Redis is not
// configured; the backup endpoint then reports unavailable.
func NewHandler(exporter *Exporter, maintenance *Maintenance, jobs *queue.Queue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{exporter: exporter, maintenance: maintenance, jobs: jobs, logger: logger}
}

// ExportUsersCSV handles GET /admin/export/users.
func (h *Handler) ExportUsersCSV(c *gin.Context) {
	data, err := h.exporter.UsersCSV(c.Request.Context())
	if err != nil {
		h.logger.Error("users export failed", zap.Error(err))
		response.Internal(c, "failed to export users")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="workshop-users.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}

// ExportAnalyticsCSV handles GET /admin/export/analytics.
func (h *Handler) ExportAnalyticsCSV(c *gin.Context) {
	data, err := h.exporter.AnalyticsCSV(c.Request.Context())
	if err != nil {
		h.logger.Error("analytics export failed", zap.Error(err))
		response.Internal(c, "failed to export analytics")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="workshop-analytics.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}

// ExportFull handles GET /admin/export/full.
func (h *Handler) ExportFull(c *gin.Context) {
	data, err := h.exporter.FullJSON(c.Request.Context())
	if err != nil {
		h.logger.Error("full export failed", zap.Error(err))
		response.Internal(c, "failed to export data")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="gaming-workshop-complete-data.json"`)
	c.Data(http.StatusOK, "application/json", data)
}

// Import handles POST /admin/import. Replaces stored collections wholesale.
func (h *Handler) Import(c *gin.Context) {
	if c.Query("confirm") != "true" {
		response.BadRequest(c, "import replaces all existing data; pass confirm=true")
		return
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
	if err != nil {
		response.BadRequest(c, "failed to read import body")
		return
	}

	regs, sessions, err := h.maintenance.Import(c.Request.Context(), raw)
	if err != nil {
		if errors.Is(err, ErrImportFormat) {
			response.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("import failed", zap.Error(err))
		response.Internal(c, "failed to import data")
		return
	}
	response.OK(c, gin.H{"registrations": regs, "sessions": sessions})
}

// ResetDay handles POST /admin/reset-day/:date.
func (h *Handler) ResetDay(c *gin.Context) {
	if c.Query("confirm") != "true" {
		response.BadRequest(c, "day reset is destructive; pass confirm=true")
		return
	}
	date := c.Param("date")
	removed, err := h.maintenance.ResetDay(c.Request.Context(), date)
	if err != nil {
		if errors.Is(err, ErrImportFormat) {
			response.BadRequest(c, "date must be YYYY-MM-DD")
			return
		}
		h.logger.Error("day reset failed", zap.Error(err), zap.String("date", date))
		response.Internal(c, "failed to reset day")
		return
	}
	response.OK(c, gin.H{"date": date, "registrationsRemoved": removed})
}

// ClearOldSessions handles POST /admin/clear-old-sessions.
func (h *Handler) ClearOldSessions(c *gin.Context) {
	if c.Query("confirm") != "true" {
		response.BadRequest(c, "clearing sessions is destructive; pass confirm=true")
		return
	}
	days := DefaultRetentionDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.BadRequest(c, "days must be a positive integer")
			return
		}
		days = parsed
	}

	removed, err := h.maintenance.ClearOldSessions(c.Request.Context(), days)
	if err != nil {
		h.logger.Error("clear old sessions failed", zap.Error(err))
		response.Internal(c, "failed to clear old sessions")
		return
	}
	response.OK(c, gin.H{"removed": removed, "retentionDays": days})
}

// ClearAll handles POST /admin/clear-all.
func (h *Handler) ClearAll(c *gin.Context) {
	if c.Query("confirm") != "true" {
		response.BadRequest(c, "clearing all data is destructive; pass confirm=true")
		return
	}
	if err := h.maintenance.ClearAll(c.Request.Context()); err != nil {
		h.logger.Error("clear all failed", zap.Error(err))
		response.Internal(c, "failed to clear data")
		return
	}
	response.OK(c, gin.H{"cleared": true})
}

// TriggerBackup handles POST /admin/backup. Enqueues an asynchronous backup
// job for the worker.
func (h *Handler) TriggerBackup(c *gin.Context) {
	if h.jobs == nil {
		response.ServiceUnavailable(c, "backup queue is not configured")
		return
	}
	jobID, err := h.jobs.EnqueueBackup(c.Request.Context(), queue.BackupPayload{
		RequestedBy: c.GetString("admin"),
		RequestedAt: h.exporter.now(),
	})
	if err != nil {
		h.logger.Error("backup enqueue failed", zap.Error(err))
		response.Internal(c, "failed to enqueue backup")
		return
	}
	response.OK(c, gin.H{"jobId": jobID, "status": fmt.Sprintf("queued on %s", queue.QueueBackups)})
}
