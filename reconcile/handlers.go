package reconcile

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"bitbucket.org/showbooker/booking_backend/config"
	"bitbucket.org/showbooker/booking_backend/models"
	"bitbucket.org/showbooker/booking_backend/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// publishRun is swapped out in tests.
var publishRun = PublishScheduledRun

// RunHandler is the RPC entry point: POST /api/reconciliation/run with an
// optional {eventId, platform, mode, async} body. By default the batch runs
// synchronously and the per-job result list comes back in the response; with
// async the run is queued on the reconciliation topic and 202 comes back.
func RunHandler(o *Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RunRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request"})
				return
			}
		}
		req.Normalize()

		if req.Async {
			payload := SchedulePayload{EventID: req.EventID, Platform: req.Platform, Mode: req.Mode}
			if err := publishRun(c.Request.Context(), payload); err != nil {
				c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error()})
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"success": true, "queued": true, "mode": req.Mode})
			return
		}

		ctx := utils.SetTriggerModeInContext(c.Request.Context(), req.Mode)
		resp := o.Run(ctx, req)
		if !resp.Success {
			c.JSON(http.StatusInternalServerError, resp)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// ReportHistoryHandler lists reports, newest first, filterable by event and
// platform.
func ReportHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 20
		if v := strings.TrimSpace(c.Query("limit")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}

		db := config.GetDB().WithContext(c.Request.Context())
		query := db.Model(&models.ReconciliationReport{})
		if eventID := strings.TrimSpace(c.Query("event_id")); eventID != "" {
			query = query.Where("event_id = ?", eventID)
		}
		if platform := strings.TrimSpace(c.Query("platform")); platform != "" {
			query = query.Where("platform = ?", strings.ToLower(platform))
		}

		var reports []models.ReconciliationReport
		if err := query.Order("start_time DESC").Limit(limit).Find(&reports).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": reports})
	}
}

// ReportDetailHandler returns one report with its discrepancies.
func ReportDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.Param("id"))
		if id == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report id"})
			return
		}

		db := config.GetDB().WithContext(c.Request.Context())

		var report models.ReconciliationReport
		if err := db.Where("id = ?", id).Take(&report).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		var discrepancies []models.Discrepancy
		if err := db.Where("report_id = ?", report.ID).Order("detected_at").Find(&discrepancies).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"report": report, "discrepancies": discrepancies})
	}
}

// DiscrepanciesHandler lists unresolved discrepancies, filterable by event.
func DiscrepanciesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if v := strings.TrimSpace(c.Query("limit")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
				limit = n
			}
		}

		db := config.GetDB().WithContext(c.Request.Context())
		query := db.Model(&models.Discrepancy{}).Where("resolved_at IS NULL")
		if eventID := strings.TrimSpace(c.Query("event_id")); eventID != "" {
			query = query.Where("event_id = ?", eventID)
		}

		var discrepancies []models.Discrepancy
		if err := query.Order("detected_at DESC").Limit(limit).Find(&discrepancies).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": discrepancies})
	}
}

// AuditLogHandler lists the audit trail for one event.
func AuditLogHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID := strings.TrimSpace(c.Query("event_id"))
		if eventID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "event_id is required"})
			return
		}

		db := config.GetDB().WithContext(c.Request.Context())
		var entries []models.AuditLogEntry
		if err := db.Where("event_id = ?", eventID).Order("id DESC").Limit(50).Find(&entries).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": entries})
	}
}
