package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"TC-CERT/internal/models"
	"TC-CERT/internal/services"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	service    *services.StatisticsService
	logService *services.ActivityLogService
}

func NewStatisticsHandler(service *services.StatisticsService, logService *services.ActivityLogService) *StatisticsHandler {
	return &StatisticsHandler{
		service:    service,
		logService: logService,
	}
}

// GetSummary returns lifetime issuance totals
// GET /api/v1/statistics/summary
func (h *StatisticsHandler) GetSummary(c *gin.Context) {
	summary, err := h.service.GetSummary()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to get summary: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary": summary,
	})
}

// GetCourseTypeStats returns per-course-type lifecycle totals
// GET /api/v1/statistics/course-types
func (h *StatisticsHandler) GetCourseTypeStats(c *gin.Context) {
	stats, err := h.service.GetCourseTypeStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to get statistics: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"statistics": stats,
	})
}

// GetTimeSeries returns daily counts for one event type
// GET /api/v1/statistics/timeseries?event_type=certificate_issued&days=30
func (h *StatisticsHandler) GetTimeSeries(c *gin.Context) {
	eventType := models.EventType(c.Query("event_type"))
	switch eventType {
	case models.EventCertificateIssued, models.EventCertificateRevoked, models.EventPDFRegenerated:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "event_type must be one of certificate_issued, certificate_revoked, pdf_regenerated"})
		return
	}

	days := 30
	if d, err := strconv.Atoi(c.Query("days")); err == nil && d > 0 {
		days = d
	}

	points, err := h.service.GetTimeSeries(eventType, days, c.Query("course_type_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to get time series: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"event_type": eventType,
		"days":       days,
		"points":     points,
	})
}

// GetActivityLogs returns the request audit trail with pagination
// GET /api/v1/logs?limit=50&offset=0&path=/certificates
func (h *StatisticsHandler) GetActivityLogs(c *gin.Context) {
	limit := 50
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}
	offset := 0
	if o, err := strconv.Atoi(c.Query("offset")); err == nil && o > 0 {
		offset = o
	}

	var logs []models.ActivityLog
	var total int64
	var err error
	if path := c.Query("path"); path != "" {
		logs, total, err = h.logService.GetLogsByPath(path, limit, offset)
	} else {
		logs, total, err = h.logService.GetAllLogs(limit, offset)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to get logs: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":   logs,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}
