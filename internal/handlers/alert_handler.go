package handlers

import (
	"net/http"
	"strconv"

	"cosmicwatch/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AlertHandler struct {
	service service.AlertService
}

func NewAlertHandler(service service.AlertService) *AlertHandler {
	return &AlertHandler{service: service}
}

func (h *AlertHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	unreadOnly := c.Query("unread_only") == "true"
	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	offset := 0
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	list, err := h.service.GetUserAlerts(c.Request.Context(), userID, unreadOnly, limit, offset)
	if err != nil {
		respondError(c, "failed to get alerts", err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *AlertHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, "invalid alert id", service.ErrInvalidID)
		return
	}

	alert, err := h.service.MarkAlertRead(c.Request.Context(), userID, alertID)
	if err != nil {
		respondError(c, "failed to mark alert read", err)
		return
	}

	c.JSON(http.StatusOK, alert)
}

func (h *AlertHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, "invalid alert id", service.ErrInvalidID)
		return
	}

	if err := h.service.DeleteAlert(c.Request.Context(), userID, alertID); err != nil {
		respondError(c, "failed to delete alert", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "alert deleted",
	})
}

// CheckNow runs both alert evaluations for the caller on demand instead
// of waiting for the background worker.
func (h *AlertHandler) CheckNow(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	thresholdAlerts, err := h.service.CheckWatchlistThresholds(ctx, userID)
	if err != nil {
		respondError(c, "failed to evaluate thresholds", err)
		return
	}
	windowAlerts, err := h.service.CheckApproachWindows(ctx, userID)
	if err != nil {
		respondError(c, "failed to evaluate approach windows", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"new_threshold_alerts": thresholdAlerts,
		"new_window_alerts":    windowAlerts,
	})
}

func (h *AlertHandler) Stats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	days := 7
	if daysStr := c.Query("days"); daysStr != "" {
		if d, err := strconv.Atoi(daysStr); err == nil && d > 0 {
			days = d
		}
	}

	stats, err := h.service.GetAlertStats(c.Request.Context(), userID, days)
	if err != nil {
		respondError(c, "failed to get alert stats", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
