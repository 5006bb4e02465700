package handlers

import (
	"net/http"
	"path/filepath"
	"strconv"

	"cosmicwatch/internal/service"

	"github.com/gin-gonic/gin"
)

type NEOHandler struct {
	service service.NEOService
}

func NewNEOHandler(service service.NEOService) *NEOHandler {
	return &NEOHandler{service: service}
}

// SyncFeed triggers a feed synchronization for an optional date range.
func (h *NEOHandler) SyncFeed(c *gin.Context) {
	ctx := c.Request.Context()

	result, err := h.service.SyncFeed(ctx, c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		respondError(c, "failed to sync NEO feed", err)
		return
	}

	status := http.StatusOK
	if result.Status != service.SyncStatusSuccess {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, result)
}

// SyncAsteroid refreshes a single object by its NASA reference id.
func (h *NEOHandler) SyncAsteroid(c *gin.Context) {
	ctx := c.Request.Context()

	asteroid, err := h.service.SyncAsteroid(ctx, c.Param("neo_id"))
	if err != nil {
		respondError(c, "failed to sync asteroid", err)
		return
	}

	c.JSON(http.StatusOK, asteroid)
}

func (h *NEOHandler) GetFeed(c *gin.Context) {
	ctx := c.Request.Context()

	page := 1
	if pageStr := c.Query("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	limit := 20
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	feed, err := h.service.GetFeed(ctx, page, limit, c.Query("sort"))
	if err != nil {
		respondError(c, "failed to get NEO feed", err)
		return
	}

	c.JSON(http.StatusOK, feed)
}

func (h *NEOHandler) GetAsteroid(c *gin.Context) {
	ctx := c.Request.Context()

	detail, err := h.service.GetAsteroidDetail(ctx, c.Param("id"))
	if err != nil {
		respondError(c, "failed to get asteroid", err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// GetToday lists asteroids approaching within the current UTC day.
func (h *NEOHandler) GetToday(c *gin.Context) {
	ctx := c.Request.Context()

	items, err := h.service.GetToday(ctx)
	if err != nil {
		respondError(c, "failed to get today's approaches", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

func (h *NEOHandler) GetNext72hThreats(c *gin.Context) {
	ctx := c.Request.Context()

	report, err := h.service.GetNext72hThreats(ctx)
	if err != nil {
		respondError(c, "failed to get 72h threats", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *NEOHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "missing query",
			"message": "q parameter is required",
		})
		return
	}

	limit := 20
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	results, err := h.service.Search(ctx, query, limit)
	if err != nil {
		respondError(c, "search failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
	})
}

// ExportReport generates an xlsx risk report and streams it back.
func (h *NEOHandler) ExportReport(c *gin.Context) {
	ctx := c.Request.Context()

	days := 7
	if daysStr := c.Query("days"); daysStr != "" {
		if d, err := strconv.Atoi(daysStr); err == nil && d > 0 {
			days = d
		}
	}

	path, err := h.service.ExportUpcoming(ctx, days)
	if err != nil {
		respondError(c, "failed to generate report", err)
		return
	}

	c.FileAttachment(path, filepath.Base(path))
}
