package handlers

import (
	"net/http"

	"cosmicwatch/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type WatchlistHandler struct {
	service service.WatchlistService
}

func NewWatchlistHandler(service service.WatchlistService) *WatchlistHandler {
	return &WatchlistHandler{service: service}
}

func (h *WatchlistHandler) Add(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req service.AddWatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"message": err.Error(),
		})
		return
	}

	item, err := h.service.AddToWatchlist(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, "failed to add to watchlist", err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

func (h *WatchlistHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	page, err := h.service.GetUserWatchlist(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "failed to get watchlist", err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// Status reports whether the caller watches the given asteroid.
func (h *WatchlistHandler) Status(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	asteroidID, err := uuid.Parse(c.Param("asteroid_id"))
	if err != nil {
		respondError(c, "invalid asteroid id", service.ErrInvalidID)
		return
	}

	watched, err := h.service.IsInWatchlist(c.Request.Context(), userID, asteroidID)
	if err != nil {
		respondError(c, "failed to check watchlist", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"asteroid_id":    asteroidID.String(),
		"is_watchlisted": watched,
	})
}

func (h *WatchlistHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	asteroidID, err := uuid.Parse(c.Param("asteroid_id"))
	if err != nil {
		respondError(c, "invalid asteroid id", service.ErrInvalidID)
		return
	}

	var req service.UpdateWatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"message": err.Error(),
		})
		return
	}

	item, err := h.service.UpdateWatchlistItem(c.Request.Context(), userID, asteroidID, req)
	if err != nil {
		respondError(c, "failed to update watchlist item", err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *WatchlistHandler) Remove(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	asteroidID, err := uuid.Parse(c.Param("asteroid_id"))
	if err != nil {
		respondError(c, "invalid asteroid id", service.ErrInvalidID)
		return
	}

	if err := h.service.RemoveFromWatchlist(c.Request.Context(), userID, asteroidID); err != nil {
		respondError(c, "failed to remove from watchlist", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "asteroid removed from watchlist",
	})
}
