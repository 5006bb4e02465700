package handlers

import (
	"errors"
	"net/http"

	"cosmicwatch/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondError maps service errors to HTTP statuses. Unknown errors stay
// opaque 500s.
func respondError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidID):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrDuplicate):
		status = http.StatusConflict
	}

	c.JSON(status, gin.H{
		"error":   message,
		"message": err.Error(),
	})
}

// currentUserID reads the authenticated user from the X-User-ID header.
// Returns uuid.Nil and writes the error response when absent or invalid.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetHeader("X-User-ID")
	if raw == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "missing user identity",
			"message": "X-User-ID header is required",
		})
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid user identity",
			"message": "X-User-ID must be a UUID",
		})
		return uuid.Nil, false
	}

	return id, true
}
