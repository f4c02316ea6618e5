package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health reports whether the store is reachable.
func (h *ClientHandler) Health(c *gin.Context) {
	if err := h.repo.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "degraded",
			"details": gin.H{"database": "unavailable"},
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"details": gin.H{"database": "available"},
	})
}
