package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const readyTimeout = 1 * time.Second

type HealthHandler struct {
	ping     func(ctx context.Context) error
	draining func() bool
}

// create a new instance of the health handler. A nil ping means there is no
// backing store to check; a nil draining means the process never drains.
func NewHealthHandler(ping func(ctx context.Context) error, draining func() bool) *HealthHandler {
	return &HealthHandler{ping: ping, draining: draining}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.draining != nil && h.draining() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
		return
	}

	if h.ping == nil {
		ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), readyTimeout)
	defer cancel()

	if err := h.ping(cctx); err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"checks": gin.H{"database": "down"},
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"checks": gin.H{"database": "up"},
	})
}
