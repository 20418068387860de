package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rjnat/cursorpos/internal/infra"
	"github.com/rjnat/cursorpos/internal/sync"
)

// Health reports the terminal's local store, backend connectivity, and the
// state of the submission circuit breaker. The terminal stays healthy while
// offline: only a broken local store takes it down.
func Health(db *gorm.DB, monitor *sync.Monitor, cb *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		storeStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			storeStatus = "error"
		}

		backendStatus := "offline"
		if monitor.IsOnline() {
			backendStatus = "online"
		}

		status := http.StatusOK
		if storeStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":      status == http.StatusOK,
			"store":   storeStatus,
			"backend": backendStatus,
			"breaker": cb.State().String(),
		})
	}
}
