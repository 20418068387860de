package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rjnat/cursorpos/internal/apierror"
	"github.com/rjnat/cursorpos/internal/model"
	"github.com/rjnat/cursorpos/internal/repository"
	"github.com/rjnat/cursorpos/internal/sync"
)

type SyncHandler struct {
	syncer      *sync.Syncer
	monitor     *sync.Monitor
	queue       repository.OrderQueueRepository
	deadLetters repository.DeadLetterRepository
}

func NewSyncHandler(syncer *sync.Syncer, monitor *sync.Monitor, queue repository.OrderQueueRepository, deadLetters repository.DeadLetterRepository) *SyncHandler {
	return &SyncHandler{syncer: syncer, monitor: monitor, queue: queue, deadLetters: deadLetters}
}

// Status reports connectivity, queue depth by state, and whether a pass is
// running right now.
func (h *SyncHandler) Status(c *gin.Context) {
	stats, err := h.syncer.GetSyncStats(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Trigger runs a manual sync pass. 409 when a pass is already in flight,
// 200 with zero counts when offline.
func (h *SyncHandler) Trigger(c *gin.Context) {
	result, err := h.syncer.ManualSync(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if result == nil {
		c.JSON(http.StatusConflict, apierror.New("sync already in progress"))
		return
	}
	c.JSON(http.StatusOK, result)
}

// Queue lists queued orders, optionally filtered by ?status=.
func (h *SyncHandler) Queue(c *gin.Context) {
	orders, err := h.queue.GetQueuedOrders(c.Request.Context(), model.OrderStatus(c.Query("status")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

// DeadLetters lists jobs and orders that exhausted their retries.
func (h *SyncHandler) DeadLetters(c *gin.Context) {
	entries, err := h.deadLetters.List(c.Request.Context(), c.Query("source"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}
