package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rjnat/cursorpos/internal/apierror"
	"github.com/rjnat/cursorpos/internal/model"
)

// clientOrderIDPrefix marks locally generated idempotency tokens. The unix
// millisecond timestamp plus a uuid-derived suffix keeps ids unique across
// terminals without coordination.
const clientOrderIDPrefix = "offline_"

// NewClientOrderID generates a queue key: offline_<unix-millis>_<8 hex chars>.
func NewClientOrderID() string {
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("%s%d_%s", clientOrderIDPrefix, time.Now().UnixMilli(), suffix)
}

// OrderQueueRepository is the data access contract for the durable offline
// order queue.
type OrderQueueRepository interface {
	// QueueOrder stores a new PENDING order. A missing ClientOrderID is
	// assigned; a caller-supplied duplicate fails with ErrDuplicateOrder.
	QueueOrder(ctx context.Context, order *model.QueuedOrder) (*model.QueuedOrder, error)
	// GetQueuedOrders returns all orders, oldest first, optionally filtered
	// to one status ("" = all).
	GetQueuedOrders(ctx context.Context, status model.OrderStatus) ([]model.QueuedOrder, error)
	// UpdateOrderStatus transitions one order: sets the status, increments
	// SyncAttempts, stamps LastAttemptAt, and records errorMessage when
	// non-empty (a prior message is retained otherwise). The read-modify-write
	// runs in a transaction so concurrent updaters of the same key serialize.
	UpdateOrderStatus(ctx context.Context, clientOrderID string, status model.OrderStatus, errorMessage string) error
	// RemoveOrder deletes one order; deleting an absent order is a no-op.
	RemoveOrder(ctx context.Context, clientOrderID string) error
	// ClearSyncedOrders removes all SYNCED orders and returns the count.
	ClearSyncedOrders(ctx context.Context) (int64, error)
	// RequeueFailed flips FAILED orders with fewer than maxAttempts attempts
	// back to PENDING so the next pass picks them up. Orders at the attempt
	// cap are returned exactly once (flagged DeadLettered in the same
	// transaction); they stay FAILED in the queue for inspection but never
	// reappear in later calls.
	RequeueFailed(ctx context.Context, maxAttempts int) ([]model.QueuedOrder, error)
	GetQueueStats(ctx context.Context) (*model.QueueStats, error)
}

type orderQueueRepo struct{ db *gorm.DB }

func NewOrderQueueRepository(db *gorm.DB) OrderQueueRepository {
	return &orderQueueRepo{db: db}
}

func (r *orderQueueRepo) QueueOrder(ctx context.Context, order *model.QueuedOrder) (*model.QueuedOrder, error) {
	if order.ClientOrderID == "" {
		order.ClientOrderID = NewClientOrderID()
	} else {
		var count int64
		if err := r.db.WithContext(ctx).Model(&model.QueuedOrder{}).
			Where("client_order_id = ?", order.ClientOrderID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, fmt.Errorf("%w: %s", apierror.ErrDuplicateOrder, order.ClientOrderID)
		}
	}

	order.Status = model.OrderPending
	order.CreatedAt = time.Now()
	order.SyncAttempts = 0
	order.LastAttemptAt = nil
	order.ErrorMessage = nil

	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderQueueRepo) GetQueuedOrders(ctx context.Context, status model.OrderStatus) ([]model.QueuedOrder, error) {
	q := r.db.WithContext(ctx).Order("created_at ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var orders []model.QueuedOrder
	err := q.Find(&orders).Error
	return orders, err
}

func (r *orderQueueRepo) UpdateOrderStatus(ctx context.Context, clientOrderID string, status model.OrderStatus, errorMessage string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order model.QueuedOrder
		err := tx.Where("client_order_id = ?", clientOrderID).First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", apierror.ErrOrderNotFound, clientOrderID)
		}
		if err != nil {
			return err
		}

		now := time.Now()
		order.Status = status
		order.SyncAttempts++
		order.LastAttemptAt = &now
		if errorMessage != "" {
			order.ErrorMessage = &errorMessage
		}
		return tx.Save(&order).Error
	})
}

func (r *orderQueueRepo) RemoveOrder(ctx context.Context, clientOrderID string) error {
	return r.db.WithContext(ctx).
		Where("client_order_id = ?", clientOrderID).
		Delete(&model.QueuedOrder{}).Error
}

func (r *orderQueueRepo) ClearSyncedOrders(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ?", model.OrderSynced).
		Delete(&model.QueuedOrder{})
	return res.RowsAffected, res.Error
}

func (r *orderQueueRepo) RequeueFailed(ctx context.Context, maxAttempts int) ([]model.QueuedOrder, error) {
	var exhausted []model.QueuedOrder
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("status = ? AND sync_attempts >= ? AND dead_lettered = ?",
			model.OrderFailed, maxAttempts, false).
			Find(&exhausted).Error; err != nil {
			return err
		}
		if len(exhausted) > 0 {
			keys := make([]string, len(exhausted))
			for i, order := range exhausted {
				keys[i] = order.ClientOrderID
			}
			if err := tx.Model(&model.QueuedOrder{}).
				Where("client_order_id IN ?", keys).
				Update("dead_lettered", true).Error; err != nil {
				return err
			}
		}
		return tx.Model(&model.QueuedOrder{}).
			Where("status = ? AND sync_attempts < ?", model.OrderFailed, maxAttempts).
			Update("status", model.OrderPending).Error
	})
	return exhausted, err
}

func (r *orderQueueRepo) GetQueueStats(ctx context.Context) (*model.QueueStats, error) {
	type row struct {
		Status model.OrderStatus
		N      int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&model.QueuedOrder{}).
		Select("status, count(*) as n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &model.QueueStats{}
	for _, rw := range rows {
		stats.Total += rw.N
		switch rw.Status {
		case model.OrderPending:
			stats.Pending = rw.N
		case model.OrderSyncing:
			stats.Syncing = rw.N
		case model.OrderSynced:
			stats.Synced = rw.N
		case model.OrderFailed:
			stats.Failed = rw.N
		}
	}
	return stats, nil
}
