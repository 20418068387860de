package repository

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rjnat/cursorpos/internal/apierror"
	"github.com/rjnat/cursorpos/internal/infra"
	"github.com/rjnat/cursorpos/internal/model"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := infra.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = infra.CloseDatabase(db) })
	return db
}

func testOrder(clientOrderID string) *model.QueuedOrder {
	return &model.QueuedOrder{
		ClientOrderID: clientOrderID,
		TenantID:      "t1",
		StoreID:       "s1",
		OrderData:     json.RawMessage(`{"grandTotal":"100"}`),
	}
}

func TestNewClientOrderIDFormat(t *testing.T) {
	id := NewClientOrderID()
	parts := strings.Split(id, "_")
	require.Len(t, parts, 3)
	assert.Equal(t, "offline", parts[0])
	assert.NotEmpty(t, parts[1])
	assert.Len(t, parts[2], 8)

	// Two ids generated back to back never collide.
	assert.NotEqual(t, id, NewClientOrderID())
}

func TestQueueOrderAssignsIDAndDefaults(t *testing.T) {
	repo := NewOrderQueueRepository(testDB(t))
	ctx := context.Background()

	queued, err := repo.QueueOrder(ctx, testOrder(""))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(queued.ClientOrderID, "offline_"))
	assert.Equal(t, model.OrderPending, queued.Status)
	assert.Equal(t, 0, queued.SyncAttempts)
	assert.False(t, queued.CreatedAt.IsZero())
	assert.Nil(t, queued.LastAttemptAt)
	assert.Nil(t, queued.ErrorMessage)
}

func TestQueueOrderRejectsDuplicateKey(t *testing.T) {
	repo := NewOrderQueueRepository(testDB(t))
	ctx := context.Background()

	_, err := repo.QueueOrder(ctx, testOrder("offline_1_aaaaaaaa"))
	require.NoError(t, err)

	_, err = repo.QueueOrder(ctx, testOrder("offline_1_aaaaaaaa"))
	assert.ErrorIs(t, err, apierror.ErrDuplicateOrder)
}

func TestGetQueuedOrdersOldestFirstAndFiltered(t *testing.T) {
	repo := NewOrderQueueRepository(testDB(t))
	ctx := context.Background()

	first, err := repo.QueueOrder(ctx, testOrder(""))
	require.NoError(t, err)
	second, err := repo.QueueOrder(ctx, testOrder(""))
	require.NoError(t, err)

	require.NoError(t, repo.UpdateOrderStatus(ctx, second.ClientOrderID, model.OrderFailed, "boom"))

	all, err := repo.GetQueuedOrders(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ClientOrderID, all[0].ClientOrderID)

	pending, err := repo.GetQueuedOrders(ctx, model.OrderPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ClientOrderID, pending[0].ClientOrderID)
}

func TestUpdateOrderStatusTransitions(t *testing.T) {
	repo := NewOrderQueueRepository(testDB(t))
	ctx := context.Background()

	queued, err := repo.QueueOrder(ctx, testOrder(""))
	require.NoError(t, err)

	require.NoError(t, repo.UpdateOrderStatus(ctx, queued.ClientOrderID, model.OrderSyncing, ""))
	require.NoError(t, repo.UpdateOrderStatus(ctx, queued.ClientOrderID, model.OrderFailed, "connection refused"))

	orders, err := repo.GetQueuedOrders(ctx, model.OrderFailed)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	got := orders[0]
	assert.Equal(t, 2, got.SyncAttempts)
	require.NotNil(t, got.LastAttemptAt)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "connection refused", *got.ErrorMessage)

	// A later transition without a message keeps the prior one.
	require.NoError(t, repo.UpdateOrderStatus(ctx, queued.ClientOrderID, model.OrderSyncing, ""))
	orders, err = repo.GetQueuedOrders(ctx, model.OrderSyncing)
	require.NoError(t, err)
	require.NotNil(t, orders[0].ErrorMessage)
	assert.Equal(t, "connection refused", *orders[0].ErrorMessage)
}

func TestUpdateOrderStatusUnknownKey(t *testing.T) {
	repo := NewOrderQueueRepository(testDB(t))
	err := repo.UpdateOrderStatus(context.Background(), "offline_0_missing1", model.OrderSynced, "")
	assert.ErrorIs(t, err, apierror.ErrOrderNotFound)
}

func TestRemoveOrderIdempotent(t *testing.T) {
	repo := NewOrderQueueRepository(testDB(t))
	ctx := context.Background()

	queued, err := repo.QueueOrder(ctx, testOrder(""))
	require.NoError(t, err)

	require.NoError(t, repo.RemoveOrder(ctx, queued.ClientOrderID))
	require.NoError(t, repo.RemoveOrder(ctx, queued.ClientOrderID))

	all, err := repo.GetQueuedOrders(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestClearSyncedOrders(t *testing.T) {
	repo := NewOrderQueueRepository(testDB(t))
	ctx := context.Background()

	a, err := repo.QueueOrder(ctx, testOrder(""))
	require.NoError(t, err)
	_, err = repo.QueueOrder(ctx, testOrder(""))
	require.NoError(t, err)

	require.NoError(t, repo.UpdateOrderStatus(ctx, a.ClientOrderID, model.OrderSynced, ""))

	removed, err := repo.ClearSyncedOrders(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	remaining, err := repo.GetQueuedOrders(ctx, "")
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestRequeueFailedRespectsAttemptCap(t *testing.T) {
	repo := NewOrderQueueRepository(testDB(t))
	ctx := context.Background()

	belowCap, err := repo.QueueOrder(ctx, testOrder(""))
	require.NoError(t, err)
	atCap, err := repo.QueueOrder(ctx, testOrder(""))
	require.NoError(t, err)

	require.NoError(t, repo.UpdateOrderStatus(ctx, belowCap.ClientOrderID, model.OrderFailed, "x"))
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.UpdateOrderStatus(ctx, atCap.ClientOrderID, model.OrderFailed, "x"))
	}

	exhausted, err := repo.RequeueFailed(ctx, 3)
	require.NoError(t, err)
	require.Len(t, exhausted, 1)
	assert.Equal(t, atCap.ClientOrderID, exhausted[0].ClientOrderID)

	pending, err := repo.GetQueuedOrders(ctx, model.OrderPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, belowCap.ClientOrderID, pending[0].ClientOrderID)
}

func TestRequeueFailedReturnsExhaustedOnce(t *testing.T) {
	repo := NewOrderQueueRepository(testDB(t))
	ctx := context.Background()

	atCap, err := repo.QueueOrder(ctx, testOrder(""))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.UpdateOrderStatus(ctx, atCap.ClientOrderID, model.OrderFailed, "x"))
	}

	exhausted, err := repo.RequeueFailed(ctx, 3)
	require.NoError(t, err)
	require.Len(t, exhausted, 1)

	// The order stays FAILED in the queue for inspection, but later calls
	// never hand it back for parking again.
	exhausted, err = repo.RequeueFailed(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, exhausted)

	failed, err := repo.GetQueuedOrders(ctx, model.OrderFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.True(t, failed[0].DeadLettered)
}

func TestGetQueueStats(t *testing.T) {
	repo := NewOrderQueueRepository(testDB(t))
	ctx := context.Background()

	a, err := repo.QueueOrder(ctx, testOrder(""))
	require.NoError(t, err)
	_, err = repo.QueueOrder(ctx, testOrder(""))
	require.NoError(t, err)
	c, err := repo.QueueOrder(ctx, testOrder(""))
	require.NoError(t, err)

	require.NoError(t, repo.UpdateOrderStatus(ctx, a.ClientOrderID, model.OrderSynced, ""))
	require.NoError(t, repo.UpdateOrderStatus(ctx, c.ClientOrderID, model.OrderFailed, "x"))

	stats, err := repo.GetQueueStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Total)
	assert.EqualValues(t, 1, stats.Pending)
	assert.EqualValues(t, 1, stats.Synced)
	assert.EqualValues(t, 1, stats.Failed)
	assert.EqualValues(t, 0, stats.Syncing)
}
