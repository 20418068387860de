package sync

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjnat/cursorpos/internal/apierror"
	"github.com/rjnat/cursorpos/internal/dto"
	"github.com/rjnat/cursorpos/internal/infra"
	"github.com/rjnat/cursorpos/internal/model"
	"github.com/rjnat/cursorpos/internal/repository"
)

type stubSubmitter struct {
	calls atomic.Int64
	delay time.Duration
	// fail makes every submission return a network error
	fail atomic.Bool
	// afterFirst runs once the first submission completes
	afterFirst func()
}

func (s *stubSubmitter) SubmitTransaction(_ context.Context, clientOrderID string, _ json.RawMessage) (*dto.TransactionResponse, error) {
	n := s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if n == 1 && s.afterFirst != nil {
		defer s.afterFirst()
	}
	if s.fail.Load() {
		return nil, &apierror.NetworkError{Op: "submit", Err: errors.New("connection refused")}
	}
	return &dto.TransactionResponse{
		ID:                "srv-" + clientOrderID,
		TransactionNumber: "TRX-0001",
		Status:            "COMPLETED",
	}, nil
}

type syncerFixture struct {
	syncer    *Syncer
	queue     repository.OrderQueueRepository
	dlq       repository.DeadLetterRepository
	monitor   *Monitor
	submitter *stubSubmitter
}

func newSyncerFixture(t *testing.T, opts Options) *syncerFixture {
	t.Helper()
	db, err := infra.NewDatabase(filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = infra.CloseDatabase(db) })

	queue := repository.NewOrderQueueRepository(db)
	dlq := repository.NewDeadLetterRepository(db)
	monitor := NewMonitor(&stubPinger{}, time.Minute)
	submitter := &stubSubmitter{}
	cb := infra.NewCircuitBreaker(infra.DefaultCBConfig())

	return &syncerFixture{
		syncer:    NewSyncer(queue, dlq, submitter, monitor, cb, opts),
		queue:     queue,
		dlq:       dlq,
		monitor:   monitor,
		submitter: submitter,
	}
}

func (f *syncerFixture) queueOrders(t *testing.T, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		order, err := f.queue.QueueOrder(context.Background(), &model.QueuedOrder{
			TenantID:  "t1",
			StoreID:   "s1",
			OrderData: json.RawMessage(`{"grandTotal":"100"}`),
		})
		require.NoError(t, err)
		ids = append(ids, order.ClientOrderID)
	}
	return ids
}

func TestSyncAllSuccessDrainsQueue(t *testing.T) {
	f := newSyncerFixture(t, Options{})
	f.queueOrders(t, 3)
	f.monitor.SetOnline(true)

	result, err := f.syncer.SyncQueuedOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Result{Success: 3, Failed: 0, Total: 3}, result)
	assert.EqualValues(t, 3, f.submitter.calls.Load())

	// SYNCED orders are garbage-collected after the pass.
	remaining, err := f.queue.GetQueuedOrders(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestSyncAllFailMarksOrdersFailed(t *testing.T) {
	f := newSyncerFixture(t, Options{})
	f.queueOrders(t, 2)
	f.submitter.fail.Store(true)
	f.monitor.SetOnline(true)

	result, err := f.syncer.SyncQueuedOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Result{Success: 0, Failed: 2, Total: 2}, result)

	failed, err := f.queue.GetQueuedOrders(context.Background(), model.OrderFailed)
	require.NoError(t, err)
	require.Len(t, failed, 2)
	for _, order := range failed {
		require.NotNil(t, order.ErrorMessage)
		assert.Contains(t, *order.ErrorMessage, "connection refused")
	}
}

func TestSyncOfflineTouchesNothing(t *testing.T) {
	f := newSyncerFixture(t, Options{})
	f.queueOrders(t, 2)

	result, err := f.syncer.SyncQueuedOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Result{}, result)
	assert.EqualValues(t, 0, f.submitter.calls.Load())

	pending, err := f.queue.GetQueuedOrders(context.Background(), model.OrderPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2, "queue untouched while offline")
}

func TestSyncOverlapGuard(t *testing.T) {
	f := newSyncerFixture(t, Options{})
	f.queueOrders(t, 3)
	f.submitter.delay = 30 * time.Millisecond
	f.monitor.SetOnline(true)

	done := make(chan *Result, 1)
	go func() {
		result, err := f.syncer.SyncQueuedOrders(context.Background())
		require.NoError(t, err)
		done <- result
	}()

	require.Eventually(t, f.syncer.IsSyncing, time.Second, time.Millisecond)

	// A second trigger while the pass runs is rejected, not queued.
	second, err := f.syncer.SyncQueuedOrders(context.Background())
	require.NoError(t, err)
	assert.Nil(t, second)

	first := <-done
	assert.Equal(t, &Result{Success: 3, Failed: 0, Total: 3}, first)
	assert.EqualValues(t, 3, f.submitter.calls.Load(), "each order submitted exactly once")
}

func TestSyncGoesOfflineMidPass(t *testing.T) {
	f := newSyncerFixture(t, Options{})
	f.queueOrders(t, 3)
	f.monitor.SetOnline(true)
	f.submitter.afterFirst = func() { f.monitor.SetOnline(false) }

	result, err := f.syncer.SyncQueuedOrders(context.Background())
	require.NoError(t, err)
	// The in-flight order completes; the rest wait for the next pass.
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.Success)
	assert.EqualValues(t, 1, f.submitter.calls.Load())

	pending, err := f.queue.GetQueuedOrders(context.Background(), model.OrderPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestSyncRetriesFailedAndDeadLettersExhausted(t *testing.T) {
	f := newSyncerFixture(t, Options{RetryFailed: true, MaxAttempts: 3})
	ids := f.queueOrders(t, 2)
	ctx := context.Background()

	// One order has failed once, the other is out of attempts.
	require.NoError(t, f.queue.UpdateOrderStatus(ctx, ids[0], model.OrderFailed, "flaky link"))
	for i := 0; i < 3; i++ {
		require.NoError(t, f.queue.UpdateOrderStatus(ctx, ids[1], model.OrderFailed, "backend 500"))
	}

	f.monitor.SetOnline(true)
	result, err := f.syncer.SyncQueuedOrders(ctx)
	require.NoError(t, err)
	// Only the requeued order is retried, and it now succeeds.
	assert.Equal(t, &Result{Success: 1, Failed: 0, Total: 1}, result)

	entries, err := f.dlq.List(ctx, "orders_queue")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Reason, "max sync attempts exceeded")
	assert.Contains(t, entries[0].Reason, "backend 500")
}

func TestSyncDeadLettersExhaustedOrderOnlyOnce(t *testing.T) {
	f := newSyncerFixture(t, Options{RetryFailed: true, MaxAttempts: 3})
	ids := f.queueOrders(t, 1)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, f.queue.UpdateOrderStatus(ctx, ids[0], model.OrderFailed, "backend 500"))
	}

	f.monitor.SetOnline(true)
	_, err := f.syncer.SyncQueuedOrders(ctx)
	require.NoError(t, err)
	_, err = f.syncer.SyncQueuedOrders(ctx)
	require.NoError(t, err)

	// The stuck order must not accumulate a dead-letter entry per pass.
	entries, err := f.dlq.List(ctx, "orders_queue")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	failed, err := f.queue.GetQueuedOrders(ctx, model.OrderFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.True(t, failed[0].DeadLettered)
}

func TestSyncProgressNotifications(t *testing.T) {
	f := newSyncerFixture(t, Options{})
	f.queueOrders(t, 2)
	f.monitor.SetOnline(true)

	var updates []Progress
	unsub := f.syncer.SubscribeProgress(func(p Progress) { updates = append(updates, p) })
	defer unsub()

	_, err := f.syncer.SyncQueuedOrders(context.Background())
	require.NoError(t, err)

	// start + one per order + final
	require.Len(t, updates, 4)
	assert.Equal(t, Progress{Syncing: true, Total: 2}, updates[0])
	assert.Equal(t, Progress{Syncing: true, Total: 2, Completed: 1, Success: 1}, updates[1])
	final := updates[len(updates)-1]
	assert.False(t, final.Syncing)
	assert.Equal(t, 2, final.Success)
	assert.Equal(t, 2, final.Completed)
}

func TestBindFollowsConnectivity(t *testing.T) {
	f := newSyncerFixture(t, Options{Interval: time.Hour})
	f.queueOrders(t, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	unbind := f.syncer.Bind(ctx)
	defer unbind()

	// Coming online triggers an immediate pass through the auto-sync loop.
	f.monitor.SetOnline(true)
	require.Eventually(t, func() bool {
		return f.submitter.calls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	f.monitor.SetOnline(false)
	f.monitor.SetOnline(true)
	// The restarted loop finds an empty queue; no extra submissions.
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, f.submitter.calls.Load())
}
