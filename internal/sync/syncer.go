package sync

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rjnat/cursorpos/internal/dto"
	"github.com/rjnat/cursorpos/internal/infra"
	"github.com/rjnat/cursorpos/internal/model"
	"github.com/rjnat/cursorpos/internal/repository"
)

// OrderSubmitter sends one queued payload to the remote transaction endpoint.
type OrderSubmitter interface {
	SubmitTransaction(ctx context.Context, clientOrderID string, payload json.RawMessage) (*dto.TransactionResponse, error)
}

// Result is the aggregate outcome of one sync pass.
type Result struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

// Progress is emitted to progress subscribers after each order and once more
// when the pass finishes.
type Progress struct {
	Syncing   bool   `json:"syncing"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Success   int    `json:"success"`
	Failed    int    `json:"failed"`
	Err       string `json:"error,omitempty"`
}

// Stats combines queue counts with the synchronizer's own state.
type Stats struct {
	model.QueueStats
	Online  bool `json:"online"`
	Syncing bool `json:"syncing"`
}

// Options tunes the synchronizer's loop and retry policy.
type Options struct {
	// Interval between auto-sync passes (default 30s).
	Interval time.Duration
	// RetryFailed requeues below-cap FAILED orders to PENDING at the start of
	// each pass. Off reproduces the strand-FAILED behavior of the original
	// terminal.
	RetryFailed bool
	// MaxAttempts caps sync attempts per order; orders at the cap stay FAILED
	// and are copied to the dead-letter table exactly once, on the pass that
	// finds them exhausted.
	MaxAttempts int
}

func defaultOptions(o Options) Options {
	if o.Interval <= 0 {
		o.Interval = 30 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	return o
}

// Syncer drains the PENDING queue to the remote endpoint whenever online.
// At most one pass runs at a time; a pass requested while another is in
// flight is rejected (nil result), not queued.
type Syncer struct {
	queue     repository.OrderQueueRepository
	dlq       repository.DeadLetterRepository
	submitter OrderSubmitter
	monitor   *Monitor
	cb        *infra.CircuitBreaker
	opts      Options

	mu         sync.Mutex
	syncing    bool
	loopCancel context.CancelFunc

	progMu   sync.Mutex
	progNext int
	progSubs map[int]func(Progress)
}

func NewSyncer(queue repository.OrderQueueRepository, dlq repository.DeadLetterRepository, submitter OrderSubmitter, monitor *Monitor, cb *infra.CircuitBreaker, opts Options) *Syncer {
	return &Syncer{
		queue:     queue,
		dlq:       dlq,
		submitter: submitter,
		monitor:   monitor,
		cb:        cb,
		opts:      defaultOptions(opts),
		progSubs:  make(map[int]func(Progress)),
	}
}

// SubscribeProgress registers a progress callback and returns an unsubscribe
// function.
func (s *Syncer) SubscribeProgress(cb func(Progress)) func() {
	s.progMu.Lock()
	id := s.progNext
	s.progNext++
	s.progSubs[id] = cb
	s.progMu.Unlock()

	return func() {
		s.progMu.Lock()
		delete(s.progSubs, id)
		s.progMu.Unlock()
	}
}

func (s *Syncer) notifyProgress(p Progress) {
	s.progMu.Lock()
	callbacks := make([]func(Progress), 0, len(s.progSubs))
	for _, cb := range s.progSubs {
		callbacks = append(callbacks, cb)
	}
	s.progMu.Unlock()

	for _, cb := range callbacks {
		cb(p)
	}
}

// IsSyncing reports whether a pass is currently in flight.
func (s *Syncer) IsSyncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncing
}

// SyncQueuedOrders runs one sync pass.
//
// Offline returns a zero-activity result without touching the queue. A pass
// already in flight returns (nil, nil): the caller gets no automatic retry
// and must re-trigger or wait for the next tick. One order's failure never
// aborts the batch; SYNCED orders are garbage-collected after the loop.
func (s *Syncer) SyncQueuedOrders(ctx context.Context) (*Result, error) {
	if !s.monitor.IsOnline() {
		log.Debug().Msg("syncer: skipping pass, offline")
		return &Result{}, nil
	}

	s.mu.Lock()
	if s.syncing {
		s.mu.Unlock()
		log.Debug().Msg("syncer: pass already in progress")
		return nil, nil
	}
	s.syncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.syncing = false
		s.mu.Unlock()
	}()

	if s.opts.RetryFailed {
		if err := s.requeueFailed(ctx); err != nil {
			log.Error().Err(err).Msg("syncer: requeue failed orders")
		}
	}

	pending, err := s.queue.GetQueuedOrders(ctx, model.OrderPending)
	if err != nil {
		s.notifyProgress(Progress{Syncing: false, Err: err.Error()})
		return nil, err
	}
	if len(pending) == 0 {
		return &Result{}, nil
	}

	total := len(pending)
	log.Info().Int("count", total).Msg("syncer: draining queue")
	s.notifyProgress(Progress{Syncing: true, Total: total})

	result := &Result{Total: total}
	for i, order := range pending {
		// A pass never aborts mid-order, but between orders it observes the
		// monitor: the remainder of the batch stays PENDING for the next pass.
		if i > 0 && !s.monitor.IsOnline() {
			log.Warn().
				Int("remaining", total-i).
				Msg("syncer: went offline mid-pass, stopping early")
			result.Total = i
			break
		}
		s.syncOne(ctx, order, result)
		s.notifyProgress(Progress{
			Syncing:   true,
			Total:     total,
			Completed: i + 1,
			Success:   result.Success,
			Failed:    result.Failed,
		})
	}

	if removed, err := s.queue.ClearSyncedOrders(ctx); err != nil {
		log.Error().Err(err).Msg("syncer: clear synced orders")
	} else if removed > 0 {
		log.Debug().Int64("removed", removed).Msg("syncer: garbage-collected synced orders")
	}

	log.Info().
		Int("success", result.Success).
		Int("failed", result.Failed).
		Msg("syncer: pass complete")

	s.notifyProgress(Progress{
		Syncing:   false,
		Total:     result.Total,
		Completed: result.Total,
		Success:   result.Success,
		Failed:    result.Failed,
	})
	return result, nil
}

// syncOne marks SYNCING, submits, then marks SYNCED or FAILED. Submission
// errors become the order's errorMessage; they never propagate.
func (s *Syncer) syncOne(ctx context.Context, order model.QueuedOrder, result *Result) {
	if err := s.queue.UpdateOrderStatus(ctx, order.ClientOrderID, model.OrderSyncing, ""); err != nil {
		log.Error().Err(err).Str("client_order_id", order.ClientOrderID).Msg("syncer: mark syncing")
		result.Failed++
		return
	}

	var resp *dto.TransactionResponse
	submitErr := s.cb.Execute(func() error {
		r, err := s.submitter.SubmitTransaction(ctx, order.ClientOrderID, order.OrderData)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})

	if submitErr != nil {
		if err := s.queue.UpdateOrderStatus(ctx, order.ClientOrderID, model.OrderFailed, submitErr.Error()); err != nil {
			log.Error().Err(err).Str("client_order_id", order.ClientOrderID).Msg("syncer: mark failed")
		}
		result.Failed++
		log.Warn().
			Err(submitErr).
			Str("client_order_id", order.ClientOrderID).
			Msg("syncer: order submission failed")
		return
	}

	if err := s.queue.UpdateOrderStatus(ctx, order.ClientOrderID, model.OrderSynced, ""); err != nil {
		log.Error().Err(err).Str("client_order_id", order.ClientOrderID).Msg("syncer: mark synced")
	}
	result.Success++
	log.Info().
		Str("client_order_id", order.ClientOrderID).
		Str("transaction_number", resp.TransactionNumber).
		Msg("syncer: order synced")
}

// requeueFailed flips retryable FAILED orders back to PENDING and parks
// exhausted ones in the dead-letter table.
func (s *Syncer) requeueFailed(ctx context.Context) error {
	exhausted, err := s.queue.RequeueFailed(ctx, s.opts.MaxAttempts)
	if err != nil {
		return err
	}
	for _, order := range exhausted {
		reason := "max sync attempts exceeded"
		if order.ErrorMessage != nil {
			reason += ": " + *order.ErrorMessage
		}
		if err := s.dlq.Add(ctx, "orders_queue", "transaction", order.OrderData, reason, order.SyncAttempts); err != nil {
			log.Error().Err(err).Str("client_order_id", order.ClientOrderID).Msg("syncer: dead-letter order")
		}
	}
	return nil
}

// ManualSync runs exactly one pass outside the timer cadence, with the same
// overlap prevention.
func (s *Syncer) ManualSync(ctx context.Context) (*Result, error) {
	log.Info().Msg("syncer: manual sync triggered")
	return s.SyncQueuedOrders(ctx)
}

// GetSyncStats reports queue counts plus online/syncing flags.
func (s *Syncer) GetSyncStats(ctx context.Context) (*Stats, error) {
	queueStats, err := s.queue.GetQueueStats(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		QueueStats: *queueStats,
		Online:     s.monitor.IsOnline(),
		Syncing:    s.IsSyncing(),
	}, nil
}

// StartAutoSync triggers one pass immediately, then repeats on the interval
// until stopped. Starting an already-running loop is a no-op.
func (s *Syncer) StartAutoSync(ctx context.Context) {
	s.mu.Lock()
	if s.loopCancel != nil {
		s.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.loopCancel = cancel
	s.mu.Unlock()

	log.Info().Dur("interval", s.opts.Interval).Msg("syncer: auto-sync started")
	go func() {
		if _, err := s.SyncQueuedOrders(loopCtx); err != nil {
			log.Error().Err(err).Msg("syncer: auto-sync pass")
		}
		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if _, err := s.SyncQueuedOrders(loopCtx); err != nil {
					log.Error().Err(err).Msg("syncer: auto-sync pass")
				}
			}
		}
	}()
}

// StopAutoSync halts the loop. Safe when never started; idempotent. An
// in-flight pass is not cancelled: it completes its current order and exits
// on the next offline check.
func (s *Syncer) StopAutoSync() {
	s.mu.Lock()
	cancel := s.loopCancel
	s.loopCancel = nil
	s.mu.Unlock()
	if cancel != nil {
		log.Info().Msg("syncer: auto-sync stopped")
		cancel()
	}
}

// Bind wires the auto-sync loop to connectivity transitions: coming online
// starts it (and triggers an immediate pass), going offline stops it.
// Returns the unsubscribe function.
func (s *Syncer) Bind(ctx context.Context) func() {
	return s.monitor.Subscribe(func(online bool) {
		if online {
			s.StartAutoSync(ctx)
		} else {
			s.StopAutoSync()
		}
	})
}
