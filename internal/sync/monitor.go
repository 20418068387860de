// Package sync owns offline resilience: the connectivity monitor and the
// background synchronizer that drains the durable order queue.
package sync

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Pinger checks reachability of the remote POS API.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor tracks online/offline transitions. It probes the remote endpoint on
// an interval and also accepts explicit signals via SetOnline (platform
// events, tests). Subscribers get the current status immediately on
// subscribe, then every transition, synchronously and in registration order.
type Monitor struct {
	pinger   Pinger
	interval time.Duration

	mu     sync.Mutex
	online bool
	nextID int
	subs   map[int]func(online bool)
	cancel context.CancelFunc
}

func NewMonitor(pinger Pinger, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Monitor{
		pinger:   pinger,
		interval: interval,
		subs:     make(map[int]func(bool)),
	}
}

// IsOnline is an instantaneous snapshot.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records a status transition and notifies subscribers. Setting the
// current status again is a no-op (no duplicate notifications).
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	callbacks := m.orderedSubs()
	m.mu.Unlock()

	if online {
		log.Info().Msg("monitor: connection restored")
	} else {
		log.Warn().Msg("monitor: connection lost, working offline")
	}
	for _, cb := range callbacks {
		cb(online)
	}
}

// Subscribe registers a callback, immediately invokes it once with the
// current status, and returns an unsubscribe function. Unsubscribing one
// subscriber never affects the others; unsubscribe is idempotent.
func (m *Monitor) Subscribe(cb func(online bool)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = cb
	online := m.online
	m.mu.Unlock()

	cb(online)

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Start launches the probe loop: one probe immediately, then on the interval.
// Starting an already-started monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()

	go func() {
		m.probe(ctx)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.probe(ctx)
			}
		}
	}()
}

// Stop halts the probe loop. Safe to call when never started, and safe to
// call repeatedly.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	m.SetOnline(m.pinger.Ping(probeCtx) == nil)
}

// orderedSubs snapshots the callbacks in registration order. Must be called
// under lock.
func (m *Monitor) orderedSubs() []func(bool) {
	ids := make([]int, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	// subscription ids are monotonically increasing
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[j] < ids[i] {
				ids[i], ids[j] = ids[j], ids[i]
			}
		}
	}
	callbacks := make([]func(bool), 0, len(ids))
	for _, id := range ids {
		callbacks = append(callbacks, m.subs[id])
	}
	return callbacks
}
