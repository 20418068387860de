package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rjnat/cursorpos/internal/repository"
)

const maxJobAttempts = 3

// Job is a unit of background work. Payload shape is owned by the handler
// registered for Type.
type Job struct {
	Type     string
	Payload  json.RawMessage
	Attempts int
}

// Handler processes one job payload.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Dispatcher feeds jobs to the worker pool through a buffered channel.
type Dispatcher struct {
	jobs chan Job
}

func NewDispatcher(buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	return &Dispatcher{jobs: make(chan Job, buffer)}
}

// Enqueue marshals payload and hands it to the pool. Returns an error when
// the buffer is full rather than blocking the request path.
func (d *Dispatcher) Enqueue(jobType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s job: %w", jobType, err)
	}
	select {
	case d.jobs <- Job{Type: jobType, Payload: raw}:
		return nil
	default:
		return fmt.Errorf("worker queue full, dropping %s job", jobType)
	}
}

// StartPool runs count workers until ctx is cancelled. A job whose handler
// keeps failing is retried with backoff and then parked in the dead letter
// table for inspection.
func StartPool(ctx context.Context, d *Dispatcher, handlers map[string]Handler, deadLetters repository.DeadLetterRepository, count int) {
	if count <= 0 {
		count = 1
	}
	for i := 0; i < count; i++ {
		go runWorker(ctx, i, d, handlers, deadLetters)
	}
	log.Info().Int("workers", count).Msg("worker: pool started")
}

func runWorker(ctx context.Context, id int, d *Dispatcher, handlers map[string]Handler, deadLetters repository.DeadLetterRepository) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-d.jobs:
			process(ctx, id, d, job, handlers, deadLetters)
		}
	}
}

func process(ctx context.Context, workerID int, d *Dispatcher, job Job, handlers map[string]Handler, deadLetters repository.DeadLetterRepository) {
	handler, ok := handlers[job.Type]
	if !ok {
		log.Error().Int("worker", workerID).Str("type", job.Type).Msg("worker: no handler registered")
		park(ctx, deadLetters, job, "no handler registered")
		return
	}

	err := handler(ctx, job.Payload)
	if err == nil {
		return
	}

	job.Attempts++
	log.Warn().Err(err).Int("worker", workerID).Str("type", job.Type).
		Int("attempt", job.Attempts).Msg("worker: job failed")

	if job.Attempts >= maxJobAttempts {
		park(ctx, deadLetters, job, err.Error())
		return
	}

	// Backoff grows with the attempt count before the job re-enters the
	// channel.
	go func() {
		select {
		case <-ctx.Done():
		case <-time.After(time.Duration(job.Attempts) * 2 * time.Second):
			select {
			case d.jobs <- job:
			default:
				park(ctx, deadLetters, job, "worker queue full on retry")
			}
		}
	}()
}

func park(ctx context.Context, deadLetters repository.DeadLetterRepository, job Job, reason string) {
	if err := deadLetters.Add(ctx, "worker", job.Type, job.Payload, reason, job.Attempts); err != nil {
		log.Error().Err(err).Str("type", job.Type).Msg("worker: dead letter write failed")
		return
	}
	log.Error().Str("type", job.Type).Int("attempts", job.Attempts).Str("reason", reason).
		Msg("worker: job parked in dead letters")
}
