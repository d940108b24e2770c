package outbox

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/finvelo/ledger-backend/internal/domain"
	"github.com/finvelo/ledger-backend/internal/events"
	"github.com/finvelo/ledger-backend/internal/platform/logger"
	"github.com/finvelo/ledger-backend/internal/repos"
)

const (
	DefaultInterval    = 5 * time.Second
	DefaultBatchSize   = 100
	DefaultMaxAttempts = 5
)

type Config struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	return c
}

// Dispatcher drains the outbox: each cycle it picks up due messages,
// decodes them and hands them to the sink, then commits every message's
// new state in one batch transaction. Messages that exhaust their
// attempts stay in the table unprocessed so they can be inspected.
type Dispatcher struct {
	outboxRepo repos.OutboxRepo
	sink       events.Sink
	cfg        Config
	log        *logger.Logger
}

func NewDispatcher(outboxRepo repos.OutboxRepo, sink events.Sink, cfg Config, baseLog *logger.Logger) *Dispatcher {
	return &Dispatcher{
		outboxRepo: outboxRepo,
		sink:       sink,
		cfg:        cfg.withDefaults(),
		log:        baseLog.With("worker", "OutboxDispatcher"),
	}
}

// Start runs the dispatch loop until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	d.log.Info("outbox dispatcher started",
		"interval", d.cfg.Interval.String(),
		"batch_size", d.cfg.BatchSize,
		"max_attempts", d.cfg.MaxAttempts,
	)

	for {
		select {
		case <-ctx.Done():
			d.log.Info("outbox dispatcher stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := d.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				d.log.Error("outbox cycle failed", "error", err)
			}
		}
	}
}

// RunOnce executes a single dispatch cycle.
func (d *Dispatcher) RunOnce(ctx context.Context) error {
	now := time.Now().UTC()
	batch, err := d.outboxRepo.GetUnprocessed(ctx, nil, d.cfg.BatchSize, d.cfg.MaxAttempts, now)
	if err != nil {
		return fmt.Errorf("fetching outbox batch: %w", err)
	}
	if len(batch) == 0 {
		return nil
	}

	changed := make([]*domain.OutboxMessage, 0, len(batch))
	for i := range batch {
		msg := &batch[i]
		d.dispatch(ctx, msg)
		changed = append(changed, msg)
		if ctx.Err() != nil {
			break
		}
	}

	if err := d.outboxRepo.UpdateBatch(context.WithoutCancel(ctx), nil, changed); err != nil {
		return fmt.Errorf("committing outbox batch: %w", err)
	}
	return ctx.Err()
}

// dispatch processes one message, containing any panic from decode or
// sink so a single bad message cannot take the loop down.
func (d *Dispatcher) dispatch(ctx context.Context, msg *domain.OutboxMessage) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("panic dispatching outbox message", "message_id", msg.ID, "panic", r)
			msg.RecordFailure(fmt.Sprintf("panic: %v", r), d.retryDelay(msg.AttemptCount+1))
		}
	}()

	ev, err := domain.DecodeEvent(msg.EventType, msg.Payload)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownEventType) {
			d.log.Error("unknown event type, poisoning message", "message_id", msg.ID, "event_type", msg.EventType)
			msg.Poison(err.Error(), d.cfg.MaxAttempts)
			return
		}
		d.log.Error("undecodable outbox payload", "message_id", msg.ID, "error", err)
		msg.RecordFailure(err.Error(), d.retryDelay(msg.AttemptCount+1))
		return
	}

	if err := d.send(ctx, ev); err != nil {
		attempts := msg.AttemptCount + 1
		msg.RecordFailure(err.Error(), d.retryDelay(attempts))
		if attempts >= d.cfg.MaxAttempts {
			d.log.Error("outbox message exhausted its attempts",
				"message_id", msg.ID,
				"event_type", msg.EventType,
				"attempts", attempts,
			)
		} else {
			d.log.Warn("outbox delivery failed, will retry",
				"message_id", msg.ID,
				"event_type", msg.EventType,
				"attempts", attempts,
			)
		}
		return
	}

	msg.MarkProcessed()
	d.log.Debug("outbox message delivered", "message_id", msg.ID, "event_type", msg.EventType)
}

// send wraps the sink call in a bounded exponential retry so transient
// consumer hiccups are absorbed inside the cycle.
func (d *Dispatcher) send(ctx context.Context, ev domain.Event) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 2 * time.Second
	policy.Multiplier = 2
	policy.RandomizationFactor = 0

	return backoff.Retry(func() error {
		return d.sink.Send(ctx, ev)
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(d.cfg.MaxAttempts-1)), ctx))
}

func (d *Dispatcher) retryDelay(attempts int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempts))) * time.Second
}
