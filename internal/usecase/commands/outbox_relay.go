package commands

import (
	"context"
	"log/slog"
	"time"

	"stayhub/internal/pkg/clock"
	"stayhub/internal/pkg/errs"
	"stayhub/internal/pkg/worker"
	"stayhub/internal/usecase/shared"

	"github.com/google/uuid"
)

const (
	maxRelayRetryDelay = 5 * time.Minute
	// claimLease bounds how long a claimed batch stays hidden if the relay dies.
	claimLease = time.Minute
)

type OutboxRelayConfig struct {
	Interval time.Duration
	Batch    int
}

// OutboxRelay publishes committed outbox events. Delivery is at least once:
// a batch is marked published only after the publisher accepted it.
type OutboxRelay struct {
	*worker.Periodic
	uow       shared.UnitOfWork
	publisher shared.EventPublisher
	clock     clock.Clock
	logger    *slog.Logger
	batch     int
}

func NewOutboxRelay(uow shared.UnitOfWork, publisher shared.EventPublisher, clk clock.Clock, logger *slog.Logger, cfg OutboxRelayConfig) *OutboxRelay {
	if cfg.Batch <= 0 {
		cfg.Batch = 50
	}
	r := &OutboxRelay{
		uow:       uow,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
		batch:     cfg.Batch,
	}
	r.Periodic = worker.NewPeriodic("outbox-relay", cfg.Interval, func(ctx context.Context) error {
		_, err := r.Relay(ctx)
		return err
	}, logger)
	return r
}

// Relay publishes one batch and reports how many events went out. The batch
// is claimed and settled in separate transactions; publishing holds none.
func (r *OutboxRelay) Relay(ctx context.Context) (int, error) {
	now := r.clock.Now()

	var events []shared.OutboxEvent
	err := r.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) (err error) {
		events, err = tx.Outbox().ClaimBatch(ctx, r.batch, now, now.Add(claimLease))
		return err
	})
	if err != nil {
		return 0, errs.Wrap(err, "failed to claim outbox events")
	}
	if len(events) == 0 {
		return 0, nil
	}

	pubErr := r.publisher.Publish(ctx, events)
	if pubErr != nil {
		r.logger.Warn("failed to publish outbox batch", "size", len(events), "error", pubErr.Error())
	}

	err = r.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if pubErr != nil {
			for _, e := range events {
				if err := tx.Outbox().MarkFailed(ctx, e.ID, pubErr.Error(), now.Add(retryDelay(e.Attempts+1))); err != nil {
					return err
				}
			}
			return nil
		}
		ids := make([]uuid.UUID, 0, len(events))
		for _, e := range events {
			ids = append(ids, e.ID)
		}
		return tx.Outbox().MarkPublished(ctx, ids, r.clock.Now())
	})
	if err != nil {
		return 0, errs.Wrap(err, "failed to settle outbox events")
	}
	if pubErr != nil {
		return 0, nil
	}
	return len(events), nil
}

// retryDelay doubles per attempt from one second up to maxRelayRetryDelay.
func retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 16 {
		return maxRelayRetryDelay
	}
	d := time.Second << (attempt - 1)
	if d > maxRelayRetryDelay {
		return maxRelayRetryDelay
	}
	return d
}
