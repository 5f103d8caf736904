package repository

import (
	"context"
	"slices"
	"strings"
	"time"

	"stayhub/internal/infra"
	"stayhub/internal/infra/db"
	"stayhub/internal/pkg/pgconv"
	"stayhub/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	enqueueOutboxSQL = `
INSERT INTO outbox_events (id, topic, event_key, payload, occurred_at, run_at)
VALUES ($1, $2, $3, $4, $5, $5)`

	// The claim moves run_at to the lease deadline, so other relays skip the
	// rows after this transaction commits and a lost batch is retried later.
	claimOutboxSQL = `
WITH due AS (
	SELECT id
	FROM outbox_events
	WHERE status = 'pending' AND run_at <= $1
	ORDER BY occurred_at, id
	LIMIT $2
	FOR UPDATE SKIP LOCKED
)
UPDATE outbox_events o
SET run_at = $3
FROM due
WHERE o.id = due.id
RETURNING o.id, o.topic, o.event_key, o.payload, o.occurred_at, o.attempts`

	markOutboxPublishedSQL = `
UPDATE outbox_events
SET status = 'published', published_at = $2, last_error = NULL
WHERE id = ANY($1::uuid[])`

	markOutboxFailedSQL = `
UPDATE outbox_events
SET attempts = attempts + 1, last_error = $2, run_at = $3
WHERE id = $1`
)

type OutboxRepository struct {
	db db.DBTX
}

func NewOutboxRepository(db db.DBTX) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, e shared.Event) error {
	_, err := r.db.Exec(ctx, enqueueOutboxSQL, uuid.New(), e.Topic, e.Key, e.Payload, pgconv.TimeToPgtype(e.OccurredAt))
	if err != nil {
		return infra.WrapRepoErr("failed to enqueue outbox event", err)
	}
	return nil
}

func (r *OutboxRepository) ClaimBatch(ctx context.Context, limit int, now, leaseUntil time.Time) ([]shared.OutboxEvent, error) {
	rows, err := r.db.Query(ctx, claimOutboxSQL, pgconv.TimeToPgtype(now), limit, pgconv.TimeToPgtype(leaseUntil))
	if err != nil {
		return nil, infra.WrapRepoErr("failed to claim outbox events", err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (shared.OutboxEvent, error) {
		var (
			e          shared.OutboxEvent
			occurredAt pgtype.Timestamptz
		)
		err := row.Scan(&e.ID, &e.Topic, &e.Key, &e.Payload, &occurredAt, &e.Attempts)
		e.OccurredAt = pgconv.TimeFromPgtype(occurredAt)
		return e, err
	})
	if err != nil {
		return nil, infra.WrapRepoErr("failed to scan outbox event", err)
	}
	// RETURNING does not keep the CTE order.
	slices.SortFunc(events, func(a, b shared.OutboxEvent) int {
		if c := a.OccurredAt.Compare(b.OccurredAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return events, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, ids []uuid.UUID, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	if _, err := r.db.Exec(ctx, markOutboxPublishedSQL, raw, pgconv.TimeToPgtype(now)); err != nil {
		return infra.WrapRepoErr("failed to mark outbox events published", err)
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string, retryAt time.Time) error {
	if _, err := r.db.Exec(ctx, markOutboxFailedSQL, id, lastError, pgconv.TimeToPgtype(retryAt)); err != nil {
		return infra.WrapRepoErr("failed to mark outbox event failed", err)
	}
	return nil
}
