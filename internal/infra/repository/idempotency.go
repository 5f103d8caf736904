package repository

import (
	"context"
	"time"

	"stayhub/internal/infra"
	"stayhub/internal/infra/db"
	"stayhub/internal/pkg/pgconv"
	"stayhub/internal/usecase/shared"

	"github.com/google/uuid"
)

const (
	// An existing key is only taken over once it has expired; RowsAffected
	// tells the caller whether it owns the key.
	tryInsertIdempotencyKeySQL = `
INSERT INTO idempotency_keys (key, user_id, endpoint, request_hash, status, expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, 'processing', $6, $5, $5)
ON CONFLICT (key, user_id) DO UPDATE
SET endpoint = EXCLUDED.endpoint,
    request_hash = EXCLUDED.request_hash,
    status = 'processing',
    result_booking_id = NULL,
    expires_at = EXCLUDED.expires_at,
    updated_at = EXCLUDED.updated_at
WHERE idempotency_keys.expires_at < EXCLUDED.created_at`

	completeIdempotencyKeySQL = `
UPDATE idempotency_keys
SET status = 'completed', result_booking_id = $3, updated_at = $4
WHERE key = $1 AND user_id = $2`

	deleteIdempotencyKeySQL = `
DELETE FROM idempotency_keys
WHERE key = $1 AND user_id = $2 AND status = 'processing'`
)

type IdempotencyRepository struct {
	db db.DBTX
}

func NewIdempotencyRepository(db db.DBTX) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

func (r *IdempotencyRepository) TryInsert(ctx context.Context, key, userID uuid.UUID, endpoint, requestHash string, now, expiresAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, tryInsertIdempotencyKeySQL,
		key, userID, endpoint, requestHash, pgconv.TimeToPgtype(now), pgconv.TimeToPgtype(expiresAt))
	if err != nil {
		return false, infra.WrapRepoErr("failed to try insert idempotency key", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *IdempotencyRepository) Complete(ctx context.Context, key, userID, bookingID uuid.UUID, now time.Time) error {
	tag, err := r.db.Exec(ctx, completeIdempotencyKeySQL, key, userID, bookingID, pgconv.TimeToPgtype(now))
	if err != nil {
		return infra.WrapRepoErr("failed to complete idempotency key", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("idempotency key not found", nil, infra.KindNotFound)
	}
	return nil
}

func (r *IdempotencyRepository) Delete(ctx context.Context, key, userID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, deleteIdempotencyKeySQL, key, userID); err != nil {
		return infra.WrapRepoErr("failed to delete idempotency key", err)
	}
	return nil
}

var _ shared.IdempotencyRepository = (*IdempotencyRepository)(nil)
