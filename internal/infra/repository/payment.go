package repository

import (
	"context"
	"time"

	"stayhub/internal/domain/money"
	"stayhub/internal/infra"
	"stayhub/internal/infra/db"
	"stayhub/internal/pkg/pgconv"
	"stayhub/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	insertPaymentSQL = `
INSERT INTO payments (booking_id, gateway_payment_id, amount_cents, refunded_cents, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getPaymentSQL = `
SELECT booking_id, gateway_payment_id, amount_cents, refunded_cents, status, created_at, updated_at
FROM payments
WHERE booking_id = $1`

	recordRefundSQL = `
UPDATE payments
SET refunded_cents = refunded_cents + $2, status = $3, updated_at = $4
WHERE booking_id = $1`
)

type PaymentRepository struct {
	db db.DBTX
}

func NewPaymentRepository(db db.DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) RecordCapture(ctx context.Context, rec shared.PaymentRecord) error {
	_, err := r.db.Exec(ctx, insertPaymentSQL,
		rec.BookingID,
		rec.GatewayPaymentID,
		rec.AmountCents,
		rec.RefundedCents,
		string(rec.Status),
		pgconv.TimeToPgtype(rec.CreatedAt),
		pgconv.TimeToPgtype(rec.UpdatedAt),
	)
	if err != nil {
		if pgconv.IsUniqueViolation(err) {
			return infra.WrapRepoErr("payment already recorded", err, infra.KindDuplicateKey)
		}
		return infra.WrapRepoErr("failed to record payment", err)
	}
	return nil
}

func (r *PaymentRepository) Get(ctx context.Context, bookingID uuid.UUID) (*shared.PaymentRecord, error) {
	var (
		rec                  shared.PaymentRecord
		status               string
		createdAt, updatedAt pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, getPaymentSQL, bookingID).Scan(
		&rec.BookingID,
		&rec.GatewayPaymentID,
		&rec.AmountCents,
		&rec.RefundedCents,
		&status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("payment not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get payment", err)
	}
	rec.Status = shared.PaymentStatus(status)
	rec.CreatedAt = pgconv.TimeFromPgtype(createdAt)
	rec.UpdatedAt = pgconv.TimeFromPgtype(updatedAt)
	return &rec, nil
}

func (r *PaymentRepository) RecordRefund(ctx context.Context, bookingID uuid.UUID, refunded money.Money, status shared.PaymentStatus, now time.Time) error {
	tag, err := r.db.Exec(ctx, recordRefundSQL, bookingID, refunded.Cents(), string(status), pgconv.TimeToPgtype(now))
	if err != nil {
		return infra.WrapRepoErr("failed to record refund", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("payment not found", nil, infra.KindNotFound)
	}
	return nil
}
