package repository

import (
	"context"

	"stayhub/internal/domain/booking"
	"stayhub/internal/domain/calendar"
	"stayhub/internal/infra"
	"stayhub/internal/infra/db"
	"stayhub/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	bookingColumns = `id, property_id, guest_id, start_date, end_date, status, total_cents,
	promotion_id, hold_token, payment_id, cancelled_by, cancel_reason, version, created_at, updated_at`

	createBookingSQL = `
INSERT INTO bookings (` + bookingColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	getBookingForUpdateSQL = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`

	getBookingByTokenForUpdateSQL = `SELECT ` + bookingColumns + ` FROM bookings WHERE hold_token = $1 FOR UPDATE`

	GetBookingSQL = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	saveBookingSQL = `
UPDATE bookings
SET status = $3, payment_id = $4, cancelled_by = $5, cancel_reason = $6,
    version = version + 1, updated_at = $7
WHERE id = $1 AND version = $2`
)

type BookingRepository struct {
	db db.DBTX
}

func NewBookingRepository(db db.DBTX) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	rec := b.Record()
	_, err := r.db.Exec(ctx, createBookingSQL,
		rec.ID,
		rec.PropertyID,
		rec.GuestID,
		pgconv.DateToPgtype(rec.StartDate),
		pgconv.DateToPgtype(rec.EndDate),
		rec.Status,
		rec.TotalCents,
		pgconv.UUIDPtrToPgtype(rec.PromotionID),
		rec.HoldToken,
		pgconv.StringPtrToPgtype(rec.PaymentID),
		pgconv.UUIDPtrToPgtype(rec.CancelledBy),
		pgconv.StringPtrToPgtype(rec.CancelReason),
		rec.Version,
		pgconv.TimeToPgtype(rec.CreatedAt),
		pgconv.TimeToPgtype(rec.UpdatedAt),
	)
	if err != nil {
		switch {
		case pgconv.IsUniqueViolation(err):
			return infra.WrapRepoErr("booking already exists", err, infra.KindDuplicateKey)
		case pgconv.IsForeignKeyViolation(err):
			return infra.WrapRepoErr("booking references a missing row", err, infra.KindForeignKeyViolated)
		}
		return infra.WrapRepoErr("failed to create booking", err)
	}
	return nil
}

func (r *BookingRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return ScanBooking(r.db.QueryRow(ctx, getBookingForUpdateSQL, id))
}

func (r *BookingRepository) GetByHoldTokenForUpdate(ctx context.Context, token calendar.Token) (*booking.Booking, error) {
	return ScanBooking(r.db.QueryRow(ctx, getBookingByTokenForUpdateSQL, token.UUID()))
}

func (r *BookingRepository) Save(ctx context.Context, b *booking.Booking) error {
	rec := b.Record()
	tag, err := r.db.Exec(ctx, saveBookingSQL,
		rec.ID,
		rec.Version,
		rec.Status,
		pgconv.StringPtrToPgtype(rec.PaymentID),
		pgconv.UUIDPtrToPgtype(rec.CancelledBy),
		pgconv.StringPtrToPgtype(rec.CancelReason),
		pgconv.TimeToPgtype(rec.UpdatedAt),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to save booking", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("booking was modified concurrently", nil, infra.KindConflict)
	}
	return nil
}

// ScanBooking reads one row selected with bookingColumns.
func ScanBooking(row pgx.Row) (*booking.Booking, error) {
	var (
		rec          booking.Record
		start, end   pgtype.Date
		promotionID  pgtype.UUID
		paymentID    pgtype.Text
		cancelledBy  pgtype.UUID
		cancelReason pgtype.Text
		createdAt    pgtype.Timestamptz
		updatedAt    pgtype.Timestamptz
	)
	err := row.Scan(
		&rec.ID,
		&rec.PropertyID,
		&rec.GuestID,
		&start,
		&end,
		&rec.Status,
		&rec.TotalCents,
		&promotionID,
		&rec.HoldToken,
		&paymentID,
		&cancelledBy,
		&cancelReason,
		&rec.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("booking not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to scan booking", err)
	}

	rec.StartDate = pgconv.DateFromPgtype(start)
	rec.EndDate = pgconv.DateFromPgtype(end)
	rec.PromotionID = pgconv.UUIDPtrFromPgtype(promotionID)
	rec.PaymentID = pgconv.StringPtrFromPgtype(paymentID)
	rec.CancelledBy = pgconv.UUIDPtrFromPgtype(cancelledBy)
	rec.CancelReason = pgconv.StringPtrFromPgtype(cancelReason)
	rec.CreatedAt = pgconv.TimeFromPgtype(createdAt)
	rec.UpdatedAt = pgconv.TimeFromPgtype(updatedAt)

	b, err := booking.Reconstruct(rec)
	if err != nil {
		return nil, infra.WrapRepoErr("invalid booking row", err)
	}
	return b, nil
}
