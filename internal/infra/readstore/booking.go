package readstore

import (
	"context"
	"time"

	"stayhub/internal/domain/booking"
	"stayhub/internal/infra"
	"stayhub/internal/infra/db"
	"stayhub/internal/infra/repository"
	"stayhub/internal/pkg/pgconv"
	"stayhub/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	getBookingViewSQL = `
SELECT b.id, b.property_id, p.name, p.host_id, b.guest_id, b.start_date, b.end_date, b.status,
       b.total_cents, b.promotion_id, pr.code, b.payment_id, pay.status, COALESCE(pay.refunded_cents, 0),
       b.cancelled_by, b.cancel_reason, b.created_at, b.updated_at
FROM bookings b
JOIN properties p ON p.id = b.property_id
LEFT JOIN promotions pr ON pr.id = b.promotion_id
LEFT JOIN payments pay ON pay.booking_id = b.id
WHERE b.id = $1`

	bookingListColumns = `b.id, b.property_id, p.name, b.start_date, b.end_date, b.status, b.total_cents, b.created_at`

	getBookingsByGuestFirstPageSQL = `
SELECT ` + bookingListColumns + `
FROM bookings b
JOIN properties p ON p.id = b.property_id
WHERE b.guest_id = $1
ORDER BY b.created_at DESC, b.id DESC
LIMIT $2`

	getBookingsByGuestKeysetSQL = `
SELECT ` + bookingListColumns + `
FROM bookings b
JOIN properties p ON p.id = b.property_id
WHERE b.guest_id = $1 AND (b.created_at, b.id) < ($2, $3)
ORDER BY b.created_at DESC, b.id DESC
LIMIT $4`
)

type BookingReadStore struct {
	db db.DBTX
}

func NewBookingReadStore(db db.DBTX) *BookingReadStore {
	return &BookingReadStore{db: db}
}

// FindDomainByID loads the aggregate without locking it.
func (r *BookingReadStore) FindDomainByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return repository.ScanBooking(r.db.QueryRow(ctx, repository.GetBookingSQL, id))
}

func (r *BookingReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.BookingView, error) {
	var (
		v                    queries.BookingView
		start, end           pgtype.Date
		promotionID          pgtype.UUID
		promotionCode        pgtype.Text
		paymentID            pgtype.Text
		paymentStatus        pgtype.Text
		cancelledBy          pgtype.UUID
		cancelReason         pgtype.Text
		createdAt, updatedAt pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, getBookingViewSQL, id).Scan(
		&v.ID,
		&v.PropertyID,
		&v.PropertyName,
		&v.HostID,
		&v.GuestID,
		&start,
		&end,
		&v.Status,
		&v.TotalCents,
		&promotionID,
		&promotionCode,
		&paymentID,
		&paymentStatus,
		&v.RefundedCents,
		&cancelledBy,
		&cancelReason,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("booking not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find booking by ID", err)
	}

	v.StartDate = pgconv.DateFromPgtype(start)
	v.EndDate = pgconv.DateFromPgtype(end)
	v.Nights = int(v.EndDate.Sub(v.StartDate).Hours() / 24)
	v.PromotionID = pgconv.UUIDPtrFromPgtype(promotionID)
	v.PromotionCode = pgconv.StringPtrFromPgtype(promotionCode)
	v.PaymentID = pgconv.StringPtrFromPgtype(paymentID)
	v.PaymentStatus = pgconv.StringPtrFromPgtype(paymentStatus)
	v.CancelledBy = pgconv.UUIDPtrFromPgtype(cancelledBy)
	v.CancelReason = pgconv.StringPtrFromPgtype(cancelReason)
	v.CreatedAt = pgconv.TimeFromPgtype(createdAt)
	v.UpdatedAt = pgconv.TimeFromPgtype(updatedAt)
	return &v, nil
}

func (r *BookingReadStore) FindByGuestFirstPage(ctx context.Context, guestID uuid.UUID, limit int32) ([]*queries.BookingListItem, error) {
	rows, err := r.db.Query(ctx, getBookingsByGuestFirstPageSQL, guestID, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find bookings first page", err)
	}
	return collectListItems(rows)
}

func (r *BookingReadStore) FindByGuestKeyset(ctx context.Context, guestID uuid.UUID, lastCreatedAt time.Time, lastID uuid.UUID, limit int32) ([]*queries.BookingListItem, error) {
	rows, err := r.db.Query(ctx, getBookingsByGuestKeysetSQL, guestID, pgconv.TimeToPgtype(lastCreatedAt), lastID, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find bookings keyset", err)
	}
	return collectListItems(rows)
}

func collectListItems(rows pgx.Rows) ([]*queries.BookingListItem, error) {
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*queries.BookingListItem, error) {
		var (
			item       queries.BookingListItem
			start, end pgtype.Date
			createdAt  pgtype.Timestamptz
		)
		if err := row.Scan(&item.ID, &item.PropertyID, &item.PropertyName, &start, &end, &item.Status, &item.TotalCents, &createdAt); err != nil {
			return nil, err
		}
		item.StartDate = pgconv.DateFromPgtype(start)
		item.EndDate = pgconv.DateFromPgtype(end)
		item.CreatedAt = pgconv.TimeFromPgtype(createdAt)
		return &item, nil
	})
	if err != nil {
		return nil, infra.WrapRepoErr("failed to scan booking list", err)
	}
	return items, nil
}
