package shared

import (
	"context"
	"time"

	"stayhub/internal/domain/booking"
	"stayhub/internal/domain/calendar"
	"stayhub/internal/domain/money"
	"stayhub/internal/domain/promotion"
	"stayhub/internal/domain/property"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: Full transaction for write operations with retry logic
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// CommandReads: Direct access to command reads for validation outside transactions
	CommandReads() CommandReads
}

// Tx is the request-scoped transaction handle. Every store it hands out is
// bound to the same underlying transaction.
type Tx interface {
	Calendar() CalendarStore
	Bookings() BookingStore
	Promotions() PromotionStore
	Payments() PaymentLedger
	Idempotency() IdempotencyRepository
	Outbox() OutboxRepository
	Reads() CommandReads
}

type CommandReads interface {
	PropertyByID(ctx context.Context, id uuid.UUID) (*property.Property, error)
	PromotionByCode(ctx context.Context, code promotion.Code) (*promotion.Promotion, error)
	HasRedeemed(ctx context.Context, promotionID, userID uuid.UUID) (bool, error)
	BookingByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	IdempotencyByKey(ctx context.Context, key, userID uuid.UUID) (*IdempotencyRecord, error)
	CalendarRange(ctx context.Context, propertyID uuid.UUID, r calendar.DateRange) ([]calendar.Day, error)
}

// CalendarStore owns per-day availability. A day without a stored row is available.
type CalendarStore interface {
	GetRange(ctx context.Context, propertyID uuid.UUID, r calendar.DateRange) ([]calendar.Day, error)
	// TryHold marks every day of r as held by token or none of them; calendar.ErrHoldConflict otherwise.
	TryHold(ctx context.Context, propertyID uuid.UUID, r calendar.DateRange, token calendar.Token, now time.Time) error
	// Commit turns days held by token into booked; calendar.ErrOwnershipMismatch if any day is not owned.
	Commit(ctx context.Context, propertyID uuid.UUID, r calendar.DateRange, token calendar.Token, now time.Time) error
	// Release frees the days of r owned by token and reports how many were freed.
	Release(ctx context.Context, propertyID uuid.UUID, r calendar.DateRange, token calendar.Token) (int, error)
	ExpiredHolds(ctx context.Context, heldBefore time.Time, limit int) ([]calendar.ExpiredHold, error)
}

type BookingStore interface {
	Create(ctx context.Context, b *booking.Booking) error
	// GetForUpdate loads the booking and locks it until the transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	GetByHoldTokenForUpdate(ctx context.Context, token calendar.Token) (*booking.Booking, error)
	// Save persists b if its version is still current and bumps the version.
	Save(ctx context.Context, b *booking.Booking) error
}

type PromotionStore interface {
	// Redeem consumes one use; promotion.ErrExhausted at the ceiling,
	// promotion.ErrAlreadyRedeemed if the user has a usage record.
	Redeem(ctx context.Context, promotionID, userID, bookingID uuid.UUID, now time.Time) error
	// Revert undoes a redemption made for bookingID; a missing usage is a no-op.
	Revert(ctx context.Context, promotionID, userID, bookingID uuid.UUID) error
}

type PaymentLedger interface {
	RecordCapture(ctx context.Context, rec PaymentRecord) error
	Get(ctx context.Context, bookingID uuid.UUID) (*PaymentRecord, error)
	RecordRefund(ctx context.Context, bookingID uuid.UUID, refunded money.Money, status PaymentStatus, now time.Time) error
}

type IdempotencyRepository interface {
	// TryInsert reports whether this call claimed the key. An expired key is reclaimed.
	TryInsert(ctx context.Context, key, userID uuid.UUID, endpoint, requestHash string, now, expiresAt time.Time) (bool, error)
	Complete(ctx context.Context, key, userID, bookingID uuid.UUID, now time.Time) error
	Delete(ctx context.Context, key, userID uuid.UUID) error
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, e Event) error
	// ClaimBatch leases up to limit due events until leaseUntil. Leased events
	// are invisible to other relays and become due again if never marked.
	ClaimBatch(ctx context.Context, limit int, now, leaseUntil time.Time) ([]OutboxEvent, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, now time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string, retryAt time.Time) error
}
