package shared

import (
	"context"
	"errors"

	"stayhub/internal/domain/calendar"
	"stayhub/internal/domain/money"
	"stayhub/internal/domain/promotion"
	"stayhub/internal/pkg/errs"

	"github.com/google/uuid"
)

//go:generate mockgen -source=ports.go -destination=../../../tests/mock/shared/ports.go -package=mockshared

// Errors reported by payment gateway adapters.
var (
	ErrPaymentDeclined    = errors.New("payment declined by gateway")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

type QuoteRequest struct {
	PropertyID uuid.UUID
	GuestID    uuid.UUID
	Stay       calendar.DateRange
	PromoCode  *string
}

type Quote struct {
	PropertyID    uuid.UUID
	Stay          calendar.DateRange
	Base          money.Money
	Amount        money.Money
	PromotionID   *uuid.UUID
	PromotionCode *promotion.Code
}

func (q *Quote) Discount() money.Money {
	return q.Base.Sub(q.Amount)
}

// PricingResolver prices a stay and validates an optional promotion for the guest.
type PricingResolver interface {
	Quote(ctx context.Context, req QuoteRequest) (*Quote, error)
}

type AuthorizeRequest struct {
	Amount         money.Money
	GuestID        uuid.UUID
	BookingID      uuid.UUID
	IdempotencyKey string
}

type Authorization struct {
	PaymentID string
}

type RefundRequest struct {
	PaymentID      string
	Amount         money.Money
	IdempotencyKey string
}

// PaymentGateway calls must be idempotent per IdempotencyKey.
type PaymentGateway interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (*Authorization, error)
	Refund(ctx context.Context, req RefundRequest) error
}

type EventPublisher interface {
	Publish(ctx context.Context, events []OutboxEvent) error
}

type CachedAvailability struct {
	Found        bool
	Version      int64
	Availability calendar.Availability
}

// AvailabilityCache stores read-side availability answers per property. Store
// with a stale version is ignored by later lookups.
type AvailabilityCache interface {
	Lookup(ctx context.Context, propertyID uuid.UUID, r calendar.DateRange) (CachedAvailability, error)
	Store(ctx context.Context, propertyID uuid.UUID, r calendar.DateRange, version int64, a calendar.Availability) error
	Invalidate(ctx context.Context, propertyID uuid.UUID) error
}

// MarkPricingError maps resolver failures onto the use-case error taxonomy.
func MarkPricingError(err error) error {
	switch {
	case err == nil:
		return nil
	case errs.Is(err, errs.ErrPropertyNotFound):
		return err
	case errs.Is(err, promotion.ErrExpired):
		return errs.Mark(err, errs.ErrPromotionExpired)
	case errs.Is(err, promotion.ErrExhausted):
		return errs.Mark(err, errs.ErrPromotionExhausted)
	case errs.Is(err, promotion.ErrInactive),
		errs.Is(err, promotion.ErrNotStarted),
		errs.Is(err, promotion.ErrAlreadyRedeemed),
		errs.Is(err, promotion.ErrInvalidCode),
		errs.Is(err, errs.ErrPromotionInvalid):
		return errs.Mark(err, errs.ErrPromotionInvalid)
	default:
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
}
