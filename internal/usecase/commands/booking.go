package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"stayhub/internal/domain/booking"
	"stayhub/internal/domain/calendar"
	"stayhub/internal/domain/money"
	"stayhub/internal/domain/property"
	"stayhub/internal/infra"
	"stayhub/internal/pkg/clock"
	"stayhub/internal/pkg/errs"
	"stayhub/internal/usecase/shared"

	"github.com/google/uuid"
)

const createBookingEndpoint = "POST /api/bookings"

type CreateBookingInput struct {
	PropertyID     uuid.UUID
	GuestID        uuid.UUID
	StartDate      time.Time
	EndDate        time.Time
	PromoCode      *string
	IdempotencyKey *uuid.UUID
}

type CreateBookingResult struct {
	Booking    *booking.Booking
	IsReplayed bool
}

//go:generate mockgen -source=booking.go -destination=../../../tests/mock/commands/booking.go -package=mockcommands
type BookingCommands interface {
	CreateBooking(ctx context.Context, in CreateBookingInput) (*CreateBookingResult, error)
	CancelBooking(ctx context.Context, bookingID, actorID uuid.UUID) (*booking.Booking, error)
	AdvanceBookingStatus(ctx context.Context, bookingID uuid.UUID, target booking.Status, actorID uuid.UUID) (*booking.Booking, error)
}

type BookingConfig struct {
	IdempotencyTTL time.Duration
}

type bookingCommandsImpl struct {
	uow         shared.UnitOfWork
	coordinator *ReservationCoordinator
	pricing     shared.PricingResolver
	payments    shared.PaymentGateway
	refunds     booking.RefundPolicy
	clock       clock.Clock
	logger      *slog.Logger
	cfg         BookingConfig
}

func NewBookingCommands(
	uow shared.UnitOfWork,
	coordinator *ReservationCoordinator,
	pricing shared.PricingResolver,
	payments shared.PaymentGateway,
	refunds booking.RefundPolicy,
	clk clock.Clock,
	logger *slog.Logger,
	cfg BookingConfig,
) BookingCommands {
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	return &bookingCommandsImpl{
		uow:         uow,
		coordinator: coordinator,
		pricing:     pricing,
		payments:    payments,
		refunds:     refunds,
		clock:       clk,
		logger:      logger,
		cfg:         cfg,
	}
}

func (c *bookingCommandsImpl) CreateBooking(ctx context.Context, in CreateBookingInput) (*CreateBookingResult, error) {
	now := c.clock.Now()

	stay, err := calendar.NewDateRange(in.StartDate, in.EndDate)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrInvalidRange)
	}
	if stay.StartsBefore(now) {
		return nil, errs.Mark(calendar.ErrRangeInPast, errs.ErrInvalidRange)
	}

	if _, err := c.authorizeGuest(ctx, in.PropertyID, in.GuestID); err != nil {
		return nil, err
	}

	var onCommit func(ctx context.Context, tx shared.Tx, b *booking.Booking) error
	if key := in.IdempotencyKey; key != nil {
		replayed, err := c.beginIdempotent(ctx, *key, in.GuestID, requestHash(in.PropertyID, stay, in.PromoCode), now)
		if err != nil {
			return nil, err
		}
		if replayed != nil {
			return &CreateBookingResult{Booking: replayed, IsReplayed: true}, nil
		}
		onCommit = func(ctx context.Context, tx shared.Tx, b *booking.Booking) error {
			return tx.Idempotency().Complete(ctx, *key, in.GuestID, b.ID(), now)
		}
	}

	b, err := c.reserve(ctx, in, stay, onCommit)
	if err != nil {
		if in.IdempotencyKey != nil {
			c.abandonIdempotent(ctx, *in.IdempotencyKey, in.GuestID)
		}
		return nil, err
	}

	c.logger.Info("booking confirmed",
		"booking_id", b.ID(),
		"property_id", b.PropertyID(),
		"guest_id", b.GuestID(),
		"stay", b.Stay().String(),
		"total", b.Total().String())

	return &CreateBookingResult{Booking: b}, nil
}

// reserve prices the stay before any hold is taken so a bad promotion costs no inventory.
func (c *bookingCommandsImpl) reserve(
	ctx context.Context,
	in CreateBookingInput,
	stay calendar.DateRange,
	onCommit func(ctx context.Context, tx shared.Tx, b *booking.Booking) error,
) (*booking.Booking, error) {
	quote, err := c.pricing.Quote(ctx, shared.QuoteRequest{
		PropertyID: in.PropertyID,
		GuestID:    in.GuestID,
		Stay:       stay,
		PromoCode:  in.PromoCode,
	})
	if err != nil {
		return nil, shared.MarkPricingError(err)
	}

	return c.coordinator.Reserve(ctx, ReserveInput{
		PropertyID: in.PropertyID,
		GuestID:    in.GuestID,
		Quote:      quote,
		OnCommit:   onCommit,
	})
}

func (c *bookingCommandsImpl) authorizeGuest(ctx context.Context, propertyID, guestID uuid.UUID) (*property.Property, error) {
	prop, err := c.uow.CommandReads().PropertyByID(ctx, propertyID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, errs.ErrPropertyNotFound)
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if !prop.IsActive() {
		return nil, errs.Mark(errs.Newf("property %s is not bookable", propertyID), errs.ErrPropertyNotFound)
	}
	if prop.IsHost(guestID) {
		return nil, errs.Mark(errs.New("hosts cannot book their own property"), errs.ErrUnauthorized)
	}
	return prop, nil
}

// beginIdempotent claims the key or returns the booking of a completed request.
func (c *bookingCommandsImpl) beginIdempotent(ctx context.Context, key, userID uuid.UUID, hash string, now time.Time) (*booking.Booking, error) {
	var inserted bool
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		inserted, err = tx.Idempotency().TryInsert(ctx, key, userID, createBookingEndpoint, hash, now, now.Add(c.cfg.IdempotencyTTL))
		return err
	})
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if inserted {
		return nil, nil
	}

	existing, err := c.uow.CommandReads().IdempotencyByKey(ctx, key, userID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, errs.ErrIdempotencyInProgress)
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	if existing.RequestHash != hash {
		return nil, errs.ErrDuplicateRequest
	}

	switch existing.Status {
	case shared.IdempotencyStatusCompleted:
		if existing.ResultBookingID == nil {
			return nil, errs.Mark(errs.New("completed request missing result booking ID"), errs.ErrDatabaseOperationFailed)
		}
		b, err := c.uow.CommandReads().BookingByID(ctx, *existing.ResultBookingID)
		if err != nil {
			return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		return b, nil
	case shared.IdempotencyStatusProcessing:
		return nil, errs.ErrIdempotencyInProgress
	default:
		return nil, errs.Mark(errs.Newf("invalid idempotency key status %q", existing.Status), errs.ErrDatabaseOperationFailed)
	}
}

// abandonIdempotent frees the key of a failed attempt so the client may retry.
func (c *bookingCommandsImpl) abandonIdempotent(ctx context.Context, key, userID uuid.UUID) {
	err := c.uow.Within(context.WithoutCancel(ctx), func(ctx context.Context, tx shared.Tx) error {
		return tx.Idempotency().Delete(ctx, key, userID)
	})
	if err != nil {
		c.logger.Warn("failed to release idempotency key", "key", key, "user_id", userID, "error", err.Error())
	}
}

func (c *bookingCommandsImpl) CancelBooking(ctx context.Context, bookingID, actorID uuid.UUID) (*booking.Booking, error) {
	now := c.clock.Now()

	var (
		cancelled *booking.Booking
		refund    money.Money
		payment   *shared.PaymentRecord
	)
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		b, prop, err := c.loadForActor(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		reason := booking.ReasonGuestCancelled
		switch {
		case b.IsGuest(actorID):
		case prop.IsHost(actorID):
			reason = booking.ReasonHostCancelled
		default:
			return errs.ErrUnauthorized
		}

		refund = c.refunds.Refund(b, now)
		outcome, err := b.Cancel(actorID, reason, now)
		if err != nil {
			return err
		}
		if err := c.coordinator.ReleaseStay(ctx, tx, b, outcome.Release); err != nil {
			return err
		}
		if err := tx.Bookings().Save(ctx, b); err != nil {
			return err
		}
		if outcome.PreviousStatus == booking.StatusPending && b.PromotionID() != nil {
			if err := tx.Promotions().Revert(ctx, *b.PromotionID(), b.GuestID(), b.ID()); err != nil {
				return err
			}
		}

		payment = nil
		if b.PaymentID() != nil {
			if payment, err = tx.Payments().Get(ctx, b.ID()); err != nil {
				return err
			}
		}

		evt := bookingEvent(b, now)
		refundCents := refund.Cents()
		evt.RefundCents = &refundCents
		if err := enqueue(ctx, tx, TopicBookingCancelled, b.ID(), evt, now); err != nil {
			return err
		}

		cancelled = b
		return nil
	})
	if err != nil {
		return nil, markBookingErr(err)
	}

	c.coordinator.Invalidate(ctx, cancelled.PropertyID())
	c.logger.Info("booking cancelled",
		"booking_id", cancelled.ID(),
		"actor_id", actorID,
		"refund", refund.String())

	if payment != nil && !refund.IsZero() {
		c.settleRefund(ctx, cancelled, payment, refund)
	}

	return cancelled, nil
}

// settleRefund signals the gateway after the cancellation is durable and
// records the outcome. A failed refund leaves the booking cancelled.
func (c *bookingCommandsImpl) settleRefund(ctx context.Context, b *booking.Booking, payment *shared.PaymentRecord, amount money.Money) {
	ctx = context.WithoutCancel(ctx)

	status := shared.PaymentRefunded
	refundErr := c.payments.Refund(ctx, shared.RefundRequest{
		PaymentID:      payment.GatewayPaymentID,
		Amount:         amount,
		IdempotencyKey: b.ID().String() + ":refund",
	})
	if refundErr != nil {
		status = shared.PaymentRefundFailed
		c.logger.Error("refund failed",
			"booking_id", b.ID(),
			"payment_id", payment.GatewayPaymentID,
			"amount", amount.String(),
			"error", refundErr.Error())
	}

	now := c.clock.Now()
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		refunded := amount
		if refundErr != nil {
			refunded = money.Zero()
		}
		if err := tx.Payments().RecordRefund(ctx, b.ID(), refunded, status, now); err != nil {
			return err
		}
		if refundErr == nil {
			return nil
		}
		return enqueue(ctx, tx, TopicRefundFailed, b.ID(), RefundFailed{
			BookingID:   b.ID(),
			PaymentID:   payment.GatewayPaymentID,
			AmountCents: amount.Cents(),
			Error:       refundErr.Error(),
			OccurredAt:  now,
		}, now)
	})
	if err != nil {
		c.logger.Error("failed to record refund outcome",
			"booking_id", b.ID(),
			"status", string(status),
			"error", err.Error())
	}
}

func (c *bookingCommandsImpl) AdvanceBookingStatus(ctx context.Context, bookingID uuid.UUID, target booking.Status, actorID uuid.UUID) (*booking.Booking, error) {
	switch target {
	case booking.StatusCancelled:
		return c.CancelBooking(ctx, bookingID, actorID)
	case booking.StatusPending, booking.StatusConfirmed:
		// confirmation is driven by payment capture only
		err := fmt.Errorf("%w: %s cannot be requested", booking.ErrInvalidStateTransition, target)
		return nil, errs.Mark(err, errs.ErrInvalidStateTransition)
	}

	now := c.clock.Now()
	var updated *booking.Booking
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		b, prop, err := c.loadForActor(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if !canAdvance(b, prop, target, actorID) {
			return errs.ErrUnauthorized
		}

		switch target {
		case booking.StatusCheckedIn:
			err = b.CheckIn(now)
		case booking.StatusCheckedOut:
			err = b.CheckOut(now)
		case booking.StatusCompleted:
			err = b.Complete(now)
		default:
			err = fmt.Errorf("%w: unknown target %q", booking.ErrInvalidStateTransition, target)
		}
		if err != nil {
			return err
		}
		if err := tx.Bookings().Save(ctx, b); err != nil {
			return err
		}
		if err := enqueue(ctx, tx, TopicBookingStatusChanged, b.ID(), bookingEvent(b, now), now); err != nil {
			return err
		}
		if target == booking.StatusCompleted {
			if err := c.requestPayout(ctx, tx, b, prop, now); err != nil {
				return err
			}
		}

		updated = b
		return nil
	})
	if err != nil {
		return nil, markBookingErr(err)
	}

	c.logger.Info("booking status advanced",
		"booking_id", updated.ID(),
		"status", updated.Status().String(),
		"actor_id", actorID)

	return updated, nil
}

// requestPayout signals the host payout for the captured amount net of refunds.
func (c *bookingCommandsImpl) requestPayout(ctx context.Context, tx shared.Tx, b *booking.Booking, prop *property.Property, now time.Time) error {
	amount := b.Total()
	if b.PaymentID() != nil {
		payment, err := tx.Payments().Get(ctx, b.ID())
		if err != nil {
			return err
		}
		amount = money.MustFromCents(payment.AmountCents).Sub(money.MustFromCents(payment.RefundedCents))
	}

	return enqueue(ctx, tx, TopicPayoutRequested, b.ID(), PayoutRequested{
		BookingID:   b.ID(),
		PropertyID:  b.PropertyID(),
		HostID:      prop.HostID(),
		AmountCents: amount.Cents(),
		OccurredAt:  now,
	}, now)
}

func (c *bookingCommandsImpl) loadForActor(ctx context.Context, tx shared.Tx, bookingID uuid.UUID) (*booking.Booking, *property.Property, error) {
	b, err := tx.Bookings().GetForUpdate(ctx, bookingID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, nil, errs.Mark(err, errs.ErrBookingNotFound)
		}
		return nil, nil, err
	}
	prop, err := tx.Reads().PropertyByID(ctx, b.PropertyID())
	if err != nil {
		return nil, nil, err
	}
	return b, prop, nil
}

// canAdvance: guest or host may check in and out, only the host completes.
func canAdvance(b *booking.Booking, prop *property.Property, target booking.Status, actorID uuid.UUID) bool {
	switch target {
	case booking.StatusCheckedIn, booking.StatusCheckedOut:
		return b.IsGuest(actorID) || prop.IsHost(actorID)
	case booking.StatusCompleted:
		return prop.IsHost(actorID)
	default:
		return false
	}
}

func markBookingErr(err error) error {
	switch {
	case errs.Is(err, errs.ErrBookingNotFound), errs.Is(err, errs.ErrUnauthorized):
		return err
	case errs.Is(err, booking.ErrInvalidStateTransition):
		return errs.Mark(err, errs.ErrInvalidStateTransition)
	default:
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
}

func requestHash(propertyID uuid.UUID, stay calendar.DateRange, promoCode *string) string {
	data, _ := json.Marshal(struct {
		PropertyID uuid.UUID `json:"property_id"`
		Stay       string    `json:"stay"`
		PromoCode  *string   `json:"promo_code,omitempty"`
	}{propertyID, stay.String(), promoCode})
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
