package commands

import (
	"context"
	"log/slog"
	"time"

	"stayhub/internal/domain/booking"
	"stayhub/internal/domain/calendar"
	"stayhub/internal/domain/promotion"
	"stayhub/internal/infra"
	"stayhub/internal/pkg/clock"
	"stayhub/internal/pkg/errs"
	"stayhub/internal/usecase/shared"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "stayhub/reservation"

type CoordinatorConfig struct {
	HoldTTL            time.Duration
	ReclaimBatch       int
	PaymentMaxAttempts int
	PaymentBackoff     time.Duration
}

// ReserveInput is a priced, authorized request for a stay.
type ReserveInput struct {
	PropertyID uuid.UUID
	GuestID    uuid.UUID
	Quote      *shared.Quote
	// OnCommit runs inside the confirming transaction.
	OnCommit func(ctx context.Context, tx shared.Tx, b *booking.Booking) error
}

// ReservationCoordinator is the only writer of calendar days. Reserve runs
// hold, payment and commit as one logical operation; every failure after the
// hold is compensated before the error is returned.
type ReservationCoordinator struct {
	uow      shared.UnitOfWork
	payments shared.PaymentGateway
	cache    shared.AvailabilityCache
	clock    clock.Clock
	logger   *slog.Logger
	tracer   trace.Tracer
	cfg      CoordinatorConfig
}

func NewReservationCoordinator(
	uow shared.UnitOfWork,
	payments shared.PaymentGateway,
	cache shared.AvailabilityCache,
	clk clock.Clock,
	logger *slog.Logger,
	cfg CoordinatorConfig,
) *ReservationCoordinator {
	if cfg.PaymentMaxAttempts < 1 {
		cfg.PaymentMaxAttempts = 1
	}
	if cfg.ReclaimBatch <= 0 {
		cfg.ReclaimBatch = 100
	}
	return &ReservationCoordinator{
		uow:      uow,
		payments: payments,
		cache:    cache,
		clock:    clk,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
		cfg:      cfg,
	}
}

func (c *ReservationCoordinator) Reserve(ctx context.Context, in ReserveInput) (*booking.Booking, error) {
	stay := in.Quote.Stay
	ctx, span := c.tracer.Start(ctx, "reservation.reserve", trace.WithAttributes(
		attribute.String("property_id", in.PropertyID.String()),
		attribute.String("stay", stay.String()),
	))
	defer span.End()

	token := calendar.NewToken()
	span.SetAttributes(attribute.String("token", token.String()))

	pending, err := c.hold(ctx, in, token)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	c.Invalidate(ctx, in.PropertyID)

	auth, err := c.authorize(ctx, pending)
	if err != nil {
		c.compensate(ctx, pending, booking.ReasonPaymentFailed, nil)
		failSpan(span, err)
		return nil, err
	}

	confirmed, err := c.commit(ctx, pending, auth, in.OnCommit)
	if err != nil {
		c.compensate(ctx, pending, booking.ReasonCommitFailed, auth)
		failSpan(span, err)
		return nil, err
	}
	c.Invalidate(ctx, in.PropertyID)

	return confirmed, nil
}

func (c *ReservationCoordinator) hold(ctx context.Context, in ReserveInput, token calendar.Token) (*booking.Booking, error) {
	ctx, span := c.tracer.Start(ctx, "reservation.hold")
	defer span.End()

	now := c.clock.Now()
	pending, err := booking.NewPending(booking.PendingParams{
		PropertyID:  in.PropertyID,
		GuestID:     in.GuestID,
		Stay:        in.Quote.Stay,
		Total:       in.Quote.Amount,
		PromotionID: in.Quote.PromotionID,
		HoldToken:   token,
	}, now)
	if err != nil {
		return nil, errs.Wrap(err, "failed to build pending booking")
	}

	err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := tx.Calendar().TryHold(ctx, pending.PropertyID(), pending.Stay(), token, now); err != nil {
			return err
		}
		if err := tx.Bookings().Create(ctx, pending); err != nil {
			return err
		}
		if promoID := pending.PromotionID(); promoID != nil {
			return tx.Promotions().Redeem(ctx, *promoID, pending.GuestID(), pending.ID(), now)
		}
		return nil
	})
	if err != nil {
		err = errs.Wrapf(err, "hold property %s range %s token %s", in.PropertyID, in.Quote.Stay, token)
		switch {
		case errs.Is(err, calendar.ErrHoldConflict):
			return nil, errs.Mark(err, errs.ErrAvailabilityConflict)
		case errs.Is(err, promotion.ErrExhausted):
			return nil, errs.Mark(err, errs.ErrPromotionExhausted)
		case errs.Is(err, promotion.ErrAlreadyRedeemed):
			return nil, errs.Mark(err, errs.ErrPromotionInvalid)
		default:
			return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
	}

	return pending, nil
}

// authorize retries transient gateway failures with exponential backoff.
// Declines are final. The reservation token is the idempotency key so a retry
// after a lost response cannot charge twice.
func (c *ReservationCoordinator) authorize(ctx context.Context, b *booking.Booking) (*shared.Authorization, error) {
	ctx, span := c.tracer.Start(ctx, "payment.authorize")
	defer span.End()

	req := shared.AuthorizeRequest{
		Amount:         b.Total(),
		GuestID:        b.GuestID(),
		BookingID:      b.ID(),
		IdempotencyKey: b.HoldToken().String(),
	}

	var auth *shared.Authorization
	attempts := 0
	op := func() error {
		attempts++
		a, err := c.payments.Authorize(ctx, req)
		if err == nil {
			auth = a
			return nil
		}
		if errs.Is(err, shared.ErrPaymentDeclined) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.PaymentBackoff
	policy.MaxInterval = 20 * c.cfg.PaymentBackoff
	policy.MaxElapsedTime = 0
	retries := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.cfg.PaymentMaxAttempts-1)), ctx)

	err := backoff.RetryNotify(op, retries, func(err error, wait time.Duration) {
		c.logger.Warn("retrying payment authorization",
			"booking_id", b.ID(),
			"token", b.HoldToken().String(),
			"attempt", attempts,
			"wait_ms", wait.Milliseconds(),
			"error", err.Error())
	})
	span.SetAttributes(attribute.Int("attempts", attempts))
	if err != nil {
		err = errs.Wrapf(err, "authorize payment for property %s range %s token %s after %d attempt(s)",
			b.PropertyID(), b.Stay(), b.HoldToken(), attempts)
		if errs.Is(err, shared.ErrGatewayUnavailable) {
			return nil, errs.Mark(err, errs.ErrGatewayUnavailable)
		}
		return nil, errs.Mark(err, errs.ErrPaymentFailed)
	}

	return auth, nil
}

func (c *ReservationCoordinator) commit(
	ctx context.Context,
	pending *booking.Booking,
	auth *shared.Authorization,
	onCommit func(ctx context.Context, tx shared.Tx, b *booking.Booking) error,
) (*booking.Booking, error) {
	ctx, span := c.tracer.Start(ctx, "reservation.commit")
	defer span.End()

	now := c.clock.Now()
	var confirmed *booking.Booking
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		b, err := tx.Bookings().GetForUpdate(ctx, pending.ID())
		if err != nil {
			return err
		}
		if err := b.Confirm(auth.PaymentID, now); err != nil {
			return err
		}
		if err := tx.Calendar().Commit(ctx, b.PropertyID(), b.Stay(), b.HoldToken(), now); err != nil {
			return err
		}
		if err := tx.Bookings().Save(ctx, b); err != nil {
			return err
		}
		if err := tx.Payments().RecordCapture(ctx, shared.PaymentRecord{
			BookingID:        b.ID(),
			GatewayPaymentID: auth.PaymentID,
			AmountCents:      b.Total().Cents(),
			Status:           shared.PaymentCaptured,
			CreatedAt:        now,
			UpdatedAt:        now,
		}); err != nil {
			return err
		}
		if err := enqueue(ctx, tx, TopicBookingConfirmed, b.ID(), bookingEvent(b, now), now); err != nil {
			return err
		}
		if onCommit != nil {
			if err := onCommit(ctx, tx, b); err != nil {
				return err
			}
		}
		confirmed = b
		return nil
	})
	if err != nil {
		err = errs.Wrapf(err, "commit property %s range %s token %s", pending.PropertyID(), pending.Stay(), pending.HoldToken())
		// The hold was reclaimed or the attempt cancelled while payment was in flight.
		if errs.Is(err, calendar.ErrOwnershipMismatch) || errs.Is(err, booking.ErrInvalidStateTransition) {
			return nil, errs.Mark(err, errs.ErrAvailabilityConflict)
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	return confirmed, nil
}

// compensate undoes a failed attempt: voids a captured payment, frees the
// hold, cancels the pending booking and returns the promotion use. It runs
// detached from the caller's cancellation. If it fails the reclaimer frees the
// hold once the TTL passes.
func (c *ReservationCoordinator) compensate(ctx context.Context, pending *booking.Booking, reason string, auth *shared.Authorization) {
	ctx = context.WithoutCancel(ctx)
	log := c.logger.With(
		"property_id", pending.PropertyID(),
		"booking_id", pending.ID(),
		"stay", pending.Stay().String(),
		"token", pending.HoldToken().String(),
		"reason", reason,
	)

	if auth != nil {
		err := c.payments.Refund(ctx, shared.RefundRequest{
			PaymentID:      auth.PaymentID,
			Amount:         pending.Total(),
			IdempotencyKey: pending.HoldToken().String() + ":void",
		})
		if err != nil {
			log.Error("failed to void payment of aborted reservation",
				"payment_id", auth.PaymentID,
				"error", err.Error())
		}
	}

	now := c.clock.Now()
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if _, err := tx.Calendar().Release(ctx, pending.PropertyID(), pending.Stay(), pending.HoldToken()); err != nil {
			return err
		}
		b, err := tx.Bookings().GetForUpdate(ctx, pending.ID())
		if err != nil {
			return err
		}
		if b.Status() != booking.StatusPending {
			return nil
		}
		if _, err := b.Cancel(uuid.Nil, reason, now); err != nil {
			return err
		}
		if err := tx.Bookings().Save(ctx, b); err != nil {
			return err
		}
		if promoID := b.PromotionID(); promoID != nil {
			return tx.Promotions().Revert(ctx, *promoID, b.GuestID(), b.ID())
		}
		return nil
	})
	if err != nil {
		log.Error("compensation failed, hold left for reclaimer",
			"error", err.Error(),
			"stack", errs.ExtractStackLines(err, 8))
	} else {
		log.Info("reservation attempt rolled back")
	}

	c.Invalidate(ctx, pending.PropertyID())
}

// ReleaseStay frees r for a cancelled booking inside the caller's transaction.
func (c *ReservationCoordinator) ReleaseStay(ctx context.Context, tx shared.Tx, b *booking.Booking, r calendar.DateRange) error {
	if r.IsZero() {
		return nil
	}
	_, err := tx.Calendar().Release(ctx, b.PropertyID(), r, b.HoldToken())
	return err
}

// ReclaimExpired frees holds older than the TTL and cancels their pending bookings.
func (c *ReservationCoordinator) ReclaimExpired(ctx context.Context) (int, error) {
	now := c.clock.Now()
	cutoff := now.Add(-c.cfg.HoldTTL)

	var holds []calendar.ExpiredHold
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		holds, err = tx.Calendar().ExpiredHolds(ctx, cutoff, c.cfg.ReclaimBatch)
		return err
	})
	if err != nil {
		return 0, errs.Mark(errs.Wrap(err, "failed to list expired holds"), errs.ErrDatabaseOperationFailed)
	}

	reclaimed := 0
	for _, h := range holds {
		if err := c.reclaim(ctx, h, now); err != nil {
			c.logger.Error("failed to reclaim hold",
				"property_id", h.PropertyID,
				"token", h.Token.String(),
				"stay", h.Range.String(),
				"error", err.Error())
			continue
		}
		reclaimed++
		c.Invalidate(ctx, h.PropertyID)
	}

	return reclaimed, nil
}

func (c *ReservationCoordinator) reclaim(ctx context.Context, h calendar.ExpiredHold, now time.Time) error {
	return c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		b, err := tx.Bookings().GetByHoldTokenForUpdate(ctx, h.Token)
		if err != nil && !infra.IsKind(err, infra.KindNotFound) {
			return err
		}
		if b != nil && b.Status() != booking.StatusPending && b.Status() != booking.StatusCancelled {
			c.logger.Warn("skipping held days of a settled booking",
				"booking_id", b.ID(),
				"status", b.Status().String(),
				"token", h.Token.String())
			return nil
		}

		released, err := tx.Calendar().Release(ctx, h.PropertyID, h.Range, h.Token)
		if err != nil {
			return err
		}

		evt := HoldReclaimed{
			PropertyID: h.PropertyID,
			Token:      h.Token.String(),
			StartDate:  h.Range.Start().Format(calendar.DateLayout),
			EndDate:    h.Range.End().Format(calendar.DateLayout),
			Released:   released,
			OccurredAt: now,
		}

		if b != nil && b.Status() == booking.StatusPending {
			if _, err := b.Cancel(uuid.Nil, booking.ReasonHoldExpired, now); err != nil {
				return err
			}
			if err := tx.Bookings().Save(ctx, b); err != nil {
				return err
			}
			if promoID := b.PromotionID(); promoID != nil {
				if err := tx.Promotions().Revert(ctx, *promoID, b.GuestID(), b.ID()); err != nil {
					return err
				}
			}
			id := b.ID()
			evt.BookingID = &id
		}

		c.logger.Info("reclaimed expired hold",
			"property_id", h.PropertyID,
			"token", h.Token.String(),
			"stay", h.Range.String(),
			"released_days", released)

		return enqueue(ctx, tx, TopicHoldReclaimed, h.PropertyID, evt, now)
	})
}

// Invalidate drops cached availability answers for the property.
func (c *ReservationCoordinator) Invalidate(ctx context.Context, propertyID uuid.UUID) {
	if err := c.cache.Invalidate(ctx, propertyID); err != nil {
		c.logger.Warn("failed to invalidate availability cache",
			"property_id", propertyID,
			"error", err.Error())
	}
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
