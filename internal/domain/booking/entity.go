package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"stayhub/internal/domain/calendar"
	"stayhub/internal/domain/money"

	"github.com/google/uuid"
)

var (
	ErrInvalidStateTransition = errors.New("invalid booking state transition")
	ErrMissingGuest           = errors.New("booking requires a guest")
	ErrMissingProperty        = errors.New("booking requires a property")
	ErrMissingToken           = errors.New("booking requires a reservation token")
	ErrEmptyPaymentID         = errors.New("payment id cannot be empty")
)

const (
	ReasonPaymentFailed   = "payment_failed"
	ReasonCommitFailed    = "commit_failed"
	ReasonHoldExpired     = "hold_expired"
	ReasonGuestCancelled  = "guest_cancelled"
	ReasonHostCancelled   = "host_cancelled"
	MaxCancelReasonLength = 200
)

type Booking struct {
	id           uuid.UUID
	propertyID   uuid.UUID
	guestID      uuid.UUID
	stay         calendar.DateRange
	status       Status
	total        money.Money
	promotionID  *uuid.UUID
	holdToken    calendar.Token
	paymentID    *string
	cancelledBy  *uuid.UUID
	cancelReason *string
	version      int
	createdAt    time.Time
	updatedAt    time.Time
}

type PendingParams struct {
	PropertyID  uuid.UUID
	GuestID     uuid.UUID
	Stay        calendar.DateRange
	Total       money.Money
	PromotionID *uuid.UUID
	HoldToken   calendar.Token
}

// NewPending creates the booking that accompanies a freshly taken hold.
func NewPending(p PendingParams, now time.Time) (*Booking, error) {
	if p.PropertyID == uuid.Nil {
		return nil, ErrMissingProperty
	}
	if p.GuestID == uuid.Nil {
		return nil, ErrMissingGuest
	}
	if p.HoldToken.IsZero() {
		return nil, ErrMissingToken
	}
	if p.Stay.IsZero() {
		return nil, calendar.ErrInvalidRange
	}

	return &Booking{
		id:          uuid.New(),
		propertyID:  p.PropertyID,
		guestID:     p.GuestID,
		stay:        p.Stay,
		status:      StatusPending,
		total:       p.Total,
		promotionID: p.PromotionID,
		holdToken:   p.HoldToken,
		version:     1,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// Record is the persisted shape of a booking.
type Record struct {
	ID           uuid.UUID
	PropertyID   uuid.UUID
	GuestID      uuid.UUID
	StartDate    time.Time
	EndDate      time.Time
	Status       string
	TotalCents   int64
	PromotionID  *uuid.UUID
	HoldToken    uuid.UUID
	PaymentID    *string
	CancelledBy  *uuid.UUID
	CancelReason *string
	Version      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func Reconstruct(r Record) (*Booking, error) {
	stay, err := calendar.NewDateRange(r.StartDate, r.EndDate)
	if err != nil {
		return nil, err
	}
	status, err := ParseStatus(r.Status)
	if err != nil {
		return nil, err
	}
	total, err := money.FromCents(r.TotalCents)
	if err != nil {
		return nil, err
	}

	return &Booking{
		id:           r.ID,
		propertyID:   r.PropertyID,
		guestID:      r.GuestID,
		stay:         stay,
		status:       status,
		total:        total,
		promotionID:  r.PromotionID,
		holdToken:    calendar.Token(r.HoldToken),
		paymentID:    r.PaymentID,
		cancelledBy:  r.CancelledBy,
		cancelReason: r.CancelReason,
		version:      r.Version,
		createdAt:    r.CreatedAt,
		updatedAt:    r.UpdatedAt,
	}, nil
}

func (b *Booking) Record() Record {
	return Record{
		ID:           b.id,
		PropertyID:   b.propertyID,
		GuestID:      b.guestID,
		StartDate:    b.stay.Start(),
		EndDate:      b.stay.End(),
		Status:       b.status.String(),
		TotalCents:   b.total.Cents(),
		PromotionID:  b.promotionID,
		HoldToken:    b.holdToken.UUID(),
		PaymentID:    b.paymentID,
		CancelledBy:  b.cancelledBy,
		CancelReason: b.cancelReason,
		Version:      b.version,
		CreatedAt:    b.createdAt,
		UpdatedAt:    b.updatedAt,
	}
}

func (b *Booking) Confirm(paymentID string, now time.Time) error {
	if strings.TrimSpace(paymentID) == "" {
		return ErrEmptyPaymentID
	}
	if err := b.transition(StatusConfirmed, now); err != nil {
		return err
	}
	b.paymentID = &paymentID
	return nil
}

func (b *Booking) CheckIn(now time.Time) error {
	return b.transition(StatusCheckedIn, now)
}

func (b *Booking) CheckOut(now time.Time) error {
	return b.transition(StatusCheckedOut, now)
}

func (b *Booking) Complete(now time.Time) error {
	return b.transition(StatusCompleted, now)
}

// Cancellation describes what a successful Cancel leaves to settle.
type Cancellation struct {
	PreviousStatus Status
	// Release is the portion of the stay to hand back to the calendar; zero when nothing remains.
	Release calendar.DateRange
}

// Cancel moves the booking to Cancelled. A nil actorID records a system cancellation.
func (b *Booking) Cancel(actorID uuid.UUID, reason string, now time.Time) (Cancellation, error) {
	previous := b.status
	release := b.releasableRange(now)

	if err := b.transition(StatusCancelled, now); err != nil {
		return Cancellation{}, err
	}

	if len(reason) > MaxCancelReasonLength {
		reason = reason[:MaxCancelReasonLength]
	}
	if actorID != uuid.Nil {
		b.cancelledBy = &actorID
	}
	b.cancelReason = &reason

	return Cancellation{PreviousStatus: previous, Release: release}, nil
}

// releasableRange is the whole stay until check-in, then the part from today on.
func (b *Booking) releasableRange(now time.Time) calendar.DateRange {
	if b.status != StatusCheckedIn {
		return b.stay
	}
	remaining, err := b.stay.From(now)
	if err != nil {
		return calendar.DateRange{}
	}
	return remaining
}

func (b *Booking) transition(target Status, now time.Time) error {
	if !b.status.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, b.status, target)
	}
	b.status = target
	b.updatedAt = now
	return nil
}

func (b *Booking) IsGuest(userID uuid.UUID) bool {
	return b.guestID == userID
}

func (b *Booking) ID() uuid.UUID             { return b.id }
func (b *Booking) PropertyID() uuid.UUID     { return b.propertyID }
func (b *Booking) GuestID() uuid.UUID        { return b.guestID }
func (b *Booking) Stay() calendar.DateRange  { return b.stay }
func (b *Booking) Status() Status            { return b.status }
func (b *Booking) Total() money.Money        { return b.total }
func (b *Booking) PromotionID() *uuid.UUID   { return b.promotionID }
func (b *Booking) HoldToken() calendar.Token { return b.holdToken }
func (b *Booking) PaymentID() *string        { return b.paymentID }
func (b *Booking) CancelledBy() *uuid.UUID   { return b.cancelledBy }
func (b *Booking) CancelReason() *string     { return b.cancelReason }
func (b *Booking) Version() int              { return b.version }
func (b *Booking) CreatedAt() time.Time      { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time      { return b.updatedAt }
