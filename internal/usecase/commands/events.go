package commands

import (
	"context"
	"encoding/json"
	"time"

	"stayhub/internal/domain/booking"
	"stayhub/internal/domain/calendar"
	"stayhub/internal/usecase/shared"

	"github.com/google/uuid"
)

const (
	TopicBookingConfirmed     = "booking.confirmed"
	TopicBookingCancelled     = "booking.cancelled"
	TopicBookingStatusChanged = "booking.status_changed"
	TopicPayoutRequested      = "payout.requested"
	TopicRefundFailed         = "refund.failed"
	TopicHoldReclaimed        = "hold.reclaimed"
)

type BookingEvent struct {
	BookingID   uuid.UUID  `json:"booking_id"`
	PropertyID  uuid.UUID  `json:"property_id"`
	GuestID     uuid.UUID  `json:"guest_id"`
	Status      string     `json:"status"`
	StartDate   string     `json:"start_date"`
	EndDate     string     `json:"end_date"`
	TotalCents  int64      `json:"total_cents"`
	RefundCents *int64     `json:"refund_cents,omitempty"`
	Reason      *string    `json:"reason,omitempty"`
	ActorID     *uuid.UUID `json:"actor_id,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

type PayoutRequested struct {
	BookingID   uuid.UUID `json:"booking_id"`
	PropertyID  uuid.UUID `json:"property_id"`
	HostID      uuid.UUID `json:"host_id"`
	AmountCents int64     `json:"amount_cents"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type RefundFailed struct {
	BookingID   uuid.UUID `json:"booking_id"`
	PaymentID   string    `json:"payment_id"`
	AmountCents int64     `json:"amount_cents"`
	Error       string    `json:"error"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type HoldReclaimed struct {
	PropertyID uuid.UUID  `json:"property_id"`
	Token      string     `json:"token"`
	StartDate  string     `json:"start_date"`
	EndDate    string     `json:"end_date"`
	BookingID  *uuid.UUID `json:"booking_id,omitempty"`
	Released   int        `json:"released_days"`
	OccurredAt time.Time  `json:"occurred_at"`
}

func bookingEvent(b *booking.Booking, now time.Time) BookingEvent {
	return BookingEvent{
		BookingID:  b.ID(),
		PropertyID: b.PropertyID(),
		GuestID:    b.GuestID(),
		Status:     b.Status().String(),
		StartDate:  b.Stay().Start().Format(calendar.DateLayout),
		EndDate:    b.Stay().End().Format(calendar.DateLayout),
		TotalCents: b.Total().Cents(),
		Reason:     b.CancelReason(),
		ActorID:    b.CancelledBy(),
		OccurredAt: now,
	}
}

// enqueue serializes payload into the transaction's outbox; events are keyed
// by aggregate id so a partitioned broker keeps per-booking order.
func enqueue(ctx context.Context, tx shared.Tx, topic string, key uuid.UUID, payload any, now time.Time) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return tx.Outbox().Enqueue(ctx, shared.Event{
		Topic:      topic,
		Key:        key.String(),
		Payload:    body,
		OccurredAt: now,
	})
}
