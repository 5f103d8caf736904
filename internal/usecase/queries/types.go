package queries

import (
	"time"

	"github.com/google/uuid"
)

// BookingView represents read-optimized booking data joined with its property
type BookingView struct {
	ID            uuid.UUID  `json:"id"`
	PropertyID    uuid.UUID  `json:"property_id"`
	PropertyName  string     `json:"property_name"`
	HostID        uuid.UUID  `json:"host_id"`
	GuestID       uuid.UUID  `json:"guest_id"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       time.Time  `json:"end_date"`
	Nights        int        `json:"nights"`
	Status        string     `json:"status"`
	TotalCents    int64      `json:"total_cents"`
	PromotionID   *uuid.UUID `json:"promotion_id,omitempty"`
	PromotionCode *string    `json:"promotion_code,omitempty"`
	PaymentID     *string    `json:"payment_id,omitempty"`
	PaymentStatus *string    `json:"payment_status,omitempty"`
	RefundedCents int64      `json:"refunded_cents"`
	CancelledBy   *uuid.UUID `json:"cancelled_by,omitempty"`
	CancelReason  *string    `json:"cancel_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type BookingListItem struct {
	ID           uuid.UUID `json:"id"`
	PropertyID   uuid.UUID `json:"property_id"`
	PropertyName string    `json:"property_name"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	Status       string    `json:"status"`
	TotalCents   int64     `json:"total_cents"`
	CreatedAt    time.Time `json:"created_at"`
}

// AvailabilityView is the answer for one property and stay
type AvailabilityView struct {
	PropertyID  uuid.UUID   `json:"property_id"`
	StartDate   time.Time   `json:"start_date"`
	EndDate     time.Time   `json:"end_date"`
	Available   bool        `json:"available"`
	Unavailable []time.Time `json:"unavailable_dates"`
	Cached      bool        `json:"-"`
}

type QuoteView struct {
	PropertyID    uuid.UUID `json:"property_id"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	Nights        int       `json:"nights"`
	BaseCents     int64     `json:"base_cents"`
	DiscountCents int64     `json:"discount_cents"`
	TotalCents    int64     `json:"total_cents"`
	PromotionCode *string   `json:"promotion_code,omitempty"`
}
