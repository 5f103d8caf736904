//go:build unit || e2e

package builder

import (
	"time"

	"stayhub/internal/domain/booking"
	"stayhub/internal/domain/calendar"
	"stayhub/internal/domain/money"
	reqdto "stayhub/internal/handler/dto/request"
	"stayhub/internal/usecase/queries"

	"github.com/google/uuid"
)

type BookingBuilder struct {
	ID           uuid.UUID
	PropertyID   uuid.UUID
	PropertyName string
	HostID       uuid.UUID
	GuestID      uuid.UUID
	StartDate    time.Time
	EndDate      time.Time
	Status       booking.Status
	TotalCents   int64
	PromotionID  *uuid.UUID
	PromoCode    *string
	HoldToken    calendar.Token
	PaymentID    *string
	CreatedAt    time.Time
}

func NewBookingBuilder() *BookingBuilder {
	return &BookingBuilder{
		ID:           uuid.New(),
		PropertyID:   uuid.New(),
		PropertyName: "Seaside Cottage",
		HostID:       uuid.New(),
		GuestID:      uuid.New(),
		StartDate:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC),
		Status:       booking.StatusPending,
		TotalCents:   80000,
		HoldToken:    calendar.NewToken(),
		CreatedAt:    time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (b *BookingBuilder) With(mutate func(*BookingBuilder)) *BookingBuilder {
	mutate(b)
	return b
}

func (b *BookingBuilder) WithStatus(s booking.Status) *BookingBuilder {
	b.Status = s
	return b
}

func (b *BookingBuilder) WithTotalCents(cents int64) *BookingBuilder {
	b.TotalCents = cents
	return b
}

func (b *BookingBuilder) WithPaymentID(id string) *BookingBuilder {
	b.PaymentID = &id
	return b
}

func (b *BookingBuilder) WithStay(start, end string) *BookingBuilder {
	b.StartDate, _ = calendar.ParseDate(start)
	b.EndDate, _ = calendar.ParseDate(end)
	return b
}

func (b *BookingBuilder) WithGuestID(id uuid.UUID) *BookingBuilder {
	b.GuestID = id
	return b
}

// BuildDomain creates a fresh pending booking.
func (b *BookingBuilder) BuildDomain() (*booking.Booking, error) {
	stay, err := calendar.NewDateRange(b.StartDate, b.EndDate)
	if err != nil {
		return nil, err
	}
	total, err := money.FromCents(b.TotalCents)
	if err != nil {
		return nil, err
	}
	return booking.NewPending(booking.PendingParams{
		PropertyID:  b.PropertyID,
		GuestID:     b.GuestID,
		Stay:        stay,
		Total:       total,
		PromotionID: b.PromotionID,
		HoldToken:   b.HoldToken,
	}, b.CreatedAt)
}

func (b *BookingBuilder) BuildRecord() booking.Record {
	return booking.Record{
		ID:          b.ID,
		PropertyID:  b.PropertyID,
		GuestID:     b.GuestID,
		StartDate:   b.StartDate,
		EndDate:     b.EndDate,
		Status:      b.Status.String(),
		TotalCents:  b.TotalCents,
		PromotionID: b.PromotionID,
		HoldToken:   b.HoldToken.UUID(),
		PaymentID:   b.PaymentID,
		Version:     1,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.CreatedAt,
	}
}

// BuildReconstructed loads a booking in any status, as a store would.
func (b *BookingBuilder) BuildReconstructed() (*booking.Booking, error) {
	return booking.Reconstruct(b.BuildRecord())
}

func (b *BookingBuilder) BuildView() *queries.BookingView {
	return &queries.BookingView{
		ID:            b.ID,
		PropertyID:    b.PropertyID,
		PropertyName:  b.PropertyName,
		HostID:        b.HostID,
		GuestID:       b.GuestID,
		StartDate:     b.StartDate,
		EndDate:       b.EndDate,
		Nights:        int(b.EndDate.Sub(b.StartDate).Hours() / 24),
		Status:        b.Status.String(),
		TotalCents:    b.TotalCents,
		PromotionID:   b.PromotionID,
		PromotionCode: b.PromoCode,
		PaymentID:     b.PaymentID,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.CreatedAt,
	}
}

func (b *BookingBuilder) BuildListItem() *queries.BookingListItem {
	return &queries.BookingListItem{
		ID:           b.ID,
		PropertyID:   b.PropertyID,
		PropertyName: b.PropertyName,
		StartDate:    b.StartDate,
		EndDate:      b.EndDate,
		Status:       b.Status.String(),
		TotalCents:   b.TotalCents,
		CreatedAt:    b.CreatedAt,
	}
}

func (b *BookingBuilder) BuildCreateRequestDTO() reqdto.CreateBookingRequest {
	return reqdto.CreateBookingRequest{
		PropertyID: b.PropertyID,
		StartDate:  b.StartDate.Format(calendar.DateLayout),
		EndDate:    b.EndDate.Format(calendar.DateLayout),
		PromoCode:  b.PromoCode,
	}
}
