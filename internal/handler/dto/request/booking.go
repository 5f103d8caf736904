package request

import (
	"strings"

	"stayhub/internal/domain/calendar"
	"stayhub/internal/pkg/ptr"
	"stayhub/internal/usecase/commands"

	"github.com/google/uuid"
)

type CreateBookingRequest struct {
	PropertyID uuid.UUID `json:"propertyId" binding:"required"`
	StartDate  string    `json:"startDate" binding:"required,date"`
	EndDate    string    `json:"endDate" binding:"required,date"`
	PromoCode  *string   `json:"promoCode,omitempty" binding:"omitempty,max=64"`
}

func (r CreateBookingRequest) GetPromoCode() *string {
	return trimmedOrNil(r.PromoCode)
}

func (r CreateBookingRequest) ToInput(guestID uuid.UUID, idempotencyKey *uuid.UUID) (commands.CreateBookingInput, error) {
	start, err := calendar.ParseDate(r.StartDate)
	if err != nil {
		return commands.CreateBookingInput{}, err
	}
	end, err := calendar.ParseDate(r.EndDate)
	if err != nil {
		return commands.CreateBookingInput{}, err
	}

	return commands.CreateBookingInput{
		PropertyID:     r.PropertyID,
		GuestID:        guestID,
		StartDate:      start,
		EndDate:        end,
		PromoCode:      r.GetPromoCode(),
		IdempotencyKey: idempotencyKey,
	}, nil
}

type AdvanceStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending confirmed checked_in checked_out completed cancelled"`
}

type ListBookingsQuery struct {
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type StayQuery struct {
	Start     string  `form:"start" binding:"required,date"`
	End       string  `form:"end" binding:"required,date"`
	PromoCode *string `form:"promoCode" binding:"omitempty,max=64"`
}

func (q StayQuery) GetPromoCode() *string {
	return trimmedOrNil(q.PromoCode)
}

func trimmedOrNil(s *string) *string {
	return ptr.NilIfZero(strings.TrimSpace(ptr.Coalesce(s, "")))
}
