package response

import (
	"stayhub/internal/domain/calendar"
	"stayhub/internal/usecase/queries"

	"github.com/google/uuid"
)

type AvailabilityResponse struct {
	PropertyID       uuid.UUID `json:"propertyId"`
	StartDate        string    `json:"startDate"`
	EndDate          string    `json:"endDate"`
	Available        bool      `json:"available"`
	UnavailableDates []string  `json:"unavailableDates"`
}

type QuoteResponse struct {
	PropertyID    uuid.UUID `json:"propertyId"`
	StartDate     string    `json:"startDate"`
	EndDate       string    `json:"endDate"`
	Nights        int       `json:"nights"`
	BaseCents     int64     `json:"baseCents"`
	DiscountCents int64     `json:"discountCents"`
	TotalCents    int64     `json:"totalCents"`
	PromotionCode *string   `json:"promotionCode,omitempty"`
}

func FromAvailabilityView(v *queries.AvailabilityView) *AvailabilityResponse {
	dates := make([]string, len(v.Unavailable))
	for i, d := range v.Unavailable {
		dates[i] = d.Format(calendar.DateLayout)
	}
	return &AvailabilityResponse{
		PropertyID:       v.PropertyID,
		StartDate:        v.StartDate.Format(calendar.DateLayout),
		EndDate:          v.EndDate.Format(calendar.DateLayout),
		Available:        v.Available,
		UnavailableDates: dates,
	}
}

func FromQuoteView(v *queries.QuoteView) *QuoteResponse {
	return &QuoteResponse{
		PropertyID:    v.PropertyID,
		StartDate:     v.StartDate.Format(calendar.DateLayout),
		EndDate:       v.EndDate.Format(calendar.DateLayout),
		Nights:        v.Nights,
		BaseCents:     v.BaseCents,
		DiscountCents: v.DiscountCents,
		TotalCents:    v.TotalCents,
		PromotionCode: v.PromotionCode,
	}
}
