package queries

import (
	"context"
	"time"

	"stayhub/internal/domain/calendar"
	"stayhub/internal/pkg/errs"
	"stayhub/internal/usecase/shared"

	"github.com/google/uuid"
)

//go:generate mockgen -source=pricing.go -destination=../../../tests/mock/queries/pricing.go -package=mockqueries
type QuoteInput struct {
	PropertyID uuid.UUID
	GuestID    uuid.UUID
	StartDate  time.Time
	EndDate    time.Time
	PromoCode  *string
}

type PricingQueries interface {
	Quote(ctx context.Context, in QuoteInput) (*QuoteView, error)
}

type pricingQueriesImpl struct {
	pricing shared.PricingResolver
}

func NewPricingQueries(pricing shared.PricingResolver) PricingQueries {
	return &pricingQueriesImpl{pricing: pricing}
}

func (q *pricingQueriesImpl) Quote(ctx context.Context, in QuoteInput) (*QuoteView, error) {
	stay, err := calendar.NewDateRange(in.StartDate, in.EndDate)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrInvalidRange)
	}

	quote, err := q.pricing.Quote(ctx, shared.QuoteRequest{
		PropertyID: in.PropertyID,
		GuestID:    in.GuestID,
		Stay:       stay,
		PromoCode:  in.PromoCode,
	})
	if err != nil {
		return nil, shared.MarkPricingError(err)
	}

	view := &QuoteView{
		PropertyID:    quote.PropertyID,
		StartDate:     stay.Start(),
		EndDate:       stay.End(),
		Nights:        stay.Nights(),
		BaseCents:     quote.Base.Cents(),
		DiscountCents: quote.Discount().Cents(),
		TotalCents:    quote.Amount.Cents(),
	}
	if quote.PromotionCode != nil {
		code := quote.PromotionCode.String()
		view.PromotionCode = &code
	}
	return view, nil
}
