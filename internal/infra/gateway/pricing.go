package gateway

import (
	"context"

	"stayhub/internal/domain/promotion"
	"stayhub/internal/infra"
	"stayhub/internal/pkg/clock"
	"stayhub/internal/pkg/errs"
	"stayhub/internal/usecase/shared"
)

// LocalPricingResolver prices stays from the property's nightly rate and
// validates promotions against the local promotions table.
type LocalPricingResolver struct {
	reads shared.CommandReads
	clock clock.Clock
}

func NewLocalPricingResolver(uow shared.UnitOfWork, clk clock.Clock) *LocalPricingResolver {
	return &LocalPricingResolver{reads: uow.CommandReads(), clock: clk}
}

func (r *LocalPricingResolver) Quote(ctx context.Context, req shared.QuoteRequest) (*shared.Quote, error) {
	prop, err := r.reads.PropertyByID(ctx, req.PropertyID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, errs.ErrPropertyNotFound)
		}
		return nil, errs.Wrapf(err, "load property %s", req.PropertyID)
	}

	base := prop.BaseRate(req.Stay.Nights())
	quote := &shared.Quote{
		PropertyID: prop.ID(),
		Stay:       req.Stay,
		Base:       base,
		Amount:     base,
	}

	if req.PromoCode == nil || *req.PromoCode == "" {
		return quote, nil
	}

	code, err := promotion.NewCode(*req.PromoCode)
	if err != nil {
		return nil, err
	}

	promo, err := r.reads.PromotionByCode(ctx, code)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(errs.Wrapf(err, "promotion %s", code), errs.ErrPromotionInvalid)
		}
		return nil, errs.Wrapf(err, "load promotion %s", code)
	}

	if err := promo.CheckApplicable(r.clock.Now()); err != nil {
		return nil, errs.Wrapf(err, "promotion %s", code)
	}

	redeemed, err := r.reads.HasRedeemed(ctx, promo.ID(), req.GuestID)
	if err != nil {
		return nil, errs.Wrapf(err, "check usage of promotion %s", code)
	}
	if redeemed {
		return nil, errs.Wrapf(promotion.ErrAlreadyRedeemed, "promotion %s", code)
	}

	id, promoCode := promo.ID(), promo.Code()
	quote.Amount = promo.Apply(base)
	quote.PromotionID = &id
	quote.PromotionCode = &promoCode
	return quote, nil
}
