//go:build unit || e2e

package builder

import (
	"time"

	"stayhub/internal/domain/promotion"

	"github.com/google/uuid"
)

type PromotionBuilder struct {
	ID        uuid.UUID
	Code      string
	Kind      string
	Amount    float64
	StartDate time.Time
	EndDate   time.Time
	MaxUses   int
	UsedCount int
	IsActive  bool
}

// NewPromotionBuilder defaults to SUMMER10: 10% off through 2024.
func NewPromotionBuilder() *PromotionBuilder {
	return &PromotionBuilder{
		ID:        uuid.New(),
		Code:      "SUMMER10",
		Kind:      string(promotion.DiscountPercent),
		Amount:    10,
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		MaxUses:   100,
		IsActive:  true,
	}
}

func (p *PromotionBuilder) With(mutate func(*PromotionBuilder)) *PromotionBuilder {
	mutate(p)
	return p
}

func (p *PromotionBuilder) WithCode(code string) *PromotionBuilder {
	p.Code = code
	return p
}

func (p *PromotionBuilder) WithMaxUses(n int) *PromotionBuilder {
	p.MaxUses = n
	return p
}

func (p *PromotionBuilder) WithFixedCents(cents int64) *PromotionBuilder {
	p.Kind = string(promotion.DiscountFixed)
	p.Amount = float64(cents)
	return p
}

func (p *PromotionBuilder) BuildDomain() (*promotion.Promotion, error) {
	discount, err := promotion.ParseDiscount(p.Kind, p.Amount)
	if err != nil {
		return nil, err
	}
	return promotion.NewPromotion(promotion.Params{
		ID:        p.ID,
		Code:      p.Code,
		Discount:  discount,
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		MaxUses:   p.MaxUses,
		UsedCount: p.UsedCount,
		IsActive:  p.IsActive,
	})
}

// MustBuild panics on invalid input; fixtures only.
func (p *PromotionBuilder) MustBuild() *promotion.Promotion {
	promo, err := p.BuildDomain()
	if err != nil {
		panic(err)
	}
	return promo
}
