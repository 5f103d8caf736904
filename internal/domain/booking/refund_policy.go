package booking

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"stayhub/internal/domain/calendar"
	"stayhub/internal/domain/money"
)

var ErrInvalidRefundTier = errors.New("refund tier must be formatted as <days>:<percent> with percent in 0..100")

// RefundPolicy decides how much of a captured payment is returned when b is
// cancelled at the given time. Implementations must not mutate b.
type RefundPolicy interface {
	Refund(b *Booking, cancelledAt time.Time) money.Money
}

type RefundPolicyFunc func(b *Booking, cancelledAt time.Time) money.Money

func (f RefundPolicyFunc) Refund(b *Booking, cancelledAt time.Time) money.Money {
	return f(b, cancelledAt)
}

type RefundTier struct {
	MinDaysBefore int
	Percent       int
}

// TieredRefundPolicy refunds a percentage of the unused nights' share of the
// total. The percentage comes from the first tier whose MinDaysBefore is met
// by the days remaining until check-in; no matching tier means no refund.
type TieredRefundPolicy struct {
	tiers []RefundTier
}

func NewTieredRefundPolicy(tiers ...RefundTier) (*TieredRefundPolicy, error) {
	sorted := make([]RefundTier, 0, len(tiers))
	for _, t := range tiers {
		if t.MinDaysBefore < 0 || t.Percent < 0 || t.Percent > 100 {
			return nil, ErrInvalidRefundTier
		}
		sorted = append(sorted, t)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MinDaysBefore > sorted[j].MinDaysBefore
	})
	return &TieredRefundPolicy{tiers: sorted}, nil
}

// ParseRefundTiers reads "7:100,2:50" style schedules.
func ParseRefundTiers(s string) (*TieredRefundPolicy, error) {
	var tiers []RefundTier
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		days, percent, ok := strings.Cut(part, ":")
		if !ok {
			return nil, ErrInvalidRefundTier
		}
		d, err := strconv.Atoi(strings.TrimSpace(days))
		if err != nil {
			return nil, ErrInvalidRefundTier
		}
		p, err := strconv.Atoi(strings.TrimSpace(percent))
		if err != nil {
			return nil, ErrInvalidRefundTier
		}
		tiers = append(tiers, RefundTier{MinDaysBefore: d, Percent: p})
	}
	return NewTieredRefundPolicy(tiers...)
}

func (p *TieredRefundPolicy) Refund(b *Booking, cancelledAt time.Time) money.Money {
	if b.PaymentID() == nil {
		return money.Zero()
	}

	stay := b.Stay()
	remaining, err := stay.From(cancelledAt)
	if err != nil {
		return money.Zero()
	}

	daysBefore := int(stay.Start().Sub(calendar.ToDate(cancelledAt)) / (24 * time.Hour))
	percent := 0
	for _, t := range p.tiers {
		if daysBefore >= t.MinDaysBefore {
			percent = t.Percent
			break
		}
	}

	return b.Total().Fraction(remaining.Nights(), stay.Nights()).Percent(float64(percent))
}

func (p *TieredRefundPolicy) Tiers() []RefundTier {
	out := make([]RefundTier, len(p.tiers))
	copy(out, p.tiers)
	return out
}
