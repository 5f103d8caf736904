package promotion

import (
	"errors"
	"time"

	"stayhub/internal/domain/calendar"
	"stayhub/internal/domain/money"

	"github.com/google/uuid"
)

var (
	ErrInactive          = errors.New("promotion is not active")
	ErrNotStarted        = errors.New("promotion has not started yet")
	ErrExpired           = errors.New("promotion has expired")
	ErrExhausted         = errors.New("promotion has no uses left")
	ErrAlreadyRedeemed   = errors.New("promotion already used by this guest")
	ErrInvalidUsageLimit = errors.New("max uses must be positive")
	ErrInvalidPeriod     = errors.New("promotion end date must not be before start date")
)

type Promotion struct {
	id        uuid.UUID
	code      Code
	discount  Discount
	startDate time.Time
	endDate   time.Time
	maxUses   int
	usedCount int
	isActive  bool
}

type Params struct {
	ID        uuid.UUID
	Code      string
	Discount  Discount
	StartDate time.Time
	EndDate   time.Time
	MaxUses   int
	UsedCount int
	IsActive  bool
}

func NewPromotion(p Params) (*Promotion, error) {
	code, err := NewCode(p.Code)
	if err != nil {
		return nil, err
	}
	if p.MaxUses <= 0 {
		return nil, ErrInvalidUsageLimit
	}
	start, end := calendar.ToDate(p.StartDate), calendar.ToDate(p.EndDate)
	if end.Before(start) {
		return nil, ErrInvalidPeriod
	}

	id := p.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	return &Promotion{
		id:        id,
		code:      code,
		discount:  p.Discount,
		startDate: start,
		endDate:   end,
		maxUses:   p.MaxUses,
		usedCount: p.UsedCount,
		isActive:  p.IsActive,
	}, nil
}

// CheckApplicable validates the promotion on the calendar date of now; both
// period bounds are inclusive.
func (p *Promotion) CheckApplicable(now time.Time) error {
	today := calendar.ToDate(now)
	switch {
	case !p.isActive:
		return ErrInactive
	case today.Before(p.startDate):
		return ErrNotStarted
	case today.After(p.endDate):
		return ErrExpired
	case p.usedCount >= p.maxUses:
		return ErrExhausted
	}
	return nil
}

func (p *Promotion) Apply(base money.Money) money.Money {
	return p.discount.Apply(base)
}

func (p *Promotion) RemainingUses() int {
	if p.usedCount >= p.maxUses {
		return 0
	}
	return p.maxUses - p.usedCount
}

func (p *Promotion) ID() uuid.UUID        { return p.id }
func (p *Promotion) Code() Code           { return p.code }
func (p *Promotion) Discount() Discount   { return p.discount }
func (p *Promotion) StartDate() time.Time { return p.startDate }
func (p *Promotion) EndDate() time.Time   { return p.endDate }
func (p *Promotion) MaxUses() int         { return p.maxUses }
func (p *Promotion) UsedCount() int       { return p.usedCount }
func (p *Promotion) IsActive() bool       { return p.isActive }
