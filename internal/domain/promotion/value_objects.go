package promotion

import (
	"errors"
	"regexp"
	"strings"

	"stayhub/internal/domain/money"
)

var (
	ErrInvalidCode            = errors.New("invalid promotion code format")
	ErrInvalidDiscountType    = errors.New("discount type must be percent or fixed")
	ErrInvalidDiscountAmount  = errors.New("discount amount cannot be negative")
	ErrInvalidDiscountPercent = errors.New("percentage discount must be between 0 and 100")
)

var codeRegex = regexp.MustCompile(`^[A-Z0-9]{3,20}$`)

type Code string

func NewCode(code string) (Code, error) {
	code = strings.TrimSpace(strings.ToUpper(code))
	if !codeRegex.MatchString(code) {
		return Code(""), ErrInvalidCode
	}
	return Code(code), nil
}

func (c Code) String() string {
	return string(c)
}

type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

// Discount is either a percentage off or a fixed amount off, never both.
type Discount struct {
	kind    DiscountType
	percent float64
	fixed   money.Money
}

func NewPercentDiscount(percent float64) (Discount, error) {
	if percent < 0 || percent > 100 {
		return Discount{}, ErrInvalidDiscountPercent
	}
	return Discount{kind: DiscountPercent, percent: percent}, nil
}

func NewFixedDiscount(cents int64) (Discount, error) {
	amount, err := money.FromCents(cents)
	if err != nil {
		return Discount{}, ErrInvalidDiscountAmount
	}
	return Discount{kind: DiscountFixed, fixed: amount}, nil
}

// ParseDiscount reads the stored (type, amount) pair; fixed amounts are in cents.
func ParseDiscount(kind string, amount float64) (Discount, error) {
	switch DiscountType(kind) {
	case DiscountPercent:
		return NewPercentDiscount(amount)
	case DiscountFixed:
		return NewFixedDiscount(int64(amount))
	default:
		return Discount{}, ErrInvalidDiscountType
	}
}

func (d Discount) Type() DiscountType { return d.kind }

// Amount is the percentage for percent discounts and cents for fixed ones.
func (d Discount) Amount() float64 {
	if d.kind == DiscountPercent {
		return d.percent
	}
	return float64(d.fixed.Cents())
}

func (d Discount) Apply(base money.Money) money.Money {
	if d.kind == DiscountPercent {
		return base.Sub(base.Percent(d.percent))
	}
	return base.Sub(d.fixed)
}
