package property

import (
	"errors"
	"strings"

	"stayhub/internal/domain/money"

	"github.com/google/uuid"
)

var (
	ErrEmptyName       = errors.New("property name cannot be empty")
	ErrNameTooLong     = errors.New("property name is too long (max 255 characters)")
	ErrMissingHost     = errors.New("property requires a host")
	ErrZeroNightlyRate = errors.New("nightly rate must be positive")
)

const MaxNameLength = 255

// Property is the listing data the booking engine reads; listings are managed elsewhere.
type Property struct {
	id          uuid.UUID
	hostID      uuid.UUID
	name        string
	nightlyRate money.Money
	isActive    bool
}

func NewProperty(id, hostID uuid.UUID, name string, nightlyRateCents int64, isActive bool) (*Property, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if len(name) > MaxNameLength {
		return nil, ErrNameTooLong
	}
	if hostID == uuid.Nil {
		return nil, ErrMissingHost
	}
	rate, err := money.FromCents(nightlyRateCents)
	if err != nil || rate.IsZero() {
		return nil, ErrZeroNightlyRate
	}

	return &Property{
		id:          id,
		hostID:      hostID,
		name:        name,
		nightlyRate: rate,
		isActive:    isActive,
	}, nil
}

func (p *Property) IsHost(userID uuid.UUID) bool {
	return p.hostID == userID
}

// BaseRate is the undiscounted price of the given number of nights.
func (p *Property) BaseRate(nights int) money.Money {
	return p.nightlyRate.Times(nights)
}

func (p *Property) ID() uuid.UUID            { return p.id }
func (p *Property) HostID() uuid.UUID        { return p.hostID }
func (p *Property) Name() string             { return p.name }
func (p *Property) NightlyRate() money.Money { return p.nightlyRate }
func (p *Property) IsActive() bool           { return p.isActive }
