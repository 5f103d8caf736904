//go:build unit || e2e

package builder

import (
	"stayhub/internal/domain/property"

	"github.com/google/uuid"
)

type PropertyBuilder struct {
	ID               uuid.UUID
	HostID           uuid.UUID
	Name             string
	NightlyRateCents int64
	IsActive         bool
}

// NewPropertyBuilder defaults to a $200 per night active listing.
func NewPropertyBuilder() *PropertyBuilder {
	return &PropertyBuilder{
		ID:               uuid.New(),
		HostID:           uuid.New(),
		Name:             "Seaside Cottage",
		NightlyRateCents: 20000,
		IsActive:         true,
	}
}

func (p *PropertyBuilder) With(mutate func(*PropertyBuilder)) *PropertyBuilder {
	mutate(p)
	return p
}

func (p *PropertyBuilder) WithNightlyRate(cents int64) *PropertyBuilder {
	p.NightlyRateCents = cents
	return p
}

func (p *PropertyBuilder) Inactive() *PropertyBuilder {
	p.IsActive = false
	return p
}

func (p *PropertyBuilder) BuildDomain() (*property.Property, error) {
	return property.NewProperty(p.ID, p.HostID, p.Name, p.NightlyRateCents, p.IsActive)
}

// MustBuild panics on invalid input; fixtures only.
func (p *PropertyBuilder) MustBuild() *property.Property {
	prop, err := p.BuildDomain()
	if err != nil {
		panic(err)
	}
	return prop
}
