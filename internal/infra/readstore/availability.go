package readstore

import (
	"context"

	"stayhub/internal/domain/calendar"
	"stayhub/internal/domain/property"
	"stayhub/internal/infra/db"
	"stayhub/internal/infra/repository"

	"github.com/google/uuid"
)

// AvailabilityReadStore reads calendar rows outside any transaction.
type AvailabilityReadStore struct {
	db         db.DBTX
	properties *PropertyReadStore
}

func NewAvailabilityReadStore(db db.DBTX) *AvailabilityReadStore {
	return &AvailabilityReadStore{db: db, properties: NewPropertyReadStore(db)}
}

func (r *AvailabilityReadStore) PropertyByID(ctx context.Context, id uuid.UUID) (*property.Property, error) {
	return r.properties.FindByID(ctx, id)
}

func (r *AvailabilityReadStore) CalendarRange(ctx context.Context, propertyID uuid.UUID, dr calendar.DateRange) ([]calendar.Day, error) {
	return repository.QueryCalendarRange(ctx, r.db, propertyID, dr)
}
