package queries

import (
	"context"
	"log/slog"
	"time"

	"stayhub/internal/domain/calendar"
	"stayhub/internal/domain/property"
	"stayhub/internal/infra"
	"stayhub/internal/pkg/errs"
	"stayhub/internal/usecase/shared"

	"github.com/google/uuid"
)

//go:generate mockgen -source=availability.go -destination=../../../tests/mock/queries/availability.go -package=mockqueries
type AvailabilityReadStore interface {
	PropertyByID(ctx context.Context, id uuid.UUID) (*property.Property, error)
	CalendarRange(ctx context.Context, propertyID uuid.UUID, r calendar.DateRange) ([]calendar.Day, error)
}

type AvailabilityQueries interface {
	// GetAvailability reports whether every night of [start, end) is free.
	GetAvailability(ctx context.Context, propertyID uuid.UUID, start, end time.Time) (bool, error)
	CheckAvailability(ctx context.Context, propertyID uuid.UUID, start, end time.Time) (*AvailabilityView, error)
}

type availabilityQueriesImpl struct {
	store  AvailabilityReadStore
	cache  shared.AvailabilityCache
	logger *slog.Logger
}

func NewAvailabilityQueries(store AvailabilityReadStore, cache shared.AvailabilityCache, logger *slog.Logger) AvailabilityQueries {
	return &availabilityQueriesImpl{store: store, cache: cache, logger: logger}
}

func (q *availabilityQueriesImpl) GetAvailability(ctx context.Context, propertyID uuid.UUID, start, end time.Time) (bool, error) {
	view, err := q.CheckAvailability(ctx, propertyID, start, end)
	if err != nil {
		return false, err
	}
	return view.Available, nil
}

// CheckAvailability reads through the cache. Cache failures degrade to a
// store read; they never fail the request.
func (q *availabilityQueriesImpl) CheckAvailability(ctx context.Context, propertyID uuid.UUID, start, end time.Time) (*AvailabilityView, error) {
	stay, err := calendar.NewDateRange(start, end)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrInvalidRange)
	}

	cached, err := q.cache.Lookup(ctx, propertyID, stay)
	if err != nil {
		q.logger.Warn("availability cache lookup failed", "property_id", propertyID, "error", err.Error())
	}
	if err == nil && cached.Found {
		return toAvailabilityView(propertyID, stay, cached.Availability, true), nil
	}

	if _, err := q.store.PropertyByID(ctx, propertyID); err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, errs.ErrPropertyNotFound)
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	days, err := q.store.CalendarRange(ctx, propertyID, stay)
	if err != nil {
		return nil, errs.Mark(errs.Wrapf(err, "read calendar of property %s range %s", propertyID, stay), errs.ErrDatabaseOperationFailed)
	}
	result := calendar.Check(stay, calendar.FillRange(propertyID, stay, days))

	if err := q.cache.Store(ctx, propertyID, stay, cached.Version, result); err != nil {
		q.logger.Warn("availability cache store failed", "property_id", propertyID, "error", err.Error())
	}

	return toAvailabilityView(propertyID, stay, result, false), nil
}

func toAvailabilityView(propertyID uuid.UUID, stay calendar.DateRange, a calendar.Availability, cached bool) *AvailabilityView {
	unavailable := a.Unavailable
	if unavailable == nil {
		unavailable = []time.Time{}
	}
	return &AvailabilityView{
		PropertyID:  propertyID,
		StartDate:   stay.Start(),
		EndDate:     stay.End(),
		Available:   a.Available,
		Unavailable: unavailable,
		Cached:      cached,
	}
}
