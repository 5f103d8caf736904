package memory

import (
	"context"
	"sort"
	"time"

	"stayhub/internal/domain/booking"
	"stayhub/internal/domain/calendar"
	"stayhub/internal/domain/promotion"
	"stayhub/internal/domain/property"
	"stayhub/internal/infra"
	"stayhub/internal/usecase/queries"
	"stayhub/internal/usecase/shared"

	"github.com/google/uuid"
)

// stateReads reads one state without locking; callers hold the store lock.
type stateReads struct {
	st *state
}

func (r *stateReads) PropertyByID(_ context.Context, id uuid.UUID) (*property.Property, error) {
	p, ok := r.st.properties[id]
	if !ok {
		return nil, infra.WrapRepoErr("property not found", nil, infra.KindNotFound)
	}
	return p, nil
}

func (r *stateReads) PromotionByCode(_ context.Context, code promotion.Code) (*promotion.Promotion, error) {
	id, ok := r.st.promoCodes[code.String()]
	if !ok {
		return nil, infra.WrapRepoErr("promotion not found", nil, infra.KindNotFound)
	}
	p, err := promotion.NewPromotion(r.st.promotions[id])
	if err != nil {
		return nil, infra.WrapRepoErr("invalid promotion record", err)
	}
	return p, nil
}

func (r *stateReads) HasRedeemed(_ context.Context, promotionID, userID uuid.UUID) (bool, error) {
	_, ok := r.st.usages[usageKey{promotionID: promotionID, userID: userID}]
	return ok, nil
}

func (r *stateReads) BookingByID(_ context.Context, id uuid.UUID) (*booking.Booking, error) {
	return loadBooking(r.st, id)
}

func (r *stateReads) IdempotencyByKey(_ context.Context, key, userID uuid.UUID) (*shared.IdempotencyRecord, error) {
	rec, ok := r.st.idempotency[idempotencyKey{key: key, userID: userID}]
	if !ok {
		return nil, infra.WrapRepoErr("idempotency key not found", nil, infra.KindNotFound)
	}
	return &rec, nil
}

func (r *stateReads) CalendarRange(_ context.Context, propertyID uuid.UUID, dr calendar.DateRange) ([]calendar.Day, error) {
	return storedDays(r.st, propertyID, dr), nil
}

func (r *stateReads) bookingView(id uuid.UUID) (*queries.BookingView, error) {
	rec, ok := r.st.bookings[id]
	if !ok {
		return nil, infra.WrapRepoErr("booking not found", nil, infra.KindNotFound)
	}
	p, ok := r.st.properties[rec.PropertyID]
	if !ok {
		return nil, infra.WrapRepoErr("property not found", nil, infra.KindNotFound)
	}

	v := &queries.BookingView{
		ID:           rec.ID,
		PropertyID:   rec.PropertyID,
		PropertyName: p.Name(),
		HostID:       p.HostID(),
		GuestID:      rec.GuestID,
		StartDate:    rec.StartDate,
		EndDate:      rec.EndDate,
		Nights:       int(rec.EndDate.Sub(rec.StartDate).Hours() / 24),
		Status:       rec.Status,
		TotalCents:   rec.TotalCents,
		PromotionID:  rec.PromotionID,
		PaymentID:    rec.PaymentID,
		CancelledBy:  rec.CancelledBy,
		CancelReason: rec.CancelReason,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
	if rec.PromotionID != nil {
		if promo, ok := r.st.promotions[*rec.PromotionID]; ok {
			code := promo.Code
			v.PromotionCode = &code
		}
	}
	if pay, ok := r.st.payments[rec.ID]; ok {
		status := string(pay.Status)
		v.PaymentStatus = &status
		v.RefundedCents = pay.RefundedCents
	}
	return v, nil
}

// guestBookings lists a guest's bookings newest first, ties broken by ID.
func (r *stateReads) guestBookings(guestID uuid.UUID, after func(booking.Record) bool, limit int32) []*queries.BookingListItem {
	var recs []booking.Record
	for _, rec := range r.st.bookings {
		if rec.GuestID == guestID && (after == nil || after(rec)) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.After(recs[j].CreatedAt)
		}
		return recs[i].ID.String() > recs[j].ID.String()
	})
	if int(limit) < len(recs) {
		recs = recs[:limit]
	}

	items := make([]*queries.BookingListItem, 0, len(recs))
	for _, rec := range recs {
		item := &queries.BookingListItem{
			ID:         rec.ID,
			PropertyID: rec.PropertyID,
			StartDate:  rec.StartDate,
			EndDate:    rec.EndDate,
			Status:     rec.Status,
			TotalCents: rec.TotalCents,
			CreatedAt:  rec.CreatedAt,
		}
		if p, ok := r.st.properties[rec.PropertyID]; ok {
			item.PropertyName = p.Name()
		}
		items = append(items, item)
	}
	return items
}

// lockedReads serves reads outside a transaction against the latest committed state.
type lockedReads struct {
	store *Store
}

func (r *lockedReads) with(fn func(reads *stateReads)) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	fn(&stateReads{st: r.store.state})
}

func (r *lockedReads) PropertyByID(ctx context.Context, id uuid.UUID) (p *property.Property, err error) {
	r.with(func(reads *stateReads) { p, err = reads.PropertyByID(ctx, id) })
	return p, err
}

func (r *lockedReads) PromotionByCode(ctx context.Context, code promotion.Code) (p *promotion.Promotion, err error) {
	r.with(func(reads *stateReads) { p, err = reads.PromotionByCode(ctx, code) })
	return p, err
}

func (r *lockedReads) HasRedeemed(ctx context.Context, promotionID, userID uuid.UUID) (ok bool, err error) {
	r.with(func(reads *stateReads) { ok, err = reads.HasRedeemed(ctx, promotionID, userID) })
	return ok, err
}

func (r *lockedReads) BookingByID(ctx context.Context, id uuid.UUID) (b *booking.Booking, err error) {
	r.with(func(reads *stateReads) { b, err = reads.BookingByID(ctx, id) })
	return b, err
}

func (r *lockedReads) IdempotencyByKey(ctx context.Context, key, userID uuid.UUID) (rec *shared.IdempotencyRecord, err error) {
	r.with(func(reads *stateReads) { rec, err = reads.IdempotencyByKey(ctx, key, userID) })
	return rec, err
}

func (r *lockedReads) CalendarRange(ctx context.Context, propertyID uuid.UUID, dr calendar.DateRange) (days []calendar.Day, err error) {
	r.with(func(reads *stateReads) { days, err = reads.CalendarRange(ctx, propertyID, dr) })
	return days, err
}

// BookingReadStore serves booking views from the store.
type BookingReadStore struct {
	reads *lockedReads
}

func NewBookingReadStore(store *Store) *BookingReadStore {
	return &BookingReadStore{reads: &lockedReads{store: store}}
}

func (s *BookingReadStore) FindByID(_ context.Context, id uuid.UUID) (v *queries.BookingView, err error) {
	s.reads.with(func(reads *stateReads) { v, err = reads.bookingView(id) })
	return v, err
}

func (s *BookingReadStore) FindByGuestFirstPage(_ context.Context, guestID uuid.UUID, limit int32) (items []*queries.BookingListItem, err error) {
	s.reads.with(func(reads *stateReads) { items = reads.guestBookings(guestID, nil, limit) })
	return items, nil
}

func (s *BookingReadStore) FindByGuestKeyset(_ context.Context, guestID uuid.UUID, lastCreatedAt time.Time, lastID uuid.UUID, limit int32) (items []*queries.BookingListItem, err error) {
	after := func(rec booking.Record) bool {
		if rec.CreatedAt.Equal(lastCreatedAt) {
			return rec.ID.String() < lastID.String()
		}
		return rec.CreatedAt.Before(lastCreatedAt)
	}
	s.reads.with(func(reads *stateReads) { items = reads.guestBookings(guestID, after, limit) })
	return items, nil
}

// AvailabilityReadStore serves listings and calendar rows from the store.
type AvailabilityReadStore struct {
	reads *lockedReads
}

func NewAvailabilityReadStore(store *Store) *AvailabilityReadStore {
	return &AvailabilityReadStore{reads: &lockedReads{store: store}}
}

func (s *AvailabilityReadStore) PropertyByID(ctx context.Context, id uuid.UUID) (*property.Property, error) {
	return s.reads.PropertyByID(ctx, id)
}

func (s *AvailabilityReadStore) CalendarRange(ctx context.Context, propertyID uuid.UUID, dr calendar.DateRange) ([]calendar.Day, error) {
	return s.reads.CalendarRange(ctx, propertyID, dr)
}
