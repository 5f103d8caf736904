package memory

import (
	"context"
	"sort"
	"time"

	"stayhub/internal/domain/booking"
	"stayhub/internal/domain/calendar"
	"stayhub/internal/domain/money"
	"stayhub/internal/domain/promotion"
	"stayhub/internal/infra"
	"stayhub/internal/pkg/errs"
	"stayhub/internal/usecase/shared"

	"github.com/google/uuid"
)

type memTx struct {
	st    *state
	reads *stateReads
}

func newTx(st *state) *memTx {
	return &memTx{st: st, reads: &stateReads{st: st}}
}

func (t *memTx) Calendar() shared.CalendarStore            { return calendarStore{st: t.st} }
func (t *memTx) Bookings() shared.BookingStore             { return bookingStore{st: t.st} }
func (t *memTx) Promotions() shared.PromotionStore         { return promotionStore{st: t.st} }
func (t *memTx) Payments() shared.PaymentLedger            { return paymentLedger{st: t.st} }
func (t *memTx) Idempotency() shared.IdempotencyRepository { return idempotencyStore{st: t.st} }
func (t *memTx) Outbox() shared.OutboxRepository           { return outboxStore{st: t.st} }
func (t *memTx) Reads() shared.CommandReads                { return t.reads }

type calendarStore struct {
	st *state
}

func (s calendarStore) GetRange(_ context.Context, propertyID uuid.UUID, r calendar.DateRange) ([]calendar.Day, error) {
	return calendar.FillRange(propertyID, r, storedDays(s.st, propertyID, r)), nil
}

func (s calendarStore) TryHold(_ context.Context, propertyID uuid.UUID, r calendar.DateRange, token calendar.Token, now time.Time) error {
	for _, date := range r.Days() {
		d, ok := s.st.days[dayKey{propertyID: propertyID, date: date}]
		if ok && !(d.State == calendar.StateHeld && d.OwnedBy(token)) {
			return errs.Wrapf(calendar.ErrHoldConflict, "day %s is %s", date.Format(calendar.DateLayout), d.State)
		}
	}
	for _, date := range r.Days() {
		tok, heldAt := token, now
		s.st.days[dayKey{propertyID: propertyID, date: date}] = calendar.Day{
			PropertyID: propertyID,
			Date:       date,
			State:      calendar.StateHeld,
			Token:      &tok,
			HeldAt:     &heldAt,
		}
	}
	return nil
}

func (s calendarStore) Commit(_ context.Context, propertyID uuid.UUID, r calendar.DateRange, token calendar.Token, _ time.Time) error {
	for _, date := range r.Days() {
		d, ok := s.st.days[dayKey{propertyID: propertyID, date: date}]
		if !ok || !d.OwnedBy(token) {
			return errs.Wrapf(calendar.ErrOwnershipMismatch, "day %s", date.Format(calendar.DateLayout))
		}
	}
	for _, date := range r.Days() {
		k := dayKey{propertyID: propertyID, date: date}
		d := s.st.days[k]
		d.State = calendar.StateBooked
		s.st.days[k] = d
	}
	return nil
}

func (s calendarStore) Release(_ context.Context, propertyID uuid.UUID, r calendar.DateRange, token calendar.Token) (int, error) {
	released := 0
	for _, date := range r.Days() {
		k := dayKey{propertyID: propertyID, date: date}
		if d, ok := s.st.days[k]; ok && d.OwnedBy(token) {
			delete(s.st.days, k)
			released++
		}
	}
	return released, nil
}

func (s calendarStore) ExpiredHolds(_ context.Context, heldBefore time.Time, limit int) ([]calendar.ExpiredHold, error) {
	type group struct {
		propertyID uuid.UUID
		token      calendar.Token
		first      time.Time
		last       time.Time
		heldAt     time.Time
	}
	groups := make(map[calendar.Token]*group)
	for _, d := range s.st.days {
		if d.State != calendar.StateHeld || d.Token == nil || d.HeldAt == nil || !d.HeldAt.Before(heldBefore) {
			continue
		}
		g, ok := groups[*d.Token]
		if !ok {
			g = &group{propertyID: d.PropertyID, token: *d.Token, first: d.Date, last: d.Date, heldAt: *d.HeldAt}
			groups[*d.Token] = g
		}
		if d.Date.Before(g.first) {
			g.first = d.Date
		}
		if d.Date.After(g.last) {
			g.last = d.Date
		}
		if d.HeldAt.Before(g.heldAt) {
			g.heldAt = *d.HeldAt
		}
	}

	holds := make([]calendar.ExpiredHold, 0, len(groups))
	for _, g := range groups {
		r, err := calendar.NewDateRange(g.first, g.last.AddDate(0, 0, 1))
		if err != nil {
			return nil, infra.WrapRepoErr("invalid held range", err)
		}
		holds = append(holds, calendar.ExpiredHold{PropertyID: g.propertyID, Token: g.token, Range: r, HeldAt: g.heldAt})
	}
	sort.Slice(holds, func(i, j int) bool { return holds[i].HeldAt.Before(holds[j].HeldAt) })
	if limit > 0 && len(holds) > limit {
		holds = holds[:limit]
	}
	return holds, nil
}

type bookingStore struct {
	st *state
}

func (s bookingStore) Create(_ context.Context, b *booking.Booking) error {
	rec := b.Record()
	if _, ok := s.st.bookings[rec.ID]; ok {
		return infra.WrapRepoErr("booking already exists", nil, infra.KindDuplicateKey)
	}
	if _, ok := s.st.tokens[b.HoldToken()]; ok {
		return infra.WrapRepoErr("hold token already used", nil, infra.KindDuplicateKey)
	}
	if _, ok := s.st.properties[rec.PropertyID]; !ok {
		return infra.WrapRepoErr("property does not exist", nil, infra.KindForeignKeyViolated)
	}
	s.st.bookings[rec.ID] = rec
	s.st.tokens[b.HoldToken()] = rec.ID
	return nil
}

func (s bookingStore) GetForUpdate(_ context.Context, id uuid.UUID) (*booking.Booking, error) {
	return loadBooking(s.st, id)
}

func (s bookingStore) GetByHoldTokenForUpdate(_ context.Context, token calendar.Token) (*booking.Booking, error) {
	id, ok := s.st.tokens[token]
	if !ok {
		return nil, infra.WrapRepoErr("booking not found", nil, infra.KindNotFound)
	}
	return loadBooking(s.st, id)
}

func (s bookingStore) Save(_ context.Context, b *booking.Booking) error {
	rec := b.Record()
	stored, ok := s.st.bookings[rec.ID]
	if !ok || stored.Version != rec.Version {
		return infra.WrapRepoErr("booking was modified concurrently", nil, infra.KindConflict)
	}
	stored.Status = rec.Status
	stored.PaymentID = rec.PaymentID
	stored.CancelledBy = rec.CancelledBy
	stored.CancelReason = rec.CancelReason
	stored.UpdatedAt = rec.UpdatedAt
	stored.Version++
	s.st.bookings[rec.ID] = stored
	return nil
}

func loadBooking(st *state, id uuid.UUID) (*booking.Booking, error) {
	rec, ok := st.bookings[id]
	if !ok {
		return nil, infra.WrapRepoErr("booking not found", nil, infra.KindNotFound)
	}
	b, err := booking.Reconstruct(rec)
	if err != nil {
		return nil, infra.WrapRepoErr("invalid booking record", err)
	}
	return b, nil
}

type promotionStore struct {
	st *state
}

func (s promotionStore) Redeem(_ context.Context, promotionID, userID, bookingID uuid.UUID, _ time.Time) error {
	p, ok := s.st.promotions[promotionID]
	if !ok || !p.IsActive || p.UsedCount >= p.MaxUses {
		return errs.Wrapf(promotion.ErrExhausted, "promotion %s", promotionID)
	}
	k := usageKey{promotionID: promotionID, userID: userID}
	if _, used := s.st.usages[k]; used {
		return errs.Wrapf(promotion.ErrAlreadyRedeemed, "promotion %s user %s", promotionID, userID)
	}
	p.UsedCount++
	s.st.promotions[promotionID] = p
	s.st.usages[k] = bookingID
	return nil
}

func (s promotionStore) Revert(_ context.Context, promotionID, userID, bookingID uuid.UUID) error {
	k := usageKey{promotionID: promotionID, userID: userID}
	if owner, ok := s.st.usages[k]; !ok || owner != bookingID {
		return nil
	}
	delete(s.st.usages, k)
	if p, ok := s.st.promotions[promotionID]; ok && p.UsedCount > 0 {
		p.UsedCount--
		s.st.promotions[promotionID] = p
	}
	return nil
}

type paymentLedger struct {
	st *state
}

func (s paymentLedger) RecordCapture(_ context.Context, rec shared.PaymentRecord) error {
	if _, ok := s.st.payments[rec.BookingID]; ok {
		return infra.WrapRepoErr("payment already recorded", nil, infra.KindDuplicateKey)
	}
	s.st.payments[rec.BookingID] = rec
	return nil
}

func (s paymentLedger) Get(_ context.Context, bookingID uuid.UUID) (*shared.PaymentRecord, error) {
	rec, ok := s.st.payments[bookingID]
	if !ok {
		return nil, infra.WrapRepoErr("payment not found", nil, infra.KindNotFound)
	}
	return &rec, nil
}

func (s paymentLedger) RecordRefund(_ context.Context, bookingID uuid.UUID, refunded money.Money, status shared.PaymentStatus, now time.Time) error {
	rec, ok := s.st.payments[bookingID]
	if !ok {
		return infra.WrapRepoErr("payment not found", nil, infra.KindNotFound)
	}
	rec.RefundedCents += refunded.Cents()
	rec.Status = status
	rec.UpdatedAt = now
	s.st.payments[bookingID] = rec
	return nil
}

type idempotencyStore struct {
	st *state
}

func (s idempotencyStore) TryInsert(_ context.Context, key, userID uuid.UUID, endpoint, requestHash string, now, expiresAt time.Time) (bool, error) {
	k := idempotencyKey{key: key, userID: userID}
	if existing, ok := s.st.idempotency[k]; ok && !existing.ExpiresAt.Before(now) {
		return false, nil
	}
	s.st.idempotency[k] = shared.IdempotencyRecord{
		Key:         key,
		UserID:      userID,
		Endpoint:    endpoint,
		Status:      shared.IdempotencyStatusProcessing,
		RequestHash: requestHash,
		ExpiresAt:   expiresAt,
	}
	return true, nil
}

func (s idempotencyStore) Complete(_ context.Context, key, userID, bookingID uuid.UUID, _ time.Time) error {
	k := idempotencyKey{key: key, userID: userID}
	rec, ok := s.st.idempotency[k]
	if !ok {
		return infra.WrapRepoErr("idempotency key not found", nil, infra.KindNotFound)
	}
	id := bookingID
	rec.Status = shared.IdempotencyStatusCompleted
	rec.ResultBookingID = &id
	s.st.idempotency[k] = rec
	return nil
}

func (s idempotencyStore) Delete(_ context.Context, key, userID uuid.UUID) error {
	k := idempotencyKey{key: key, userID: userID}
	if rec, ok := s.st.idempotency[k]; ok && rec.Status == shared.IdempotencyStatusProcessing {
		delete(s.st.idempotency, k)
	}
	return nil
}

type outboxStore struct {
	st *state
}

func (s outboxStore) Enqueue(_ context.Context, e shared.Event) error {
	s.st.outbox = append(s.st.outbox, outboxRow{
		event: shared.OutboxEvent{ID: uuid.New(), Event: e},
		runAt: e.OccurredAt,
	})
	return nil
}

func (s outboxStore) ClaimBatch(_ context.Context, limit int, now, leaseUntil time.Time) ([]shared.OutboxEvent, error) {
	var events []shared.OutboxEvent
	for i := range s.st.outbox {
		if len(events) >= limit {
			break
		}
		row := &s.st.outbox[i]
		if row.published || row.runAt.After(now) {
			continue
		}
		row.runAt = leaseUntil
		events = append(events, row.event)
	}
	return events, nil
}

func (s outboxStore) MarkPublished(_ context.Context, ids []uuid.UUID, _ time.Time) error {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	for i := range s.st.outbox {
		if _, ok := set[s.st.outbox[i].event.ID]; ok {
			s.st.outbox[i].published = true
			s.st.outbox[i].lastError = ""
		}
	}
	return nil
}

func (s outboxStore) MarkFailed(_ context.Context, id uuid.UUID, lastError string, retryAt time.Time) error {
	for i := range s.st.outbox {
		if s.st.outbox[i].event.ID == id {
			s.st.outbox[i].event.Attempts++
			s.st.outbox[i].lastError = lastError
			s.st.outbox[i].runAt = retryAt
			return nil
		}
	}
	return infra.WrapRepoErr("outbox event not found", nil, infra.KindNotFound)
}
