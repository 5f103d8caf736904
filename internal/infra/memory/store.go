// Package memory is a process-local backend used by the use-case tests. Every
// transaction runs under one store-wide lock against a private copy of the
// state, which is published on success and dropped on error.
package memory

import (
	"context"
	"sync"
	"time"

	"stayhub/internal/domain/booking"
	"stayhub/internal/domain/calendar"
	"stayhub/internal/domain/promotion"
	"stayhub/internal/domain/property"
	"stayhub/internal/usecase/shared"

	"github.com/google/uuid"
)

type usageKey struct {
	promotionID uuid.UUID
	userID      uuid.UUID
}

type idempotencyKey struct {
	key    uuid.UUID
	userID uuid.UUID
}

type dayKey struct {
	propertyID uuid.UUID
	date       time.Time
}

type outboxRow struct {
	event     shared.OutboxEvent
	published bool
	runAt     time.Time
	lastError string
}

type state struct {
	properties  map[uuid.UUID]*property.Property
	promotions  map[uuid.UUID]promotion.Params
	promoCodes  map[string]uuid.UUID
	usages      map[usageKey]uuid.UUID
	days        map[dayKey]calendar.Day
	bookings    map[uuid.UUID]booking.Record
	tokens      map[calendar.Token]uuid.UUID
	payments    map[uuid.UUID]shared.PaymentRecord
	idempotency map[idempotencyKey]shared.IdempotencyRecord
	outbox      []outboxRow
}

func newState() *state {
	return &state{
		properties:  make(map[uuid.UUID]*property.Property),
		promotions:  make(map[uuid.UUID]promotion.Params),
		promoCodes:  make(map[string]uuid.UUID),
		usages:      make(map[usageKey]uuid.UUID),
		days:        make(map[dayKey]calendar.Day),
		bookings:    make(map[uuid.UUID]booking.Record),
		tokens:      make(map[calendar.Token]uuid.UUID),
		payments:    make(map[uuid.UUID]shared.PaymentRecord),
		idempotency: make(map[idempotencyKey]shared.IdempotencyRecord),
	}
}

func (s *state) clone() *state {
	c := &state{
		properties:  make(map[uuid.UUID]*property.Property, len(s.properties)),
		promotions:  make(map[uuid.UUID]promotion.Params, len(s.promotions)),
		promoCodes:  make(map[string]uuid.UUID, len(s.promoCodes)),
		usages:      make(map[usageKey]uuid.UUID, len(s.usages)),
		days:        make(map[dayKey]calendar.Day, len(s.days)),
		bookings:    make(map[uuid.UUID]booking.Record, len(s.bookings)),
		tokens:      make(map[calendar.Token]uuid.UUID, len(s.tokens)),
		payments:    make(map[uuid.UUID]shared.PaymentRecord, len(s.payments)),
		idempotency: make(map[idempotencyKey]shared.IdempotencyRecord, len(s.idempotency)),
		outbox:      make([]outboxRow, len(s.outbox)),
	}
	for k, v := range s.properties {
		c.properties[k] = v
	}
	for k, v := range s.promotions {
		c.promotions[k] = v
	}
	for k, v := range s.promoCodes {
		c.promoCodes[k] = v
	}
	for k, v := range s.usages {
		c.usages[k] = v
	}
	for k, v := range s.days {
		c.days[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.idempotency {
		c.idempotency[k] = v
	}
	copy(c.outbox, s.outbox)
	return c
}

// Store is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	state *state
}

func NewStore() *Store {
	return &Store{state: newState()}
}

// AddProperty seeds a listing.
func (s *Store) AddProperty(p *property.Property) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.properties[p.ID()] = p
}

// AddPromotion seeds a promotion. Codes are unique; a second promotion with
// the same code replaces the first.
func (s *Store) AddPromotion(p *promotion.Promotion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.state.promoCodes[p.Code().String()]; ok {
		delete(s.state.promotions, old)
	}
	s.state.promotions[p.ID()] = promotion.Params{
		ID:        p.ID(),
		Code:      p.Code().String(),
		Discount:  p.Discount(),
		StartDate: p.StartDate(),
		EndDate:   p.EndDate(),
		MaxUses:   p.MaxUses(),
		UsedCount: p.UsedCount(),
		IsActive:  p.IsActive(),
	}
	s.state.promoCodes[p.Code().String()] = p.ID()
}

// UsedCount reports the redemptions recorded for a promotion.
func (s *Store) UsedCount(promotionID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.promotions[promotionID].UsedCount
}

// Days returns the stored calendar rows of a property in date order.
func (s *Store) Days(propertyID uuid.UUID, r calendar.DateRange) []calendar.Day {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return storedDays(s.state, propertyID, r)
}

// PendingEvents returns outbox events not yet published.
func (s *Store) PendingEvents() []shared.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var events []shared.OutboxEvent
	for _, row := range s.state.outbox {
		if !row.published {
			events = append(events, row.event)
		}
	}
	return events
}

func storedDays(st *state, propertyID uuid.UUID, r calendar.DateRange) []calendar.Day {
	var days []calendar.Day
	for _, date := range r.Days() {
		if d, ok := st.days[dayKey{propertyID: propertyID, date: date}]; ok {
			days = append(days, d)
		}
	}
	return days
}

// UnitOfWork runs transactions against s.
type UnitOfWork struct {
	store *Store
}

func NewUnitOfWork(store *Store) *UnitOfWork {
	return &UnitOfWork{store: store}
}

func (u *UnitOfWork) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	working := u.store.state.clone()
	if err := fn(ctx, newTx(working)); err != nil {
		return err
	}
	u.store.state = working
	return nil
}

func (u *UnitOfWork) CommandReads() shared.CommandReads {
	return &lockedReads{store: u.store}
}
