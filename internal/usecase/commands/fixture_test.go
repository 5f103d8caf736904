//go:build unit

package commands_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"stayhub/internal/domain/booking"
	"stayhub/internal/domain/calendar"
	"stayhub/internal/domain/promotion"
	"stayhub/internal/domain/property"
	"stayhub/internal/infra/cache"
	"stayhub/internal/infra/gateway"
	"stayhub/internal/infra/memory"
	"stayhub/internal/pkg/clock"
	"stayhub/internal/usecase/commands"
	"stayhub/internal/usecase/shared"
	"stayhub/tests/common/builder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var fixtureNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store       *memory.Store
	uow         *memory.UnitOfWork
	clock       *clock.MockClock
	payments    shared.PaymentGateway
	sandbox     *gateway.SandboxPaymentGateway
	coordinator *commands.ReservationCoordinator
	cmds        commands.BookingCommands
	property    *property.Property
	logger      *slog.Logger
}

type fixtureOption func(*fixture)

// withPayments swaps the sandbox for another gateway.
func withPayments(p shared.PaymentGateway) fixtureOption {
	return func(f *fixture) { f.payments = p }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	f := &fixture{
		store:   memory.NewStore(),
		clock:   clock.NewMockClock(fixtureNow),
		sandbox: gateway.NewSandboxPaymentGateway(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	f.payments = f.sandbox
	for _, opt := range opts {
		opt(f)
	}

	f.uow = memory.NewUnitOfWork(f.store)
	f.property = builder.NewPropertyBuilder().WithNightlyRate(10000).MustBuild()
	f.store.AddProperty(f.property)

	refunds, err := booking.ParseRefundTiers("7:100,2:50")
	require.NoError(t, err)

	f.coordinator = commands.NewReservationCoordinator(f.uow, f.payments, cache.NoopAvailabilityCache{}, f.clock, f.logger,
		commands.CoordinatorConfig{
			HoldTTL:            2 * time.Minute,
			ReclaimBatch:       10,
			PaymentMaxAttempts: 3,
			PaymentBackoff:     time.Millisecond,
		})
	f.cmds = commands.NewBookingCommands(f.uow, f.coordinator, gateway.NewLocalPricingResolver(f.uow, f.clock),
		f.payments, refunds, f.clock, f.logger, commands.BookingConfig{IdempotencyTTL: time.Hour})
	return f
}

func (f *fixture) addPromotion(b *builder.PromotionBuilder) *promotion.Promotion {
	p := b.MustBuild()
	f.store.AddPromotion(p)
	return p
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := calendar.ParseDate(s)
	require.NoError(t, err)
	return d
}

func stay(t *testing.T, start, end string) calendar.DateRange {
	t.Helper()
	r, err := calendar.ParseDateRange(start, end)
	require.NoError(t, err)
	return r
}

func (f *fixture) input(t *testing.T, guestID uuid.UUID, start, end string) commands.CreateBookingInput {
	return commands.CreateBookingInput{
		PropertyID: f.property.ID(),
		GuestID:    guestID,
		StartDate:  date(t, start),
		EndDate:    date(t, end),
	}
}

func (f *fixture) book(t *testing.T, guestID uuid.UUID, start, end string) *booking.Booking {
	t.Helper()
	res, err := f.cmds.CreateBooking(context.Background(), f.input(t, guestID, start, end))
	require.NoError(t, err)
	return res.Booking
}

func (f *fixture) load(t *testing.T, id uuid.UUID) *booking.Booking {
	t.Helper()
	b, err := f.uow.CommandReads().BookingByID(context.Background(), id)
	require.NoError(t, err)
	return b
}

func (f *fixture) payment(t *testing.T, bookingID uuid.UUID) *shared.PaymentRecord {
	t.Helper()
	var rec *shared.PaymentRecord
	err := f.uow.Within(context.Background(), func(ctx context.Context, tx shared.Tx) error {
		var err error
		rec, err = tx.Payments().Get(ctx, bookingID)
		return err
	})
	require.NoError(t, err)
	return rec
}

// states maps each stored day of r to its state; free days are absent.
func (f *fixture) states(t *testing.T, start, end string) map[string]calendar.State {
	t.Helper()
	out := make(map[string]calendar.State)
	for _, d := range f.store.Days(f.property.ID(), stay(t, start, end)) {
		out[d.Date.Format(calendar.DateLayout)] = d.State
	}
	return out
}

func (f *fixture) topics() []string {
	var topics []string
	for _, e := range f.store.PendingEvents() {
		topics = append(topics, e.Topic)
	}
	return topics
}

// hookGateway runs before ahead of every authorization.
type hookGateway struct {
	shared.PaymentGateway
	before func(ctx context.Context)
}

func (g *hookGateway) Authorize(ctx context.Context, req shared.AuthorizeRequest) (*shared.Authorization, error) {
	if g.before != nil {
		g.before(ctx)
	}
	return g.PaymentGateway.Authorize(ctx, req)
}
