//go:build unit

package commands_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"stayhub/internal/domain/booking"
	"stayhub/internal/domain/calendar"
	"stayhub/internal/domain/money"
	"stayhub/internal/infra/cache"
	"stayhub/internal/infra/memory"
	"stayhub/internal/pkg/errs"
	"stayhub/internal/usecase/commands"
	"stayhub/internal/usecase/queries"
	"stayhub/internal/usecase/shared"
	"stayhub/tests/common/builder"
	mockshared "stayhub/tests/mock/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCreateBooking_ConcurrentOverlap(t *testing.T) {
	f := newFixture(t)
	const attempts = 20

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   []*booking.Booking
		conflicts int
		others    []error
	)
	inputs := make([]commands.CreateBookingInput, attempts)
	for i := range inputs {
		// every request overlaps 2024-06-03
		inputs[i] = f.input(t, uuid.New(), fmt.Sprintf("2024-06-0%d", 1+i%3), "2024-06-06")
	}

	start := make(chan struct{})
	for _, in := range inputs {
		wg.Add(1)
		go func(in commands.CreateBookingInput) {
			defer wg.Done()
			<-start
			res, err := f.cmds.CreateBooking(context.Background(), in)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, res.Booking)
			case errs.Is(err, errs.ErrAvailabilityConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}(in)
	}
	close(start)
	wg.Wait()

	require.Empty(t, others)
	require.Len(t, winners, 1)
	assert.Equal(t, attempts-1, conflicts)

	w := winners[0]
	assert.Equal(t, booking.StatusConfirmed, w.Status())
	for _, d := range f.store.Days(f.property.ID(), w.Stay()) {
		assert.Equal(t, calendar.StateBooked, d.State)
		assert.True(t, d.OwnedBy(w.HoldToken()))
	}
	assert.Equal(t, 1, f.sandbox.Authorizations())
}

func TestCreateBooking_TwoGuestsOverlappingStays(t *testing.T) {
	f := newFixture(t)
	a := f.input(t, uuid.New(), "2024-06-01", "2024-06-05")
	b := f.input(t, uuid.New(), "2024-06-03", "2024-06-07")

	var (
		wg   sync.WaitGroup
		errA error
		errB error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errA = f.cmds.CreateBooking(context.Background(), a)
	}()
	go func() {
		defer wg.Done()
		_, errB = f.cmds.CreateBooking(context.Background(), b)
	}()
	wg.Wait()

	if errA == nil {
		assert.True(t, errs.Is(errB, errs.ErrAvailabilityConflict), "got %v", errB)
	} else {
		require.NoError(t, errB)
		assert.True(t, errs.Is(errA, errs.ErrAvailabilityConflict), "got %v", errA)
	}
	assert.Equal(t, 1, f.sandbox.Authorizations())
}

func TestCreateBooking_ConcurrentDisjoint(t *testing.T) {
	f := newFixture(t)
	const nights = 10

	var wg sync.WaitGroup
	errCh := make(chan error, nights)
	july := date(t, "2024-07-01")
	for i := 0; i < nights; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			first := july.AddDate(0, 0, i)
			in := commands.CreateBookingInput{
				PropertyID: f.property.ID(),
				GuestID:    uuid.New(),
				StartDate:  first,
				EndDate:    first.AddDate(0, 0, 1),
			}
			_, err := f.cmds.CreateBooking(context.Background(), in)
			errCh <- err
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		assert.NoError(t, err)
	}
	states := f.states(t, "2024-07-01", "2024-07-11")
	assert.Len(t, states, nights)
	for day, s := range states {
		assert.Equal(t, calendar.StateBooked, s, day)
	}
}

func TestCreateBooking_Pricing(t *testing.T) {
	t.Run("SUMMER10 takes 10 percent off four nights at $100", func(t *testing.T) {
		f := newFixture(t)
		f.addPromotion(builder.NewPromotionBuilder())
		code := "SUMMER10"

		in := f.input(t, uuid.New(), "2024-06-01", "2024-06-05")
		in.PromoCode = &code
		res, err := f.cmds.CreateBooking(context.Background(), in)
		require.NoError(t, err)

		assert.Equal(t, money.MustFromCents(36000), res.Booking.Total())
		assert.Equal(t, int64(36000), f.payment(t, res.Booking.ID()).AmountCents)
	})

	t.Run("no promotion charges nightly rate times nights", func(t *testing.T) {
		f := newFixture(t)
		b := f.book(t, uuid.New(), "2024-06-01", "2024-06-04")
		assert.Equal(t, int64(30000), b.Total().Cents())
	})

	t.Run("a guest cannot redeem the same promotion twice", func(t *testing.T) {
		f := newFixture(t)
		promo := f.addPromotion(builder.NewPromotionBuilder())
		code := "SUMMER10"
		guest := uuid.New()

		first := f.input(t, guest, "2024-06-01", "2024-06-03")
		first.PromoCode = &code
		_, err := f.cmds.CreateBooking(context.Background(), first)
		require.NoError(t, err)

		second := f.input(t, guest, "2024-06-10", "2024-06-12")
		second.PromoCode = &code
		_, err = f.cmds.CreateBooking(context.Background(), second)
		assert.True(t, errs.Is(err, errs.ErrPromotionInvalid), "got %v", err)

		assert.Empty(t, f.states(t, "2024-06-10", "2024-06-12"), "rejected promotion must not hold dates")
		assert.Equal(t, 1, f.store.UsedCount(promo.ID()))
	})

	t.Run("unknown and expired codes are rejected before any hold", func(t *testing.T) {
		f := newFixture(t)
		f.addPromotion(builder.NewPromotionBuilder().WithCode("SPRING").With(func(p *builder.PromotionBuilder) {
			p.EndDate = time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)
		}))

		for code, want := range map[string]error{
			"NOPE":   errs.ErrPromotionInvalid,
			"SPRING": errs.ErrPromotionExpired,
		} {
			in := f.input(t, uuid.New(), "2024-06-01", "2024-06-03")
			in.PromoCode = &code
			_, err := f.cmds.CreateBooking(context.Background(), in)
			assert.True(t, errs.Is(err, want), "%s: got %v", code, err)
		}
		assert.Empty(t, f.states(t, "2024-06-01", "2024-06-03"))
	})
}

func TestCreateBooking_SummerPromotionTwoNights(t *testing.T) {
	f := newFixture(t)
	listing := builder.NewPropertyBuilder().WithNightlyRate(20000).MustBuild()
	f.store.AddProperty(listing)
	f.addPromotion(builder.NewPromotionBuilder())
	availability := queries.NewAvailabilityQueries(memory.NewAvailabilityReadStore(f.store), cache.NoopAvailabilityCache{}, f.logger)

	code := "SUMMER10"
	guest := uuid.New()
	request := func(start, end string) commands.CreateBookingInput {
		in := f.input(t, guest, start, end)
		in.PropertyID = listing.ID()
		in.PromoCode = &code
		return in
	}

	res, err := f.cmds.CreateBooking(context.Background(), request("2024-07-01", "2024-07-03"))
	require.NoError(t, err)
	assert.Equal(t, money.MustFromCents(36000), res.Booking.Total())

	_, err = f.cmds.CreateBooking(context.Background(), request("2024-07-10", "2024-07-12"))
	assert.True(t, errs.Is(err, errs.ErrPromotionInvalid), "got %v", err)

	free, err := availability.GetAvailability(context.Background(), listing.ID(), date(t, "2024-07-10"), date(t, "2024-07-12"))
	require.NoError(t, err)
	assert.True(t, free, "a rejected promotion must leave the range available")

	free, err = availability.GetAvailability(context.Background(), listing.ID(), date(t, "2024-07-01"), date(t, "2024-07-03"))
	require.NoError(t, err)
	assert.False(t, free)
}

func TestCreateBooking_PromotionUsageCeiling(t *testing.T) {
	f := newFixture(t)
	promo := f.addPromotion(builder.NewPromotionBuilder().WithMaxUses(3))
	code := "SUMMER10"
	const guests = 12

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		exhausted int
	)
	august := date(t, "2024-08-01")
	for i := 0; i < guests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			first := august.AddDate(0, 0, 2*i)
			in := commands.CreateBookingInput{
				PropertyID: f.property.ID(),
				GuestID:    uuid.New(),
				StartDate:  first,
				EndDate:    first.AddDate(0, 0, 1),
				PromoCode:  &code,
			}
			_, err := f.cmds.CreateBooking(context.Background(), in)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errs.Is(err, errs.ErrPromotionExhausted):
				exhausted++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, guests-3, exhausted)
	assert.Equal(t, 3, f.store.UsedCount(promo.ID()))
}

func TestCreateBooking_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("inverted and empty ranges", func(t *testing.T) {
		for _, r := range [][2]string{{"2024-06-05", "2024-06-01"}, {"2024-06-05", "2024-06-05"}} {
			_, err := f.cmds.CreateBooking(ctx, f.input(t, uuid.New(), r[0], r[1]))
			assert.True(t, errs.Is(err, errs.ErrInvalidRange), "%v: got %v", r, err)
		}
	})

	t.Run("ranges starting in the past", func(t *testing.T) {
		_, err := f.cmds.CreateBooking(ctx, f.input(t, uuid.New(), "2024-04-20", "2024-05-03"))
		assert.True(t, errs.Is(err, errs.ErrInvalidRange), "got %v", err)
	})

	t.Run("unknown property", func(t *testing.T) {
		in := f.input(t, uuid.New(), "2024-06-01", "2024-06-02")
		in.PropertyID = uuid.New()
		_, err := f.cmds.CreateBooking(ctx, in)
		assert.True(t, errs.Is(err, errs.ErrPropertyNotFound), "got %v", err)
	})

	t.Run("unlisted property", func(t *testing.T) {
		unlisted := builder.NewPropertyBuilder().Inactive().MustBuild()
		f.store.AddProperty(unlisted)
		in := f.input(t, uuid.New(), "2024-06-01", "2024-06-02")
		in.PropertyID = unlisted.ID()
		_, err := f.cmds.CreateBooking(ctx, in)
		assert.True(t, errs.Is(err, errs.ErrPropertyNotFound), "got %v", err)
	})

	t.Run("hosts cannot book their own listing", func(t *testing.T) {
		_, err := f.cmds.CreateBooking(ctx, f.input(t, f.property.HostID(), "2024-06-01", "2024-06-02"))
		assert.True(t, errs.Is(err, errs.ErrUnauthorized), "got %v", err)
	})

	assert.Empty(t, f.states(t, "2024-06-01", "2024-06-06"))
}

func TestCreateBooking_PaymentFailures(t *testing.T) {
	t.Run("a decline releases the hold and returns the promotion use", func(t *testing.T) {
		f := newFixture(t)
		promo := f.addPromotion(builder.NewPromotionBuilder())
		code := "SUMMER10"
		f.sandbox.DeclineAmount(18000)

		in := f.input(t, uuid.New(), "2024-06-01", "2024-06-03")
		in.PromoCode = &code
		_, err := f.cmds.CreateBooking(context.Background(), in)

		require.True(t, errs.Is(err, errs.ErrPaymentFailed), "got %v", err)
		assert.Empty(t, f.states(t, "2024-06-01", "2024-06-03"))
		assert.Equal(t, 0, f.store.UsedCount(promo.ID()))
		assert.NotContains(t, f.topics(), commands.TopicBookingConfirmed)
	})

	t.Run("transient gateway failures are retried", func(t *testing.T) {
		f := newFixture(t)
		f.sandbox.FailNext(2)

		b := f.book(t, uuid.New(), "2024-06-01", "2024-06-03")
		assert.Equal(t, booking.StatusConfirmed, b.Status())
		assert.Equal(t, 1, f.sandbox.Authorizations())
	})

	t.Run("an unavailable gateway surfaces after the last attempt", func(t *testing.T) {
		f := newFixture(t)
		f.sandbox.FailNext(3)

		_, err := f.cmds.CreateBooking(context.Background(), f.input(t, uuid.New(), "2024-06-01", "2024-06-03"))
		require.True(t, errs.Is(err, errs.ErrGatewayUnavailable), "got %v", err)
		assert.Empty(t, f.states(t, "2024-06-01", "2024-06-03"))

		// the dates are bookable again right away
		f.book(t, uuid.New(), "2024-06-01", "2024-06-03")
	})
}

func TestReserve_CommitAfterReclaim(t *testing.T) {
	ctrl := gomock.NewController(t)
	payments := mockshared.NewMockPaymentGateway(ctrl)

	f := newFixture(t, withPayments(payments))

	payments.EXPECT().Authorize(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req shared.AuthorizeRequest) (*shared.Authorization, error) {
			// the hold outlives its TTL while the gateway is slow
			f.clock.Add(5 * time.Minute)
			n, err := f.coordinator.ReclaimExpired(ctx)
			require.NoError(t, err)
			require.Equal(t, 1, n)
			return &shared.Authorization{PaymentID: "pay_1"}, nil
		})
	payments.EXPECT().Refund(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req shared.RefundRequest) error {
			assert.Equal(t, "pay_1", req.PaymentID)
			assert.Equal(t, int64(20000), req.Amount.Cents())
			return nil
		})

	_, err := f.cmds.CreateBooking(context.Background(), f.input(t, uuid.New(), "2024-06-01", "2024-06-03"))

	require.True(t, errs.Is(err, errs.ErrAvailabilityConflict), "got %v", err)
	assert.Empty(t, f.states(t, "2024-06-01", "2024-06-03"))
	assert.Contains(t, f.topics(), commands.TopicHoldReclaimed)
}

func TestReclaimExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := uuid.New()

	// a hold whose process died before payment
	pending, err := booking.NewPending(booking.PendingParams{
		PropertyID: f.property.ID(),
		GuestID:    guest,
		Stay:       stay(t, "2024-06-01", "2024-06-04"),
		Total:      money.MustFromCents(30000),
		HoldToken:  calendar.NewToken(),
	}, f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := tx.Calendar().TryHold(ctx, f.property.ID(), pending.Stay(), pending.HoldToken(), f.clock.Now()); err != nil {
			return err
		}
		return tx.Bookings().Create(ctx, pending)
	}))

	confirmed := f.book(t, uuid.New(), "2024-06-10", "2024-06-12")

	n, err := f.coordinator.ReclaimExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "holds younger than the TTL stay")

	_, err = f.cmds.CreateBooking(ctx, f.input(t, uuid.New(), "2024-06-02", "2024-06-03"))
	assert.True(t, errs.Is(err, errs.ErrAvailabilityConflict))

	f.clock.Add(2*time.Minute + time.Second)
	reclaimer := commands.NewHoldReclaimer(f.coordinator, time.Hour, f.logger)
	reclaimer.RunOnce(ctx)

	assert.Empty(t, f.states(t, "2024-06-01", "2024-06-04"))
	got := f.load(t, pending.ID())
	assert.Equal(t, booking.StatusCancelled, got.Status())
	require.NotNil(t, got.CancelReason())
	assert.Equal(t, booking.ReasonHoldExpired, *got.CancelReason())

	assert.Equal(t, booking.StatusConfirmed, f.load(t, confirmed.ID()).Status())
	assert.Len(t, f.states(t, "2024-06-10", "2024-06-12"), 2)

	n, err = f.coordinator.ReclaimExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.book(t, uuid.New(), "2024-06-02", "2024-06-03")
}

func TestReleaseStay_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, uuid.New(), "2024-06-01", "2024-06-03")

	for i := 0; i < 2; i++ {
		require.NoError(t, f.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
			return f.coordinator.ReleaseStay(ctx, tx, b, b.Stay())
		}))
		assert.Empty(t, f.states(t, "2024-06-01", "2024-06-03"))
	}

	require.NoError(t, f.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		return f.coordinator.ReleaseStay(ctx, tx, b, calendar.DateRange{})
	}))
}
