//go:build unit

package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"stayhub/internal/domain/calendar"
	"stayhub/internal/domain/promotion"
	"stayhub/internal/infra/memory"
	"stayhub/internal/usecase/shared"
	"stayhub/tests/common/builder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func stay(t *testing.T, start, end string) calendar.DateRange {
	t.Helper()
	r, err := calendar.ParseDateRange(start, end)
	require.NoError(t, err)
	return r
}

func within(t *testing.T, uow *memory.UnitOfWork, fn func(ctx context.Context, tx shared.Tx) error) error {
	t.Helper()
	return uow.Within(context.Background(), fn)
}

func TestCalendar_TryHold(t *testing.T) {
	store := memory.NewStore()
	uow := memory.NewUnitOfWork(store)
	propertyID := uuid.New()
	first, second := calendar.NewToken(), calendar.NewToken()

	err := within(t, uow, func(ctx context.Context, tx shared.Tx) error {
		return tx.Calendar().TryHold(ctx, propertyID, stay(t, "2024-06-01", "2024-06-04"), first, now)
	})
	require.NoError(t, err)

	t.Run("overlap fails without touching free days", func(t *testing.T) {
		err := within(t, uow, func(ctx context.Context, tx shared.Tx) error {
			return tx.Calendar().TryHold(ctx, propertyID, stay(t, "2024-06-03", "2024-06-06"), second, now)
		})
		require.ErrorIs(t, err, calendar.ErrHoldConflict)
		assert.Empty(t, store.Days(propertyID, stay(t, "2024-06-04", "2024-06-06")))
	})

	t.Run("owner may re-hold its own days", func(t *testing.T) {
		err := within(t, uow, func(ctx context.Context, tx shared.Tx) error {
			return tx.Calendar().TryHold(ctx, propertyID, stay(t, "2024-06-01", "2024-06-04"), first, now)
		})
		assert.NoError(t, err)
	})

	t.Run("ranges touching at checkout do not overlap", func(t *testing.T) {
		err := within(t, uow, func(ctx context.Context, tx shared.Tx) error {
			return tx.Calendar().TryHold(ctx, propertyID, stay(t, "2024-06-04", "2024-06-05"), second, now)
		})
		require.NoError(t, err)
		assert.Len(t, store.Days(propertyID, stay(t, "2024-06-01", "2024-06-05")), 4)
	})

	t.Run("same dates on another property are independent", func(t *testing.T) {
		err := within(t, uow, func(ctx context.Context, tx shared.Tx) error {
			return tx.Calendar().TryHold(ctx, uuid.New(), stay(t, "2024-06-01", "2024-06-04"), calendar.NewToken(), now)
		})
		assert.NoError(t, err)
	})
}

func TestCalendar_CommitAndRelease(t *testing.T) {
	store := memory.NewStore()
	uow := memory.NewUnitOfWork(store)
	propertyID := uuid.New()
	token := calendar.NewToken()
	r := stay(t, "2024-06-01", "2024-06-03")

	require.NoError(t, within(t, uow, func(ctx context.Context, tx shared.Tx) error {
		return tx.Calendar().TryHold(ctx, propertyID, r, token, now)
	}))

	err := within(t, uow, func(ctx context.Context, tx shared.Tx) error {
		return tx.Calendar().Commit(ctx, propertyID, r, calendar.NewToken(), now)
	})
	require.ErrorIs(t, err, calendar.ErrOwnershipMismatch)

	require.NoError(t, within(t, uow, func(ctx context.Context, tx shared.Tx) error {
		return tx.Calendar().Commit(ctx, propertyID, r, token, now)
	}))
	for _, d := range store.Days(propertyID, r) {
		assert.Equal(t, calendar.StateBooked, d.State)
	}

	var released int
	require.NoError(t, within(t, uow, func(ctx context.Context, tx shared.Tx) (err error) {
		released, err = tx.Calendar().Release(ctx, propertyID, r, calendar.NewToken())
		return err
	}))
	assert.Zero(t, released, "foreign token releases nothing")

	require.NoError(t, within(t, uow, func(ctx context.Context, tx shared.Tx) (err error) {
		released, err = tx.Calendar().Release(ctx, propertyID, r, token)
		return err
	}))
	assert.Equal(t, 2, released)
	assert.Empty(t, store.Days(propertyID, r))
}

func TestCalendar_ExpiredHolds(t *testing.T) {
	store := memory.NewStore()
	uow := memory.NewUnitOfWork(store)
	propertyID := uuid.New()
	older, newer, fresh := calendar.NewToken(), calendar.NewToken(), calendar.NewToken()

	require.NoError(t, within(t, uow, func(ctx context.Context, tx shared.Tx) error {
		c := tx.Calendar()
		if err := c.TryHold(ctx, propertyID, stay(t, "2024-06-01", "2024-06-04"), older, now.Add(-10*time.Minute)); err != nil {
			return err
		}
		if err := c.TryHold(ctx, propertyID, stay(t, "2024-06-10", "2024-06-12"), newer, now.Add(-5*time.Minute)); err != nil {
			return err
		}
		return c.TryHold(ctx, propertyID, stay(t, "2024-06-20", "2024-06-21"), fresh, now)
	}))

	var holds []calendar.ExpiredHold
	require.NoError(t, within(t, uow, func(ctx context.Context, tx shared.Tx) (err error) {
		holds, err = tx.Calendar().ExpiredHolds(ctx, now.Add(-2*time.Minute), 10)
		return err
	}))
	require.Len(t, holds, 2)
	assert.Equal(t, older, holds[0].Token)
	assert.Equal(t, stay(t, "2024-06-01", "2024-06-04"), holds[0].Range)
	assert.Equal(t, newer, holds[1].Token)

	require.NoError(t, within(t, uow, func(ctx context.Context, tx shared.Tx) (err error) {
		holds, err = tx.Calendar().ExpiredHolds(ctx, now.Add(-2*time.Minute), 1)
		return err
	}))
	require.Len(t, holds, 1)
	assert.Equal(t, older, holds[0].Token)
}

func TestUnitOfWork_RollsBackOnError(t *testing.T) {
	store := memory.NewStore()
	uow := memory.NewUnitOfWork(store)
	propertyID := uuid.New()
	r := stay(t, "2024-06-01", "2024-06-03")
	boom := errors.New("boom")

	err := within(t, uow, func(ctx context.Context, tx shared.Tx) error {
		if err := tx.Calendar().TryHold(ctx, propertyID, r, calendar.NewToken(), now); err != nil {
			return err
		}
		if err := tx.Outbox().Enqueue(ctx, shared.Event{Topic: "booking.confirmed", OccurredAt: now}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, store.Days(propertyID, r))
	assert.Empty(t, store.PendingEvents())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err = uow.Within(ctx, func(context.Context, shared.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestPromotions_RedeemAndRevert(t *testing.T) {
	store := memory.NewStore()
	uow := memory.NewUnitOfWork(store)
	promo := builder.NewPromotionBuilder().WithMaxUses(1).MustBuild()
	store.AddPromotion(promo)
	guest, other := uuid.New(), uuid.New()
	bookingID := uuid.New()

	redeem := func(userID, bookingID uuid.UUID) error {
		return within(t, uow, func(ctx context.Context, tx shared.Tx) error {
			return tx.Promotions().Redeem(ctx, promo.ID(), userID, bookingID, now)
		})
	}

	require.NoError(t, redeem(guest, bookingID))
	assert.Equal(t, 1, store.UsedCount(promo.ID()))
	assert.ErrorIs(t, redeem(other, uuid.New()), promotion.ErrExhausted)

	require.NoError(t, within(t, uow, func(ctx context.Context, tx shared.Tx) error {
		return tx.Promotions().Revert(ctx, promo.ID(), guest, uuid.New())
	}))
	assert.Equal(t, 1, store.UsedCount(promo.ID()), "revert by a different booking is a no-op")

	require.NoError(t, within(t, uow, func(ctx context.Context, tx shared.Tx) error {
		return tx.Promotions().Revert(ctx, promo.ID(), guest, bookingID)
	}))
	assert.Zero(t, store.UsedCount(promo.ID()))

	require.NoError(t, redeem(other, uuid.New()))
	assert.Equal(t, 1, store.UsedCount(promo.ID()))
}

func TestPromotions_OncePerGuest(t *testing.T) {
	store := memory.NewStore()
	uow := memory.NewUnitOfWork(store)
	promo := builder.NewPromotionBuilder().MustBuild()
	store.AddPromotion(promo)
	guest := uuid.New()

	require.NoError(t, within(t, uow, func(ctx context.Context, tx shared.Tx) error {
		return tx.Promotions().Redeem(ctx, promo.ID(), guest, uuid.New(), now)
	}))
	err := within(t, uow, func(ctx context.Context, tx shared.Tx) error {
		return tx.Promotions().Redeem(ctx, promo.ID(), guest, uuid.New(), now)
	})
	assert.ErrorIs(t, err, promotion.ErrAlreadyRedeemed)
	assert.Equal(t, 1, store.UsedCount(promo.ID()))
}

func TestOutbox_ClaimAndRetry(t *testing.T) {
	store := memory.NewStore()
	uow := memory.NewUnitOfWork(store)

	require.NoError(t, within(t, uow, func(ctx context.Context, tx shared.Tx) error {
		for _, topic := range []string{"booking.confirmed", "booking.cancelled", "payout.requested"} {
			if err := tx.Outbox().Enqueue(ctx, shared.Event{Topic: topic, OccurredAt: now}); err != nil {
				return err
			}
		}
		return nil
	}))

	var batch []shared.OutboxEvent
	require.NoError(t, within(t, uow, func(ctx context.Context, tx shared.Tx) (err error) {
		batch, err = tx.Outbox().ClaimBatch(ctx, 2, now, now.Add(time.Minute))
		return err
	}))
	require.Len(t, batch, 2)
	assert.Equal(t, "booking.confirmed", batch[0].Topic)

	require.NoError(t, within(t, uow, func(ctx context.Context, tx shared.Tx) error {
		if err := tx.Outbox().MarkPublished(ctx, []uuid.UUID{batch[0].ID}, now); err != nil {
			return err
		}
		return tx.Outbox().MarkFailed(ctx, batch[1].ID, "broker down", now.Add(time.Minute))
	}))

	require.NoError(t, within(t, uow, func(ctx context.Context, tx shared.Tx) (err error) {
		batch, err = tx.Outbox().ClaimBatch(ctx, 10, now, now.Add(time.Minute))
		return err
	}))
	require.Len(t, batch, 1)
	assert.Equal(t, "payout.requested", batch[0].Topic)

	// leased events stay hidden until the lease runs out
	require.NoError(t, within(t, uow, func(ctx context.Context, tx shared.Tx) (err error) {
		batch, err = tx.Outbox().ClaimBatch(ctx, 10, now.Add(30*time.Second), now.Add(time.Minute))
		return err
	}))
	assert.Empty(t, batch)

	require.NoError(t, within(t, uow, func(ctx context.Context, tx shared.Tx) (err error) {
		batch, err = tx.Outbox().ClaimBatch(ctx, 10, now.Add(time.Minute), now.Add(2*time.Minute))
		return err
	}))
	require.Len(t, batch, 2)
	assert.Equal(t, "booking.cancelled", batch[0].Topic)
	assert.Equal(t, 1, batch[0].Attempts)
	assert.Len(t, store.PendingEvents(), 2)
}

func TestIdempotency_Lifecycle(t *testing.T) {
	store := memory.NewStore()
	uow := memory.NewUnitOfWork(store)
	key, guest, bookingID := uuid.New(), uuid.New(), uuid.New()

	insert := func(at time.Time) (ok bool) {
		require.NoError(t, within(t, uow, func(ctx context.Context, tx shared.Tx) (err error) {
			ok, err = tx.Idempotency().TryInsert(ctx, key, guest, "POST /bookings", "h", at, at.Add(time.Hour))
			return err
		}))
		return ok
	}

	assert.True(t, insert(now))
	assert.False(t, insert(now.Add(time.Minute)))

	require.NoError(t, within(t, uow, func(ctx context.Context, tx shared.Tx) error {
		return tx.Idempotency().Complete(ctx, key, guest, bookingID, now)
	}))
	rec, err := uow.CommandReads().IdempotencyByKey(context.Background(), key, guest)
	require.NoError(t, err)
	assert.Equal(t, shared.IdempotencyStatusCompleted, rec.Status)
	assert.Equal(t, bookingID, *rec.ResultBookingID)

	require.NoError(t, within(t, uow, func(ctx context.Context, tx shared.Tx) error {
		return tx.Idempotency().Delete(ctx, key, guest)
	}))
	_, err = uow.CommandReads().IdempotencyByKey(context.Background(), key, guest)
	require.NoError(t, err, "completed records survive delete")

	assert.True(t, insert(now.Add(2*time.Hour)), "expired keys can be reclaimed")
}
