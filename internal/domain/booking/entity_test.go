//go:build unit

package booking_test

import (
	"testing"
	"time"

	"stayhub/internal/domain/booking"
	"stayhub/internal/domain/calendar"
	"stayhub/tests/common/builder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCase struct {
	name   string
	mutate func(*builder.BookingBuilder)
	errIs  error
}

func TestNewPending(t *testing.T) {
	t.Run("basic success case", func(t *testing.T) {
		actual, err := builder.NewBookingBuilder().BuildDomain()
		require.NoError(t, err)
		require.NotNil(t, actual)

		assert.NotEqual(t, uuid.Nil, actual.ID())
		assert.Equal(t, booking.StatusPending, actual.Status())
		assert.Equal(t, 1, actual.Version())
		assert.Equal(t, actual.CreatedAt(), actual.UpdatedAt())
		assert.Nil(t, actual.PaymentID())
	})

	runCases(t, []testCase{
		{
			name:   "missing guest",
			mutate: func(b *builder.BookingBuilder) { b.GuestID = uuid.Nil },
			errIs:  booking.ErrMissingGuest,
		},
		{
			name:   "missing property",
			mutate: func(b *builder.BookingBuilder) { b.PropertyID = uuid.Nil },
			errIs:  booking.ErrMissingProperty,
		},
		{
			name:   "missing token",
			mutate: func(b *builder.BookingBuilder) { b.HoldToken = calendar.Token{} },
			errIs:  booking.ErrMissingToken,
		},
	})
}

func TestStatusTransitions(t *testing.T) {
	all := []booking.Status{
		booking.StatusPending, booking.StatusConfirmed, booking.StatusCheckedIn,
		booking.StatusCheckedOut, booking.StatusCompleted, booking.StatusCancelled,
	}
	allowed := map[booking.Status]map[booking.Status]bool{
		booking.StatusPending:    {booking.StatusConfirmed: true, booking.StatusCancelled: true},
		booking.StatusConfirmed:  {booking.StatusCheckedIn: true, booking.StatusCancelled: true},
		booking.StatusCheckedIn:  {booking.StatusCheckedOut: true, booking.StatusCancelled: true},
		booking.StatusCheckedOut: {booking.StatusCompleted: true},
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equalf(t, allowed[from][to], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}

	assert.True(t, booking.StatusCompleted.IsTerminal())
	assert.True(t, booking.StatusCancelled.IsTerminal())
	assert.False(t, booking.StatusCheckedOut.IsTerminal())

	_, err := booking.ParseStatus("archived")
	require.ErrorIs(t, err, booking.ErrInvalidStatus)
}

func TestLifecycle(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("happy path", func(t *testing.T) {
		b, err := builder.NewBookingBuilder().BuildDomain()
		require.NoError(t, err)

		require.NoError(t, b.Confirm("pay_123", now))
		require.NoError(t, b.CheckIn(now))
		require.NoError(t, b.CheckOut(now))
		require.NoError(t, b.Complete(now))

		assert.Equal(t, booking.StatusCompleted, b.Status())
		require.NotNil(t, b.PaymentID())
		assert.Equal(t, "pay_123", *b.PaymentID())
	})

	t.Run("illegal transition has no side effect", func(t *testing.T) {
		b, err := builder.NewBookingBuilder().BuildDomain()
		require.NoError(t, err)
		before := b.UpdatedAt()

		err = b.CheckIn(now.Add(time.Hour))
		require.ErrorIs(t, err, booking.ErrInvalidStateTransition)
		assert.Equal(t, booking.StatusPending, b.Status())
		assert.Equal(t, before, b.UpdatedAt())
	})

	t.Run("confirm requires payment id", func(t *testing.T) {
		b, err := builder.NewBookingBuilder().BuildDomain()
		require.NoError(t, err)

		require.ErrorIs(t, b.Confirm(" ", now), booking.ErrEmptyPaymentID)
		assert.Equal(t, booking.StatusPending, b.Status())
	})

	t.Run("cannot cancel after checkout", func(t *testing.T) {
		b, err := builder.NewBookingBuilder().WithStatus(booking.StatusCheckedOut).BuildReconstructed()
		require.NoError(t, err)

		_, err = b.Cancel(b.GuestID(), booking.ReasonGuestCancelled, now)
		require.ErrorIs(t, err, booking.ErrInvalidStateTransition)
		assert.Nil(t, b.CancelledBy())
	})
}

func TestCancelReleaseRange(t *testing.T) {
	cases := []struct {
		name    string
		status  booking.Status
		at      time.Time
		release string
	}{
		{
			name:    "pending releases the whole stay",
			status:  booking.StatusPending,
			at:      time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC),
			release: "2024-06-01/2024-06-05",
		},
		{
			name:    "confirmed before arrival releases the whole stay",
			status:  booking.StatusConfirmed,
			at:      time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC),
			release: "2024-06-01/2024-06-05",
		},
		{
			name:    "confirmed past the arrival date still releases the whole stay",
			status:  booking.StatusConfirmed,
			at:      time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
			release: "2024-06-01/2024-06-05",
		},
		{
			name:    "checked in releases the remaining nights",
			status:  booking.StatusCheckedIn,
			at:      time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
			release: "2024-06-03/2024-06-05",
		},
		{
			name:   "checked in on the last morning leaves nothing to release",
			status: booking.StatusCheckedIn,
			at:     time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b, err := builder.NewBookingBuilder().WithStatus(c.status).BuildReconstructed()
			require.NoError(t, err)
			actor := uuid.New()

			got, err := b.Cancel(actor, booking.ReasonHostCancelled, c.at)
			require.NoError(t, err)

			assert.Equal(t, c.status, got.PreviousStatus)
			assert.Equal(t, booking.StatusCancelled, b.Status())
			require.NotNil(t, b.CancelledBy())
			assert.Equal(t, actor, *b.CancelledBy())
			if c.release == "" {
				assert.True(t, got.Release.IsZero())
				return
			}
			assert.Equal(t, c.release, got.Release.String())
		})
	}
}

func runCases(t *testing.T, cases []testCase) {
	t.Helper()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			actual, err := builder.NewBookingBuilder().With(c.mutate).BuildDomain()

			if c.errIs == nil {
				require.NotNil(t, actual)
				require.NoError(t, err)
			} else {
				require.Nil(t, actual)
				require.Error(t, err)
				require.ErrorIs(t, err, c.errIs)
			}
		})
	}
}
