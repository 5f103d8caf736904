//go:build unit

package booking_test

import (
	"testing"
	"time"

	"stayhub/internal/domain/booking"
	"stayhub/internal/domain/money"
	"stayhub/tests/common/builder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRefundTiers(t *testing.T) {
	p, err := booking.ParseRefundTiers("2:50, 7:100")
	require.NoError(t, err)
	assert.Equal(t, []booking.RefundTier{{MinDaysBefore: 7, Percent: 100}, {MinDaysBefore: 2, Percent: 50}}, p.Tiers())

	for _, bad := range []string{"7", "x:100", "7:y", "7:101", "-1:50"} {
		_, err := booking.ParseRefundTiers(bad)
		assert.ErrorIsf(t, err, booking.ErrInvalidRefundTier, "input %q", bad)
	}
}

func TestTieredRefundPolicy(t *testing.T) {
	policy, err := booking.ParseRefundTiers("7:100,2:50")
	require.NoError(t, err)

	// stay 2024-06-01..2024-06-05, 4 nights, 800.00 total
	cases := []struct {
		name   string
		status booking.Status
		paid   bool
		at     time.Time
		want   int64
	}{
		{name: "nothing captured", status: booking.StatusPending, at: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), want: 0},
		{name: "two weeks ahead", status: booking.StatusConfirmed, paid: true, at: time.Date(2024, 5, 18, 0, 0, 0, 0, time.UTC), want: 80000},
		{name: "exactly seven days ahead", status: booking.StatusConfirmed, paid: true, at: time.Date(2024, 5, 25, 23, 0, 0, 0, time.UTC), want: 80000},
		{name: "three days ahead", status: booking.StatusConfirmed, paid: true, at: time.Date(2024, 5, 29, 0, 0, 0, 0, time.UTC), want: 40000},
		{name: "day before", status: booking.StatusConfirmed, paid: true, at: time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), want: 0},
		{name: "mid stay", status: booking.StatusCheckedIn, paid: true, at: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), want: 0},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			bb := builder.NewBookingBuilder().WithStatus(c.status).WithTotalCents(80000)
			if c.paid {
				bb.WithPaymentID("pay_1")
			}
			b, err := bb.BuildReconstructed()
			require.NoError(t, err)

			assert.Equal(t, c.want, policy.Refund(b, c.at).Cents())
		})
	}

	t.Run("custom policies plug in", func(t *testing.T) {
		b, err := builder.NewBookingBuilder().WithStatus(booking.StatusCheckedIn).WithTotalCents(80000).WithPaymentID("pay_1").BuildReconstructed()
		require.NoError(t, err)

		prorated := booking.RefundPolicyFunc(func(b *booking.Booking, at time.Time) money.Money {
			remaining, err := b.Stay().From(at)
			if err != nil {
				return money.Zero()
			}
			return b.Total().Fraction(remaining.Nights(), b.Stay().Nights())
		})

		assert.Equal(t, int64(40000), prorated.Refund(b, time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)).Cents())
	})
}
