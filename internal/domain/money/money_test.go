//go:build unit

package money_test

import (
	"testing"

	"stayhub/internal/domain/money"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney(t *testing.T) {
	t.Run("rejects negative amounts", func(t *testing.T) {
		_, err := money.FromCents(-1)
		require.ErrorIs(t, err, money.ErrNegativeAmount)
	})

	t.Run("arithmetic", func(t *testing.T) {
		nightly := money.MustFromCents(20000)

		assert.Equal(t, int64(40000), nightly.Times(2).Cents())
		assert.Equal(t, int64(4000), nightly.Times(2).Percent(10).Cents())
		assert.Equal(t, int64(0), nightly.Sub(money.MustFromCents(30000)).Cents())
		assert.Equal(t, int64(10000), nightly.Fraction(1, 2).Cents())
		assert.Equal(t, nightly, nightly.Fraction(3, 2))
		assert.Equal(t, "360.00", money.MustFromCents(36000).String())
	})
}
