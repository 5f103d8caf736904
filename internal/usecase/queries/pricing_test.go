//go:build unit

package queries_test

import (
	"context"
	"testing"

	"stayhub/internal/domain/money"
	"stayhub/internal/domain/promotion"
	"stayhub/internal/pkg/errs"
	"stayhub/internal/usecase/queries"
	"stayhub/internal/usecase/shared"
	mockshared "stayhub/tests/mock/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestPricingQueries_Quote(t *testing.T) {
	ctx := context.Background()
	in := queries.QuoteInput{
		PropertyID: uuid.New(),
		GuestID:    uuid.New(),
		StartDate:  mustDate(t, "2024-06-01"),
		EndDate:    mustDate(t, "2024-06-05"),
	}

	t.Run("reports base, discount and total", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		resolver := mockshared.NewMockPricingResolver(ctrl)
		code, err := promotion.NewCode("summer10")
		require.NoError(t, err)

		resolver.EXPECT().Quote(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, req shared.QuoteRequest) (*shared.Quote, error) {
				assert.Equal(t, 4, req.Stay.Nights())
				return &shared.Quote{
					PropertyID:    in.PropertyID,
					Stay:          req.Stay,
					Base:          money.MustFromCents(40000),
					Amount:        money.MustFromCents(36000),
					PromotionCode: &code,
				}, nil
			})

		view, err := queries.NewPricingQueries(resolver).Quote(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, int64(40000), view.BaseCents)
		assert.Equal(t, int64(4000), view.DiscountCents)
		assert.Equal(t, int64(36000), view.TotalCents)
		assert.Equal(t, 4, view.Nights)
		require.NotNil(t, view.PromotionCode)
		assert.Equal(t, code.String(), *view.PromotionCode)
	})

	t.Run("maps promotion errors", func(t *testing.T) {
		cases := map[error]error{
			promotion.ErrExpired:         errs.ErrPromotionExpired,
			promotion.ErrExhausted:       errs.ErrPromotionExhausted,
			promotion.ErrAlreadyRedeemed: errs.ErrPromotionInvalid,
			promotion.ErrInactive:        errs.ErrPromotionInvalid,
			errs.ErrPropertyNotFound:     errs.ErrPropertyNotFound,
		}
		for cause, want := range cases {
			ctrl := gomock.NewController(t)
			resolver := mockshared.NewMockPricingResolver(ctrl)
			resolver.EXPECT().Quote(ctx, gomock.Any()).Return(nil, errs.Wrap(cause, "quote"))

			_, err := queries.NewPricingQueries(resolver).Quote(ctx, in)
			assert.True(t, errs.Is(err, want), "%v: got %v", cause, err)
		}
	})

	t.Run("rejects inverted ranges without pricing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		bad := in
		bad.StartDate, bad.EndDate = in.EndDate, in.StartDate

		_, err := queries.NewPricingQueries(mockshared.NewMockPricingResolver(ctrl)).Quote(ctx, bad)
		assert.True(t, errs.Is(err, errs.ErrInvalidRange), "got %v", err)
	})
}
