package components

import (
	"log/slog"

	"stayhub/internal/domain/booking"
	"stayhub/internal/pkg/clock"
	"stayhub/internal/pkg/config"
	"stayhub/internal/usecase"
	"stayhub/internal/usecase/commands"
	"stayhub/internal/usecase/queries"
	"stayhub/internal/usecase/shared"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseQueriesModule,
	usecaseValidatorsModule,
	usecaseCommandsModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
	NewRefundPolicy,
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		NewReservationCoordinator,
		NewBookingCommands,
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewBookingQueries,
		queries.NewAvailabilityQueries,
		queries.NewPricingQueries,
	),
)

var usecaseValidatorsModule = fx.Module("usecase/validators",
	fx.Provide(
		usecase.NewTokenValidator,
	),
)

func NewRefundPolicy(cfg config.Config) (booking.RefundPolicy, error) {
	policy, err := booking.ParseRefundTiers(cfg.Booking.RefundTiers)
	if err != nil {
		return nil, err
	}
	return policy, nil
}

func NewReservationCoordinator(
	uow shared.UnitOfWork,
	payments shared.PaymentGateway,
	cache shared.AvailabilityCache,
	clk clock.Clock,
	logger *slog.Logger,
	cfg config.Config,
) *commands.ReservationCoordinator {
	return commands.NewReservationCoordinator(uow, payments, cache, clk, logger, commands.CoordinatorConfig{
		HoldTTL:            cfg.Booking.HoldTTL,
		ReclaimBatch:       cfg.Booking.ReclaimBatch,
		PaymentMaxAttempts: cfg.Booking.PaymentMaxAttempts,
		PaymentBackoff:     cfg.Booking.PaymentBackoff,
	})
}

func NewBookingCommands(
	uow shared.UnitOfWork,
	coordinator *commands.ReservationCoordinator,
	pricing shared.PricingResolver,
	payments shared.PaymentGateway,
	refunds booking.RefundPolicy,
	clk clock.Clock,
	logger *slog.Logger,
	cfg config.Config,
) commands.BookingCommands {
	return commands.NewBookingCommands(uow, coordinator, pricing, payments, refunds, clk, logger, commands.BookingConfig{
		IdempotencyTTL: cfg.Booking.IdempotencyTTL,
	})
}
