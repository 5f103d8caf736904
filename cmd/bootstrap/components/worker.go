package components

import (
	"context"
	"log/slog"

	"stayhub/internal/pkg/clock"
	"stayhub/internal/pkg/config"
	"stayhub/internal/usecase/commands"
	"stayhub/internal/usecase/shared"

	"go.uber.org/fx"
)

var WorkerModule = fx.Module("worker",
	fx.Provide(
		NewHoldReclaimer,
		NewOutboxRelay,
	),
	fx.Invoke(
		registerReclaimer,
		registerOutboxRelay,
	),
)

func NewHoldReclaimer(coordinator *commands.ReservationCoordinator, cfg config.Config, logger *slog.Logger) *commands.HoldReclaimer {
	return commands.NewHoldReclaimer(coordinator, cfg.Booking.ReclaimInterval, logger)
}

func NewOutboxRelay(uow shared.UnitOfWork, publisher shared.EventPublisher, clk clock.Clock, cfg config.Config, logger *slog.Logger) *commands.OutboxRelay {
	return commands.NewOutboxRelay(uow, publisher, clk, logger, commands.OutboxRelayConfig{
		Interval: cfg.Kafka.RelayInterval,
		Batch:    cfg.Kafka.RelayBatch,
	})
}

func registerReclaimer(lc fx.Lifecycle, r *commands.HoldReclaimer) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			r.Start()
			return nil
		},
		OnStop: r.Stop,
	})
}

func registerOutboxRelay(lc fx.Lifecycle, r *commands.OutboxRelay) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			r.Start()
			return nil
		},
		OnStop: r.Stop,
	})
}
