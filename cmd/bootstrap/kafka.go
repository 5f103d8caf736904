package bootstrap

import (
	"context"
	"log/slog"

	"stayhub/internal/infra/messaging"
	"stayhub/internal/pkg/config"
	"stayhub/internal/usecase/shared"

	"go.uber.org/fx"
)

var KafkaModule = fx.Module("kafka",
	fx.Provide(
		NewEventPublisher,
	),
)

// NewEventPublisher logs events instead of writing them when no brokers are set.
func NewEventPublisher(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) shared.EventPublisher {
	if len(cfg.Kafka.Brokers) == 0 {
		return messaging.NewLogPublisher(logger)
	}

	publisher := messaging.NewKafkaPublisher(messaging.KafkaConfig{
		Brokers:     cfg.Kafka.Brokers,
		TopicPrefix: cfg.Kafka.TopicPrefix,
	}, logger)

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return publisher.Close()
		},
	})

	return publisher
}
