package components

import (
	"log/slog"

	"stayhub/internal/infra/gateway"
	"stayhub/internal/pkg/config"
	"stayhub/internal/usecase/shared"

	"go.uber.org/fx"
)

var GatewayModule = fx.Module("gateway",
	fx.Provide(
		NewPaymentGateway,
		fx.Annotate(
			gateway.NewLocalPricingResolver,
			fx.As(new(shared.PricingResolver)),
		),
	),
)

func NewPaymentGateway(cfg config.Config, logger *slog.Logger) shared.PaymentGateway {
	if cfg.Payment.Driver == config.PaymentDriverHTTP {
		return gateway.NewHTTPPaymentGateway(gateway.HTTPPaymentConfig{
			BaseURL: cfg.Payment.BaseURL,
			APIKey:  cfg.Payment.APIKey,
			Timeout: cfg.Payment.Timeout,
		})
	}
	logger.Warn("using sandbox payment gateway; no money moves")
	return gateway.NewSandboxPaymentGateway()
}
