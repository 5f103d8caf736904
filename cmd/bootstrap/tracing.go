package bootstrap

import (
	"context"

	"stayhub/internal/infra/tracing"
	"stayhub/internal/pkg/config"

	"go.uber.org/fx"
)

var TracingModule = fx.Module("tracing",
	fx.Invoke(registerTracing),
)

func registerTracing(lc fx.Lifecycle, cfg config.Config) error {
	shutdown, err := tracing.NewProvider(context.Background(), cfg.Tracing)
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: shutdown,
	})
	return nil
}
