package components

import (
	"stayhub/internal/handler"
	"stayhub/internal/handler/api"
	"stayhub/internal/handler/dto/request"
	"stayhub/internal/handler/middleware"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewBookingHandler,
		api.NewPropertyHandler,
		middleware.NewAuthMiddleware,
		NewHandlers,
	),
	fx.Invoke(
		request.RegisterValidators,
		handler.NewRouter,
	),
)

func NewHandlers(bookings *api.BookingHandler, properties *api.PropertyHandler, auth *middleware.AuthMiddleware) handler.Handlers {
	return handler.Handlers{
		Bookings:   bookings,
		Properties: properties,
		Auth:       auth,
	}
}
