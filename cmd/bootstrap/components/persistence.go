package components

import (
	"log/slog"

	"stayhub/internal/infra/readstore"
	"stayhub/internal/infra/uow"
	"stayhub/internal/usecase/queries"
	"stayhub/internal/usecase/shared"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	fx.Provide(
		NewPersistence,
	),
)

type Persistence struct {
	fx.Out

	UnitOfWork   shared.UnitOfWork
	Bookings     queries.BookingReadStore
	Availability queries.AvailabilityReadStore
}

// NewPersistence binds the write and read sides to Postgres.
func NewPersistence(pool *pgxpool.Pool, logger *slog.Logger) Persistence {
	return Persistence{
		UnitOfWork:   uow.NewPostgresUoW(pool, logger),
		Bookings:     readstore.NewBookingReadStore(pool),
		Availability: readstore.NewAvailabilityReadStore(pool),
	}
}
