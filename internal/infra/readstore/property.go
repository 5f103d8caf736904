package readstore

import (
	"context"

	"stayhub/internal/domain/property"
	"stayhub/internal/infra"
	"stayhub/internal/infra/db"
	"stayhub/internal/pkg/pgconv"

	"github.com/google/uuid"
)

const getPropertySQL = `
SELECT id, host_id, name, nightly_rate_cents, is_active
FROM properties
WHERE id = $1`

type PropertyReadStore struct {
	db db.DBTX
}

func NewPropertyReadStore(db db.DBTX) *PropertyReadStore {
	return &PropertyReadStore{db: db}
}

func (r *PropertyReadStore) FindByID(ctx context.Context, id uuid.UUID) (*property.Property, error) {
	var (
		propertyID, hostID uuid.UUID
		name               string
		rateCents          int64
		isActive           bool
	)
	err := r.db.QueryRow(ctx, getPropertySQL, id).Scan(&propertyID, &hostID, &name, &rateCents, &isActive)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("property not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find property by ID", err)
	}

	p, err := property.NewProperty(propertyID, hostID, name, rateCents, isActive)
	if err != nil {
		return nil, infra.WrapRepoErr("invalid property row", err)
	}
	return p, nil
}
