package readstore

import (
	"context"

	"stayhub/internal/domain/promotion"
	"stayhub/internal/infra"
	"stayhub/internal/infra/db"
	"stayhub/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	getPromotionByCodeSQL = `
SELECT id, code, discount_type, discount_amount, start_date, end_date, max_uses, used_count, is_active
FROM promotions
WHERE code = $1`

	hasRedeemedSQL = `
SELECT EXISTS (SELECT 1 FROM promotion_usages WHERE promotion_id = $1 AND user_id = $2)`
)

type PromotionReadStore struct {
	db db.DBTX
}

func NewPromotionReadStore(db db.DBTX) *PromotionReadStore {
	return &PromotionReadStore{db: db}
}

func (r *PromotionReadStore) FindByCode(ctx context.Context, code promotion.Code) (*promotion.Promotion, error) {
	var (
		id                 uuid.UUID
		rawCode, kind      string
		amount             pgtype.Numeric
		startDate, endDate pgtype.Date
		maxUses, usedCount int
		isActive           bool
	)
	err := r.db.QueryRow(ctx, getPromotionByCodeSQL, code.String()).Scan(
		&id, &rawCode, &kind, &amount, &startDate, &endDate, &maxUses, &usedCount, &isActive)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("promotion not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find promotion by code", err)
	}

	value, err := pgconv.Float64FromNumeric(amount)
	if err != nil {
		return nil, infra.WrapRepoErr("invalid promotion amount", err)
	}
	discount, err := promotion.ParseDiscount(kind, value)
	if err != nil {
		return nil, infra.WrapRepoErr("invalid promotion discount", err)
	}

	p, err := promotion.NewPromotion(promotion.Params{
		ID:        id,
		Code:      rawCode,
		Discount:  discount,
		StartDate: pgconv.DateFromPgtype(startDate),
		EndDate:   pgconv.DateFromPgtype(endDate),
		MaxUses:   maxUses,
		UsedCount: usedCount,
		IsActive:  isActive,
	})
	if err != nil {
		return nil, infra.WrapRepoErr("invalid promotion row", err)
	}
	return p, nil
}

func (r *PromotionReadStore) HasRedeemed(ctx context.Context, promotionID, userID uuid.UUID) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, hasRedeemedSQL, promotionID, userID).Scan(&exists); err != nil {
		return false, infra.WrapRepoErr("failed to check promotion usage", err)
	}
	return exists, nil
}
