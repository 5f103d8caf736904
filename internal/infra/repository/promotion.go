package repository

import (
	"context"
	"time"

	"stayhub/internal/domain/promotion"
	"stayhub/internal/infra"
	"stayhub/internal/infra/db"
	"stayhub/internal/pkg/errs"
	"stayhub/internal/pkg/pgconv"

	"github.com/google/uuid"
)

const (
	// The guard makes the check and the increment one atomic statement.
	redeemPromotionSQL = `
UPDATE promotions
SET used_count = used_count + 1, updated_at = $2
WHERE id = $1 AND is_active AND used_count < max_uses`

	insertPromotionUsageSQL = `
INSERT INTO promotion_usages (promotion_id, user_id, booking_id, created_at)
VALUES ($1, $2, $3, $4)`

	deletePromotionUsageSQL = `
DELETE FROM promotion_usages
WHERE promotion_id = $1 AND user_id = $2 AND booking_id = $3`

	revertPromotionSQL = `
UPDATE promotions
SET used_count = used_count - 1, updated_at = NOW()
WHERE id = $1 AND used_count > 0`
)

type PromotionRepository struct {
	db db.DBTX
}

func NewPromotionRepository(db db.DBTX) *PromotionRepository {
	return &PromotionRepository{db: db}
}

func (r *PromotionRepository) Redeem(ctx context.Context, promotionID, userID, bookingID uuid.UUID, now time.Time) error {
	tag, err := r.db.Exec(ctx, redeemPromotionSQL, promotionID, pgconv.TimeToPgtype(now))
	if err != nil {
		return infra.WrapRepoErr("failed to redeem promotion", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.Wrapf(promotion.ErrExhausted, "promotion %s", promotionID)
	}

	_, err = r.db.Exec(ctx, insertPromotionUsageSQL, promotionID, userID, bookingID, pgconv.TimeToPgtype(now))
	if err != nil {
		if pgconv.IsUniqueViolation(err) {
			return errs.Wrapf(promotion.ErrAlreadyRedeemed, "promotion %s user %s", promotionID, userID)
		}
		return infra.WrapRepoErr("failed to record promotion usage", err)
	}
	return nil
}

func (r *PromotionRepository) Revert(ctx context.Context, promotionID, userID, bookingID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, deletePromotionUsageSQL, promotionID, userID, bookingID)
	if err != nil {
		return infra.WrapRepoErr("failed to delete promotion usage", err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	if _, err := r.db.Exec(ctx, revertPromotionSQL, promotionID); err != nil {
		return infra.WrapRepoErr("failed to revert promotion usage count", err)
	}
	return nil
}
