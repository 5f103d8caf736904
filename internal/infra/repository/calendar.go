package repository

import (
	"context"
	"time"

	"stayhub/internal/domain/calendar"
	"stayhub/internal/infra"
	"stayhub/internal/infra/db"
	"stayhub/internal/pkg/errs"
	"stayhub/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	getCalendarRangeSQL = `
SELECT day, state, token, held_at
FROM calendar_days
WHERE property_id = $1 AND day >= $2 AND day < $3
ORDER BY day`

	// A conflicting day is neither inserted nor updated, so it is missing from
	// the affected row count. Days already held by the same token are refreshed.
	tryHoldSQL = `
INSERT INTO calendar_days (property_id, day, state, token, held_at, updated_at)
SELECT $1, d::date, 'held', $4, $5, $5
FROM generate_series($2::date, $3::date - 1, interval '1 day') AS d
ON CONFLICT (property_id, day) DO UPDATE
SET held_at = EXCLUDED.held_at, updated_at = EXCLUDED.updated_at
WHERE calendar_days.state = 'held' AND calendar_days.token = EXCLUDED.token`

	commitCalendarSQL = `
UPDATE calendar_days
SET state = 'booked', updated_at = $5
WHERE property_id = $1 AND day >= $2 AND day < $3 AND token = $4`

	releaseCalendarSQL = `
DELETE FROM calendar_days
WHERE property_id = $1 AND day >= $2 AND day < $3 AND token = $4`

	expiredHoldsSQL = `
SELECT property_id, token, MIN(day), MAX(day) + 1, MIN(held_at)
FROM calendar_days
WHERE state = 'held' AND held_at < $1
GROUP BY property_id, token
ORDER BY MIN(held_at)
LIMIT $2`
)

type CalendarRepository struct {
	db db.DBTX
}

func NewCalendarRepository(db db.DBTX) *CalendarRepository {
	return &CalendarRepository{db: db}
}

func (r *CalendarRepository) GetRange(ctx context.Context, propertyID uuid.UUID, dr calendar.DateRange) ([]calendar.Day, error) {
	days, err := QueryCalendarRange(ctx, r.db, propertyID, dr)
	if err != nil {
		return nil, err
	}
	return calendar.FillRange(propertyID, dr, days), nil
}

func (r *CalendarRepository) TryHold(ctx context.Context, propertyID uuid.UUID, dr calendar.DateRange, token calendar.Token, now time.Time) error {
	tag, err := r.db.Exec(ctx, tryHoldSQL,
		propertyID, pgconv.DateToPgtype(dr.Start()), pgconv.DateToPgtype(dr.End()), token.UUID(), pgconv.TimeToPgtype(now))
	if err != nil {
		if pgconv.IsForeignKeyViolation(err) {
			return infra.WrapRepoErr("property does not exist", err, infra.KindForeignKeyViolated)
		}
		return infra.WrapRepoErr("failed to hold calendar days", err)
	}

	if tag.RowsAffected() != int64(dr.Nights()) {
		return errs.Wrapf(calendar.ErrHoldConflict, "%d of %d days held", tag.RowsAffected(), dr.Nights())
	}
	return nil
}

func (r *CalendarRepository) Commit(ctx context.Context, propertyID uuid.UUID, dr calendar.DateRange, token calendar.Token, now time.Time) error {
	tag, err := r.db.Exec(ctx, commitCalendarSQL,
		propertyID, pgconv.DateToPgtype(dr.Start()), pgconv.DateToPgtype(dr.End()), token.UUID(), pgconv.TimeToPgtype(now))
	if err != nil {
		return infra.WrapRepoErr("failed to commit calendar days", err)
	}

	if tag.RowsAffected() != int64(dr.Nights()) {
		return errs.Wrapf(calendar.ErrOwnershipMismatch, "%d of %d days owned", tag.RowsAffected(), dr.Nights())
	}
	return nil
}

func (r *CalendarRepository) Release(ctx context.Context, propertyID uuid.UUID, dr calendar.DateRange, token calendar.Token) (int, error) {
	tag, err := r.db.Exec(ctx, releaseCalendarSQL,
		propertyID, pgconv.DateToPgtype(dr.Start()), pgconv.DateToPgtype(dr.End()), token.UUID())
	if err != nil {
		return 0, infra.WrapRepoErr("failed to release calendar days", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *CalendarRepository) ExpiredHolds(ctx context.Context, heldBefore time.Time, limit int) ([]calendar.ExpiredHold, error) {
	rows, err := r.db.Query(ctx, expiredHoldsSQL, pgconv.TimeToPgtype(heldBefore), limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list expired holds", err)
	}
	defer rows.Close()

	var holds []calendar.ExpiredHold
	for rows.Next() {
		var (
			propertyID, token uuid.UUID
			start, end        time.Time
			heldAt            time.Time
		)
		if err := rows.Scan(&propertyID, &token, &start, &end, &heldAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan expired hold", err)
		}
		dr, err := calendar.NewDateRange(start, end)
		if err != nil {
			return nil, infra.WrapRepoErr("invalid expired hold range", err)
		}
		holds = append(holds, calendar.ExpiredHold{
			PropertyID: propertyID,
			Token:      calendar.Token(token),
			Range:      dr,
			HeldAt:     heldAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate expired holds", err)
	}
	return holds, nil
}

// QueryCalendarRange returns the stored (held or booked) days of dr.
func QueryCalendarRange(ctx context.Context, q db.DBTX, propertyID uuid.UUID, dr calendar.DateRange) ([]calendar.Day, error) {
	rows, err := q.Query(ctx, getCalendarRangeSQL, propertyID, pgconv.DateToPgtype(dr.Start()), pgconv.DateToPgtype(dr.End()))
	if err != nil {
		return nil, infra.WrapRepoErr("failed to read calendar range", err)
	}
	days, err := pgx.CollectRows(rows, scanDay(propertyID))
	if err != nil {
		return nil, infra.WrapRepoErr("failed to scan calendar day", err)
	}
	return days, nil
}

func scanDay(propertyID uuid.UUID) pgx.RowToFunc[calendar.Day] {
	return func(row pgx.CollectableRow) (calendar.Day, error) {
		var (
			day    time.Time
			state  string
			token  uuid.UUID
			heldAt time.Time
		)
		if err := row.Scan(&day, &state, &token, &heldAt); err != nil {
			return calendar.Day{}, err
		}
		t := calendar.Token(token)
		return calendar.Day{
			PropertyID: propertyID,
			Date:       calendar.ToDate(day),
			State:      calendar.State(state),
			Token:      &t,
			HeldAt:     &heldAt,
		}, nil
	}
}
