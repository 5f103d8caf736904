//go:build unit || e2e

package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func CreateTestProperty(t *testing.T, db DBLike, hostID uuid.UUID, name string, rateCents int64) uuid.UUID {
	t.Helper()

	propertyID := uuid.New()
	_, err := db.Exec(context.Background(),
		"INSERT INTO properties (id, host_id, name, nightly_rate_cents, is_active) VALUES ($1, $2, $3, $4, true)",
		propertyID, hostID, name, rateCents)
	require.NoError(t, err)

	return propertyID
}

func CreateTestPromotion(t *testing.T, db DBLike, code string, percent float64, maxUses int) uuid.UUID {
	t.Helper()

	promotionID := uuid.New()
	_, err := db.Exec(context.Background(), `
		INSERT INTO promotions (id, code, discount_type, discount_amount, start_date, end_date, max_uses, is_active)
		VALUES ($1, $2, 'percent', $3, DATE '2020-01-01', DATE '2099-12-31', $4, true)`,
		promotionID, code, percent, maxUses)
	require.NoError(t, err)

	return promotionID
}

// CountCalendarDays counts stored days of a property in the given state.
func CountCalendarDays(t *testing.T, db DBLike, propertyID uuid.UUID, state string) int {
	t.Helper()

	var n int
	err := db.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM calendar_days WHERE property_id = $1 AND state = $2", propertyID, state).Scan(&n)
	require.NoError(t, err)
	return n
}

var (
	buildTruncateOnce sync.Once
	truncateSQL       atomic.Value // string
)

// truncates all tables
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buildTruncateOnce.Do(func() {
		rows, err := pool.Query(ctx, `
		  SELECT 'public.' || quote_ident(tablename)
		  FROM pg_tables
		  WHERE schemaname = 'public'
		    AND tablename NOT IN ('schema_migrations')`)
		if err != nil {
			truncateSQL.Store("")
			return
		}
		defer rows.Close()
		var tables []string
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				truncateSQL.Store("")
				return
			}
			tables = append(tables, t)
		}
		if rows.Err() != nil {
			truncateSQL.Store("")
			return
		}
		if len(tables) == 0 {
			truncateSQL.Store("SELECT 1")
			return
		}
		truncateSQL.Store("TRUNCATE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE;")
	})
	sqlAny := truncateSQL.Load()
	if sqlAny == nil || sqlAny.(string) == "" {
		return fmt.Errorf("failed to build TRUNCATE SQL")
	}
	if _, err := pool.Exec(ctx, sqlAny.(string)); err != nil {
		return err
	}

	return nil
}
