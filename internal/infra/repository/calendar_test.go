//go:build unit

package repository

import (
	"context"
	"testing"
	"time"

	"stayhub/internal/domain/calendar"
	"stayhub/internal/infra"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDBTX struct {
	mock.Mock
}

func (m *MockDBTX) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	mockArgs := m.Called(ctx, query, args)
	return mockArgs.Get(0).(pgconn.CommandTag), mockArgs.Error(1)
}

func (m *MockDBTX) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	mockArgs := m.Called(ctx, query, args)
	return mockArgs.Get(0).(pgx.Rows), mockArgs.Error(1)
}

func (m *MockDBTX) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	mockArgs := m.Called(ctx, query, args)
	return mockArgs.Get(0).(pgx.Row)
}

func threeNights(t *testing.T) calendar.DateRange {
	t.Helper()
	r, err := calendar.ParseDateRange("2024-06-01", "2024-06-04")
	require.NoError(t, err)
	return r
}

func TestCalendarRepository_TryHold(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		tag      pgconn.CommandTag
		dbErr    error
		errIs    error
		repoKind infra.RepositoryErrorKind
	}{
		{name: "every night held", tag: pgconn.NewCommandTag("INSERT 0 3")},
		{name: "one night taken", tag: pgconn.NewCommandTag("INSERT 0 2"), errIs: calendar.ErrHoldConflict},
		{name: "nothing held", tag: pgconn.NewCommandTag("INSERT 0 0"), errIs: calendar.ErrHoldConflict},
		{
			name:     "unknown property",
			dbErr:    &pgconn.PgError{Code: "23503"},
			repoKind: infra.KindForeignKeyViolated,
		},
		{name: "database down", dbErr: assert.AnError, repoKind: infra.KindDBFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := new(MockDBTX)
			db.On("Exec", mock.Anything, tryHoldSQL, mock.Anything).Return(tt.tag, tt.dbErr)

			err := NewCalendarRepository(db).TryHold(context.Background(), uuid.New(), threeNights(t), calendar.NewToken(), now)

			switch {
			case tt.errIs != nil:
				assert.ErrorIs(t, err, tt.errIs)
			case tt.repoKind != "":
				assert.True(t, infra.IsKind(err, tt.repoKind), "got %v", err)
			default:
				assert.NoError(t, err)
			}
			db.AssertExpectations(t)
		})
	}
}

func TestCalendarRepository_Commit(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("all nights owned", func(t *testing.T) {
		db := new(MockDBTX)
		db.On("Exec", mock.Anything, commitCalendarSQL, mock.Anything).Return(pgconn.NewCommandTag("UPDATE 3"), nil)

		err := NewCalendarRepository(db).Commit(context.Background(), uuid.New(), threeNights(t), calendar.NewToken(), now)
		assert.NoError(t, err)
	})

	t.Run("hold reclaimed underneath", func(t *testing.T) {
		db := new(MockDBTX)
		db.On("Exec", mock.Anything, commitCalendarSQL, mock.Anything).Return(pgconn.NewCommandTag("UPDATE 0"), nil)

		err := NewCalendarRepository(db).Commit(context.Background(), uuid.New(), threeNights(t), calendar.NewToken(), now)
		assert.ErrorIs(t, err, calendar.ErrOwnershipMismatch)
	})
}

func TestCalendarRepository_Release(t *testing.T) {
	token := calendar.NewToken()
	propertyID := uuid.New()
	db := new(MockDBTX)
	db.On("Exec", mock.Anything, releaseCalendarSQL, mock.MatchedBy(func(args []any) bool {
		return len(args) == 4 && args[0] == propertyID && args[3] == token.UUID()
	})).Return(pgconn.NewCommandTag("DELETE 2"), nil)

	n, err := NewCalendarRepository(db).Release(context.Background(), propertyID, threeNights(t), token)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	db.AssertExpectations(t)
}

func TestIdempotencyRepository_TryInsert(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		tag    pgconn.CommandTag
		dbErr  error
		owned  bool
		failed bool
	}{
		{name: "fresh key", tag: pgconn.NewCommandTag("INSERT 0 1"), owned: true},
		{name: "live key held elsewhere", tag: pgconn.NewCommandTag("INSERT 0 0")},
		{name: "database error", dbErr: assert.AnError, failed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := new(MockDBTX)
			db.On("Exec", mock.Anything, tryInsertIdempotencyKeySQL, mock.Anything).Return(tt.tag, tt.dbErr)

			owned, err := NewIdempotencyRepository(db).TryInsert(context.Background(),
				uuid.New(), uuid.New(), "POST /bookings", "hash", now, now.Add(time.Hour))
			if tt.failed {
				assert.True(t, infra.IsKind(err, infra.KindDBFailure))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.owned, owned)
		})
	}
}

func TestIdempotencyRepository_CompleteMissingKey(t *testing.T) {
	db := new(MockDBTX)
	db.On("Exec", mock.Anything, completeIdempotencyKeySQL, mock.Anything).Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := NewIdempotencyRepository(db).Complete(context.Background(), uuid.New(), uuid.New(), uuid.New(), time.Now())
	assert.True(t, infra.IsKind(err, infra.KindNotFound))
}
