//go:build unit

package commands_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"stayhub/internal/usecase/commands"
	"stayhub/internal/usecase/shared"
	mockshared "stayhub/tests/mock/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestOutboxRelay(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes committed events once", func(t *testing.T) {
		f := newFixture(t)
		ctrl := gomock.NewController(t)
		publisher := mockshared.NewMockEventPublisher(ctrl)
		relay := commands.NewOutboxRelay(f.uow, publisher, f.clock, f.logger, commands.OutboxRelayConfig{Interval: time.Hour, Batch: 10})

		b := f.book(t, uuid.New(), "2024-06-01", "2024-06-03")

		publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, events []shared.OutboxEvent) error {
				require.Len(t, events, 1)
				assert.Equal(t, commands.TopicBookingConfirmed, events[0].Topic)
				assert.Equal(t, b.ID().String(), events[0].Key)
				return nil
			}).Times(1)

		n, err := relay.Relay(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = relay.Relay(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, f.store.PendingEvents())
	})

	t.Run("a failed batch is retried after the backoff", func(t *testing.T) {
		f := newFixture(t)
		ctrl := gomock.NewController(t)
		publisher := mockshared.NewMockEventPublisher(ctrl)
		relay := commands.NewOutboxRelay(f.uow, publisher, f.clock, f.logger, commands.OutboxRelayConfig{Interval: time.Hour, Batch: 10})

		f.book(t, uuid.New(), "2024-06-01", "2024-06-03")

		gomock.InOrder(
			publisher.EXPECT().Publish(gomock.Any(), gomock.Len(1)).Return(errors.New("broker down")),
			publisher.EXPECT().Publish(gomock.Any(), gomock.Len(1)).
				DoAndReturn(func(_ context.Context, events []shared.OutboxEvent) error {
					assert.Equal(t, 1, events[0].Attempts)
					return nil
				}),
		)

		n, err := relay.Relay(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		// not due yet
		n, err = relay.Relay(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		f.clock.Add(2 * time.Second)
		n, err = relay.Relay(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("bookings proceed while a batch is being published", func(t *testing.T) {
		f := newFixture(t)
		ctrl := gomock.NewController(t)
		publisher := mockshared.NewMockEventPublisher(ctrl)
		relay := commands.NewOutboxRelay(f.uow, publisher, f.clock, f.logger, commands.OutboxRelayConfig{Interval: time.Hour, Batch: 10})

		f.book(t, uuid.New(), "2024-06-01", "2024-06-03")

		publisher.EXPECT().Publish(gomock.Any(), gomock.Len(1)).
			DoAndReturn(func(context.Context, []shared.OutboxEvent) error {
				in := f.input(t, uuid.New(), "2024-06-10", "2024-06-12")
				done := make(chan error, 1)
				go func() {
					_, err := f.cmds.CreateBooking(context.Background(), in)
					done <- err
				}()
				select {
				case err := <-done:
					assert.NoError(t, err)
				case <-time.After(2 * time.Second):
					t.Error("booking blocked behind the publisher")
				}
				return nil
			})

		n, err := relay.Relay(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		// the booking made during publishing is left for the next batch
		assert.Len(t, f.store.PendingEvents(), 1)
	})

	t.Run("batches are bounded", func(t *testing.T) {
		f := newFixture(t)
		ctrl := gomock.NewController(t)
		publisher := mockshared.NewMockEventPublisher(ctrl)
		relay := commands.NewOutboxRelay(f.uow, publisher, f.clock, f.logger, commands.OutboxRelayConfig{Interval: time.Hour, Batch: 2})

		for _, r := range [][2]string{{"2024-06-01", "2024-06-02"}, {"2024-06-02", "2024-06-03"}, {"2024-06-03", "2024-06-04"}} {
			f.book(t, uuid.New(), r[0], r[1])
		}

		publisher.EXPECT().Publish(gomock.Any(), gomock.Len(2)).Return(nil)
		publisher.EXPECT().Publish(gomock.Any(), gomock.Len(1)).Return(nil)

		relay.RunOnce(ctx)
		relay.RunOnce(ctx)
		assert.Empty(t, f.store.PendingEvents())
	})
}
