//go:build unit

package messaging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"stayhub/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMessage(t *testing.T) {
	e := shared.OutboxEvent{
		ID: uuid.New(),
		Event: shared.Event{
			Topic:      "booking.confirmed",
			Key:        "b-1",
			Payload:    []byte(`{"status":"confirmed"}`),
			OccurredAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		},
	}

	msg := toMessage("stayhub", e)
	assert.Equal(t, "stayhub.booking.confirmed", msg.Topic)
	assert.Equal(t, []byte("b-1"), msg.Key)
	assert.Equal(t, e.Payload, msg.Value)
	assert.True(t, e.OccurredAt.Equal(msg.Time))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, e.ID.String(), string(msg.Headers[0].Value))
	assert.Equal(t, "booking.confirmed", string(msg.Headers[1].Value))

	assert.Equal(t, "booking.confirmed", toMessage("", e).Topic)
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := p.Publish(context.Background(), []shared.OutboxEvent{
		{ID: uuid.New(), Event: shared.Event{Topic: "hold.reclaimed", Key: "p-1"}},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"topic":"hold.reclaimed"`)
}
