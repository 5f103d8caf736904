package shared

import (
	"time"

	"github.com/google/uuid"
)

const (
	IdempotencyStatusProcessing = "processing"
	IdempotencyStatusCompleted  = "completed"
)

type IdempotencyRecord struct {
	Key             uuid.UUID
	UserID          uuid.UUID
	Endpoint        string
	Status          string
	RequestHash     string
	ResultBookingID *uuid.UUID
	ExpiresAt       time.Time
}

type PaymentStatus string

const (
	PaymentCaptured     PaymentStatus = "captured"
	PaymentRefunded     PaymentStatus = "refunded"
	PaymentRefundFailed PaymentStatus = "refund_failed"
)

type PaymentRecord struct {
	BookingID        uuid.UUID
	GatewayPaymentID string
	AmountCents      int64
	RefundedCents    int64
	Status           PaymentStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Event is a domain event waiting in the outbox for the relay.
type Event struct {
	Topic      string
	Key        string
	Payload    []byte
	OccurredAt time.Time
}

type OutboxEvent struct {
	ID       uuid.UUID
	Attempts int
	Event
}
