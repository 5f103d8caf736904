package errs

import "errors"

// Use-case level sentinels shared by commands, queries and the HTTP layer
var (
	// Availability errors
	ErrAvailabilityConflict = errors.New("availability conflict")
	ErrInvalidRange         = errors.New("invalid date range")

	// Payment errors
	ErrPaymentFailed      = errors.New("payment failed")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// Promotion errors
	ErrPromotionInvalid   = errors.New("promotion invalid")
	ErrPromotionExpired   = errors.New("promotion expired")
	ErrPromotionExhausted = errors.New("promotion exhausted")

	// Booking errors
	ErrBookingNotFound        = errors.New("booking not found")
	ErrPropertyNotFound       = errors.New("property not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrUnauthorized           = errors.New("unauthorized")

	// Idempotency errors
	ErrDuplicateRequest      = errors.New("duplicate request")
	ErrIdempotencyInProgress = errors.New("idempotency in progress")

	// Query errors
	ErrInvalidCursor = errors.New("invalid cursor")

	// Operation errors
	ErrDatabaseOperationFailed = errors.New("database operation failed")
)
