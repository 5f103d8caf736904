package httperr

import (
	"net/http"

	"stayhub/internal/pkg/errs"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Status int `json:"-"`
	Error  struct {
		Message string `json:"message"`
	} `json:"error"`
	Detail any `json:"detail,omitempty"`
}

// preserves original error for future monitoring
func AbortWithError(c *gin.Context, status int, err error, msg string, detail any) {
	if err == nil {
		panic("AbortWithError: err cannot be nil")
	}

	resp := Response{Status: status}
	resp.Error.Message = msg
	resp.Detail = detail

	_ = c.Error(&gin.Error{
		Err:  err,
		Type: gin.ErrorTypePublic,
		Meta: resp,
	})
	c.AbortWithStatusJSON(status, resp)
}

type mapping struct {
	target  error
	status  int
	message string
}

var mappings = []mapping{
	{errs.ErrAvailabilityConflict, http.StatusConflict, "Requested dates are no longer available"},
	{errs.ErrInvalidRange, http.StatusBadRequest, "Invalid date range"},
	{errs.ErrInvalidCursor, http.StatusBadRequest, "Invalid cursor"},
	{errs.ErrPaymentFailed, http.StatusPaymentRequired, "Payment failed"},
	{errs.ErrGatewayUnavailable, http.StatusServiceUnavailable, "Payment service temporarily unavailable, retry later"},
	{errs.ErrPromotionExpired, http.StatusUnprocessableEntity, "Promotion expired"},
	{errs.ErrPromotionExhausted, http.StatusUnprocessableEntity, "Promotion exhausted"},
	{errs.ErrPromotionInvalid, http.StatusUnprocessableEntity, "Promotion invalid"},
	{errs.ErrInvalidStateTransition, http.StatusConflict, "Invalid booking status transition"},
	{errs.ErrUnauthorized, http.StatusForbidden, "Not allowed to act on this booking"},
	{errs.ErrBookingNotFound, http.StatusNotFound, "Booking not found"},
	{errs.ErrPropertyNotFound, http.StatusNotFound, "Property not found"},
	{errs.ErrDuplicateRequest, http.StatusUnprocessableEntity, "Idempotency key reused with a different request"},
	{errs.ErrIdempotencyInProgress, http.StatusConflict, "Request with this idempotency key is being processed"},
}

// Status maps a use-case error onto an HTTP status and a client-safe message.
func Status(err error) (int, string) {
	for _, m := range mappings {
		if errs.Is(err, m.target) {
			return m.status, m.message
		}
	}
	return http.StatusInternalServerError, "Internal server error"
}

// AbortWithUseCaseError aborts with the status mapped from err.
func AbortWithUseCaseError(c *gin.Context, err error) {
	status, msg := Status(err)
	AbortWithError(c, status, err, msg, nil)
}
