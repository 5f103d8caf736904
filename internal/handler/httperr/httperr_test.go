//go:build unit

package httperr_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"stayhub/internal/handler/httperr"
	"stayhub/internal/pkg/errs"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"conflict survives wrapping", errs.Wrap(errs.Mark(errors.New("held"), errs.ErrAvailabilityConflict), "reserve"), http.StatusConflict, "Requested dates are no longer available"},
		{"invalid range", errs.ErrInvalidRange, http.StatusBadRequest, "Invalid date range"},
		{"declined payment", errs.ErrPaymentFailed, http.StatusPaymentRequired, "Payment failed"},
		{"gateway down", errs.ErrGatewayUnavailable, http.StatusServiceUnavailable, "Payment service temporarily unavailable, retry later"},
		{"expired promotion", errs.ErrPromotionExpired, http.StatusUnprocessableEntity, "Promotion expired"},
		{"exhausted promotion", errs.ErrPromotionExhausted, http.StatusUnprocessableEntity, "Promotion exhausted"},
		{"invalid promotion", errs.ErrPromotionInvalid, http.StatusUnprocessableEntity, "Promotion invalid"},
		{"bad transition", errs.ErrInvalidStateTransition, http.StatusConflict, "Invalid booking status transition"},
		{"stranger", errs.ErrUnauthorized, http.StatusForbidden, "Not allowed to act on this booking"},
		{"missing booking", errs.ErrBookingNotFound, http.StatusNotFound, "Booking not found"},
		{"missing property", errs.ErrPropertyNotFound, http.StatusNotFound, "Property not found"},
		{"reused key", errs.ErrDuplicateRequest, http.StatusUnprocessableEntity, "Idempotency key reused with a different request"},
		{"key in flight", errs.ErrIdempotencyInProgress, http.StatusConflict, "Request with this idempotency key is being processed"},
		{"storage failure hides details", errs.Mark(errors.New("pq: timeout"), errs.ErrDatabaseOperationFailed), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := httperr.Status(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestAbortWithError_AttachesResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	cause := errs.New("connection reset")
	httperr.AbortWithError(c, http.StatusInternalServerError, cause, "Internal server error", nil)

	require.Len(t, c.Errors, 1)
	e := c.Errors[0]
	assert.True(t, e.IsType(gin.ErrorTypePublic))
	assert.Equal(t, cause, e.Err)

	resp, ok := e.Meta.(httperr.Response)
	require.True(t, ok, "response must survive on the gin error")
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "Internal server error", resp.Error.Message)
	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
