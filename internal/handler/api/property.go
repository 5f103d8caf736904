package api

import (
	"net/http"
	"time"

	"stayhub/internal/domain/calendar"
	reqdto "stayhub/internal/handler/dto/request"
	resdto "stayhub/internal/handler/dto/response"
	"stayhub/internal/handler/httperr"
	"stayhub/internal/handler/middleware"
	"stayhub/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PropertyHandler struct {
	availability queries.AvailabilityQueries
	pricing      queries.PricingQueries
}

func NewPropertyHandler(availability queries.AvailabilityQueries, pricing queries.PricingQueries) *PropertyHandler {
	return &PropertyHandler{availability: availability, pricing: pricing}
}

// @Summary Check availability
// @Description Report whether every night of [start, end) is free
// @Tags properties
// @Produce json
// @Param id path string true "Property ID"
// @Param start query string true "First night (YYYY-MM-DD)"
// @Param end query string true "Checkout date (YYYY-MM-DD)"
// @Success 200 {object} resdto.AvailabilityResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /properties/{id}/availability [get]
func (h *PropertyHandler) Availability(c *gin.Context) {
	propertyID, query, ok := bindStay(c)
	if !ok {
		return
	}
	start, end, ok := parseStay(c, query)
	if !ok {
		return
	}

	view, err := h.availability.CheckAvailability(c.Request.Context(), propertyID, start, end)
	if err != nil {
		httperr.AbortWithUseCaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromAvailabilityView(view))
}

// @Summary Quote a stay
// @Description Price a stay with an optional promotion code for the caller
// @Tags properties
// @Produce json
// @Security BearerAuth
// @Param id path string true "Property ID"
// @Param start query string true "First night (YYYY-MM-DD)"
// @Param end query string true "Checkout date (YYYY-MM-DD)"
// @Param promoCode query string false "Promotion code"
// @Success 200 {object} resdto.QuoteResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /properties/{id}/quote [get]
func (h *PropertyHandler) Quote(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, errUnauthenticated, "Unauthorized", nil)
		return
	}
	propertyID, query, ok := bindStay(c)
	if !ok {
		return
	}
	start, end, ok := parseStay(c, query)
	if !ok {
		return
	}

	view, err := h.pricing.Quote(c.Request.Context(), queries.QuoteInput{
		PropertyID: propertyID,
		GuestID:    userID,
		StartDate:  start,
		EndDate:    end,
		PromoCode:  query.GetPromoCode(),
	})
	if err != nil {
		httperr.AbortWithUseCaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromQuoteView(view))
}

func bindStay(c *gin.Context) (uuid.UUID, reqdto.StayQuery, bool) {
	var query reqdto.StayQuery
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid property ID format", nil)
		return uuid.Nil, query, false
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid query", nil)
		return uuid.Nil, query, false
	}
	return id, query, true
}

func parseStay(c *gin.Context, query reqdto.StayQuery) (time.Time, time.Time, bool) {
	start, err := calendar.ParseDate(query.Start)
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid start date", nil)
		return time.Time{}, time.Time{}, false
	}
	end, err := calendar.ParseDate(query.End)
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid end date", nil)
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
