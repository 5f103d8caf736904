package response

import (
	"time"

	"stayhub/internal/domain/calendar"
	"stayhub/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type BookingResponse struct {
	ID            uuid.UUID  `json:"id"`
	PropertyID    uuid.UUID  `json:"propertyId"`
	PropertyName  string     `json:"propertyName"`
	HostID        uuid.UUID  `json:"hostId"`
	GuestID       uuid.UUID  `json:"guestId"`
	Start         string     `json:"startDate"`
	End           string     `json:"endDate"`
	Nights        int        `json:"nights"`
	Status        string     `json:"status"`
	TotalCents    int64      `json:"totalCents"`
	PromotionCode *string    `json:"promotionCode,omitempty"`
	PaymentStatus *string    `json:"paymentStatus,omitempty"`
	RefundedCents int64      `json:"refundedCents"`
	CancelledBy   *uuid.UUID `json:"cancelledBy,omitempty"`
	CancelReason  *string    `json:"cancelReason,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type BookingListItemResponse struct {
	ID           uuid.UUID `json:"id"`
	PropertyID   uuid.UUID `json:"propertyId"`
	PropertyName string    `json:"propertyName"`
	Start        string    `json:"startDate"`
	End          string    `json:"endDate"`
	Status       string    `json:"status"`
	TotalCents   int64     `json:"totalCents"`
	CreatedAt    time.Time `json:"createdAt"`
}

type BookingListResponse struct {
	Items      []*BookingListItemResponse `json:"items"`
	NextCursor *string                    `json:"nextCursor,omitempty"`
}

func FromBookingView(v *queries.BookingView) (*BookingResponse, error) {
	var res BookingResponse
	if err := copier.Copy(&res, v); err != nil {
		return nil, err
	}
	res.Start = v.StartDate.Format(calendar.DateLayout)
	res.End = v.EndDate.Format(calendar.DateLayout)
	return &res, nil
}

func FromBookingList(items []*queries.BookingListItem, next *queries.Cursor) (*BookingListResponse, error) {
	res := &BookingListResponse{Items: make([]*BookingListItemResponse, len(items))}
	for i, it := range items {
		var item BookingListItemResponse
		if err := copier.Copy(&item, it); err != nil {
			return nil, err
		}
		item.Start = it.StartDate.Format(calendar.DateLayout)
		item.End = it.EndDate.Format(calendar.DateLayout)
		res.Items[i] = &item
	}
	if next != nil {
		res.NextCursor = &next.After
	}
	return res, nil
}
