package calendar

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrHoldConflict      = errors.New("one or more days are held or booked by another reservation")
	ErrOwnershipMismatch = errors.New("range is not held by this reservation")
)

type State string

const (
	StateAvailable State = "available"
	StateHeld      State = "held"
	StateBooked    State = "booked"
)

func (s State) String() string {
	return string(s)
}

func (s State) IsValid() bool {
	switch s {
	case StateAvailable, StateHeld, StateBooked:
		return true
	default:
		return false
	}
}

// Token identifies one reservation attempt. It owns the days it holds or books
// and doubles as the payment idempotency key.
type Token uuid.UUID

func NewToken() Token {
	return Token(uuid.New())
}

func (t Token) UUID() uuid.UUID { return uuid.UUID(t) }
func (t Token) String() string  { return uuid.UUID(t).String() }
func (t Token) IsZero() bool    { return uuid.UUID(t) == uuid.Nil }

// Day is one property-date cell. Days without a stored row are available.
type Day struct {
	PropertyID uuid.UUID
	Date       time.Time
	State      State
	Token      *Token
	HeldAt     *time.Time
}

func (d Day) IsAvailable() bool {
	return d.State == StateAvailable
}

func (d Day) OwnedBy(t Token) bool {
	return d.Token != nil && *d.Token == t
}

// ExpiredHold groups the days an abandoned reservation attempt still holds.
type ExpiredHold struct {
	PropertyID uuid.UUID
	Token      Token
	Range      DateRange
	HeldAt     time.Time
}

// FillRange returns one Day per date in r, using stored rows where present.
func FillRange(propertyID uuid.UUID, r DateRange, stored []Day) []Day {
	byDate := make(map[time.Time]Day, len(stored))
	for _, d := range stored {
		byDate[ToDate(d.Date)] = d
	}

	days := make([]Day, 0, r.Nights())
	for _, date := range r.Days() {
		if d, ok := byDate[date]; ok {
			d.Date = date
			days = append(days, d)
			continue
		}
		days = append(days, Day{PropertyID: propertyID, Date: date, State: StateAvailable})
	}
	return days
}
