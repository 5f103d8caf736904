package calendar

import (
	"errors"
	"time"
)

const (
	DateLayout = "2006-01-02"
	MaxNights  = 365
	oneDay     = 24 * time.Hour
)

var (
	ErrInvalidRange = errors.New("start date must be before end date")
	ErrRangeTooLong = errors.New("stay exceeds the maximum number of nights")
	ErrInvalidDate  = errors.New("date must be formatted as YYYY-MM-DD")
	ErrRangeInPast  = errors.New("stay cannot start in the past")
	ErrNoNightsLeft = errors.New("no nights remain in range")
)

// DateRange is the half-open stay [start, end) of calendar dates at UTC midnight.
type DateRange struct {
	start time.Time
	end   time.Time
}

func NewDateRange(start, end time.Time) (DateRange, error) {
	s, e := ToDate(start), ToDate(end)
	if !s.Before(e) {
		return DateRange{}, ErrInvalidRange
	}
	r := DateRange{start: s, end: e}
	if r.Nights() > MaxNights {
		return DateRange{}, ErrRangeTooLong
	}
	return r, nil
}

func ParseDateRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, err
	}
	return NewDateRange(s, e)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// ToDate truncates t to its calendar date in UTC.
func ToDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func (r DateRange) Start() time.Time { return r.start }
func (r DateRange) End() time.Time   { return r.end }

func (r DateRange) Nights() int {
	return int(r.end.Sub(r.start) / oneDay)
}

func (r DateRange) Days() []time.Time {
	days := make([]time.Time, 0, r.Nights())
	for d := r.start; d.Before(r.end); d = d.Add(oneDay) {
		days = append(days, d)
	}
	return days
}

func (r DateRange) Contains(day time.Time) bool {
	d := ToDate(day)
	return !d.Before(r.start) && d.Before(r.end)
}

func (r DateRange) Overlaps(other DateRange) bool {
	return r.start.Before(other.end) && other.start.Before(r.end)
}

// From returns the part of the range on or after day.
func (r DateRange) From(day time.Time) (DateRange, error) {
	d := ToDate(day)
	if !d.After(r.start) {
		return r, nil
	}
	if !d.Before(r.end) {
		return DateRange{}, ErrNoNightsLeft
	}
	return DateRange{start: d, end: r.end}, nil
}

// StartsBefore reports whether the stay starts before the calendar date of t.
func (r DateRange) StartsBefore(t time.Time) bool {
	return r.start.Before(ToDate(t))
}

func (r DateRange) IsZero() bool {
	return r.start.IsZero() && r.end.IsZero()
}

func (r DateRange) String() string {
	return r.start.Format(DateLayout) + "/" + r.end.Format(DateLayout)
}
