package calendar

import "time"

type Availability struct {
	Available   bool
	Unavailable []time.Time
}

// Check treats held days as unavailable: another attempt is settling them.
func Check(r DateRange, days []Day) Availability {
	result := Availability{Available: true}
	for _, d := range days {
		if !r.Contains(d.Date) {
			continue
		}
		if !d.IsAvailable() {
			result.Available = false
			result.Unavailable = append(result.Unavailable, ToDate(d.Date))
		}
	}
	return result
}
