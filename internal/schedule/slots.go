package schedule

import "time"

const (
	SlotLength         = 45 * time.Minute
	DefaultHorizonDays = 15
)

const slotMinutes = Clock(SlotLength / time.Minute)

// Slot is a bookable candidate. Slots are generated per query and never stored.
type Slot struct {
	Date  time.Time // midnight of the calendar day, in the clinic location
	Start Clock
}

// At is the concrete instant the slot begins.
func (s Slot) At() time.Time {
	y, m, d := s.Date.Date()
	return time.Date(y, m, d, s.Start.Hour(), s.Start.Minute(), 0, 0, s.Date.Location())
}

// ClockOf is the time of day of t in its own location.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

// DayKey formats a calendar day the way availability responses and occupied
// sets key it.
func DayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

// Midnight truncates t to the start of its calendar day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaySlots steps from hours.Start in SlotLength increments while the start time
// is strictly before hours.End. An inverted or empty window yields nil.
func DaySlots(hours WorkHours) []Clock {
	var out []Clock
	for c := hours.Start; c < hours.End; c += slotMinutes {
		out = append(out, c)
	}
	return out
}

// MatchingDates walks forward from today (inclusive) until horizonDays dates
// whose weekday is in days have been collected.
func MatchingDates(days WorkDays, today time.Time, horizonDays int) []time.Time {
	if days.Empty() {
		return nil
	}
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}

	dates := make([]time.Time, 0, horizonDays)
	for d := Midnight(today); len(dates) < horizonDays; d = d.AddDate(0, 0, 1) {
		if days.Has(d.Weekday()) {
			dates = append(dates, d)
		}
	}
	return dates
}

// GenerateCandidates produces the ordered candidate slots over the horizon,
// by date then by time of day.
func GenerateCandidates(days WorkDays, hours WorkHours, today time.Time, horizonDays int) []Slot {
	dates := MatchingDates(days, today, horizonDays)
	starts := DaySlots(hours)

	out := make([]Slot, 0, len(dates)*len(starts))
	for _, date := range dates {
		for _, start := range starts {
			out = append(out, Slot{Date: date, Start: start})
		}
	}
	return out
}
