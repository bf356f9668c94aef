package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvariantViolation = errors.New("schedule invariant violated")

// Operating window of the clinic. Work hours must fall inside it.
var (
	OpeningTime = MustClock("08:00")
	ClosingTime = MustClock("19:00")
)

// WorkDays is the set of weekdays a specialist attends, one bit per time.Weekday.
type WorkDays uint8

func NewWorkDays(days ...time.Weekday) WorkDays {
	var w WorkDays
	for _, d := range days {
		w = w.With(d)
	}
	return w
}

// ParseWorkDays parses weekday names such as "monday" or "Wednesday".
func ParseWorkDays(names []string) (WorkDays, error) {
	var w WorkDays
	for _, name := range names {
		d, err := ParseWeekday(name)
		if err != nil {
			return 0, err
		}
		w = w.With(d)
	}
	return w, nil
}

func ParseWeekday(name string) (time.Weekday, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == n {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}

func (w WorkDays) With(d time.Weekday) WorkDays {
	return w | 1<<uint(d)
}

func (w WorkDays) Has(d time.Weekday) bool {
	return w&(1<<uint(d)) != 0
}

func (w WorkDays) Empty() bool {
	return w == 0
}

// Days lists the set in Sunday..Saturday order.
func (w WorkDays) Days() []time.Weekday {
	var out []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if w.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

// Names renders the set as lowercase weekday names.
func (w WorkDays) Names() []string {
	days := w.Days()
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, strings.ToLower(d.String()))
	}
	return out
}

func (w WorkDays) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.Names())
}

func (w *WorkDays) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	parsed, err := ParseWorkDays(names)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

type WorkHours struct {
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

// Schedule is the recurring weekly availability of a specialist.
type Schedule struct {
	Days  WorkDays  `json:"work_days"`
	Hours WorkHours `json:"work_hours"`
}

// Validate enforces the schedule-edit invariants: Monday to Saturday only,
// hours inside the operating window and start strictly before end.
func (s Schedule) Validate() error {
	if s.Days.Has(time.Sunday) {
		return fmt.Errorf("%w: sunday is not a working day", ErrInvariantViolation)
	}
	if !s.Hours.Start.Valid() || !s.Hours.End.Valid() {
		return fmt.Errorf("%w: work hours out of range", ErrInvariantViolation)
	}
	if s.Hours.Start < OpeningTime || s.Hours.End > ClosingTime {
		return fmt.Errorf("%w: work hours must be within %s-%s", ErrInvariantViolation, OpeningTime, ClosingTime)
	}
	if s.Hours.Start >= s.Hours.End {
		return fmt.Errorf("%w: start %s must be before end %s", ErrInvariantViolation, s.Hours.Start, s.Hours.End)
	}
	return nil
}
