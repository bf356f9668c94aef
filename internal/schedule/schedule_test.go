package schedule

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "9:00", want: "09:00"},
		{in: "09:00", want: "09:00"},
		{in: " 18:45 ", want: "18:45"},
		{in: "0:05", want: "00:05"},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "1200", wantErr: true},
		{in: "12:5", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseClock_UnpaddedEqualsPadded(t *testing.T) {
	assert.Equal(t, MustClock("09:00"), MustClock("9:00"))
}

func TestScheduleValidate(t *testing.T) {
	weekdays := NewWorkDays(time.Monday, time.Thursday)

	tests := []struct {
		name    string
		sched   Schedule
		wantErr bool
	}{
		{"valid", Schedule{Days: weekdays, Hours: WorkHours{Start: MustClock("08:00"), End: MustClock("19:00")}}, false},
		{"start equals end", Schedule{Days: weekdays, Hours: WorkHours{Start: MustClock("10:00"), End: MustClock("10:00")}}, true},
		{"start after end", Schedule{Days: weekdays, Hours: WorkHours{Start: MustClock("12:00"), End: MustClock("09:00")}}, true},
		{"before opening", Schedule{Days: weekdays, Hours: WorkHours{Start: MustClock("07:30"), End: MustClock("12:00")}}, true},
		{"after closing", Schedule{Days: weekdays, Hours: WorkHours{Start: MustClock("10:00"), End: MustClock("19:15")}}, true},
		{"sunday", Schedule{Days: weekdays.With(time.Sunday), Hours: WorkHours{Start: MustClock("09:00"), End: MustClock("12:00")}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sched.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvariantViolation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestScheduleJSON(t *testing.T) {
	raw := `{"work_days":["Monday","wednesday"],"work_hours":{"start":"8:00","end":"09:30"}}`

	var s Schedule
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	assert.True(t, s.Days.Has(time.Monday))
	assert.True(t, s.Days.Has(time.Wednesday))
	assert.False(t, s.Days.Has(time.Tuesday))
	assert.Equal(t, MustClock("08:00"), s.Hours.Start)

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"work_days":["monday","wednesday"],"work_hours":{"start":"08:00","end":"09:30"}}`, string(out))
}

func TestParseWorkDays_Unknown(t *testing.T) {
	_, err := ParseWorkDays([]string{"monday", "funday"})
	assert.Error(t, err)
}
