package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-appointment-platform/internal/appointment"
	"github.com/hackgods/clinic-appointment-platform/internal/schedule"
	"github.com/hackgods/clinic-appointment-platform/internal/specialist"
)

var monday = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func monWed(start, end string) schedule.Schedule {
	return schedule.Schedule{
		Days:  schedule.NewWorkDays(time.Monday, time.Wednesday),
		Hours: schedule.WorkHours{Start: schedule.MustClock(start), End: schedule.MustClock(end)},
	}
}

type fixture struct {
	resolver     *Resolver
	bookings     *appointment.MemoryRepository
	specialistID uuid.UUID
}

func newFixture(t *testing.T, sched schedule.Schedule, opts ...Option) fixture {
	t.Helper()
	bookings := appointment.NewMemoryRepository()
	specialists := specialist.NewMemoryRepository()
	id := uuid.New()
	specialists.Add(specialist.Specialist{ID: id, Name: "Dr. Ruiz", Specialty: "Cardiology", Schedule: sched})
	return fixture{
		resolver:     NewResolver(bookings, specialists, zerolog.Nop(), opts...),
		bookings:     bookings,
		specialistID: id,
	}
}

func (f fixture) book(t *testing.T, at time.Time) *appointment.Appointment {
	t.Helper()
	sid := f.specialistID
	a, err := f.bookings.CreateAppointment(context.Background(), appointment.NewAppointment{
		PatientID:      uuid.New(),
		PatientName:    "Ana",
		SpecialistID:   &sid,
		SpecialistName: "Dr. Ruiz",
		Specialty:      "Cardiology",
		ScheduledAt:    at,
	})
	require.NoError(t, err)
	return a
}

func (f fixture) setStatus(t *testing.T, a *appointment.Appointment, to appointment.Status) {
	t.Helper()
	_, err := f.bookings.UpdateAppointment(context.Background(), a.ID, a.Status, appointment.Patch{Status: &to})
	require.NoError(t, err)
}

func clocks(ss ...string) []schedule.Clock {
	out := make([]schedule.Clock, 0, len(ss))
	for _, s := range ss {
		out = append(out, schedule.MustClock(s))
	}
	return out
}

func TestResolve_EmptyCalendarMondayWednesday(t *testing.T) {
	f := newFixture(t, monWed("08:00", "09:30"))

	days, err := f.resolver.ResolveForSpecialist(context.Background(), f.specialistID, monday)
	require.NoError(t, err)
	require.Len(t, days, 15)

	for i, d := range days {
		assert.Equal(t, clocks("08:00", "08:45"), d.Slots, "day %s", d.Date)
		date, err := time.Parse(time.DateOnly, d.Date)
		require.NoError(t, err)
		if i%2 == 0 {
			assert.Equal(t, time.Monday, date.Weekday())
		} else {
			assert.Equal(t, time.Wednesday, date.Weekday())
		}
	}
	assert.Equal(t, "2025-03-10", days[0].Date)
	assert.Equal(t, "2025-04-28", days[14].Date)
}

func TestResolve_SubtractsOnlyOccupyingBookings(t *testing.T) {
	f := newFixture(t, monWed("08:00", "09:30"))

	f.book(t, monday.Add(8*time.Hour+45*time.Minute))

	rejected := f.book(t, time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC))
	f.setStatus(t, rejected, appointment.StatusRejected)
	cancelled := f.book(t, time.Date(2025, 3, 12, 8, 45, 0, 0, time.UTC))
	f.setStatus(t, cancelled, appointment.StatusCancelled)

	accepted := f.book(t, time.Date(2025, 3, 17, 8, 0, 0, 0, time.UTC))
	f.setStatus(t, accepted, appointment.StatusAccepted)

	days, err := f.resolver.ResolveForSpecialist(context.Background(), f.specialistID, monday)
	require.NoError(t, err)

	assert.Equal(t, clocks("08:00"), days[0].Slots)
	assert.Equal(t, clocks("08:00", "08:45"), days[1].Slots)
	assert.Equal(t, clocks("08:45"), days[2].Slots)
}

func TestResolve_FullyBookedDayIsRetained(t *testing.T) {
	f := newFixture(t, monWed("08:00", "09:30"))
	f.book(t, monday.Add(8*time.Hour))
	f.book(t, monday.Add(8*time.Hour+45*time.Minute))

	days, err := f.resolver.ResolveForSpecialist(context.Background(), f.specialistID, monday)
	require.NoError(t, err)
	require.Len(t, days, 15)
	assert.Equal(t, "2025-03-10", days[0].Date)
	assert.NotNil(t, days[0].Slots)
	assert.Empty(t, days[0].Slots)
}

func TestResolve_BucketsBookingsInClinicLocation(t *testing.T) {
	loc := time.FixedZone("CLT", -3*60*60)
	f := newFixture(t, monWed("08:00", "09:30"), WithLocation(loc))

	// 11:00 UTC is 08:00 at the clinic.
	f.book(t, time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC))

	days, err := f.resolver.ResolveForSpecialist(context.Background(), f.specialistID, time.Date(2025, 3, 10, 0, 0, 0, 0, loc))
	require.NoError(t, err)
	assert.Equal(t, clocks("08:45"), days[0].Slots)
}

func TestResolve_UnpaddedClockMatchesBookings(t *testing.T) {
	start, err := schedule.ParseClock("9:00")
	require.NoError(t, err)
	sched := schedule.Schedule{
		Days:  schedule.NewWorkDays(time.Monday),
		Hours: schedule.WorkHours{Start: start, End: schedule.MustClock("10:00")},
	}
	f := newFixture(t, sched)
	f.book(t, monday.Add(9*time.Hour))

	days, err := f.resolver.Resolve(context.Background(), f.specialistID, sched, monday)
	require.NoError(t, err)
	assert.Equal(t, clocks("09:45"), days[0].Slots)
}

func TestResolve_HorizonOption(t *testing.T) {
	f := newFixture(t, monWed("08:00", "09:30"), WithHorizonDays(4))

	days, err := f.resolver.ResolveForSpecialist(context.Background(), f.specialistID, monday)
	require.NoError(t, err)
	assert.Len(t, days, 4)
}

type failingBookings struct{ err error }

func (f failingBookings) ListBySpecialistAndRange(context.Context, uuid.UUID, time.Time, time.Time) ([]appointment.Appointment, error) {
	return nil, f.err
}

func TestResolve_EmptyWorkDaysSkipsQuery(t *testing.T) {
	r := NewResolver(failingBookings{err: errors.New("must not be called")}, specialist.NewMemoryRepository(), zerolog.Nop())

	days, err := r.Resolve(context.Background(), uuid.New(), schedule.Schedule{Hours: monWed("08:00", "09:30").Hours}, monday)
	require.NoError(t, err)
	assert.Empty(t, days)
}

func TestResolve_QueryErrorPropagates(t *testing.T) {
	boom := errors.New("connection refused")
	r := NewResolver(failingBookings{err: boom}, specialist.NewMemoryRepository(), zerolog.Nop())

	_, err := r.Resolve(context.Background(), uuid.New(), monWed("08:00", "09:30"), monday)
	assert.ErrorIs(t, err, boom)
}

func TestResolveForSpecialist_UnknownSpecialist(t *testing.T) {
	f := newFixture(t, monWed("08:00", "09:30"))

	_, err := f.resolver.ResolveForSpecialist(context.Background(), uuid.New(), monday)
	assert.ErrorIs(t, err, specialist.ErrSpecialistNotFound)
}

func TestIsAvailable(t *testing.T) {
	f := newFixture(t, monWed("08:00", "09:30"), WithClock(func() time.Time { return monday.Add(7 * time.Hour) }))
	f.book(t, monday.Add(8*time.Hour))

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"free slot", monday.Add(8*time.Hour + 45*time.Minute), true},
		{"booked slot", monday.Add(8 * time.Hour), false},
		{"off grid", monday.Add(8*time.Hour + 30*time.Minute), false},
		{"tuesday", time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC), false},
		{"beyond horizon", time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC), false},
		{"seconds set", monday.Add(8*time.Hour + 45*time.Minute + time.Second), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := f.resolver.IsAvailable(context.Background(), f.specialistID, tc.at)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestIsCandidate_IgnoresBookings(t *testing.T) {
	f := newFixture(t, monWed("08:00", "09:30"), WithClock(func() time.Time { return monday.Add(7 * time.Hour) }))
	f.book(t, monday.Add(8*time.Hour))

	ok, err := f.resolver.IsCandidate(context.Background(), f.specialistID, monday.Add(8*time.Hour))
	require.NoError(t, err)
	assert.True(t, ok, "a taken grid slot is still a candidate")

	ok, err = f.resolver.IsCandidate(context.Background(), f.specialistID, monday.Add(8*time.Hour+30*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.resolver.IsCandidate(context.Background(), uuid.New(), monday.Add(8*time.Hour))
	assert.ErrorIs(t, err, specialist.ErrSpecialistNotFound)
}

func TestIsAvailable_SkipsSlotsAlreadyStartedToday(t *testing.T) {
	now := monday.Add(8*time.Hour + 30*time.Minute)
	f := newFixture(t, monWed("08:00", "09:30"), WithClock(func() time.Time { return now }))

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"started this morning", monday.Add(8 * time.Hour), false},
		{"later today", monday.Add(8*time.Hour + 45*time.Minute), true},
		{"next matching day", time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := f.resolver.IsAvailable(context.Background(), f.specialistID, tc.at)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)

			ok, err = f.resolver.IsCandidate(context.Background(), f.specialistID, tc.at)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}
