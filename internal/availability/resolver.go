package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointment-platform/internal/appointment"
	"github.com/hackgods/clinic-appointment-platform/internal/observability/metrics"
	"github.com/hackgods/clinic-appointment-platform/internal/schedule"
	"github.com/hackgods/clinic-appointment-platform/internal/specialist"
)

var ErrSlotUnavailable = errors.New("slot is not available")

// BookingQuery is the slice of the appointment store the resolver reads.
type BookingQuery interface {
	ListBySpecialistAndRange(ctx context.Context, specialistID uuid.UUID, from, to time.Time) ([]appointment.Appointment, error)
}

type ScheduleSource interface {
	GetSpecialist(ctx context.Context, id uuid.UUID) (*specialist.Specialist, error)
}

// DayAvailability lists the free slot starts of one matching day. Slots is
// never nil so fully booked days still serialize as an empty list.
type DayAvailability struct {
	Date  string           `json:"date"`
	Slots []schedule.Clock `json:"slots"`
}

type Option func(*Resolver)

// WithLocation sets the clinic timezone used to bucket bookings into days.
func WithLocation(loc *time.Location) Option {
	return func(r *Resolver) {
		if loc != nil {
			r.loc = loc
		}
	}
}

func WithHorizonDays(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.horizonDays = n
		}
	}
}

// WithClock overrides the clock IsCandidate and IsAvailable anchor on.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

func WithMetrics(m *metrics.ClinicMetrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

type Resolver struct {
	bookings    BookingQuery
	schedules   ScheduleSource
	logger      zerolog.Logger
	metrics     *metrics.ClinicMetrics
	loc         *time.Location
	horizonDays int
	now         func() time.Time
}

func NewResolver(bookings BookingQuery, schedules ScheduleSource, logger zerolog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		bookings:    bookings,
		schedules:   schedules,
		logger:      logger.With().Str("component", "availability").Logger(),
		loc:         time.UTC,
		horizonDays: schedule.DefaultHorizonDays,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type occupiedKey struct {
	day   string
	start schedule.Clock
}

// Resolve subtracts the specialist's slot-occupying bookings from the
// candidates generated for sched. Every matching date appears in order.
func (r *Resolver) Resolve(ctx context.Context, specialistID uuid.UUID, sched schedule.Schedule, today time.Time) ([]DayAvailability, error) {
	started := time.Now()
	defer func() { r.metrics.ObserveResolve(time.Since(started).Seconds()) }()

	dates := schedule.MatchingDates(sched.Days, today.In(r.loc), r.horizonDays)
	if len(dates) == 0 {
		return []DayAvailability{}, nil
	}

	occupied, err := r.occupied(ctx, specialistID, dates[0], dates[len(dates)-1].AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	starts := schedule.DaySlots(sched.Hours)
	out := make([]DayAvailability, 0, len(dates))
	for _, date := range dates {
		day := DayAvailability{Date: schedule.DayKey(date), Slots: make([]schedule.Clock, 0, len(starts))}
		for _, start := range starts {
			if _, taken := occupied[occupiedKey{day: day.Date, start: start}]; taken {
				continue
			}
			day.Slots = append(day.Slots, start)
		}
		out = append(out, day)
	}

	r.logger.Debug().
		Str("specialist_id", specialistID.String()).
		Int("days", len(out)).
		Int("occupied", len(occupied)).
		Msg("availability resolved")

	return out, nil
}

// ResolveForSpecialist loads the specialist's stored schedule and resolves it.
func (r *Resolver) ResolveForSpecialist(ctx context.Context, specialistID uuid.UUID, today time.Time) ([]DayAvailability, error) {
	sp, err := r.schedules.GetSpecialist(ctx, specialistID)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, specialistID, sp.Schedule, today)
}

// IsCandidate reports whether at is one of the specialist's generated slots
// within the horizon anchored on the resolver clock. Existing bookings are not
// consulted, so a taken slot still counts; the booking path reports that
// collision itself. Slots already started are never candidates.
func (r *Resolver) IsCandidate(ctx context.Context, specialistID uuid.UUID, at time.Time) (bool, error) {
	sp, err := r.schedules.GetSpecialist(ctx, specialistID)
	if err != nil {
		return false, err
	}
	return r.onGrid(sp.Schedule, at), nil
}

// IsAvailable reports whether at is a candidate slot that no slot-occupying
// booking holds. It is advisory: the lock and the unique index decide.
func (r *Resolver) IsAvailable(ctx context.Context, specialistID uuid.UUID, at time.Time) (bool, error) {
	ok, err := r.IsCandidate(ctx, specialistID, at)
	if err != nil || !ok {
		return false, err
	}

	day := schedule.Midnight(at.In(r.loc))
	occupied, err := r.occupied(ctx, specialistID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return false, err
	}
	local := at.In(r.loc)
	_, taken := occupied[occupiedKey{day: schedule.DayKey(local), start: schedule.ClockOf(local)}]
	return !taken, nil
}

func (r *Resolver) onGrid(sched schedule.Schedule, at time.Time) bool {
	local := at.In(r.loc)
	if local.Second() != 0 || local.Nanosecond() != 0 {
		return false
	}
	now := r.now().In(r.loc)
	if local.Before(now) {
		return false
	}

	key, start := schedule.DayKey(local), schedule.ClockOf(local)
	for _, date := range schedule.MatchingDates(sched.Days, now, r.horizonDays) {
		if schedule.DayKey(date) != key {
			continue
		}
		for _, s := range schedule.DaySlots(sched.Hours) {
			if s == start {
				return true
			}
		}
		return false
	}
	return false
}

func (r *Resolver) occupied(ctx context.Context, specialistID uuid.UUID, from, to time.Time) (map[occupiedKey]struct{}, error) {
	booked, err := r.bookings.ListBySpecialistAndRange(ctx, specialistID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	set := make(map[occupiedKey]struct{}, len(booked))
	for _, a := range booked {
		if a.ScheduledAt == nil || !a.Status.OccupiesSlot() {
			continue
		}
		local := a.ScheduledAt.In(r.loc)
		set[occupiedKey{day: schedule.DayKey(local), start: schedule.ClockOf(local)}] = struct{}{}
	}
	return set, nil
}
