package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository. It enforces the same
// single-occupant rule per (specialist, scheduled_at) as the database index.
type MemoryRepository struct {
	mu           sync.RWMutex
	appointments map[uuid.UUID]Appointment
	events       []EventLog
	now          func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		appointments: make(map[uuid.UUID]Appointment),
		now:          time.Now,
	}
}

func (r *MemoryRepository) GetAppointment(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) CreateAppointment(_ context.Context, in NewAppointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if in.SpecialistID != nil && r.occupiedLocked(*in.SpecialistID, in.ScheduledAt) {
		return nil, ErrSlotConflict
	}

	now := r.now()
	at := in.ScheduledAt
	a := Appointment{
		ID:             uuid.New(),
		PatientID:      in.PatientID,
		PatientName:    in.PatientName,
		SpecialistName: in.SpecialistName,
		Specialty:      in.Specialty,
		RequestedAt:    now,
		ScheduledAt:    &at,
		Status:         StatusUnassigned,
		IsCancelable:   true,
		UpdatedAt:      now,
	}
	if in.SpecialistID != nil {
		sid := *in.SpecialistID
		a.SpecialistID = &sid
	}
	r.appointments[a.ID] = a
	return &a, nil
}

func (r *MemoryRepository) occupiedLocked(specialistID uuid.UUID, at time.Time) bool {
	for _, a := range r.appointments {
		if a.SpecialistID == nil || *a.SpecialistID != specialistID || a.ScheduledAt == nil {
			continue
		}
		if a.ScheduledAt.Equal(at) && a.Status.OccupiesSlot() {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) UpdateAppointment(_ context.Context, id uuid.UUID, expected Status, patch Patch) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if a.Status != expected {
		return nil, ErrStatusChanged
	}

	next := patch.apply(a)
	if patch.SpecialistID != nil && next.ScheduledAt != nil && next.Status.OccupiesSlot() &&
		r.occupiedLocked(*patch.SpecialistID, *next.ScheduledAt) {
		return nil, ErrSlotConflict
	}

	a = next
	a.UpdatedAt = r.now()
	r.appointments[id] = a
	return &a, nil
}

func (r *MemoryRepository) ListBySpecialistAndRange(_ context.Context, specialistID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Appointment
	for _, a := range r.appointments {
		if a.SpecialistID == nil || *a.SpecialistID != specialistID || a.ScheduledAt == nil {
			continue
		}
		if a.ScheduledAt.Before(from) || !a.ScheduledAt.Before(to) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(*out[j].ScheduledAt) })
	return out, nil
}

func (r *MemoryRepository) FindActiveAt(_ context.Context, specialistID uuid.UUID, at time.Time) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.appointments {
		if a.SpecialistID == nil || *a.SpecialistID != specialistID || a.ScheduledAt == nil {
			continue
		}
		if a.ScheduledAt.Equal(at) && a.Status.OccupiesSlot() {
			return &a, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (r *MemoryRepository) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	return r.page(func(a Appointment) bool { return a.PatientID == patientID }, limit, offset), nil
}

func (r *MemoryRepository) ListBySpecialist(_ context.Context, specialistID uuid.UUID, limit, offset int) ([]Appointment, error) {
	return r.page(func(a Appointment) bool {
		return a.SpecialistID != nil && *a.SpecialistID == specialistID
	}, limit, offset), nil
}

func (r *MemoryRepository) page(match func(Appointment) bool, limit, offset int) []Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []Appointment
	for _, a := range r.appointments {
		if match(a) {
			all = append(all, a)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].RequestedAt.After(all[j].RequestedAt) })

	if offset >= len(all) {
		return nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

func (r *MemoryRepository) FindStaleUnassigned(_ context.Context, before time.Time, limit int) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Appointment
	for _, a := range r.appointments {
		if a.Status == StatusUnassigned && a.ScheduledAt != nil && a.ScheduledAt.Before(before) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(*out[j].ScheduledAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev.ID = int64(len(r.events) + 1)
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded event log.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]EventLog(nil), r.events...)
}
