package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	// ErrStatusChanged is returned by UpdateAppointment when the stored status
	// no longer matches the expected one.
	ErrStatusChanged = errors.New("appointment status changed concurrently")
)

// Repository is the persistence collaborator of the lifecycle service.
type Repository interface {
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// CreateAppointment returns ErrSlotConflict when another appointment already
	// occupies (specialist, scheduled_at).
	CreateAppointment(ctx context.Context, in NewAppointment) (*Appointment, error)

	// UpdateAppointment applies patch atomically, only while status == expected.
	UpdateAppointment(ctx context.Context, id uuid.UUID, expected Status, patch Patch) (*Appointment, error)

	// Availability and conflict checks
	ListBySpecialistAndRange(ctx context.Context, specialistID uuid.UUID, from, to time.Time) ([]Appointment, error)
	FindActiveAt(ctx context.Context, specialistID uuid.UUID, at time.Time) (*Appointment, error)

	// Listing
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)
	ListBySpecialist(ctx context.Context, specialistID uuid.UUID, limit, offset int) ([]Appointment, error)

	// Stale request sweep
	FindStaleUnassigned(ctx context.Context, before time.Time, limit int) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
