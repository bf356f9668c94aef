package specialist

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-platform/internal/schedule"
)

var ErrSpecialistNotFound = errors.New("specialist not found")

type Repository interface {
	GetSpecialist(ctx context.Context, id uuid.UUID) (*Specialist, error)
	ListBySpecialty(ctx context.Context, specialty string) ([]Specialist, error)
	UpdateSchedule(ctx context.Context, id uuid.UUID, sched schedule.Schedule) (*Specialist, error)
}
