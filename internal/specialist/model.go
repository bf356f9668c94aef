package specialist

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-platform/internal/schedule"
)

// Specialist holds the schedule-relevant fields of a registered specialist.
type Specialist struct {
	ID        uuid.UUID
	Name      string
	Specialty string
	Schedule  schedule.Schedule
	CreatedAt time.Time
	UpdatedAt time.Time
}
