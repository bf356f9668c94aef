package specialist

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-platform/internal/schedule"
)

type MemoryRepository struct {
	mu          sync.RWMutex
	specialists map[uuid.UUID]Specialist
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{specialists: make(map[uuid.UUID]Specialist)}
}

// Add registers a specialist, mostly for tests and local runs.
func (r *MemoryRepository) Add(sp Specialist) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sp.CreatedAt.IsZero() {
		sp.CreatedAt = time.Now()
		sp.UpdatedAt = sp.CreatedAt
	}
	r.specialists[sp.ID] = sp
}

func (r *MemoryRepository) GetSpecialist(_ context.Context, id uuid.UUID) (*Specialist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sp, ok := r.specialists[id]
	if !ok {
		return nil, ErrSpecialistNotFound
	}
	return &sp, nil
}

func (r *MemoryRepository) ListBySpecialty(_ context.Context, specialty string) ([]Specialist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Specialist
	for _, sp := range r.specialists {
		if specialty == "" || sp.Specialty == specialty {
			out = append(out, sp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepository) UpdateSchedule(_ context.Context, id uuid.UUID, sched schedule.Schedule) (*Specialist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sp, ok := r.specialists[id]
	if !ok {
		return nil, ErrSpecialistNotFound
	}
	sp.Schedule = sched
	sp.UpdatedAt = time.Now()
	r.specialists[id] = sp
	return &sp, nil
}
