package specialist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointment-platform/internal/schedule"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "specialist").Logger(),
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Specialist, error) {
	sp, err := s.repo.GetSpecialist(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSpecialistNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load specialist: %w", err)
	}
	return sp, nil
}

func (s *Service) ListBySpecialty(ctx context.Context, specialty string) ([]Specialist, error) {
	list, err := s.repo.ListBySpecialty(ctx, specialty)
	if err != nil {
		return nil, fmt.Errorf("list specialists: %w", err)
	}
	return list, nil
}

// EditSchedule revalidates the schedule invariants before persisting.
// Violations wrap schedule.ErrInvariantViolation and leave the stored schedule untouched.
func (s *Service) EditSchedule(ctx context.Context, id uuid.UUID, sched schedule.Schedule) (*Specialist, error) {
	if err := sched.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateSchedule(ctx, id, sched)
	if err != nil {
		if errors.Is(err, ErrSpecialistNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update schedule: %w", err)
	}

	s.logger.Info().
		Str("specialist_id", id.String()).
		Strs("work_days", sched.Days.Names()).
		Str("start", sched.Hours.Start.String()).
		Str("end", sched.Hours.End.String()).
		Msg("schedule updated")

	return updated, nil
}
