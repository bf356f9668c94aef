package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointment-platform/internal/observability/metrics"
	redisclient "github.com/hackgods/clinic-appointment-platform/internal/redis"
)

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventAppointmentAccepted  = "APPOINTMENT_ACCEPTED"
	EventAppointmentRejected  = "APPOINTMENT_REJECTED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventAppointmentReviewed  = "APPOINTMENT_REVIEWED"
	EventAppointmentSurveyed  = "APPOINTMENT_SURVEYED"
)

type Service struct {
	repo    Repository
	locker  redisclient.Locker
	logger  zerolog.Logger
	metrics *metrics.ClinicMetrics
	now     func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, logger zerolog.Logger, m *metrics.ClinicMetrics) *Service {
	if locker == nil {
		locker = redisclient.NoopLocker{}
	}
	return &Service{
		repo:    repo,
		locker:  locker,
		logger:  logger.With().Str("component", "appointment").Logger(),
		metrics: m,
		now:     time.Now,
	}
}

// CompletionRecords are the ids of entities created upstream before completion.
type CompletionRecords struct {
	MedicalRecordID uuid.UUID
	PatientReviewID uuid.UUID
}

// Create books a new appointment in the unassigned state.
// When a specialist is chosen the re-check and insert run under a distributed
// lock; the storage uniqueness constraint is the final arbiter.
func (s *Service) Create(ctx context.Context, actor Actor, in NewAppointment) (*Appointment, error) {
	if !Permitted(OpCreate, actor.Role) {
		return nil, s.fail(OpCreate, "", ErrActionNotPermitted)
	}
	if err := validateNew(in); err != nil {
		return nil, s.fail(OpCreate, "", err)
	}
	in.ScheduledAt = in.ScheduledAt.Truncate(time.Minute)
	in.PatientName = strings.TrimSpace(in.PatientName)
	in.SpecialistName = strings.TrimSpace(in.SpecialistName)
	in.Specialty = strings.TrimSpace(in.Specialty)

	if in.SpecialistID == nil {
		created, err := s.repo.CreateAppointment(ctx, in)
		if err != nil {
			return nil, s.createError(err)
		}
		s.created(ctx, actor, created)
		return created, nil
	}

	var created *Appointment
	err := s.locker.WithLock(ctx, bookingLockKey(*in.SpecialistID, in.ScheduledAt), func(lockCtx context.Context) error {
		existing, err := s.repo.FindActiveAt(lockCtx, *in.SpecialistID, in.ScheduledAt)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check existing booking: %w", err)
		}
		if existing != nil {
			return ErrSlotConflict
		}

		appt, err := s.repo.CreateAppointment(lockCtx, in)
		if err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			err = ErrSlotBeingBooked
		}
		return nil, s.createError(err)
	}

	s.created(ctx, actor, created)
	return created, nil
}

func (s *Service) createError(err error) error {
	switch {
	case errors.Is(err, ErrSlotConflict):
		s.metrics.ObserveSlotConflict()
		return s.fail(OpCreate, "", ErrSlotConflict)
	case errors.Is(err, ErrSlotBeingBooked):
		return s.fail(OpCreate, "", ErrSlotBeingBooked)
	}
	s.metrics.ObserveTransition(string(OpCreate), "error")
	return fmt.Errorf("create appointment: %w", err)
}

func (s *Service) created(ctx context.Context, actor Actor, appt *Appointment) {
	s.metrics.ObserveTransition(string(OpCreate), "ok")
	payload := map[string]any{
		"patient_id": appt.PatientID.String(),
		"specialty":  appt.Specialty,
		"actor_role": actor.Role.String(),
	}
	if appt.SpecialistID != nil {
		payload["specialist_id"] = appt.SpecialistID.String()
	}
	if appt.ScheduledAt != nil {
		payload["scheduled_at"] = appt.ScheduledAt.UTC()
	}
	s.logEvent(ctx, appt.ID, EventAppointmentCreated, payload)
}

func validateNew(in NewAppointment) error {
	switch {
	case in.PatientID == uuid.Nil:
		return missingField("patient_id")
	case strings.TrimSpace(in.PatientName) == "":
		return missingField("patient_name")
	case strings.TrimSpace(in.Specialty) == "":
		return missingField("specialty")
	case in.ScheduledAt.IsZero():
		return missingField("scheduled_at")
	case in.SpecialistID != nil && *in.SpecialistID == uuid.Nil:
		return missingField("specialist_id")
	case in.SpecialistID != nil && strings.TrimSpace(in.SpecialistName) == "":
		return missingField("specialist_name")
	}
	return nil
}

func bookingLockKey(specialistID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("booking:%s:%d", specialistID, at.Unix())
}

// Accept moves an unassigned request to accepted and stores the standard reminder.
// A request booked without a specialist is assigned to the accepting one.
func (s *Service) Accept(ctx context.Context, actor Actor, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, actor, id, OpAccept, EventAppointmentAccepted, func(a *Appointment) (*Patch, error) {
		p := statusPatch(StatusAccepted)
		reminder := AcceptedReminder
		p.ReasonMessage = &reminder
		if a.SpecialistID == nil {
			sid := actor.ID
			p.SpecialistID = &sid
			if name := strings.TrimSpace(actor.Name); name != "" {
				p.SpecialistName = &name
			}
		}
		return &p, nil
	})
}

// Reject declines an unassigned request; reason is required.
func (s *Service) Reject(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*Appointment, error) {
	return s.transition(ctx, actor, id, OpReject, EventAppointmentRejected, reasonPatch(StatusRejected, reason))
}

// Cancel withdraws an unassigned or accepted appointment; reason is required.
func (s *Service) Cancel(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*Appointment, error) {
	return s.transition(ctx, actor, id, OpCancel, EventAppointmentCancelled, reasonPatch(StatusCancelled, reason))
}

func reasonPatch(to Status, reason string) func(*Appointment) (*Patch, error) {
	return func(*Appointment) (*Patch, error) {
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return nil, missingField("reason_message")
		}
		p := statusPatch(to)
		p.ReasonMessage = &reason
		return &p, nil
	}
}

// Complete attaches the medical record and patient review produced upstream
// and flips the appointment to completed in a single update. A second call on
// an already completed appointment is rejected with ErrInvalidTransition.
func (s *Service) Complete(ctx context.Context, actor Actor, id uuid.UUID, recs CompletionRecords) (*Appointment, error) {
	return s.transition(ctx, actor, id, OpComplete, EventAppointmentCompleted, func(*Appointment) (*Patch, error) {
		if recs.MedicalRecordID == uuid.Nil {
			return nil, missingField("medical_record_id")
		}
		if recs.PatientReviewID == uuid.Nil {
			return nil, missingField("patient_review_id")
		}
		p := statusPatch(StatusCompleted)
		p.MedicalRecordID = &recs.MedicalRecordID
		p.PatientReviewID = &recs.PatientReviewID
		return &p, nil
	})
}

// AttachSpecialistReview records the patient's review of the specialist.
// Re-attaching the same id is a no-op.
func (s *Service) AttachSpecialistReview(ctx context.Context, actor Actor, id, reviewID uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, actor, id, OpAttachSpecialistReview, EventAppointmentReviewed, attachOnce("specialist_review_id", reviewID,
		func(a *Appointment) *uuid.UUID { return a.SpecialistReviewID },
		func(p *Patch, v *uuid.UUID) { p.SpecialistReviewID = v },
	))
}

// AttachSurvey records the satisfaction survey answered after completion.
func (s *Service) AttachSurvey(ctx context.Context, actor Actor, id, surveyID uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, actor, id, OpAttachSurvey, EventAppointmentSurveyed, attachOnce("survey_id", surveyID,
		func(a *Appointment) *uuid.UUID { return a.SurveyID },
		func(p *Patch, v *uuid.UUID) { p.SurveyID = v },
	))
}

func attachOnce(field string, value uuid.UUID, current func(*Appointment) *uuid.UUID, set func(*Patch, *uuid.UUID)) func(*Appointment) (*Patch, error) {
	return func(a *Appointment) (*Patch, error) {
		if value == uuid.Nil {
			return nil, missingField(field)
		}
		if existing := current(a); existing != nil {
			if *existing == value {
				return nil, nil
			}
			return nil, fmt.Errorf("%w: %s already attached", ErrInvalidTransition, field)
		}
		var p Patch
		set(&p, &value)
		return &p, nil
	}
}

// Precheck reports whether actor may apply op to the appointment as it is
// stored now, without writing. Callers that must create records before
// completing use it to avoid orphaned records on a doomed transition.
func (s *Service) Precheck(ctx context.Context, actor Actor, id uuid.UUID, op Operation) (*Appointment, error) {
	if !Permitted(op, actor.Role) {
		return nil, s.fail(op, "", ErrActionNotPermitted)
	}

	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, s.fail(op, "", ErrAppointmentNotFound)
		}
		s.metrics.ObserveTransition(string(op), "error")
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if !actor.mayActOn(appt) {
		return nil, s.fail(op, appt.Status, ErrActionNotPermitted)
	}
	if !CanApply(op, appt.Status) {
		return nil, s.fail(op, appt.Status, ErrInvalidTransition)
	}
	return appt, nil
}

// transition runs the shared read, validate, conditional-write sequence.
// build returns a nil patch for an idempotent no-op.
func (s *Service) transition(ctx context.Context, actor Actor, id uuid.UUID, op Operation, event string, build func(*Appointment) (*Patch, error)) (*Appointment, error) {
	appt, err := s.Precheck(ctx, actor, id, op)
	if err != nil {
		return nil, err
	}

	patch, err := build(appt)
	if err != nil {
		return nil, s.fail(op, appt.Status, err)
	}
	if patch == nil {
		s.metrics.ObserveTransition(string(op), "noop")
		return appt, nil
	}

	updated, err := s.repo.UpdateAppointment(ctx, appt.ID, appt.Status, *patch)
	if err != nil {
		switch {
		case errors.Is(err, ErrStatusChanged):
			// Lost the race: report against the status that won.
			from := appt.Status
			if current, getErr := s.repo.GetAppointment(ctx, appt.ID); getErr == nil {
				from = current.Status
			}
			return nil, s.fail(op, from, ErrInvalidTransition)
		case errors.Is(err, ErrAppointmentNotFound):
			return nil, s.fail(op, appt.Status, ErrAppointmentNotFound)
		case errors.Is(err, ErrSlotConflict):
			// Assigning a specialist collided with one of their bookings.
			s.metrics.ObserveSlotConflict()
			return nil, s.fail(op, appt.Status, ErrSlotConflict)
		}
		s.metrics.ObserveTransition(string(op), "error")
		return nil, fmt.Errorf("%s appointment: %w", op, err)
	}

	s.metrics.ObserveTransition(string(op), "ok")
	s.logEvent(ctx, updated.ID, event, map[string]any{
		"from":       appt.Status,
		"to":         updated.Status,
		"actor_id":   actor.ID.String(),
		"actor_role": actor.Role.String(),
	})
	s.logger.Info().
		Str("appointment_id", updated.ID.String()).
		Str("operation", string(op)).
		Str("from", string(appt.Status)).
		Str("to", string(updated.Status)).
		Msg("appointment transition applied")

	return updated, nil
}

func (s *Service) fail(op Operation, from Status, err error) error {
	s.metrics.ObserveTransition(string(op), outcomeLabel(err))
	return &TransitionError{Op: string(op), From: from, Err: err}
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrAppointmentNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrMissingRequiredField):
		return "missing_field"
	case errors.Is(err, ErrSlotConflict):
		return "slot_conflict"
	case errors.Is(err, ErrSlotBeingBooked):
		return "being_booked"
	case errors.Is(err, ErrActionNotPermitted):
		return "forbidden"
	}
	return "error"
}

// CancelStaleRequests cancels unassigned requests whose slot time has passed
// without a specialist answering. Intended to be called by the sweeper.
func (s *Service) CancelStaleRequests(ctx context.Context, batch int) (int, error) {
	if batch <= 0 {
		batch = 100
	}
	stale, err := s.repo.FindStaleUnassigned(ctx, s.now(), batch)
	if err != nil {
		return 0, fmt.Errorf("find stale requests: %w", err)
	}

	cancelled := 0
	for _, appt := range stale {
		_, err := s.Cancel(ctx, SystemActor, appt.ID, StaleRequestReason)
		if err != nil {
			if IsDomainError(err) {
				// Someone acted on it after we listed it.
				s.logger.Debug().Err(err).Str("appointment_id", appt.ID.String()).Msg("stale request already handled")
				continue
			}
			s.logger.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("failed to cancel stale request")
			continue
		}
		cancelled++
	}

	return cancelled, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = []byte(`{}`)
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("failed to insert event log")
	}
}

// Get retrieves a single appointment.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

// ListForPatient retrieves appointments requested by a patient, newest first.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	appointments, err := s.repo.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return appointments, nil
}

// ListForSpecialist retrieves appointments assigned to a specialist, newest first.
func (s *Service) ListForSpecialist(ctx context.Context, specialistID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	appointments, err := s.repo.ListBySpecialist(ctx, specialistID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by specialist: %w", err)
	}
	return appointments, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
