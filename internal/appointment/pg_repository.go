package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// activeSlotConstraint is the partial unique index guarding double booking.
const activeSlotConstraint = "appointments_active_slot_uniq"

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	db dbtx
}

// NewPgRepository accepts a *pgxpool.Pool or anything with the same query surface.
func NewPgRepository(db dbtx) *PgRepository {
	return &PgRepository{db: db}
}

const appointmentColumns = `id, patient_id, patient_name, specialist_id, specialist_name, specialty,
		requested_at, scheduled_at, status, is_cancelable, reason_message,
		medical_record_id, patient_review_id, specialist_review_id, survey_id, updated_at`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.PatientName,
		&a.SpecialistID,
		&a.SpecialistName,
		&a.Specialty,
		&a.RequestedAt,
		&a.ScheduledAt,
		&status,
		&a.IsCancelable,
		&a.ReasonMessage,
		&a.MedicalRecordID,
		&a.PatientReviewID,
		&a.SpecialistReviewID,
		&a.SurveyID,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Status = Status(status)
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func isActiveSlotViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && (pgErr.ConstraintName == "" || pgErr.ConstraintName == activeSlotConstraint)
}

// Interface methods

func (r *PgRepository) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, in NewAppointment) (*Appointment, error) {
	id := uuid.New()

	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, patient_name, specialist_id, specialist_name, specialty,
			requested_at, scheduled_at, status, is_cancelable, reason_message, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), $7, 'unassigned', true, '', now())
		RETURNING `+appointmentColumns,
		id, in.PatientID, in.PatientName, in.SpecialistID, in.SpecialistName, in.Specialty, in.ScheduledAt)

	appt, err := scanAppointment(row)
	if err != nil {
		if isActiveSlotViolation(err) {
			return nil, ErrSlotConflict
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	return appt, nil
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, id uuid.UUID, expected Status, patch Patch) (*Appointment, error) {
	var status *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}

	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = COALESCE($3::text, status),
		    is_cancelable = COALESCE($4::boolean, is_cancelable),
		    specialist_id = COALESCE($10::uuid, specialist_id),
		    specialist_name = COALESCE($11::text, specialist_name),
		    reason_message = COALESCE($5::text, reason_message),
		    medical_record_id = COALESCE($6::uuid, medical_record_id),
		    patient_review_id = COALESCE($7::uuid, patient_review_id),
		    specialist_review_id = COALESCE($8::uuid, specialist_review_id),
		    survey_id = COALESCE($9::uuid, survey_id),
		    updated_at = now()
		WHERE id = $1
		  AND status = $2
		RETURNING `+appointmentColumns,
		id, string(expected), status, patch.IsCancelable, patch.ReasonMessage,
		patch.MedicalRecordID, patch.PatientReviewID, patch.SpecialistReviewID, patch.SurveyID,
		patch.SpecialistID, patch.SpecialistName)

	appt, err := scanAppointment(row)
	if err == nil {
		return appt, nil
	}
	if isActiveSlotViolation(err) {
		return nil, ErrSlotConflict
	}
	if !errors.Is(err, ErrAppointmentNotFound) {
		return nil, fmt.Errorf("update appointment: %w", err)
	}

	// No row matched: either it does not exist or the status moved on.
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check appointment exists: %w", err)
	}
	if exists {
		return nil, ErrStatusChanged
	}
	return nil, ErrAppointmentNotFound
}

func (r *PgRepository) ListBySpecialistAndRange(ctx context.Context, specialistID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE specialist_id = $1
		  AND scheduled_at >= $2
		  AND scheduled_at < $3
		ORDER BY scheduled_at
	`, specialistID, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) FindActiveAt(ctx context.Context, specialistID uuid.UUID, at time.Time) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE specialist_id = $1
		  AND scheduled_at = $2
		  AND status NOT IN ('rejected', 'cancelled')
		LIMIT 1
	`, specialistID, at)
	return scanAppointment(row)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY requested_at DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListBySpecialist(ctx context.Context, specialistID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE specialist_id = $1
		ORDER BY requested_at DESC
		LIMIT $2 OFFSET $3
	`, specialistID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) FindStaleUnassigned(ctx context.Context, before time.Time, limit int) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'unassigned'
		  AND scheduled_at IS NOT NULL
		  AND scheduled_at < $1
		ORDER BY scheduled_at
		LIMIT $2
	`, before, limit)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	if len(ev.Payload) == 0 {
		ev.Payload = []byte(`{}`)
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
