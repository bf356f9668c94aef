package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgStore struct {
	db querier
}

func NewPgStore(db querier) *PgStore {
	return &PgStore{db: db}
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrRecordNotFound
	}
	return err
}

func (s *PgStore) CreateMedicalRecord(ctx context.Context, in MedicalRecord) (*MedicalRecord, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	in.ID = uuid.New()
	err := s.db.QueryRow(ctx, `
		INSERT INTO medical_records (id, appointment_id, patient_id, specialist_id, diagnosis, treatment, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING created_at
	`, in.ID, in.AppointmentID, in.PatientID, in.SpecialistID, in.Diagnosis, in.Treatment, in.Notes).Scan(&in.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert medical record: %w", err)
	}
	return &in, nil
}

func (s *PgStore) CreateReview(ctx context.Context, in Review) (*Review, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	in.ID = uuid.New()
	err := s.db.QueryRow(ctx, `
		INSERT INTO reviews (id, appointment_id, author_id, kind, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING created_at
	`, in.ID, in.AppointmentID, in.AuthorID, string(in.Kind), in.Rating, in.Comment).Scan(&in.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}
	return &in, nil
}

func (s *PgStore) CreateSurvey(ctx context.Context, in Survey) (*Survey, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	in.ID = uuid.New()
	err := s.db.QueryRow(ctx, `
		INSERT INTO surveys (id, appointment_id, patient_id, score, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at
	`, in.ID, in.AppointmentID, in.PatientID, in.Score, in.Comment).Scan(&in.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert survey: %w", err)
	}
	return &in, nil
}

func (s *PgStore) GetMedicalRecord(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	var m MedicalRecord
	err := s.db.QueryRow(ctx, `
		SELECT id, appointment_id, patient_id, specialist_id, diagnosis, treatment, notes, created_at
		FROM medical_records
		WHERE id = $1
	`, id).Scan(&m.ID, &m.AppointmentID, &m.PatientID, &m.SpecialistID, &m.Diagnosis, &m.Treatment, &m.Notes, &m.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *PgStore) GetReview(ctx context.Context, id uuid.UUID) (*Review, error) {
	var (
		r    Review
		kind string
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, appointment_id, author_id, kind, rating, comment, created_at
		FROM reviews
		WHERE id = $1
	`, id).Scan(&r.ID, &r.AppointmentID, &r.AuthorID, &kind, &r.Rating, &r.Comment, &r.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	r.Kind = ReviewKind(kind)
	return &r, nil
}

func (s *PgStore) GetSurvey(ctx context.Context, id uuid.UUID) (*Survey, error) {
	var sv Survey
	err := s.db.QueryRow(ctx, `
		SELECT id, appointment_id, patient_id, score, comment, created_at
		FROM surveys
		WHERE id = $1
	`, id).Scan(&sv.ID, &sv.AppointmentID, &sv.PatientID, &sv.Score, &sv.Comment, &sv.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &sv, nil
}
