package records

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrInvalidRecord  = errors.New("invalid record")
)

type ReviewKind string

const (
	ReviewByPatient    ReviewKind = "patient"
	ReviewBySpecialist ReviewKind = "specialist"
)

// MedicalRecord is written by the specialist when closing an appointment.
type MedicalRecord struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	SpecialistID  uuid.UUID `json:"specialist_id"`
	Diagnosis     string    `json:"diagnosis"`
	Treatment     string    `json:"treatment"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type Review struct {
	ID            uuid.UUID  `json:"id"`
	AppointmentID uuid.UUID  `json:"appointment_id"`
	AuthorID      uuid.UUID  `json:"author_id"`
	Kind          ReviewKind `json:"kind"`
	Rating        int        `json:"rating"`
	Comment       string     `json:"comment,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Survey is the patient's satisfaction survey, scored 1 to 10.
type Survey struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	Score         int       `json:"score"`
	Comment       string    `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (m MedicalRecord) validate() error {
	if m.AppointmentID == uuid.Nil || m.PatientID == uuid.Nil || m.SpecialistID == uuid.Nil {
		return fmt.Errorf("%w: medical record needs appointment, patient and specialist", ErrInvalidRecord)
	}
	if strings.TrimSpace(m.Diagnosis) == "" {
		return fmt.Errorf("%w: diagnosis is required", ErrInvalidRecord)
	}
	return nil
}

func (r Review) validate() error {
	if r.AppointmentID == uuid.Nil || r.AuthorID == uuid.Nil {
		return fmt.Errorf("%w: review needs appointment and author", ErrInvalidRecord)
	}
	if r.Kind != ReviewByPatient && r.Kind != ReviewBySpecialist {
		return fmt.Errorf("%w: unknown review kind %q", ErrInvalidRecord, r.Kind)
	}
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidRecord)
	}
	return nil
}

func (s Survey) validate() error {
	if s.AppointmentID == uuid.Nil || s.PatientID == uuid.Nil {
		return fmt.Errorf("%w: survey needs appointment and patient", ErrInvalidRecord)
	}
	if s.Score < 1 || s.Score > 10 {
		return fmt.Errorf("%w: score must be between 1 and 10", ErrInvalidRecord)
	}
	return nil
}
