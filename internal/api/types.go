package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-platform/internal/appointment"
	"github.com/hackgods/clinic-appointment-platform/internal/availability"
	"github.com/hackgods/clinic-appointment-platform/internal/records"
	"github.com/hackgods/clinic-appointment-platform/internal/schedule"
	"github.com/hackgods/clinic-appointment-platform/internal/specialist"
)

type CreateAppointmentRequest struct {
	PatientID      uuid.UUID  `json:"patient_id"`
	PatientName    string     `json:"patient_name"`
	SpecialistID   *uuid.UUID `json:"specialist_id,omitempty"`
	SpecialistName string     `json:"specialist_name,omitempty"`
	Specialty      string     `json:"specialty"`
	ScheduledAt    time.Time  `json:"scheduled_at"`
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

type MedicalRecordInput struct {
	Diagnosis string `json:"diagnosis"`
	Treatment string `json:"treatment"`
	Notes     string `json:"notes,omitempty"`
}

type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

type SurveyInput struct {
	Score   int    `json:"score"`
	Comment string `json:"comment,omitempty"`
}

// CompleteRequest carries either ids of records created elsewhere or the
// record contents to create before completing.
type CompleteRequest struct {
	MedicalRecordID *uuid.UUID          `json:"medical_record_id,omitempty"`
	PatientReviewID *uuid.UUID          `json:"patient_review_id,omitempty"`
	MedicalRecord   *MedicalRecordInput `json:"medical_record,omitempty"`
	PatientReview   *ReviewInput        `json:"patient_review,omitempty"`
}

type SpecialistReviewRequest struct {
	ReviewID *uuid.UUID   `json:"review_id,omitempty"`
	Review   *ReviewInput `json:"review,omitempty"`
}

type SurveyRequest struct {
	SurveyID *uuid.UUID   `json:"survey_id,omitempty"`
	Survey   *SurveyInput `json:"survey,omitempty"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID              `json:"id"`
	PatientID          uuid.UUID              `json:"patient_id"`
	PatientName        string                 `json:"patient_name"`
	SpecialistID       *uuid.UUID             `json:"specialist_id,omitempty"`
	SpecialistName     string                 `json:"specialist_name,omitempty"`
	Specialty          string                 `json:"specialty"`
	RequestedAt        time.Time              `json:"requested_at"`
	ScheduledAt        *time.Time             `json:"scheduled_at,omitempty"`
	Status             string                 `json:"status"`
	IsCancelable       bool                   `json:"is_cancelable"`
	ReasonMessage      string                 `json:"reason_message,omitempty"`
	MedicalRecordID    *uuid.UUID             `json:"medical_record_id,omitempty"`
	PatientReviewID    *uuid.UUID             `json:"patient_review_id,omitempty"`
	SpecialistReviewID *uuid.UUID             `json:"specialist_review_id,omitempty"`
	SurveyID           *uuid.UUID             `json:"survey_id,omitempty"`
	UpdatedAt          time.Time              `json:"updated_at"`
	MedicalRecord      *records.MedicalRecord `json:"medical_record,omitempty"`
	PatientReview      *records.Review        `json:"patient_review,omitempty"`
	SpecialistReview   *records.Review        `json:"specialist_review,omitempty"`
	Survey             *records.Survey        `json:"survey,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                 a.ID,
		PatientID:          a.PatientID,
		PatientName:        a.PatientName,
		SpecialistID:       a.SpecialistID,
		SpecialistName:     a.SpecialistName,
		Specialty:          a.Specialty,
		RequestedAt:        a.RequestedAt,
		ScheduledAt:        a.ScheduledAt,
		Status:             string(a.Status),
		IsCancelable:       a.IsCancelable,
		ReasonMessage:      a.ReasonMessage,
		MedicalRecordID:    a.MedicalRecordID,
		PatientReviewID:    a.PatientReviewID,
		SpecialistReviewID: a.SpecialistReviewID,
		SurveyID:           a.SurveyID,
		UpdatedAt:          a.UpdatedAt,
	}
}

// withRelated fills the embedded records the loader resolved.
func (resp *AppointmentResponse) withRelated(rel records.Related) {
	if resp.MedicalRecordID != nil {
		resp.MedicalRecord = rel.MedicalRecords[*resp.MedicalRecordID]
	}
	if resp.PatientReviewID != nil {
		resp.PatientReview = rel.Reviews[*resp.PatientReviewID]
	}
	if resp.SpecialistReviewID != nil {
		resp.SpecialistReview = rel.Reviews[*resp.SpecialistReviewID]
	}
	if resp.SurveyID != nil {
		resp.Survey = rel.Surveys[*resp.SurveyID]
	}
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
}

type SpecialistResponse struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	Specialty string            `json:"specialty"`
	Schedule  schedule.Schedule `json:"schedule"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func toSpecialistResponse(sp *specialist.Specialist) SpecialistResponse {
	return SpecialistResponse{
		ID:        sp.ID,
		Name:      sp.Name,
		Specialty: sp.Specialty,
		Schedule:  sp.Schedule,
		UpdatedAt: sp.UpdatedAt,
	}
}

type AvailabilityResponse struct {
	SpecialistID uuid.UUID                      `json:"specialist_id"`
	SlotMinutes  int                            `json:"slot_minutes"`
	Days         []availability.DayAvailability `json:"days"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
