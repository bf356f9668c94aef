package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusUnassigned Status = "unassigned"
	StatusAccepted   Status = "accepted"
	StatusRejected   Status = "rejected"
	StatusCancelled  Status = "cancelled"
	StatusCompleted  Status = "completed"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusUnassigned, StatusAccepted, StatusRejected, StatusCancelled, StatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("unknown appointment status %q", s)
}

// Terminal statuses accept no further transition.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Cancelable mirrors the stored is_cancelable flag.
func (s Status) Cancelable() bool {
	return s == StatusUnassigned || s == StatusAccepted
}

// OccupiesSlot reports whether an appointment in this status holds its
// (specialist, scheduled_at) pair. Rejected and cancelled ones free it.
func (s Status) OccupiesSlot() bool {
	return s != StatusRejected && s != StatusCancelled
}

// Role of the acting user. Identity is resolved by the caller.
type Role int

const (
	RolePatient Role = iota + 1
	RoleSpecialist
	RoleAdmin
)

func ParseRole(s string) (Role, error) {
	switch s {
	case "patient":
		return RolePatient, nil
	case "specialist":
		return RoleSpecialist, nil
	case "admin":
		return RoleAdmin, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string {
	switch r {
	case RolePatient:
		return "patient"
	case RoleSpecialist:
		return "specialist"
	case RoleAdmin:
		return "admin"
	}
	return "unknown"
}

// Actor is the already-authenticated user invoking an operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
	// Name is stored as specialist_name when a specialist takes an
	// unassigned request. Optional.
	Name string
}

// mayActOn reports whether the actor may act on appt. Specialists are limited
// to their own appointments.
// One still without a specialist is open to any of them.
func (a Actor) mayActOn(appt *Appointment) bool {
	if a.Role != RoleSpecialist || appt.SpecialistID == nil {
		return true
	}
	return *appt.SpecialistID == a.ID
}

// SystemActor is used by background jobs acting with admin authority.
var SystemActor = Actor{ID: uuid.Nil, Role: RoleAdmin}

type Appointment struct {
	ID                 uuid.UUID
	PatientID          uuid.UUID
	PatientName        string
	SpecialistID       *uuid.UUID
	SpecialistName     string
	Specialty          string
	RequestedAt        time.Time
	ScheduledAt        *time.Time
	Status             Status
	IsCancelable       bool
	ReasonMessage      string
	MedicalRecordID    *uuid.UUID
	PatientReviewID    *uuid.UUID
	SpecialistReviewID *uuid.UUID
	SurveyID           *uuid.UUID
	UpdatedAt          time.Time
}

// NewAppointment is the input of a booking.
type NewAppointment struct {
	PatientID      uuid.UUID
	PatientName    string
	SpecialistID   *uuid.UUID
	SpecialistName string
	Specialty      string
	ScheduledAt    time.Time
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Status             *Status
	IsCancelable       *bool
	SpecialistID       *uuid.UUID
	SpecialistName     *string
	ReasonMessage      *string
	MedicalRecordID    *uuid.UUID
	PatientReviewID    *uuid.UUID
	SpecialistReviewID *uuid.UUID
	SurveyID           *uuid.UUID
}

// statusPatch flips status and keeps is_cancelable consistent with it.
func statusPatch(to Status) Patch {
	cancelable := to.Cancelable()
	return Patch{Status: &to, IsCancelable: &cancelable}
}

// apply mutates a copy of a; used by the in-memory repository.
func (p Patch) apply(a Appointment) Appointment {
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.IsCancelable != nil {
		a.IsCancelable = *p.IsCancelable
	}
	if p.SpecialistID != nil {
		id := *p.SpecialistID
		a.SpecialistID = &id
	}
	if p.SpecialistName != nil {
		a.SpecialistName = *p.SpecialistName
	}
	if p.ReasonMessage != nil {
		a.ReasonMessage = *p.ReasonMessage
	}
	if p.MedicalRecordID != nil {
		id := *p.MedicalRecordID
		a.MedicalRecordID = &id
	}
	if p.PatientReviewID != nil {
		id := *p.PatientReviewID
		a.PatientReviewID = &id
	}
	if p.SpecialistReviewID != nil {
		id := *p.SpecialistReviewID
		a.SpecialistReviewID = &id
	}
	if p.SurveyID != nil {
		id := *p.SurveyID
		a.SurveyID = &id
	}
	return a
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
