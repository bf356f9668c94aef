package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-platform/internal/appointment"
	"github.com/hackgods/clinic-appointment-platform/internal/availability"
	"github.com/hackgods/clinic-appointment-platform/internal/records"
)

func (h *handlers) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	if req.SpecialistID != nil && h.availability != nil {
		// Grid membership only; a taken slot is reported by Create as a conflict.
		ok, err := h.availability.IsCandidate(r.Context(), *req.SpecialistID, req.ScheduledAt)
		if err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
		if !ok {
			writeServiceError(w, r, h.logger, availability.ErrSlotUnavailable)
			return
		}
	}

	appt, err := h.appointments.Create(r.Context(), actorFrom(r.Context()), appointment.NewAppointment{
		PatientID:      req.PatientID,
		PatientName:    req.PatientName,
		SpecialistID:   req.SpecialistID,
		SpecialistName: req.SpecialistName,
		Specialty:      req.Specialty,
		ScheduledAt:    req.ScheduledAt,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *handlers) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}

	appt, err := h.appointments.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	rel, err := h.loader.Load(r.Context(), []appointment.Appointment{*appt})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	resp := toAppointmentResponse(appt)
	resp.withRelated(rel)
	writeJSON(w, http.StatusOK, resp)
}

// listAppointments pages by patient_id or specialist_id and embeds the
// referenced records, fetched once per distinct id.
func (h *handlers) listAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	var (
		list []appointment.Appointment
		err  error
	)
	switch {
	case q.Get("patient_id") != "":
		id, perr := uuid.Parse(q.Get("patient_id"))
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		list, err = h.appointments.ListForPatient(r.Context(), id, limit, offset)
	case q.Get("specialist_id") != "":
		id, perr := uuid.Parse(q.Get("specialist_id"))
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid_specialist_id", "specialist_id must be a valid UUID")
			return
		}
		list, err = h.appointments.ListForSpecialist(r.Context(), id, limit, offset)
	default:
		writeError(w, http.StatusBadRequest, "missing_filter", "patient_id or specialist_id is required")
		return
	}
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	rel, err := h.loader.Load(r.Context(), list)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	out := make([]AppointmentResponse, 0, len(list))
	for i := range list {
		resp := toAppointmentResponse(&list[i])
		resp.withRelated(rel)
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, AppointmentListResponse{Appointments: out, Limit: limit, Offset: offset})
}

func (h *handlers) acceptAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}
	actor := actorFrom(r.Context())
	if actor.Name == "" && h.specialists != nil {
		if sp, err := h.specialists.Get(r.Context(), actor.ID); err == nil {
			actor.Name = sp.Name
		}
	}
	h.respondTransition(w, r)(h.appointments.Accept(r.Context(), actor, id))
}

func (h *handlers) rejectAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}
	var req ReasonRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.respondTransition(w, r)(h.appointments.Reject(r.Context(), actorFrom(r.Context()), id, req.Reason))
}

func (h *handlers) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}
	var req ReasonRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.respondTransition(w, r)(h.appointments.Cancel(r.Context(), actorFrom(r.Context()), id, req.Reason))
}

// completeAppointment creates any records sent inline, and only then flips
// the appointment. A precheck keeps doomed completions from creating records.
func (h *handlers) completeAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}
	var req CompleteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ctx, actor := r.Context(), actorFrom(r.Context())

	appt, err := h.appointments.Precheck(ctx, actor, id, appointment.OpComplete)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	var recs appointment.CompletionRecords
	if req.MedicalRecordID != nil {
		recs.MedicalRecordID = *req.MedicalRecordID
	} else if req.MedicalRecord != nil {
		specialistID := actor.ID
		if appt.SpecialistID != nil {
			specialistID = *appt.SpecialistID
		}
		rec, err := h.records.CreateMedicalRecord(ctx, records.MedicalRecord{
			AppointmentID: appt.ID,
			PatientID:     appt.PatientID,
			SpecialistID:  specialistID,
			Diagnosis:     req.MedicalRecord.Diagnosis,
			Treatment:     req.MedicalRecord.Treatment,
			Notes:         req.MedicalRecord.Notes,
		})
		if err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
		recs.MedicalRecordID = rec.ID
	}

	if req.PatientReviewID != nil {
		recs.PatientReviewID = *req.PatientReviewID
	} else if req.PatientReview != nil {
		rev, err := h.records.CreateReview(ctx, records.Review{
			AppointmentID: appt.ID,
			AuthorID:      actor.ID,
			Kind:          records.ReviewBySpecialist,
			Rating:        req.PatientReview.Rating,
			Comment:       req.PatientReview.Comment,
		})
		if err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
		recs.PatientReviewID = rev.ID
	}

	h.respondTransition(w, r)(h.appointments.Complete(ctx, actor, id, recs))
}

func (h *handlers) attachSpecialistReview(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}
	var req SpecialistReviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ctx, actor := r.Context(), actorFrom(r.Context())

	var reviewID uuid.UUID
	switch {
	case req.ReviewID != nil:
		reviewID = *req.ReviewID
	case req.Review != nil:
		appt, err := h.appointments.Precheck(ctx, actor, id, appointment.OpAttachSpecialistReview)
		if err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
		if appt.SpecialistReviewID != nil {
			writeServiceError(w, r, h.logger, &appointment.TransitionError{
				Op:   string(appointment.OpAttachSpecialistReview),
				From: appt.Status,
				Err:  fmt.Errorf("%w: specialist_review_id already attached", appointment.ErrInvalidTransition),
			})
			return
		}
		rev, err := h.records.CreateReview(ctx, records.Review{
			AppointmentID: appt.ID,
			AuthorID:      actor.ID,
			Kind:          records.ReviewByPatient,
			Rating:        req.Review.Rating,
			Comment:       req.Review.Comment,
		})
		if err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
		reviewID = rev.ID
	}

	h.respondTransition(w, r)(h.appointments.AttachSpecialistReview(ctx, actor, id, reviewID))
}

func (h *handlers) attachSurvey(w http.ResponseWriter, r *http.Request) {
	id, ok := appointmentID(w, r)
	if !ok {
		return
	}
	var req SurveyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ctx, actor := r.Context(), actorFrom(r.Context())

	var surveyID uuid.UUID
	switch {
	case req.SurveyID != nil:
		surveyID = *req.SurveyID
	case req.Survey != nil:
		appt, err := h.appointments.Precheck(ctx, actor, id, appointment.OpAttachSurvey)
		if err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
		sv, err := h.records.CreateSurvey(ctx, records.Survey{
			AppointmentID: appt.ID,
			PatientID:     appt.PatientID,
			Score:         req.Survey.Score,
			Comment:       req.Survey.Comment,
		})
		if err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
		surveyID = sv.ID
	}

	h.respondTransition(w, r)(h.appointments.AttachSurvey(ctx, actor, id, surveyID))
}

func (h *handlers) respondTransition(w http.ResponseWriter, r *http.Request) func(*appointment.Appointment, error) {
	return func(appt *appointment.Appointment, err error) {
		if err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func appointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// decodeBody tolerates an empty body so optional payloads can be omitted.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}
