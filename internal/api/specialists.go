package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-platform/internal/appointment"
	"github.com/hackgods/clinic-appointment-platform/internal/schedule"
)

func (h *handlers) listSpecialists(w http.ResponseWriter, r *http.Request) {
	list, err := h.specialists.ListBySpecialty(r.Context(), r.URL.Query().Get("specialty"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	out := make([]SpecialistResponse, 0, len(list))
	for i := range list {
		out = append(out, toSpecialistResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) getSpecialist(w http.ResponseWriter, r *http.Request) {
	id, ok := specialistID(w, r)
	if !ok {
		return
	}
	sp, err := h.specialists.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toSpecialistResponse(sp))
}

// editSchedule lets a specialist change their own schedule; admins may edit any.
func (h *handlers) editSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := specialistID(w, r)
	if !ok {
		return
	}
	actor := actorFrom(r.Context())
	if actor.Role != appointment.RoleAdmin && (actor.Role != appointment.RoleSpecialist || actor.ID != id) {
		writeServiceError(w, r, h.logger, appointment.ErrActionNotPermitted)
		return
	}

	var req schedule.Schedule
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}

	sp, err := h.specialists.EditSchedule(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toSpecialistResponse(sp))
}

// getAvailability resolves free slots from ?today=YYYY-MM-DD, interpreted in
// the clinic timezone. Without it the current clinic date is used.
func (h *handlers) getAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := specialistID(w, r)
	if !ok {
		return
	}

	today := h.now().In(h.location)
	if raw := r.URL.Query().Get("today"); raw != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, raw, h.location)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_today", "today must be YYYY-MM-DD")
			return
		}
		today = parsed
	}

	days, err := h.availability.ResolveForSpecialist(r.Context(), id, today)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{
		SpecialistID: id,
		SlotMinutes:  int(schedule.SlotLength / time.Minute),
		Days:         days,
	})
}

func specialistID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_specialist_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}
