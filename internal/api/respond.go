package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointment-platform/internal/appointment"
	"github.com/hackgods/clinic-appointment-platform/internal/availability"
	"github.com/hackgods/clinic-appointment-platform/internal/records"
	"github.com/hackgods/clinic-appointment-platform/internal/schedule"
	"github.com/hackgods/clinic-appointment-platform/internal/specialist"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeServiceError maps domain failures to client responses. Anything not in
// the taxonomy is an infrastructure failure and is logged, not echoed.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, specialist.ErrSpecialistNotFound):
		writeError(w, http.StatusNotFound, "specialist_not_found", err.Error())
	case errors.Is(err, records.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "record_not_found", err.Error())
	case errors.Is(err, appointment.ErrActionNotPermitted):
		writeError(w, http.StatusForbidden, "action_not_permitted", err.Error())
	case errors.Is(err, appointment.ErrSlotConflict):
		writeError(w, http.StatusConflict, "slot_conflict", "slot already taken, please pick another one")
	case errors.Is(err, appointment.ErrSlotBeingBooked):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, appointment.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, availability.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, appointment.ErrMissingRequiredField):
		writeError(w, http.StatusBadRequest, "missing_required_field", err.Error())
	case errors.Is(err, records.ErrInvalidRecord):
		writeError(w, http.StatusBadRequest, "invalid_record", err.Error())
	case errors.Is(err, schedule.ErrInvariantViolation):
		writeError(w, http.StatusUnprocessableEntity, "schedule_invariant_violation", err.Error())
	default:
		logger.Error().Err(err).
			Str("request_id", GetRequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
